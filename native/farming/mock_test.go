package farming

import (
	"bytes"
	"errors"
	"math/big"

	"cafichain/crypto"
)

var errMockInsufficientBalance = errors.New("mock ledger: insufficient balance")

type mockEngineState struct {
	params   *Params
	packages []*Package
	stakes   map[string][]*StakeRecord
	pool     *Pool
	pending  map[string]*big.Int
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{
		stakes:  make(map[string][]*StakeRecord),
		pending: make(map[string]*big.Int),
	}
}

func (m *mockEngineState) key(addr crypto.Address) string {
	return string(addr.Bytes())
}

func (m *mockEngineState) FarmParams() (*Params, error) { return m.params.Clone(), nil }

func (m *mockEngineState) PutFarmParams(params *Params) error {
	m.params = params.Clone()
	return nil
}

func (m *mockEngineState) FarmPackageCount() (uint64, error) { return uint64(len(m.packages)), nil }

func (m *mockEngineState) FarmPackage(id uint64) (*Package, bool, error) {
	if id >= uint64(len(m.packages)) {
		return nil, false, nil
	}
	return m.packages[id].Clone(), true, nil
}

func (m *mockEngineState) PutFarmPackage(pkg *Package) error {
	switch {
	case pkg.ID < uint64(len(m.packages)):
		m.packages[pkg.ID] = pkg.Clone()
	case pkg.ID == uint64(len(m.packages)):
		m.packages = append(m.packages, pkg.Clone())
	default:
		return errors.New("mock state: package gap")
	}
	return nil
}

func (m *mockEngineState) FarmStakeCount(owner crypto.Address) (uint64, error) {
	return uint64(len(m.stakes[m.key(owner)])), nil
}

func (m *mockEngineState) FarmStake(owner crypto.Address, index uint64) (*StakeRecord, bool, error) {
	list := m.stakes[m.key(owner)]
	if index >= uint64(len(list)) {
		return nil, false, nil
	}
	return list[index].Clone(), true, nil
}

func (m *mockEngineState) PutFarmStake(record *StakeRecord) error {
	k := m.key(record.Owner)
	list := m.stakes[k]
	switch {
	case record.Index < uint64(len(list)):
		list[record.Index] = record.Clone()
	case record.Index == uint64(len(list)):
		m.stakes[k] = append(list, record.Clone())
	default:
		return errors.New("mock state: stake gap")
	}
	return nil
}

func (m *mockEngineState) FarmPool() (*Pool, error) {
	if m.pool == nil {
		return &Pool{RewardBalance: big.NewInt(0), TotalStaked: big.NewInt(0)}, nil
	}
	return m.pool.Clone(), nil
}

func (m *mockEngineState) PutFarmPool(pool *Pool) error {
	m.pool = pool.Clone()
	return nil
}

func (m *mockEngineState) FarmPending(owner crypto.Address) (*big.Int, error) {
	if v, ok := m.pending[m.key(owner)]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockEngineState) PutFarmPending(owner crypto.Address, amount *big.Int) error {
	m.pending[m.key(owner)] = new(big.Int).Set(amount)
	return nil
}

func (m *mockEngineState) IsPaused(module string) bool {
	return module == ModuleName && m.params != nil && m.params.Paused
}

type mockAuthority struct {
	owner crypto.Address
}

func (a *mockAuthority) IsOwner(addr crypto.Address) bool { return a.owner.Equal(addr) }

func (a *mockAuthority) SetOwner(addr crypto.Address) error {
	a.owner = addr
	return nil
}

// mockLedger keeps balances per token and calls hook after every successful
// movement, the way recipient code would run before the transfer returns.
type mockLedger struct {
	balances map[string]map[string]*big.Int
	hook     func(token string, from, to crypto.Address, amount *big.Int)
	calls    int
}

func newMockLedger() *mockLedger {
	return &mockLedger{balances: make(map[string]map[string]*big.Int)}
}

func (l *mockLedger) set(token string, addr crypto.Address, amount int64) {
	if l.balances[token] == nil {
		l.balances[token] = make(map[string]*big.Int)
	}
	l.balances[token][string(addr.Bytes())] = big.NewInt(amount)
}

func (l *mockLedger) BalanceOf(token string, addr crypto.Address) (*big.Int, error) {
	if v, ok := l.balances[token][string(addr.Bytes())]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (l *mockLedger) balance(token string, addr crypto.Address) *big.Int {
	v, _ := l.BalanceOf(token, addr)
	return v
}

func (l *mockLedger) Transfer(token string, from, to crypto.Address, amount *big.Int) error {
	fromBal := l.balance(token, from)
	if fromBal.Cmp(amount) < 0 {
		return errMockInsufficientBalance
	}
	if l.balances[token] == nil {
		l.balances[token] = make(map[string]*big.Int)
	}
	l.balances[token][string(from.Bytes())] = new(big.Int).Sub(fromBal, amount)
	l.balances[token][string(to.Bytes())] = new(big.Int).Add(l.balance(token, to), amount)
	l.calls++
	if l.hook != nil {
		l.hook(token, from, to, amount)
	}
	return nil
}

func (l *mockLedger) TransferFrom(token string, _ crypto.Address, from, to crypto.Address, amount *big.Int) error {
	return l.Transfer(token, from, to, amount)
}

func makeAddress(b byte) crypto.Address {
	return crypto.MustNewAddress(crypto.CafiPrefix, bytes.Repeat([]byte{b}, 20))
}

type fixedClock struct{ now uint64 }

func (c *fixedClock) Timestamp() uint64 { return c.now }
