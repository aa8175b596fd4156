package farming

import (
	"math/big"

	"cafichain/core/events"
	"cafichain/crypto"
	nativecommon "cafichain/native/common"
)

// ModuleName identifies the farming module to the pause collaborator.
const ModuleName = "farming"

type engineState interface {
	FarmParams() (*Params, error)
	PutFarmParams(params *Params) error
	FarmPackageCount() (uint64, error)
	FarmPackage(id uint64) (*Package, bool, error)
	PutFarmPackage(pkg *Package) error
	FarmStakeCount(owner crypto.Address) (uint64, error)
	FarmStake(owner crypto.Address, index uint64) (*StakeRecord, bool, error)
	PutFarmStake(record *StakeRecord) error
	FarmPool() (*Pool, error)
	PutFarmPool(pool *Pool) error
	FarmPending(owner crypto.Address) (*big.Int, error)
	PutFarmPending(owner crypto.Address, amount *big.Int) error
}

// TokenLedger moves value between accounts. Every call is all-or-nothing; a
// returned error means no balance changed.
type TokenLedger interface {
	Transfer(token string, from, to crypto.Address, amount *big.Int) error
	TransferFrom(token string, spender, from, to crypto.Address, amount *big.Int) error
	BalanceOf(token string, account crypto.Address) (*big.Int, error)
}

// Authority answers access-control questions for administrative operations.
type Authority interface {
	IsOwner(addr crypto.Address) bool
	SetOwner(addr crypto.Address) error
}

// Clock supplies the current timestamp in unix seconds.
type Clock interface {
	Timestamp() uint64
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() uint64

// Timestamp implements Clock.
func (f ClockFunc) Timestamp() uint64 { return f() }

// Engine implements stake settlement, reward pool accounting and the package
// registry on top of an external state store and token ledger.
type Engine struct {
	state         engineState
	ledger        TokenLedger
	pauses        nativecommon.PauseView
	authority     Authority
	clock         Clock
	emitter       events.Emitter
	moduleAddress crypto.Address

	// entered is set for the duration of a mutating call. Token ledger hooks
	// that call back into the engine observe it and are rejected.
	entered bool
}

// NewEngine constructs an engine holding custody at moduleAddr.
func NewEngine(moduleAddr crypto.Address) *Engine {
	return &Engine{moduleAddress: moduleAddr, emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger wires the token ledger used to move stake and reward tokens.
func (e *Engine) SetLedger(ledger TokenLedger) {
	if e == nil {
		return
	}
	e.ledger = ledger
}

// SetPauses wires the pause view consulted before user mutations.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetAuthority wires the access-control collaborator.
func (e *Engine) SetAuthority(a Authority) {
	if e == nil {
		return
	}
	e.authority = a
}

// SetClock configures the timestamp source used for accrual and locks.
func (e *Engine) SetClock(c Clock) {
	if e == nil {
		return
	}
	e.clock = c
}

// SetEmitter configures the sink for module events. A nil emitter discards.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// ModuleAddress returns the custody account holding stakes and the pool.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

// SetModuleAddress overrides the custody account.
func (e *Engine) SetModuleAddress(addr crypto.Address) {
	if e == nil {
		return
	}
	e.moduleAddress = addr
}

func (e *Engine) now() uint64 {
	if e.clock == nil {
		return 0
	}
	return e.clock.Timestamp()
}

func (e *Engine) emit(evt events.Event) {
	if e.emitter != nil {
		e.emitter.Emit(evt)
	}
}

// enter marks the engine busy. The returned release must be deferred.
func (e *Engine) enter() (func(), error) {
	if e.entered {
		return nil, ErrReentrantCall
	}
	e.entered = true
	return func() { e.entered = false }, nil
}

func (e *Engine) ready(needLedger bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if needLedger && e.ledger == nil {
		return errNilLedger
	}
	return nil
}

// begin runs the common prologue of every user-facing mutation.
func (e *Engine) begin(guarded bool) (func(), error) {
	if err := e.ready(true); err != nil {
		return nil, err
	}
	if guarded {
		if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
			return nil, err
		}
	}
	return e.enter()
}

func (e *Engine) params() (*Params, error) {
	params, err := e.state.FarmParams()
	if err != nil {
		return nil, err
	}
	if params == nil {
		return nil, errNoParams
	}
	return params, nil
}

func (e *Engine) pool() (*Pool, error) {
	pool, err := e.state.FarmPool()
	if err != nil {
		return nil, err
	}
	if pool == nil {
		pool = &Pool{}
	}
	pool.EnsureDefaults()
	return pool, nil
}

func (e *Engine) loadPackage(id uint64) (*Package, error) {
	pkg, ok, err := e.state.FarmPackage(id)
	if err != nil {
		return nil, err
	}
	if !ok || pkg == nil {
		return nil, ErrPackageNotFound
	}
	if pkg.MinStake == nil {
		pkg.MinStake = big.NewInt(0)
	}
	return pkg, nil
}

// liveStake loads (owner, index) and rejects missing or terminal records.
func (e *Engine) liveStake(owner crypto.Address, index uint64) (*StakeRecord, error) {
	record, ok, err := e.state.FarmStake(owner, index)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		return nil, ErrStakeNotFound
	}
	record.EnsureDefaults()
	if record.Terminal() {
		return nil, ErrAlreadyClaimed
	}
	return record, nil
}

func (e *Engine) creditPending(owner crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	current, err := e.state.FarmPending(owner)
	if err != nil {
		return err
	}
	if current == nil {
		current = big.NewInt(0)
	}
	return e.state.PutFarmPending(owner, new(big.Int).Add(current, amount))
}

// Stake pulls amount of the package's stake token from caller into module
// custody and appends a new stake record. The caller must have approved the
// module address beforehand.
func (e *Engine) Stake(caller crypto.Address, packageID uint64, amount *big.Int, autoCompound bool) (*StakeRecord, error) {
	release, err := e.begin(true)
	if err != nil {
		return nil, err
	}
	defer release()

	if caller.IsZero() {
		return nil, ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	pkg, err := e.loadPackage(packageID)
	if err != nil {
		return nil, err
	}
	if !pkg.Active {
		return nil, ErrPackageInactive
	}
	if amount.Cmp(pkg.MinStake) < 0 {
		return nil, ErrBelowMinimumStake
	}
	index, err := e.state.FarmStakeCount(caller)
	if err != nil {
		return nil, err
	}
	pool, err := e.pool()
	if err != nil {
		return nil, err
	}

	now := e.now()
	unlock, err := unlockAt(now, pkg.LockDuration)
	if err != nil {
		return nil, err
	}

	// The pull happens first: a failed transfer leaves nothing to undo.
	if err := e.ledger.TransferFrom(pkg.StakeToken, e.moduleAddress, caller, e.moduleAddress, amount); err != nil {
		return nil, err
	}

	record := &StakeRecord{
		Owner:        caller,
		Index:        index,
		PackageID:    pkg.ID,
		Amount:       new(big.Int).Set(amount),
		StakeTime:    now,
		UnlockTime:   unlock,
		AutoCompound: autoCompound,
		Compounded:   big.NewInt(0),
	}
	if err := e.state.PutFarmStake(record); err != nil {
		return nil, err
	}
	pool.TotalStaked = new(big.Int).Add(pool.TotalStaked, amount)
	if err := e.state.PutFarmPool(pool); err != nil {
		return nil, err
	}
	e.emit(events.FarmStakeCreated{
		Account:      caller,
		Index:        index,
		PackageID:    pkg.ID,
		Amount:       new(big.Int).Set(amount),
		UnlockTime:   record.UnlockTime,
		AutoCompound: autoCompound,
	})
	return record.Clone(), nil
}

// CalculateReward returns the reward currently owed on (owner, index). It
// fails for unknown indices and terminal records.
func (e *Engine) CalculateReward(owner crypto.Address, index uint64) (*big.Int, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	record, err := e.liveStake(owner, index)
	if err != nil {
		return nil, err
	}
	pkg, err := e.loadPackage(record.PackageID)
	if err != nil {
		return nil, err
	}
	return CalculateReward(record, pkg, e.now()), nil
}

// ClaimResult describes the disbursement of a successful claim.
type ClaimResult struct {
	Reward    *big.Int
	Credited  *big.Int
	Fee       *big.Int
	Principal *big.Int
	// Disbursed is the amount drawn from the reward pool.
	Disbursed *big.Int
}

// ClaimReward settles a stake once its lock has elapsed. The reward, or the
// compounded bundle net of fees for auto-compounding stakes, is credited to
// pending balances and the principal is returned to the owner. The record is
// terminal afterwards.
func (e *Engine) ClaimReward(caller crypto.Address, index uint64) (*ClaimResult, error) {
	release, err := e.begin(true)
	if err != nil {
		return nil, err
	}
	defer release()

	record, err := e.liveStake(caller, index)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if now < record.UnlockTime {
		return nil, ErrStillLocked
	}
	pkg, err := e.loadPackage(record.PackageID)
	if err != nil {
		return nil, err
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	reward := CalculateReward(record, pkg, now)

	result := &ClaimResult{
		Reward:    reward,
		Credited:  new(big.Int).Set(reward),
		Principal: new(big.Int).Set(record.Amount),
		Disbursed: new(big.Int).Set(reward),
	}
	split := record.AutoCompound && record.Compounded.Sign() > 0
	if split {
		total := new(big.Int).Add(reward, record.Compounded)
		feeBps := params.FeeBps
		if params.FeeReceiver.IsZero() {
			feeBps = 0
		}
		fee, net := SplitFee(total, feeBps)
		result.Fee = fee
		result.Credited = net
		result.Disbursed = total
	}

	pool, err := e.pool()
	if err != nil {
		return nil, err
	}
	if err := debitPool(pool, result.Disbursed); err != nil {
		return nil, err
	}

	// Record is terminal before any value leaves custody.
	record.Claimed = true
	record.Amount = big.NewInt(0)
	if err := e.state.PutFarmStake(record); err != nil {
		return nil, err
	}
	pool.TotalStaked = subFloor(pool.TotalStaked, result.Principal)
	if err := e.state.PutFarmPool(pool); err != nil {
		return nil, err
	}
	if err := e.creditPending(caller, result.Credited); err != nil {
		return nil, err
	}
	if split {
		if err := e.creditPending(params.FeeReceiver, result.Fee); err != nil {
			return nil, err
		}
	}
	if result.Principal.Sign() > 0 {
		if err := e.ledger.Transfer(pkg.StakeToken, e.moduleAddress, caller, result.Principal); err != nil {
			return nil, err
		}
	}

	evt := events.FarmRewardClaimed{
		Account:   caller,
		Index:     index,
		Reward:    new(big.Int).Set(reward),
		Credited:  new(big.Int).Set(result.Credited),
		Principal: new(big.Int).Set(result.Principal),
	}
	if split {
		evt.Compounded = new(big.Int).Set(record.Compounded)
		evt.Fee = new(big.Int).Set(result.Fee)
		evt.FeeReceiver = params.FeeReceiver
	}
	e.emit(evt)
	return result, nil
}

// WithdrawRewards pays out the caller's pending balance in the reward token.
// It stays available while the module is paused.
func (e *Engine) WithdrawRewards(caller crypto.Address) (*big.Int, error) {
	release, err := e.begin(false)
	if err != nil {
		return nil, err
	}
	defer release()

	params, err := e.params()
	if err != nil {
		return nil, err
	}
	pending, err := e.state.FarmPending(caller)
	if err != nil {
		return nil, err
	}
	if pending == nil || pending.Sign() == 0 {
		return nil, ErrNothingToWithdraw
	}
	amount := new(big.Int).Set(pending)
	if err := e.state.PutFarmPending(caller, big.NewInt(0)); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(params.RewardToken, e.moduleAddress, caller, amount); err != nil {
		return nil, err
	}
	e.emit(events.FarmRewardsWithdrawn{Account: caller, Token: params.RewardToken, Amount: new(big.Int).Set(amount)})
	return amount, nil
}

// ToggleAutoStake flips the auto-compound flag of a live stake and returns
// the new value.
func (e *Engine) ToggleAutoStake(caller crypto.Address, index uint64) (bool, error) {
	release, err := e.begin(true)
	if err != nil {
		return false, err
	}
	defer release()

	record, err := e.liveStake(caller, index)
	if err != nil {
		return false, err
	}
	record.AutoCompound = !record.AutoCompound
	if err := e.state.PutFarmStake(record); err != nil {
		return false, err
	}
	e.emit(events.FarmAutoStakeToggled{Account: caller, Index: index, Enabled: record.AutoCompound})
	return record.AutoCompound, nil
}

// CompoundReward reinvests the owed reward into the stake and renews the lock
// for the stake's own duration:
//
//	unlockTime = now + (oldUnlockTime - oldStakeTime)
func (e *Engine) CompoundReward(caller crypto.Address, index uint64) (*StakeRecord, error) {
	release, err := e.begin(true)
	if err != nil {
		return nil, err
	}
	defer release()

	record, err := e.liveStake(caller, index)
	if err != nil {
		return nil, err
	}
	if !record.AutoCompound {
		return nil, ErrAutoCompoundOff
	}
	now := e.now()
	if now < record.UnlockTime {
		return nil, ErrStillLocked
	}
	pkg, err := e.loadPackage(record.PackageID)
	if err != nil {
		return nil, err
	}
	unlock, err := unlockAt(now, record.UnlockTime-record.StakeTime)
	if err != nil {
		return nil, err
	}
	reward := CalculateReward(record, pkg, now)
	pool, err := e.pool()
	if err != nil {
		return nil, err
	}
	if err := debitPool(pool, reward); err != nil {
		return nil, err
	}

	record.StakeTime = now
	record.UnlockTime = unlock
	record.Compounded = new(big.Int).Add(record.Compounded, reward)
	if err := e.state.PutFarmStake(record); err != nil {
		return nil, err
	}
	if err := e.state.PutFarmPool(pool); err != nil {
		return nil, err
	}
	e.emit(events.FarmAutoCompounded{
		Account:    caller,
		Index:      index,
		Reward:     new(big.Int).Set(reward),
		Compounded: new(big.Int).Set(record.Compounded),
		UnlockTime: record.UnlockTime,
	})
	return record.Clone(), nil
}

// WithdrawResult reports the amounts paid by Withdraw.
type WithdrawResult struct {
	Principal *big.Int
	Reward    *big.Int
}

// Withdraw terminates a stake after its lock, paying the principal in the
// stake token and the final reward plus any compounded amount in the reward
// token.
func (e *Engine) Withdraw(caller crypto.Address, index uint64) (*WithdrawResult, error) {
	release, err := e.begin(true)
	if err != nil {
		return nil, err
	}
	defer release()

	record, err := e.liveStake(caller, index)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if now < record.UnlockTime {
		return nil, ErrStillLocked
	}
	pkg, err := e.loadPackage(record.PackageID)
	if err != nil {
		return nil, err
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	reward := CalculateReward(record, pkg, now)
	payout := new(big.Int).Add(reward, record.Compounded)
	principal := new(big.Int).Set(record.Amount)

	pool, err := e.pool()
	if err != nil {
		return nil, err
	}
	if err := debitPool(pool, payout); err != nil {
		return nil, err
	}

	record.Claimed = true
	record.Amount = big.NewInt(0)
	if err := e.state.PutFarmStake(record); err != nil {
		return nil, err
	}
	pool.TotalStaked = subFloor(pool.TotalStaked, principal)
	if err := e.state.PutFarmPool(pool); err != nil {
		return nil, err
	}
	if principal.Sign() > 0 {
		if err := e.ledger.Transfer(pkg.StakeToken, e.moduleAddress, caller, principal); err != nil {
			return nil, err
		}
	}
	if payout.Sign() > 0 {
		if err := e.ledger.Transfer(params.RewardToken, e.moduleAddress, caller, payout); err != nil {
			return nil, err
		}
	}
	e.emit(events.FarmWithdrawn{
		Account:    caller,
		Index:      index,
		StakeToken: pkg.StakeToken,
		Principal:  new(big.Int).Set(principal),
		Reward:     new(big.Int).Set(payout),
	})
	return &WithdrawResult{Principal: principal, Reward: payout}, nil
}

// Unstake is an alias of Withdraw.
func (e *Engine) Unstake(caller crypto.Address, index uint64) (*WithdrawResult, error) {
	return e.Withdraw(caller, index)
}

func subFloor(a, b *big.Int) *big.Int {
	out := new(big.Int).Sub(a, b)
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out
}
