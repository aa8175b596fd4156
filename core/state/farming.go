package state

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"cafichain/crypto"
	"cafichain/native/farming"
)

// RoleFarmOwner is the role whose single member may administer the farming
// module.
const RoleFarmOwner = "farm.owner"

var (
	farmParamsKey       = []byte("farm/params")
	farmPoolKey         = []byte("farm/pool")
	farmPackageCountKey = []byte("farm/packages/count")
	clockLastKey        = []byte("clock/last")
	receiptSequenceKey  = []byte("receipts/sequence")
)

func farmPackageKey(id uint64) []byte {
	return appendUint64([]byte("farm/packages/"), id)
}

func farmStakeCountKey(owner []byte) []byte {
	key := append([]byte("farm/stakes/count/"), owner...)
	return key
}

func farmStakeKey(owner []byte, index uint64) []byte {
	key := append([]byte("farm/stakes/"), owner...)
	key = append(key, '/')
	return appendUint64(key, index)
}

func farmPendingKey(owner []byte) []byte {
	return append([]byte("farm/pending/"), owner...)
}

func appendUint64(prefix []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(prefix, buf[:]...)
}

type storedFarmParams struct {
	MaxAPYBps   uint64
	FeeBps      uint64
	FeeReceiver []byte
	RewardToken string
	Paused      bool
}

type storedFarmPackage struct {
	ID           uint64
	Name         string
	StakeToken   string
	LockDuration uint64
	APYBps       uint64
	MinStake     *big.Int
	Active       bool
}

type storedFarmStake struct {
	Owner        []byte
	Index        uint64
	PackageID    uint64
	Amount       *big.Int
	StakeTime    uint64
	UnlockTime   uint64
	Claimed      bool
	AutoCompound bool
	Compounded   *big.Int
}

type storedFarmPool struct {
	RewardBalance *big.Int
	TotalStaked   *big.Int
}

func addressFromStored(b []byte) crypto.Address {
	if len(b) != crypto.AddressLength {
		return crypto.Address{}
	}
	return crypto.NewAddress(crypto.CafiPrefix, b)
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// FarmParams returns the module parameters, or nil before genesis wrote them.
func (m *Manager) FarmParams() (*farming.Params, error) {
	stored := new(storedFarmParams)
	ok, err := m.KVGet(farmParamsKey, stored)
	if err != nil || !ok {
		return nil, err
	}
	return &farming.Params{
		MaxAPYBps:   stored.MaxAPYBps,
		FeeBps:      stored.FeeBps,
		FeeReceiver: addressFromStored(stored.FeeReceiver),
		RewardToken: stored.RewardToken,
		Paused:      stored.Paused,
	}, nil
}

// PutFarmParams persists the module parameters.
func (m *Manager) PutFarmParams(params *farming.Params) error {
	if params == nil {
		return fmt.Errorf("farm params must not be nil")
	}
	return m.KVPut(farmParamsKey, &storedFarmParams{
		MaxAPYBps:   params.MaxAPYBps,
		FeeBps:      params.FeeBps,
		FeeReceiver: params.FeeReceiver.Bytes(),
		RewardToken: params.RewardToken,
		Paused:      params.Paused,
	})
}

// FarmPackageCount returns the number of registered packages.
func (m *Manager) FarmPackageCount() (uint64, error) {
	var count uint64
	if _, err := m.KVGet(farmPackageCountKey, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// FarmPackage loads the package at id.
func (m *Manager) FarmPackage(id uint64) (*farming.Package, bool, error) {
	stored := new(storedFarmPackage)
	ok, err := m.KVGet(farmPackageKey(id), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &farming.Package{
		ID:           stored.ID,
		Name:         stored.Name,
		StakeToken:   stored.StakeToken,
		LockDuration: stored.LockDuration,
		APYBps:       stored.APYBps,
		MinStake:     bigOrZero(stored.MinStake),
		Active:       stored.Active,
	}, true, nil
}

// PutFarmPackage writes pkg at its ID. Writing at ID == count appends; any
// larger ID would leave a gap and is rejected.
func (m *Manager) PutFarmPackage(pkg *farming.Package) error {
	if pkg == nil {
		return fmt.Errorf("farm package must not be nil")
	}
	count, err := m.FarmPackageCount()
	if err != nil {
		return err
	}
	if pkg.ID > count {
		return fmt.Errorf("farm package %d would leave a gap after %d", pkg.ID, count)
	}
	if err := m.KVPut(farmPackageKey(pkg.ID), &storedFarmPackage{
		ID:           pkg.ID,
		Name:         pkg.Name,
		StakeToken:   pkg.StakeToken,
		LockDuration: pkg.LockDuration,
		APYBps:       pkg.APYBps,
		MinStake:     bigOrZero(pkg.MinStake),
		Active:       pkg.Active,
	}); err != nil {
		return err
	}
	if pkg.ID == count {
		return m.KVPut(farmPackageCountKey, count+1)
	}
	return nil
}

// FarmStakeCount returns the number of stake records ever created by owner.
func (m *Manager) FarmStakeCount(owner crypto.Address) (uint64, error) {
	var count uint64
	if _, err := m.KVGet(farmStakeCountKey(owner.Bytes()), &count); err != nil {
		return 0, err
	}
	return count, nil
}

// FarmStake loads the stake record at (owner, index).
func (m *Manager) FarmStake(owner crypto.Address, index uint64) (*farming.StakeRecord, bool, error) {
	stored := new(storedFarmStake)
	ok, err := m.KVGet(farmStakeKey(owner.Bytes(), index), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &farming.StakeRecord{
		Owner:        addressFromStored(stored.Owner),
		Index:        stored.Index,
		PackageID:    stored.PackageID,
		Amount:       bigOrZero(stored.Amount),
		StakeTime:    stored.StakeTime,
		UnlockTime:   stored.UnlockTime,
		Claimed:      stored.Claimed,
		AutoCompound: stored.AutoCompound,
		Compounded:   bigOrZero(stored.Compounded),
	}, true, nil
}

// PutFarmStake writes record at (Owner, Index), appending when Index equals
// the owner's current count.
func (m *Manager) PutFarmStake(record *farming.StakeRecord) error {
	if record == nil || record.Owner.IsZero() {
		return fmt.Errorf("farm stake requires an owner")
	}
	owner := record.Owner.Bytes()
	count, err := m.FarmStakeCount(record.Owner)
	if err != nil {
		return err
	}
	if record.Index > count {
		return fmt.Errorf("farm stake %d would leave a gap after %d", record.Index, count)
	}
	if err := m.KVPut(farmStakeKey(owner, record.Index), &storedFarmStake{
		Owner:        owner,
		Index:        record.Index,
		PackageID:    record.PackageID,
		Amount:       bigOrZero(record.Amount),
		StakeTime:    record.StakeTime,
		UnlockTime:   record.UnlockTime,
		Claimed:      record.Claimed,
		AutoCompound: record.AutoCompound,
		Compounded:   bigOrZero(record.Compounded),
	}); err != nil {
		return err
	}
	if record.Index == count {
		return m.KVPut(farmStakeCountKey(owner), count+1)
	}
	return nil
}

// FarmPool returns the pool scalars, zeroed when never written.
func (m *Manager) FarmPool() (*farming.Pool, error) {
	stored := new(storedFarmPool)
	if _, err := m.KVGet(farmPoolKey, stored); err != nil {
		return nil, err
	}
	return &farming.Pool{
		RewardBalance: bigOrZero(stored.RewardBalance),
		TotalStaked:   bigOrZero(stored.TotalStaked),
	}, nil
}

// PutFarmPool persists the pool scalars.
func (m *Manager) PutFarmPool(pool *farming.Pool) error {
	if pool == nil {
		return fmt.Errorf("farm pool must not be nil")
	}
	if pool.RewardBalance != nil && pool.RewardBalance.Sign() < 0 {
		return fmt.Errorf("farm pool balance must not be negative")
	}
	return m.KVPut(farmPoolKey, &storedFarmPool{
		RewardBalance: bigOrZero(pool.RewardBalance),
		TotalStaked:   bigOrZero(pool.TotalStaked),
	})
}

// FarmPending returns the reward amount owed to owner under the pull pattern.
func (m *Manager) FarmPending(owner crypto.Address) (*big.Int, error) {
	amount := new(big.Int)
	if _, err := m.KVGet(farmPendingKey(owner.Bytes()), amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// PutFarmPending stores the pending amount for owner, clearing the slot at zero.
func (m *Manager) PutFarmPending(owner crypto.Address, amount *big.Int) error {
	if owner.IsZero() {
		return fmt.Errorf("farm pending requires an owner")
	}
	key := farmPendingKey(owner.Bytes())
	if amount == nil || amount.Sign() == 0 {
		return m.KVDelete(key)
	}
	if err := checkStoredAmount(amount); err != nil {
		return err
	}
	return m.KVPut(key, amount)
}

// IsPaused implements the pause collaborator for native modules.
func (m *Manager) IsPaused(module string) bool {
	if module != farming.ModuleName {
		return false
	}
	params, err := m.FarmParams()
	if err != nil || params == nil {
		return false
	}
	return params.Paused
}

// IsOwner reports whether addr holds the farming owner role.
func (m *Manager) IsOwner(addr crypto.Address) bool {
	return m.HasRole(RoleFarmOwner, addr.Bytes())
}

// Owner returns the current farming owner, or the zero address.
func (m *Manager) Owner() (crypto.Address, error) {
	members, err := m.RoleMembers(RoleFarmOwner)
	if err != nil {
		return crypto.Address{}, err
	}
	if len(members) == 0 {
		return crypto.Address{}, nil
	}
	return addressFromStored(members[0]), nil
}

// SetOwner replaces the farming owner role with addr.
func (m *Manager) SetOwner(addr crypto.Address) error {
	if addr.IsZero() {
		return fmt.Errorf("owner must not be the zero address")
	}
	members, err := m.RoleMembers(RoleFarmOwner)
	if err != nil {
		return err
	}
	for _, member := range members {
		if err := m.RemoveRole(RoleFarmOwner, member); err != nil {
			return err
		}
	}
	return m.SetRole(RoleFarmOwner, addr.Bytes())
}

// LastTimestamp returns the highest timestamp handed out by the clock.
func (m *Manager) LastTimestamp() (uint64, error) {
	var ts uint64
	if _, err := m.KVGet(clockLastKey, &ts); err != nil {
		return 0, err
	}
	return ts, nil
}

// PutLastTimestamp records ts as the clock high-water mark.
func (m *Manager) PutLastTimestamp(ts uint64) error {
	return m.KVPut(clockLastKey, ts)
}

// NextReceiptSequence increments and returns the receipt counter.
func (m *Manager) NextReceiptSequence() (uint64, error) {
	var seq uint64
	if _, err := m.KVGet(receiptSequenceKey, &seq); err != nil {
		return 0, err
	}
	seq++
	if err := m.KVPut(receiptSequenceKey, seq); err != nil {
		return 0, err
	}
	return seq, nil
}
