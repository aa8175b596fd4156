package farming

import (
	"math/big"

	"cafichain/crypto"
)

// Package is a named reward configuration that stakes reference by index.
// Packages are append-only; retiring one clears Active rather than removing it.
type Package struct {
	// ID is the position of the package in the registry.
	ID uint64
	// Name is a human readable label shown to operators.
	Name string
	// StakeToken is the ledger symbol accepted as principal.
	StakeToken string
	// LockDuration is the minimum stake lifetime in seconds.
	LockDuration uint64
	// APYBps is the annual yield expressed in basis points.
	APYBps uint64
	// MinStake is the smallest principal accepted by Stake.
	MinStake *big.Int
	// Active gates new stakes against the package.
	Active bool
}

// StakeRecord is a single position owned by an account. Records are addressed
// by (owner, index) and are never removed; a terminal record keeps its slot
// with Amount zeroed and Claimed set.
type StakeRecord struct {
	Owner        crypto.Address
	Index        uint64
	PackageID    uint64
	Amount       *big.Int
	StakeTime    uint64
	UnlockTime   uint64
	Claimed      bool
	AutoCompound bool
	// Compounded accumulates rewards reinvested while AutoCompound is on.
	Compounded *big.Int
}

// Pool captures the module-wide accounting scalars.
type Pool struct {
	// RewardBalance is the liquidity available to pay rewards.
	RewardBalance *big.Int
	// TotalStaked is the aggregate live principal across all stakes.
	TotalStaked *big.Int
}

// Params holds the governance controlled knobs of the module.
type Params struct {
	MaxAPYBps   uint64
	FeeBps      uint64
	FeeReceiver crypto.Address
	RewardToken string
	Paused      bool
}

// StakeView pairs a record with its currently owed reward.
type StakeView struct {
	Record *StakeRecord
	Reward *big.Int
}

// Clone returns a deep copy of the package.
func (p *Package) Clone() *Package {
	if p == nil {
		return nil
	}
	clone := *p
	if p.MinStake != nil {
		clone.MinStake = new(big.Int).Set(p.MinStake)
	}
	return &clone
}

// Clone returns a deep copy of the stake record.
func (r *StakeRecord) Clone() *StakeRecord {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Amount != nil {
		clone.Amount = new(big.Int).Set(r.Amount)
	}
	if r.Compounded != nil {
		clone.Compounded = new(big.Int).Set(r.Compounded)
	}
	return &clone
}

// Principal returns Amount + Compounded, the base on which rewards accrue.
func (r *StakeRecord) Principal() *big.Int {
	total := big.NewInt(0)
	if r == nil {
		return total
	}
	if r.Amount != nil {
		total.Add(total, r.Amount)
	}
	if r.Compounded != nil {
		total.Add(total, r.Compounded)
	}
	return total
}

// Terminal reports whether the record has been claimed or withdrawn.
func (r *StakeRecord) Terminal() bool {
	return r == nil || r.Claimed
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := &Pool{}
	if p.RewardBalance != nil {
		clone.RewardBalance = new(big.Int).Set(p.RewardBalance)
	}
	if p.TotalStaked != nil {
		clone.TotalStaked = new(big.Int).Set(p.TotalStaked)
	}
	return clone
}

// EnsureDefaults populates nil big.Int fields so arithmetic and encoding are safe.
func (p *Pool) EnsureDefaults() {
	if p.RewardBalance == nil {
		p.RewardBalance = big.NewInt(0)
	}
	if p.TotalStaked == nil {
		p.TotalStaked = big.NewInt(0)
	}
}

// EnsureDefaults populates nil big.Int fields so arithmetic and encoding are safe.
func (r *StakeRecord) EnsureDefaults() {
	if r.Amount == nil {
		r.Amount = big.NewInt(0)
	}
	if r.Compounded == nil {
		r.Compounded = big.NewInt(0)
	}
}

// Clone returns a copy of the params.
func (p *Params) Clone() *Params {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
