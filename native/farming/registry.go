package farming

import (
	"math/big"
	"strings"

	"cafichain/core/events"
	"cafichain/crypto"
)

// MaxLockDuration bounds package lock durations (100 years).
const MaxLockDuration = 100 * 365 * 24 * 60 * 60

// PackageSpec carries the mutable fields of a package. StakeToken is only
// honoured on creation.
type PackageSpec struct {
	Name         string
	StakeToken   string
	LockDuration uint64
	APYBps       uint64
	MinStake     *big.Int
	Active       bool
}

func (e *Engine) validateSpec(spec PackageSpec, params *Params) error {
	if spec.LockDuration == 0 {
		return ErrInvalidLock
	}
	if spec.LockDuration > MaxLockDuration {
		return ErrLockTooLong
	}
	if spec.APYBps > params.MaxAPYBps {
		return ErrAPYAboveCap
	}
	if spec.MinStake != nil && spec.MinStake.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// unlockAt returns now+lock, rejecting sums that wrap around.
func unlockAt(now, lock uint64) (uint64, error) {
	unlock := now + lock
	if unlock < now {
		return 0, ErrLockTooLong
	}
	return unlock, nil
}

func minStakeOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func (e *Engine) emitPackage(caller crypto.Address, pkg *Package, created bool) {
	e.emit(events.FarmPackageConfigured{
		Account:      caller,
		PackageID:    pkg.ID,
		Name:         pkg.Name,
		StakeToken:   pkg.StakeToken,
		LockDuration: pkg.LockDuration,
		APYBps:       pkg.APYBps,
		MinStake:     new(big.Int).Set(pkg.MinStake),
		Active:       pkg.Active,
		Created:      created,
	})
}

// CreatePackage appends a package to the registry and returns it with its
// assigned ID.
func (e *Engine) CreatePackage(caller crypto.Address, spec PackageSpec) (*Package, error) {
	release, err := e.adminBegin(caller, false)
	if err != nil {
		return nil, err
	}
	defer release()

	token := strings.ToUpper(strings.TrimSpace(spec.StakeToken))
	if token == "" {
		return nil, ErrInvalidToken
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	if err := e.validateSpec(spec, params); err != nil {
		return nil, err
	}
	id, err := e.state.FarmPackageCount()
	if err != nil {
		return nil, err
	}
	pkg := &Package{
		ID:           id,
		Name:         strings.TrimSpace(spec.Name),
		StakeToken:   token,
		LockDuration: spec.LockDuration,
		APYBps:       spec.APYBps,
		MinStake:     minStakeOrZero(spec.MinStake),
		Active:       spec.Active,
	}
	if err := e.state.PutFarmPackage(pkg); err != nil {
		return nil, err
	}
	e.emitPackage(caller, pkg, true)
	return pkg.Clone(), nil
}

// UpdatePackage rewrites the name, lock, APY, minimum and active flag of an
// existing package. Live stakes keep the unlock time fixed at creation.
func (e *Engine) UpdatePackage(caller crypto.Address, id uint64, spec PackageSpec) (*Package, error) {
	release, err := e.adminBegin(caller, false)
	if err != nil {
		return nil, err
	}
	defer release()

	params, err := e.params()
	if err != nil {
		return nil, err
	}
	pkg, err := e.loadPackage(id)
	if err != nil {
		return nil, err
	}
	if err := e.validateSpec(spec, params); err != nil {
		return nil, err
	}
	oldAPY := pkg.APYBps
	if name := strings.TrimSpace(spec.Name); name != "" {
		pkg.Name = name
	}
	pkg.LockDuration = spec.LockDuration
	pkg.APYBps = spec.APYBps
	pkg.MinStake = minStakeOrZero(spec.MinStake)
	pkg.Active = spec.Active
	if err := e.state.PutFarmPackage(pkg); err != nil {
		return nil, err
	}
	e.emitPackage(caller, pkg, false)
	if oldAPY != pkg.APYBps {
		e.emit(events.FarmAPYUpdated{Account: caller, PackageID: id, OldAPYBps: oldAPY, NewAPYBps: pkg.APYBps})
	}
	return pkg.Clone(), nil
}

// SetPackageActive toggles whether new stakes may reference the package.
func (e *Engine) SetPackageActive(caller crypto.Address, id uint64, active bool) (*Package, error) {
	release, err := e.adminBegin(caller, false)
	if err != nil {
		return nil, err
	}
	defer release()

	pkg, err := e.loadPackage(id)
	if err != nil {
		return nil, err
	}
	pkg.Active = active
	if err := e.state.PutFarmPackage(pkg); err != nil {
		return nil, err
	}
	e.emitPackage(caller, pkg, false)
	return pkg.Clone(), nil
}

// UpdateAPY changes the yield of a package. Accrual on live stakes uses the
// new rate from their next settlement onwards.
func (e *Engine) UpdateAPY(caller crypto.Address, id uint64, apyBps uint64) (*Package, error) {
	release, err := e.adminBegin(caller, false)
	if err != nil {
		return nil, err
	}
	defer release()

	params, err := e.params()
	if err != nil {
		return nil, err
	}
	if apyBps > params.MaxAPYBps {
		return nil, ErrAPYAboveCap
	}
	pkg, err := e.loadPackage(id)
	if err != nil {
		return nil, err
	}
	old := pkg.APYBps
	pkg.APYBps = apyBps
	if err := e.state.PutFarmPackage(pkg); err != nil {
		return nil, err
	}
	e.emit(events.FarmAPYUpdated{Account: caller, PackageID: id, OldAPYBps: old, NewAPYBps: apyBps})
	return pkg.Clone(), nil
}

// SetMaxAPY changes the APY cap applied to future package configuration.
func (e *Engine) SetMaxAPY(caller crypto.Address, capBps uint64) (*Params, error) {
	release, err := e.adminBegin(caller, false)
	if err != nil {
		return nil, err
	}
	defer release()

	if capBps > BasisPoints {
		return nil, ErrInvalidAPYCap
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	params.MaxAPYBps = capBps
	if err := e.state.PutFarmParams(params); err != nil {
		return nil, err
	}
	e.emit(events.FarmMaxAPYUpdated{Account: caller, MaxAPYBps: capBps})
	return params.Clone(), nil
}

// Package returns the package registered at id.
func (e *Engine) Package(id uint64) (*Package, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	return e.loadPackage(id)
}

// Packages returns every registered package in ID order.
func (e *Engine) Packages() ([]*Package, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	count, err := e.state.FarmPackageCount()
	if err != nil {
		return nil, err
	}
	out := make([]*Package, 0, count)
	for id := uint64(0); id < count; id++ {
		pkg, err := e.loadPackage(id)
		if err != nil {
			return nil, err
		}
		out = append(out, pkg)
	}
	return out, nil
}
