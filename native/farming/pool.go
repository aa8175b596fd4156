package farming

import (
	"math/big"

	"cafichain/core/events"
	"cafichain/crypto"
)

// debitPool checks and debits the reward balance in one step. On failure the
// pool is left untouched.
func debitPool(pool *Pool, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if pool.RewardBalance.Cmp(amount) < 0 {
		return ErrInsufficientRewardPool
	}
	pool.RewardBalance = new(big.Int).Sub(pool.RewardBalance, amount)
	return nil
}

// requireOwner rejects callers without the owner role.
func (e *Engine) requireOwner(caller crypto.Address) error {
	if e.authority == nil {
		return errNilAuthority
	}
	if caller.IsZero() || !e.authority.IsOwner(caller) {
		return ErrUnauthorized
	}
	return nil
}

// adminBegin is the prologue shared by owner-only mutations. Administrative
// calls are not blocked by the pause toggle.
func (e *Engine) adminBegin(caller crypto.Address, needLedger bool) (func(), error) {
	if err := e.ready(needLedger); err != nil {
		return nil, err
	}
	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	return e.enter()
}

// AddRewardPoolFunds pulls amount of the reward token from the owner into
// module custody and credits the reward pool.
func (e *Engine) AddRewardPoolFunds(caller crypto.Address, amount *big.Int) (*Pool, error) {
	release, err := e.adminBegin(caller, true)
	if err != nil {
		return nil, err
	}
	defer release()

	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	pool, err := e.pool()
	if err != nil {
		return nil, err
	}
	if err := e.ledger.TransferFrom(params.RewardToken, e.moduleAddress, caller, e.moduleAddress, amount); err != nil {
		return nil, err
	}
	pool.RewardBalance = new(big.Int).Add(pool.RewardBalance, amount)
	if err := e.state.PutFarmPool(pool); err != nil {
		return nil, err
	}
	e.emit(events.FarmRewardPoolFunded{
		Account: caller,
		Amount:  new(big.Int).Set(amount),
		Balance: new(big.Int).Set(pool.RewardBalance),
	})
	return pool.Clone(), nil
}

// SetFeeParameters configures the fee taken from compounded claims.
func (e *Engine) SetFeeParameters(caller crypto.Address, feeBps uint64, receiver crypto.Address) (*Params, error) {
	release, err := e.adminBegin(caller, false)
	if err != nil {
		return nil, err
	}
	defer release()

	if feeBps > BasisPoints {
		return nil, ErrInvalidFee
	}
	if receiver.IsZero() {
		return nil, ErrZeroAddress
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	params.FeeBps = feeBps
	params.FeeReceiver = receiver
	if err := e.state.PutFarmParams(params); err != nil {
		return nil, err
	}
	e.emit(events.FarmFeeParametersUpdated{Account: caller, FeeBps: feeBps, FeeReceiver: receiver})
	return params.Clone(), nil
}

// Pool returns a snapshot of the reward pool and total staked principal.
func (e *Engine) Pool() (*Pool, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	return e.pool()
}
