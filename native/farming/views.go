package farming

import (
	"math/big"

	"cafichain/crypto"
)

// StakeInfo returns the record at (owner, index) with its currently owed
// reward. Terminal records are returned with a zero reward.
func (e *Engine) StakeInfo(owner crypto.Address, index uint64) (*StakeView, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	record, ok, err := e.state.FarmStake(owner, index)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		return nil, ErrStakeNotFound
	}
	return e.view(record)
}

func (e *Engine) view(record *StakeRecord) (*StakeView, error) {
	record.EnsureDefaults()
	reward := big.NewInt(0)
	if !record.Terminal() {
		pkg, err := e.loadPackage(record.PackageID)
		if err != nil {
			return nil, err
		}
		reward = CalculateReward(record, pkg, e.now())
	}
	return &StakeView{Record: record, Reward: reward}, nil
}

// Stakes lists every record created by owner in index order, terminal ones
// included so indices line up with their position.
func (e *Engine) Stakes(owner crypto.Address) ([]*StakeView, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	count, err := e.state.FarmStakeCount(owner)
	if err != nil {
		return nil, err
	}
	out := make([]*StakeView, 0, count)
	for i := uint64(0); i < count; i++ {
		record, ok, err := e.state.FarmStake(owner, i)
		if err != nil {
			return nil, err
		}
		if !ok || record == nil {
			return nil, ErrStakeNotFound
		}
		v, err := e.view(record)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// PendingRewards returns the amount owner may collect with WithdrawRewards.
func (e *Engine) PendingRewards(owner crypto.Address) (*big.Int, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	pending, err := e.state.FarmPending(owner)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return big.NewInt(0), nil
	}
	return pending, nil
}
