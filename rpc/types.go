package rpc

import (
	"math/big"

	"cafichain/core"
	"cafichain/native/farming"
)

// Amounts travel as base-10 strings so they survive JSON clients that parse
// numbers as float64.

type stakeRequest struct {
	PackageID    uint64 `json:"packageId"`
	Amount       string `json:"amount"`
	AutoCompound bool   `json:"autoCompound"`
}

type packageRequest struct {
	Name         string `json:"name"`
	StakeToken   string `json:"stakeToken"`
	LockDuration uint64 `json:"lockDuration"`
	APYBps       uint64 `json:"apyBps"`
	MinStake     string `json:"minStake"`
	Active       *bool  `json:"active,omitempty"`
}

type apyRequest struct {
	APYBps uint64 `json:"apyBps"`
}

type activeRequest struct {
	Active bool `json:"active"`
}

type maxAPYRequest struct {
	MaxAPYBps uint64 `json:"maxApyBps"`
}

type feeRequest struct {
	FeeBps      uint64 `json:"feeBps"`
	FeeReceiver string `json:"feeReceiver"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type ownershipRequest struct {
	Owner string `json:"owner"`
}

type approveRequest struct {
	Token   string `json:"token"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

type transferRequest struct {
	Token  string `json:"token"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type mutationResponse struct {
	Receipt *core.Receipt `json:"receipt"`
	Result  interface{}   `json:"result,omitempty"`
}

type packageJSON struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	StakeToken   string `json:"stakeToken"`
	LockDuration uint64 `json:"lockDuration"`
	APYBps       uint64 `json:"apyBps"`
	MinStake     string `json:"minStake"`
	Active       bool   `json:"active"`
}

func packageFrom(pkg *farming.Package) packageJSON {
	return packageJSON{
		ID:           pkg.ID,
		Name:         pkg.Name,
		StakeToken:   pkg.StakeToken,
		LockDuration: pkg.LockDuration,
		APYBps:       pkg.APYBps,
		MinStake:     amountString(pkg.MinStake),
		Active:       pkg.Active,
	}
}

type stakeJSON struct {
	Owner        string `json:"owner"`
	Index        uint64 `json:"index"`
	PackageID    uint64 `json:"packageId"`
	Amount       string `json:"amount"`
	StakeTime    uint64 `json:"stakeTime"`
	UnlockTime   uint64 `json:"unlockTime"`
	Claimed      bool   `json:"claimed"`
	AutoCompound bool   `json:"autoCompound"`
	Compounded   string `json:"compounded"`
	Reward       string `json:"reward,omitempty"`
}

func stakeFrom(record *farming.StakeRecord, reward *big.Int) stakeJSON {
	out := stakeJSON{
		Owner:        record.Owner.String(),
		Index:        record.Index,
		PackageID:    record.PackageID,
		Amount:       amountString(record.Amount),
		StakeTime:    record.StakeTime,
		UnlockTime:   record.UnlockTime,
		Claimed:      record.Claimed,
		AutoCompound: record.AutoCompound,
		Compounded:   amountString(record.Compounded),
	}
	if reward != nil {
		out.Reward = reward.String()
	}
	return out
}

type poolJSON struct {
	RewardBalance string `json:"rewardBalance"`
	TotalStaked   string `json:"totalStaked"`
}

func poolFrom(pool *farming.Pool) poolJSON {
	return poolJSON{RewardBalance: amountString(pool.RewardBalance), TotalStaked: amountString(pool.TotalStaked)}
}

type paramsJSON struct {
	MaxAPYBps     uint64 `json:"maxApyBps"`
	FeeBps        uint64 `json:"feeBps"`
	FeeReceiver   string `json:"feeReceiver,omitempty"`
	RewardToken   string `json:"rewardToken"`
	Paused        bool   `json:"paused"`
	Owner         string `json:"owner,omitempty"`
	ModuleAddress string `json:"moduleAddress"`
}

type claimJSON struct {
	Reward    string `json:"reward"`
	Credited  string `json:"credited"`
	Fee       string `json:"fee"`
	Principal string `json:"principal"`
	Disbursed string `json:"disbursed"`
}

func claimFrom(res *farming.ClaimResult) claimJSON {
	return claimJSON{
		Reward:    amountString(res.Reward),
		Credited:  amountString(res.Credited),
		Fee:       amountString(res.Fee),
		Principal: amountString(res.Principal),
		Disbursed: amountString(res.Disbursed),
	}
}

type withdrawJSON struct {
	Principal string `json:"principal"`
	Reward    string `json:"reward"`
}

type amountJSON struct {
	Amount string `json:"amount"`
}

type toggleJSON struct {
	AutoCompound bool `json:"autoCompound"`
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
