package events

import (
	"math/big"
	"strconv"

	"cafichain/core/types"
	"cafichain/crypto"
)

const (
	// TypeFarmStakeCreated is emitted when a new stake record is appended.
	TypeFarmStakeCreated = "farm.stakeCreated"
	// TypeFarmRewardClaimed is emitted when a stake is claimed and its reward
	// credited to the pending-withdrawal ledger.
	TypeFarmRewardClaimed = "farm.rewardClaimed"
	// TypeFarmAutoCompounded is emitted when a reward is reinvested.
	TypeFarmAutoCompounded = "farm.autoCompounded"
	// TypeFarmAutoStakeToggled is emitted when auto-compounding is flipped.
	TypeFarmAutoStakeToggled = "farm.autoStakeToggled"
	// TypeFarmRewardPoolFunded is emitted when the owner tops up the pool.
	TypeFarmRewardPoolFunded = "farm.rewardPoolFunded"
	// TypeFarmRewardsWithdrawn is emitted when pending rewards are paid out.
	TypeFarmRewardsWithdrawn = "farm.rewardsWithdrawn"
	// TypeFarmPackageConfigured is emitted on package creation and update.
	TypeFarmPackageConfigured = "farm.packageConfigured"
	// TypeFarmAPYUpdated is emitted when a package APY changes.
	TypeFarmAPYUpdated = "farm.apyUpdated"
	// TypeFarmFeeParametersUpdated is emitted when fee settings change.
	TypeFarmFeeParametersUpdated = "farm.feeParametersUpdated"
	// TypeFarmWithdrawn is emitted when a stake is unstaked.
	TypeFarmWithdrawn = "farm.withdrawn"
	// TypeFarmPaused is emitted when the module pause toggle changes.
	TypeFarmPaused = "farm.paused"
	// TypeFarmOwnershipTransferred is emitted when the owner role moves.
	TypeFarmOwnershipTransferred = "farm.ownershipTransferred"
	// TypeFarmMaxAPYUpdated is emitted when the APY cap changes.
	TypeFarmMaxAPYUpdated = "farm.maxApyUpdated"
)

// FarmStakeCreated captures a freshly appended stake record.
type FarmStakeCreated struct {
	Account      crypto.Address
	Index        uint64
	PackageID    uint64
	Amount       *big.Int
	UnlockTime   uint64
	AutoCompound bool
}

// EventType satisfies the Event interface.
func (FarmStakeCreated) EventType() string { return TypeFarmStakeCreated }

// Event converts the structured payload into a broadcastable event.
func (e FarmStakeCreated) Event() *types.Event {
	return &types.Event{Type: TypeFarmStakeCreated, Attributes: map[string]string{
		"account":      formatAddress(e.Account),
		"index":        formatUint(e.Index),
		"packageId":    formatUint(e.PackageID),
		"amount":       formatAmount(e.Amount),
		"unlockTime":   formatUint(e.UnlockTime),
		"autoCompound": strconv.FormatBool(e.AutoCompound),
	}}
}

// FarmRewardClaimed captures a claim. When a fee split applied, Fee and
// FeeReceiver are populated and Credited is the net amount.
type FarmRewardClaimed struct {
	Account     crypto.Address
	Index       uint64
	Reward      *big.Int
	Compounded  *big.Int
	Fee         *big.Int
	FeeReceiver crypto.Address
	Credited    *big.Int
	Principal   *big.Int
}

// EventType satisfies the Event interface.
func (FarmRewardClaimed) EventType() string { return TypeFarmRewardClaimed }

// Event converts the structured payload into a broadcastable event.
func (e FarmRewardClaimed) Event() *types.Event {
	attrs := map[string]string{
		"account":   formatAddress(e.Account),
		"index":     formatUint(e.Index),
		"reward":    formatAmount(e.Reward),
		"credited":  formatAmount(e.Credited),
		"principal": formatAmount(e.Principal),
	}
	if e.Compounded != nil && e.Compounded.Sign() > 0 {
		attrs["compounded"] = formatAmount(e.Compounded)
	}
	if e.Fee != nil {
		attrs["fee"] = formatAmount(e.Fee)
		if receiver := formatAddress(e.FeeReceiver); receiver != "" {
			attrs["feeReceiver"] = receiver
		}
	}
	return &types.Event{Type: TypeFarmRewardClaimed, Attributes: attrs}
}

// FarmAutoCompounded captures a reinvested reward and the renewed lock.
type FarmAutoCompounded struct {
	Account    crypto.Address
	Index      uint64
	Reward     *big.Int
	Compounded *big.Int
	UnlockTime uint64
}

// EventType satisfies the Event interface.
func (FarmAutoCompounded) EventType() string { return TypeFarmAutoCompounded }

// Event converts the structured payload into a broadcastable event.
func (e FarmAutoCompounded) Event() *types.Event {
	return &types.Event{Type: TypeFarmAutoCompounded, Attributes: map[string]string{
		"account":    formatAddress(e.Account),
		"index":      formatUint(e.Index),
		"reward":     formatAmount(e.Reward),
		"compounded": formatAmount(e.Compounded),
		"unlockTime": formatUint(e.UnlockTime),
	}}
}

// FarmAutoStakeToggled captures the new auto-compound flag of a stake.
type FarmAutoStakeToggled struct {
	Account crypto.Address
	Index   uint64
	Enabled bool
}

// EventType satisfies the Event interface.
func (FarmAutoStakeToggled) EventType() string { return TypeFarmAutoStakeToggled }

// Event converts the structured payload into a broadcastable event.
func (e FarmAutoStakeToggled) Event() *types.Event {
	return &types.Event{Type: TypeFarmAutoStakeToggled, Attributes: map[string]string{
		"account": formatAddress(e.Account),
		"index":   formatUint(e.Index),
		"enabled": strconv.FormatBool(e.Enabled),
	}}
}

// FarmRewardPoolFunded captures an owner deposit into the reward pool.
type FarmRewardPoolFunded struct {
	Account crypto.Address
	Amount  *big.Int
	Balance *big.Int
}

// EventType satisfies the Event interface.
func (FarmRewardPoolFunded) EventType() string { return TypeFarmRewardPoolFunded }

// Event converts the structured payload into a broadcastable event.
func (e FarmRewardPoolFunded) Event() *types.Event {
	return &types.Event{Type: TypeFarmRewardPoolFunded, Attributes: map[string]string{
		"account": formatAddress(e.Account),
		"amount":  formatAmount(e.Amount),
		"balance": formatAmount(e.Balance),
	}}
}

// FarmRewardsWithdrawn captures a pull-pattern payout.
type FarmRewardsWithdrawn struct {
	Account crypto.Address
	Token   string
	Amount  *big.Int
}

// EventType satisfies the Event interface.
func (FarmRewardsWithdrawn) EventType() string { return TypeFarmRewardsWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e FarmRewardsWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeFarmRewardsWithdrawn, Attributes: map[string]string{
		"account": formatAddress(e.Account),
		"token":   normalizeAsset(e.Token),
		"amount":  formatAmount(e.Amount),
	}}
}

// FarmPackageConfigured captures a package creation or update.
type FarmPackageConfigured struct {
	Account      crypto.Address
	PackageID    uint64
	Name         string
	StakeToken   string
	LockDuration uint64
	APYBps       uint64
	MinStake     *big.Int
	Active       bool
	Created      bool
}

// EventType satisfies the Event interface.
func (FarmPackageConfigured) EventType() string { return TypeFarmPackageConfigured }

// Event converts the structured payload into a broadcastable event.
func (e FarmPackageConfigured) Event() *types.Event {
	attrs := map[string]string{
		"account":      formatAddress(e.Account),
		"packageId":    formatUint(e.PackageID),
		"stakeToken":   normalizeAsset(e.StakeToken),
		"lockDuration": formatUint(e.LockDuration),
		"apyBps":       formatUint(e.APYBps),
		"minStake":     formatAmount(e.MinStake),
		"active":       strconv.FormatBool(e.Active),
		"created":      strconv.FormatBool(e.Created),
	}
	if e.Name != "" {
		attrs["name"] = e.Name
	}
	return &types.Event{Type: TypeFarmPackageConfigured, Attributes: attrs}
}

// FarmAPYUpdated captures an APY change on a package.
type FarmAPYUpdated struct {
	Account   crypto.Address
	PackageID uint64
	OldAPYBps uint64
	NewAPYBps uint64
}

// EventType satisfies the Event interface.
func (FarmAPYUpdated) EventType() string { return TypeFarmAPYUpdated }

// Event converts the structured payload into a broadcastable event.
func (e FarmAPYUpdated) Event() *types.Event {
	return &types.Event{Type: TypeFarmAPYUpdated, Attributes: map[string]string{
		"account":   formatAddress(e.Account),
		"packageId": formatUint(e.PackageID),
		"oldApyBps": formatUint(e.OldAPYBps),
		"apyBps":    formatUint(e.NewAPYBps),
	}}
}

// FarmMaxAPYUpdated captures a change to the APY cap.
type FarmMaxAPYUpdated struct {
	Account   crypto.Address
	MaxAPYBps uint64
}

// EventType satisfies the Event interface.
func (FarmMaxAPYUpdated) EventType() string { return TypeFarmMaxAPYUpdated }

// Event converts the structured payload into a broadcastable event.
func (e FarmMaxAPYUpdated) Event() *types.Event {
	return &types.Event{Type: TypeFarmMaxAPYUpdated, Attributes: map[string]string{
		"account":   formatAddress(e.Account),
		"maxApyBps": formatUint(e.MaxAPYBps),
	}}
}

// FarmFeeParametersUpdated captures the auto-compound fee settings.
type FarmFeeParametersUpdated struct {
	Account     crypto.Address
	FeeBps      uint64
	FeeReceiver crypto.Address
}

// EventType satisfies the Event interface.
func (FarmFeeParametersUpdated) EventType() string { return TypeFarmFeeParametersUpdated }

// Event converts the structured payload into a broadcastable event.
func (e FarmFeeParametersUpdated) Event() *types.Event {
	return &types.Event{Type: TypeFarmFeeParametersUpdated, Attributes: map[string]string{
		"account":     formatAddress(e.Account),
		"feeBps":      formatUint(e.FeeBps),
		"feeReceiver": formatAddress(e.FeeReceiver),
	}}
}

// FarmWithdrawn captures a full unstake with its principal and final reward.
type FarmWithdrawn struct {
	Account    crypto.Address
	Index      uint64
	StakeToken string
	Principal  *big.Int
	Reward     *big.Int
}

// EventType satisfies the Event interface.
func (FarmWithdrawn) EventType() string { return TypeFarmWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e FarmWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeFarmWithdrawn, Attributes: map[string]string{
		"account":    formatAddress(e.Account),
		"index":      formatUint(e.Index),
		"stakeToken": normalizeAsset(e.StakeToken),
		"principal":  formatAmount(e.Principal),
		"reward":     formatAmount(e.Reward),
	}}
}

// FarmPaused captures a pause toggle.
type FarmPaused struct {
	Account crypto.Address
	Paused  bool
}

// EventType satisfies the Event interface.
func (FarmPaused) EventType() string { return TypeFarmPaused }

// Event converts the structured payload into a broadcastable event.
func (e FarmPaused) Event() *types.Event {
	return &types.Event{Type: TypeFarmPaused, Attributes: map[string]string{
		"account": formatAddress(e.Account),
		"paused":  strconv.FormatBool(e.Paused),
	}}
}

// FarmOwnershipTransferred captures an owner handover.
type FarmOwnershipTransferred struct {
	Previous crypto.Address
	Owner    crypto.Address
}

// EventType satisfies the Event interface.
func (FarmOwnershipTransferred) EventType() string { return TypeFarmOwnershipTransferred }

// Event converts the structured payload into a broadcastable event.
func (e FarmOwnershipTransferred) Event() *types.Event {
	return &types.Event{Type: TypeFarmOwnershipTransferred, Attributes: map[string]string{
		"account":  formatAddress(e.Previous),
		"newOwner": formatAddress(e.Owner),
	}}
}
