package farming

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"cafichain/core/events"
	"cafichain/crypto"
	nativecommon "cafichain/native/common"
)

const (
	stakeToken  = "LP"
	rewardToken = "CAFI"
	genesisTime = uint64(1_700_000_000)
)

type harness struct {
	engine *Engine
	state  *mockEngineState
	ledger *mockLedger
	auth   *mockAuthority
	clock  *fixedClock
	events *events.Buffer

	module crypto.Address
	owner  crypto.Address
	user   crypto.Address
	feeTo  crypto.Address
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		state:  newMockEngineState(),
		ledger: newMockLedger(),
		auth:   &mockAuthority{},
		clock:  &fixedClock{now: genesisTime},
		events: &events.Buffer{},
		module: makeAddress(0xAA),
		owner:  makeAddress(0x01),
		user:   makeAddress(0x02),
		feeTo:  makeAddress(0x03),
	}
	h.engine = NewEngine(h.module)
	h.engine.SetState(h.state)
	h.engine.SetLedger(h.ledger)
	h.engine.SetAuthority(h.auth)
	h.engine.SetClock(h.clock)
	h.engine.SetPauses(h.state)
	h.engine.SetEmitter(h.events)
	require.NoError(t, h.engine.InitGenesis(h.owner, Params{MaxAPYBps: 5000, RewardToken: rewardToken}))

	h.ledger.set(rewardToken, h.owner, 1_000_000_000_000)
	h.ledger.set(stakeToken, h.user, 100_000_000_000)
	return h
}

func (h *harness) createPackage(t *testing.T, lock, apy uint64, minStake int64) *Package {
	t.Helper()
	pkg, err := h.engine.CreatePackage(h.owner, PackageSpec{
		Name:         "test",
		StakeToken:   stakeToken,
		LockDuration: lock,
		APYBps:       apy,
		MinStake:     big.NewInt(minStake),
		Active:       true,
	})
	require.NoError(t, err)
	return pkg
}

func (h *harness) fund(t *testing.T, amount int64) {
	t.Helper()
	_, err := h.engine.AddRewardPoolFunds(h.owner, big.NewInt(amount))
	require.NoError(t, err)
}

func (h *harness) advance(seconds uint64) { h.clock.now += seconds }

func (h *harness) poolBalance(t *testing.T) *big.Int {
	t.Helper()
	pool, err := h.engine.Pool()
	require.NoError(t, err)
	return pool.RewardBalance
}

func TestStakeAppendsRecordAndPullsPrincipal(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, 90*day, 1500, 100)

	record, err := h.engine.Stake(h.user, pkg.ID, big.NewInt(1_000), false)
	require.NoError(t, err)
	require.Equal(t, uint64(0), record.Index)
	require.Equal(t, genesisTime, record.StakeTime)
	require.Equal(t, genesisTime+90*day, record.UnlockTime)

	second, err := h.engine.Stake(h.user, pkg.ID, big.NewInt(2_000), true)
	require.NoError(t, err)
	require.Equal(t, uint64(1), second.Index)

	require.Equal(t, int64(3_000), h.ledger.balance(stakeToken, h.module).Int64())
	pool, err := h.engine.Pool()
	require.NoError(t, err)
	require.Equal(t, int64(3_000), pool.TotalStaked.Int64())

	rendered := h.events.Rendered()
	last := rendered[len(rendered)-1]
	require.Equal(t, events.TypeFarmStakeCreated, last.Type)
	require.Equal(t, "1", last.Attr("index"))
	require.Equal(t, "2000", last.Attr("amount"))
}

func TestStakeValidation(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, day, 1500, 500)

	_, err := h.engine.Stake(h.user, pkg.ID, big.NewInt(0), false)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = h.engine.Stake(h.user, pkg.ID, big.NewInt(-5), false)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = h.engine.Stake(h.user, pkg.ID, big.NewInt(499), false)
	require.ErrorIs(t, err, ErrBelowMinimumStake)
	_, err = h.engine.Stake(h.user, 9, big.NewInt(1_000), false)
	require.ErrorIs(t, err, ErrPackageNotFound)

	_, err = h.engine.SetPackageActive(h.owner, pkg.ID, false)
	require.NoError(t, err)
	_, err = h.engine.Stake(h.user, pkg.ID, big.NewInt(1_000), false)
	require.ErrorIs(t, err, ErrPackageInactive)

	for _, err := range []error{ErrInvalidAmount, ErrBelowMinimumStake, ErrPackageNotFound, ErrPackageInactive} {
		require.Equal(t, KindValidation, Classify(err))
	}
}

func TestStakeLedgerFailureLeavesNoRecord(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, day, 1500, 1)
	poor := makeAddress(0x44)

	_, err := h.engine.Stake(poor, pkg.ID, big.NewInt(10), false)
	require.ErrorIs(t, err, errMockInsufficientBalance)

	count, err := h.state.FarmStakeCount(poor)
	require.NoError(t, err)
	require.Zero(t, count)
	pool, err := h.engine.Pool()
	require.NoError(t, err)
	require.Zero(t, pool.TotalStaked.Sign())
}

func TestWithdrawRoundTripWithZeroRewardPackage(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, 30*day, 0, 0)
	before := h.ledger.balance(stakeToken, h.user)

	_, err := h.engine.Stake(h.user, pkg.ID, big.NewInt(1_000), false)
	require.NoError(t, err)

	_, err = h.engine.Withdraw(h.user, 0)
	require.ErrorIs(t, err, ErrStillLocked)
	require.Equal(t, KindPrecondition, Classify(err))

	h.advance(30 * day)
	result, err := h.engine.Withdraw(h.user, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1_000), result.Principal.Int64())
	require.Zero(t, result.Reward.Sign())
	require.Zero(t, h.ledger.balance(stakeToken, h.user).Cmp(before))

	view, err := h.engine.StakeInfo(h.user, 0)
	require.NoError(t, err)
	require.True(t, view.Record.Claimed)
	require.Zero(t, view.Record.Amount.Sign())

	_, err = h.engine.Withdraw(h.user, 0)
	require.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestWithdrawPaysPrincipalAndFinalReward(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, 90*day, 1500, 0)
	h.fund(t, 100_000)

	_, err := h.engine.Stake(h.user, pkg.ID, big.NewInt(1_000_000), false)
	require.NoError(t, err)
	h.advance(90 * day)

	result, err := h.engine.Unstake(h.user, 0)
	require.NoError(t, err)
	require.Equal(t, int64(36_986), result.Reward.Int64())
	require.Equal(t, int64(36_986), h.ledger.balance(rewardToken, h.user).Int64())
	require.Equal(t, int64(100_000-36_986), h.poolBalance(t).Int64())

	rendered := h.events.Rendered()
	last := rendered[len(rendered)-1]
	require.Equal(t, events.TypeFarmWithdrawn, last.Type)
	require.Equal(t, "1000000", last.Attr("principal"))
	require.Equal(t, "36986", last.Attr("reward"))
}

func TestWithdrawAfterCompoundPaysCompoundedAmount(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, 30*day, 1500, 0)
	h.fund(t, 100_000_000)
	stakeBefore := h.ledger.balance(stakeToken, h.user)

	principal := big.NewInt(1_000_000_000)
	_, err := h.engine.Stake(h.user, pkg.ID, principal, true)
	require.NoError(t, err)

	h.advance(30 * day)
	record, err := h.engine.CompoundReward(h.user, 0)
	require.NoError(t, err)
	r1 := accrue(principal, 1500, 30*day)
	require.Zero(t, record.Compounded.Cmp(r1))

	h.advance(30 * day)
	result, err := h.engine.Withdraw(h.user, 0)
	require.NoError(t, err)
	r2 := accrue(new(big.Int).Add(principal, r1), 1500, 30*day)
	payout := new(big.Int).Add(r2, r1)
	require.Equal(t, int64(24_809_532), payout.Int64())
	require.Zero(t, result.Principal.Cmp(principal))
	require.Zero(t, result.Reward.Cmp(payout))

	require.Zero(t, h.ledger.balance(stakeToken, h.user).Cmp(stakeBefore))
	require.Zero(t, h.ledger.balance(rewardToken, h.user).Cmp(payout))
	// The compounded amount is debited from the pool at compound time and again on withdraw.
	require.Equal(t, int64(100_000_000-12_328_767-24_809_532), h.poolBalance(t).Int64())

	pool, err := h.engine.Pool()
	require.NoError(t, err)
	require.Zero(t, pool.TotalStaked.Sign())

	rendered := h.events.Rendered()
	last := rendered[len(rendered)-1]
	require.Equal(t, events.TypeFarmWithdrawn, last.Type)
	require.Equal(t, "24809532", last.Attr("reward"))
}

func TestCompoundRejectedWhenPoolInsufficient(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, 30*day, 1500, 0)
	h.fund(t, 10)

	_, err := h.engine.Stake(h.user, pkg.ID, big.NewInt(1_000_000_000), true)
	require.NoError(t, err)
	h.advance(30 * day)
	emitted := len(h.events.Rendered())

	_, err = h.engine.CompoundReward(h.user, 0)
	require.ErrorIs(t, err, ErrInsufficientRewardPool)
	require.Equal(t, KindSolvency, Classify(err))
	require.Equal(t, int64(10), h.poolBalance(t).Int64())
	require.Len(t, h.events.Rendered(), emitted)

	view, err := h.engine.StakeInfo(h.user, 0)
	require.NoError(t, err)
	require.Equal(t, genesisTime, view.Record.StakeTime)
	require.Equal(t, genesisTime+30*day, view.Record.UnlockTime)
	require.Zero(t, view.Record.Compounded.Sign())
	require.Equal(t, int64(1_000_000_000), view.Record.Amount.Int64())
}

func TestLockDurationCannotWrapUnlockTime(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.CreatePackage(h.owner, PackageSpec{StakeToken: stakeToken, LockDuration: math.MaxUint64, APYBps: 100, Active: true})
	require.ErrorIs(t, err, ErrLockTooLong)
	require.Equal(t, KindValidation, Classify(err))
	_, err = h.engine.CreatePackage(h.owner, PackageSpec{StakeToken: stakeToken, LockDuration: MaxLockDuration + 1, APYBps: 100, Active: true})
	require.ErrorIs(t, err, ErrLockTooLong)

	pkg := h.createPackage(t, MaxLockDuration, 1500, 0)
	_, err = h.engine.UpdatePackage(h.owner, pkg.ID, PackageSpec{LockDuration: math.MaxUint64, APYBps: 1500, Active: true})
	require.ErrorIs(t, err, ErrLockTooLong)

	record, err := h.engine.Stake(h.user, pkg.ID, big.NewInt(1_000), false)
	require.NoError(t, err)
	require.Greater(t, record.UnlockTime, record.StakeTime)
	_, err = h.engine.Withdraw(h.user, record.Index)
	require.ErrorIs(t, err, ErrStillLocked)

	// Near the end of the timestamp range the sum itself would wrap.
	h.clock.now = math.MaxUint64 - day
	calls := h.ledger.calls
	_, err = h.engine.Stake(h.user, pkg.ID, big.NewInt(1_000), false)
	require.ErrorIs(t, err, ErrLockTooLong)
	require.Equal(t, calls, h.ledger.calls, "no transfer on rejected stake")
	count, err := h.state.FarmStakeCount(h.user)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
}

func TestCompoundRejectsWrappingRenewal(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, 30*day, 1500, 0)
	h.fund(t, 100_000_000)

	_, err := h.engine.Stake(h.user, pkg.ID, big.NewInt(1_000), true)
	require.NoError(t, err)
	h.clock.now = math.MaxUint64 - day

	_, err = h.engine.CompoundReward(h.user, 0)
	require.ErrorIs(t, err, ErrLockTooLong)
	view, err := h.engine.StakeInfo(h.user, 0)
	require.NoError(t, err)
	require.Equal(t, genesisTime+30*day, view.Record.UnlockTime)
	require.Zero(t, view.Record.Compounded.Sign())
	require.Equal(t, int64(100_000_000), h.poolBalance(t).Int64())
}

func TestClaimRewardCreditsPendingAndDebitsPool(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, 90*day, 1500, 0)
	h.fund(t, 100_000)
	stakeBefore := h.ledger.balance(stakeToken, h.user)

	_, err := h.engine.Stake(h.user, pkg.ID, big.NewInt(1_000_000), false)
	require.NoError(t, err)

	_, err = h.engine.ClaimReward(h.user, 0)
	require.ErrorIs(t, err, ErrStillLocked)

	h.advance(90 * day)
	reward, err := h.engine.CalculateReward(h.user, 0)
	require.NoError(t, err)
	require.Equal(t, int64(36_986), reward.Int64())

	result, err := h.engine.ClaimReward(h.user, 0)
	require.NoError(t, err)
	require.Equal(t, int64(36_986), result.Credited.Int64())
	require.Equal(t, int64(36_986), result.Disbursed.Int64())
	require.Nil(t, result.Fee)

	require.Equal(t, int64(100_000-36_986), h.poolBalance(t).Int64())
	pending, err := h.engine.PendingRewards(h.user)
	require.NoError(t, err)
	require.Equal(t, int64(36_986), pending.Int64())
	require.Zero(t, h.ledger.balance(stakeToken, h.user).Cmp(stakeBefore), "principal returned on claim")

	paid, err := h.engine.WithdrawRewards(h.user)
	require.NoError(t, err)
	require.Equal(t, int64(36_986), paid.Int64())
	require.Equal(t, int64(36_986), h.ledger.balance(rewardToken, h.user).Int64())

	_, err = h.engine.WithdrawRewards(h.user)
	require.ErrorIs(t, err, ErrNothingToWithdraw)
}

func TestClaimedStakeRejectsEveryOperation(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, day, 1500, 0)
	h.fund(t, 1_000_000)

	_, err := h.engine.Stake(h.user, pkg.ID, big.NewInt(1_000_000), true)
	require.NoError(t, err)
	h.advance(day)
	_, err = h.engine.ClaimReward(h.user, 0)
	require.NoError(t, err)

	_, err = h.engine.ClaimReward(h.user, 0)
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	_, err = h.engine.CompoundReward(h.user, 0)
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	_, err = h.engine.ToggleAutoStake(h.user, 0)
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	_, err = h.engine.Withdraw(h.user, 0)
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	_, err = h.engine.CalculateReward(h.user, 0)
	require.ErrorIs(t, err, ErrAlreadyClaimed)

	_, err = h.engine.ClaimReward(h.user, 7)
	require.ErrorIs(t, err, ErrStakeNotFound)
}

func TestClaimRejectedWhenPoolInsufficient(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, 90*day, 1500, 0)
	h.fund(t, 10)

	_, err := h.engine.Stake(h.user, pkg.ID, big.NewInt(1_000_000), false)
	require.NoError(t, err)
	h.advance(90 * day)
	calls := h.ledger.calls

	_, err = h.engine.ClaimReward(h.user, 0)
	require.ErrorIs(t, err, ErrInsufficientRewardPool)
	require.Equal(t, KindSolvency, Classify(err))
	require.Equal(t, calls, h.ledger.calls, "no transfer on rejected claim")
	require.Equal(t, int64(10), h.poolBalance(t).Int64())

	view, err := h.engine.StakeInfo(h.user, 0)
	require.NoError(t, err)
	require.False(t, view.Record.Claimed)
	require.Equal(t, int64(1_000_000), view.Record.Amount.Int64())
}

func TestCompoundThenClaimMatchesTwoSimpleIntervals(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, 30*day, 1500, 0)
	h.fund(t, 100_000_000)
	_, err := h.engine.SetFeeParameters(h.owner, 100, h.feeTo)
	require.NoError(t, err)

	principal := big.NewInt(1_000_000_000)
	_, err = h.engine.Stake(h.user, pkg.ID, principal, true)
	require.NoError(t, err)

	h.advance(10 * day)
	_, err = h.engine.CompoundReward(h.user, 0)
	require.ErrorIs(t, err, ErrStillLocked)

	// A later package change must not alter the renewal duration.
	_, err = h.engine.UpdatePackage(h.owner, pkg.ID, PackageSpec{LockDuration: 7 * day, APYBps: 1500, Active: true})
	require.NoError(t, err)

	h.advance(20 * day)
	record, err := h.engine.CompoundReward(h.user, 0)
	require.NoError(t, err)
	r1 := accrue(principal, 1500, 30*day)
	require.Equal(t, int64(12_328_767), r1.Int64())
	require.Zero(t, record.Compounded.Cmp(r1))
	require.Equal(t, h.clock.now, record.StakeTime)
	require.Equal(t, h.clock.now+30*day, record.UnlockTime)
	require.Equal(t, int64(100_000_000-12_328_767), h.poolBalance(t).Int64())

	h.advance(30 * day)
	result, err := h.engine.ClaimReward(h.user, 0)
	require.NoError(t, err)
	r2 := accrue(new(big.Int).Add(principal, r1), 1500, 30*day)
	require.Equal(t, int64(12_480_765), r2.Int64())
	require.Zero(t, result.Reward.Cmp(r2))

	total := new(big.Int).Add(r1, r2)
	require.Equal(t, int64(24_809_532), total.Int64())
	require.Zero(t, result.Disbursed.Cmp(total))
	require.Equal(t, int64(248_095), result.Fee.Int64())
	require.Equal(t, int64(24_561_437), result.Credited.Int64())

	userPending, err := h.engine.PendingRewards(h.user)
	require.NoError(t, err)
	feePending, err := h.engine.PendingRewards(h.feeTo)
	require.NoError(t, err)
	require.Zero(t, new(big.Int).Add(userPending, feePending).Cmp(total))
	require.Equal(t, int64(100_000_000-12_328_767-24_809_532), h.poolBalance(t).Int64())
}

func TestCompoundRequiresAutoCompound(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, day, 1500, 0)
	h.fund(t, 1_000_000)
	_, err := h.engine.Stake(h.user, pkg.ID, big.NewInt(1_000_000), false)
	require.NoError(t, err)
	h.advance(day)

	_, err = h.engine.CompoundReward(h.user, 0)
	require.ErrorIs(t, err, ErrAutoCompoundOff)

	enabled, err := h.engine.ToggleAutoStake(h.user, 0)
	require.NoError(t, err)
	require.True(t, enabled)
	_, err = h.engine.CompoundReward(h.user, 0)
	require.NoError(t, err)
}

func TestToggleAutoStakeTwiceRestoresFlag(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, day, 1500, 0)
	_, err := h.engine.Stake(h.user, pkg.ID, big.NewInt(10), false)
	require.NoError(t, err)

	first, err := h.engine.ToggleAutoStake(h.user, 0)
	require.NoError(t, err)
	second, err := h.engine.ToggleAutoStake(h.user, 0)
	require.NoError(t, err)
	require.True(t, first)
	require.False(t, second)

	view, err := h.engine.StakeInfo(h.user, 0)
	require.NoError(t, err)
	require.False(t, view.Record.AutoCompound)
}

func TestPauseBlocksUserMutationsExceptWithdrawRewards(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, day, 1500, 0)
	h.fund(t, 1_000_000)
	_, err := h.engine.Stake(h.user, pkg.ID, big.NewInt(1_000_000), true)
	require.NoError(t, err)
	_, err = h.engine.Stake(h.user, pkg.ID, big.NewInt(1_000_000), true)
	require.NoError(t, err)
	h.advance(day)
	_, err = h.engine.ClaimReward(h.user, 0)
	require.NoError(t, err)

	require.ErrorIs(t, h.engine.Pause(h.user), ErrUnauthorized)
	require.NoError(t, h.engine.Pause(h.owner))
	require.ErrorIs(t, h.engine.Pause(h.owner), ErrAlreadyInPauseState)

	_, err = h.engine.Stake(h.user, pkg.ID, big.NewInt(1), false)
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
	_, err = h.engine.ClaimReward(h.user, 1)
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
	_, err = h.engine.CompoundReward(h.user, 1)
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
	_, err = h.engine.ToggleAutoStake(h.user, 1)
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
	_, err = h.engine.Withdraw(h.user, 1)
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
	require.Equal(t, KindPaused, Classify(err))

	paid, err := h.engine.WithdrawRewards(h.user)
	require.NoError(t, err)
	require.Positive(t, paid.Sign())

	require.NoError(t, h.engine.Unpause(h.owner))
	_, err = h.engine.Withdraw(h.user, 1)
	require.NoError(t, err)
}

func TestReentrantCallFromLedgerHookIsRejected(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, day, 1500, 0)
	h.fund(t, 1_000_000)
	_, err := h.engine.Stake(h.user, pkg.ID, big.NewInt(1_000_000), false)
	require.NoError(t, err)
	h.advance(day)

	var reentryErrs []error
	h.ledger.hook = func(_ string, _ crypto.Address, to crypto.Address, _ *big.Int) {
		if !to.Equal(h.user) {
			return
		}
		_, err := h.engine.Withdraw(h.user, 0)
		reentryErrs = append(reentryErrs, err)
		_, err = h.engine.WithdrawRewards(h.user)
		reentryErrs = append(reentryErrs, err)
	}

	result, err := h.engine.Withdraw(h.user, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), result.Principal.Int64())
	require.NotEmpty(t, reentryErrs)
	for _, reErr := range reentryErrs {
		require.True(t, errors.Is(reErr, ErrReentrantCall), "got %v", reErr)
	}

	h.ledger.hook = nil
	_, err = h.engine.Withdraw(h.user, 0)
	require.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestAdministrationRequiresOwner(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.CreatePackage(h.user, PackageSpec{StakeToken: stakeToken, LockDuration: day})
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, KindAuthorization, Classify(err))
	_, err = h.engine.AddRewardPoolFunds(h.user, big.NewInt(1))
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = h.engine.SetFeeParameters(h.user, 10, h.feeTo)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = h.engine.SetMaxAPY(h.user, 100)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, h.engine.TransferOwnership(h.user, h.user), ErrUnauthorized)
}

func TestPackageConfigurationBounds(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.CreatePackage(h.owner, PackageSpec{StakeToken: stakeToken, LockDuration: day, APYBps: 5001})
	require.ErrorIs(t, err, ErrAPYAboveCap)
	_, err = h.engine.CreatePackage(h.owner, PackageSpec{StakeToken: stakeToken, APYBps: 100})
	require.ErrorIs(t, err, ErrInvalidLock)
	_, err = h.engine.CreatePackage(h.owner, PackageSpec{StakeToken: " ", LockDuration: day})
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = h.engine.SetMaxAPY(h.owner, 10_001)
	require.ErrorIs(t, err, ErrInvalidAPYCap)
	_, err = h.engine.SetMaxAPY(h.owner, 10_000)
	require.NoError(t, err)

	pkg := h.createPackage(t, day, 9_000, 0)
	updated, err := h.engine.UpdateAPY(h.owner, pkg.ID, 10_000)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), updated.APYBps)
	_, err = h.engine.UpdateAPY(h.owner, 42, 1)
	require.ErrorIs(t, err, ErrPackageNotFound)

	_, err = h.engine.SetFeeParameters(h.owner, 10_001, h.feeTo)
	require.ErrorIs(t, err, ErrInvalidFee)
	_, err = h.engine.SetFeeParameters(h.owner, 50, crypto.Address{})
	require.ErrorIs(t, err, ErrZeroAddress)

	packages, err := h.engine.Packages()
	require.NoError(t, err)
	require.Len(t, packages, 1)
	require.Equal(t, stakeToken, packages[0].StakeToken)
}

func TestTransferOwnershipMovesAdminRights(t *testing.T) {
	h := newHarness(t)
	next := makeAddress(0x55)

	require.ErrorIs(t, h.engine.TransferOwnership(h.owner, crypto.Address{}), ErrZeroAddress)
	require.NoError(t, h.engine.TransferOwnership(h.owner, next))
	_, err := h.engine.SetMaxAPY(h.owner, 100)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = h.engine.SetMaxAPY(next, 100)
	require.NoError(t, err)
}

func TestInitGenesisRunsOnce(t *testing.T) {
	h := newHarness(t)
	err := h.engine.InitGenesis(h.owner, Params{MaxAPYBps: 100, RewardToken: rewardToken})
	require.ErrorIs(t, err, ErrAlreadyInitialised)
}

func TestStakesListsTerminalRecords(t *testing.T) {
	h := newHarness(t)
	pkg := h.createPackage(t, day, 1500, 0)
	h.fund(t, 1_000_000)
	for i := 0; i < 3; i++ {
		_, err := h.engine.Stake(h.user, pkg.ID, big.NewInt(1_000_000), false)
		require.NoError(t, err)
	}
	h.advance(day)
	_, err := h.engine.Withdraw(h.user, 1)
	require.NoError(t, err)

	views, err := h.engine.Stakes(h.user)
	require.NoError(t, err)
	require.Len(t, views, 3)
	require.False(t, views[0].Record.Claimed)
	require.Positive(t, views[0].Reward.Sign())
	require.True(t, views[1].Record.Claimed)
	require.Zero(t, views[1].Reward.Sign())
	require.Equal(t, uint64(2), views[2].Record.Index)
}
