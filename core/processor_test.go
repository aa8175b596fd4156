package core

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cafichain/core/events"
	"cafichain/crypto"
	"cafichain/native/farming"
	"cafichain/storage"
)

type recordingSink struct {
	receipts []*Receipt
	err      error
}

func (s *recordingSink) Publish(_ context.Context, r *Receipt) error {
	s.receipts = append(s.receipts, r)
	return s.err
}

func addr(b byte) crypto.Address {
	raw := make([]byte, 20)
	raw[19] = b
	return crypto.MustNewAddress(crypto.CafiPrefix, raw)
}

type fixture struct {
	proc  *Processor
	clock *FixedClock
	sink  *recordingSink
	db    *storage.MemDB
	owner crypto.Address
	user  crypto.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock: NewFixedClock(time.Unix(1_700_000_000, 0)),
		sink:  &recordingSink{},
		db:    storage.NewMemDB(),
		owner: addr(1),
		user:  addr(2),
	}
	proc, err := NewProcessor(f.db, f.clock, WithSink(f.sink), WithMetrics(nil))
	require.NoError(t, err)
	f.proc = proc

	_, err = proc.Execute(context.Background(), "genesis", f.owner, func(tx *Tx) error {
		if err := tx.State.RegisterToken("CAFI", "Cafi", 18); err != nil {
			return err
		}
		if err := tx.State.RegisterToken("LP", "Liquidity", 18); err != nil {
			return err
		}
		if err := tx.Bank.Mint("CAFI", f.owner, big.NewInt(1_000_000_000_000)); err != nil {
			return err
		}
		if err := tx.Bank.Mint("LP", f.user, big.NewInt(10_000_000_000)); err != nil {
			return err
		}
		if err := tx.Farming.InitGenesis(f.owner, farming.Params{MaxAPYBps: 5000, RewardToken: "CAFI"}); err != nil {
			return err
		}
		if _, err := tx.Farming.CreatePackage(f.owner, farming.PackageSpec{
			Name: "thirty", StakeToken: "LP", LockDuration: 30 * 86400, APYBps: 1500, MinStake: big.NewInt(1), Active: true,
		}); err != nil {
			return err
		}
		module := tx.Farming.ModuleAddress()
		if err := tx.Bank.Approve("CAFI", f.owner, module, big.NewInt(1_000_000_000)); err != nil {
			return err
		}
		_, err := tx.Farming.AddRewardPoolFunds(f.owner, big.NewInt(1_000_000_000))
		return err
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) stake(t *testing.T, amount int64) (*Receipt, error) {
	t.Helper()
	return f.proc.Execute(context.Background(), "stake", f.user, func(tx *Tx) error {
		if err := tx.Bank.Approve("LP", f.user, tx.Farming.ModuleAddress(), big.NewInt(amount)); err != nil {
			return err
		}
		_, err := tx.Farming.Stake(f.user, 0, big.NewInt(amount), false)
		return err
	})
}

func TestExecuteCommitsAndPublishesReceipt(t *testing.T) {
	f := newFixture(t)
	receipt, err := f.stake(t, 1_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(2), receipt.Sequence)
	require.Equal(t, "stake", receipt.Operation)
	require.Equal(t, f.user.String(), receipt.Caller)
	require.Len(t, receipt.ID, 64)

	types := make([]string, 0, len(receipt.Events))
	for _, evt := range receipt.Events {
		types = append(types, evt.Type)
	}
	require.Equal(t, []string{events.TypeApproval, events.TypeTransfer, events.TypeFarmStakeCreated}, types)
	require.Len(t, f.sink.receipts, 2)
	require.Equal(t, receipt, f.sink.receipts[1])
	require.Zero(t, f.proc.state.Dirty())
}

func TestFailedCallLeavesStateEventsAndSequenceUntouched(t *testing.T) {
	f := newFixture(t)
	before := f.db.Len()

	_, err := f.proc.Execute(context.Background(), "stake", f.user, func(tx *Tx) error {
		if err := tx.Bank.Approve("LP", f.user, tx.Farming.ModuleAddress(), big.NewInt(10)); err != nil {
			return err
		}
		_, err := tx.Farming.Stake(f.user, 0, big.NewInt(1_000_000), false)
		return err
	})
	require.Error(t, err)
	require.Equal(t, farming.KindPrecondition, farming.Classify(err))
	require.Equal(t, before, f.db.Len())
	require.Len(t, f.sink.receipts, 1)
	require.Zero(t, f.proc.state.Dirty())

	receipt, err := f.stake(t, 1_000)
	require.NoError(t, err)
	require.Equal(t, uint64(2), receipt.Sequence)
}

func TestReentrantTransferHookAbortsWholeCall(t *testing.T) {
	f := newFixture(t)
	var engine *farming.Engine
	require.NoError(t, f.proc.View(context.Background(), func(tx *Tx) error {
		engine = tx.Farming
		return nil
	}))
	f.proc.SetTransferHook(func(evt events.Transfer) error {
		if !evt.To.Equal(f.proc.ModuleAddress()) {
			return nil
		}
		_, err := engine.WithdrawRewards(f.user)
		return err
	})

	_, err := f.stake(t, 1_000)
	require.ErrorIs(t, err, farming.ErrReentrantCall)

	f.proc.SetTransferHook(nil)
	require.NoError(t, f.proc.View(context.Background(), func(tx *Tx) error {
		stakes, err := tx.Farming.Stakes(f.user)
		require.NoError(t, err)
		require.Empty(t, stakes)
		bal, err := tx.Bank.BalanceOf("LP", f.user)
		require.NoError(t, err)
		require.Equal(t, big.NewInt(10_000_000_000), bal)
		return nil
	}))
}

func TestSwallowedReentrancyLetsOuterCallComplete(t *testing.T) {
	f := newFixture(t)
	var engine *farming.Engine
	require.NoError(t, f.proc.View(context.Background(), func(tx *Tx) error {
		engine = tx.Farming
		return nil
	}))
	var reentryErr error
	f.proc.SetTransferHook(func(evt events.Transfer) error {
		if evt.To.Equal(f.proc.ModuleAddress()) && evt.Token == "LP" {
			_, reentryErr = engine.Stake(f.user, 0, big.NewInt(1), false)
		}
		return nil
	})

	receipt, err := f.stake(t, 5_000)
	require.NoError(t, err)
	require.ErrorIs(t, reentryErr, farming.ErrReentrantCall)
	require.NotEmpty(t, receipt.Events)

	require.NoError(t, f.proc.View(context.Background(), func(tx *Tx) error {
		stakes, err := tx.Farming.Stakes(f.user)
		require.NoError(t, err)
		require.Len(t, stakes, 1)
		require.Equal(t, big.NewInt(5_000), stakes[0].Record.Amount)
		return nil
	}))
}

func TestClockNeverMovesBackwards(t *testing.T) {
	f := newFixture(t)
	first, err := f.stake(t, 1_000)
	require.NoError(t, err)

	f.clock.Set(time.Unix(1_600_000_000, 0))
	second, err := f.stake(t, 1_000)
	require.NoError(t, err)
	require.Equal(t, first.Timestamp, second.Timestamp)

	// A restarted processor resumes from the persisted mark.
	restarted, err := NewProcessor(f.db, f.clock, WithMetrics(nil))
	require.NoError(t, err)
	require.Equal(t, first.Timestamp, restarted.clock.Last())
}

func TestViewSeesAccruedRewardWithoutCommitting(t *testing.T) {
	f := newFixture(t)
	_, err := f.stake(t, 1_000_000_000)
	require.NoError(t, err)
	f.clock.Advance(15 * 24 * time.Hour)

	before := f.db.Len()
	require.NoError(t, f.proc.View(context.Background(), func(tx *Tx) error {
		reward, err := tx.Farming.CalculateReward(f.user, 0)
		require.NoError(t, err)
		require.Equal(t, big.NewInt(6164383), reward)
		return nil
	}))
	require.Equal(t, before, f.db.Len())
}

func TestSinkFailureDoesNotUndoCommit(t *testing.T) {
	f := newFixture(t)
	f.sink.err = errors.New("offline")
	_, err := f.stake(t, 1_000)
	require.NoError(t, err)
	require.NoError(t, f.proc.View(context.Background(), func(tx *Tx) error {
		stakes, err := tx.Farming.Stakes(f.user)
		require.NoError(t, err)
		require.Len(t, stakes, 1)
		return nil
	}))
}
