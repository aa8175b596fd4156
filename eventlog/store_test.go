package eventlog

import (
	"context"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cafichain/core"
	"cafichain/core/types"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	store, err := NewStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func receipt(seq uint64, op, caller string, evts ...*types.Event) *core.Receipt {
	return &core.Receipt{
		ID:        fmt.Sprintf("%064x", seq),
		Sequence:  seq,
		Operation: op,
		Caller:    caller,
		Timestamp: 1_700_000_000 + seq,
		Events:    evts,
	}
}

func event(typ string, kv ...string) *types.Event {
	attrs := map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		attrs[kv[i]] = kv[i+1]
	}
	return &types.Event{Type: typ, Attributes: attrs}
}

func TestStoreAppendAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, receipt(1, "genesis", "alice", event("bank.mint", "token", "CAFI"))))
	require.NoError(t, store.Publish(ctx, receipt(2, "stake", "bob",
		event("bank.transfer", "token", "LP", "amount", "10"),
		event("farm.stakeCreated", "index", "0"))))
	require.NoError(t, store.Append(ctx, receipt(3, "claimReward", "bob", event("farm.rewardClaimed", "reward", "5"))))

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, uint64(1), all[0].Sequence)
	require.Len(t, all[1].Events, 2)
	require.Equal(t, "bank.transfer", all[1].Events[0].Type)
	require.Equal(t, "10", all[1].Events[0].Attr("amount"))

	byCaller, err := store.List(ctx, Filter{Caller: "bob", AfterSequence: 2})
	require.NoError(t, err)
	require.Len(t, byCaller, 1)
	require.Equal(t, "claimReward", byCaller[0].Operation)

	byType, err := store.List(ctx, Filter{EventType: "farm.stakeCreated"})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	require.Equal(t, uint64(2), byType[0].Sequence)

	limited, err := store.List(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)

	last, err := store.LastSequence(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), last)
}

func TestStoreReceiptLookup(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	want := receipt(7, "withdraw", "carol", event("farm.withdrawn", "principal", "100"))
	require.NoError(t, store.Append(ctx, want))

	got, err := store.Receipt(ctx, want.ID)
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = store.Receipt(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	// Sequences are unique.
	require.Error(t, store.Append(ctx, receipt(7, "withdraw", "carol")))
}

func TestOpenSelectsSqliteForEmptyDSN(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()
	last, err := store.LastSequence(context.Background())
	require.NoError(t, err)
	require.Zero(t, last)
	require.True(t, isPostgresDSN("postgres://u:p@localhost/db"))
	require.True(t, isPostgresDSN("host=localhost user=u dbname=db"))
	require.False(t, isPostgresDSN("file:events.db"))
}

func TestHubBacklogAndFanOut(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, receipt(1, "stake", "a")))
	require.NoError(t, hub.Publish(ctx, receipt(2, "stake", "a")))

	updates, cancel, backlog := hub.Subscribe(ctx, 1)
	require.Len(t, backlog, 1)
	require.Equal(t, uint64(2), backlog[0].Sequence)
	require.Equal(t, 1, hub.Subscribers())

	require.NoError(t, hub.Publish(ctx, receipt(3, "claimReward", "a")))
	got := <-updates
	require.Equal(t, uint64(3), got.Sequence)

	cancel()
	cancel()
	_, open := <-updates
	require.False(t, open)
	require.Zero(t, hub.Subscribers())
}

func TestHubCancelStopsWatcher(t *testing.T) {
	hub := NewHub()
	// A live context that is never cancelled; only cancel() ends the subscriptions.
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	baseline := runtime.NumGoroutine()
	cancels := make([]func(), 0, 50)
	for i := 0; i < 50; i++ {
		_, cancel, _ := hub.Subscribe(ctx, 0)
		cancels = append(cancels, cancel)
	}
	require.Equal(t, 50, hub.Subscribers())
	for _, cancel := range cancels {
		cancel()
	}
	require.Zero(t, hub.Subscribers())
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= baseline
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubContextEndUnsubscribes(t *testing.T) {
	hub := NewHub()
	ctx, stop := context.WithCancel(context.Background())
	updates, cancel, _ := hub.Subscribe(ctx, 0)
	require.Equal(t, 1, hub.Subscribers())

	stop()
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
	_, open := <-updates
	require.False(t, open)
	cancel()
}

func TestHubDropsForSlowSubscribers(t *testing.T) {
	hub := NewHub()
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	_, _, _ = hub.Subscribe(ctx, 0)
	for i := 0; i < subscriberBuffer+3; i++ {
		require.NoError(t, hub.Publish(ctx, receipt(uint64(i+1), "stake", "a")))
	}
	require.Equal(t, uint64(3), hub.Dropped())
}
