package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonotonicClockNeverMovesBackwards(t *testing.T) {
	fixed := NewFixedClock(time.Unix(1_000, 0))
	clock := NewMonotonicClock(fixed, 0)

	require.Equal(t, uint64(1_000), clock.Next())

	fixed.Set(time.Unix(900, 0))
	require.Equal(t, uint64(1_000), clock.Peek())
	require.Equal(t, uint64(1_000), clock.Next())

	fixed.Advance(200 * time.Second)
	require.Equal(t, uint64(1_100), clock.Next())
	require.Equal(t, uint64(1_100), clock.Last())
}

func TestMonotonicClockSeedsFromPersistedMark(t *testing.T) {
	clock := NewMonotonicClock(NewFixedClock(time.Unix(50, 0)), 500)
	require.Equal(t, uint64(500), clock.Peek())
	require.Equal(t, uint64(500), clock.Last())

	clock = NewMonotonicClock(NewFixedClock(time.Unix(-10, 0)), 0)
	require.Equal(t, uint64(0), clock.Next())
}

func TestMonotonicClockPeekDoesNotAdvance(t *testing.T) {
	fixed := NewFixedClock(time.Unix(2_000, 0))
	clock := NewMonotonicClock(fixed, 100)
	require.Equal(t, uint64(2_000), clock.Peek())
	require.Equal(t, uint64(100), clock.Last())
}
