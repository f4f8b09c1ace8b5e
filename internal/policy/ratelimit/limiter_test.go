package ratelimit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLimiterAllowsBurstPerOwner(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 0.001, Burst: 2})

	require.True(t, l.Allow("owner-a"))
	require.True(t, l.Allow("owner-a"))
	require.False(t, l.Allow("owner-a"), "third call within the burst window is throttled")

	require.True(t, l.Allow("owner-b"), "owners have independent buckets")
	require.Equal(t, 2, l.Tracked())
}

func TestLimiterDisabled(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("owner"))
	}
	require.Zero(t, l.Tracked())
}

func TestLimiterPrunesRefilledBuckets(t *testing.T) {
	t.Parallel()

	// A high rate refills buckets almost immediately, so pruning can drop them.
	l := New(Config{RPS: 1e9, Burst: 1})
	for i := 0; i < maxTrackedOwners+10; i++ {
		require.True(t, l.Allow(fmt.Sprintf("owner-%d", i)))
	}
	require.Less(t, l.Tracked(), maxTrackedOwners+10)
}
