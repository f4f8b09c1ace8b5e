package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawlhub/internal/batch"
	"github.com/JakeFAU/crawlhub/internal/frontier"
)

const testURL = "https://example.com/page"

func lookupOne(t *testing.T, store *FrontierStore, u string) frontier.URLRecord {
	t.Helper()
	rows, err := store.Lookup(context.Background(), []string{u})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0]
}

func TestFrontierStoreDiscoveryIsIdempotentExceptScore(t *testing.T) {
	t.Parallel()

	store := NewFrontierStore()
	ctx := context.Background()
	at := time.Unix(1700000000, 0).UTC()

	require.NoError(t, store.RecordDiscoveries(ctx, "owner-a", []string{testURL}, at))
	once := lookupOne(t, store, testURL)
	require.NoError(t, store.RecordDiscoveries(ctx, "owner-a", []string{testURL}, at))
	twice := lookupOne(t, store, testURL)

	// State and owner are idempotent; score counts sightings.
	require.Equal(t, frontier.StateNew, once.State)
	require.Equal(t, once.State, twice.State)
	require.Equal(t, once.UserIDHash, twice.UserIDHash)
	require.Equal(t, int64(1), once.Score)
	require.Equal(t, int64(2), twice.Score)
}

func TestFrontierStoreSecondOwnerConfirms(t *testing.T) {
	t.Parallel()

	store := NewFrontierStore()
	ctx := context.Background()
	at := time.Unix(1700000000, 0).UTC()

	require.NoError(t, store.RecordDiscoveries(ctx, "owner-a", []string{testURL}, at))
	require.NoError(t, store.RecordDiscoveries(ctx, "owner-b", []string{testURL}, at.Add(time.Second)))

	row := lookupOne(t, store, testURL)
	require.Equal(t, frontier.StateConfirmed, row.State)
	require.Equal(t, "owner-b", row.UserIDHash)
	require.Equal(t, at.Add(time.Second), row.Updated)

	// A repeat by the original owner must not demote the row.
	require.NoError(t, store.RecordDiscoveries(ctx, "owner-a", []string{testURL}, at))
	require.Equal(t, frontier.StateConfirmed, lookupOne(t, store, testURL).State)
}

func TestFrontierStoreCrawledIsTerminal(t *testing.T) {
	t.Parallel()

	store := NewFrontierStore()
	ctx := context.Background()
	at := time.Unix(1700000000, 0).UTC()

	require.NoError(t, store.RecordDiscoveries(ctx, "owner-a", []string{testURL}, at))
	require.NoError(t, store.RecordCrawled(ctx, "owner-b", []string{testURL}, at))
	require.NoError(t, store.RecordDiscoveries(ctx, "owner-c", []string{testURL}, at))
	require.NoError(t, store.RecordAssigned(ctx, "owner-c", []string{testURL}, at))

	row := lookupOne(t, store, testURL)
	require.Equal(t, frontier.StateCrawled, row.State)
	require.Equal(t, int64(2), row.Score)
}

func TestFrontierStoreRejectsWholeBatchOnEmptyURL(t *testing.T) {
	t.Parallel()

	store := NewFrontierStore()
	err := store.RecordDiscoveries(context.Background(), "owner-a", []string{testURL, ""}, time.Now())
	require.ErrorIs(t, err, batch.ErrInvalidURL)

	rows, err := store.Lookup(context.Background(), []string{testURL})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestFrontierStoreConcurrentOwners(t *testing.T) {
	t.Parallel()

	store := NewFrontierStore()
	ctx := context.Background()
	at := time.Unix(1700000000, 0).UTC()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			owner := fmt.Sprintf("owner-%d", idx)
			require.NoError(t, store.RecordDiscoveries(ctx, owner, []string{testURL}, at))
		}(i)
	}
	wg.Wait()

	row := lookupOne(t, store, testURL)
	require.Equal(t, frontier.StateConfirmed, row.State)
	require.Equal(t, int64(8), row.Score)
}

func TestFrontierStoreLookupNormalizesLikeWrites(t *testing.T) {
	t.Parallel()

	store := NewFrontierStore()
	ctx := context.Background()
	require.NoError(t, store.RecordDiscoveries(ctx, "owner-a", []string{" " + testURL}, time.Now()))

	rows, err := store.Lookup(ctx, []string{testURL + "\n", " " + testURL})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, testURL, rows[0].URL)

	_, err = store.Lookup(ctx, []string{""})
	require.ErrorIs(t, err, batch.ErrInvalidURL)
}
