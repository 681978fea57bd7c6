package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pythia/internal/domain/market"
	"pythia/internal/domain/session"
)

func strPtr(s string) *string { return &s }

func TestSessionStore_GetCreatesEmptyRecord(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	first, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, first.LastConditionID)
	assert.Empty(t, first.LastTraderAddress)
	assert.Empty(t, first.LastMarkets)

	// Idempotent: same record both times without an intervening update
	second, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, first.LastConditionID, second.LastConditionID)
	assert.Equal(t, first.LastTraderAddress, second.LastTraderAddress)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSessionStore_UpdateReplacesByKey(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	err := store.Update(ctx, "sess-1", session.Partial{
		LastConditionID:   strPtr("0xABC"),
		LastTraderAddress: strPtr("0xTRADER"),
	})
	require.NoError(t, err)

	// Updating one field leaves the others untouched
	err = store.Update(ctx, "sess-1", session.Partial{
		LastConditionID: strPtr("0xDEF"),
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "0xDEF", got.LastConditionID)
	assert.Equal(t, "0xTRADER", got.LastTraderAddress)
}

func TestSessionStore_UpdateMarketListWholesale(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	first := []market.Market{{ID: "1", Question: "A?"}, {ID: "2", Question: "B?"}}
	require.NoError(t, store.Update(ctx, "s", session.Partial{LastMarkets: &first}))

	replacement := []market.Market{{ID: "3", Question: "C?"}}
	require.NoError(t, store.Update(ctx, "s", session.Partial{LastMarkets: &replacement}))

	got, err := store.Get(ctx, "s")
	require.NoError(t, err)
	require.Len(t, got.LastMarkets, 1)
	assert.Equal(t, "3", got.LastMarkets[0].ID)
}

func TestSessionStore_SnapshotIsolation(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	markets := []market.Market{{ID: "1"}}
	require.NoError(t, store.Update(ctx, "s", session.Partial{LastMarkets: &markets}))

	got, err := store.Get(ctx, "s")
	require.NoError(t, err)

	// Mutating the returned snapshot must not leak into the store
	got.LastMarkets[0].ID = "mutated"

	again, err := store.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "1", again.LastMarkets[0].ID)
}

func TestSessionStore_ClearRecreatesEmpty(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, "s", session.Partial{LastConditionID: strPtr("0xABC")}))
	require.NoError(t, store.Clear(ctx, "s"))

	got, err := store.Get(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, got.LastConditionID)
}

func TestSessionStore_ConcurrentAccess(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("sess-%d", i%5)
			cond := fmt.Sprintf("0x%d", i)
			_ = store.Update(ctx, id, session.Partial{LastConditionID: &cond})
			_, _ = store.Get(ctx, id)
		}(i)
	}
	wg.Wait()

	// All five records exist and each holds some writer's value intact
	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	for i := 0; i < 5; i++ {
		got, err := store.Get(ctx, fmt.Sprintf("sess-%d", i))
		require.NoError(t, err)
		assert.Contains(t, got.LastConditionID, "0x")
	}
}
