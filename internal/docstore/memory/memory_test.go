package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradepost-hq/tradepost/internal/docstore"
)

func TestAddAndListPreservesInsertionOrder(t *testing.T) {
	store := New()
	ctx := context.Background()

	first, err := store.Add(ctx, docstore.CollectionShops, map[string]any{"name": "A"})
	require.NoError(t, err)
	second, err := store.Add(ctx, docstore.CollectionShops, map[string]any{"name": "B"})
	require.NoError(t, err)

	docs, err := store.List(ctx, docstore.CollectionShops)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, first, docs[0].ID)
	require.Equal(t, second, docs[1].ID)
	require.Equal(t, "A", docs[0].Data["name"])
}

func TestApplyBatchUpdateMerges(t *testing.T) {
	store := New()
	ctx := context.Background()

	id, err := store.Add(ctx, docstore.CollectionShops, map[string]any{"name": "A", "isActive": true})
	require.NoError(t, err)

	err = store.ApplyBatch(ctx, []docstore.Write{{
		Collection: docstore.CollectionShops,
		ID:         id,
		Data:       map[string]any{"isActive": false},
	}})
	require.NoError(t, err)

	docs, err := store.List(ctx, docstore.CollectionShops)
	require.NoError(t, err)
	require.Equal(t, "A", docs[0].Data["name"])
	require.Equal(t, false, docs[0].Data["isActive"])
}

func TestApplyBatchValidatesBeforeApplying(t *testing.T) {
	store := New()
	ctx := context.Background()

	err := store.ApplyBatch(ctx, []docstore.Write{
		{Collection: docstore.CollectionShops, ID: "a", Create: true, Data: map[string]any{"name": "A"}},
		{Collection: docstore.CollectionShops, ID: "ghost", Data: map[string]any{"name": "B"}},
	})
	require.ErrorIs(t, err, docstore.ErrNotFound)

	// The valid create in the failed batch must not have landed.
	docs, err := store.List(ctx, docstore.CollectionShops)
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestApplyBatchRejectsDuplicateCreate(t *testing.T) {
	store := New()
	ctx := context.Background()

	err := store.ApplyBatch(ctx, []docstore.Write{
		{Collection: docstore.CollectionShops, ID: "a", Create: true, Data: map[string]any{}},
	})
	require.NoError(t, err)

	err = store.ApplyBatch(ctx, []docstore.Write{
		{Collection: docstore.CollectionShops, ID: "a", Create: true, Data: map[string]any{}},
	})
	require.ErrorIs(t, err, docstore.ErrExists)
}

func TestWatchDeliversInitialAndUpdatedSnapshots(t *testing.T) {
	store := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := store.Watch(ctx, docstore.CollectionShops)
	require.NoError(t, err)

	select {
	case snap := <-ch:
		require.Empty(t, snap)
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	_, err = store.Add(ctx, docstore.CollectionShops, map[string]any{"name": "A"})
	require.NoError(t, err)

	select {
	case snap := <-ch:
		require.Len(t, snap, 1)
		require.Equal(t, "A", snap[0].Data["name"])
	case <-time.After(time.Second):
		t.Fatal("no snapshot after write")
	}
}

func TestWatchLaggingWatcherSeesLatestOnly(t *testing.T) {
	store := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := store.Watch(ctx, docstore.CollectionShops)
	require.NoError(t, err)

	// Never drain; each write replaces the pending snapshot.
	for i := 0; i < 3; i++ {
		_, err = store.Add(ctx, docstore.CollectionShops, map[string]any{"n": float64(i)})
		require.NoError(t, err)
	}

	var last []docstore.Document
	for done := false; !done; {
		select {
		case snap := <-ch:
			last = snap
		default:
			done = true
		}
	}
	require.Len(t, last, 3)
}

func TestCloseRejectsFurtherOperations(t *testing.T) {
	store := New()
	ctx := context.Background()

	ch, err := store.Watch(ctx, docstore.CollectionShops)
	require.NoError(t, err)
	<-ch

	require.NoError(t, store.Close(ctx))

	_, open := <-ch
	require.False(t, open)

	_, err = store.List(ctx, docstore.CollectionShops)
	require.ErrorIs(t, err, docstore.ErrClosed)

	_, err = store.Add(ctx, docstore.CollectionShops, map[string]any{})
	require.ErrorIs(t, err, docstore.ErrClosed)
}

func TestListReturnsCopies(t *testing.T) {
	store := New()
	ctx := context.Background()

	id, err := store.Add(ctx, docstore.CollectionShops, map[string]any{"name": "A"})
	require.NoError(t, err)

	docs, err := store.List(ctx, docstore.CollectionShops)
	require.NoError(t, err)
	docs[0].Data["name"] = "mutated"

	again, err := store.List(ctx, docstore.CollectionShops)
	require.NoError(t, err)
	require.Equal(t, "A", again[0].Data["name"])
	require.Equal(t, id, again[0].ID)
}
