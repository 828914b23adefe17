package docstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradepost-hq/tradepost/internal/docstore"
	"github.com/tradepost-hq/tradepost/internal/docstore/memory"
)

func TestReplicaStartPrimesEveryCollection(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	_, err := store.Add(ctx, docstore.CollectionShops, map[string]any{"name": "A"})
	require.NoError(t, err)

	replica := docstore.NewReplica(store, nil, docstore.CollectionShops, docstore.CollectionProducts)
	require.NoError(t, replica.Start(ctx))
	defer replica.Stop()

	require.Len(t, replica.Snapshot(docstore.CollectionShops), 1)
	require.Empty(t, replica.Snapshot(docstore.CollectionProducts))
	// Unwatched collections read as absent.
	require.Nil(t, replica.Snapshot(docstore.CollectionCustomers))
}

func TestReplicaObservesWrites(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	replica := docstore.NewReplica(store, nil, docstore.CollectionShops)
	require.NoError(t, replica.Start(ctx))
	defer replica.Stop()

	_, err := store.Add(ctx, docstore.CollectionShops, map[string]any{"name": "A"})
	require.NoError(t, err)

	select {
	case <-replica.Changes():
	case <-time.After(time.Second):
		t.Fatal("no change signal")
	}

	require.Eventually(t, func() bool {
		return len(replica.Snapshot(docstore.CollectionShops)) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestReplicaCoalescesSignals(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	replica := docstore.NewReplica(store, nil, docstore.CollectionShops)
	require.NoError(t, replica.Start(ctx))
	defer replica.Stop()

	for i := 0; i < 5; i++ {
		_, err := store.Add(ctx, docstore.CollectionShops, map[string]any{"n": float64(i)})
		require.NoError(t, err)
	}

	// However many writes landed, one wakeup plus one re-read suffices.
	select {
	case <-replica.Changes():
	case <-time.After(time.Second):
		t.Fatal("no change signal")
	}
	require.Eventually(t, func() bool {
		return len(replica.Snapshot(docstore.CollectionShops)) == 5
	}, time.Second, 5*time.Millisecond)
}

func TestReplicaStopEndsFollowers(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	replica := docstore.NewReplica(store, nil, docstore.CollectionShops)
	require.NoError(t, replica.Start(ctx))

	done := make(chan struct{})
	go func() {
		replica.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop did not return")
	}

	// Snapshots stay readable after stop.
	require.NotNil(t, replica.Snapshot(docstore.CollectionShops))
}
