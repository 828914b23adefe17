package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Replica owns the collection subscriptions for the application's lifetime.
// It keeps the latest full snapshot per collection and coalesces change
// notifications onto a single channel, so report derivations always fold
// over a complete, current view without holding any derived state.
type Replica struct {
	store       Store
	logger      *slog.Logger
	collections []string

	mu        sync.RWMutex
	snapshots map[string][]Document

	notify chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReplica builds a replica over the given collections. Start must be
// called before snapshots are read.
func NewReplica(store Store, logger *slog.Logger, collections ...string) *Replica {
	if len(collections) == 0 {
		collections = Collections
	}
	return &Replica{
		store:       store,
		logger:      logger,
		collections: collections,
		snapshots:   make(map[string][]Document, len(collections)),
		notify:      make(chan struct{}, 1),
	}
}

// Start subscribes to every collection and blocks until each has delivered
// its initial snapshot, so callers never observe a partially-primed replica.
func (r *Replica) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel

	for _, name := range r.collections {
		ch, err := r.store.Watch(runCtx, name)
		if err != nil {
			cancel()
			return fmt.Errorf("docstore: watch %s: %w", name, err)
		}
		select {
		case snap, ok := <-ch:
			if !ok {
				cancel()
				return fmt.Errorf("docstore: watch %s closed before first snapshot", name)
			}
			r.set(name, snap)
		case <-ctx.Done():
			cancel()
			return ctx.Err()
		}
		r.wg.Add(1)
		go r.follow(name, ch)
	}
	return nil
}

// Stop cancels all subscriptions and waits for followers to exit.
func (r *Replica) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Replica) follow(name string, ch <-chan []Document) {
	defer r.wg.Done()
	for snap := range ch {
		r.set(name, snap)
		r.signal()
	}
	if r.logger != nil {
		r.logger.Debug("collection subscription ended", slog.String("collection", name))
	}
}

func (r *Replica) set(name string, snap []Document) {
	r.mu.Lock()
	r.snapshots[name] = snap
	r.mu.Unlock()
}

func (r *Replica) signal() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Snapshot returns the latest snapshot of a collection. The returned slice
// is shared and must not be mutated; documents are treated as read-only
// projections.
func (r *Replica) Snapshot(collection string) []Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshots[collection]
}

// Changes notifies when any watched collection has a new snapshot. Signals
// are coalesced; consumers re-derive everything from Snapshot on wakeup.
func (r *Replica) Changes() <-chan struct{} {
	return r.notify
}
