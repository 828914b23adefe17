// Package memory provides an in-process docstore adapter. It backs tests and
// the development STORE_DRIVER=memory mode.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/tradepost-hq/tradepost/internal/docstore"
)

type collection struct {
	order []string
	docs  map[string]map[string]any
}

// Store keeps documents in insertion order per collection and fans full
// snapshots out to watchers after every committed write.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	watchers    map[string][]chan []docstore.Document
	closed      bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		collections: make(map[string]*collection),
		watchers:    make(map[string][]chan []docstore.Document),
	}
}

func (s *Store) coll(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]map[string]any)}
		s.collections[name] = c
	}
	return c
}

// List returns the current contents of a collection in insertion order.
func (s *Store) List(_ context.Context, name string) ([]docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	return s.snapshotLocked(name), nil
}

// Add inserts a document under a fresh id.
func (s *Store) Add(ctx context.Context, name string, data map[string]any) (string, error) {
	id := uuid.NewString()
	err := s.ApplyBatch(ctx, []docstore.Write{{Collection: name, ID: id, Create: true, Data: data}})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ApplyBatch validates every write, then applies all of them under one lock
// so readers never observe a partial batch.
func (s *Store) ApplyBatch(_ context.Context, writes []docstore.Write) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docstore.ErrClosed
	}

	for _, w := range writes {
		if w.ID == "" {
			return fmt.Errorf("memory: write to %s missing id", w.Collection)
		}
		c := s.coll(w.Collection)
		_, exists := c.docs[w.ID]
		if w.Create && exists {
			return fmt.Errorf("memory: %s/%s: %w", w.Collection, w.ID, docstore.ErrExists)
		}
		if !w.Create && !exists {
			return fmt.Errorf("memory: %s/%s: %w", w.Collection, w.ID, docstore.ErrNotFound)
		}
	}

	touched := make(map[string]struct{}, len(writes))
	for _, w := range writes {
		c := s.coll(w.Collection)
		if w.Create {
			c.docs[w.ID] = maps.Clone(w.Data)
			c.order = append(c.order, w.ID)
		} else {
			maps.Copy(c.docs[w.ID], w.Data)
		}
		touched[w.Collection] = struct{}{}
	}
	for name := range touched {
		s.broadcastLocked(name)
	}
	return nil
}

// Watch registers a snapshot stream for a collection. The current snapshot
// is delivered immediately; afterwards a watcher that lags only ever sees
// the latest state, matching full-snapshot subscription semantics.
func (s *Store) Watch(ctx context.Context, name string) (<-chan []docstore.Document, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, docstore.ErrClosed
	}
	ch := make(chan []docstore.Document, 1)
	ch <- s.snapshotLocked(name)
	s.watchers[name] = append(s.watchers[name], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.removeWatcher(name, ch)
	}()
	return ch, nil
}

// Close drops all watchers and rejects further operations.
func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, chans := range s.watchers {
		for _, ch := range chans {
			close(ch)
		}
	}
	s.watchers = make(map[string][]chan []docstore.Document)
	return nil
}

func (s *Store) snapshotLocked(name string) []docstore.Document {
	c, ok := s.collections[name]
	if !ok {
		return []docstore.Document{}
	}
	out := make([]docstore.Document, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, docstore.Document{ID: id, Data: maps.Clone(c.docs[id])})
	}
	return out
}

func (s *Store) broadcastLocked(name string) {
	snap := s.snapshotLocked(name)
	for _, ch := range s.watchers[name] {
		// Replace any undelivered snapshot with the newer one.
		for {
			select {
			case ch <- snap:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

func (s *Store) removeWatcher(name string, target chan []docstore.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	chans := s.watchers[name]
	for i, ch := range chans {
		if ch == target {
			s.watchers[name] = append(chans[:i], chans[i+1:]...)
			close(ch)
			return
		}
	}
}
