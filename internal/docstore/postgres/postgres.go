// Package postgres adapts the docstore port to PostgreSQL. Documents are
// rows in a single JSONB table; change notification rides LISTEN/NOTIFY so
// watchers reload a collection only when it changed.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradepost-hq/tradepost/internal/docstore"
)

const notifyChannel = "tradepost_documents"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_collection_created_idx
	ON documents (collection, created_at, id);
`

// Store is a pgx-backed docstore adapter.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects, pings and ensures the documents table exists.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore/postgres: parse config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("docstore/postgres: new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("docstore/postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("docstore/postgres: ensure schema: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// List returns a collection in insertion order.
func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data FROM documents WHERE collection = $1 ORDER BY created_at, id`, collection)
	if err != nil {
		return nil, fmt.Errorf("docstore/postgres: list %s: %w", collection, err)
	}
	defer rows.Close()

	var out []docstore.Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("docstore/postgres: scan %s: %w", collection, err)
		}
		data := make(map[string]any)
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("docstore/postgres: decode %s/%s: %w", collection, id, err)
		}
		out = append(out, docstore.Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore/postgres: list %s: %w", collection, err)
	}
	if out == nil {
		out = []docstore.Document{}
	}
	return out, nil
}

// Add inserts a document under a fresh id.
func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	err := s.ApplyBatch(ctx, []docstore.Write{{Collection: collection, ID: id, Create: true, Data: data}})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ApplyBatch applies every write in one transaction and notifies listeners
// for each touched collection after commit is guaranteed.
func (s *Store) ApplyBatch(ctx context.Context, writes []docstore.Write) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("docstore/postgres: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	touched := make(map[string]struct{}, len(writes))
	for _, w := range writes {
		if w.ID == "" {
			return fmt.Errorf("docstore/postgres: write to %s missing id", w.Collection)
		}
		raw, err := json.Marshal(w.Data)
		if err != nil {
			return fmt.Errorf("docstore/postgres: encode %s/%s: %w", w.Collection, w.ID, err)
		}
		if w.Create {
			_, err = tx.Exec(ctx,
				`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`,
				w.Collection, w.ID, raw)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					return fmt.Errorf("docstore/postgres: %s/%s: %w", w.Collection, w.ID, docstore.ErrExists)
				}
				return fmt.Errorf("docstore/postgres: insert %s/%s: %w", w.Collection, w.ID, err)
			}
		} else {
			tag, err := tx.Exec(ctx,
				`UPDATE documents SET data = data || $3, updated_at = now() WHERE collection = $1 AND id = $2`,
				w.Collection, w.ID, raw)
			if err != nil {
				return fmt.Errorf("docstore/postgres: update %s/%s: %w", w.Collection, w.ID, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("docstore/postgres: %s/%s: %w", w.Collection, w.ID, docstore.ErrNotFound)
			}
		}
		touched[w.Collection] = struct{}{}
	}
	for collection := range touched {
		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, collection); err != nil {
			return fmt.Errorf("docstore/postgres: notify %s: %w", collection, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("docstore/postgres: commit: %w", err)
	}
	return nil
}

// Watch streams full snapshots of a collection: the current contents first,
// then a reload after every notification naming the collection.
func (s *Store) Watch(ctx context.Context, collection string) (<-chan []docstore.Document, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("docstore/postgres: acquire listener: %w", err)
	}
	if _, err := conn.Exec(ctx, `LISTEN `+notifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("docstore/postgres: listen: %w", err)
	}
	initial, err := s.List(ctx, collection)
	if err != nil {
		conn.Release()
		return nil, err
	}

	ch := make(chan []docstore.Document, 1)
	ch <- initial
	go s.listen(ctx, conn, collection, ch)
	return ch, nil
}

func (s *Store) listen(ctx context.Context, conn *pgxpool.Conn, collection string, ch chan []docstore.Document) {
	defer close(ch)
	defer conn.Release()
	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil && s.logger != nil {
				s.logger.Error("document listener stopped",
					slog.String("collection", collection), slog.Any("error", err))
			}
			return
		}
		if notification.Payload != collection {
			continue
		}
		snap, err := s.List(ctx, collection)
		if err != nil {
			if ctx.Err() == nil && s.logger != nil {
				s.logger.Error("document reload failed",
					slog.String("collection", collection), slog.Any("error", err))
			}
			return
		}
		select {
		case ch <- snap:
		case <-ctx.Done():
			return
		default:
			// Watcher lags: drop the stale pending snapshot for this one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close releases the connection pool.
func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}
