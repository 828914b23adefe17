// Package mongodb adapts the docstore port to MongoDB. Each logical
// collection maps to a mongo collection; atomic batches run inside a
// session transaction and watchers ride change streams.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tradepost-hq/tradepost/internal/docstore"
)

// Store is a mongo-driver-backed docstore adapter.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// New connects and pings the deployment. Transactions and change streams
// require a replica set, which hosted deployments provide.
func New(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("docstore/mongodb: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("docstore/mongodb: ping: %w", err)
	}
	return &Store{client: client, db: client.Database(database), logger: logger}, nil
}

// List returns a collection in insertion order.
func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("docstore/mongodb: list %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	out := []docstore.Document{}
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("docstore/mongodb: decode %s: %w", collection, err)
		}
		out = append(out, toDocument(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("docstore/mongodb: list %s: %w", collection, err)
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

// ApplyBatch commits every write in one session transaction.
func (s *Store) ApplyBatch(ctx context.Context, writes []docstore.Write) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("docstore/mongodb: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		for _, w := range writes {
			if w.ID == "" {
				return nil, fmt.Errorf("write to %s missing id", w.Collection)
			}
			coll := s.db.Collection(w.Collection)
			if w.Create {
				doc := bson.M{"_id": w.ID, "createdAt": time.Now().UTC()}
				for k, v := range w.Data {
					doc[k] = v
				}
				if _, err := coll.InsertOne(sessCtx, doc); err != nil {
					if mongo.IsDuplicateKeyError(err) {
						return nil, fmt.Errorf("%s/%s: %w", w.Collection, w.ID, docstore.ErrExists)
					}
					return nil, fmt.Errorf("insert %s/%s: %w", w.Collection, w.ID, err)
				}
			} else {
				res, err := coll.UpdateOne(sessCtx, bson.M{"_id": w.ID}, bson.M{"$set": bson.M(w.Data)})
				if err != nil {
					return nil, fmt.Errorf("update %s/%s: %w", w.Collection, w.ID, err)
				}
				if res.MatchedCount == 0 {
					return nil, fmt.Errorf("%s/%s: %w", w.Collection, w.ID, docstore.ErrNotFound)
				}
			}
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, docstore.ErrExists) || errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("docstore/mongodb: %w", err)
		}
		return fmt.Errorf("docstore/mongodb: apply batch: %w", err)
	}
	return nil
}

// Watch streams full snapshots: the current contents immediately, then a
// re-list after every change-stream event on the collection.
func (s *Store) Watch(ctx context.Context, collection string) (<-chan []docstore.Document, error) {
	stream, err := s.db.Collection(collection).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("docstore/mongodb: watch %s: %w", collection, err)
	}
	initial, err := s.List(ctx, collection)
	if err != nil {
		_ = stream.Close(ctx)
		return nil, err
	}

	ch := make(chan []docstore.Document, 1)
	ch <- initial
	go s.follow(ctx, stream, collection, ch)
	return ch, nil
}

func (s *Store) follow(ctx context.Context, stream *mongo.ChangeStream, collection string, ch chan []docstore.Document) {
	defer close(ch)
	defer stream.Close(context.WithoutCancel(ctx))
	for stream.Next(ctx) {
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
		default:
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
	if err := stream.Err(); err != nil && ctx.Err() == nil && s.logger != nil {
		s.logger.Error("change stream ended",
			slog.String("collection", collection), slog.Any("error", err))
	}
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// toDocument converts a BSON document into the adapter-neutral shape:
// primitive.DateTime becomes time.Time and nested arrays/maps are rebuilt
// as []any / map[string]any so the shared field helpers apply.
func toDocument(raw bson.M) docstore.Document {
	doc := docstore.Document{Data: make(map[string]any, len(raw))}
	for k, v := range raw {
		if k == "_id" {
			if id, ok := v.(string); ok {
				doc.ID = id
			}
			continue
		}
		if k == "createdAt" {
			continue
		}
		doc.Data[k] = normalize(v)
	}
	return doc
}

func normalize(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	default:
		return v
	}
}
