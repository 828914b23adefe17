// Package docstore defines the document-store port the application persists
// through. Adapters live in subpackages (memory, postgres, mongodb); domain
// packages depend only on this interface.
package docstore

import (
	"context"
	"errors"
)

// Collection names used by the application.
const (
	CollectionShops              = "shops"
	CollectionProducts           = "products"
	CollectionUsers              = "users"
	CollectionCustomers          = "customers"
	CollectionTransactions       = "transactions"
	CollectionShipments          = "shipments"
	CollectionClearingAgents     = "clearingAgents"
	CollectionFreightForwarders  = "freightForwarders"
	CollectionCustomExpenseTypes = "customExpenseTypes"
	CollectionExpenseAccounts    = "expenseAccounts"
	CollectionCurrencies         = "currencies"
)

// Collections lists every collection the application subscribes to.
var Collections = []string{
	CollectionShops,
	CollectionProducts,
	CollectionUsers,
	CollectionCustomers,
	CollectionTransactions,
	CollectionShipments,
	CollectionClearingAgents,
	CollectionFreightForwarders,
	CollectionCustomExpenseTypes,
	CollectionExpenseAccounts,
	CollectionCurrencies,
}

var (
	// ErrNotFound indicates the referenced document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrExists indicates a create targeted an id that is already taken.
	ErrExists = errors.New("docstore: document already exists")
	// ErrClosed indicates the store has been shut down.
	ErrClosed = errors.New("docstore: store closed")
)

// Document is a single record in a collection. Data holds the raw field map;
// use the field helpers in this package to decode values.
type Document struct {
	ID   string
	Data map[string]any
}

// Write is one element of an atomic batch. Create inserts a new document
// under the given id; otherwise the write merges Data into an existing one.
type Write struct {
	Collection string
	ID         string
	Create     bool
	Data       map[string]any
}

// Store is the port over the hosted document database.
//
// Watch returns a stream of full-collection snapshots: the current contents
// immediately, then a fresh list after every committed change. The stream is
// closed when ctx is cancelled. Snapshots preserve insertion order, which
// ledger consumers rely on for same-date tie-breaking.
type Store interface {
	List(ctx context.Context, collection string) ([]Document, error)
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	ApplyBatch(ctx context.Context, writes []Write) error
	Watch(ctx context.Context, collection string) (<-chan []Document, error)
	Close(ctx context.Context) error
}
