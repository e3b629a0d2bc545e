// Package storage defines the unit-of-work contract shared by the ledger
// storage engines.
//
// Every Update runs as one atomic unit: either all of its writes become
// visible to later readers or none do, and writers are serialized. Each
// committed Update advances the store revision.
package storage

import (
	"context"

	"github.com/google/uuid"

	"expenses/internal/core"
)

// ReadTx is a consistent read view of the store. It is only valid inside
// the callback it was handed to.
type ReadTx interface {
	// Revision identifies the committed state this view observes.
	Revision() (uint64, error)

	GetCategory(id uuid.UUID) (core.Category, error)
	// ListCategories returns categories sorted by lower-cased name, then id.
	ListCategories() ([]core.Category, error)
	// CategoryUsage counts referencing transactions per category id.
	CategoryUsage() (map[uuid.UUID]int, error)

	GetTransaction(id uuid.UUID) (core.Transaction, error)
	// ListTransactions returns matching transactions ordered by date
	// descending then insertion sequence descending.
	ListTransactions(f core.Filter) ([]core.Transaction, error)
	CountTransactions(f core.Filter) (int, error)
	// EachTransaction visits matching transactions in unspecified order.
	// fn must not use the store.
	EachTransaction(f core.Filter, fn func(core.Transaction) error) error
}

// Tx is a read-write unit of work.
type Tx interface {
	ReadTx

	InsertCategory(c core.Category) error
	// DeleteCategory fails with core.NotFoundError when id is unknown.
	DeleteCategory(id uuid.UUID) error
	// DetachCategory clears every reference to id and returns how many
	// transactions were detached.
	DetachCategory(id uuid.UUID) (int, error)

	// InsertTransaction stores t and assigns its insertion sequence.
	InsertTransaction(t *core.Transaction) error
	DeleteTransaction(id uuid.UUID) error
	SetTransactionCategory(id uuid.UUID, categoryID *uuid.UUID) error
}

type Store interface {
	View(ctx context.Context, fn func(ReadTx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

const (
	KindCategory    = "Category"
	KindTransaction = "Transaction"
)
