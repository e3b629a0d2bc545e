package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/storage"
)

// queryPageSize is the number of rows fetched per read by Query.
const queryPageSize = 100

// LedgerService owns transaction records.
type LedgerService struct {
	store  storage.Store
	events *eventSink
	now    func() time.Time
}

func NewLedgerService(store storage.Store, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		store:  store,
		events: &eventSink{publisher: publisher},
		now:    time.Now,
	}
}

// Page is one offset page of a listing together with the total number of
// matching transactions.
type Page struct {
	Items []core.Transaction
	Total int
}

// checkCategory rejects a non-nil reference that does not resolve.
func checkCategory(tx storage.ReadTx, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := tx.GetCategory(*id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.NewValidationError("category_id", "category_id does not reference an existing category")
		}
		return err
	}
	return nil
}

// Create validates in and stores it as a new transaction.
func (s *LedgerService) Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	t, err := in.Parse()
	if err != nil {
		return core.Transaction{}, err
	}
	t.ID = uuid.New()
	t.CreatedAt = s.now().UTC()

	err = s.store.Update(ctx, func(tx storage.Tx) error {
		if err := checkCategory(tx, t.CategoryID); err != nil {
			return err
		}
		return tx.InsertTransaction(&t)
	})
	if err != nil {
		return core.Transaction{}, wrap("create transaction", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		log.FieldComponent, log.ComponentLedger,
		log.FieldTransactionID, t.ID.String(),
		log.FieldDate, t.Date.String(),
		log.FieldAmount, t.Amount.String())
	s.events.publish(ctx, amqp.NewTransactionEvent(amqp.EventTransactionCreated, t))
	return t, nil
}

func (s *LedgerService) Get(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	var t core.Transaction
	err := s.store.View(ctx, func(tx storage.ReadTx) error {
		var err error
		t, err = tx.GetTransaction(id)
		return err
	})
	if err != nil {
		return core.Transaction{}, wrap("get transaction", err)
	}
	return t, nil
}

// Delete hard-removes a transaction. An unknown id is a NotFoundError.
func (s *LedgerService) Delete(ctx context.Context, id uuid.UUID) error {
	var removed core.Transaction
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		t, err := tx.GetTransaction(id)
		if err != nil {
			return err
		}
		removed = t
		return tx.DeleteTransaction(id)
	})
	if err != nil {
		return wrap("delete transaction", err)
	}

	slog.InfoContext(ctx, "Transaction deleted",
		log.FieldComponent, log.ComponentLedger,
		log.FieldTransactionID, id.String())
	s.events.publish(ctx, amqp.NewTransactionEvent(amqp.EventTransactionDeleted, removed))
	return nil
}

// List returns one page of matching transactions and the total match
// count, both read from the same snapshot.
func (s *LedgerService) List(ctx context.Context, f core.Filter) (Page, error) {
	if err := f.Validate(); err != nil {
		return Page{}, err
	}
	var page Page
	err := s.store.View(ctx, func(tx storage.ReadTx) error {
		var err error
		if page.Total, err = tx.CountTransactions(f); err != nil {
			return err
		}
		page.Items, err = tx.ListTransactions(f)
		return err
	})
	if err != nil {
		return Page{}, fmt.Errorf("list transactions: %w", err)
	}
	return page, nil
}

// Query yields the transactions matching f in ledger order, fetching them
// lazily in keyset pages. f.Limit caps the total yielded (0 means no cap).
// Each range over the sequence starts again from the beginning.
func (s *LedgerService) Query(ctx context.Context, f core.Filter) iter.Seq2[core.Transaction, error] {
	return func(yield func(core.Transaction, error) bool) {
		if err := f.Validate(); err != nil {
			yield(core.Transaction{}, err)
			return
		}

		remaining := f.Limit
		page := f
		for {
			page.Limit = queryPageSize
			if remaining > 0 && remaining < queryPageSize {
				page.Limit = remaining
			}

			var items []core.Transaction
			err := s.store.View(ctx, func(tx storage.ReadTx) error {
				var err error
				items, err = tx.ListTransactions(page)
				return err
			})
			if err != nil {
				yield(core.Transaction{}, fmt.Errorf("query transactions: %w", err))
				return
			}

			for _, t := range items {
				if !yield(t, nil) {
					return
				}
			}
			if remaining > 0 {
				if remaining -= len(items); remaining <= 0 {
					return
				}
			}
			if len(items) < page.Limit {
				return
			}

			cursor := core.CursorOf(items[len(items)-1])
			page.After = &cursor
			page.Offset = 0
		}
	}
}

// SetCategory replaces the category reference of a transaction. A nil
// categoryID clears the label.
func (s *LedgerService) SetCategory(ctx context.Context, id uuid.UUID, categoryID *uuid.UUID) (core.Transaction, error) {
	var t core.Transaction
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		if t, err = tx.GetTransaction(id); err != nil {
			return err
		}
		if err := checkCategory(tx, categoryID); err != nil {
			return err
		}
		if err := tx.SetTransactionCategory(id, categoryID); err != nil {
			return err
		}
		t.CategoryID = categoryID
		return nil
	})
	if err != nil {
		return core.Transaction{}, wrap("set transaction category", err)
	}

	label := ""
	if categoryID != nil {
		label = categoryID.String()
	}
	slog.InfoContext(ctx, "Transaction labeled",
		log.FieldComponent, log.ComponentLedger,
		log.FieldOperation, log.OpLabel,
		log.FieldTransactionID, id.String(),
		log.FieldCategoryID, label)
	s.events.publish(ctx, amqp.NewTransactionEvent(amqp.EventTransactionLabeled, t))
	return t, nil
}

// wrap adds context to unclassified failures and passes domain errors
// through unchanged.
func wrap(op string, err error) error {
	if core.IsDomainError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
