// Package storagetest holds a conformance suite every storage engine must pass.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"expenses/internal/core"
	"expenses/internal/storage"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) storage.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"CategoryRoundTrip", testCategoryRoundTrip},
		{"TransactionRoundTrip", testTransactionRoundTrip},
		{"ListOrderingAndPaging", testListOrderingAndPaging},
		{"Filters", testFilters},
		{"UnicodeFolding", testUnicodeFolding},
		{"DetachAndDelete", testDetachAndDelete},
		{"RollbackOnError", testRollbackOnError},
		{"DetachIsAtomicForReaders", testDetachIsAtomicForReaders},
		{"RevisionAdvances", testRevisionAdvances},
		{"NotFound", testNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

func ptr[T any](v T) *T { return &v }

// NewTransaction builds a valid transaction for tests.
func NewTransaction(date core.Date, desc, amount string, cat *uuid.UUID) core.Transaction {
	return core.Transaction{
		ID:          uuid.New(),
		Date:        date,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		CategoryID:  cat,
		Source:      core.SourceManual,
		CreatedAt:   time.Date(2024, 2, 1, 10, 30, 0, 0, time.UTC),
	}
}

func insertCategory(t *testing.T, s storage.Store, name string) core.Category {
	t.Helper()
	c, err := core.NewCategory(name)
	require.NoError(t, err)
	require.NoError(t, s.Update(context.Background(), func(tx storage.Tx) error {
		return tx.InsertCategory(c)
	}))
	return c
}

func insertTransaction(t *testing.T, s storage.Store, tr core.Transaction) core.Transaction {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), func(tx storage.Tx) error {
		return tx.InsertTransaction(&tr)
	}))
	require.NotZero(t, tr.Seq)
	return tr
}

func list(t *testing.T, s storage.Store, f core.Filter) []core.Transaction {
	t.Helper()
	var out []core.Transaction
	require.NoError(t, s.View(context.Background(), func(tx storage.ReadTx) error {
		var err error
		out, err = tx.ListTransactions(f)
		return err
	}))
	return out
}

func descriptions(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.Description
	}
	return out
}

func testCategoryRoundTrip(t *testing.T, s storage.Store) {
	food := insertCategory(t, s, "food")
	bills := insertCategory(t, s, "Bills")
	insertCategory(t, s, "Auto")

	require.NoError(t, s.View(context.Background(), func(tx storage.ReadTx) error {
		got, err := tx.GetCategory(food.ID)
		require.NoError(t, err)
		assert.Equal(t, food, got)

		all, err := tx.ListCategories()
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"Auto", "Bills", "food"}, []string{all[0].Name, all[1].Name, all[2].Name})
		assert.Equal(t, bills.ID, all[1].ID)
		return nil
	}))
}

func testTransactionRoundTrip(t *testing.T, s storage.Store) {
	cat := insertCategory(t, s, "Food")
	tr := NewTransaction(core.NewDate(2024, 1, 5), "Lunch", "-12.50", &cat.ID)
	tr.Merchant = ptr("Trattoria")
	tr = insertTransaction(t, s, tr)

	require.NoError(t, s.View(context.Background(), func(tx storage.ReadTx) error {
		got, err := tx.GetTransaction(tr.ID)
		require.NoError(t, err)
		assert.Equal(t, tr.ID, got.ID)
		assert.Equal(t, "2024-01-05", got.Date.String())
		assert.Equal(t, "Lunch", got.Description)
		assert.True(t, tr.Amount.Equal(got.Amount), "amount %s != %s", got.Amount, tr.Amount)
		require.NotNil(t, got.Merchant)
		assert.Equal(t, "Trattoria", *got.Merchant)
		require.NotNil(t, got.CategoryID)
		assert.Equal(t, cat.ID, *got.CategoryID)
		assert.Equal(t, core.SourceManual, got.Source)
		assert.True(t, tr.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, tr.Seq, got.Seq)

		usage, err := tx.CategoryUsage()
		require.NoError(t, err)
		assert.Equal(t, map[uuid.UUID]int{cat.ID: 1}, usage)
		return nil
	}))
}

func testListOrderingAndPaging(t *testing.T, s storage.Store) {
	insertTransaction(t, s, NewTransaction(core.NewDate(2024, 1, 1), "a", "1", nil))
	insertTransaction(t, s, NewTransaction(core.NewDate(2024, 1, 3), "b", "1", nil))
	insertTransaction(t, s, NewTransaction(core.NewDate(2024, 1, 3), "c", "1", nil))
	insertTransaction(t, s, NewTransaction(core.NewDate(2024, 1, 2), "d", "1", nil))

	all := list(t, s, core.Filter{})
	assert.Equal(t, []string{"c", "b", "d", "a"}, descriptions(all))

	assert.Equal(t, []string{"c", "b"}, descriptions(list(t, s, core.Filter{Limit: 2})))
	assert.Equal(t, []string{"d", "a"}, descriptions(list(t, s, core.Filter{Limit: 2, Offset: 2})))
	assert.Equal(t, []string{"a"}, descriptions(list(t, s, core.Filter{Offset: 3})))
	assert.Empty(t, list(t, s, core.Filter{Offset: 10}))

	cursor := core.CursorOf(all[1])
	assert.Equal(t, []string{"d", "a"}, descriptions(list(t, s, core.Filter{After: &cursor})))
}

func testFilters(t *testing.T, s storage.Store) {
	cat := insertCategory(t, s, "Food")
	insertTransaction(t, s, NewTransaction(core.NewDate(2024, 1, 5), "Pizza Margherita", "10", &cat.ID))
	insertTransaction(t, s, NewTransaction(core.NewDate(2024, 1, 10), "Bus pass", "20", nil))
	insertTransaction(t, s, NewTransaction(core.NewDate(2024, 2, 1), "pizza night", "30", nil))
	insertTransaction(t, s, NewTransaction(core.NewDate(2024, 2, 2), "100% juice_box", "4", nil))

	start, end := core.NewDate(2024, 1, 5), core.NewDate(2024, 1, 10)
	assert.Equal(t, []string{"Bus pass", "Pizza Margherita"}, descriptions(list(t, s, core.Filter{Start: &start, End: &end})))
	assert.Equal(t, []string{"pizza night", "Pizza Margherita"}, descriptions(list(t, s, core.Filter{Q: "PIZZA"})))
	assert.Equal(t, []string{"100% juice_box"}, descriptions(list(t, s, core.Filter{Q: "0% j"})))
	assert.Equal(t, []string{"100% juice_box"}, descriptions(list(t, s, core.Filter{Q: "_"})))
	assert.Equal(t, []string{"Pizza Margherita"}, descriptions(list(t, s, core.Filter{Category: core.InCategory(cat.ID)})))
	assert.Len(t, list(t, s, core.Filter{Category: core.Unlabeled()}), 3)

	require.NoError(t, s.View(context.Background(), func(tx storage.ReadTx) error {
		n, err := tx.CountTransactions(core.Filter{Q: "pizza"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		total := decimal.Zero
		err = tx.EachTransaction(core.Filter{Start: &start}, func(tr core.Transaction) error {
			total = total.Add(tr.Amount)
			return nil
		})
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(64)), "got %s", total)

		stop := errors.New("stop")
		err = tx.EachTransaction(core.Filter{}, func(core.Transaction) error { return stop })
		assert.ErrorIs(t, err, stop)
		return nil
	}))
}

func testUnicodeFolding(t *testing.T, s storage.Store) {
	insertCategory(t, s, "Ärmel")
	insertCategory(t, s, "ärger")
	insertCategory(t, s, "Zucker")
	insertTransaction(t, s, NewTransaction(core.NewDate(2024, 1, 5), "ÉCOLE fees", "100", nil))
	insertTransaction(t, s, NewTransaction(core.NewDate(2024, 1, 6), "Straße", "5", nil))

	assert.Equal(t, []string{"ÉCOLE fees"}, descriptions(list(t, s, core.Filter{Q: "école"})))
	assert.Equal(t, []string{"ÉCOLE fees"}, descriptions(list(t, s, core.Filter{Q: "ÉCOLE"})))
	assert.Equal(t, []string{"Straße"}, descriptions(list(t, s, core.Filter{Q: "STRAßE"})))

	require.NoError(t, s.View(context.Background(), func(tx storage.ReadTx) error {
		all, err := tx.ListCategories()
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"Zucker", "ärger", "Ärmel"}, []string{all[0].Name, all[1].Name, all[2].Name})
		return nil
	}))
}

func testDetachAndDelete(t *testing.T, s storage.Store) {
	food := insertCategory(t, s, "Food")
	a := insertTransaction(t, s, NewTransaction(core.NewDate(2024, 1, 5), "A", "1", &food.ID))
	b := insertTransaction(t, s, NewTransaction(core.NewDate(2024, 1, 6), "B", "1", &food.ID))

	var detached int
	require.NoError(t, s.Update(context.Background(), func(tx storage.Tx) error {
		var err error
		if detached, err = tx.DetachCategory(food.ID); err != nil {
			return err
		}
		return tx.DeleteCategory(food.ID)
	}))
	assert.Equal(t, 2, detached)

	require.NoError(t, s.View(context.Background(), func(tx storage.ReadTx) error {
		for _, id := range []uuid.UUID{a.ID, b.ID} {
			got, err := tx.GetTransaction(id)
			require.NoError(t, err)
			assert.Nil(t, got.CategoryID)
		}
		_, err := tx.GetCategory(food.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)

		usage, err := tx.CategoryUsage()
		require.NoError(t, err)
		assert.Empty(t, usage)
		return nil
	}))

	require.NoError(t, s.Update(context.Background(), func(tx storage.Tx) error {
		return tx.DeleteTransaction(a.ID)
	}))
	assert.Equal(t, []string{"B"}, descriptions(list(t, s, core.Filter{})))
}

func testRollbackOnError(t *testing.T, s storage.Store) {
	food := insertCategory(t, s, "Food")
	a := insertTransaction(t, s, NewTransaction(core.NewDate(2024, 1, 5), "A", "1", &food.ID))

	boom := errors.New("boom")
	err := s.Update(context.Background(), func(tx storage.Tx) error {
		if _, err := tx.DetachCategory(food.ID); err != nil {
			return err
		}
		if err := tx.DeleteCategory(food.ID); err != nil {
			return err
		}
		extra := NewTransaction(core.NewDate(2024, 1, 7), "extra", "1", nil)
		if err := tx.InsertTransaction(&extra); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.View(context.Background(), func(tx storage.ReadTx) error {
		_, err := tx.GetCategory(food.ID)
		require.NoError(t, err)
		got, err := tx.GetTransaction(a.ID)
		require.NoError(t, err)
		require.NotNil(t, got.CategoryID)
		assert.Equal(t, food.ID, *got.CategoryID)
		n, err := tx.CountTransactions(core.Filter{})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		usage, err := tx.CategoryUsage()
		require.NoError(t, err)
		assert.Equal(t, 1, usage[food.ID])
		return nil
	}))
}

// testDetachIsAtomicForReaders runs readers while a category is detached
// and deleted in one Update. Every view must see either the category with
// all of its references or neither.
func testDetachIsAtomicForReaders(t *testing.T, s storage.Store) {
	ctx := context.Background()
	food := insertCategory(t, s, "Food")
	const n = 25
	for i := range n {
		insertTransaction(t, s, NewTransaction(core.NewDate(2024, 1, 1+i%28), fmt.Sprintf("tx %d", i), "1", &food.ID))
	}

	done := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	for range 4 {
		g.Go(func() error {
			for {
				err := s.View(gctx, func(tx storage.ReadTx) error {
					return checkDetachState(tx, food.ID, n)
				})
				if err != nil {
					return err
				}
				select {
				case <-done:
					return nil
				default:
				}
			}
		})
	}
	g.Go(func() error {
		defer close(done)
		time.Sleep(5 * time.Millisecond)
		return s.Update(gctx, func(tx storage.Tx) error {
			detached, err := tx.DetachCategory(food.ID)
			if err != nil {
				return err
			}
			if detached != n {
				return fmt.Errorf("detached %d of %d", detached, n)
			}
			return tx.DeleteCategory(food.ID)
		})
	})
	require.NoError(t, g.Wait())

	require.NoError(t, s.View(ctx, func(tx storage.ReadTx) error {
		_, err := tx.GetCategory(food.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
		return checkDetachState(tx, food.ID, n)
	}))
}

func checkDetachState(tx storage.ReadTx, id uuid.UUID, n int) error {
	usage, err := tx.CategoryUsage()
	if err != nil {
		return err
	}
	_, err = tx.GetCategory(id)
	switch {
	case err == nil:
		if usage[id] != n {
			return fmt.Errorf("category present with %d of %d references", usage[id], n)
		}
		return nil
	case errors.Is(err, core.ErrNotFound):
		if usage[id] != 0 {
			return fmt.Errorf("category deleted but %d references remain", usage[id])
		}
		return tx.EachTransaction(core.Filter{}, func(tr core.Transaction) error {
			if tr.CategoryID != nil && *tr.CategoryID == id {
				return fmt.Errorf("transaction %s references deleted category", tr.ID)
			}
			return nil
		})
	default:
		return err
	}
}

func testRevisionAdvances(t *testing.T, s storage.Store) {
	revision := func() uint64 {
		var rev uint64
		require.NoError(t, s.View(context.Background(), func(tx storage.ReadTx) error {
			var err error
			rev, err = tx.Revision()
			return err
		}))
		return rev
	}

	before := revision()
	insertCategory(t, s, "Food")
	after := revision()
	assert.Greater(t, after, before)

	_ = s.Update(context.Background(), func(storage.Tx) error { return errors.New("fail") })
	assert.Equal(t, after, revision())
}

func testNotFound(t *testing.T, s storage.Store) {
	missing := uuid.New()
	err := s.Update(context.Background(), func(tx storage.Tx) error {
		return tx.DeleteTransaction(missing)
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = s.Update(context.Background(), func(tx storage.Tx) error {
		return tx.SetTransactionCategory(missing, nil)
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = s.Update(context.Background(), func(tx storage.Tx) error {
		return tx.DeleteCategory(missing)
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = s.View(context.Background(), func(tx storage.ReadTx) error {
		_, err := tx.GetTransaction(missing)
		return err
	})
	var nf *core.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, storage.KindTransaction, nf.Kind)
}
