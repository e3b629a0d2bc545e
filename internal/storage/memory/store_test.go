package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/core"
	"expenses/internal/storage"
	"expenses/internal/storage/storagetest"
)

func TestStoreConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}

func TestReturnedValuesAreCopies(t *testing.T) {
	s := New()
	merchant := "shop"
	tr := storagetest.NewTransaction(core.NewDate(2024, 1, 1), "a", "1", nil)
	tr.Merchant = &merchant
	require.NoError(t, s.Update(context.Background(), func(tx storage.Tx) error {
		return tx.InsertTransaction(&tr)
	}))
	merchant = "mutated"

	require.NoError(t, s.View(context.Background(), func(tx storage.ReadTx) error {
		got, err := tx.GetTransaction(tr.ID)
		require.NoError(t, err)
		assert.Equal(t, "shop", *got.Merchant)
		*got.Merchant = "changed"
		again, err := tx.GetTransaction(tr.ID)
		require.NoError(t, err)
		assert.Equal(t, "shop", *again.Merchant)
		return nil
	}))
}

func TestConcurrentInserts(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr := storagetest.NewTransaction(core.NewDate(2024, 1, 1), "x", "1", nil)
			_ = s.Update(context.Background(), func(tx storage.Tx) error {
				return tx.InsertTransaction(&tr)
			})
		}()
	}
	wg.Wait()

	require.NoError(t, s.View(context.Background(), func(tx storage.ReadTx) error {
		n, err := tx.CountTransactions(core.Filter{})
		require.NoError(t, err)
		assert.Equal(t, 50, n)
		rev, err := tx.Revision()
		require.NoError(t, err)
		assert.Equal(t, uint64(50), rev)
		return nil
	}))
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New().View(ctx, func(storage.ReadTx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
