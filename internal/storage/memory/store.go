// Package memory is an in-process storage engine guarded by a RWMutex.
// Writes are recorded in an undo log so a failed unit of work leaves no
// trace. Values handed out are copies.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"expenses/internal/core"
	"expenses/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu         sync.RWMutex
	categories map[uuid.UUID]core.Category
	txs        map[uuid.UUID]core.Transaction
	// byCategory is the reverse index category id -> referencing transactions.
	byCategory map[uuid.UUID]map[uuid.UUID]struct{}
	seq        int64
	revision   uint64
}

func New() *Store {
	return &Store{
		categories: make(map[uuid.UUID]core.Category),
		txs:        make(map[uuid.UUID]core.Transaction),
		byCategory: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

func (s *Store) View(ctx context.Context, fn func(storage.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&readTx{s: s})
}

func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &writeTx{readTx: readTx{s: s}}
	committed := false
	defer func() {
		if !committed {
			tx.rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	s.revision++
	committed = true
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

type readTx struct {
	s *Store
}

func (r *readTx) Revision() (uint64, error) { return r.s.revision, nil }

func (r *readTx) GetCategory(id uuid.UUID) (core.Category, error) {
	c, ok := r.s.categories[id]
	if !ok {
		return core.Category{}, core.NewNotFoundError(storage.KindCategory, id)
	}
	return c, nil
}

func (r *readTx) ListCategories() ([]core.Category, error) {
	out := make([]core.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if li != lj {
			return li < lj
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *readTx) CategoryUsage() (map[uuid.UUID]int, error) {
	usage := make(map[uuid.UUID]int, len(r.s.byCategory))
	for id, refs := range r.s.byCategory {
		if len(refs) > 0 {
			usage[id] = len(refs)
		}
	}
	return usage, nil
}

func (r *readTx) GetTransaction(id uuid.UUID) (core.Transaction, error) {
	t, ok := r.s.txs[id]
	if !ok {
		return core.Transaction{}, core.NewNotFoundError(storage.KindTransaction, id)
	}
	return t.Clone(), nil
}

// visit walks the transactions matching f, using the reverse index when
// the filter pins a single category.
func (r *readTx) visit(f core.Filter, fn func(core.Transaction) error) error {
	if id, ok := f.Category.ID(); ok {
		for txID := range r.s.byCategory[id] {
			t := r.s.txs[txID]
			if f.Matches(t) {
				if err := fn(t); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, t := range r.s.txs {
		if f.Matches(t) {
			if err := fn(t); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *readTx) ListTransactions(f core.Filter) ([]core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var matched []core.Transaction
	_ = r.visit(f, func(t core.Transaction) error {
		matched = append(matched, t)
		return nil
	})
	sort.Slice(matched, func(i, j int) bool { return core.Less(matched[i], matched[j]) })

	if f.Offset >= len(matched) {
		return []core.Transaction{}, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}

	out := make([]core.Transaction, len(matched))
	for i, t := range matched {
		out[i] = t.Clone()
	}
	return out, nil
}

func (r *readTx) CountTransactions(f core.Filter) (int, error) {
	n := 0
	_ = r.visit(f, func(core.Transaction) error {
		n++
		return nil
	})
	return n, nil
}

func (r *readTx) EachTransaction(f core.Filter, fn func(core.Transaction) error) error {
	return r.visit(f, func(t core.Transaction) error {
		return fn(t.Clone())
	})
}

type writeTx struct {
	readTx
	undo []func()
}

func (w *writeTx) rollback() {
	for i := len(w.undo) - 1; i >= 0; i-- {
		w.undo[i]()
	}
	w.undo = nil
}

func (w *writeTx) index(txID uuid.UUID, categoryID *uuid.UUID) {
	if categoryID == nil {
		return
	}
	refs, ok := w.s.byCategory[*categoryID]
	if !ok {
		refs = make(map[uuid.UUID]struct{})
		w.s.byCategory[*categoryID] = refs
	}
	refs[txID] = struct{}{}
}

func (w *writeTx) unindex(txID uuid.UUID, categoryID *uuid.UUID) {
	if categoryID == nil {
		return
	}
	refs := w.s.byCategory[*categoryID]
	delete(refs, txID)
	if len(refs) == 0 {
		delete(w.s.byCategory, *categoryID)
	}
}

func (w *writeTx) InsertCategory(c core.Category) error {
	prev, existed := w.s.categories[c.ID]
	w.s.categories[c.ID] = c
	w.undo = append(w.undo, func() {
		if existed {
			w.s.categories[c.ID] = prev
		} else {
			delete(w.s.categories, c.ID)
		}
	})
	return nil
}

func (w *writeTx) DeleteCategory(id uuid.UUID) error {
	prev, ok := w.s.categories[id]
	if !ok {
		return core.NewNotFoundError(storage.KindCategory, id)
	}
	delete(w.s.categories, id)
	w.undo = append(w.undo, func() { w.s.categories[id] = prev })
	return nil
}

func (w *writeTx) DetachCategory(id uuid.UUID) (int, error) {
	refs := w.s.byCategory[id]
	ids := make([]uuid.UUID, 0, len(refs))
	for txID := range refs {
		ids = append(ids, txID)
	}
	for _, txID := range ids {
		if err := w.SetTransactionCategory(txID, nil); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (w *writeTx) InsertTransaction(t *core.Transaction) error {
	w.s.seq++
	t.Seq = w.s.seq
	stored := t.Clone()
	w.s.txs[t.ID] = stored
	w.index(t.ID, stored.CategoryID)
	w.undo = append(w.undo, func() {
		w.unindex(stored.ID, stored.CategoryID)
		delete(w.s.txs, stored.ID)
	})
	return nil
}

func (w *writeTx) DeleteTransaction(id uuid.UUID) error {
	prev, ok := w.s.txs[id]
	if !ok {
		return core.NewNotFoundError(storage.KindTransaction, id)
	}
	w.unindex(id, prev.CategoryID)
	delete(w.s.txs, id)
	w.undo = append(w.undo, func() {
		w.s.txs[id] = prev
		w.index(id, prev.CategoryID)
	})
	return nil
}

func (w *writeTx) SetTransactionCategory(id uuid.UUID, categoryID *uuid.UUID) error {
	prev, ok := w.s.txs[id]
	if !ok {
		return core.NewNotFoundError(storage.KindTransaction, id)
	}
	next := prev.Clone()
	if categoryID == nil {
		next.CategoryID = nil
	} else {
		c := *categoryID
		next.CategoryID = &c
	}

	w.unindex(id, prev.CategoryID)
	w.s.txs[id] = next
	w.index(id, next.CategoryID)
	w.undo = append(w.undo, func() {
		w.unindex(id, next.CategoryID)
		w.s.txs[id] = prev
		w.index(id, prev.CategoryID)
	})
	return nil
}
