package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/storage"
)

// DefaultCategoryNames are inserted by SeedDefaults when missing.
var DefaultCategoryNames = []string{"Food", "Transport", "Bills", "Entertainment", "Groceries", "Other"}

// CategoryService owns the set of categories.
type CategoryService struct {
	store  storage.Store
	events *eventSink
}

func NewCategoryService(store storage.Store, publisher EventPublisher) *CategoryService {
	return &CategoryService{store: store, events: &eventSink{publisher: publisher}}
}

// Create validates name and stores a new category.
func (s *CategoryService) Create(ctx context.Context, name string) (core.Category, error) {
	c, err := core.NewCategory(name)
	if err != nil {
		return core.Category{}, err
	}
	if err := s.store.Update(ctx, func(tx storage.Tx) error {
		return tx.InsertCategory(c)
	}); err != nil {
		return core.Category{}, wrap("create category", err)
	}

	slog.InfoContext(ctx, "Category created",
		log.FieldComponent, log.ComponentCategories,
		log.FieldCategoryID, c.ID.String(),
		log.FieldCategoryName, c.Name)
	s.events.publish(ctx, amqp.NewCategoryEvent(amqp.EventCategoryCreated, c, 0))
	return c, nil
}

// List returns every category sorted by name.
func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	var out []core.Category
	err := s.store.View(ctx, func(tx storage.ReadTx) error {
		var err error
		out, err = tx.ListCategories()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// Delete removes a category. Referencing transactions block the delete
// with a ConflictError unless detach is set, in which case their
// reference is cleared in the same unit of work. It returns the number of
// detached transactions.
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID, detach bool) (int, error) {
	var (
		deleted  core.Category
		detached int
	)
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		c, err := tx.GetCategory(id)
		if err != nil {
			return err
		}
		refs, err := tx.CountTransactions(core.Filter{Category: core.InCategory(id)})
		if err != nil {
			return err
		}
		if refs > 0 {
			if !detach {
				return core.NewCategoryInUseError(refs)
			}
			if detached, err = tx.DetachCategory(id); err != nil {
				return err
			}
		}
		deleted = c
		return tx.DeleteCategory(id)
	})
	if err != nil {
		return 0, wrap("delete category", err)
	}

	slog.InfoContext(ctx, "Category deleted",
		log.FieldComponent, log.ComponentCategories,
		log.FieldCategoryID, id.String(),
		log.FieldDetached, detached)
	s.events.publish(ctx, amqp.NewCategoryEvent(amqp.EventCategoryDeleted, deleted, detached))
	return detached, nil
}

// Usage counts referencing transactions for every category, including
// categories with none.
func (s *CategoryService) Usage(ctx context.Context) ([]core.CategoryUsage, error) {
	var out []core.CategoryUsage
	err := s.store.View(ctx, func(tx storage.ReadTx) error {
		cats, err := tx.ListCategories()
		if err != nil {
			return err
		}
		counts, err := tx.CategoryUsage()
		if err != nil {
			return err
		}
		out = make([]core.CategoryUsage, 0, len(cats))
		for _, c := range cats {
			out = append(out, core.CategoryUsage{CategoryID: c.ID, Name: c.Name, Count: counts[c.ID]})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("category usage: %w", err)
	}
	return out, nil
}

// SeedDefaults inserts each default category whose name (compared
// case-insensitively) is not present yet, and returns how many were added.
func (s *CategoryService) SeedDefaults(ctx context.Context) (int, error) {
	var created []core.Category
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		existing, err := tx.ListCategories()
		if err != nil {
			return err
		}
		seen := make(map[string]bool, len(existing))
		for _, c := range existing {
			seen[strings.ToLower(c.Name)] = true
		}
		for _, name := range DefaultCategoryNames {
			if seen[strings.ToLower(name)] {
				continue
			}
			c, err := core.NewCategory(name)
			if err != nil {
				return err
			}
			if err := tx.InsertCategory(c); err != nil {
				return err
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed categories: %w", err)
	}

	slog.InfoContext(ctx, "Default categories seeded",
		log.FieldComponent, log.ComponentCategories,
		log.FieldOperation, log.OpSeed,
		log.FieldCount, len(created))
	for _, c := range created {
		s.events.publish(ctx, amqp.NewCategoryEvent(amqp.EventCategoryCreated, c, 0))
	}
	return len(created), nil
}
