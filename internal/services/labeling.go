package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"expenses/internal/core"
)

// LabelingService surfaces unlabeled transactions and assigns categories.
// It only ever mutates the category reference.
type LabelingService struct {
	ledger *LedgerService
}

func NewLabelingService(ledger *LedgerService) *LabelingService {
	return &LabelingService{ledger: ledger}
}

// ListUnlabeled returns up to limit unlabeled transactions in ledger order,
// optionally narrowed by a description search. A non-positive limit uses
// the default.
func (s *LabelingService) ListUnlabeled(ctx context.Context, limit int, q string) ([]core.Transaction, error) {
	f := core.Filter{
		Q:        q,
		Category: core.Unlabeled(),
		Limit:    core.ClampLimit(limit, core.DefaultUnlabeledLimit),
	}
	out := make([]core.Transaction, 0, f.Limit)
	for t, err := range s.ledger.Query(ctx, f) {
		if err != nil {
			return nil, fmt.Errorf("list unlabeled: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Assign sets the category of a transaction; a nil categoryID clears it.
func (s *LabelingService) Assign(ctx context.Context, transactionID uuid.UUID, categoryID *uuid.UUID) (core.Transaction, error) {
	return s.ledger.SetCategory(ctx, transactionID, categoryID)
}
