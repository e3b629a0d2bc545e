package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"expenses/internal/cache"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/storage"
)

// ReportService aggregates ledger slices. Summaries are cached per store
// revision, so any committed write makes older entries unreachable.
type ReportService struct {
	store     storage.Store
	summaries cache.Cache[core.Summary]
}

// NewReportService creates the engine. summaries may be nil to disable caching.
func NewReportService(store storage.Store, summaries cache.Cache[core.Summary]) *ReportService {
	return &ReportService{store: store, summaries: summaries}
}

func summaryKey(revision uint64, start, end *core.Date) string {
	return fmt.Sprintf("summary:%d:%s:%s", revision, dateKey(start), dateKey(end))
}

func dateKey(d *core.Date) string {
	if d == nil {
		return "*"
	}
	return d.String()
}

// Summarize groups the transactions dated within [start, end] by category.
// Nil bounds are open. An empty range yields no groups and zero totals.
func (s *ReportService) Summarize(ctx context.Context, start, end *core.Date) (core.Summary, error) {
	var (
		summary core.Summary
		hit     bool
	)
	err := s.store.View(ctx, func(tx storage.ReadTx) error {
		rev, err := tx.Revision()
		if err != nil {
			return err
		}
		key := summaryKey(rev, start, end)
		if s.summaries != nil {
			if summary, hit = s.summaries.Get(key); hit {
				return nil
			}
		}

		names, err := categoryNames(tx)
		if err != nil {
			return err
		}
		b := core.NewSummaryBuilder()
		if err := tx.EachTransaction(core.Filter{Start: start, End: end}, func(t core.Transaction) error {
			b.Add(t)
			return nil
		}); err != nil {
			return err
		}
		summary = b.Build(names)

		if s.summaries != nil {
			s.summaries.Set(key, summary)
		}
		return nil
	})
	if err != nil {
		return core.Summary{}, fmt.Errorf("summarize: %w", err)
	}

	slog.DebugContext(ctx, "Summary computed",
		log.FieldComponent, log.ComponentReports,
		log.FieldOperation, log.OpSummarize,
		log.FieldCount, summary.Totals.TxCount,
		"cached", hit)
	return copySummary(summary), nil
}

// Daily returns per-date totals within [start, end], ascending by date.
func (s *ReportService) Daily(ctx context.Context, start, end *core.Date) ([]core.DailyTotal, error) {
	b := core.NewDailyBuilder()
	err := s.store.View(ctx, func(tx storage.ReadTx) error {
		return tx.EachTransaction(core.Filter{Start: start, End: end}, func(t core.Transaction) error {
			b.Add(t)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	return b.Build(), nil
}

func categoryNames(tx storage.ReadTx) (map[uuid.UUID]string, error) {
	cats, err := tx.ListCategories()
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}

// copySummary detaches the result from the cached value.
func copySummary(s core.Summary) core.Summary {
	items := make([]core.SummaryGroup, len(s.Items))
	copy(items, s.Items)
	s.Items = items
	return s
}
