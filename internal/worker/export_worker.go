// Package worker turns ledger events into spreadsheet journal rows and
// periodically rewrites the summary tab.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/sheets"
)

// EventSource delivers ledger events to handler until ctx ends.
// *amqp.Client satisfies it.
type EventSource interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// SummarySource computes the report exported to the summary tab.
type SummarySource interface {
	Summarize(ctx context.Context, start, end *core.Date) (core.Summary, error)
}

type ExportWorker struct {
	journal   sheets.JournalWriter
	summaries SummarySource
	summary   sheets.SummaryWriter
	interval  time.Duration
	now       func() time.Time
}

// NewExportWorker creates a worker. summaries and summary may be nil, which
// disables the periodic export.
func NewExportWorker(journal sheets.JournalWriter, summaries SummarySource, summary sheets.SummaryWriter, interval time.Duration) *ExportWorker {
	return &ExportWorker{
		journal:   journal,
		summaries: summaries,
		summary:   summary,
		interval:  interval,
		now:       time.Now,
	}
}

// HandleEvent appends one journal row for the event.
func (w *ExportWorker) HandleEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	row := JournalRowFromEvent(e)
	if err := w.journal.AppendJournal(ctx, []sheets.JournalRow{row}); err != nil {
		return fmt.Errorf("append journal row: %w", err)
	}

	slog.InfoContext(ctx, "Ledger event exported",
		log.FieldComponent, log.ComponentWorker,
		log.FieldEventType, string(e.Type),
		log.FieldTransactionID, row.TransactionID)
	return nil
}

// ExportSummary rewrites the summary tab with the all-time report.
func (w *ExportWorker) ExportSummary(ctx context.Context) error {
	s, err := w.summaries.Summarize(ctx, nil, nil)
	if err != nil {
		return fmt.Errorf("compute summary: %w", err)
	}
	if err := w.summary.WriteSummary(ctx, s, w.now()); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	slog.InfoContext(ctx, "Summary exported",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpExport,
		log.FieldCount, s.Totals.TxCount)
	return nil
}

func (w *ExportWorker) exportsSummary() bool {
	return w.summaries != nil && w.summary != nil && w.interval > 0
}

// Run consumes events from source and, when configured, exports the
// summary at start-up and then every interval. A failed export is logged
// and retried on the next tick. Run returns nil once ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, source EventSource) error {
	g, ctx := errgroup.WithContext(ctx)

	if source != nil {
		g.Go(func() error {
			return source.ConsumeLedgerEvents(ctx, w.HandleEvent)
		})
	}

	if w.exportsSummary() {
		g.Go(func() error {
			ticker := time.NewTicker(w.interval)
			defer ticker.Stop()
			for {
				if err := w.ExportSummary(ctx); err != nil && ctx.Err() == nil {
					slog.ErrorContext(ctx, "Periodic summary export failed",
						log.FieldComponent, log.ComponentWorker,
						log.FieldError, err)
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// JournalRowFromEvent flattens an event into journal cells.
func JournalRowFromEvent(e *amqp.LedgerEvent) sheets.JournalRow {
	row := sheets.JournalRow{
		Timestamp: e.Timestamp,
		Event:     string(e.Type),
	}
	if e.TransactionID != nil {
		row.TransactionID = e.TransactionID.String()
	}
	if e.CategoryID != nil {
		row.CategoryID = e.CategoryID.String()
	}
	if t := e.Transaction; t != nil {
		row.Date = t.Date.String()
		row.Description = t.Description
		row.Amount = t.Amount.String()
	}
	if c := e.Category; c != nil {
		row.Detail = c.Name
		if e.Detached > 0 {
			row.Detail = fmt.Sprintf("%s (detached %d)", c.Name, e.Detached)
		}
	}
	return row
}
