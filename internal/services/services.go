// Package services implements the expense tracker operations on top of a
// storage.Store: the category store, the transaction ledger, the labeling
// workflow and the reporting engine.
package services

import (
	"context"
	"log/slog"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/cache"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/storage"
)

// EventPublisher receives a ledger event after each committed mutation.
// *amqp.Client satisfies it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

// Services bundles the four services sharing one store.
type Services struct {
	Categories *CategoryService
	Ledger     *LedgerService
	Labeling   *LabelingService
	Reports    *ReportService
}

// New wires every service to store. publisher and summaries may be nil.
func New(store storage.Store, publisher EventPublisher, summaries cache.Cache[core.Summary]) *Services {
	ledger := NewLedgerService(store, publisher)
	return &Services{
		Categories: NewCategoryService(store, publisher),
		Ledger:     ledger,
		Labeling:   NewLabelingService(ledger),
		Reports:    NewReportService(store, summaries),
	}
}

// eventSink publishes best-effort: the mutation has already committed, so
// a failed publication is logged and dropped.
type eventSink struct {
	publisher EventPublisher
}

func (s *eventSink) publish(ctx context.Context, event *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldOperation, log.OpPublish,
			log.FieldEventType, string(event.Type),
			log.FieldError, err)
	}
}
