package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"expenses/internal/core"
)

type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionDeleted EventType = "transaction.deleted"
	EventTransactionLabeled EventType = "transaction.labeled"
	EventCategoryCreated    EventType = "category.created"
	EventCategoryDeleted    EventType = "category.deleted"
)

// LedgerEvent describes one committed ledger mutation.
// Transaction events carry a snapshot of the record after the change
// (before it, for deletions).
type LedgerEvent struct {
	Type          EventType         `json:"type"`
	TransactionID *uuid.UUID        `json:"transaction_id,omitempty"`
	CategoryID    *uuid.UUID        `json:"category_id,omitempty"`
	Transaction   *core.Transaction `json:"transaction,omitempty"`
	Category      *core.Category    `json:"category,omitempty"`
	Detached      int               `json:"detached,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// NewTransactionEvent creates an event for a transaction mutation
func NewTransactionEvent(typ EventType, t core.Transaction) *LedgerEvent {
	snapshot := t.Clone()
	id := t.ID
	return &LedgerEvent{
		Type:          typ,
		TransactionID: &id,
		CategoryID:    snapshot.CategoryID,
		Transaction:   &snapshot,
		Timestamp:     time.Now().UTC(),
	}
}

// NewCategoryEvent creates an event for a category mutation
func NewCategoryEvent(typ EventType, c core.Category, detached int) *LedgerEvent {
	id := c.ID
	return &LedgerEvent{
		Type:       typ,
		CategoryID: &id,
		Category:   &c,
		Detached:   detached,
		Timestamp:  time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON creates an event from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
