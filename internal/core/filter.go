package core

import (
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultListLimit      = 20
	DefaultUnlabeledLimit = 50
	MaxListLimit          = 200
)

type categoryMode int

const (
	categoryAny categoryMode = iota
	categoryNone
	categoryID
)

// CategoryFilter restricts a query by category reference.
// The zero value matches every transaction.
type CategoryFilter struct {
	mode categoryMode
	id   uuid.UUID
}

func AnyCategory() CategoryFilter { return CategoryFilter{} }

// Unlabeled matches transactions whose category reference is null.
func Unlabeled() CategoryFilter { return CategoryFilter{mode: categoryNone} }

func InCategory(id uuid.UUID) CategoryFilter { return CategoryFilter{mode: categoryID, id: id} }

func (f CategoryFilter) IsAny() bool { return f.mode == categoryAny }

func (f CategoryFilter) IsUnlabeled() bool { return f.mode == categoryNone }

// ID returns the category id when the filter targets a single category.
func (f CategoryFilter) ID() (uuid.UUID, bool) {
	return f.id, f.mode == categoryID
}

func (f CategoryFilter) matches(t Transaction) bool {
	switch f.mode {
	case categoryNone:
		return t.CategoryID == nil
	case categoryID:
		return t.CategoryID != nil && *t.CategoryID == f.id
	default:
		return true
	}
}

// Cursor is a keyset position in the ledger ordering.
type Cursor struct {
	Date Date
	Seq  int64
}

func CursorOf(t Transaction) Cursor {
	return Cursor{Date: t.Date, Seq: t.Seq}
}

// Precedes reports whether the cursor position comes strictly before t.
func (c Cursor) Precedes(t Transaction) bool {
	switch t.Date.Compare(c.Date) {
	case -1:
		return true
	case 0:
		return t.Seq < c.Seq
	default:
		return false
	}
}

// Filter selects ledger transactions. Nil bounds are unbounded and both
// bounds are inclusive. Limit 0 means no cap.
type Filter struct {
	Q        string
	Start    *Date
	End      *Date
	Category CategoryFilter
	Limit    int
	Offset   int
	After    *Cursor
}

func (f Filter) Validate() error {
	if f.Limit < 0 {
		return NewValidationError("limit", "limit must not be negative")
	}
	if f.Offset < 0 {
		return NewValidationError("offset", "offset must not be negative")
	}
	return nil
}

// Matches applies every predicate of the filter except Limit and Offset.
func (f Filter) Matches(t Transaction) bool {
	if f.Start != nil && t.Date.Compare(*f.Start) < 0 {
		return false
	}
	if f.End != nil && t.Date.Compare(*f.End) > 0 {
		return false
	}
	if !f.Category.matches(t) {
		return false
	}
	if f.After != nil && !f.After.Precedes(t) {
		return false
	}
	if q := strings.TrimSpace(f.Q); q != "" {
		if !strings.Contains(strings.ToLower(t.Description), strings.ToLower(q)) {
			return false
		}
	}
	return true
}

// Less orders transactions by date descending, then newest insertion first.
func Less(a, b Transaction) bool {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c > 0
	}
	return a.Seq > b.Seq
}

// ClampLimit applies the default when limit is unset and caps it at MaxListLimit.
func ClampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
