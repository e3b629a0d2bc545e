package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

// SourceManual is the provenance tag applied when a transaction carries none.
const SourceManual = "manual"

type (
	// Date is a calendar date without time-of-day, stored at UTC midnight.
	Date struct {
		time.Time
	}

	Category struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}

	Transaction struct {
		ID          uuid.UUID       `json:"id"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Merchant    *string         `json:"merchant"`
		CategoryID  *uuid.UUID      `json:"category_id"`
		Source      string          `json:"source"`
		CreatedAt   time.Time       `json:"created_at"`

		// Seq is the insertion sequence assigned by the store. It breaks
		// ties between transactions sharing a date.
		Seq int64 `json:"-"`
	}

	// TransactionInput is an unvalidated record as received from a caller.
	TransactionInput struct {
		Date        string
		Description string
		Amount      string
		Merchant    *string
		CategoryID  *uuid.UUID
		Source      string
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. Out-of-range days such as
// 2024-02-30 are rejected.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after o.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NewCategory validates name and returns a category with a fresh id.
// Surrounding whitespace is trimmed.
func NewCategory(name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, NewValidationError("name", "name is required")
	}
	return Category{ID: uuid.New(), Name: name}, nil
}

// Parse validates the input and builds a Transaction without id or
// sequence. Referential checks on CategoryID are left to the ledger.
func (in TransactionInput) Parse() (Transaction, error) {
	if strings.TrimSpace(in.Date) == "" {
		return Transaction{}, NewValidationError("date", "date is required")
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return Transaction{}, NewValidationError("date", err.Error())
	}
	if strings.TrimSpace(in.Description) == "" {
		return Transaction{}, NewValidationError("description", "description is required")
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Transaction{}, err
	}

	source := strings.TrimSpace(in.Source)
	if source == "" {
		source = SourceManual
	}

	return Transaction{
		Date:        date,
		Description: in.Description,
		Amount:      amount,
		Merchant:    in.Merchant,
		CategoryID:  in.CategoryID,
		Source:      source,
	}, nil
}

// IsLabeled reports whether the transaction references a category.
func (t Transaction) IsLabeled() bool {
	return t.CategoryID != nil
}

// Clone returns a copy that shares no pointers with t.
func (t Transaction) Clone() Transaction {
	c := t
	if t.Merchant != nil {
		m := *t.Merchant
		c.Merchant = &m
	}
	if t.CategoryID != nil {
		id := *t.CategoryID
		c.CategoryID = &id
	}
	return c
}
