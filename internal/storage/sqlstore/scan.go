package sqlstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"expenses/internal/core"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		date       dateValue
		createdAt  timeValue
		merchant   sql.NullString
		categoryID uuid.NullUUID
	)
	err := row.Scan(&t.Seq, &t.ID, &date, &t.Description, &t.Amount, &merchant, &categoryID, &t.Source, &createdAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Date = core.Date(date)
	t.CreatedAt = time.Time(createdAt)
	if merchant.Valid {
		m := merchant.String
		t.Merchant = &m
	}
	if categoryID.Valid {
		id := categoryID.UUID
		t.CategoryID = &id
	}
	return t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// dateValue scans a DATE column (time.Time from lib/pq) or a TEXT column
// (string from SQLite) into a UTC calendar date.
type dateValue core.Date

func (d *dateValue) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = dateValue(core.NewDate(v.Year(), int(v.Month()), v.Day()))
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("unsupported date value %T", src)
	}
}

func (d *dateValue) parse(s string) error {
	if len(s) > len(core.DateLayout) {
		s = s[:len(core.DateLayout)]
	}
	parsed, err := core.ParseDate(s)
	if err != nil {
		return err
	}
	*d = dateValue(parsed)
	return nil
}

// timeValue scans TIMESTAMPTZ (lib/pq) or RFC 3339 TEXT (SQLite).
type timeValue time.Time

func (t *timeValue) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*t = timeValue(v.UTC())
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp value %T", src)
	}
}

func (t *timeValue) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	*t = timeValue(parsed.UTC())
	return nil
}
