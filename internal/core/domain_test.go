package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-01-05", true},
		{"2024-02-29", true},
		{" 2024-12-31 ", true},
		{"2023-02-29", false},
		{"2024-02-30", false},
		{"2024-13-01", false},
		{"05/01/2024", false},
		{"", false},
	}
	for i, tc := range cases {
		_, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d (%q) expected ok, got %v", i, tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d (%q) expected error", i, tc.in)
		}
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, 1, 5)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-01-05"` {
		t.Fatalf("unexpected json %s", b)
	}

	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Compare(d) != 0 {
		t.Fatalf("expected %s, got %s", d, back)
	}
}

func TestNewCategory(t *testing.T) {
	c, err := NewCategory("  Food ")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if c.Name != "Food" {
		t.Errorf("expected trimmed name, got %q", c.Name)
	}
	if c.ID == uuid.Nil {
		t.Errorf("expected generated id")
	}

	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := NewCategory(name)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("name %q: expected validation error, got %v", name, err)
		}
	}
}

func TestTransactionInputParse(t *testing.T) {
	merchant := "Esselunga"
	good := TransactionInput{
		Date:        "2024-01-05",
		Description: "groceries",
		Amount:      "50000",
		Merchant:    &merchant,
	}
	tx, err := good.Parse()
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if tx.Date.String() != "2024-01-05" || tx.Description != "groceries" || tx.Amount.String() != "50000" {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if tx.Source != SourceManual {
		t.Errorf("expected default source %q, got %q", SourceManual, tx.Source)
	}
	if tx.Merchant == nil || *tx.Merchant != merchant {
		t.Errorf("merchant not preserved")
	}

	bads := []struct {
		name  string
		in    TransactionInput
		field string
	}{
		{"missing date", TransactionInput{Description: "a", Amount: "1"}, "date"},
		{"bad date", TransactionInput{Date: "2024-02-30", Description: "a", Amount: "1"}, "date"},
		{"empty description", TransactionInput{Date: "2024-01-01", Description: "  ", Amount: "1"}, "description"},
		{"missing amount", TransactionInput{Date: "2024-01-01", Description: "a"}, "amount"},
		{"nan amount", TransactionInput{Date: "2024-01-01", Description: "a", Amount: "NaN"}, "amount"},
	}
	for _, tc := range bads {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.in.Parse()
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, ve.Field)
			}
		})
	}
}

func TestTransactionClone(t *testing.T) {
	m := "shop"
	id := uuid.New()
	tx := Transaction{Merchant: &m, CategoryID: &id}
	c := tx.Clone()
	*c.Merchant = "other"
	*c.CategoryID = uuid.New()
	if *tx.Merchant != "shop" || *tx.CategoryID != id {
		t.Fatalf("clone shares pointers with original")
	}
}

func TestDomainErrors(t *testing.T) {
	if !errors.Is(NewValidationError("name", "x"), ErrValidation) {
		t.Error("validation error does not match sentinel")
	}
	nf := NewNotFoundError("Transaction", uuid.New())
	if !errors.Is(nf, ErrNotFound) || nf.Error() != "Transaction not found" {
		t.Errorf("unexpected not found error %v", nf)
	}
	conflict := NewCategoryInUseError(3)
	if !errors.Is(conflict, ErrConflict) {
		t.Error("conflict error does not match sentinel")
	}
	if conflict.Error() != "Category in use by 3 transactions. Use ?force=true to delete and detach." {
		t.Errorf("unexpected conflict message %q", conflict.Error())
	}
	if IsDomainError(errors.New("disk on fire")) {
		t.Error("plain error classified as domain error")
	}
}
