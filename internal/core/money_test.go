package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	ok := map[string]string{
		"12.34":  "12.34",
		"12,34":  "12.34",
		"0":      "0",
		"-5":     "-5",
		" 50000": "50000",
		"1e3":    "1000",
		"0.1":    "0.1",
		"1e-10":  "0.0000000001",
	}
	for in, exp := range ok {
		got, err := ParseAmount(in)
		if err != nil {
			t.Fatalf("ParseAmount(%q) unexpected error: %v", in, err)
		}
		if !got.Equal(decimal.RequireFromString(exp)) {
			t.Fatalf("ParseAmount(%q) = %s, want %s", in, got, exp)
		}
	}

	bad := []string{"", "abc", "NaN", "Inf", "1.2.3", "1e20", "1e-11", "0.00000000001"}
	for _, in := range bad {
		if _, err := ParseAmount(in); !errors.Is(err, ErrValidation) {
			t.Fatalf("ParseAmount(%q) expected validation error, got %v", in, err)
		}
	}
}

func TestParseAmountRejectsExtremeExponentsQuickly(t *testing.T) {
	for _, in := range []string{"1e-100000000", "1e100000000", "-1E-2147483648", "0e2147483647"} {
		done := make(chan error, 1)
		go func() {
			_, err := ParseAmount(in)
			done <- err
		}()
		select {
		case err := <-done:
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("ParseAmount(%q) expected validation error, got %v", in, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("ParseAmount(%q) did not return", in)
		}
	}
}

func TestSumIsExact(t *testing.T) {
	tenth := decimal.RequireFromString("0.1")
	amounts := make([]decimal.Decimal, 1000)
	for i := range amounts {
		amounts[i] = tenth
	}
	if got := Sum(amounts...); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected exact 100, got %s", got)
	}
}

func TestAmountMarshalsAsNumber(t *testing.T) {
	b, err := json.Marshal(struct {
		Amount decimal.Decimal `json:"amount"`
	}{decimal.RequireFromString("12.5")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"amount":12.5}` {
		t.Fatalf("unexpected json %s", b)
	}
}
