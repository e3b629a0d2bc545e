// Package core provides money parsing and handling utilities.
//
// Amounts are shopspring decimals so sums over many small values stay exact.
// They serialize as bare JSON numbers.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmount bounds the magnitude of a single transaction amount.
var maxAmount = decimal.New(1, 15)

const (
	// MaxAmountScale is the largest number of fractional digits kept.
	MaxAmountScale = 10
	// maxAmountExponent is the largest exponent a value below maxAmount
	// can carry with a non-zero coefficient.
	maxAmountExponent = 15
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseAmount converts a signed decimal string to an exact amount.
//
// It accepts dot (12.34) or, when no dot is present, comma (12,34) as the
// decimal separator. Negative values are valid refunds. NaN, infinities and
// magnitudes above 10^15 are rejected, as are values with more than
// MaxAmountScale fractional digits. The exponent is checked before any
// comparison because comparing rescales both operands.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("-5")     -> -5, nil
//	ParseAmount("abc")    -> 0, ValidationError
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, NewValidationError("amount", "amount is required")
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewValidationError("amount", "amount must be a finite number")
	}
	if exp := d.Exponent(); exp < -MaxAmountScale {
		return decimal.Zero, NewValidationError("amount", "amount has too many decimal places")
	} else if exp > maxAmountExponent {
		return decimal.Zero, NewValidationError("amount", "amount is out of range")
	}
	if d.Abs().GreaterThan(maxAmount) {
		return decimal.Zero, NewValidationError("amount", "amount is out of range")
	}
	return d, nil
}

// Sum adds amounts exactly.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
