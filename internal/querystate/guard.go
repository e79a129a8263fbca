package querystate

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Warnings surfaced by GuardPriceInput.
const (
	WarnNegativePrice = "price cannot be negative, using 0"
	WarnInvalidPrice  = "price must be a number, using 0"
)

// PriceInput is the result of guarding one edit of a price field.
type PriceInput struct {
	// Value is what the field should now display.
	Value string
	// Warning is non-empty when the input was clamped.
	Warning string
	// Provisional marks input that is still being typed ("" or "-"); it does
	// not set a bound yet.
	Provisional bool
}

// GuardPriceInput applies the interactive price rule: a bare "-" or empty
// field is held as provisional, and any resolved negative or non-numeric
// value is clamped to "0" with a warning.
//
// This differs on purpose from URL parsing, which silently drops bad bounds.
func GuardPriceInput(raw string) PriceInput {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "-" {
		return PriceInput{Value: trimmed, Provisional: true}
	}

	d, err := decimal.NewFromString(trimmed)
	switch {
	case err != nil:
		return PriceInput{Value: "0", Warning: WarnInvalidPrice}
	case d.IsNegative():
		return PriceInput{Value: "0", Warning: WarnNegativePrice}
	default:
		return PriceInput{Value: trimmed}
	}
}

// Bound converts the guarded value into a filter bound. Provisional input
// yields an absent bound.
func (p PriceInput) Bound() decimal.NullDecimal {
	if p.Provisional {
		return decimal.NullDecimal{}
	}
	return parseBound(p.Value)
}
