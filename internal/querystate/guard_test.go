package querystate_test

import (
	"testing"

	"github.com/kokossimo/kokocli/internal/querystate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardPriceInput(t *testing.T) {
	tests := []struct {
		raw         string
		value       string
		warning     string
		provisional bool
	}{
		{"", "", "", true},
		{"-", "-", "", true},
		{" - ", "-", "", true},
		{"-100", "0", querystate.WarnNegativePrice, false},
		{"-0.01", "0", querystate.WarnNegativePrice, false},
		{"1500", "1500", "", false},
		{" 99.90 ", "99.90", "", false},
		{"0", "0", "", false},
		{"12abc", "0", querystate.WarnInvalidPrice, false},
	}
	for _, tt := range tests {
		got := querystate.GuardPriceInput(tt.raw)
		assert.Equal(t, tt.value, got.Value, "GuardPriceInput(%q).Value", tt.raw)
		assert.Equal(t, tt.warning, got.Warning, "GuardPriceInput(%q).Warning", tt.raw)
		assert.Equal(t, tt.provisional, got.Provisional, "GuardPriceInput(%q).Provisional", tt.raw)
	}
}

func TestGuardPriceInput_NegativeMinBecomesZeroBound(t *testing.T) {
	in := querystate.GuardPriceInput("-100")

	assert.Equal(t, "0", in.Value)
	assert.NotEmpty(t, in.Warning)

	bound := in.Bound()
	require.True(t, bound.Valid)
	assert.True(t, bound.Decimal.IsZero(), "filter state must use 0, not -100")
}

func TestPriceInputBound_Provisional(t *testing.T) {
	assert.False(t, querystate.GuardPriceInput("-").Bound().Valid)
	assert.False(t, querystate.GuardPriceInput("").Bound().Valid)
	assert.True(t, querystate.GuardPriceInput("250").Bound().Valid)
}
