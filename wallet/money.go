package wallet

import "github.com/shopspring/decimal"

// =============================================================================
// MONEY CONVERSION - Single rounding policy for major <-> minor units
// =============================================================================
// Every conversion between major-unit decimals and minor-unit integers goes
// through these two functions. Rounding is half-up at two decimal places,
// applied identically everywhere, so the stored balance and the balance
// recomputed from history can never drift apart.

var hundred = decimal.NewFromInt(100)

// MinorUnits converts a major-unit amount (e.g. euros) to integer minor
// units (cents). Half-up rounding at the second decimal.
func MinorUnits(major decimal.Decimal) int64 {
	return major.Round(2).Mul(hundred).IntPart()
}

// FromMinorUnits converts integer minor units back to a major-unit decimal.
// Exact: no rounding is involved in this direction.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(hundred)
}
