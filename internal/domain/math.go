package domain

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultDecimals is assumed when a token's decimals are unknown.
const DefaultDecimals = 18

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatUnits converts a raw integer amount into token units, e.g. ("1500000", 6) → 1.5.
// Invalid input yields zero.
func FormatUnits(raw string, decimals int) decimal.Decimal {
	n, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return decimal.Zero
	}
	return FormatBigUnits(n, decimals)
}

// FormatBigUnits converts a raw big.Int amount into token units.
func FormatBigUnits(n *big.Int, decimals int) decimal.Decimal {
	if n == nil {
		return decimal.Zero
	}
	if decimals < 0 {
		decimals = 0
	}
	return decimal.NewFromBigInt(n, -int32(decimals))
}

// UnitAmount returns 10^decimals as a big.Int, the raw amount of one whole token.
func UnitAmount(decimals int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// Ptr returns a pointer to a copy of d.
func Ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
