package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSafeParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid integer", "100", "100"},
		{"valid decimal", "3.14", "3.14"},
		{"negative", "-5.5", "-5.5"},
		{"empty string", "", "0"},
		{"invalid string", "abc", "0"},
		{"whitespace", "  ", "0"},
		{"padded", " 2.5 ", "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeParse(tt.input)
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("SafeParse(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		decimals int
		want     string
	}{
		{"usdc", "1500000", 6, "1.5"},
		{"ether", "1000000000000000000", 18, "1"},
		{"dust", "1", 18, "0.000000000000000001"},
		{"zero decimals", "42", 0, "42"},
		{"invalid", "0x10", 18, "0"},
		{"empty", "", 18, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatUnits(tt.raw, tt.decimals)
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("FormatUnits(%q, %d) = %s, want %s", tt.raw, tt.decimals, got, want)
			}
		})
	}
}

func TestUnitAmount(t *testing.T) {
	if got := UnitAmount(6); got.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Errorf("UnitAmount(6) = %s, want 1000000", got)
	}
	if got := FormatBigUnits(UnitAmount(18), 18); !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("one whole token = %s, want 1", got)
	}
}
