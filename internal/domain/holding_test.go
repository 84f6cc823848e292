package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestHoldingSetPriceKeepsValueInvariant(t *testing.T) {
	h := Holding{BalanceFormatted: decimal.RequireFromString("2.5")}
	h.SetPrice(decimal.RequireFromString("4"), PriceSourceMarket)

	if h.Value == nil || !h.Value.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("value = %v, want 10", h.Value)
	}
	if h.PriceSource != PriceSourceMarket {
		t.Errorf("source = %q, want market", h.PriceSource)
	}

	h.ClearPrice()
	if h.Price != nil || h.Value != nil || h.PriceSource != PriceSourceNone {
		t.Errorf("ClearPrice left price=%v value=%v source=%q", h.Price, h.Value, h.PriceSource)
	}
}

func TestHoldingNilPriceSerializesAsNull(t *testing.T) {
	h := Holding{ChainID: 1, Address: NativeAddress, Symbol: "ETH"}
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"price":null`, `"value":null`, `"priceSource":null`} {
		if !strings.Contains(s, want) {
			t.Errorf("json %s missing %s", s, want)
		}
	}
}

func TestDeFiPositionTotal(t *testing.T) {
	v := func(s string) *decimal.Decimal { return Ptr(decimal.RequireFromString(s)) }

	reported := DeFiPosition{TotalValue: v("500"), Tokens: []PositionToken{{Value: v("1")}}}
	if got := reported.Total(); !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("reported total = %s, want 500", got)
	}

	derived := DeFiPosition{Tokens: []PositionToken{
		{TokenType: TokenTypeSupply, Value: v("300")},
		{TokenType: TokenTypeReward, Value: v("20")},
		{TokenType: TokenTypeBorrow, Value: v("100")},
		{TokenType: TokenTypeStaked},
	}}
	if got := derived.Total(); !got.Equal(decimal.NewFromInt(220)) {
		t.Errorf("derived total = %s, want 220", got)
	}
}

func TestReceiptTableLookup(t *testing.T) {
	table := ReceiptTable{
		"Lido": {1: {"0xAE7ab96520DE3A18E5e111B5EaAb095312D7fE84"}},
	}
	protocol, ok := table.Lookup(1, "0xae7ab96520de3a18e5e111b5eaab095312d7fe84")
	if !ok || protocol != "Lido" {
		t.Errorf("Lookup = (%q, %v), want (Lido, true)", protocol, ok)
	}
	if _, ok := table.Lookup(10, "0xae7ab96520de3a18e5e111b5eaab095312d7fe84"); ok {
		t.Error("receipt matched on the wrong chain")
	}
}
