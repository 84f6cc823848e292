package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletnav/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func priced(symbol, balance, price string) domain.Holding {
	h := domain.Holding{ChainID: 1, Address: "0x" + symbol, Symbol: symbol, BalanceFormatted: d(balance), Origin: domain.OriginWallet}
	h.SetPrice(d(price), domain.PriceSourceMarket)
	return h
}

func unpriced(symbol string) domain.Holding {
	return domain.Holding{ChainID: 1, Address: "0x" + symbol, Symbol: symbol, BalanceFormatted: d("1"), Origin: domain.OriginWallet}
}

func TestAggregatePercentagesSumTo100(t *testing.T) {
	p := Aggregate([]domain.Holding{
		priced("A", "1", "50"),
		priced("B", "3", "10"),
		priced("C", "20", "1"),
		unpriced("D"),
	}, d("1"))

	if !p.TotalUSDValue.Equal(d("100")) {
		t.Fatalf("total = %s, want 100", p.TotalUSDValue)
	}
	sum := decimal.Zero
	for _, h := range p.Tokens {
		sum = sum.Add(h.PortfolioPercentage)
	}
	if !sum.Equal(d("100")) {
		t.Errorf("percentages sum = %s, want 100", sum)
	}
	if !p.Tokens[3].PortfolioPercentage.IsZero() {
		t.Errorf("unpriced percentage = %s, want 0", p.Tokens[3].PortfolioPercentage)
	}
}

func TestAggregateThirdsSumCloseTo100(t *testing.T) {
	p := Aggregate([]domain.Holding{
		priced("A", "1", "10"),
		priced("B", "1", "10"),
		priced("C", "1", "10"),
	}, d("1"))

	sum := decimal.Zero
	for _, h := range p.Tokens {
		sum = sum.Add(h.PortfolioPercentage)
	}
	if sum.Sub(d("100")).Abs().GreaterThan(d("0.000001")) {
		t.Errorf("percentages sum = %s, want ~100", sum)
	}
}

func TestAggregateEmptyPortfolio(t *testing.T) {
	p := Aggregate([]domain.Holding{unpriced("X")}, d("1"))

	if !p.TotalUSDValue.IsZero() || p.TokenCount != 1 {
		t.Errorf("total=%s count=%d, want 0/1", p.TotalUSDValue, p.TokenCount)
	}
	if !p.Tokens[0].PortfolioPercentage.IsZero() {
		t.Error("percentage of zero total should be 0")
	}
}

func TestFilterDustIdempotent(t *testing.T) {
	holdings := []domain.Holding{
		priced("BIG", "1", "5"),
		priced("DUST", "1", "0.5"),
		priced("EDGE", "1", "1"),
		unpriced("NIL"),
	}

	once := FilterDust(holdings, d("1"))
	twice := FilterDust(once, d("1"))

	if len(once) != 3 {
		t.Fatalf("after one pass = %d, want 3", len(once))
	}
	if len(twice) != len(once) {
		t.Errorf("second pass changed length: %d -> %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].Symbol != twice[i].Symbol {
			t.Errorf("position %d: %s vs %s", i, once[i].Symbol, twice[i].Symbol)
		}
	}
}

func TestSortByValueNilsLastStable(t *testing.T) {
	holdings := []domain.Holding{
		unpriced("N1"),
		priced("LOW", "1", "2"),
		unpriced("N2"),
		priced("HIGH", "1", "200"),
		priced("MID", "1", "20"),
	}

	SortByValue(holdings)

	want := []string{"HIGH", "MID", "LOW", "N1", "N2"}
	for i, sym := range want {
		if holdings[i].Symbol != sym {
			t.Errorf("position %d = %s, want %s", i, holdings[i].Symbol, sym)
		}
	}
}

func TestAggregateBreakdown(t *testing.T) {
	wallet := priced("USDC", "100", "1")

	tagged := priced("stETH", "1", "3000")
	tagged.IsDeFiPosition = true
	tagged.ProtocolName = "Lido"

	defi := priced("aUSDC", "50", "1")
	defi.Origin = domain.OriginDeFi
	defi.IsDeFiPosition = true

	basket := domain.Holding{ChainID: 1, Address: "0xeusd", Symbol: "eUSD", BalanceFormatted: d("10"), Origin: domain.OriginWallet}
	basket.SetPrice(d("1"), domain.PriceSourceNAV)

	p := Aggregate([]domain.Holding{wallet, tagged, defi, basket}, d("1"))

	if !p.Breakdown.WalletTokensValue.Equal(d("110")) {
		t.Errorf("wallet = %s, want 110", p.Breakdown.WalletTokensValue)
	}
	if !p.Breakdown.DeFiPositionsValue.Equal(d("3050")) {
		t.Errorf("defi = %s, want 3050", p.Breakdown.DeFiPositionsValue)
	}
	if !p.Breakdown.NAVPricedValue.Equal(d("10")) {
		t.Errorf("nav = %s, want 10", p.Breakdown.NAVPricedValue)
	}
	if !p.TotalUSDValue.Equal(d("3160")) {
		t.Errorf("total = %s, want 3160", p.TotalUSDValue)
	}
}
