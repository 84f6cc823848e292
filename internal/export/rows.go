package export

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletnav/internal/domain"
)

var holdingHeader = []any{
	"Chain", "Symbol", "Name", "Address", "Balance", "Price USD", "Value USD",
	"Share %", "Price Source", "Origin", "Protocol", "Position",
}

var historyHeader = []any{
	"Date", "Wallet", "Total USD", "Wallet Tokens USD", "DeFi USD", "NAV Priced USD", "Tokens", "Errors",
}

// holdingRows builds the holdings table: a header row and one row per holding, in portfolio order.
func holdingRows(p domain.Portfolio) [][]any {
	data := make([][]any, 0, len(p.Tokens)+1)
	data = append(data, holdingHeader)

	for _, h := range p.Tokens {
		data = append(data, []any{
			h.ChainID,
			h.Symbol,
			h.Name,
			h.Address,
			toFloat(h.BalanceFormatted),
			ptrFloat(h.Price),
			ptrFloat(h.Value),
			toFloat(h.PortfolioPercentage),
			string(h.PriceSource),
			string(h.Origin),
			h.ProtocolName,
			h.PositionLabel,
		})
	}
	return data
}

// historyRow builds the one-line summary appended to the history sheet after each snapshot.
func historyRow(p domain.Portfolio) []any {
	at := p.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}
	return []any{
		at.UTC().Format("2006-01-02"),
		p.Address,
		toFloat(p.TotalUSDValue),
		toFloat(p.Breakdown.WalletTokensValue),
		toFloat(p.Breakdown.DeFiPositionsValue),
		toFloat(p.Breakdown.NAVPricedValue),
		p.TokenCount,
		len(p.Errors),
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// ptrFloat keeps unknown values as empty cells rather than zeros.
func ptrFloat(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	f, _ := d.Float64()
	return f
}
