package portfolio

import (
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletnav/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Aggregate filters dust, assigns portfolio percentages, orders holdings by value
// (unpriced last) and computes the total and its breakdown.
func Aggregate(holdings []domain.Holding, dustThreshold decimal.Decimal) domain.Portfolio {
	tokens := FilterDust(holdings, dustThreshold)

	total := lo.Reduce(tokens, func(acc decimal.Decimal, h domain.Holding, _ int) decimal.Decimal {
		return acc.Add(h.ValueOrZero())
	}, decimal.Zero)

	for i := range tokens {
		if tokens[i].Value == nil || total.IsZero() {
			tokens[i].PortfolioPercentage = decimal.Zero
			continue
		}
		tokens[i].PortfolioPercentage = tokens[i].Value.Div(total).Mul(hundred)
	}

	SortByValue(tokens)

	return domain.Portfolio{
		TotalUSDValue: total,
		Breakdown:     breakdown(tokens),
		TokenCount:    len(tokens),
		Tokens:        tokens,
	}
}

// FilterDust drops holdings whose known value is below the threshold. Unpriced holdings are kept.
func FilterDust(holdings []domain.Holding, threshold decimal.Decimal) []domain.Holding {
	return lo.Filter(holdings, func(h domain.Holding, _ int) bool {
		return h.Value == nil || !h.Value.LessThan(threshold)
	})
}

// SortByValue orders holdings by value descending with unpriced holdings last. The sort is stable.
func SortByValue(holdings []domain.Holding) {
	slices.SortStableFunc(holdings, func(a, b domain.Holding) int {
		switch {
		case a.Value == nil && b.Value == nil:
			return 0
		case a.Value == nil:
			return 1
		case b.Value == nil:
			return -1
		default:
			return b.Value.Cmp(*a.Value)
		}
	})
}

func breakdown(tokens []domain.Holding) domain.Breakdown {
	var b domain.Breakdown
	for _, h := range tokens {
		v := h.ValueOrZero()
		if h.Origin == domain.OriginDeFi || h.IsDeFiPosition {
			b.DeFiPositionsValue = b.DeFiPositionsValue.Add(v)
		} else {
			b.WalletTokensValue = b.WalletTokensValue.Add(v)
		}
		if h.PriceSource == domain.PriceSourceNAV {
			b.NAVPricedValue = b.NAVPricedValue.Add(v)
		}
	}
	return b
}
