package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Breakdown splits the portfolio total by where the value came from.
// NAVPricedValue overlaps the other two.
type Breakdown struct {
	WalletTokensValue  decimal.Decimal `json:"walletTokensValue"`
	DeFiPositionsValue decimal.Decimal `json:"defiPositionsValue"`
	NAVPricedValue     decimal.Decimal `json:"navPricedValue"`
}

// SourceError is a recoverable failure collected during a valuation run.
type SourceError struct {
	Source string `json:"source"`
	Chain  *int64 `json:"chain,omitempty"`
	Error  string `json:"error"`
}

// NewSourceError builds a SourceError scoped to a chain.
func NewSourceError(source string, chainID int64, err error) SourceError {
	id := chainID
	return SourceError{Source: source, Chain: &id, Error: err.Error()}
}

// PerformanceMetrics holds risk/return figures derived from a value history.
type PerformanceMetrics struct {
	CAGR         float64  `json:"cagr"`
	Sharpe       *float64 `json:"sharpe"`
	Points       int      `json:"points"`
	PeriodDays   int      `json:"periodDays"`
	RiskFreeRate float64  `json:"riskFreeRate"`
}

// Portfolio is the final valuation of a wallet.
type Portfolio struct {
	Address       string              `json:"address"`
	TotalUSDValue decimal.Decimal     `json:"totalUsdValue"`
	Breakdown     Breakdown           `json:"breakdown"`
	TokenCount    int                 `json:"tokenCount"`
	Tokens        []Holding           `json:"tokens"`
	Errors        []SourceError       `json:"errors,omitempty"`
	GeneratedAt   time.Time           `json:"generatedAt"`
	Metrics       *PerformanceMetrics `json:"metrics,omitempty"`
}

// ValuePoint is one sample of a portfolio value series.
type ValuePoint struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}
