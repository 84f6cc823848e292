package metrics

import "math"

const (
	// DefaultRiskFreeRate is the annual risk-free rate used for Sharpe when none is configured.
	DefaultRiskFreeRate = 0.045
	// TradingDaysPerYear annualizes daily return statistics.
	TradingDaysPerYear = 252
)

// CAGR returns the compound annual growth rate (ending/beginning)^(1/years) - 1.
// It is 0 when beginning or years is not positive. A cost basis and current value
// are passed as beginning and ending.
func CAGR(beginning, ending, years float64) float64 {
	if beginning <= 0 || years <= 0 {
		return 0
	}
	if ending <= 0 {
		return -1
	}
	return math.Pow(ending/beginning, 1/years) - 1
}

// SharpeRatio computes the annualized Sharpe ratio of a daily value series.
// It returns nil when fewer than two returns exist or the returns have no variance.
func SharpeRatio(values []float64, riskFreeRate float64) *float64 {
	returns := LogReturns(values)
	if len(returns) < 2 {
		return nil
	}

	annReturn := Mean(returns) * TradingDaysPerYear
	annStd := SampleStdDev(returns) * math.Sqrt(TradingDaysPerYear)
	if annStd == 0 {
		return nil
	}

	s := (annReturn - riskFreeRate) / annStd
	return &s
}
