package metrics

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletnav/internal/domain"
)

const daysPerYear = 365.25

// HistorySource returns a wallet's daily value history.
type HistorySource interface {
	ValueSeries(ctx context.Context, address string) ([]domain.ValuePoint, error)
}

// Service derives performance metrics from a wallet's value history.
type Service struct {
	history      HistorySource
	riskFreeRate float64
	now          func() time.Time
}

// NewService creates a metrics Service. A negative or NaN riskFreeRate falls back to
// DefaultRiskFreeRate; zero is kept.
func NewService(history HistorySource, riskFreeRate float64) *Service {
	if history == nil {
		panic("metrics.NewService: history is nil")
	}
	if math.IsNaN(riskFreeRate) || riskFreeRate < 0 {
		riskFreeRate = DefaultRiskFreeRate
	}
	return &Service{history: history, riskFreeRate: riskFreeRate, now: time.Now}
}

// Evaluate computes metrics from the stored value history of address.
func (s *Service) Evaluate(ctx context.Context, address string) (domain.PerformanceMetrics, error) {
	points, err := s.history.ValueSeries(ctx, address)
	if err != nil {
		return domain.PerformanceMetrics{}, fmt.Errorf("loading value series for %s: %w", address, err)
	}
	return Compute(points, s.riskFreeRate), nil
}

// EnrichMetrics attaches metrics to a freshly valued portfolio, treating its total as today's point.
// A history read failure leaves the portfolio without metrics.
func (s *Service) EnrichMetrics(ctx context.Context, p *domain.Portfolio) error {
	points, err := s.history.ValueSeries(ctx, p.Address)
	if err != nil {
		return fmt.Errorf("loading value series for %s: %w", p.Address, err)
	}

	at := p.GeneratedAt
	if at.IsZero() {
		at = s.now()
	}
	today := truncateDay(at)
	points = lo.Reject(points, func(v domain.ValuePoint, _ int) bool { return truncateDay(v.Date).Equal(today) })
	points = append(points, domain.ValuePoint{Date: today, Value: p.TotalUSDValue})

	m := Compute(points, s.riskFreeRate)
	p.Metrics = &m
	return nil
}

// Compute derives CAGR and Sharpe from value points, ordered by date.
func Compute(points []domain.ValuePoint, riskFreeRate float64) domain.PerformanceMetrics {
	sorted := slices.Clone(points)
	slices.SortFunc(sorted, func(a, b domain.ValuePoint) int { return a.Date.Compare(b.Date) })

	m := domain.PerformanceMetrics{Points: len(sorted), RiskFreeRate: riskFreeRate}
	if len(sorted) < 2 {
		return m
	}

	first, last := sorted[0], sorted[len(sorted)-1]
	days := last.Date.Sub(first.Date).Hours() / 24
	m.PeriodDays = int(days)
	m.CAGR = CAGR(toFloat(first.Value), toFloat(last.Value), days/daysPerYear)

	values := lo.Map(sorted, func(v domain.ValuePoint, _ int) float64 { return toFloat(v.Value) })
	m.Sharpe = SharpeRatio(values, riskFreeRate)
	return m
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func truncateDay(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
