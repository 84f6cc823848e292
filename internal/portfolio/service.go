package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/walletnav/internal/domain"
)

// Fetcher loads wallet balances and protocol positions across chains.
type Fetcher interface {
	FetchBalances(ctx context.Context, address string) ([]domain.Holding, []domain.SourceError, error)
	FetchPositions(ctx context.Context, address string) ([]domain.DeFiPosition, []domain.SourceError, error)
}

// Classifier drops spam and applies price redirects.
type Classifier interface {
	Classify(ctx context.Context, holdings []domain.Holding) []domain.Holding
}

// Merger de-duplicates wallet holdings against protocol positions.
type Merger interface {
	Merge(wallet []domain.Holding, positions []domain.DeFiPosition) []domain.Holding
}

// NAVResolver prices held composite tokens.
type NAVResolver interface {
	Apply(ctx context.Context, holdings []domain.Holding) ([]domain.Holding, []domain.SourceError)
}

// DurationObserver records how long a valuation took.
type DurationObserver interface {
	ObserveValuation(d time.Duration)
}

// Service values a wallet end to end.
type Service struct {
	fetcher    Fetcher
	classifier Classifier
	merger     Merger
	nav        NAVResolver
	dust       decimal.Decimal
	observer   DurationObserver
	now        func() time.Time
}

// NewService creates a portfolio Service. observer may be nil; all other dependencies are required.
func NewService(fetcher Fetcher, classifier Classifier, merger Merger, nav NAVResolver, dustThreshold decimal.Decimal, observer DurationObserver) *Service {
	if fetcher == nil {
		panic("portfolio.NewService: fetcher is nil")
	}
	if classifier == nil {
		panic("portfolio.NewService: classifier is nil")
	}
	if merger == nil {
		panic("portfolio.NewService: merger is nil")
	}
	if nav == nil {
		panic("portfolio.NewService: nav is nil")
	}
	return &Service{
		fetcher:    fetcher,
		classifier: classifier,
		merger:     merger,
		nav:        nav,
		dust:       dustThreshold,
		observer:   observer,
		now:        time.Now,
	}
}

// Value builds the portfolio of address. Only an invalid address fails; every other
// failure is reported in Portfolio.Errors.
func (s *Service) Value(ctx context.Context, address string) (domain.Portfolio, error) {
	start := s.now()

	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("valuing %q: %w", address, err)
	}

	var (
		wallet       []domain.Holding
		positions    []domain.DeFiPosition
		balanceErrs  []domain.SourceError
		positionErrs []domain.SourceError
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		wallet, balanceErrs, err = s.fetcher.FetchBalances(ctx, addr)
		return err
	})
	g.Go(func() error {
		var err error
		positions, positionErrs, err = s.fetcher.FetchPositions(ctx, addr)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Portfolio{}, fmt.Errorf("fetching holdings for %s: %w", addr, err)
	}

	wallet = s.classifier.Classify(ctx, wallet)
	merged := s.merger.Merge(wallet, positions)
	merged, navErrs := s.nav.Apply(ctx, merged)

	p := Aggregate(merged, s.dust)
	p.Address = addr
	p.Errors = append(append(balanceErrs, positionErrs...), navErrs...)
	p.GeneratedAt = s.now().UTC()

	elapsed := s.now().Sub(start)
	if s.observer != nil {
		s.observer.ObserveValuation(elapsed)
	}
	slog.Info("portfolio valued",
		"address", addr,
		"total_usd", p.TotalUSDValue.StringFixed(2),
		"tokens", p.TokenCount,
		"errors", len(p.Errors),
		"duration", elapsed)

	return p, nil
}
