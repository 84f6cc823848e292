package external

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletnav/internal/domain"
)

// ErrStaleQuote is returned when the stored quote is older than the staleness threshold.
var ErrStaleQuote = errors.New("native quote is stale")

// PriceFetcher fetches USD prices by CoinGecko coin ID.
type PriceFetcher interface {
	FetchUSDPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
}

// Service keeps native asset USD quotes fresh and serves them to the price service.
type Service struct {
	coingecko PriceFetcher
	repo      QuoteRepository
	chains    []domain.Chain
	staleness time.Duration
	now       func() time.Time
}

// NewService creates a new native quote service. Chains without a CoinGecko id are ignored.
func NewService(coingecko PriceFetcher, repo QuoteRepository, chains []domain.Chain, staleness time.Duration) *Service {
	if repo == nil {
		panic("external.NewService: repo is nil")
	}
	return &Service{
		coingecko: coingecko,
		repo:      repo,
		chains:    lo.Filter(chains, func(c domain.Chain, _ int) bool { return c.CoinGeckoID != "" }),
		staleness: staleness,
		now:       time.Now,
	}
}

// FetchAndStoreQuotes fetches native asset prices for every chain and stores them in the database.
func (s *Service) FetchAndStoreQuotes(ctx context.Context) error {
	if s.coingecko == nil {
		return errors.New("no CoinGecko client configured")
	}

	ids := lo.Uniq(lo.Map(s.chains, func(c domain.Chain, _ int) string { return c.CoinGeckoID }))
	prices, err := s.coingecko.FetchUSDPrices(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetching native prices: %w", err)
	}

	for _, c := range s.chains {
		p, ok := prices[c.CoinGeckoID]
		if !ok {
			continue
		}
		if err := s.repo.SaveQuote(ctx, Quote{ChainID: c.ID, CoinGeckoID: c.CoinGeckoID, PriceUSD: p}); err != nil {
			return fmt.Errorf("storing quote for chain %d: %w", c.ID, err)
		}
	}

	return nil
}

// NativePrice returns the stored USD price of the chain's native asset if it is fresh.
func (s *Service) NativePrice(ctx context.Context, chainID int64) (decimal.Decimal, error) {
	q, err := s.repo.GetQuote(ctx, chainID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("getting native quote: %w", err)
	}
	if s.staleness > 0 && s.now().Sub(q.UpdatedAt) > s.staleness {
		return decimal.Zero, fmt.Errorf("chain %d quote from %s: %w", chainID, q.UpdatedAt.Format(time.RFC3339), ErrStaleQuote)
	}
	return q.PriceUSD, nil
}
