package price

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/mtlprog/walletnav/internal/domain"
)

// ErrNoPrice is returned when no market price exists for a token.
var ErrNoPrice = errors.New("no price available")

// MarketSource returns USD prices for up to a batch of token addresses on one chain.
type MarketSource interface {
	TokenPrices(ctx context.Context, dexChainID string, addresses []string) (map[string]decimal.Decimal, error)
}

// NativeQuoter returns the USD price of a chain's native asset.
type NativeQuoter interface {
	NativePrice(ctx context.Context, chainID int64) (decimal.Decimal, error)
}

// Service resolves USD market prices with caching and in-flight de-duplication.
type Service struct {
	market     MarketSource
	native     NativeQuoter
	cache      Cache
	chains     map[int64]domain.Chain
	batchSize  int
	batchDelay time.Duration
	group      singleflight.Group
}

// NewService creates a price service. native may be nil, in which case native assets have no price.
func NewService(
	market MarketSource,
	native NativeQuoter,
	cache Cache,
	chains []domain.Chain,
	batchSize int,
	batchDelay time.Duration,
) *Service {
	if market == nil {
		panic("price.NewService: market source is nil")
	}
	if cache == nil {
		panic("price.NewService: cache is nil")
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Service{
		market:     market,
		native:     native,
		cache:      cache,
		chains:     lo.KeyBy(chains, func(c domain.Chain) int64 { return c.ID }),
		batchSize:  batchSize,
		batchDelay: batchDelay,
	}
}

// GetPrice returns the USD unit price of a token on a chain.
func (s *Service) GetPrice(ctx context.Context, chainID int64, address string) (decimal.Decimal, error) {
	addr := domain.LowerAddress(address)
	key := cacheKey(chainID, addr)

	if p, ok := s.cache.Get(ctx, key); ok {
		return p, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		p, err := s.fetch(ctx, chainID, addr)
		if err != nil {
			return decimal.Zero, err
		}
		s.cache.Set(ctx, key, p)
		return p, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

func (s *Service) fetch(ctx context.Context, chainID int64, addr string) (decimal.Decimal, error) {
	if domain.IsNativeAddress(addr) {
		if s.native == nil {
			return decimal.Zero, ErrNoPrice
		}
		return s.native.NativePrice(ctx, chainID)
	}

	chain, ok := s.chains[chainID]
	if !ok || chain.DexScreenerID == "" {
		return decimal.Zero, fmt.Errorf("chain %d has no market source: %w", chainID, ErrNoPrice)
	}

	prices, err := s.market.TokenPrices(ctx, chain.DexScreenerID, []string{addr})
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetching market price for %s: %w", addr, err)
	}
	p, ok := prices[addr]
	if !ok || !p.IsPositive() {
		return decimal.Zero, ErrNoPrice
	}
	return p, nil
}

// GetPrices looks up many tokens on one chain in bounded concurrent batches.
// Failed lookups are absent from the returned map, which is keyed by lower-cased address.
func (s *Service) GetPrices(ctx context.Context, chainID int64, addresses []string) map[string]decimal.Decimal {
	addrs := lo.Uniq(lo.Map(addresses, func(a string, _ int) string { return domain.LowerAddress(a) }))
	result := make(map[string]decimal.Decimal, len(addrs))

	var mu sync.Mutex
	for i, batch := range lo.Chunk(addrs, s.batchSize) {
		if i > 0 && s.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return result
			case <-time.After(s.batchDelay):
			}
		}

		var wg sync.WaitGroup
		for _, addr := range batch {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p, err := s.GetPrice(ctx, chainID, addr)
				if err != nil {
					if !errors.Is(err, ErrNoPrice) {
						slog.Debug("price lookup failed", "chain", chainID, "address", addr, "error", err)
					}
					return
				}
				mu.Lock()
				result[addr] = p
				mu.Unlock()
			}()
		}
		wg.Wait()
	}

	return result
}
