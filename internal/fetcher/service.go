package fetcher

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/walletnav/internal/domain"
)

const (
	SourceBalances  = "balances"
	SourcePositions = "positions"
)

// BalanceSource fetches wallet token balances for one chain.
type BalanceSource interface {
	WalletTokens(ctx context.Context, address string, chain domain.Chain) ([]domain.Holding, error)
}

// PositionSource fetches protocol positions for one chain.
type PositionSource interface {
	DeFiPositions(ctx context.Context, address string, chain domain.Chain) ([]domain.DeFiPosition, error)
}

// FailureRecorder is notified about each failed chain query.
type FailureRecorder interface {
	SourceFailed(source string, chainID int64)
}

// Service fans out per-chain balance and position queries.
type Service struct {
	balances    BalanceSource
	positions   PositionSource
	chains      []domain.Chain
	concurrency int
	recorder    FailureRecorder
}

// NewService creates a fetcher over the given chains. concurrency bounds in-flight chain queries.
func NewService(balances BalanceSource, positions PositionSource, chains []domain.Chain, concurrency int, recorder FailureRecorder) *Service {
	if balances == nil {
		panic("fetcher.NewService: balances is nil")
	}
	if positions == nil {
		panic("fetcher.NewService: positions is nil")
	}
	if concurrency <= 0 {
		concurrency = len(chains)
	}
	return &Service{
		balances:    balances,
		positions:   positions,
		chains:      chains,
		concurrency: max(concurrency, 1),
		recorder:    recorder,
	}
}

// FetchBalances queries every chain concurrently. Failed chains contribute no holdings and one error each.
func (s *Service) FetchBalances(ctx context.Context, address string) ([]domain.Holding, []domain.SourceError, error) {
	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return nil, nil, err
	}
	holdings, errs := fanOut(ctx, s, SourceBalances, func(ctx context.Context, chain domain.Chain) ([]domain.Holding, error) {
		return s.balances.WalletTokens(ctx, addr, chain)
	})
	return holdings, errs, nil
}

// FetchPositions queries every chain concurrently for DeFi positions.
func (s *Service) FetchPositions(ctx context.Context, address string) ([]domain.DeFiPosition, []domain.SourceError, error) {
	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return nil, nil, err
	}
	positions, errs := fanOut(ctx, s, SourcePositions, func(ctx context.Context, chain domain.Chain) ([]domain.DeFiPosition, error) {
		return s.positions.DeFiPositions(ctx, addr, chain)
	})
	return positions, errs, nil
}

// fanOut runs fetch once per chain and waits for all of them. Results keep chain order.
func fanOut[T any](ctx context.Context, s *Service, source string, fetch func(context.Context, domain.Chain) ([]T, error)) ([]T, []domain.SourceError) {
	results := make([][]T, len(s.chains))
	var mu sync.Mutex
	var errs []domain.SourceError

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, chain := range s.chains {
		g.Go(func() error {
			items, err := fetch(ctx, chain)
			if err != nil {
				slog.Warn("chain fetch failed", "source", source, "chain", chain.ID, "error", err)
				if s.recorder != nil {
					s.recorder.SourceFailed(source, chain.ID)
				}
				mu.Lock()
				errs = append(errs, domain.NewSourceError(source, chain.ID, err))
				mu.Unlock()
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var all []T
	for _, r := range results {
		all = append(all, r...)
	}
	return all, sortErrors(errs)
}
