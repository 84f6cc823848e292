package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtlprog/walletnav/internal/domain"
)

// Valuer produces a live portfolio valuation.
type Valuer interface {
	Value(ctx context.Context, address string) (domain.Portfolio, error)
}

// MetricsEnricher attaches performance metrics to a portfolio before it is stored.
type MetricsEnricher interface {
	EnrichMetrics(ctx context.Context, p *domain.Portfolio) error
}

// Service manages snapshot generation and retrieval.
type Service struct {
	valuer   Valuer
	repo     Repository
	enricher MetricsEnricher
}

// NewService creates a new snapshot Service. An optional MetricsEnricher stores CAGR and
// Sharpe with each snapshot.
func NewService(valuer Valuer, repo Repository, enrichers ...MetricsEnricher) *Service {
	var enricher MetricsEnricher
	if len(enrichers) > 0 {
		enricher = enrichers[0]
	}
	return &Service{valuer: valuer, repo: repo, enricher: enricher}
}

// Generate values the wallet and stores the result as the snapshot for date.
func (s *Service) Generate(ctx context.Context, address string, date time.Time) (domain.Portfolio, error) {
	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return domain.Portfolio{}, err
	}

	walletID, err := s.repo.EnsureWallet(ctx, addr, "")
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("registering wallet: %w", err)
	}

	p, err := s.valuer.Value(ctx, addr)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("valuing portfolio: %w", err)
	}

	if s.enricher != nil {
		if err := s.enricher.EnrichMetrics(ctx, &p); err != nil {
			slog.Warn("failed to enrich snapshot with metrics", "address", addr, "error", err)
		}
	}

	data, err := json.Marshal(p)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("marshaling portfolio: %w", err)
	}

	if err := s.repo.Save(ctx, walletID, date, p.TotalUSDValue, data); err != nil {
		return domain.Portfolio{}, fmt.Errorf("saving snapshot: %w", err)
	}

	return p, nil
}

// GetLatest retrieves the most recent snapshot for the wallet.
func (s *Service) GetLatest(ctx context.Context, address string) (*Snapshot, error) {
	return s.repo.GetLatest(ctx, domain.LowerAddress(address))
}

// GetByDate retrieves a snapshot for a specific date.
func (s *Service) GetByDate(ctx context.Context, address string, date time.Time) (*Snapshot, error) {
	return s.repo.GetByDate(ctx, domain.LowerAddress(address), date)
}

// List retrieves recent snapshots.
func (s *Service) List(ctx context.Context, address string, limit int) ([]Snapshot, error) {
	return s.repo.List(ctx, domain.LowerAddress(address), limit)
}

// ValueSeries returns the stored daily totals of the wallet.
func (s *Service) ValueSeries(ctx context.Context, address string) ([]domain.ValuePoint, error) {
	return s.repo.ValueSeries(ctx, domain.LowerAddress(address))
}
