package external

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletnav/internal/domain"
)

type mockQuoteRepo struct {
	quotes map[int64]Quote
	now    time.Time
}

func (m *mockQuoteRepo) SaveQuote(_ context.Context, q Quote) error {
	q.UpdatedAt = m.now
	m.quotes[q.ChainID] = q
	return nil
}

func (m *mockQuoteRepo) GetQuote(_ context.Context, chainID int64) (Quote, error) {
	q, ok := m.quotes[chainID]
	if !ok {
		return Quote{}, ErrQuoteNotFound
	}
	return q, nil
}

func (m *mockQuoteRepo) GetAllQuotes(context.Context) ([]Quote, error) {
	var result []Quote
	for _, q := range m.quotes {
		result = append(result, q)
	}
	return result, nil
}

type mockFetcher struct {
	prices map[string]decimal.Decimal
	err    error
	ids    []string
}

func (m *mockFetcher) FetchUSDPrices(_ context.Context, ids []string) (map[string]decimal.Decimal, error) {
	m.ids = ids
	return m.prices, m.err
}

var testChains = []domain.Chain{
	{ID: 1, CoinGeckoID: "ethereum"},
	{ID: 8453, CoinGeckoID: "ethereum"},
	{ID: 56, CoinGeckoID: "binancecoin"},
	{ID: 999},
}

func TestFetchAndStoreQuotes(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockQuoteRepo{quotes: make(map[int64]Quote), now: now}
	fetcher := &mockFetcher{prices: map[string]decimal.Decimal{
		"ethereum": decimal.NewFromInt(3000),
	}}
	svc := NewService(fetcher, repo, testChains, time.Hour)

	if err := svc.FetchAndStoreQuotes(t.Context()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fetcher.ids) != 2 {
		t.Errorf("requested ids = %v, want ethereum and binancecoin once each", fetcher.ids)
	}
	if len(repo.quotes) != 2 {
		t.Fatalf("stored %d quotes, want 2", len(repo.quotes))
	}
	if !repo.quotes[8453].PriceUSD.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("base quote = %s, want 3000", repo.quotes[8453].PriceUSD)
	}
	if _, ok := repo.quotes[56]; ok {
		t.Error("chain without a fetched price should not be stored")
	}
}

func TestFetchAndStoreQuotesFetchError(t *testing.T) {
	repo := &mockQuoteRepo{quotes: make(map[int64]Quote)}
	svc := NewService(&mockFetcher{err: errors.New("down")}, repo, testChains, time.Hour)

	if err := svc.FetchAndStoreQuotes(t.Context()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNativePrice(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		quotes  map[int64]Quote
		wantErr error
		want    decimal.Decimal
	}{
		{
			name:   "fresh",
			quotes: map[int64]Quote{1: {ChainID: 1, PriceUSD: decimal.NewFromInt(3100), UpdatedAt: now.Add(-30 * time.Minute)}},
			want:   decimal.NewFromInt(3100),
		},
		{
			name:    "stale",
			quotes:  map[int64]Quote{1: {ChainID: 1, PriceUSD: decimal.NewFromInt(3100), UpdatedAt: now.Add(-3 * time.Hour)}},
			wantErr: ErrStaleQuote,
		},
		{
			name:    "missing",
			quotes:  map[int64]Quote{},
			wantErr: ErrQuoteNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(nil, &mockQuoteRepo{quotes: tt.quotes}, testChains, 2*time.Hour)
			svc.now = func() time.Time { return now }

			got, err := svc.NativePrice(t.Context(), 1)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("price = %s, want %s", got, tt.want)
			}
		})
	}
}
