package portfolio

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletnav/internal/domain"
)

const wallet = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

type mockFetcher struct {
	balances     []domain.Holding
	positions    []domain.DeFiPosition
	balanceErrs  []domain.SourceError
	positionErrs []domain.SourceError
	calls        atomic.Int32
}

func (m *mockFetcher) FetchBalances(_ context.Context, address string) ([]domain.Holding, []domain.SourceError, error) {
	m.calls.Add(1)
	if _, err := domain.NormalizeAddress(address); err != nil {
		return nil, nil, err
	}
	return m.balances, m.balanceErrs, nil
}

func (m *mockFetcher) FetchPositions(_ context.Context, address string) ([]domain.DeFiPosition, []domain.SourceError, error) {
	m.calls.Add(1)
	if _, err := domain.NormalizeAddress(address); err != nil {
		return nil, nil, err
	}
	return m.positions, m.positionErrs, nil
}

type passClassifier struct{}

func (passClassifier) Classify(_ context.Context, h []domain.Holding) []domain.Holding { return h }

type concatMerger struct{}

func (concatMerger) Merge(wallet []domain.Holding, positions []domain.DeFiPosition) []domain.Holding {
	for _, p := range positions {
		for _, t := range p.Tokens {
			h := domain.Holding{ChainID: p.ChainID, Address: t.Address, Symbol: t.Symbol, BalanceFormatted: t.BalanceFormatted, Origin: domain.OriginDeFi}
			if t.Price != nil {
				h.SetPrice(*t.Price, domain.PriceSourceMarket)
			}
			wallet = append(wallet, h)
		}
	}
	return wallet
}

type mockNAV struct {
	price decimal.Decimal
	errs  []domain.SourceError
}

func (m *mockNAV) Apply(_ context.Context, holdings []domain.Holding) ([]domain.Holding, []domain.SourceError) {
	for i := range holdings {
		if holdings[i].Price == nil && holdings[i].Symbol == "eUSD" {
			holdings[i].SetPrice(m.price, domain.PriceSourceNAV)
		}
	}
	return holdings, m.errs
}

type durations struct{ count atomic.Int32 }

func (d *durations) ObserveValuation(time.Duration) { d.count.Add(1) }

func TestValuePipeline(t *testing.T) {
	one := d("1")
	chain := int64(8453)
	f := &mockFetcher{
		balances: []domain.Holding{
			priced("USDC", "100", "1"),
			{ChainID: 1, Address: "0xeusd", Symbol: "eUSD", BalanceFormatted: d("50"), Origin: domain.OriginWallet},
			priced("DUST", "1", "0.01"),
		},
		positions: []domain.DeFiPosition{{ChainID: 1, Tokens: []domain.PositionToken{
			{TokenType: domain.TokenTypeSupply, Symbol: "aWETH", Address: "0xaweth", BalanceFormatted: d("1"), Price: &one},
		}}},
		balanceErrs: []domain.SourceError{{Source: "balances", Chain: &chain, Error: "timeout"}},
	}
	nav := &mockNAV{price: d("1.02"), errs: []domain.SourceError{{Source: "nav", Error: "partial"}}}
	obs := &durations{}
	svc := NewService(f, passClassifier{}, concatMerger{}, nav, d("1"), obs)

	p, err := svc.Value(t.Context(), wallet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Address != "0x742d35cc6634c0532925a3b844bc454e4438f44e" {
		t.Errorf("address = %s, want lower-cased", p.Address)
	}
	if p.TokenCount != 3 {
		t.Errorf("token count = %d, want 3 (dust dropped)", p.TokenCount)
	}
	if !p.TotalUSDValue.Equal(d("152")) {
		t.Errorf("total = %s, want 152", p.TotalUSDValue)
	}
	if p.Tokens[0].Symbol != "USDC" || p.Tokens[1].Symbol != "eUSD" {
		t.Errorf("order = %s, %s", p.Tokens[0].Symbol, p.Tokens[1].Symbol)
	}
	if len(p.Errors) != 2 {
		t.Errorf("errors = %+v, want balances and nav", p.Errors)
	}
	if p.GeneratedAt.IsZero() {
		t.Error("GeneratedAt should be set")
	}
	if obs.count.Load() != 1 {
		t.Error("valuation duration should be observed")
	}
}

func TestValueInvalidAddress(t *testing.T) {
	f := &mockFetcher{}
	svc := NewService(f, passClassifier{}, concatMerger{}, &mockNAV{}, d("1"), nil)

	_, err := svc.Value(t.Context(), "0x123")
	if !errors.Is(err, domain.ErrInvalidAddress) {
		t.Fatalf("error = %v, want ErrInvalidAddress", err)
	}
	if f.calls.Load() != 0 {
		t.Errorf("fetcher calls = %d, want 0", f.calls.Load())
	}
}

func TestValueAllSourcesFailed(t *testing.T) {
	chain := int64(1)
	f := &mockFetcher{
		balanceErrs:  []domain.SourceError{{Source: "balances", Chain: &chain, Error: "down"}},
		positionErrs: []domain.SourceError{{Source: "positions", Chain: &chain, Error: "down"}},
	}
	svc := NewService(f, passClassifier{}, concatMerger{}, &mockNAV{}, d("1"), nil)

	p, err := svc.Value(t.Context(), wallet)
	if err != nil {
		t.Fatalf("source failures must not fail the request: %v", err)
	}
	if p.TokenCount != 0 || len(p.Errors) != 2 {
		t.Errorf("got %d tokens, %d errors; want 0, 2", p.TokenCount, len(p.Errors))
	}
}

func TestNewServicePanicsOnNilFetcher(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewService(nil, passClassifier{}, concatMerger{}, &mockNAV{}, d("1"), nil)
}
