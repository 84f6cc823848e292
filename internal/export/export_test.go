package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/walletnav/internal/domain"
)

type mockWriter struct {
	replaced   map[string][][]any
	appended   map[string][][]any
	replaceErr error
}

func newMockWriter() *mockWriter {
	return &mockWriter{replaced: map[string][][]any{}, appended: map[string][][]any{}}
}

func (m *mockWriter) Replace(_ context.Context, sheet string, rows [][]any) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.replaced[sheet] = rows
	return nil
}

func (m *mockWriter) Append(_ context.Context, sheet string, _ []any, row []any) error {
	m.appended[sheet] = append(m.appended[sheet], row)
	return nil
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func samplePortfolio() domain.Portfolio {
	return domain.Portfolio{
		Address:       "0x742d35cc6634c0532925a3b844bc454e4438f44e",
		TotalUSDValue: decimal.NewFromInt(150),
		Breakdown: domain.Breakdown{
			WalletTokensValue:  decimal.NewFromInt(100),
			DeFiPositionsValue: decimal.NewFromInt(50),
		},
		TokenCount: 2,
		Tokens: []domain.Holding{
			{ChainID: 1, Symbol: "ETH", BalanceFormatted: decimal.NewFromInt(1), Price: dec("100"), Value: dec("100"), PriceSource: domain.PriceSourceMarket, Origin: domain.OriginWallet},
			{ChainID: 8453, Symbol: "XYZ", BalanceFormatted: decimal.NewFromInt(5), Origin: domain.OriginWallet},
		},
		GeneratedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestExportWritesHoldingsAndHistory(t *testing.T) {
	w := newMockWriter()
	svc := NewService(w)
	p := samplePortfolio()

	if err := svc.Export(t.Context(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := w.replaced["H_742d35cc"]
	if len(rows) != 3 {
		t.Fatalf("holdings rows = %d, want header + 2", len(rows))
	}
	if rows[1][1] != "ETH" || rows[1][6] != 100.0 {
		t.Errorf("first holding row = %v", rows[1])
	}
	if rows[2][5] != nil || rows[2][6] != nil {
		t.Errorf("unpriced holding should leave price/value empty: %v", rows[2])
	}

	hist := w.appended[HistorySheet]
	if len(hist) != 1 {
		t.Fatalf("history rows = %d, want 1", len(hist))
	}
	if hist[0][0] != "2025-06-01" || hist[0][2] != 150.0 {
		t.Errorf("history row = %v", hist[0])
	}
}

func TestExportStopsOnReplaceError(t *testing.T) {
	w := newMockWriter()
	w.replaceErr = errors.New("quota exceeded")

	err := NewService(w).Export(t.Context(), samplePortfolio())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(w.appended) != 0 {
		t.Error("history should not be appended after a failed replace")
	}
}

func TestHoldingsSheet(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0x742D35Cc6634C0532925a3b844Bc454e4438f44e", "H_742d35cc"},
		{"0xabc", "H_abc"},
	}
	for _, tt := range tests {
		if got := HoldingsSheet(tt.in); got != tt.want {
			t.Errorf("HoldingsSheet(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewServicePanicsOnNilWriter(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewService(nil)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, samplePortfolio()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(holdingsSheet)
	if err != nil {
		t.Fatalf("reading holdings: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("holdings rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "Chain" || rows[1][1] != "ETH" {
		t.Errorf("unexpected rows: %v", rows[:2])
	}

	summary, err := f.GetRows(summarySheet)
	if err != nil {
		t.Fatalf("reading summary: %v", err)
	}
	if len(summary) != 2 || summary[1][2] != "150" {
		t.Errorf("summary = %v", summary)
	}
}
