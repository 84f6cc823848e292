package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/mtlprog/walletnav/internal/domain"
)

// HistorySheet is the sheet that accumulates one summary row per snapshot.
const HistorySheet = "HISTORY"

// SheetWriter writes tables to a spreadsheet destination.
type SheetWriter interface {
	Replace(ctx context.Context, sheet string, rows [][]any) error
	Append(ctx context.Context, sheet string, header []any, row []any) error
}

// Service writes portfolio holdings and history through a SheetWriter.
type Service struct {
	writer SheetWriter
}

// NewService creates a new export Service.
func NewService(writer SheetWriter) *Service {
	if writer == nil {
		panic("export.NewService: writer must not be nil")
	}
	return &Service{writer: writer}
}

// Export replaces the wallet's holdings sheet and appends a history row.
// Implements worker.AfterSnapshotHook.
func (s *Service) Export(ctx context.Context, p domain.Portfolio) error {
	sheet := HoldingsSheet(p.Address)
	if err := s.writer.Replace(ctx, sheet, holdingRows(p)); err != nil {
		return fmt.Errorf("writing holdings for %s: %w", p.Address, err)
	}
	if err := s.writer.Append(ctx, HistorySheet, historyHeader, historyRow(p)); err != nil {
		return fmt.Errorf("appending history for %s: %w", p.Address, err)
	}
	return nil
}

// HoldingsSheet names the per-wallet holdings sheet, e.g. "H_742d35cc".
func HoldingsSheet(address string) string {
	a := strings.TrimPrefix(domain.LowerAddress(address), "0x")
	if len(a) > 8 {
		a = a[:8]
	}
	return "H_" + a
}
