package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/walletnav/internal/domain"
)

const (
	holdingsSheet = "Holdings"
	summarySheet  = "Summary"
)

// WriteXLSX renders the portfolio as a workbook with Holdings and Summary sheets.
func WriteXLSX(out io.Writer, p domain.Portfolio) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", holdingsSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}

	if err := writeRows(f, holdingsSheet, holdingRows(p)); err != nil {
		return err
	}
	if err := writeRows(f, summarySheet, [][]any{historyHeader, historyRow(p)}); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	for sheet, cols := range map[string]int{holdingsSheet: len(holdingHeader), summarySheet: len(historyHeader)} {
		last, err := excelize.CoordinatesToCellName(cols, 1)
		if err != nil {
			return fmt.Errorf("resolving header range: %w", err)
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return fmt.Errorf("styling %s header: %w", sheet, err)
		}
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("resolving cell: %w", err)
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
