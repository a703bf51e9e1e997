package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/coinfolio/internal/domain"
)

// XLSXWriter writes the valuation to a local .xlsx file.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates a writer targeting path.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

func (w *XLSXWriter) Write(_ context.Context, v domain.Valuation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}

	rows := buildRows(v)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("resolving cell for row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return fmt.Errorf("resolving last column: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	totalRow := fmt.Sprintf("%d", len(rows))
	if err := f.SetCellStyle(SheetName, "A"+totalRow, lastCol+totalRow, bold); err != nil {
		return fmt.Errorf("styling total: %w", err)
	}
	if err := f.SetColWidth(SheetName, "B", "B", 24); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving %s: %w", w.path, err)
	}
	return nil
}
