package export

import (
	"fmt"
	"io"

	"github.com/leapstack-labs/leapmix/pkg/core"
	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the worksheet name used for XLSX exports.
const DefaultSheet = "Mock Data"

var (
	currencyFormat = "#,##0.00"
	decimalFormat  = "0.0000"
)

// XLSX writes the dataset as a workbook with a bold header row and number
// formats per column type.
func XLSX(w io.Writer, ds *core.MockDataset, sheet string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = DefaultSheet
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(ds.Columns))
	for i, c := range ds.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for r, row := range ds.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		copy(values, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	if err := styleSheet(f, sheet, ds); err != nil {
		return err
	}
	return f.Write(w)
}

func styleSheet(f *excelize.File, sheet string, ds *core.MockDataset) error {
	if len(ds.Columns) == 0 {
		return nil
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(ds.Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	currency, err := f.NewStyle(&excelize.Style{CustomNumFmt: &currencyFormat})
	if err != nil {
		return err
	}
	decimal, err := f.NewStyle(&excelize.Style{CustomNumFmt: &decimalFormat})
	if err != nil {
		return err
	}

	if len(ds.Rows) == 0 {
		return nil
	}
	for i, c := range ds.Columns {
		var style int
		switch ds.ColumnTypes[c] {
		case core.ColumnTypeCurrency:
			style = currency
		case core.ColumnTypeDecimal:
			style = decimal
		default:
			continue
		}
		top, err := excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			return err
		}
		bottom, err := excelize.CoordinatesToCellName(i+1, len(ds.Rows)+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, top, bottom, style); err != nil {
			return err
		}
	}
	return nil
}
