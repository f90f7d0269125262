package output

import (
	"fmt"
	"io"

	"github.com/iwvelando/commission-calculator/internal/calculator"
	"github.com/iwvelando/commission-calculator/pkg/format"
	"github.com/xuri/excelize/v2"
)

// XLSXSheet is the name of the sheet written by XLSXFormat.
const XLSXSheet = "Commissions"

// XLSXFormat writes the same rows as CsvFormat into a spreadsheet. Money
// columns are stored as numbers rounded to cents.
func XLSXFormat(w io.Writer, outcomes []calculator.Outcome) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), XLSXSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(CsvHeader))
	for i, column := range CsvHeader {
		header[i] = column
	}
	if err := f.SetSheetRow(XLSXSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := 2
	for _, outcome := range outcomes {
		for _, values := range xlsxRows(outcome) {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(XLSXSheet, cell, &values); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
			row++
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func xlsxRows(outcome calculator.Outcome) [][]interface{} {
	if !outcome.Valid() {
		return [][]interface{}{{
			outcome.Name, outcome.Input.PlacementValue,
			nil, nil, nil, nil, nil, nil,
			FailureSummary(outcome.Validation),
		}}
	}

	result := outcome.Result
	rows := make([][]interface{}, 0, len(result.Breakdown))
	for _, share := range result.Breakdown {
		rows = append(rows, []interface{}{
			outcome.Name,
			format.Cents(result.PlacementValue).InexactFloat64(),
			result.EffectiveRatePercent,
			outcome.BonusApplied,
			format.Cents(result.TotalCommissionAmount).InexactFloat64(),
			share.RecruiterName,
			share.Percentage,
			format.Cents(share.Amount).InexactFloat64(),
			"",
		})
	}
	return rows
}
