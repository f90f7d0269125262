// Package output provides utilities for formatting and displaying commission outcomes.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/commission-calculator/internal/calculator"
	"github.com/iwvelando/commission-calculator/pkg/commission"
	"github.com/iwvelando/commission-calculator/pkg/format"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat writes a human-readable rather than machine-readable report.
func PrettyFormat(w io.Writer, ctx format.DisplayContext, outcomes []calculator.Outcome) {
	p := message.NewPrinter(language.English)
	for i, outcome := range outcomes {
		_, _ = p.Fprintf(w, "--- Commission for %s ---\n", outcome.Name)
		if !outcome.Valid() {
			_, _ = p.Fprintf(w, "Invalid input:\n")
			for _, failure := range outcome.Validation.Failures {
				_, _ = p.Fprintf(w, "  %s: %s\n", failure.Field, failure.Message)
			}
		} else {
			result := outcome.Result
			rate := format.Percent(result.EffectiveRatePercent)
			if outcome.BonusApplied {
				rate += " (bonus applied)"
			}
			_, _ = p.Fprintf(w, "Placement value | %s\n", format.Money(ctx, result.PlacementValue))
			_, _ = p.Fprintf(w, "Effective rate  | %s\n", rate)
			_, _ = p.Fprintf(w, "Total           | %s\n", format.Money(ctx, result.TotalCommissionAmount))
			_, _ = p.Fprintf(w, "Recruiter | Share | Amount\n")
			_, _ = p.Fprintf(w, "_________ | _____ | ______\n")
			for _, share := range result.Breakdown {
				_, _ = p.Fprintf(w, "%s | %s | %s\n", share.RecruiterName, format.Percent(share.Percentage), format.Money(ctx, share.Amount))
			}
		}
		if i < len(outcomes)-1 {
			_, _ = fmt.Fprintf(w, "\n")
		}
	}
}

// CsvHeader is the column layout written by CsvFormat.
var CsvHeader = []string{
	"calculation", "placement value", "effective rate percent", "bonus applied",
	"total commission", "recruiter", "share percent", "amount", "errors",
}

// CsvFormat writes one row per breakdown share, or one row per invalid calculation.
// Amounts are rounded to cents.
func CsvFormat(w io.Writer, outcomes []calculator.Outcome) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CsvHeader); err != nil {
		return err
	}

	for _, outcome := range outcomes {
		for _, row := range csvRows(outcome) {
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func csvRows(outcome calculator.Outcome) [][]string {
	if !outcome.Valid() {
		return [][]string{{
			outcome.Name,
			formatFloat(outcome.Input.PlacementValue),
			"", "", "", "", "", "",
			FailureSummary(outcome.Validation),
		}}
	}

	result := outcome.Result
	rows := make([][]string, 0, len(result.Breakdown))
	for _, share := range result.Breakdown {
		rows = append(rows, []string{
			outcome.Name,
			format.Cents(result.PlacementValue).StringFixed(2),
			formatFloat(result.EffectiveRatePercent),
			strconv.FormatBool(outcome.BonusApplied),
			format.Cents(result.TotalCommissionAmount).StringFixed(2),
			share.RecruiterName,
			formatFloat(share.Percentage),
			format.Cents(share.Amount).StringFixed(2),
			"",
		})
	}
	return rows
}

// FailureSummary joins the failure messages of a validation result.
func FailureSummary(result commission.ValidationResult) string {
	messages := make([]string, 0, len(result.Failures))
	for _, failure := range result.Failures {
		messages = append(messages, failure.Message)
	}
	return strings.Join(messages, "; ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
