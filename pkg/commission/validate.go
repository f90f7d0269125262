package commission

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/commission-calculator/pkg/constants"
	"github.com/iwvelando/commission-calculator/pkg/mathutil"
)

// Code identifies the kind of a validation failure.
type Code string

const (
	MissingPlacementValue Code = "MissingPlacementValue"
	MissingRateSelection  Code = "MissingRateSelection"
	InvalidCustomRate     Code = "InvalidCustomRate"
	UnbalancedTeamSplits  Code = "UnbalancedTeamSplits"
	IncompleteTeamSplit   Code = "IncompleteTeamSplit"
)

// Form field keys reported with each failure.
const (
	FieldPlacementValue = "placementValue"
	FieldRate           = "rate"
	FieldCustomRate     = "customRate"
	FieldTeamSplits     = "teamSplits"
)

// boundarySlack absorbs binary representation error so that totals written as
// 99.99 or 100.01 sit inside the split tolerance band.
const boundarySlack = 1e-9

// ErrInvalidInput is matched by the error returned from ValidationResult.Err.
var ErrInvalidInput = errors.New("invalid commission input")

// Failure describes one problem with an Input. Index is the team split
// position for IncompleteTeamSplit and -1 otherwise.
type Failure struct {
	Code    Code   `json:"code"`
	Field   string `json:"field"`
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// ValidationResult holds every failure found in one validation pass.
type ValidationResult struct {
	Failures []Failure `json:"failures"`
}

// Valid reports whether no failures were found.
func (v ValidationResult) Valid() bool {
	return len(v.Failures) == 0
}

// Has reports whether a failure with the given code was found.
func (v ValidationResult) Has(code Code) bool {
	for _, f := range v.Failures {
		if f.Code == code {
			return true
		}
	}
	return false
}

// Codes lists the failure codes in the order they were found.
func (v ValidationResult) Codes() []Code {
	codes := make([]Code, 0, len(v.Failures))
	for _, f := range v.Failures {
		codes = append(codes, f.Code)
	}
	return codes
}

// Err returns nil for a valid result, otherwise a *ValidationError.
func (v ValidationResult) Err() error {
	if v.Valid() {
		return nil
	}
	return &ValidationError{Failures: append([]Failure(nil), v.Failures...)}
}

// ValidationError carries the failures of an invalid Input.
type ValidationError struct {
	Failures []Failure
}

func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		messages = append(messages, f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(messages, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Validate checks an Input against the tier catalog and returns all failures
// at once so a form can display every problem together.
func Validate(input Input, tiers Tiers) ValidationResult {
	var failures []Failure

	if !mathutil.IsPositive(input.PlacementValue) || math.IsInf(input.PlacementValue, 1) {
		failures = append(failures, Failure{
			Code:    MissingPlacementValue,
			Field:   FieldPlacementValue,
			Index:   -1,
			Message: "placement value must be a finite amount greater than zero",
		})
	}

	failures = append(failures, validateRateSource(input.RateSource, tiers)...)
	failures = append(failures, validateTeamSplits(input.TeamSplits)...)

	return ValidationResult{Failures: failures}
}

func validateRateSource(source RateSource, tiers Tiers) []Failure {
	missing := Failure{
		Code:    MissingRateSelection,
		Field:   FieldRate,
		Index:   -1,
		Message: "select a commission tier or enter a custom rate",
	}

	switch rs := source.(type) {
	case TierSelection:
		if strings.TrimSpace(rs.TierID) == "" {
			return []Failure{missing}
		}
		if _, ok := tiers.Find(rs.TierID); !ok {
			missing.Message = fmt.Sprintf("commission tier %q does not exist", rs.TierID)
			return []Failure{missing}
		}
	case CustomRate:
		if !mathutil.IsPositive(rs.RatePercent) || math.IsInf(rs.RatePercent, 1) {
			return []Failure{{
				Code:    InvalidCustomRate,
				Field:   FieldCustomRate,
				Index:   -1,
				Message: "custom rate must be a finite percentage greater than zero",
			}}
		}
	default:
		return []Failure{missing}
	}
	return nil
}

func validateTeamSplits(splits []TeamSplit) []Failure {
	var failures []Failure

	total := 0.0
	for i, split := range splits {
		total += split.Percentage

		var problems []string
		if strings.TrimSpace(split.RecruiterName) == "" {
			problems = append(problems, "recruiter name is required")
		}
		if !mathutil.IsPositive(split.Percentage) {
			problems = append(problems, "percentage must be greater than zero")
		}
		if len(problems) > 0 {
			failures = append(failures, Failure{
				Code:    IncompleteTeamSplit,
				Field:   fmt.Sprintf("%s[%d]", FieldTeamSplits, i),
				Index:   i,
				Message: fmt.Sprintf("team split %d: %s", i+1, strings.Join(problems, " and ")),
			})
		}
	}

	if !mathutil.WithinTolerance(total, constants.FullAllocationPercent, constants.SplitTolerance+boundarySlack) {
		unbalanced := Failure{
			Code:    UnbalancedTeamSplits,
			Field:   FieldTeamSplits,
			Index:   -1,
			Message: fmt.Sprintf("team splits must total 100%%, got %.2f%%", total),
		}
		failures = append([]Failure{unbalanced}, failures...)
	}

	return failures
}
