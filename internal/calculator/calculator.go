// Package calculator runs named commission calculations against a tier
// catalog and reports the outcome of each one.
package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/iwvelando/commission-calculator/internal/config"
	"github.com/iwvelando/commission-calculator/internal/metrics"
	"github.com/iwvelando/commission-calculator/pkg/commission"
	"go.uber.org/zap"
)

// ErrAmountOverflow is returned when a valid input produces an amount too large
// to represent.
var ErrAmountOverflow = errors.New("commission amount overflows")

// Outcome holds everything known about one calculation request. Result is
// nil when validation failed.
type Outcome struct {
	ID           string
	Name         string
	Input        commission.Input
	Validation   commission.ValidationResult
	Result       *commission.Result
	BonusApplied bool
}

// Valid reports whether the calculation passed validation.
func (o Outcome) Valid() bool {
	return o.Validation.Valid()
}

// Calculator validates and calculates commissions against a fixed catalog.
type Calculator struct {
	logger  *zap.Logger
	tiers   commission.Tiers
	metrics *metrics.Recorder
}

// New constructs a Calculator. A nil logger is replaced by a no-op logger and
// a nil recorder disables metrics.
func New(logger *zap.Logger, tiers commission.Tiers, recorder *metrics.Recorder) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{logger: logger, tiers: tiers, metrics: recorder}
}

// Tiers returns the catalog the calculator was built with.
func (c *Calculator) Tiers() commission.Tiers {
	return c.tiers
}

// Validate checks an input without calculating it.
func (c *Calculator) Validate(input commission.Input) commission.ValidationResult {
	return commission.Validate(input, c.tiers)
}

// Run validates the input and, only if it is valid, calculates it.
func (c *Calculator) Run(name string, input commission.Input) (Outcome, error) {
	outcome := Outcome{
		ID:    uuid.NewString(),
		Name:  name,
		Input: input,
	}

	outcome.Validation = commission.Validate(input, c.tiers)
	if !outcome.Validation.Valid() {
		c.metrics.ObserveValidation(outcome.Validation)
		c.logger.Info(fmt.Sprintf("calculation %s failed validation", name),
			zap.String("op", "calculator.Run"),
			zap.String("id", outcome.ID),
			zap.Strings("codes", codeStrings(outcome.Validation)),
			zap.Error(outcome.Validation.Err()),
		)
		return outcome, nil
	}

	result, err := commission.Calculate(input, c.tiers)
	if err != nil {
		c.metrics.ObserveError()
		return outcome, fmt.Errorf("calculation %s: %w", name, err)
	}
	if !finiteAmounts(result) {
		c.metrics.ObserveError()
		c.logger.Warn(fmt.Sprintf("calculation %s produced a non-finite amount", name),
			zap.String("op", "calculator.Run"),
			zap.String("id", outcome.ID),
			zap.Float64("placementValue", result.PlacementValue),
			zap.Float64("effectiveRatePercent", result.EffectiveRatePercent),
		)
		return outcome, fmt.Errorf("calculation %s: %w", name, ErrAmountOverflow)
	}
	outcome.Result = &result
	outcome.BonusApplied = result.BonusApplied
	c.metrics.ObserveResult(result)

	c.logger.Debug(fmt.Sprintf("calculation %s complete", name),
		zap.String("op", "calculator.Run"),
		zap.String("id", outcome.ID),
		zap.Float64("effectiveRatePercent", result.EffectiveRatePercent),
		zap.Float64("totalCommissionAmount", result.TotalCommissionAmount),
		zap.Bool("bonusApplied", result.BonusApplied),
	)

	return outcome, nil
}

// RunAll processes every active calculation in the configuration in order.
func (c *Calculator) RunAll(conf config.Configuration) ([]Outcome, error) {
	var outcomes []Outcome
	for _, calc := range conf.Calculations {
		if !calc.Active {
			c.logger.Debug(fmt.Sprintf("skipping calculation %s because it is inactive", calc.Name),
				zap.String("op", "calculator.RunAll"),
			)
			continue
		}

		input, err := calc.ToInput()
		if err != nil {
			return outcomes, err
		}

		outcome, err := c.Run(calc.Name, input)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

func finiteAmounts(result commission.Result) bool {
	if math.IsInf(result.TotalCommissionAmount, 0) || math.IsNaN(result.TotalCommissionAmount) {
		return false
	}
	for _, share := range result.Breakdown {
		if math.IsInf(share.Amount, 0) || math.IsNaN(share.Amount) {
			return false
		}
	}
	return true
}

func codeStrings(result commission.ValidationResult) []string {
	codes := make([]string, 0, len(result.Failures))
	for _, code := range result.Codes() {
		codes = append(codes, string(code))
	}
	return codes
}
