package commission

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

var testTiers = Tiers{
	{ID: "standard", Name: "Standard", BaseRatePercent: 15, BonusThresholdAmount: 90000, BonusRatePercent: 3},
	{ID: "senior", Name: "Senior", BaseRatePercent: 18, BonusThresholdAmount: 120000, BonusRatePercent: 4},
	{ID: "executive", Name: "Executive", BaseRatePercent: 22, BonusThresholdAmount: 0, BonusRatePercent: 2.5},
}

func custom(rate float64) RateSource { return CustomRate{RatePercent: rate} }
func tier(id string) RateSource      { return TierSelection{TierID: id} }

func mustCalculate(t *testing.T, input Input) Result {
	t.Helper()
	if result := Validate(input, testTiers); !result.Valid() {
		t.Fatalf("Validate() failures = %v, expected none", result.Failures)
	}
	result, err := Calculate(input, testTiers)
	if err != nil {
		t.Fatalf("Calculate() unexpected error = %v", err)
	}
	return result
}

func TestCalculateScenarios(t *testing.T) {
	tests := []struct {
		name          string
		input         Input
		expectedRate  float64
		expectedTotal float64
		expectedBonus bool
		expectedSplit []Share
	}{
		{
			name: "Standard tier two recruiters",
			input: Input{
				PlacementValue: 85000,
				RateSource:     tier("standard"),
				TeamSplits: []TeamSplit{
					{RecruiterName: "Sarah", Percentage: 60},
					{RecruiterName: "David", Percentage: 40},
				},
			},
			expectedRate:  15,
			expectedTotal: 12750,
			expectedSplit: []Share{
				{RecruiterName: "Sarah", Percentage: 60, Amount: 7650},
				{RecruiterName: "David", Percentage: 40, Amount: 5100},
			},
		},
		{
			name: "Custom rate single recruiter",
			input: Input{
				PlacementValue: 50000,
				RateSource:     custom(15),
				TeamSplits:     []TeamSplit{{RecruiterName: "Solo", Percentage: 100}},
			},
			expectedRate:  15,
			expectedTotal: 7500,
			expectedSplit: []Share{{RecruiterName: "Solo", Percentage: 100, Amount: 7500}},
		},
		{
			name: "Custom rate ignores bonus flag",
			input: Input{
				PlacementValue: 500000,
				RateSource:     custom(12.5),
				ApplyBonus:     true,
				TeamSplits:     []TeamSplit{{RecruiterName: "Solo", Percentage: 100}},
			},
			expectedRate:  12.5,
			expectedTotal: 62500,
			expectedSplit: []Share{{RecruiterName: "Solo", Percentage: 100, Amount: 62500}},
		},
		{
			name: "Zero threshold bonus",
			input: Input{
				PlacementValue: 10000,
				RateSource:     tier("executive"),
				ApplyBonus:     true,
				TeamSplits:     []TeamSplit{{RecruiterName: "Solo", Percentage: 100}},
			},
			expectedRate:  24.5,
			expectedTotal: 2450,
			expectedBonus: true,
			expectedSplit: []Share{{RecruiterName: "Solo", Percentage: 100, Amount: 2450}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := mustCalculate(t, tt.input)
			if result.PlacementValue != tt.input.PlacementValue {
				t.Errorf("PlacementValue = %v, expected %v", result.PlacementValue, tt.input.PlacementValue)
			}
			if result.EffectiveRatePercent != tt.expectedRate {
				t.Errorf("EffectiveRatePercent = %v, expected %v", result.EffectiveRatePercent, tt.expectedRate)
			}
			if result.TotalCommissionAmount != tt.expectedTotal {
				t.Errorf("TotalCommissionAmount = %v, expected %v", result.TotalCommissionAmount, tt.expectedTotal)
			}
			if result.BonusApplied != tt.expectedBonus {
				t.Errorf("BonusApplied = %v, expected %v", result.BonusApplied, tt.expectedBonus)
			}
			if !reflect.DeepEqual(result.Breakdown, tt.expectedSplit) {
				t.Errorf("Breakdown = %+v, expected %+v", result.Breakdown, tt.expectedSplit)
			}
		})
	}
}

func TestBonusBoundary(t *testing.T) {
	tests := []struct {
		name           string
		placementValue float64
		applyBonus     bool
		expectedRate   float64
		expectedBonus  bool
	}{
		{"Just below threshold", 89999.99, true, 15, false},
		{"At threshold", 90000, true, 18, true},
		{"Above threshold", 150000, true, 18, true},
		{"Above threshold without bonus flag", 150000, false, 15, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := Input{
				PlacementValue: tt.placementValue,
				RateSource:     tier("standard"),
				ApplyBonus:     tt.applyBonus,
				TeamSplits:     []TeamSplit{{RecruiterName: "Solo", Percentage: 100}},
			}

			result := mustCalculate(t, input)
			if result.EffectiveRatePercent != tt.expectedRate {
				t.Errorf("EffectiveRatePercent = %v, expected %v", result.EffectiveRatePercent, tt.expectedRate)
			}
			if result.BonusApplied != tt.expectedBonus {
				t.Errorf("BonusApplied = %v, expected %v", result.BonusApplied, tt.expectedBonus)
			}

			rate, bonus, err := EffectiveRate(input, testTiers)
			if err != nil {
				t.Fatalf("EffectiveRate() unexpected error = %v", err)
			}
			if rate != tt.expectedRate || bonus != tt.expectedBonus {
				t.Errorf("EffectiveRate() = (%v, %v), expected (%v, %v)", rate, bonus, tt.expectedRate, tt.expectedBonus)
			}
		})
	}
}

func TestBonusApplies(t *testing.T) {
	executive, ok := testTiers.Find("executive")
	if !ok {
		t.Fatal("executive tier not found")
	}
	if !BonusApplies(executive, 1, true) {
		t.Error("BonusApplies() = false for a zero threshold, expected true")
	}
	if BonusApplies(executive, 1, false) {
		t.Error("BonusApplies() = true without the bonus flag, expected false")
	}
}

func TestValidateFailures(t *testing.T) {
	validSplits := []TeamSplit{{RecruiterName: "A", Percentage: 50}, {RecruiterName: "B", Percentage: 50}}

	tests := []struct {
		name     string
		input    Input
		expected []Code
	}{
		{
			name:     "Zero placement value",
			input:    Input{PlacementValue: 0, RateSource: tier("standard"), TeamSplits: validSplits},
			expected: []Code{MissingPlacementValue},
		},
		{
			name:     "Negative placement value",
			input:    Input{PlacementValue: -10, RateSource: tier("standard"), TeamSplits: validSplits},
			expected: []Code{MissingPlacementValue},
		},
		{
			name:     "NaN placement value",
			input:    Input{PlacementValue: math.NaN(), RateSource: tier("standard"), TeamSplits: validSplits},
			expected: []Code{MissingPlacementValue},
		},
		{
			name:     "No rate source",
			input:    Input{PlacementValue: 1000, TeamSplits: validSplits},
			expected: []Code{MissingRateSelection},
		},
		{
			name:     "Empty tier id",
			input:    Input{PlacementValue: 1000, RateSource: tier(" "), TeamSplits: validSplits},
			expected: []Code{MissingRateSelection},
		},
		{
			name:     "Unknown tier id",
			input:    Input{PlacementValue: 1000, RateSource: tier("platinum"), TeamSplits: validSplits},
			expected: []Code{MissingRateSelection},
		},
		{
			name:     "Zero custom rate",
			input:    Input{PlacementValue: 1000, RateSource: custom(0), TeamSplits: validSplits},
			expected: []Code{InvalidCustomRate},
		},
		{
			name:     "Negative custom rate",
			input:    Input{PlacementValue: 1000, RateSource: custom(-2), TeamSplits: validSplits},
			expected: []Code{InvalidCustomRate},
		},
		{
			name: "Splits sum to 99",
			input: Input{PlacementValue: 1000, RateSource: custom(10), TeamSplits: []TeamSplit{
				{RecruiterName: "A", Percentage: 50},
				{RecruiterName: "B", Percentage: 49},
			}},
			expected: []Code{UnbalancedTeamSplits},
		},
		{
			name:     "No splits",
			input:    Input{PlacementValue: 1000, RateSource: custom(10)},
			expected: []Code{UnbalancedTeamSplits},
		},
		{
			name: "Missing recruiter name",
			input: Input{PlacementValue: 1000, RateSource: custom(10), TeamSplits: []TeamSplit{
				{RecruiterName: "A", Percentage: 50},
				{RecruiterName: "", Percentage: 50},
			}},
			expected: []Code{IncompleteTeamSplit},
		},
		{
			name: "Zero percentage split",
			input: Input{PlacementValue: 1000, RateSource: custom(10), TeamSplits: []TeamSplit{
				{RecruiterName: "A", Percentage: 100},
				{RecruiterName: "B", Percentage: 0},
			}},
			expected: []Code{IncompleteTeamSplit},
		},
		{
			name: "Everything wrong at once",
			input: Input{PlacementValue: 0, TeamSplits: []TeamSplit{
				{RecruiterName: "  ", Percentage: 30},
				{RecruiterName: "B", Percentage: -5},
			}},
			expected: []Code{MissingPlacementValue, MissingRateSelection, UnbalancedTeamSplits, IncompleteTeamSplit, IncompleteTeamSplit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.input, testTiers)
			if result.Valid() {
				t.Fatal("Validate() reported valid input, expected failures")
			}
			if codes := result.Codes(); !reflect.DeepEqual(codes, tt.expected) {
				t.Errorf("Codes() = %v, expected %v", codes, tt.expected)
			}
			for _, code := range tt.expected {
				if !result.Has(code) {
					t.Errorf("Has(%s) = false, expected true", code)
				}
			}
		})
	}
}

func TestIncompleteTeamSplitIsIndexed(t *testing.T) {
	input := Input{PlacementValue: 1000, RateSource: custom(10), TeamSplits: []TeamSplit{
		{RecruiterName: "A", Percentage: 40},
		{RecruiterName: "", Percentage: 30},
		{RecruiterName: "C", Percentage: 30},
	}}

	result := Validate(input, testTiers)
	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %v, expected exactly one", result.Failures)
	}
	failure := result.Failures[0]
	if failure.Code != IncompleteTeamSplit {
		t.Errorf("Code = %s, expected %s", failure.Code, IncompleteTeamSplit)
	}
	if failure.Index != 1 {
		t.Errorf("Index = %d, expected 1", failure.Index)
	}
	if failure.Field != "teamSplits[1]" {
		t.Errorf("Field = %q, expected %q", failure.Field, "teamSplits[1]")
	}
	if failure.Message == "" {
		t.Error("Message is empty")
	}
}

func TestSplitToleranceBand(t *testing.T) {
	tests := []struct {
		name        string
		percentages []float64
		valid       bool
	}{
		{"Exactly 100", []float64{60, 40}, true},
		{"Lower edge 99.99", []float64{50, 49.99}, true},
		{"Upper edge 100.01", []float64{50, 50.01}, true},
		{"Thirds", []float64{33.33, 33.33, 33.33}, true},
		{"Below band 99.98", []float64{50, 49.98}, false},
		{"Above band 100.02", []float64{50, 50.02}, false},
		{"Sum 99", []float64{50, 49}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			splits := make([]TeamSplit, len(tt.percentages))
			for i, pct := range tt.percentages {
				splits[i] = TeamSplit{RecruiterName: string(rune('A' + i)), Percentage: pct}
			}
			result := Validate(Input{PlacementValue: 1000, RateSource: custom(10), TeamSplits: splits}, testTiers)
			if result.Valid() != tt.valid {
				t.Errorf("Valid() = %v, expected %v (failures: %v)", result.Valid(), tt.valid, result.Failures)
			}
			if result.Has(UnbalancedTeamSplits) == tt.valid {
				t.Errorf("Has(%s) = %v, expected %v", UnbalancedTeamSplits, !tt.valid, tt.valid)
			}
		})
	}
}

func TestBreakdownSumsToTotal(t *testing.T) {
	splitSets := [][]float64{
		{100},
		{60, 40},
		{50, 25, 25},
		{10, 20, 30, 40},
		{12.5, 12.5, 25, 50},
		{70, 20, 10},
	}
	placements := []float64{1, 999.99, 85000, 123456.78, 1e7}
	rates := []float64{0.5, 7.25, 15, 33.333}

	for _, pcts := range splitSets {
		splits := make([]TeamSplit, len(pcts))
		for i, pct := range pcts {
			splits[i] = TeamSplit{RecruiterName: string(rune('A' + i)), Percentage: pct}
		}
		for _, placement := range placements {
			for _, rate := range rates {
				result := mustCalculate(t, Input{PlacementValue: placement, RateSource: custom(rate), TeamSplits: splits})
				tolerance := 1e-9 * math.Max(1, result.TotalCommissionAmount)
				if diff := math.Abs(result.TotalCommissionAmount - result.BreakdownTotal()); diff > tolerance {
					t.Errorf("placement %v rate %v splits %v: breakdown total differs from %v by %v",
						placement, rate, pcts, result.TotalCommissionAmount, diff)
				}
			}
		}
	}
}

func TestCalculateIsIdempotent(t *testing.T) {
	input := Input{
		PlacementValue: 123456.78,
		RateSource:     tier("senior"),
		ApplyBonus:     true,
		TeamSplits: []TeamSplit{
			{RecruiterName: "A", Percentage: 33.33},
			{RecruiterName: "B", Percentage: 33.33},
			{RecruiterName: "C", Percentage: 33.34},
		},
	}

	first := mustCalculate(t, input)
	second := mustCalculate(t, input)

	if math.Float64bits(first.TotalCommissionAmount) != math.Float64bits(second.TotalCommissionAmount) {
		t.Errorf("TotalCommissionAmount changed between calls: %v then %v", first.TotalCommissionAmount, second.TotalCommissionAmount)
	}
	if len(first.Breakdown) != len(second.Breakdown) {
		t.Fatalf("Breakdown length changed between calls: %d then %d", len(first.Breakdown), len(second.Breakdown))
	}
	for i := range first.Breakdown {
		if math.Float64bits(first.Breakdown[i].Amount) != math.Float64bits(second.Breakdown[i].Amount) {
			t.Errorf("Breakdown[%d].Amount changed between calls: %v then %v", i, first.Breakdown[i].Amount, second.Breakdown[i].Amount)
		}
	}
}

func TestCalculateDoesNotAliasInput(t *testing.T) {
	splits := []TeamSplit{{RecruiterName: "A", Percentage: 100}}
	result := mustCalculate(t, Input{PlacementValue: 1000, RateSource: custom(10), TeamSplits: splits})

	splits[0].RecruiterName = "changed"
	if result.Breakdown[0].RecruiterName != "A" {
		t.Errorf("Breakdown[0].RecruiterName = %q after changing the input, expected %q", result.Breakdown[0].RecruiterName, "A")
	}
}

func TestCalculatePreconditionViolations(t *testing.T) {
	splits := []TeamSplit{{RecruiterName: "A", Percentage: 100}}

	tests := map[string]Input{
		"Unknown tier":   {PlacementValue: 1000, RateSource: tier("missing"), TeamSplits: splits},
		"No rate source": {PlacementValue: 1000, TeamSplits: splits},
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Calculate(input, testTiers)
			if !errors.Is(err, ErrPreconditionViolated) {
				t.Errorf("Calculate() error = %v, expected %v", err, ErrPreconditionViolated)
			}
		})
	}
}

func TestValidationResultErr(t *testing.T) {
	valid := Validate(Input{PlacementValue: 1000, RateSource: custom(10), TeamSplits: []TeamSplit{{RecruiterName: "A", Percentage: 100}}}, testTiers)
	if err := valid.Err(); err != nil {
		t.Errorf("Err() = %v for valid input, expected nil", err)
	}

	invalid := Validate(Input{PlacementValue: 0}, testTiers)
	err := invalid.Err()
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Err() = %v, expected it to wrap %v", err, ErrInvalidInput)
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Err() = %T, expected *ValidationError", err)
	}
	if len(validationErr.Failures) != len(invalid.Failures) {
		t.Errorf("ValidationError has %d failures, expected %d", len(validationErr.Failures), len(invalid.Failures))
	}
	if !strings.Contains(err.Error(), "placement value") {
		t.Errorf("Err() = %q, expected it to mention the placement value", err.Error())
	}
}

func TestSplitEvenly(t *testing.T) {
	tests := []struct {
		name     string
		names    []string
		expected []float64
	}{
		{"No recruiters", nil, nil},
		{"Single recruiter", []string{"Solo"}, []float64{100}},
		{"Thirds", []string{"A", "B", "C"}, []float64{33.33, 33.33, 33.34}},
		{"Sevenths", []string{"A", "B", "C", "D", "E", "F", "G"}, []float64{14.28, 14.28, 14.28, 14.28, 14.28, 14.28, 14.32}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			splits, err := SplitEvenly(tt.names)
			if err != nil {
				t.Fatalf("SplitEvenly() unexpected error = %v", err)
			}
			if len(splits) != len(tt.expected) {
				t.Fatalf("SplitEvenly() returned %d splits, expected %d", len(splits), len(tt.expected))
			}
			for i, split := range splits {
				if split.RecruiterName != tt.names[i] || split.Percentage != tt.expected[i] {
					t.Errorf("splits[%d] = %+v, expected %s at %v", i, split, tt.names[i], tt.expected[i])
				}
			}
			if len(splits) == 0 {
				return
			}
			if result := Validate(Input{PlacementValue: 1000, RateSource: custom(10), TeamSplits: splits}, testTiers); !result.Valid() {
				t.Errorf("even split failed validation: %v", result.Failures)
			}
		})
	}
}

func TestSplitEvenlyLimit(t *testing.T) {
	names := make([]string, MaxEvenSplitRecruiters)
	for i := range names {
		names[i] = "recruiter"
	}

	splits, err := SplitEvenly(names)
	if err != nil {
		t.Fatalf("SplitEvenly() at the limit unexpected error = %v", err)
	}
	if result := Validate(Input{PlacementValue: 1000, RateSource: custom(10), TeamSplits: splits}, testTiers); !result.Valid() {
		t.Errorf("split at the limit failed validation: %v", result.Codes())
	}

	if _, err := SplitEvenly(append(names, "one too many")); !errors.Is(err, ErrTooManyRecruiters) {
		t.Errorf("SplitEvenly() above the limit error = %v, expected %v", err, ErrTooManyRecruiters)
	}
}

func TestResultShareLookup(t *testing.T) {
	result := mustCalculate(t, Input{PlacementValue: 85000, RateSource: tier("standard"), TeamSplits: []TeamSplit{
		{RecruiterName: "Sarah", Percentage: 60},
		{RecruiterName: "David", Percentage: 40},
	}})

	share, ok := result.Share("David")
	if !ok {
		t.Fatal("Share(David) not found")
	}
	if share.Amount != 5100 {
		t.Errorf("Share(David).Amount = %v, expected 5100", share.Amount)
	}

	if _, ok := result.Share("Nobody"); ok {
		t.Error("Share(Nobody) found, expected no match")
	}
}
