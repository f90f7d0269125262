package commission

import (
	"errors"
	"fmt"

	"github.com/iwvelando/commission-calculator/pkg/mathutil"
)

// ErrPreconditionViolated is returned by Calculate when it is handed input that
// Validate would have rejected in a way that makes the calculation undefined.
var ErrPreconditionViolated = errors.New("commission calculation precondition violated")

// BonusApplies reports whether the tier's bonus rate is added for the given
// placement value. The threshold is inclusive.
func BonusApplies(tier Tier, placementValue float64, applyBonus bool) bool {
	return applyBonus && placementValue >= tier.BonusThresholdAmount
}

// EffectiveRate resolves the commission rate for an input and reports whether
// a tier bonus was included.
func EffectiveRate(input Input, tiers Tiers) (float64, bool, error) {
	switch rs := input.RateSource.(type) {
	case TierSelection:
		tier, ok := tiers.Find(rs.TierID)
		if !ok {
			return 0, false, fmt.Errorf("tier %q not in catalog: %w", rs.TierID, ErrPreconditionViolated)
		}
		rate := tier.BaseRatePercent
		bonus := BonusApplies(tier, input.PlacementValue, input.ApplyBonus)
		if bonus {
			rate += tier.BonusRatePercent
		}
		return rate, bonus, nil
	case CustomRate:
		return rs.RatePercent, false, nil
	default:
		return 0, false, fmt.Errorf("no rate source selected: %w", ErrPreconditionViolated)
	}
}

// Calculate computes the commission for an input that has passed Validate.
// Amounts use plain float64 arithmetic; rounding for display is left to the
// caller. Calculate does not repeat validation.
func Calculate(input Input, tiers Tiers) (Result, error) {
	rate, bonus, err := EffectiveRate(input, tiers)
	if err != nil {
		return Result{}, err
	}

	total := mathutil.ApplyPercentage(input.PlacementValue, rate)

	breakdown := make([]Share, 0, len(input.TeamSplits))
	for _, split := range input.TeamSplits {
		breakdown = append(breakdown, Share{
			RecruiterName: split.RecruiterName,
			Percentage:    split.Percentage,
			Amount:        mathutil.ApplyPercentage(total, split.Percentage),
		})
	}

	return Result{
		PlacementValue:        input.PlacementValue,
		EffectiveRatePercent:  rate,
		TotalCommissionAmount: total,
		BonusApplied:          bonus,
		Breakdown:             breakdown,
	}, nil
}
