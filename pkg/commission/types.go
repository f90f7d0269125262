// Package commission validates placement commission requests and computes the
// commission total together with its team-split breakdown.
//
// The package is pure: Validate and Calculate perform no I/O, keep no state
// and may be called concurrently.
package commission

import "github.com/iwvelando/commission-calculator/pkg/mathutil"

// Tier is a named commission-rate bracket. Tiers are reference data and are
// never modified by this package.
type Tier struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	BaseRatePercent      float64 `json:"baseRatePercent"`
	BonusThresholdAmount float64 `json:"bonusThresholdAmount"`
	BonusRatePercent     float64 `json:"bonusRatePercent"`
}

// Tiers is the catalog of known tiers.
type Tiers []Tier

// Find looks up a tier by id.
func (t Tiers) Find(id string) (Tier, bool) {
	for _, tier := range t {
		if tier.ID == id {
			return tier, true
		}
	}
	return Tier{}, false
}

// TeamSplit allocates a percentage of one commission to a recruiter.
type TeamSplit struct {
	RecruiterName string  `json:"recruiterName"`
	Percentage    float64 `json:"percentage"`
}

// RateSource selects how the commission rate is determined. It is either a
// TierSelection or a CustomRate.
type RateSource interface {
	rateSource()
}

// TierSelection takes the rate from a catalog tier.
type TierSelection struct {
	TierID string
}

// CustomRate uses the given percentage verbatim.
type CustomRate struct {
	RatePercent float64
}

func (TierSelection) rateSource() {}
func (CustomRate) rateSource()    {}

// Input is a single commission calculation request. A nil RateSource means no
// rate was chosen.
type Input struct {
	PlacementValue float64
	RateSource     RateSource
	TeamSplits     []TeamSplit
	ApplyBonus     bool
}

// Share is one recruiter's part of a calculated commission.
type Share struct {
	RecruiterName string  `json:"recruiterName"`
	Percentage    float64 `json:"percentage"`
	Amount        float64 `json:"amount"`
}

// Result is the outcome of a calculation. It is built fresh for every call.
type Result struct {
	PlacementValue        float64 `json:"placementValue"`
	EffectiveRatePercent  float64 `json:"effectiveRatePercent"`
	TotalCommissionAmount float64 `json:"totalCommissionAmount"`
	BonusApplied          bool    `json:"bonusApplied"`
	Breakdown             []Share `json:"breakdown"`
}

// Share returns the breakdown entry for the named recruiter.
func (r Result) Share(recruiterName string) (Share, bool) {
	for _, share := range r.Breakdown {
		if share.RecruiterName == recruiterName {
			return share, true
		}
	}
	return Share{}, false
}

// BreakdownTotal sums the breakdown amounts.
func (r Result) BreakdownTotal() float64 {
	amounts := make([]float64, len(r.Breakdown))
	for i, share := range r.Breakdown {
		amounts[i] = share.Amount
	}
	return mathutil.Sum(amounts)
}
