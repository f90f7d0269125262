package commission

import (
	"errors"
	"fmt"

	"github.com/iwvelando/commission-calculator/pkg/constants"
)

// totalBasisPoints is 100% expressed in hundredths of a percent.
const totalBasisPoints = int64(constants.FullAllocationPercent * 100)

// MaxEvenSplitRecruiters is the largest team SplitEvenly can serve while giving
// every recruiter at least 0.01%.
const MaxEvenSplitRecruiters = int(totalBasisPoints)

// ErrTooManyRecruiters is returned by SplitEvenly when the team is larger than
// MaxEvenSplitRecruiters.
var ErrTooManyRecruiters = errors.New("too many recruiters to split evenly")

// SplitEvenly divides 100% between the named recruiters. Percentages are
// truncated to two decimals and the last recruiter takes the remainder, so for
// teams of up to MaxEvenSplitRecruiters the allocation passes the team split
// checks.
func SplitEvenly(names []string) ([]TeamSplit, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if len(names) > MaxEvenSplitRecruiters {
		return nil, fmt.Errorf("%d recruiters, limit is %d: %w", len(names), MaxEvenSplitRecruiters, ErrTooManyRecruiters)
	}

	// Work in basis points to keep the arithmetic exact.
	each := totalBasisPoints / int64(len(names))

	splits := make([]TeamSplit, len(names))
	allocated := int64(0)
	for i, name := range names {
		bp := each
		if i == len(names)-1 {
			bp = totalBasisPoints - allocated
		}
		allocated += bp
		splits[i] = TeamSplit{
			RecruiterName: name,
			Percentage:    float64(bp) / 100,
		}
	}
	return splits, nil
}
