// Package age turns per-region wrinkle percentages into an age bucket.
package age

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/internal/domain/types"
)

// RegionCount is the number of region percentages Aggregate expects.
const RegionCount = 5

// Cutoffs between buckets, in edge-pixel percent. Intervals are half-open:
// [0, YoungBelow) young, [YoungBelow, MiddleAgedBelow) middle-aged, the rest old.
const (
	YoungBelow      = 5.0
	MiddleAgedBelow = 15.0
)

// Categorize maps an average wrinkle percentage to its bucket.
func Categorize(avg float64) types.AgeCategory {
	switch {
	case avg < YoungBelow:
		return types.Young
	case avg < MiddleAgedBelow:
		return types.MiddleAged
	default:
		return types.Old
	}
}

// Aggregate averages the five region percentages and categorizes the mean.
// The mean does not depend on the order of the inputs: values are summed in
// ascending order.
func Aggregate(percentages []float64) (float64, types.AgeCategory, error) {
	if len(percentages) != RegionCount {
		return 0, 0, fmt.Errorf("%w: got %d region percentages, want %d",
			model.ErrInvalidInput, len(percentages), RegionCount)
	}

	sorted := make([]float64, len(percentages))
	copy(sorted, percentages)
	for i, p := range sorted {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 100 {
			return 0, 0, fmt.Errorf("%w: region percentage %d is %g", model.ErrInvalidInput, i, p)
		}
	}
	sort.Float64s(sorted)

	avg := stat.Mean(sorted, nil)
	return avg, Categorize(avg), nil
}
