package metrics

import (
	"math"

	"github.com/samber/lo"
)

// Mean calculates the arithmetic mean of a slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return lo.Sum(values) / float64(len(values))
}

// SampleStdDev calculates the sample standard deviation (n-1 denominator).
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	sumSq := lo.Reduce(values, func(acc float64, v float64, _ int) float64 {
		diff := v - mean
		return acc + diff*diff
	}, 0)
	return math.Sqrt(sumSq / float64(len(values)-1))
}

// LogReturns returns ln(v[i]/v[i-1]) for every consecutive pair where both values are positive.
func LogReturns(values []float64) []float64 {
	var out []float64
	for i := 1; i < len(values); i++ {
		prev, cur := values[i-1], values[i]
		if prev <= 0 || cur <= 0 {
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}
