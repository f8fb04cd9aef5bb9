package domain

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
// Zero is a sentinel for "no data", not an error.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// SampleStd returns the sample standard deviation (Bessel's correction,
// divide by n-1), or 0 when fewer than two samples exist.
func SampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// TrendSlope returns the ordinary-least-squares slope of values regressed
// against the index sequence 0..n-1, or 0 when fewer than two samples exist.
// Callers use the index as a proxy for year, so the input must already be
// ordered by year.
func TrendSlope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, values, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return 0
	}
	return slope
}
