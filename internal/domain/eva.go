package domain

import "math"

// epsilon floors standard deviations before division so zero-variance
// series never divide by zero.
const epsilon = 1e-6

// Frequency factor bounds. Values outside [1, 25] are not physically
// plausible for a single-site station-year analysis.
const (
	minFrequencyFactor = 1.0
	maxFrequencyFactor = 25.0
)

// ConfidenceInterval is an approximate 95% interval around the PMP estimate.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// EVAResult is the output of the extreme-value frequency analysis.
type EVAResult struct {
	PMP                float64            `json:"pmp"`
	FrequencyFactor    float64            `json:"frequencyFactor"`
	ConfidenceInterval ConfidenceInterval `json:"confidenceInterval"`
}

// EstimatePMP runs a heuristic single-site station-year frequency analysis
// over an AMDP series. The input must be non-empty; every length >= 1 has
// defined behavior and no branch returns an error.
//
// Two candidate frequency factors are computed: a leave-one-out form with
// one occurrence of the maximum removed, and a full-sample form. The larger
// candidate wins; see the package documentation for why.
func EstimatePMP(amdp []float64) EVAResult {
	mean := Mean(amdp)
	std := SampleStd(amdp)
	xmax := maxOf(amdp)

	// Remove exactly one occurrence of the maximum. Duplicate maxima stay
	// in rest so they keep contributing to the leave-one-out moments.
	rest := removeFirst(amdp, xmax)

	var xmean, s float64
	if len(rest) > 0 {
		xmean = Mean(rest)
		s = math.Max(SampleStd(rest), epsilon)
	} else {
		// Single-year series: fall back to the full-sample moments.
		xmean = mean
		s = math.Max(std, epsilon)
	}

	kmA := (xmax - xmean) / s
	kmB := (xmax - mean) / math.Max(std, epsilon)

	factor := math.Max(kmA, kmB)
	factor = math.Max(minFrequencyFactor, math.Min(maxFrequencyFactor, factor))
	factor = math.Round(factor*100) / 100

	pmp := mean + factor*std

	// Normal-approximation standard error. n is guaranteed >= 1 by the
	// input contract; the divisor-1 guard keeps the expression total anyway.
	divisor := 1.0
	if n := len(amdp); n > 0 {
		divisor = math.Sqrt(float64(n))
	}
	standardError := std / divisor

	return EVAResult{
		PMP:             pmp,
		FrequencyFactor: factor,
		ConfidenceInterval: ConfidenceInterval{
			Lower: pmp - 1.96*standardError,
			Upper: pmp + 1.96*standardError,
		},
	}
}

// removeFirst returns values with the first element equal to target removed.
// Deletion is by index, not value-set membership, so duplicates elsewhere in
// the slice remain.
func removeFirst(values []float64, target float64) []float64 {
	for i, v := range values {
		if v == target {
			out := make([]float64, 0, len(values)-1)
			out = append(out, values[:i]...)
			return append(out, values[i+1:]...)
		}
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out
}
