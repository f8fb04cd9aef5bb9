package domain

import "time"

// HydrologicalReport is the final aggregate for one analysis request. It is
// owned by the caller; nothing in the package retains it.
type HydrologicalReport struct {
	MeanAMDP           float64            `json:"meanAMDP"`
	StdAMDP            float64            `json:"stdAMDP"`
	MeanAnnualPrecip   float64            `json:"meanAnnualPrecip"`
	PMP                float64            `json:"pmp"`
	PMPUnadjusted      float64            `json:"pmpUnadjusted"`
	FrequencyFactor    float64            `json:"frequencyFactor"`
	ClimateAdjustment  float64            `json:"climateAdjustment"`
	Trend              float64            `json:"trend"`
	Variability        float64            `json:"variability"`
	DataPoints         int                `json:"dataPoints"`
	YearsCovered       int                `json:"yearsCovered"`
	ConfidenceInterval ConfidenceInterval `json:"confidenceInterval"`
	GeneratedAt        time.Time          `json:"generatedAt"`
}

// BuildReport combines the extreme-value estimate with trend and variability
// metrics across the annual summaries. The summaries must be non-empty and
// sorted by year; callers reject empty datasets before invoking this.
//
// The climate adjustment is risk loading, not a general multiplier: it only
// ever raises the estimate, so zero and negative factors are no-ops.
func BuildReport(summaries []AnnualSummary, climateFactor float64) HydrologicalReport {
	amdp := make([]float64, len(summaries))
	totals := make([]float64, len(summaries))
	for i, s := range summaries {
		amdp[i] = s.AMDP
		totals[i] = s.TotalPrecip
	}

	meanAMDP := Mean(amdp)
	stdAMDP := SampleStd(amdp)

	eva := EstimatePMP(amdp)

	adjusted := eva.PMP
	if climateFactor > 0 {
		adjusted = eva.PMP * (1 + climateFactor)
	}

	variability := 0.0
	if meanAMDP != 0 {
		variability = (stdAMDP / meanAMDP) * 100
	}

	return HydrologicalReport{
		MeanAMDP:           meanAMDP,
		StdAMDP:            stdAMDP,
		MeanAnnualPrecip:   Mean(totals),
		PMP:                adjusted,
		PMPUnadjusted:      eva.PMP,
		FrequencyFactor:    eva.FrequencyFactor,
		ClimateAdjustment:  climateFactor,
		Trend:              TrendSlope(amdp),
		Variability:        variability,
		DataPoints:         len(summaries),
		YearsCovered:       len(summaries),
		ConfidenceInterval: eva.ConfidenceInterval,
		GeneratedAt:        clock.Now().UTC(),
	}
}
