package domain

// AnnualSummary reduces one year of daily records to the aggregates the
// frequency analysis consumes. Temperature and wind aggregates are optional:
// a year can have a usable precipitation record while a sensor for another
// variable was offline, and partial data in one variable must not block AMDP
// computation.
type AnnualSummary struct {
	Year        int      `json:"year"`
	AMDP        float64  `json:"amdp"`
	TotalPrecip float64  `json:"totalPrecip"`
	AvgTemp     *float64 `json:"avgTemp"`
	MaxTemp     *float64 `json:"maxTemp"`
	MinTemp     *float64 `json:"minTemp"`
	AvgWind     *float64 `json:"avgWind"`
	DataPoints  int      `json:"dataPoints"`
}

// AggregateYear reduces one year's daily series to an AnnualSummary.
// It returns ok=false when the year has no valid precipitation sample;
// that is the normal missing-year outcome, not an error, and the year is
// excluded from all downstream analysis.
func AggregateYear(year int, daily DailySeries) (AnnualSummary, bool) {
	precip := validPrecipitation(daily.PrecipitationSum)
	if len(precip) == 0 {
		return AnnualSummary{}, false
	}

	summary := AnnualSummary{
		Year:       year,
		AMDP:       maxOf(precip),
		DataPoints: len(precip),
	}
	for _, v := range precip {
		summary.TotalPrecip += v
	}

	if tmean := validSamples(daily.TempMean); len(tmean) > 0 {
		summary.AvgTemp = ptr(Mean(tmean))
	}
	if tmax := validSamples(daily.TempMax); len(tmax) > 0 {
		summary.MaxTemp = ptr(maxOf(tmax))
	}
	if tmin := validSamples(daily.TempMin); len(tmin) > 0 {
		summary.MinTemp = ptr(minOf(tmin))
	}
	if wind := validSamples(daily.WindMax); len(wind) > 0 {
		summary.AvgWind = ptr(Mean(wind))
	}

	return summary, true
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func ptr(v float64) *float64 { return &v }
