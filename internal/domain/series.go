package domain

// Canonical Open-Meteo daily variable names, also used as the `daily`
// request parameter of the archive API.
const (
	VarPrecipitationSum = "precipitation_sum"
	VarTempMax          = "temperature_2m_max"
	VarTempMin          = "temperature_2m_min"
	VarTempMean         = "temperature_2m_mean"
	VarWindMax          = "windspeed_10m_max"
)

// DailySeries holds one calendar year of daily observations. The arrays are
// aligned by day index; nil elements mark days the archive has no value for.
type DailySeries struct {
	Time             []string   `json:"time"`
	PrecipitationSum []*float64 `json:"precipitation_sum"`
	TempMax          []*float64 `json:"temperature_2m_max"`
	TempMin          []*float64 `json:"temperature_2m_min"`
	TempMean         []*float64 `json:"temperature_2m_mean"`
	WindMax          []*float64 `json:"windspeed_10m_max"`
}

// Empty reports whether the series carries no observations at all.
func (s DailySeries) Empty() bool {
	return len(s.PrecipitationSum) == 0 &&
		len(s.TempMax) == 0 &&
		len(s.TempMin) == 0 &&
		len(s.TempMean) == 0 &&
		len(s.WindMax) == 0
}

// validPrecipitation filters a precipitation series to present, non-negative
// samples. Negative precipitation is invalid sensor data.
func validPrecipitation(values []*float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil && *v >= 0 {
			out = append(out, *v)
		}
	}
	return out
}

// validSamples filters a series to present samples. Unlike precipitation,
// other variables only require presence (temperatures may be negative).
func validSamples(values []*float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}
