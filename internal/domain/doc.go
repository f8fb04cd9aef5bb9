// Package domain implements the PMP estimation core: yearly aggregation of
// daily weather records, a heuristic extreme-value frequency analysis, and
// the final hydrological report.
//
// # Data Source
//
// Daily records come from the Open-Meteo historical archive
// (https://archive-api.open-meteo.com/v1/archive), one request per calendar
// year. The daily block carries aligned arrays for each variable; any element
// may be null, so series use *float64.
//
// Canonical daily variable names:
//
//	precipitation_sum, temperature_2m_max, temperature_2m_min,
//	temperature_2m_mean, windspeed_10m_max
//
// # AMDP and PMP
//
// AMDP (Annual Maximum Daily Precipitation) is the largest valid daily
// precipitation value in a calendar year. Precipitation samples are valid
// when present and >= 0; negative values are sensor artifacts and are
// discarded. A year with zero valid precipitation samples produces no
// AnnualSummary and is silently excluded downstream.
//
// PMP (Probable Maximum Precipitation) is estimated with a station-year
// frequency heuristic, not a distributional fit:
//
//	pmp = mean(AMDP) + Km * std(AMDP)
//
// where Km is the larger of a leave-one-out frequency factor (maximum removed
// exactly once, duplicates retained) and a full-sample factor, clamped to
// [1, 25]. Taking the larger candidate is a deliberate conservative bias for
// extreme-event planning. The 95% confidence interval is a normal
// approximation around the point estimate (std / sqrt(n) standard error).
//
// Every numeric edge case (single-year series, zero variance, duplicate
// maxima) resolves to a defined fallback; the estimator never returns an
// error. Summaries must be sorted by year before trend computation because
// the trend is a regression against array index.
package domain
