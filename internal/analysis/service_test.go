package analysis_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/pmp-analysis-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/pmp-analysis-service/internal/analysis"
	"github.com/couchcryptid/pmp-analysis-service/internal/domain"
	"github.com/couchcryptid/pmp-analysis-service/internal/observability"
)

// --- mocks ---

type mockFetcher struct {
	mu     sync.Mutex
	series map[int]domain.DailySeries
	errs   map[int]error
	delays map[int]time.Duration
	calls  []int
}

func (m *mockFetcher) FetchYear(_ context.Context, _, _ float64, year int) (domain.DailySeries, error) {
	m.mu.Lock()
	m.calls = append(m.calls, year)
	delay := m.delays[year]
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err, ok := m.errs[year]; ok {
		return domain.DailySeries{}, err
	}
	return m.series[year], nil
}

type mockPublisher struct {
	mu        sync.Mutex
	published []domain.HydrologicalReport
	err       error
}

func (m *mockPublisher) PublishReport(_ context.Context, _ analysis.Request, report domain.HydrologicalReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, report)
	return nil
}

type mockRecorder struct {
	mu   sync.Mutex
	runs []analysis.RunRecord
}

func (m *mockRecorder) RecordRun(_ context.Context, run analysis.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seriesWithPrecip(values ...float64) domain.DailySeries {
	precip := make([]*float64, len(values))
	for i := range values {
		v := values[i]
		precip[i] = &v
	}
	return domain.DailySeries{PrecipitationSum: precip}
}

func testRequest() analysis.Request {
	return analysis.Request{Lat: 48.14, Lon: 11.58, StartYear: 2020, EndYear: 2022}
}

func newService(f analysis.ArchiveFetcher, p analysis.ReportPublisher, r analysis.RunRecorder) *analysis.Service {
	return analysis.New(f, p, r, discardLogger(), observability.NewMetricsForTesting(), 2)
}

// --- tests ---

func TestService_Analyze_HappyPath(t *testing.T) {
	fetcher := &mockFetcher{series: map[int]domain.DailySeries{
		2020: seriesWithPrecip(40, 5, 12),
		2021: seriesWithPrecip(55, 8),
		2022: seriesWithPrecip(30),
	}}
	svc := newService(fetcher, nil, nil)

	result, err := svc.Analyze(context.Background(), testRequest())
	require.NoError(t, err)

	require.Len(t, result.AnnualData, 3)
	assert.Equal(t, 2020, result.AnnualData[0].Year)
	assert.Equal(t, 2021, result.AnnualData[1].Year)
	assert.Equal(t, 2022, result.AnnualData[2].Year)
	assert.Equal(t, 40.0, result.AnnualData[0].AMDP)
	assert.Equal(t, 55.0, result.AnnualData[1].AMDP)
	assert.Equal(t, 30.0, result.AnnualData[2].AMDP)
	assert.Empty(t, result.Skipped)

	// AMDP series [40, 55, 30]: leave-one-out factor 2.83 wins.
	assert.InDelta(t, 2.83, result.Report.FrequencyFactor, 1e-9)
	assert.Equal(t, 3, result.Report.YearsCovered)
	assert.NoError(t, svc.CheckReadiness(context.Background()))
}

func TestService_Analyze_SkipsMissingYears(t *testing.T) {
	fetcher := &mockFetcher{
		series: map[int]domain.DailySeries{
			2020: seriesWithPrecip(40),
			2021: {PrecipitationSum: []*float64{nil, nil}},
			2022: seriesWithPrecip(30),
		},
	}
	svc := newService(fetcher, nil, nil)

	result, err := svc.Analyze(context.Background(), testRequest())
	require.NoError(t, err)

	require.Len(t, result.AnnualData, 2)
	assert.Equal(t, []int{2020, 2022}, []int{result.AnnualData[0].Year, result.AnnualData[1].Year})

	expected := []analysis.SkippedYear{{Year: 2021, Reason: analysis.SkipNoValidPrecipitation}}
	if diff := cmp.Diff(expected, result.Skipped); diff != "" {
		t.Errorf("skipped years mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, result.Report.YearsCovered)
}

func TestService_Analyze_SkipReasons(t *testing.T) {
	fetcher := &mockFetcher{
		series: map[int]domain.DailySeries{2022: seriesWithPrecip(30)},
		errs: map[int]error{
			2020: errors.New("connection refused"),
			2021: openmeteo.ErrNoDailyBlock,
		},
	}
	svc := newService(fetcher, nil, nil)

	result, err := svc.Analyze(context.Background(), testRequest())
	require.NoError(t, err)

	expected := []analysis.SkippedYear{
		{Year: 2020, Reason: analysis.SkipFetchError},
		{Year: 2021, Reason: analysis.SkipNoDailyBlock},
	}
	if diff := cmp.Diff(expected, result.Skipped); diff != "" {
		t.Errorf("skipped years mismatch (-want +got):\n%s", diff)
	}
}

func TestService_Analyze_NoUsableYears(t *testing.T) {
	fetcher := &mockFetcher{errs: map[int]error{
		2020: errors.New("down"),
		2021: errors.New("down"),
		2022: errors.New("down"),
	}}
	svc := newService(fetcher, nil, nil)

	_, err := svc.Analyze(context.Background(), testRequest())
	require.ErrorIs(t, err, analysis.ErrNoUsableYears)
	assert.Error(t, svc.CheckReadiness(context.Background()))
}

func TestService_Analyze_CompletionOrderDoesNotAffectOrdering(t *testing.T) {
	// The earliest year finishes last; summaries must still come back
	// sorted by year because the trend regresses against array index.
	fetcher := &mockFetcher{
		series: map[int]domain.DailySeries{
			2020: seriesWithPrecip(10),
			2021: seriesWithPrecip(20),
			2022: seriesWithPrecip(30),
		},
		delays: map[int]time.Duration{2020: 50 * time.Millisecond},
	}
	svc := newService(fetcher, nil, nil)

	result, err := svc.Analyze(context.Background(), testRequest())
	require.NoError(t, err)

	require.Len(t, result.AnnualData, 3)
	assert.Equal(t, 2020, result.AnnualData[0].Year)
	assert.Equal(t, 2022, result.AnnualData[2].Year)
	// Strictly increasing AMDP over the sorted years: slope +10 per year.
	assert.InDelta(t, 10.0, result.Report.Trend, 1e-9)
}

func TestService_Analyze_PublishesReport(t *testing.T) {
	fetcher := &mockFetcher{series: map[int]domain.DailySeries{
		2020: seriesWithPrecip(40), 2021: seriesWithPrecip(55), 2022: seriesWithPrecip(30),
	}}
	publisher := &mockPublisher{}
	svc := newService(fetcher, publisher, nil)

	result, err := svc.Analyze(context.Background(), testRequest())
	require.NoError(t, err)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, result.Report, publisher.published[0])
}

func TestService_Analyze_PublishFailureIsNotFatal(t *testing.T) {
	fetcher := &mockFetcher{series: map[int]domain.DailySeries{
		2020: seriesWithPrecip(40), 2021: seriesWithPrecip(55), 2022: seriesWithPrecip(30),
	}}
	publisher := &mockPublisher{err: errors.New("broker unavailable")}
	svc := newService(fetcher, publisher, nil)

	_, err := svc.Analyze(context.Background(), testRequest())
	require.NoError(t, err)
}

func TestService_Analyze_RecordsRunHistory(t *testing.T) {
	fetcher := &mockFetcher{
		series: map[int]domain.DailySeries{2020: seriesWithPrecip(40), 2022: seriesWithPrecip(30)},
		errs:   map[int]error{2021: errors.New("down")},
	}
	recorder := &mockRecorder{}
	svc := newService(fetcher, nil, recorder)

	req := testRequest()
	req.ClimateFactor = 0.1
	result, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, recorder.runs, 1)
	run := recorder.runs[0]
	assert.Equal(t, 48.14, run.Lat)
	assert.Equal(t, 2020, run.StartYear)
	assert.Equal(t, 2022, run.EndYear)
	assert.Equal(t, 0.1, run.ClimateFactor)
	assert.Equal(t, 2, run.YearsCovered)
	assert.Equal(t, 1, run.YearsSkipped)
	assert.Equal(t, result.Report.PMP, run.PMP)
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     analysis.Request
		wantErr string
	}{
		{"valid", analysis.Request{Lat: 48, Lon: 11, StartYear: 2000, EndYear: 2020}, ""},
		{"latitude too high", analysis.Request{Lat: 91, Lon: 11, StartYear: 2000, EndYear: 2020}, "latitude"},
		{"longitude too low", analysis.Request{Lat: 48, Lon: -181, StartYear: 2000, EndYear: 2020}, "longitude"},
		{"zero start year", analysis.Request{Lat: 48, Lon: 11, EndYear: 2020}, "positive"},
		{"reversed range", analysis.Request{Lat: 48, Lon: 11, StartYear: 2021, EndYear: 2020}, "after"},
		{"span too wide", analysis.Request{Lat: 48, Lon: 11, StartYear: 1800, EndYear: 2020}, "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(150)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
