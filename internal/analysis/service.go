// Package analysis orchestrates the multi-year PMP analysis: per-year
// archive fetches, yearly aggregation, and report assembly.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/pmp-analysis-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/pmp-analysis-service/internal/domain"
	"github.com/couchcryptid/pmp-analysis-service/internal/observability"
)

// ErrNoUsableYears is returned when no year in the requested range produced
// a usable annual summary. The report builder requires non-empty input, so
// this is checked before it runs.
var ErrNoUsableYears = errors.New("no valid data received for the selected location and time period")

// Skip reasons for excluded years. A skipped year is a normal outcome, not
// a failure; the analysis runs on whatever sparse set of years remains.
const (
	SkipFetchError           = "fetch_error"
	SkipNoDailyBlock         = "no_daily_block"
	SkipNoValidPrecipitation = "no_valid_precipitation"
)

// ArchiveFetcher retrieves one calendar year of daily records for a location.
type ArchiveFetcher interface {
	FetchYear(ctx context.Context, lat, lon float64, year int) (domain.DailySeries, error)
}

// ReportPublisher delivers a completed report to an external sink.
type ReportPublisher interface {
	PublishReport(ctx context.Context, req Request, report domain.HydrologicalReport) error
}

// RunRecorder persists an audit record for a completed analysis.
type RunRecorder interface {
	RecordRun(ctx context.Context, run RunRecord) error
}

// Request identifies one analysis: a location, an inclusive year range, and
// an optional climate adjustment factor.
type Request struct {
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	StartYear     int     `json:"startYear"`
	EndYear       int     `json:"endYear"`
	ClimateFactor float64 `json:"climateFactor"`
}

// Validate checks request bounds. maxYearSpan caps the number of years a
// single request may fan out to.
func (r Request) Validate(maxYearSpan int) error {
	if r.Lat < -90 || r.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", r.Lat)
	}
	if r.Lon < -180 || r.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", r.Lon)
	}
	if r.StartYear <= 0 || r.EndYear <= 0 {
		return errors.New("startYear and endYear must be positive")
	}
	if r.StartYear > r.EndYear {
		return fmt.Errorf("startYear %d is after endYear %d", r.StartYear, r.EndYear)
	}
	if span := r.EndYear - r.StartYear + 1; span > maxYearSpan {
		return fmt.Errorf("year span %d exceeds limit %d", span, maxYearSpan)
	}
	return nil
}

// SkippedYear records a year excluded from the analysis and why.
type SkippedYear struct {
	Year   int    `json:"year"`
	Reason string `json:"reason"`
}

// Result is the full outcome of one analysis request.
type Result struct {
	AnnualData []domain.AnnualSummary    `json:"annualData"`
	Report     domain.HydrologicalReport `json:"analysisResults"`
	Skipped    []SkippedYear             `json:"skippedYears"`
}

// RunRecord is the audit row persisted per completed analysis.
type RunRecord struct {
	Lat           float64
	Lon           float64
	StartYear     int
	EndYear       int
	ClimateFactor float64
	YearsCovered  int
	YearsSkipped  int
	PMP           float64
	Duration      time.Duration
	GeneratedAt   time.Time
}

// Service runs analyses against an archive fetcher, optionally publishing
// reports and recording run history. Publisher and recorder may be nil.
type Service struct {
	fetcher     ArchiveFetcher
	publisher   ReportPublisher
	recorder    RunRecorder
	logger      *slog.Logger
	metrics     *observability.Metrics
	concurrency int
	ready       atomic.Bool
}

// New creates a Service. concurrency bounds the number of in-flight archive
// fetches per request; values below 1 are raised to 1.
func New(fetcher ArchiveFetcher, publisher ReportPublisher, recorder RunRecorder, logger *slog.Logger, metrics *observability.Metrics, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		fetcher:     fetcher,
		publisher:   publisher,
		recorder:    recorder,
		logger:      logger,
		metrics:     metrics,
		concurrency: concurrency,
	}
}

// CheckReadiness returns nil once at least one analysis has been served.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no analysis has been served yet")
	}
	return nil
}

// yearOutcome is the per-year result of the fetch-and-aggregate stage:
// either a summary or a skip reason, never both.
type yearOutcome struct {
	year    int
	summary domain.AnnualSummary
	ok      bool
	reason  string
}

// Analyze fetches and aggregates every year in the request range, then runs
// the frequency analysis over the usable years. Years are fetched
// concurrently; summaries are sorted by year before the trend computation,
// which regresses against array index.
func (s *Service) Analyze(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	outcomes := s.collectYears(ctx, req)

	summaries := make([]domain.AnnualSummary, 0, len(outcomes))
	skipped := make([]SkippedYear, 0)
	for _, o := range outcomes {
		if o.ok {
			summaries = append(summaries, o.summary)
			continue
		}
		skipped = append(skipped, SkippedYear{Year: o.year, Reason: o.reason})
		s.metrics.YearsSkipped.WithLabelValues(o.reason).Inc()
	}
	s.metrics.YearsFetched.Add(float64(len(summaries)))

	// Outcomes are collected per year slot so this is already ordered, but
	// the sort makes the trend precondition explicit.
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Year < summaries[j].Year })

	if len(summaries) == 0 {
		s.metrics.AnalysesTotal.WithLabelValues("no_data").Inc()
		return Result{}, ErrNoUsableYears
	}

	report := domain.BuildReport(summaries, req.ClimateFactor)

	s.metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	s.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	s.ready.Store(true)
	s.metrics.ServiceReady.Set(1)

	s.logger.Info("analysis complete",
		"lat", req.Lat,
		"lon", req.Lon,
		"start_year", req.StartYear,
		"end_year", req.EndYear,
		"years_covered", len(summaries),
		"years_skipped", len(skipped),
		"pmp", report.PMP,
	)

	s.publish(ctx, req, report)
	s.record(ctx, req, report, len(summaries), len(skipped), time.Since(start))

	return Result{AnnualData: summaries, Report: report, Skipped: skipped}, nil
}

// collectYears fans out one fetch per year with bounded concurrency and
// collects outcomes into per-year slots, so completion order never matters.
func (s *Service) collectYears(ctx context.Context, req Request) []yearOutcome {
	years := req.EndYear - req.StartYear + 1
	outcomes := make([]yearOutcome, years)

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i := 0; i < years; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcomes[slot] = s.processYear(ctx, req, req.StartYear+slot)
		}(i)
	}
	wg.Wait()

	return outcomes
}

func (s *Service) processYear(ctx context.Context, req Request, year int) yearOutcome {
	daily, err := s.fetcher.FetchYear(ctx, req.Lat, req.Lon, year)
	if err != nil {
		reason := SkipFetchError
		if errors.Is(err, openmeteo.ErrNoDailyBlock) {
			reason = SkipNoDailyBlock
		}
		s.logger.Warn("year skipped", "year", year, "reason", reason, "error", err)
		return yearOutcome{year: year, reason: reason}
	}

	summary, ok := domain.AggregateYear(year, daily)
	if !ok {
		s.logger.Warn("year skipped", "year", year, "reason", SkipNoValidPrecipitation)
		return yearOutcome{year: year, reason: SkipNoValidPrecipitation}
	}
	return yearOutcome{year: year, summary: summary, ok: true}
}

// publish delivers the report to the configured sink. Publish failures are
// logged, not propagated: the caller already has the report.
func (s *Service) publish(ctx context.Context, req Request, report domain.HydrologicalReport) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishReport(ctx, req, report); err != nil {
		s.logger.Warn("report publish failed", "error", err)
		s.metrics.PublishErrors.Inc()
		return
	}
	s.metrics.ReportsPublished.Inc()
}

func (s *Service) record(ctx context.Context, req Request, report domain.HydrologicalReport, covered, skippedCount int, elapsed time.Duration) {
	if s.recorder == nil {
		return
	}
	run := RunRecord{
		Lat:           req.Lat,
		Lon:           req.Lon,
		StartYear:     req.StartYear,
		EndYear:       req.EndYear,
		ClimateFactor: req.ClimateFactor,
		YearsCovered:  covered,
		YearsSkipped:  skippedCount,
		PMP:           report.PMP,
		Duration:      elapsed,
		GeneratedAt:   report.GeneratedAt,
	}
	if err := s.recorder.RecordRun(ctx, run); err != nil {
		s.logger.Warn("run history insert failed", "error", err)
	}
}
