package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/couchcryptid/pmp-analysis-service/internal/domain"
	"github.com/couchcryptid/pmp-analysis-service/internal/observability"
)

// ErrNoDailyBlock is returned when the archive responds without a daily
// block for the requested year. Callers treat it as a silently missing year,
// not a failure.
var ErrNoDailyBlock = errors.New("archive response has no daily block")

// dailyParams is the `daily` query parameter listing the variables the
// analysis consumes, in the archive API's expected comma-joined form.
const dailyParams = domain.VarTempMax + "," +
	domain.VarTempMin + "," +
	domain.VarTempMean + "," +
	domain.VarPrecipitationSum + "," +
	domain.VarWindMax

// Fetcher retrieves one calendar year of daily records for a location.
type Fetcher interface {
	FetchYear(ctx context.Context, lat, lon float64, year int) (domain.DailySeries, error)
}

// Client fetches daily weather history from the Open-Meteo archive API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an archive API client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchYear requests the full calendar year of daily records for the given
// coordinates. Rate limiting and server errors are retried with exponential
// backoff; other failures are permanent. A 200 response without a daily
// block returns ErrNoDailyBlock.
func (c *Client) FetchYear(ctx context.Context, lat, lon float64, year int) (domain.DailySeries, error) {
	params := url.Values{
		"latitude":   {fmt.Sprintf("%.4f", lat)},
		"longitude":  {fmt.Sprintf("%.4f", lon)},
		"start_date": {fmt.Sprintf("%d-01-01", year)},
		"end_date":   {fmt.Sprintf("%d-12-31", year)},
		"daily":      {dailyParams},
		"timezone":   {"auto"},
	}
	fullURL := c.baseURL + "?" + params.Encode()

	var body []byte
	operation := func() error {
		start := time.Now()
		err := func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("create request: %w", err))
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("fetch year %d: %w", year, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
				return fmt.Errorf("fetch year %d: status %d", year, resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(resp.Body)
				return backoff.Permanent(fmt.Errorf("fetch year %d: status %d: %s", year, resp.StatusCode, b))
			}

			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			return nil
		}()
		c.metrics.ArchiveRequestDuration.Observe(time.Since(start).Seconds())
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		c.metrics.ArchiveRequests.WithLabelValues("error").Inc()
		return domain.DailySeries{}, err
	}
	c.metrics.ArchiveRequests.WithLabelValues("success").Inc()

	var decoded archiveResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return domain.DailySeries{}, fmt.Errorf("decode archive response: %w", err)
	}

	if decoded.Daily == nil || decoded.Daily.Empty() {
		return domain.DailySeries{}, ErrNoDailyBlock
	}
	return *decoded.Daily, nil
}

// Archive API response envelope; only the daily block matters here.
type archiveResponse struct {
	Daily *domain.DailySeries `json:"daily"`
}
