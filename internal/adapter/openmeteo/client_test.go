package openmeteo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/pmp-analysis-service/internal/observability"
)

const dailyBlockJSON = `{
	"latitude": 48.14,
	"longitude": 11.58,
	"daily": {
		"time": ["2020-01-01", "2020-01-02", "2020-01-03"],
		"precipitation_sum": [0.0, 12.4, null],
		"temperature_2m_max": [5.1, 7.3, 6.0],
		"temperature_2m_min": [-2.0, 0.4, null],
		"temperature_2m_mean": [1.5, 3.8, 2.9],
		"windspeed_10m_max": [22.0, null, 31.5]
	}
}`

func testClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_FetchYear_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "48.1400", q.Get("latitude"))
		assert.Equal(t, "11.5800", q.Get("longitude"))
		assert.Equal(t, "2020-01-01", q.Get("start_date"))
		assert.Equal(t, "2020-12-31", q.Get("end_date"))
		assert.Equal(t, "auto", q.Get("timezone"))
		assert.Contains(t, q.Get("daily"), "precipitation_sum")
		assert.Contains(t, q.Get("daily"), "windspeed_10m_max")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, dailyBlockJSON)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	series, err := c.FetchYear(context.Background(), 48.14, 11.58, 2020)
	require.NoError(t, err)

	require.Len(t, series.PrecipitationSum, 3)
	require.NotNil(t, series.PrecipitationSum[1])
	assert.Equal(t, 12.4, *series.PrecipitationSum[1])
	assert.Nil(t, series.PrecipitationSum[2])
	require.NotNil(t, series.TempMin[0])
	assert.Equal(t, -2.0, *series.TempMin[0])
	assert.Nil(t, series.WindMax[1])
}

func TestClient_FetchYear_NoDailyBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"latitude": 48.14, "longitude": 11.58}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.FetchYear(context.Background(), 48.14, 11.58, 2020)
	require.ErrorIs(t, err, ErrNoDailyBlock)
}

func TestClient_FetchYear_EmptyDailyBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"daily": {"time": []}}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.FetchYear(context.Background(), 48.14, 11.58, 2020)
	require.ErrorIs(t, err, ErrNoDailyBlock)
}

func TestClient_FetchYear_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.FetchYear(context.Background(), 48.14, 11.58, 2020)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int64(1), calls.Load(), "4xx must not be retried")
}

func TestClient_FetchYear_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, dailyBlockJSON)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	series, err := c.FetchYear(context.Background(), 48.14, 11.58, 2020)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls.Load(), int64(3))
	assert.Len(t, series.Time, 3)
}

func TestClient_FetchYear_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := testClient(srv.URL)
	_, err := c.FetchYear(ctx, 48.14, 11.58, 2020)
	require.Error(t, err)
}
