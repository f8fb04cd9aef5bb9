// Command analyze runs a single PMP analysis from the command line and
// prints the result as JSON. It talks to the archive API directly, without
// the HTTP server, Kafka, or run history.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/couchcryptid/pmp-analysis-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/pmp-analysis-service/internal/analysis"
	"github.com/couchcryptid/pmp-analysis-service/internal/observability"
)

type cli struct {
	Lat           float64       `help:"Latitude in decimal degrees." required:""`
	Lon           float64       `help:"Longitude in decimal degrees." required:""`
	StartYear     int           `help:"First year of the range (inclusive)." required:""`
	EndYear       int           `help:"Last year of the range (inclusive)." required:""`
	ClimateFactor float64       `help:"Climate change adjustment factor, e.g. 0.1 for +10%." default:"0"`
	BaseURL       string        `help:"Open-Meteo archive API base URL." default:"https://archive-api.open-meteo.com/v1/archive"`
	Timeout       time.Duration `help:"Per-request archive timeout." default:"30s"`
	Concurrency   int           `help:"Concurrent archive fetches." default:"4"`
	MaxYearSpan   int           `help:"Maximum number of years per analysis." default:"150"`
	Verbose       bool          `help:"Log progress to stderr." short:"v"`
}

func main() {
	var args cli
	kctx := kong.Parse(&args,
		kong.Name("analyze"),
		kong.Description("Estimate probable maximum precipitation for a location and year range."))
	kctx.FatalIfErrorf(run(args))
}

func run(args cli) error {
	logOut := io.Discard
	if args.Verbose {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logOut, nil))
	metrics := observability.NewMetricsForTesting()

	req := analysis.Request{
		Lat:           args.Lat,
		Lon:           args.Lon,
		StartYear:     args.StartYear,
		EndYear:       args.EndYear,
		ClimateFactor: args.ClimateFactor,
	}
	if err := req.Validate(args.MaxYearSpan); err != nil {
		return err
	}

	fetcher := openmeteo.NewClient(args.BaseURL, args.Timeout, metrics, logger)
	svc := analysis.New(fetcher, nil, nil, logger, metrics, args.Concurrency)

	result, err := svc.Analyze(context.Background(), req)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
