package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/pmp-analysis-service/internal/analysis"
	"github.com/couchcryptid/pmp-analysis-service/internal/config"
	"github.com/couchcryptid/pmp-analysis-service/internal/domain"
)

// Publisher produces completed hydrological reports to a Kafka topic.
// It implements analysis.ReportPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured report topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishReport serializes and publishes one report to the sink topic.
func (p *Publisher) PublishReport(ctx context.Context, req analysis.Request, report domain.HydrologicalReport) error {
	msg, err := serializeToMessage(req, report)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// reportMessage is the envelope written to the sink topic: the request that
// produced the report plus the report itself.
type reportMessage struct {
	Request analysis.Request          `json:"request"`
	Report  domain.HydrologicalReport `json:"report"`
}

// serializeToMessage marshals a report into a Kafka message. The key is
// deterministic per location and year range so replays of the same request
// land on the same partition.
func serializeToMessage(req analysis.Request, report domain.HydrologicalReport) (kafkago.Message, error) {
	data, err := json.Marshal(reportMessage{Request: req, Report: report})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	key := fmt.Sprintf("%.4f|%.4f|%d-%d", req.Lat, req.Lon, req.StartYear, req.EndYear)
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "generated_at", Value: []byte(report.GeneratedAt.Format(time.RFC3339))},
			{Key: "years_covered", Value: []byte(strconv.Itoa(report.YearsCovered))},
		},
	}, nil
}
