package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/pmp-analysis-service/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/pmp-analysis-service/internal/adapter/kafka"
	"github.com/couchcryptid/pmp-analysis-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/pmp-analysis-service/internal/analysis"
	"github.com/couchcryptid/pmp-analysis-service/internal/config"
	"github.com/couchcryptid/pmp-analysis-service/internal/observability"
	"github.com/couchcryptid/pmp-analysis-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client := openmeteo.NewClient(cfg.ArchiveBaseURL, cfg.ArchiveTimeout, metrics, logger)
	fetcher := openmeteo.NewCachedClient(client, cfg.ArchiveCacheSize, metrics)
	logger.Info("archive client ready",
		"base_url", cfg.ArchiveBaseURL, "cache_size", cfg.ArchiveCacheSize, "timeout", cfg.ArchiveTimeout)

	// Report publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var publisher *kafkaadapter.Publisher
	var reportSink analysis.ReportPublisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		reportSink = publisher
		logger.Info("kafka report publishing enabled", "topic", cfg.KafkaReportTopic)
	} else {
		logger.Info("kafka report publishing disabled")
	}

	// Run history is feature-flagged via DB_PATH.
	var runStore *store.Store
	var recorder analysis.RunRecorder
	var history httpapi.RunHistory
	if cfg.DBPath != "" {
		runStore, err = store.Open(cfg.DBPath)
		if err != nil {
			logger.Error("failed to open run history store", "error", err)
			os.Exit(1)
		}
		if err := runStore.Migrate(); err != nil {
			logger.Error("failed to migrate run history store", "error", err)
			os.Exit(1)
		}
		recorder = runStore
		history = runStore
		logger.Info("run history enabled", "path", cfg.DBPath)
	} else {
		logger.Info("run history disabled")
	}

	svc := analysis.New(fetcher, reportSink, recorder, logger, metrics, cfg.FetchConcurrency)

	srv := httpapi.NewServer(cfg.HTTPAddr, svc, history, cfg.MaxYearSpan, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if runStore != nil {
		if err := runStore.Close(); err != nil {
			logger.Error("run history store close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
