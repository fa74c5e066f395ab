// Command analyzer runs one merge-aggregate-risk-detection pass over the
// district reading CSVs and city metadata JSONs, writes summary CSVs and
// structured reports, and optionally publishes risk alerts to Kafka.
//
// With -serve, the process stays up after the run serving /healthz, /readyz,
// /metrics, and /summary until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/gridsight/consumption-analyzer/internal/adapter/csvfile"
	httpadapter "github.com/gridsight/consumption-analyzer/internal/adapter/http"
	"github.com/gridsight/consumption-analyzer/internal/adapter/jsonfile"
	kafkaadapter "github.com/gridsight/consumption-analyzer/internal/adapter/kafka"
	"github.com/gridsight/consumption-analyzer/internal/adapter/report"
	"github.com/gridsight/consumption-analyzer/internal/config"
	"github.com/gridsight/consumption-analyzer/internal/observability"
	"github.com/gridsight/consumption-analyzer/internal/pipeline"
)

func main() {
	serve := flag.Bool("serve", false, "keep serving HTTP endpoints after the run")
	flag.Parse()

	// Optional .env for local runs; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	var alerts pipeline.AlertPublisher
	var publisher *kafkaadapter.AlertPublisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewAlertPublisher(cfg, logger)
		alerts = publisher
		logger.Info("risk alert publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAlertsTopic)
	} else {
		logger.Info("risk alert publishing disabled")
	}

	p := pipeline.New(
		csvfile.NewReader(cfg.CSVDir, logger),
		jsonfile.NewReader(cfg.JSONDir, logger),
		report.NewWriter(cfg.OutputDir, logger),
		alerts,
		logger,
		metrics,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if *serve {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	result, err := p.Run(ctx)
	if err != nil {
		logger.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	logger.Info("reports written",
		"output_dir", cfg.OutputDir,
		"summaries", len(result.Summaries),
		"reports", len(result.Reports),
		"skipped_records", len(result.Skipped),
		"unevaluated_groups", len(result.Unevaluated),
	)

	if *serve {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("alert publisher close error", "error", err)
		}
	}
}
