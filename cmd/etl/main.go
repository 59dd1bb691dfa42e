package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/adapter/filesink"
	httpadapter "github.com/couchcryptid/boiler-telemetry-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/boiler-telemetry-etl/internal/adapter/kafka"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/adapter/source"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/adapter/spreadsheet"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/adapter/sqlitesink"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/config"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/observability"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/pipeline"
)

type sink interface {
	pipeline.Loader
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var src pipeline.Source
	if cfg.SourceURL != "" {
		src = source.NewHTTP(cfg.SourceURL, cfg.SourceToken, cfg.SourceTimeout, logger)
	} else {
		src = source.NewFile(cfg.SourcePath)
	}

	var out sink
	switch cfg.Sink {
	case config.SinkKafka:
		out = kafkaadapter.NewWriter(cfg, logger)
	case config.SinkSQLite:
		store, err := sqlitesink.New(cfg.SQLitePath, logger)
		if err != nil {
			logger.Error("failed to open sqlite sink", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		out = store
	default:
		out = filesink.NewWriter(cfg.OutputDir, logger)
	}

	transformer := pipeline.NewCachedTransformer(
		pipeline.NewTransformer(spreadsheet.Decode, cfg.Build, logger),
		cfg.SyncCacheSize,
		metrics,
	)

	p := pipeline.New(src, transformer, out, logger, metrics, cfg.SyncInterval)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	logger.Info("boiler telemetry etl starting",
		"source", src.Kind(),
		"sink", cfg.Sink,
		"interval", cfg.SyncInterval,
		"scan_floor", cfg.Build.Window.Floor,
		"scan_ceiling", cfg.Build.Window.Ceiling,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start sync loop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("sync still running at shutdown deadline")
	}

	if err := out.Close(); err != nil {
		logger.Error("sink close error", "error", err)
	}

	logger.Info("shutdown complete")
}
