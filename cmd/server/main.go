package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/danbi-studio/disaster-sim-service/internal/adapter/http"
	kafkaadapter "github.com/danbi-studio/disaster-sim-service/internal/adapter/kafka"
	"github.com/danbi-studio/disaster-sim-service/internal/adapter/khoa"
	openaiadapter "github.com/danbi-studio/disaster-sim-service/internal/adapter/openai"
	"github.com/danbi-studio/disaster-sim-service/internal/config"
	"github.com/danbi-studio/disaster-sim-service/internal/observability"
	"github.com/danbi-studio/disaster-sim-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	generator := openaiadapter.NewClient(cfg, logger)

	// Audit publishing is feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED.
	var audit pipeline.AuditPublisher
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		audit = publisher
		logger.Info("audit publishing enabled", "topic", cfg.KafkaEventsTopic)
	} else {
		logger.Info("audit publishing disabled")
	}

	scenario := pipeline.NewScenario(generator, audit, logger, metrics)

	// Ocean advisories are feature-flagged via KHOA_SERVICE_KEY.
	var ocean httpadapter.OceanService
	if cfg.OceanEnabled() {
		client := khoa.NewClient(cfg.KHOAServiceKey, cfg.KHOABaseURL, cfg.KHOATimeout, logger)
		locator := khoa.NewCachedLocator(client, cfg.StationCacheSize, metrics)
		ocean = pipeline.NewAdvisory(locator, client, generator, audit, logger, metrics)
		metrics.OceanEnabled.Set(1)
		logger.Info("ocean advisories enabled", "cache_size", cfg.StationCacheSize, "timeout", cfg.KHOATimeout)
	} else {
		logger.Info("ocean advisories disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, scenario, ocean, scenario, cfg.ModelName, logger)

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
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
