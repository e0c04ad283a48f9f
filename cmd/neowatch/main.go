package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/perihelion-labs/neo-watch/internal/adapter/http"
	kafkaadapter "github.com/perihelion-labs/neo-watch/internal/adapter/kafka"
	"github.com/perihelion-labs/neo-watch/internal/adapter/nasa"
	"github.com/perihelion-labs/neo-watch/internal/adapter/store"
	"github.com/perihelion-labs/neo-watch/internal/chat"
	"github.com/perihelion-labs/neo-watch/internal/config"
	"github.com/perihelion-labs/neo-watch/internal/observability"
	"github.com/perihelion-labs/neo-watch/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	db, err := store.Open(cfg.DataDir, logger)
	if err != nil {
		logger.Error("failed to open database", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	objects := store.NewObjectStore(db)
	risks, err := store.NewRiskStore(db)
	if err != nil {
		logger.Error("failed to open risk store", "error", err)
		os.Exit(1)
	}
	defer risks.Close()

	client := nasa.NewClient(cfg.NASAAPIKey, cfg.NASABaseURL, cfg.NASATimeout, metrics, logger)
	feed := nasa.NewCachedFeed(client, cfg.NASACacheSize)

	// Alert publishing is feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED.
	var alerts pipeline.AlertPublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		alerts = writer
		logger.Info("alert publishing enabled", "topic", cfg.KafkaAlertsTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("alert publishing disabled")
	}

	p := pipeline.New(feed, objects, risks, alerts, logger, metrics)
	hub := chat.NewHub(store.NewChatLog(db), cfg.ChatBufferSize, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, hub, logger)

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
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
