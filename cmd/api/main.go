package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ElohimLOJ/chester-tracker/internal/api"
	"github.com/ElohimLOJ/chester-tracker/internal/config"
	"github.com/ElohimLOJ/chester-tracker/internal/domain"
	"github.com/ElohimLOJ/chester-tracker/internal/events"
	"github.com/ElohimLOJ/chester-tracker/internal/observability"
	"github.com/ElohimLOJ/chester-tracker/internal/persistence"
	httptransport "github.com/ElohimLOJ/chester-tracker/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogMode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("chester-tracker stopped", zap.Error(err))
		_ = logger.Sync()
		log.Fatal(err)
	}
	_ = logger.Sync()
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := persistence.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer store.Close()

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info("publishing activity changes", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("closing publisher", zap.Error(err))
		}
	}()

	service := domain.NewService(store.Repository,
		domain.WithPublisher(publisher),
		domain.WithLogger(logger.Named("service")),
	)
	handler := api.NewHandler(service, logger.Named("api"))
	router := httptransport.NewRouter(logger.Named("http"), handler.RegisterRoutes)
	server := httptransport.NewServer(httptransport.ServerConfigFrom(cfg), router)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("chester-tracker listening", zap.String("addr", cfg.HTTPAddress), zap.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	return serveErr
}
