package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/application"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/config"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/infrastructure/backend"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/infrastructure/notification"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/cloudevents"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/kafka"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/outbox"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/tracing"
)

const serviceName = "cssd-api"

func main() {
	logger := logging.New(logging.DefaultConfig(serviceName))
	logger.SetDefault()

	logger.Info("Starting CSSD API")

	cfg, err := config.Load(serviceName)
	if err != nil {
		logger.WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}
	ctx := context.Background()

	tracerProvider, err := tracing.Initialize(ctx, cfg.Tracing)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", cfg.Tracing.OTLPEndpoint)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	factory := cloudevents.NewEventFactory(cloudevents.SourceCSSDService)
	store, err := backend.Open(ctx, cfg, factory, m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to open storage backend")
		os.Exit(1)
	}
	defer store.Close(context.Background())

	if err := store.Migrate(ctx); err != nil {
		logger.WithError(err).Error("Failed to migrate storage")
		os.Exit(1)
	}
	if err := store.EnsureCSSDUnit(ctx, cfg.CSSDUnitID, "CSSD"); err != nil {
		logger.WithError(err).Error("Failed to register the CSSD unit")
		os.Exit(1)
	}

	var notifier application.Notifier = notification.NewLogNotifier(logger)
	if cfg.Kafka != nil {
		producer, raw := kafka.NewProductionProducer(cfg.Kafka, m, logger)
		defer raw.Close()
		notifier = notification.NewKafkaNotifier(producer, factory, logger)

		publisher := outbox.NewPublisher(store.Outbox, producer, logger, m, outbox.DefaultPublisherConfig())
		if err := publisher.Start(ctx); err != nil {
			logger.WithError(err).Error("Failed to start outbox publisher")
			os.Exit(1)
		}
		defer publisher.Stop()
		logger.Info("Kafka producer and outbox publisher started", "brokers", cfg.Kafka.Brokers)
	} else {
		logger.Warn("KAFKA_BROKERS not set, events stay in the outbox and alerts go to the log")
	}

	appConfig := application.DefaultConfig()
	appConfig.CSSDUnitID = cfg.CSSDUnitID
	appConfig.ShelfLife = cfg.ShelfLife

	repos := store.Repos
	svc := &services{
		transactions: application.NewTransactionService(repos, appConfig, notifier, m, logger),
		verification: application.NewVerificationService(repos, appConfig, notifier, m, logger),
		overdue:      application.NewOverdueService(repos, appConfig, notifier, m, logger),
		packs:        application.NewPackService(repos, appConfig, m, logger),
		lifecycle:    application.NewLifecycleService(repos, appConfig, m, logger),
		catalog:      application.NewCatalogService(repos, appConfig, m, logger),
		audit:        application.NewAuditService(repos, appConfig, logger),
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(routerDeps{
		Services:      svc,
		Logger:        logger,
		Metrics:       m,
		CSSDUnitID:    cfg.CSSDUnitID,
		EnableTracing: cfg.Tracing.Enabled,
		Keys:          store.Keys,
		Ready:         store.HealthCheck,
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", "addr", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server failed")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
