// Command worker runs the CSSD housekeeping workflows on Temporal: the hourly
// overdue-loan sweep and the sterile pack expiry pass.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/application"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/config"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/infrastructure/backend"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/infrastructure/notification"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/workflows"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/cloudevents"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/kafka"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/outbox"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/resilience"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/temporal"
)

const serviceName = "cssd-worker"

const (
	overdueSweepWorkflowID = "cssd-overdue-sweep"
	packExpiryWorkflowID   = "cssd-pack-expiry"
)

func main() {
	logger := logging.New(logging.DefaultConfig(serviceName))
	logger.SetDefault()

	logger.Info("Starting CSSD housekeeping worker")

	cfg, err := config.Load(serviceName)
	if err != nil {
		logger.WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}
	ctx := context.Background()

	m := metrics.New(metrics.DefaultConfig(serviceName))

	factory := cloudevents.NewEventFactory(cloudevents.SourceCSSDService)
	store, err := backend.Open(ctx, cfg, factory, m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to open storage backend")
		os.Exit(1)
	}
	defer store.Close(context.Background())

	var notifier application.Notifier = notification.NewLogNotifier(logger)
	if cfg.Kafka != nil {
		producer, raw := kafka.NewProductionProducer(cfg.Kafka, m, logger)
		defer raw.Close()
		notifier = notification.NewKafkaNotifier(producer, factory, logger)

		// pack expiry writes PackExpired events to the outbox
		publisher := outbox.NewPublisher(store.Outbox, producer, logger, m, outbox.DefaultPublisherConfig())
		if err := publisher.Start(ctx); err != nil {
			logger.WithError(err).Error("Failed to start outbox publisher")
			os.Exit(1)
		}
		defer publisher.Stop()
	}

	appConfig := application.DefaultConfig()
	appConfig.CSSDUnitID = cfg.CSSDUnitID
	appConfig.ShelfLife = cfg.ShelfLife

	overdue := application.NewOverdueService(store.Repos, appConfig, notifier, m, logger)
	packs := application.NewPackService(store.Repos, appConfig, m, logger)

	var temporalClient *temporal.Client
	err = resilience.Retry(ctx, resilience.StartupRetryConfig(), func() error {
		var dialErr error
		temporalClient, dialErr = temporal.NewClient(ctx, cfg.Temporal, logger)
		if dialErr != nil {
			logger.WithError(dialErr).Warn("Temporal not reachable yet")
		}
		return dialErr
	})
	if err != nil {
		logger.WithError(err).Error("Failed to create Temporal client")
		os.Exit(1)
	}
	defer temporalClient.Close()
	logger.Info("Connected to Temporal", "hostPort", cfg.Temporal.HostPort, "namespace", cfg.Temporal.Namespace)

	w := temporalClient.NewWorker(temporal.DefaultWorkerOptions(temporal.TaskQueues.Housekeeping))
	workflows.Register(w, workflows.NewActivities(overdue, packs, m, logger))
	logger.Info("Registered workflows", "workflows", []string{
		temporal.WorkflowNames.OverdueSweep,
		temporal.WorkflowNames.PackExpiry,
	})

	schedules := []struct{ id, cron, name string }{
		{overdueSweepWorkflowID, cfg.OverdueSweepCron, temporal.WorkflowNames.OverdueSweep},
		{packExpiryWorkflowID, cfg.PackExpiryCron, temporal.WorkflowNames.PackExpiry},
	}
	for _, s := range schedules {
		if err := temporalClient.EnsureCronWorkflow(ctx, s.id, temporal.TaskQueues.Housekeeping, s.cron, s.name); err != nil {
			logger.WithError(err).Error("Failed to schedule workflow", "workflowId", s.id)
			os.Exit(1)
		}
		logger.Info("Workflow scheduled", "workflowId", s.id, "cron", s.cron)
	}

	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Metrics server failed")
		}
	}()

	go func() {
		if err := w.Run(nil); err != nil {
			logger.WithError(err).Error("Worker failed")
			os.Exit(1)
		}
	}()
	logger.Info("Worker started", "taskQueue", temporal.TaskQueues.Housekeeping)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")

	w.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	logger.Info("Worker stopped")
}
