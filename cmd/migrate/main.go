// Command migrate creates the storage schema of the configured backend and
// registers the CSSD unit.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/config"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/infrastructure/backend"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/cloudevents"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/resilience"
)

var (
	unitName = flag.String("cssd-name", "CSSD", "Display name of the CSSD unit")
	timeout  = flag.Duration("timeout", 2*time.Minute, "Overall migration timeout")
)

func main() {
	flag.Parse()

	cfg, err := config.Load("cssd-migrate")
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Starting CSSD migration...")
	log.Printf("Storage backend: %s", cfg.Storage)
	log.Printf("CSSD unit: %s (%s)", cfg.CSSDUnitID, *unitName)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logger := logging.New(logging.DefaultConfig("cssd-migrate"))
	m := metrics.New(metrics.DefaultConfig("cssd-migrate"))

	// the database may still be starting when migrate runs as an init job
	var store *backend.Backend
	err = resilience.Retry(ctx, resilience.StartupRetryConfig(), func() error {
		var openErr error
		store, openErr = backend.Open(ctx, cfg, cloudevents.NewEventFactory(cloudevents.SourceCSSDService), m, logger)
		if openErr != nil {
			log.Printf("Storage not ready: %v", openErr)
		}
		return openErr
	})
	if err != nil {
		log.Fatalf("Failed to open storage backend: %v", err)
	}
	defer store.Close(context.Background())

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if err := store.EnsureCSSDUnit(ctx, cfg.CSSDUnitID, *unitName); err != nil {
		log.Fatalf("Failed to register the CSSD unit: %v", err)
	}

	log.Println("Migration completed successfully!")
}
