// Command audit checks that every instrument's total stock equals what is
// held at the CSSD, at care units and inside packs. It prints the report as
// JSON and exits 1 when any instrument drifts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/application"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/config"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/infrastructure/backend"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/cloudevents"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
)

var timeout = flag.Duration("timeout", time.Minute, "Audit timeout")

func main() {
	flag.Parse()

	cfg, err := config.Load("cssd-audit")
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logger := logging.New(logging.DefaultConfig("cssd-audit"))
	m := metrics.New(metrics.DefaultConfig("cssd-audit"))

	store, err := backend.Open(ctx, cfg, cloudevents.NewEventFactory(cloudevents.SourceCSSDService), m, logger)
	if err != nil {
		log.Fatalf("Failed to open storage backend: %v", err)
	}
	defer store.Close(context.Background())

	appConfig := application.DefaultConfig()
	appConfig.CSSDUnitID = cfg.CSSDUnitID

	report, err := application.NewAuditService(store.Repos, appConfig, logger).CheckStock(ctx)
	if err != nil {
		log.Fatalf("Audit failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}

	if !report.Consistent {
		log.Printf("%d of %d instruments drift", len(report.Drifts), report.Instruments)
		os.Exit(1)
	}
}
