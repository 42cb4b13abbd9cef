// Package backend opens the storage backend named by the configuration and
// hands out its repositories with domain events routed to its outbox.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/config"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/infrastructure/eventing"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/infrastructure/memory"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/infrastructure/mongodb"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/infrastructure/sqlstore"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/cloudevents"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/idempotency"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
	pkgmongo "github.com/raveagil-byte/steritrack-app-sub000/pkg/mongodb"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/outbox"
)

// Backend is an open storage backend
type Backend struct {
	Kind   config.StorageBackend
	Repos  domain.Repositories
	Outbox outbox.Repository
	Keys   idempotency.KeyRepository

	health  func(ctx context.Context) error
	migrate func(ctx context.Context) error
	close   func(ctx context.Context) error
}

// Open connects to the backend selected by cfg.Storage
func Open(ctx context.Context, cfg *config.Config, factory *cloudevents.EventFactory, m *metrics.Metrics, logger *logging.Logger) (*Backend, error) {
	var b *Backend

	switch cfg.Storage {
	case config.StorageMemory:
		store := memory.NewStore()
		b = &Backend{
			Repos:   store.Repositories(),
			Outbox:  store.Outbox(),
			Keys:    idempotency.NewMemoryKeyRepository(),
			health:  func(context.Context) error { return nil },
			migrate: func(context.Context) error { return nil },
			close:   func(context.Context) error { return nil },
		}

	case config.StorageSQLite, config.StoragePostgres:
		sqlCfg := sqlstore.Config{Dialect: sqlstore.DialectSQLite, DSN: cfg.SQLiteDSN}
		if cfg.Storage == config.StoragePostgres {
			sqlCfg = sqlstore.Config{Dialect: sqlstore.DialectPostgres, DSN: cfg.PostgresDSN}
		}
		store, err := sqlstore.Open(ctx, sqlCfg, m, logger)
		if err != nil {
			return nil, err
		}
		b = &Backend{
			Repos:   store.Repositories(),
			Outbox:  store.Outbox(),
			Keys:    store.IdempotencyKeys(),
			health:  store.HealthCheck,
			migrate: store.Migrate,
			close:   func(context.Context) error { return store.Close() },
		}

	case config.StorageMongoDB:
		client, err := pkgmongo.NewClient(ctx, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		store := mongodb.NewStore(client, m, logger)
		b = &Backend{
			Repos:   store.Repositories(),
			Outbox:  store.Outbox(),
			Keys:    store.IdempotencyKeys(),
			health:  store.HealthCheck,
			migrate: store.EnsureIndexes,
			close:   client.Close,
		}

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}

	b.Kind = cfg.Storage
	b.Repos.Events = eventing.NewOutboxRecorder(b.Outbox, factory)
	logger.Info("Storage backend opened", "backend", string(cfg.Storage))
	return b, nil
}

// HealthCheck reports whether the store answers
func (b *Backend) HealthCheck(ctx context.Context) error {
	return b.health(ctx)
}

// Migrate creates the schema or indexes. It is safe to run repeatedly.
func (b *Backend) Migrate(ctx context.Context) error {
	return b.migrate(ctx)
}

// Close releases the connection
func (b *Backend) Close(ctx context.Context) error {
	return b.close(ctx)
}

// EnsureCSSDUnit registers the CSSD itself in the unit directory
func (b *Backend) EnsureCSSDUnit(ctx context.Context, unitID, name string) error {
	existing, err := b.Repos.Units.FindByID(ctx, unitID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	unit, err := domain.NewUnit(unitID, name, time.Now().UTC())
	if err != nil {
		return err
	}
	return b.Repos.Units.Save(ctx, unit)
}
