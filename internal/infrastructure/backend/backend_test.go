package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/config"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/cloudevents"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
)

func testNow() time.Time {
	return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
}

func open(t *testing.T, storage config.StorageBackend, dsn string) *Backend {
	t.Helper()
	ctx := context.Background()
	b, err := Open(ctx, &config.Config{Storage: storage, SQLiteDSN: dsn},
		cloudevents.NewEventFactory(cloudevents.SourceCSSDService), nil, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(ctx) })
	return b
}

func TestOpenBackends(t *testing.T) {
	tests := []struct {
		name    string
		storage config.StorageBackend
		dsn     string
	}{
		{name: "memory", storage: config.StorageMemory},
		{name: "sqlite", storage: config.StorageSQLite, dsn: ":memory:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			b := open(t, tt.storage, tt.dsn)

			assert.Equal(t, tt.storage, b.Kind)
			require.NoError(t, b.HealthCheck(ctx))
			require.NoError(t, b.Migrate(ctx))
			assert.NotNil(t, b.Repos.Events)
			assert.NotNil(t, b.Keys)

			require.NoError(t, b.EnsureCSSDUnit(ctx, domain.DefaultCSSDUnitID, "CSSD"))
			require.NoError(t, b.EnsureCSSDUnit(ctx, domain.DefaultCSSDUnitID, "CSSD"))
			units, err := b.Repos.Units.FindAll(ctx)
			require.NoError(t, err)
			require.Len(t, units, 1)
			assert.Equal(t, "CSSD", units[0].Name)
		})
	}
}

func TestEventsLandInOutbox(t *testing.T) {
	ctx := context.Background()
	b := open(t, config.StorageMemory, "")

	inst, err := domain.NewInstrument("A", "Gunting", "", 5, false, testNow())
	require.NoError(t, err)
	require.NoError(t, b.Repos.UnitOfWork.Do(ctx, func(ctx context.Context) error {
		if err := b.Repos.Instruments.Create(ctx, inst); err != nil {
			return err
		}
		return b.Repos.Events.Record(ctx, "Pack", "P1", []domain.DomainEvent{&domain.PackExpiredEvent{PackID: "P1", ExpiredAt: testNow()}})
	}))

	events, err := b.Outbox.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "P1", events[0].AggregateID)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Storage: "cassandra"}, nil, nil, logging.Discard())
	assert.ErrorContains(t, err, "unknown storage backend")
}
