// Package mongodb is the MongoDB storage backend. Stock moves are guarded
// $inc updates and a unit of work is a session transaction.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/idempotency"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
	pkgmongo "github.com/raveagil-byte/steritrack-app-sub000/pkg/mongodb"
	outboxMongo "github.com/raveagil-byte/steritrack-app-sub000/pkg/outbox/mongodb"
)

// Collection names
const (
	InstrumentsCollection   = "instruments"
	SnapshotsCollection     = "inventory_snapshots"
	AssetsCollection        = "instrument_assets"
	SetsCollection          = "instrument_sets"
	PacksCollection         = "sterile_packs"
	TransactionsCollection  = "transactions"
	BatchesCollection       = "sterilization_batches"
	DiscrepanciesCollection = "discrepancy_reports"
	UnitsCollection         = "units"
)

// Store is the MongoDB backend. It needs a replica set for transactions.
type Store struct {
	client *pkgmongo.Client

	instruments   *pkgmongo.InstrumentedCollection
	snapshots     *pkgmongo.InstrumentedCollection
	assets        *pkgmongo.InstrumentedCollection
	sets          *pkgmongo.InstrumentedCollection
	packs         *pkgmongo.InstrumentedCollection
	transactions  *pkgmongo.InstrumentedCollection
	batches       *pkgmongo.InstrumentedCollection
	discrepancies *pkgmongo.InstrumentedCollection
	units         *pkgmongo.InstrumentedCollection

	outbox *outboxMongo.OutboxRepository
	keys   *idempotency.MongoKeyRepository
}

// NewStore creates a store over client's database. m and logger may be nil.
func NewStore(client *pkgmongo.Client, m *metrics.Metrics, logger *logging.Logger) *Store {
	db := client.Database()
	coll := func(name string) *pkgmongo.InstrumentedCollection {
		return pkgmongo.NewInstrumentedCollection(db.Collection(name), m, logger)
	}
	return &Store{
		client:        client,
		instruments:   coll(InstrumentsCollection),
		snapshots:     coll(SnapshotsCollection),
		assets:        coll(AssetsCollection),
		sets:          coll(SetsCollection),
		packs:         coll(PacksCollection),
		transactions:  coll(TransactionsCollection),
		batches:       coll(BatchesCollection),
		discrepancies: coll(DiscrepanciesCollection),
		units:         coll(UnitsCollection),
		outbox:        outboxMongo.NewOutboxRepository(db),
		keys:          idempotency.NewMongoKeyRepository(db),
	}
}

// Repositories returns every port backed by this store
func (s *Store) Repositories() domain.Repositories {
	return domain.Repositories{
		UnitOfWork:    s,
		Ledger:        &Ledger{store: s},
		Instruments:   &InstrumentRepository{coll: s.instruments},
		Snapshots:     &SnapshotRepository{coll: s.snapshots},
		Assets:        &AssetRepository{coll: s.assets},
		Sets:          &SetRepository{coll: s.sets},
		Packs:         &PackRepository{coll: s.packs},
		Transactions:  &TransactionRepository{coll: s.transactions},
		Batches:       &BatchRepository{coll: s.batches},
		Discrepancies: &DiscrepancyRepository{coll: s.discrepancies},
		Units:         &UnitRepository{coll: s.units},
	}
}

// Outbox returns the outbox repository. Writes on a unit of work's ctx join its session.
func (s *Store) Outbox() *outboxMongo.OutboxRepository {
	return s.outbox
}

// IdempotencyKeys returns the idempotency key repository
func (s *Store) IdempotencyKeys() *idempotency.MongoKeyRepository {
	return s.keys
}

// HealthCheck pings the primary
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.HealthCheck(ctx)
}

// Do runs fn inside a session transaction. The driver retries fn on
// transient write conflicts; one that outlives the retries is reported as a
// concurrency conflict.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	err := s.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx)
	})
	if err != nil && pkgmongo.IsTransientTransactionError(err) {
		return &domain.ConcurrencyConflictError{Resource: "transaction", Err: err}
	}
	return err
}

// EnsureIndexes creates the indexes every collection relies on
func (s *Store) EnsureIndexes(ctx context.Context) error {
	plan := []struct {
		coll    *pkgmongo.InstrumentedCollection
		indexes []mongo.IndexModel
	}{
		{s.snapshots, []mongo.IndexModel{
			{Keys: bson.D{{Key: "instrumentId", Value: 1}, {Key: "unitId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_instrument_unit")},
			{Keys: bson.D{{Key: "unitId", Value: 1}}, Options: options.Index().SetName("idx_unitId")},
		}},
		{s.assets, []mongo.IndexModel{
			{Keys: bson.D{{Key: "instrumentId", Value: 1}, {Key: "serialNumber", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_instrument_serial")},
		}},
		{s.packs, []mongo.IndexModel{
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}, Options: options.Index().SetName("idx_status_createdAt")},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetName("idx_expiresAt")},
		}},
		{s.transactions, []mongo.IndexModel{
			{Keys: bson.D{{Key: "unitId", Value: 1}, {Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_unitId_timestamp")},
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "status", Value: 1}}, Options: options.Index().SetName("idx_type_status")},
		}},
		{s.batches, []mongo.IndexModel{
			{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_createdAt")},
		}},
		{s.discrepancies, []mongo.IndexModel{
			{Keys: bson.D{{Key: "transactionId", Value: 1}}, Options: options.Index().SetName("idx_transactionId")},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_createdAt")},
		}},
	}
	for _, p := range plan {
		if err := p.coll.CreateIndexes(ctx, p.indexes); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", p.coll.Name(), err)
		}
	}
	if err := s.outbox.EnsureIndexes(ctx); err != nil {
		return err
	}
	return s.keys.EnsureIndexes(ctx)
}

func findOne[T any](ctx context.Context, coll *pkgmongo.InstrumentedCollection, filter interface{}) (*T, error) {
	var v T
	err := coll.FindOne(ctx, filter).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find in %s: %w", coll.Name(), err)
	}
	return &v, nil
}

func findMany[T any](ctx context.Context, coll *pkgmongo.InstrumentedCollection, filter interface{}, opts ...*options.FindOptions) ([]*T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	out := make([]*T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func upsertByID(ctx context.Context, coll *pkgmongo.InstrumentedCollection, id string, doc interface{}) error {
	if _, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to save to %s: %w", coll.Name(), err)
	}
	return nil
}
