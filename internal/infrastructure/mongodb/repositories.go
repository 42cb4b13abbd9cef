package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	pkgmongo "github.com/raveagil-byte/steritrack-app-sub000/pkg/mongodb"
)

// InstrumentRepository stores instruments. Stock fields are written by Ledger only.
type InstrumentRepository struct {
	coll *pkgmongo.InstrumentedCollection
}

func (r *InstrumentRepository) Create(ctx context.Context, instrument *domain.Instrument) error {
	if _, err := r.coll.InsertOne(ctx, instrument); err != nil {
		if pkgmongo.IsDuplicateKey(err) {
			return fmt.Errorf("instrument %s: %w", instrument.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create instrument: %w", err)
	}
	return nil
}

func (r *InstrumentRepository) FindByID(ctx context.Context, id string) (*domain.Instrument, error) {
	return findOne[domain.Instrument](ctx, r.coll, bson.M{"_id": id})
}

func (r *InstrumentRepository) FindAll(ctx context.Context) ([]*domain.Instrument, error) {
	return findMany[domain.Instrument](ctx, r.coll, bson.M{}, options.Find().SetSort(pkgmongo.SortAscending("_id")))
}

// SnapshotRepository stores per-unit stock
type SnapshotRepository struct {
	coll *pkgmongo.InstrumentedCollection
}

var snapshotOrder = bson.D{{Key: "unitId", Value: 1}, {Key: "instrumentId", Value: 1}}

func (r *SnapshotRepository) Find(ctx context.Context, instrumentID, unitID string) (*domain.InventorySnapshot, error) {
	return findOne[domain.InventorySnapshot](ctx, r.coll, bson.M{"instrumentId": instrumentID, "unitId": unitID})
}

func (r *SnapshotRepository) FindByUnit(ctx context.Context, unitID string) ([]*domain.InventorySnapshot, error) {
	return findMany[domain.InventorySnapshot](ctx, r.coll, bson.M{"unitId": unitID}, options.Find().SetSort(snapshotOrder))
}

func (r *SnapshotRepository) FindAll(ctx context.Context) ([]*domain.InventorySnapshot, error) {
	return findMany[domain.InventorySnapshot](ctx, r.coll, bson.M{}, options.Find().SetSort(snapshotOrder))
}

// SetMaxStock sets or clears the par level, creating an empty snapshot when the unit holds none yet
func (r *SnapshotRepository) SetMaxStock(ctx context.Context, instrumentID, unitID string, maxStock *int) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	update := bson.M{"$setOnInsert": bson.M{"quantity": 0}}
	if maxStock != nil {
		set["maxStock"] = *maxStock
	} else {
		update["$unset"] = bson.M{"maxStock": ""}
	}
	update["$set"] = set

	_, err := r.coll.UpdateOne(ctx, bson.M{"instrumentId": instrumentID, "unitId": unitID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to set par level: %w", err)
	}
	return nil
}

// AssetRepository stores serialized assets
type AssetRepository struct {
	coll *pkgmongo.InstrumentedCollection
}

func (r *AssetRepository) Create(ctx context.Context, asset *domain.InstrumentAsset) error {
	if _, err := r.coll.InsertOne(ctx, asset); err != nil {
		if pkgmongo.IsDuplicateKey(err) {
			return fmt.Errorf("asset %s: %w", asset.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create asset: %w", err)
	}
	return nil
}

func (r *AssetRepository) FindByID(ctx context.Context, id string) (*domain.InstrumentAsset, error) {
	return findOne[domain.InstrumentAsset](ctx, r.coll, bson.M{"_id": id})
}

func (r *AssetRepository) FindByInstrument(ctx context.Context, instrumentID string) ([]*domain.InstrumentAsset, error) {
	return findMany[domain.InstrumentAsset](ctx, r.coll, bson.M{"instrumentId": instrumentID}, options.Find().SetSort(pkgmongo.SortAscending("_id")))
}

func (r *AssetRepository) Update(ctx context.Context, asset *domain.InstrumentAsset) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": asset.ID}, asset)
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewNotFoundError("asset", asset.ID)
	}
	return nil
}

// SetRepository stores set recipes
type SetRepository struct {
	coll *pkgmongo.InstrumentedCollection
}

func (r *SetRepository) Save(ctx context.Context, set *domain.InstrumentSet) error {
	return upsertByID(ctx, r.coll, set.ID, set)
}

func (r *SetRepository) FindByID(ctx context.Context, id string) (*domain.InstrumentSet, error) {
	return findOne[domain.InstrumentSet](ctx, r.coll, bson.M{"_id": id})
}

func (r *SetRepository) FindAll(ctx context.Context) ([]*domain.InstrumentSet, error) {
	return findMany[domain.InstrumentSet](ctx, r.coll, bson.M{}, options.Find().SetSort(pkgmongo.SortAscending("_id")))
}

// PackRepository stores packs
type PackRepository struct {
	coll *pkgmongo.InstrumentedCollection
}

func (r *PackRepository) Save(ctx context.Context, pack *domain.SterilePack) error {
	return upsertByID(ctx, r.coll, pack.ID, pack)
}

func (r *PackRepository) FindByID(ctx context.Context, id string) (*domain.SterilePack, error) {
	return findOne[domain.SterilePack](ctx, r.coll, bson.M{"_id": id})
}

// Find returns matching packs oldest first
func (r *PackRepository) Find(ctx context.Context, filter domain.PackFilter) ([]*domain.SterilePack, error) {
	q := bson.M{}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.TargetUnitID != "" {
		q["targetUnitId"] = filter.TargetUnitID
	}
	if filter.CreatedBefore != nil {
		q["createdAt"] = bson.M{"$lt": *filter.CreatedBefore}
	}
	if filter.ExpiresBefore != nil {
		q["expiresAt"] = bson.M{"$lte": *filter.ExpiresBefore}
	}
	sort := bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}
	return findMany[domain.SterilePack](ctx, r.coll, q, options.Find().SetSort(sort))
}

// TransactionRepository stores ledger transactions
type TransactionRepository struct {
	coll *pkgmongo.InstrumentedCollection
}

func (r *TransactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	return upsertByID(ctx, r.coll, tx.ID, tx)
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return findOne[domain.Transaction](ctx, r.coll, bson.M{"_id": id})
}

func transactionQuery(filter domain.TransactionFilter) bson.M {
	q := bson.M{}
	if filter.UnitID != "" {
		q["unitId"] = filter.UnitID
	}
	if filter.Type != "" {
		q["type"] = filter.Type
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	return q
}

// Find returns matching transactions newest first
func (r *TransactionRepository) Find(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return findMany[domain.Transaction](ctx, r.coll, transactionQuery(filter), opts)
}

func (r *TransactionRepository) Count(ctx context.Context, filter domain.TransactionFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, transactionQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

// BatchRepository stores wash and sterilize cycles
type BatchRepository struct {
	coll *pkgmongo.InstrumentedCollection
}

func (r *BatchRepository) Save(ctx context.Context, batch *domain.SterilizationBatch) error {
	if _, err := r.coll.InsertOne(ctx, batch); err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

// FindRecent returns the newest batches first
func (r *BatchRepository) FindRecent(ctx context.Context, limit int) ([]*domain.SterilizationBatch, error) {
	return findMany[domain.SterilizationBatch](ctx, r.coll, bson.M{}, recent(limit))
}

// DiscrepancyRepository stores discrepancy reports
type DiscrepancyRepository struct {
	coll *pkgmongo.InstrumentedCollection
}

func (r *DiscrepancyRepository) Save(ctx context.Context, report *domain.DiscrepancyReport) error {
	if _, err := r.coll.InsertOne(ctx, report); err != nil {
		return fmt.Errorf("failed to save discrepancy report: %w", err)
	}
	return nil
}

func (r *DiscrepancyRepository) FindByTransaction(ctx context.Context, transactionID string) ([]*domain.DiscrepancyReport, error) {
	return findMany[domain.DiscrepancyReport](ctx, r.coll, bson.M{"transactionId": transactionID}, options.Find().SetSort(pkgmongo.SortAscending("createdAt")))
}

// FindRecent returns the newest reports first
func (r *DiscrepancyRepository) FindRecent(ctx context.Context, limit int) ([]*domain.DiscrepancyReport, error) {
	return findMany[domain.DiscrepancyReport](ctx, r.coll, bson.M{}, recent(limit))
}

func recent(limit int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

// UnitRepository stores the unit directory
type UnitRepository struct {
	coll *pkgmongo.InstrumentedCollection
}

func (r *UnitRepository) Save(ctx context.Context, unit *domain.Unit) error {
	return upsertByID(ctx, r.coll, unit.ID, unit)
}

func (r *UnitRepository) FindByID(ctx context.Context, id string) (*domain.Unit, error) {
	return findOne[domain.Unit](ctx, r.coll, bson.M{"_id": id})
}

func (r *UnitRepository) FindAll(ctx context.Context) ([]*domain.Unit, error) {
	return findMany[domain.Unit](ctx, r.coll, bson.M{}, options.Find().SetSort(pkgmongo.SortAscending("_id")))
}
