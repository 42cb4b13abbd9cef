package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
)

func (s *Store) loadJSON(ctx context.Context, table string, dest any, query string, args ...any) (bool, error) {
	var payload string
	err := s.queryRow(ctx, table, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", table, err)
	}
	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", table, err)
	}
	return true, nil
}

func loadJSONList[T any](ctx context.Context, s *Store, table, query string, args ...any) ([]*T, error) {
	rows, err := s.query(ctx, table, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*T, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		v := new(T)
		if err := json.Unmarshal([]byte(payload), v); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", table, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// InstrumentRepository stores instruments. Stock columns are written by Ledger only.
type InstrumentRepository struct {
	store *Store
}

const instrumentColumns = `id, name, category, total_stock, cssd_stock, dirty_stock, packing_stock, broken_stock, is_serialized, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanInstrument(row scanner) (*domain.Instrument, error) {
	var i domain.Instrument
	var created, updated int64
	if err := row.Scan(&i.ID, &i.Name, &i.Category, &i.TotalStock, &i.CSSDStock, &i.DirtyStock,
		&i.PackingStock, &i.BrokenStock, &i.IsSerialized, &created, &updated); err != nil {
		return nil, err
	}
	i.CreatedAt = fromNanos(created)
	i.UpdatedAt = fromNanos(updated)
	return &i, nil
}

func (r *InstrumentRepository) Create(ctx context.Context, instrument *domain.Instrument) error {
	_, err := r.store.exec(ctx, "instruments", "insert",
		`INSERT INTO instruments (`+instrumentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		instrument.ID, instrument.Name, instrument.Category, instrument.TotalStock, instrument.CSSDStock,
		instrument.DirtyStock, instrument.PackingStock, instrument.BrokenStock, instrument.IsSerialized,
		nanos(instrument.CreatedAt), nanos(instrument.UpdatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("instrument %s: %w", instrument.ID, domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create instrument: %w", err)
	}
	return nil
}

func (r *InstrumentRepository) FindByID(ctx context.Context, id string) (*domain.Instrument, error) {
	inst, err := scanInstrument(r.store.queryRow(ctx, "instruments", `SELECT `+instrumentColumns+` FROM instruments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read instrument: %w", err)
	}
	return inst, nil
}

func (r *InstrumentRepository) FindAll(ctx context.Context) ([]*domain.Instrument, error) {
	rows, err := r.store.query(ctx, "instruments", `SELECT `+instrumentColumns+` FROM instruments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*domain.Instrument, 0)
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// SnapshotRepository stores per-unit stock
type SnapshotRepository struct {
	store *Store
}

const snapshotColumns = `instrument_id, unit_id, quantity, max_stock, updated_at`

func scanSnapshot(row scanner) (*domain.InventorySnapshot, error) {
	var s domain.InventorySnapshot
	var maxStock sql.NullInt64
	var updated int64
	if err := row.Scan(&s.InstrumentID, &s.UnitID, &s.Quantity, &maxStock, &updated); err != nil {
		return nil, err
	}
	if maxStock.Valid {
		m := int(maxStock.Int64)
		s.MaxStock = &m
	}
	s.UpdatedAt = fromNanos(updated)
	return &s, nil
}

func (r *SnapshotRepository) list(ctx context.Context, where string, args ...any) ([]*domain.InventorySnapshot, error) {
	rows, err := r.store.query(ctx, "inventory_snapshots",
		`SELECT `+snapshotColumns+` FROM inventory_snapshots `+where+` ORDER BY unit_id, instrument_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*domain.InventorySnapshot, 0)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (r *SnapshotRepository) Find(ctx context.Context, instrumentID, unitID string) (*domain.InventorySnapshot, error) {
	snap, err := scanSnapshot(r.store.queryRow(ctx, "inventory_snapshots",
		`SELECT `+snapshotColumns+` FROM inventory_snapshots WHERE instrument_id = ? AND unit_id = ?`, instrumentID, unitID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return snap, nil
}

func (r *SnapshotRepository) FindByUnit(ctx context.Context, unitID string) ([]*domain.InventorySnapshot, error) {
	return r.list(ctx, `WHERE unit_id = ?`, unitID)
}

func (r *SnapshotRepository) FindAll(ctx context.Context) ([]*domain.InventorySnapshot, error) {
	return r.list(ctx, "")
}

// SetMaxStock sets or clears the par level, creating an empty snapshot when the unit holds none yet
func (r *SnapshotRepository) SetMaxStock(ctx context.Context, instrumentID, unitID string, maxStock *int) error {
	var m sql.NullInt64
	if maxStock != nil {
		m = sql.NullInt64{Int64: int64(*maxStock), Valid: true}
	}
	_, err := r.store.exec(ctx, "inventory_snapshots", "upsert",
		`INSERT INTO inventory_snapshots (instrument_id, unit_id, quantity, max_stock, updated_at) VALUES (?, ?, 0, ?, ?)
		 ON CONFLICT (instrument_id, unit_id) DO UPDATE SET max_stock = excluded.max_stock, updated_at = excluded.updated_at`,
		instrumentID, unitID, m, nanos(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to set par level: %w", err)
	}
	return nil
}

// AssetRepository stores serialized assets
type AssetRepository struct {
	store *Store
}

const assetColumns = `id, instrument_id, serial_number, status, location, updated_at`

func scanAsset(row scanner) (*domain.InstrumentAsset, error) {
	var a domain.InstrumentAsset
	var updated int64
	if err := row.Scan(&a.ID, &a.InstrumentID, &a.SerialNumber, &a.Status, &a.Location, &updated); err != nil {
		return nil, err
	}
	a.UpdatedAt = fromNanos(updated)
	return &a, nil
}

func (r *AssetRepository) Create(ctx context.Context, asset *domain.InstrumentAsset) error {
	_, err := r.store.exec(ctx, "instrument_assets", "insert",
		`INSERT INTO instrument_assets (`+assetColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		asset.ID, asset.InstrumentID, asset.SerialNumber, string(asset.Status), asset.Location, nanos(asset.UpdatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("asset %s: %w", asset.ID, domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}
	return nil
}

func (r *AssetRepository) FindByID(ctx context.Context, id string) (*domain.InstrumentAsset, error) {
	a, err := scanAsset(r.store.queryRow(ctx, "instrument_assets", `SELECT `+assetColumns+` FROM instrument_assets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}
	return a, nil
}

func (r *AssetRepository) FindByInstrument(ctx context.Context, instrumentID string) ([]*domain.InstrumentAsset, error) {
	rows, err := r.store.query(ctx, "instrument_assets",
		`SELECT `+assetColumns+` FROM instrument_assets WHERE instrument_id = ? ORDER BY id`, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*domain.InstrumentAsset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AssetRepository) Update(ctx context.Context, asset *domain.InstrumentAsset) error {
	n, err := r.store.exec(ctx, "instrument_assets", "update",
		`UPDATE instrument_assets SET serial_number = ?, status = ?, location = ?, updated_at = ? WHERE id = ?`,
		asset.SerialNumber, string(asset.Status), asset.Location, nanos(asset.UpdatedAt), asset.ID)
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("asset", asset.ID)
	}
	return nil
}

// SetRepository stores set recipes
type SetRepository struct {
	store *Store
}

func (r *SetRepository) Save(ctx context.Context, set *domain.InstrumentSet) error {
	payload, err := encode(set)
	if err != nil {
		return err
	}
	_, err = r.store.exec(ctx, "instrument_sets", "upsert",
		`INSERT INTO instrument_sets (id, payload) VALUES (?, ?) ON CONFLICT (id) DO UPDATE SET payload = excluded.payload`,
		set.ID, payload)
	if err != nil {
		return fmt.Errorf("failed to save set: %w", err)
	}
	return nil
}

func (r *SetRepository) FindByID(ctx context.Context, id string) (*domain.InstrumentSet, error) {
	var set domain.InstrumentSet
	ok, err := r.store.loadJSON(ctx, "instrument_sets", &set, `SELECT payload FROM instrument_sets WHERE id = ?`, id)
	if !ok || err != nil {
		return nil, err
	}
	return &set, nil
}

func (r *SetRepository) FindAll(ctx context.Context) ([]*domain.InstrumentSet, error) {
	return loadJSONList[domain.InstrumentSet](ctx, r.store, "instrument_sets", `SELECT payload FROM instrument_sets ORDER BY id`)
}

// PackRepository stores packs
type PackRepository struct {
	store *Store
}

func (r *PackRepository) Save(ctx context.Context, pack *domain.SterilePack) error {
	payload, err := encode(pack)
	if err != nil {
		return err
	}
	_, err = r.store.exec(ctx, "sterile_packs", "upsert",
		`INSERT INTO sterile_packs (id, status, target_unit_id, created_at, expires_at, payload) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET status = excluded.status, target_unit_id = excluded.target_unit_id,
		 expires_at = excluded.expires_at, payload = excluded.payload`,
		pack.ID, string(pack.Status), pack.TargetUnitID, nanos(pack.CreatedAt), nullNanos(pack.ExpiresAt), payload)
	if err != nil {
		return fmt.Errorf("failed to save pack: %w", err)
	}
	return nil
}

func (r *PackRepository) FindByID(ctx context.Context, id string) (*domain.SterilePack, error) {
	var pack domain.SterilePack
	ok, err := r.store.loadJSON(ctx, "sterile_packs", &pack, `SELECT payload FROM sterile_packs WHERE id = ?`, id)
	if !ok || err != nil {
		return nil, err
	}
	return &pack, nil
}

// Find returns matching packs oldest first
func (r *PackRepository) Find(ctx context.Context, filter domain.PackFilter) ([]*domain.SterilePack, error) {
	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.TargetUnitID != "" {
		where = append(where, "target_unit_id = ?")
		args = append(args, filter.TargetUnitID)
	}
	if filter.CreatedBefore != nil {
		where = append(where, "created_at < ?")
		args = append(args, nanos(*filter.CreatedBefore))
	}
	if filter.ExpiresBefore != nil {
		where = append(where, "expires_at IS NOT NULL AND expires_at <= ?")
		args = append(args, nanos(*filter.ExpiresBefore))
	}
	q := `SELECT payload FROM sterile_packs` + whereClause(where) + ` ORDER BY created_at, id`
	return loadJSONList[domain.SterilePack](ctx, r.store, "sterile_packs", q, args...)
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// TransactionRepository stores ledger transactions
type TransactionRepository struct {
	store *Store
}

func (r *TransactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	payload, err := encode(tx)
	if err != nil {
		return err
	}
	_, err = r.store.exec(ctx, "transactions", "upsert",
		`INSERT INTO transactions (id, unit_id, type, status, ts, payload) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET status = excluded.status, payload = excluded.payload`,
		tx.ID, tx.UnitID, string(tx.Type), string(tx.Status), nanos(tx.Timestamp), payload)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var tx domain.Transaction
	ok, err := r.store.loadJSON(ctx, "transactions", &tx, `SELECT payload FROM transactions WHERE id = ?`, id)
	if !ok || err != nil {
		return nil, err
	}
	return &tx, nil
}

func transactionWhere(filter domain.TransactionFilter) (string, []any) {
	var where []string
	var args []any
	if filter.UnitID != "" {
		where = append(where, "unit_id = ?")
		args = append(args, filter.UnitID)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	return whereClause(where), args
}

// Find returns matching transactions newest first
func (r *TransactionRepository) Find(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	where, args := transactionWhere(filter)
	q := `SELECT payload FROM transactions` + where + ` ORDER BY ts DESC, id DESC`
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
			if r.store.dialect == DialectPostgres {
				limit = 1 << 31
			}
		}
		q += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Offset)
	}
	return loadJSONList[domain.Transaction](ctx, r.store, "transactions", q, args...)
}

func (r *TransactionRepository) Count(ctx context.Context, filter domain.TransactionFilter) (int64, error) {
	where, args := transactionWhere(filter)
	var n int64
	if err := r.store.queryRow(ctx, "transactions", `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

// BatchRepository stores wash and sterilize cycles
type BatchRepository struct {
	store *Store
}

func (r *BatchRepository) Save(ctx context.Context, batch *domain.SterilizationBatch) error {
	payload, err := encode(batch)
	if err != nil {
		return err
	}
	if _, err := r.store.exec(ctx, "sterilization_batches", "insert",
		`INSERT INTO sterilization_batches (id, created_at, payload) VALUES (?, ?, ?)`,
		batch.ID, nanos(batch.CreatedAt), payload); err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

// FindRecent returns the newest batches first
func (r *BatchRepository) FindRecent(ctx context.Context, limit int) ([]*domain.SterilizationBatch, error) {
	q, args := recent(`SELECT payload FROM sterilization_batches`, limit)
	return loadJSONList[domain.SterilizationBatch](ctx, r.store, "sterilization_batches", q, args...)
}

func recent(base string, limit int) (string, []any) {
	q := base + ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		return q + ` LIMIT ?`, []any{limit}
	}
	return q, nil
}

// DiscrepancyRepository stores discrepancy reports
type DiscrepancyRepository struct {
	store *Store
}

func (r *DiscrepancyRepository) Save(ctx context.Context, report *domain.DiscrepancyReport) error {
	payload, err := encode(report)
	if err != nil {
		return err
	}
	if _, err := r.store.exec(ctx, "discrepancy_reports", "insert",
		`INSERT INTO discrepancy_reports (id, transaction_id, created_at, payload) VALUES (?, ?, ?, ?)`,
		report.ID, report.TransactionID, nanos(report.CreatedAt), payload); err != nil {
		return fmt.Errorf("failed to save discrepancy report: %w", err)
	}
	return nil
}

func (r *DiscrepancyRepository) FindByTransaction(ctx context.Context, transactionID string) ([]*domain.DiscrepancyReport, error) {
	return loadJSONList[domain.DiscrepancyReport](ctx, r.store, "discrepancy_reports",
		`SELECT payload FROM discrepancy_reports WHERE transaction_id = ? ORDER BY created_at, id`, transactionID)
}

// FindRecent returns the newest reports first
func (r *DiscrepancyRepository) FindRecent(ctx context.Context, limit int) ([]*domain.DiscrepancyReport, error) {
	q, args := recent(`SELECT payload FROM discrepancy_reports`, limit)
	return loadJSONList[domain.DiscrepancyReport](ctx, r.store, "discrepancy_reports", q, args...)
}

// UnitRepository stores the unit directory
type UnitRepository struct {
	store *Store
}

func (r *UnitRepository) Save(ctx context.Context, unit *domain.Unit) error {
	_, err := r.store.exec(ctx, "units", "upsert",
		`INSERT INTO units (id, name, created_at) VALUES (?, ?, ?) ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		unit.ID, unit.Name, nanos(unit.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save unit: %w", err)
	}
	return nil
}

func scanUnit(row scanner) (*domain.Unit, error) {
	var u domain.Unit
	var created int64
	if err := row.Scan(&u.ID, &u.Name, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = fromNanos(created)
	return &u, nil
}

func (r *UnitRepository) FindByID(ctx context.Context, id string) (*domain.Unit, error) {
	u, err := scanUnit(r.store.queryRow(ctx, "units", `SELECT id, name, created_at FROM units WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read unit: %w", err)
	}
	return u, nil
}

func (r *UnitRepository) FindAll(ctx context.Context) ([]*domain.Unit, error) {
	rows, err := r.store.query(ctx, "units", `SELECT id, name, created_at FROM units ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*domain.Unit, 0)
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
