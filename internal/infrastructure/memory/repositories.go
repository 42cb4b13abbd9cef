package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
)

// InstrumentRepository stores instruments
type InstrumentRepository struct {
	store *Store
}

func (r *InstrumentRepository) Create(ctx context.Context, instrument *domain.Instrument) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.instruments[instrument.ID]; ok {
			return fmt.Errorf("instrument %s: %w", instrument.ID, domain.ErrAlreadyExists)
		}
		st.instruments[instrument.ID] = *instrument
		return nil
	})
}

func (r *InstrumentRepository) FindByID(ctx context.Context, id string) (*domain.Instrument, error) {
	v, ok := r.store.view(ctx).instruments[id]
	if !ok {
		return nil, nil
	}
	return cloneInstrument(v), nil
}

func (r *InstrumentRepository) FindAll(ctx context.Context) ([]*domain.Instrument, error) {
	st := r.store.view(ctx)
	out := make([]*domain.Instrument, 0, len(st.instruments))
	for _, id := range sortedKeys(st.instruments) {
		out = append(out, cloneInstrument(st.instruments[id]))
	}
	return out, nil
}

// SnapshotRepository stores per-unit stock
type SnapshotRepository struct {
	store *Store
}

func (r *SnapshotRepository) Find(ctx context.Context, instrumentID, unitID string) (*domain.InventorySnapshot, error) {
	v, ok := r.store.view(ctx).snapshots[domain.SnapshotKey{InstrumentID: instrumentID, UnitID: unitID}]
	if !ok {
		return nil, nil
	}
	return cloneSnapshot(v), nil
}

func (r *SnapshotRepository) FindByUnit(ctx context.Context, unitID string) ([]*domain.InventorySnapshot, error) {
	all, _ := r.FindAll(ctx)
	out := make([]*domain.InventorySnapshot, 0)
	for _, s := range all {
		if s.UnitID == unitID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *SnapshotRepository) FindAll(ctx context.Context) ([]*domain.InventorySnapshot, error) {
	st := r.store.view(ctx)
	out := make([]*domain.InventorySnapshot, 0, len(st.snapshots))
	for _, v := range st.snapshots {
		out = append(out, cloneSnapshot(v))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UnitID != out[j].UnitID {
			return out[i].UnitID < out[j].UnitID
		}
		return out[i].InstrumentID < out[j].InstrumentID
	})
	return out, nil
}

// SetMaxStock sets the par level, creating an empty snapshot row when the unit holds none yet
func (r *SnapshotRepository) SetMaxStock(ctx context.Context, instrumentID, unitID string, maxStock *int) error {
	return r.store.write(ctx, func(st *state) error {
		key := domain.SnapshotKey{InstrumentID: instrumentID, UnitID: unitID}
		snap, ok := st.snapshots[key]
		if !ok {
			snap = domain.InventorySnapshot{InstrumentID: instrumentID, UnitID: unitID}
		}
		if maxStock != nil {
			m := *maxStock
			snap.MaxStock = &m
		} else {
			snap.MaxStock = nil
		}
		snap.UpdatedAt = time.Now().UTC()
		st.snapshots[key] = snap
		return nil
	})
}

// AssetRepository stores serialized assets
type AssetRepository struct {
	store *Store
}

func (r *AssetRepository) Create(ctx context.Context, asset *domain.InstrumentAsset) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.assets[asset.ID]; ok {
			return fmt.Errorf("asset %s: %w", asset.ID, domain.ErrAlreadyExists)
		}
		for _, a := range st.assets {
			if a.InstrumentID == asset.InstrumentID && a.SerialNumber == asset.SerialNumber {
				return fmt.Errorf("serial %s: %w", asset.SerialNumber, domain.ErrAlreadyExists)
			}
		}
		st.assets[asset.ID] = *asset
		return nil
	})
}

func (r *AssetRepository) FindByID(ctx context.Context, id string) (*domain.InstrumentAsset, error) {
	v, ok := r.store.view(ctx).assets[id]
	if !ok {
		return nil, nil
	}
	return cloneAsset(v), nil
}

func (r *AssetRepository) FindByInstrument(ctx context.Context, instrumentID string) ([]*domain.InstrumentAsset, error) {
	st := r.store.view(ctx)
	out := make([]*domain.InstrumentAsset, 0)
	for _, id := range sortedKeys(st.assets) {
		if a := st.assets[id]; a.InstrumentID == instrumentID {
			out = append(out, cloneAsset(a))
		}
	}
	return out, nil
}

func (r *AssetRepository) Update(ctx context.Context, asset *domain.InstrumentAsset) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.assets[asset.ID]; !ok {
			return domain.NewNotFoundError("asset", asset.ID)
		}
		st.assets[asset.ID] = *asset
		return nil
	})
}

// SetRepository stores set recipes
type SetRepository struct {
	store *Store
}

func (r *SetRepository) Save(ctx context.Context, set *domain.InstrumentSet) error {
	return r.store.write(ctx, func(st *state) error {
		st.sets[set.ID] = *cloneSet(*set)
		return nil
	})
}

func (r *SetRepository) FindByID(ctx context.Context, id string) (*domain.InstrumentSet, error) {
	v, ok := r.store.view(ctx).sets[id]
	if !ok {
		return nil, nil
	}
	return cloneSet(v), nil
}

func (r *SetRepository) FindAll(ctx context.Context) ([]*domain.InstrumentSet, error) {
	st := r.store.view(ctx)
	out := make([]*domain.InstrumentSet, 0, len(st.sets))
	for _, id := range sortedKeys(st.sets) {
		out = append(out, cloneSet(st.sets[id]))
	}
	return out, nil
}

// PackRepository stores packs
type PackRepository struct {
	store *Store
}

func (r *PackRepository) Save(ctx context.Context, pack *domain.SterilePack) error {
	return r.store.write(ctx, func(st *state) error {
		st.packs[pack.ID] = *clonePack(*pack)
		return nil
	})
}

func (r *PackRepository) FindByID(ctx context.Context, id string) (*domain.SterilePack, error) {
	v, ok := r.store.view(ctx).packs[id]
	if !ok {
		return nil, nil
	}
	return clonePack(v), nil
}

// Find returns matching packs oldest first
func (r *PackRepository) Find(ctx context.Context, filter domain.PackFilter) ([]*domain.SterilePack, error) {
	st := r.store.view(ctx)
	out := make([]*domain.SterilePack, 0)
	for _, p := range st.packs {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.TargetUnitID != "" && p.TargetUnitID != filter.TargetUnitID {
			continue
		}
		if filter.CreatedBefore != nil && !p.CreatedAt.Before(*filter.CreatedBefore) {
			continue
		}
		if filter.ExpiresBefore != nil && (p.ExpiresAt == nil || p.ExpiresAt.After(*filter.ExpiresBefore)) {
			continue
		}
		out = append(out, clonePack(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// TransactionRepository stores ledger transactions
type TransactionRepository struct {
	store *Store
}

func (r *TransactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	return r.store.write(ctx, func(st *state) error {
		st.transactions[tx.ID] = *cloneTransaction(*tx)
		return nil
	})
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	v, ok := r.store.view(ctx).transactions[id]
	if !ok {
		return nil, nil
	}
	return cloneTransaction(v), nil
}

func (r *TransactionRepository) matching(ctx context.Context, filter domain.TransactionFilter) []*domain.Transaction {
	st := r.store.view(ctx)
	out := make([]*domain.Transaction, 0)
	for _, tx := range st.transactions {
		if filter.UnitID != "" && tx.UnitID != filter.UnitID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		out = append(out, cloneTransaction(tx))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Find returns matching transactions newest first
func (r *TransactionRepository) Find(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	out := r.matching(ctx, filter)
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*domain.Transaction{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *TransactionRepository) Count(ctx context.Context, filter domain.TransactionFilter) (int64, error) {
	return int64(len(r.matching(ctx, filter))), nil
}

// BatchRepository stores wash and sterilize cycles
type BatchRepository struct {
	store *Store
}

func (r *BatchRepository) Save(ctx context.Context, batch *domain.SterilizationBatch) error {
	return r.store.write(ctx, func(st *state) error {
		st.batches = append(st.batches, *cloneBatch(*batch))
		return nil
	})
}

// FindRecent returns the newest batches first
func (r *BatchRepository) FindRecent(ctx context.Context, limit int) ([]*domain.SterilizationBatch, error) {
	st := r.store.view(ctx)
	out := make([]*domain.SterilizationBatch, 0, len(st.batches))
	for i := len(st.batches) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, cloneBatch(st.batches[i]))
	}
	return out, nil
}

// DiscrepancyRepository stores discrepancy reports
type DiscrepancyRepository struct {
	store *Store
}

func (r *DiscrepancyRepository) Save(ctx context.Context, report *domain.DiscrepancyReport) error {
	return r.store.write(ctx, func(st *state) error {
		st.discrepancies = append(st.discrepancies, *cloneReport(*report))
		return nil
	})
}

func (r *DiscrepancyRepository) FindByTransaction(ctx context.Context, transactionID string) ([]*domain.DiscrepancyReport, error) {
	st := r.store.view(ctx)
	out := make([]*domain.DiscrepancyReport, 0)
	for _, d := range st.discrepancies {
		if d.TransactionID == transactionID {
			out = append(out, cloneReport(d))
		}
	}
	return out, nil
}

// FindRecent returns the newest reports first
func (r *DiscrepancyRepository) FindRecent(ctx context.Context, limit int) ([]*domain.DiscrepancyReport, error) {
	st := r.store.view(ctx)
	out := make([]*domain.DiscrepancyReport, 0, len(st.discrepancies))
	for i := len(st.discrepancies) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, cloneReport(st.discrepancies[i]))
	}
	return out, nil
}

// UnitRepository stores the unit directory
type UnitRepository struct {
	store *Store
}

func (r *UnitRepository) Save(ctx context.Context, unit *domain.Unit) error {
	return r.store.write(ctx, func(st *state) error {
		st.units[unit.ID] = *unit
		return nil
	})
}

func (r *UnitRepository) FindByID(ctx context.Context, id string) (*domain.Unit, error) {
	v, ok := r.store.view(ctx).units[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *UnitRepository) FindAll(ctx context.Context) ([]*domain.Unit, error) {
	st := r.store.view(ctx)
	out := make([]*domain.Unit, 0, len(st.units))
	for _, id := range sortedKeys(st.units) {
		u := st.units[id]
		out = append(out, &u)
	}
	return out, nil
}
