package memory

import (
	"context"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
)

// Ledger applies the guarded stock primitives to the unit of work's copy of the state
type Ledger struct {
	store *Store
}

var _ domain.StockLedger = (*Ledger)(nil)

func (l *Ledger) instrument(ctx context.Context, id string, fn func(st *state, inst *domain.Instrument) error) error {
	return l.store.write(ctx, func(st *state) error {
		v, ok := st.instruments[id]
		if !ok {
			return domain.NewNotFoundError("instrument", id)
		}
		if err := fn(st, &v); err != nil {
			return err
		}
		v.UpdatedAt = time.Now().UTC()
		st.instruments[id] = v
		return nil
	})
}

// MoveDistribute takes qty out of sterile stock and credits the unit's snapshot
func (l *Ledger) MoveDistribute(ctx context.Context, instrumentID string, qty int, destUnitID string) error {
	if destUnitID == "" {
		return domain.ErrInvalidUnit
	}
	return l.instrument(ctx, instrumentID, func(st *state, inst *domain.Instrument) error {
		if err := inst.WithdrawSterile(qty); err != nil {
			return err
		}
		key := domain.SnapshotKey{InstrumentID: instrumentID, UnitID: destUnitID}
		snap, ok := st.snapshots[key]
		if !ok {
			snap = domain.InventorySnapshot{InstrumentID: instrumentID, UnitID: destUnitID}
		}
		if err := snap.Add(qty); err != nil {
			return err
		}
		snap.UpdatedAt = time.Now().UTC()
		st.snapshots[key] = snap
		return nil
	})
}

// MoveCollect takes everything the unit accounts for out of its snapshot and books it at CSSD
func (l *Ledger) MoveCollect(ctx context.Context, instrumentID string, qty, broken, missing int, sourceUnitID string) error {
	return l.instrument(ctx, instrumentID, func(st *state, inst *domain.Instrument) error {
		if err := inst.ReceiveCollected(qty, broken, missing); err != nil {
			return err
		}
		key := domain.SnapshotKey{InstrumentID: instrumentID, UnitID: sourceUnitID}
		snap, ok := st.snapshots[key]
		if !ok {
			return &domain.InsufficientStockError{InstrumentID: instrumentID, Pool: domain.PoolUnit, UnitID: sourceUnitID, Requested: qty + broken + missing}
		}
		if err := snap.Remove(qty + broken + missing); err != nil {
			return err
		}
		snap.UpdatedAt = time.Now().UTC()
		st.snapshots[key] = snap
		return nil
	})
}

// MoveWash moves qty from dirty to packing
func (l *Ledger) MoveWash(ctx context.Context, instrumentID string, qty int) error {
	return l.instrument(ctx, instrumentID, func(_ *state, inst *domain.Instrument) error {
		return inst.Wash(qty)
	})
}

// MoveSterilize moves qty out of packing, to sterile on success and back to dirty otherwise
func (l *Ledger) MoveSterilize(ctx context.Context, instrumentID string, qty int, success bool) error {
	return l.instrument(ctx, instrumentID, func(_ *state, inst *domain.Instrument) error {
		return inst.Sterilize(qty, success)
	})
}

// ReservePacking takes qty out of packing stock into a pack
func (l *Ledger) ReservePacking(ctx context.Context, instrumentID string, qty int) error {
	return l.instrument(ctx, instrumentID, func(_ *state, inst *domain.Instrument) error {
		return inst.ReservePacking(qty)
	})
}

// ReleaseSterile credits qty back to sterile stock
func (l *Ledger) ReleaseSterile(ctx context.Context, instrumentID string, qty int) error {
	return l.instrument(ctx, instrumentID, func(_ *state, inst *domain.Instrument) error {
		return inst.ReleaseSterile(qty)
	})
}
