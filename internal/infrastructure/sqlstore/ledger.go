package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
)

// Ledger applies stock moves as guarded UPDATE statements. A decrement's
// WHERE clause requires the pool to cover it, so a lost race updates no row.
type Ledger struct {
	store *Store
}

var _ domain.StockLedger = (*Ledger)(nil)

func poolColumn(pool domain.StockPool) string {
	switch pool {
	case domain.PoolDirty:
		return "dirty_stock"
	case domain.PoolPacking:
		return "packing_stock"
	default:
		return "cssd_stock"
	}
}

// take moves qty out of pool and into target, or just out when target is empty
func (l *Ledger) take(ctx context.Context, instrumentID string, pool domain.StockPool, target string, qty int, packing bool) error {
	col := poolColumn(pool)
	set := fmt.Sprintf("%s = %s - ?", col, col)
	args := []any{qty}
	if target != "" {
		set += fmt.Sprintf(", %s = %s + ?", target, target)
		args = append(args, qty)
	}
	args = append(args, nanos(time.Now()), instrumentID, qty)
	q := fmt.Sprintf("UPDATE instruments SET %s, updated_at = ? WHERE id = ? AND %s >= ?", set, col)

	n, err := l.store.exec(ctx, "instruments", "update", q, args...)
	if err != nil {
		return fmt.Errorf("failed to move %s stock of %s: %w", pool, instrumentID, err)
	}
	if n > 0 {
		return nil
	}
	if err := l.exists(ctx, instrumentID); err != nil {
		return err
	}
	if packing {
		return &domain.InsufficientPackingStockError{InstrumentID: instrumentID, Requested: qty}
	}
	return &domain.InsufficientStockError{InstrumentID: instrumentID, Pool: pool, Requested: qty}
}

func (l *Ledger) exists(ctx context.Context, instrumentID string) error {
	var n int
	if err := l.store.queryRow(ctx, "instruments", `SELECT COUNT(*) FROM instruments WHERE id = ?`, instrumentID).Scan(&n); err != nil {
		return fmt.Errorf("failed to look up instrument %s: %w", instrumentID, err)
	}
	if n == 0 {
		return domain.NewNotFoundError("instrument", instrumentID)
	}
	return nil
}

// MoveDistribute takes qty out of sterile stock and credits the unit's snapshot
func (l *Ledger) MoveDistribute(ctx context.Context, instrumentID string, qty int, destUnitID string) error {
	if destUnitID == "" {
		return domain.ErrInvalidUnit
	}
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return l.store.Do(ctx, func(ctx context.Context) error {
		if err := l.take(ctx, instrumentID, domain.PoolCSSD, "", qty, false); err != nil {
			return err
		}
		_, err := l.store.exec(ctx, "inventory_snapshots", "upsert",
			`INSERT INTO inventory_snapshots (instrument_id, unit_id, quantity, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (instrument_id, unit_id) DO UPDATE SET quantity = inventory_snapshots.quantity + excluded.quantity, updated_at = excluded.updated_at`,
			instrumentID, destUnitID, qty, nanos(time.Now()))
		if err != nil {
			return fmt.Errorf("failed to credit unit %s: %w", destUnitID, err)
		}
		return nil
	})
}

// MoveCollect takes everything the unit accounts for out of its snapshot and books it at CSSD
func (l *Ledger) MoveCollect(ctx context.Context, instrumentID string, qty, broken, missing int, sourceUnitID string) error {
	if qty < 0 || broken < 0 || missing < 0 || qty+broken+missing == 0 {
		return domain.ErrInvalidQuantity
	}
	total := qty + broken + missing
	return l.store.Do(ctx, func(ctx context.Context) error {
		now := nanos(time.Now())
		n, err := l.store.exec(ctx, "instruments", "update",
			`UPDATE instruments SET dirty_stock = dirty_stock + ?, broken_stock = broken_stock + ?, total_stock = total_stock - ?, updated_at = ? WHERE id = ?`,
			qty, broken, missing, now, instrumentID)
		if err != nil {
			return fmt.Errorf("failed to book collection of %s: %w", instrumentID, err)
		}
		if n == 0 {
			return domain.NewNotFoundError("instrument", instrumentID)
		}

		n, err = l.store.exec(ctx, "inventory_snapshots", "update",
			`UPDATE inventory_snapshots SET quantity = quantity - ?, updated_at = ? WHERE instrument_id = ? AND unit_id = ? AND quantity >= ?`,
			total, now, instrumentID, sourceUnitID, total)
		if err != nil {
			return fmt.Errorf("failed to debit unit %s: %w", sourceUnitID, err)
		}
		if n == 0 {
			return &domain.InsufficientStockError{InstrumentID: instrumentID, Pool: domain.PoolUnit, UnitID: sourceUnitID, Requested: total}
		}
		return nil
	})
}

// MoveWash moves qty from dirty to packing
func (l *Ledger) MoveWash(ctx context.Context, instrumentID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return l.take(ctx, instrumentID, domain.PoolDirty, "packing_stock", qty, false)
}

// MoveSterilize moves qty out of packing, to sterile on success and back to dirty otherwise
func (l *Ledger) MoveSterilize(ctx context.Context, instrumentID string, qty int, success bool) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	target := "dirty_stock"
	if success {
		target = "cssd_stock"
	}
	return l.take(ctx, instrumentID, domain.PoolPacking, target, qty, false)
}

// ReservePacking takes qty out of packing stock into a pack
func (l *Ledger) ReservePacking(ctx context.Context, instrumentID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return l.take(ctx, instrumentID, domain.PoolPacking, "", qty, true)
}

// ReleaseSterile credits qty back to sterile stock
func (l *Ledger) ReleaseSterile(ctx context.Context, instrumentID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	n, err := l.store.exec(ctx, "instruments", "update",
		`UPDATE instruments SET cssd_stock = cssd_stock + ?, updated_at = ? WHERE id = ?`,
		qty, nanos(time.Now()), instrumentID)
	if err != nil {
		return fmt.Errorf("failed to release stock of %s: %w", instrumentID, err)
	}
	if n == 0 {
		return domain.NewNotFoundError("instrument", instrumentID)
	}
	return nil
}
