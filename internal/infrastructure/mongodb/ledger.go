package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
)

// Ledger applies stock moves as conditional $inc updates. A decrement
// matches only while the pool still covers it, so two writers racing for
// the last pieces cannot both succeed.
type Ledger struct {
	store *Store
}

var _ domain.StockLedger = (*Ledger)(nil)

func poolField(pool domain.StockPool) string {
	switch pool {
	case domain.PoolDirty:
		return "dirtyStock"
	case domain.PoolPacking:
		return "packingStock"
	default:
		return "cssdStock"
	}
}

// take decrements pool by qty and applies credit in the same update
func (l *Ledger) take(ctx context.Context, instrumentID string, pool domain.StockPool, qty int, credit bson.M, packing bool) error {
	field := poolField(pool)
	inc := bson.M{field: -qty}
	for k, v := range credit {
		inc[k] = v
	}
	filter := bson.M{"_id": instrumentID, field: bson.M{"$gte": qty}}
	update := bson.M{"$inc": inc, "$set": bson.M{"updatedAt": time.Now().UTC()}}

	res, err := l.store.instruments.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to move %s stock of %s: %w", pool, instrumentID, err)
	}
	if res.MatchedCount > 0 {
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

// credit applies an unguarded increment
func (l *Ledger) credit(ctx context.Context, instrumentID string, inc bson.M) error {
	update := bson.M{"$inc": inc, "$set": bson.M{"updatedAt": time.Now().UTC()}}
	res, err := l.store.instruments.UpdateOne(ctx, bson.M{"_id": instrumentID}, update)
	if err != nil {
		return fmt.Errorf("failed to credit stock of %s: %w", instrumentID, err)
	}
	if res.MatchedCount == 0 {
		return domain.NewNotFoundError("instrument", instrumentID)
	}
	return nil
}

func (l *Ledger) exists(ctx context.Context, instrumentID string) error {
	n, err := l.store.instruments.CountDocuments(ctx, bson.M{"_id": instrumentID}, options.Count().SetLimit(1))
	if err != nil {
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
		if err := l.take(ctx, instrumentID, domain.PoolCSSD, qty, nil, false); err != nil {
			return err
		}
		_, err := l.store.snapshots.UpdateOne(ctx,
			bson.M{"instrumentId": instrumentID, "unitId": destUnitID},
			bson.M{"$inc": bson.M{"quantity": qty}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
			options.Update().SetUpsert(true),
		)
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
		if err := l.credit(ctx, instrumentID, bson.M{"dirtyStock": qty, "brokenStock": broken, "totalStock": -missing}); err != nil {
			return err
		}
		res, err := l.store.snapshots.UpdateOne(ctx,
			bson.M{"instrumentId": instrumentID, "unitId": sourceUnitID, "quantity": bson.M{"$gte": total}},
			bson.M{"$inc": bson.M{"quantity": -total}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		)
		if err != nil {
			return fmt.Errorf("failed to debit unit %s: %w", sourceUnitID, err)
		}
		if res.MatchedCount == 0 {
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
	return l.take(ctx, instrumentID, domain.PoolDirty, qty, bson.M{"packingStock": qty}, false)
}

// MoveSterilize moves qty out of packing, to sterile on success and back to dirty otherwise
func (l *Ledger) MoveSterilize(ctx context.Context, instrumentID string, qty int, success bool) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	target := "dirtyStock"
	if success {
		target = "cssdStock"
	}
	return l.take(ctx, instrumentID, domain.PoolPacking, qty, bson.M{target: qty}, false)
}

// ReservePacking takes qty out of packing stock into a pack
func (l *Ledger) ReservePacking(ctx context.Context, instrumentID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return l.take(ctx, instrumentID, domain.PoolPacking, qty, nil, true)
}

// ReleaseSterile credits qty back to sterile stock
func (l *Ledger) ReleaseSterile(ctx context.Context, instrumentID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return l.credit(ctx, instrumentID, bson.M{"cssdStock": qty})
}
