package domain

import "time"

// InventorySnapshot caches how many of an instrument a care unit currently holds
type InventorySnapshot struct {
	InstrumentID string    `bson:"instrumentId" json:"instrumentId"`
	UnitID       string    `bson:"unitId" json:"unitId"`
	Quantity     int       `bson:"quantity" json:"quantity"`
	MaxStock     *int      `bson:"maxStock,omitempty" json:"maxStock,omitempty"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// SnapshotKey identifies a snapshot row
type SnapshotKey struct {
	InstrumentID string
	UnitID       string
}

// Key returns the snapshot's identity
func (s *InventorySnapshot) Key() SnapshotKey {
	return SnapshotKey{InstrumentID: s.InstrumentID, UnitID: s.UnitID}
}

// Add increases the held quantity
func (s *InventorySnapshot) Add(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	s.Quantity += qty
	return nil
}

// Remove decreases the held quantity, never below zero
func (s *InventorySnapshot) Remove(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if s.Quantity < qty {
		return &InsufficientStockError{InstrumentID: s.InstrumentID, Pool: PoolUnit, UnitID: s.UnitID, Requested: qty}
	}
	s.Quantity -= qty
	return nil
}

// BelowPar reports whether the unit holds less than its par level
func (s *InventorySnapshot) BelowPar() bool {
	return s.MaxStock != nil && s.Quantity < *s.MaxStock
}
