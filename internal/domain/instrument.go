package domain

import (
	"strings"
	"time"
)

// Instrument is the stock keeping unit for one kind of reusable instrument.
// Every counter is owned by the ledger: lifecycle operations move quantity
// between pools, only a recorded missing count reduces TotalStock.
type Instrument struct {
	ID           string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Category     string    `bson:"category" json:"category"`
	TotalStock   int       `bson:"totalStock" json:"totalStock"`
	CSSDStock    int       `bson:"cssdStock" json:"cssdStock"`
	DirtyStock   int       `bson:"dirtyStock" json:"dirtyStock"`
	PackingStock int       `bson:"packingStock" json:"packingStock"`
	BrokenStock  int       `bson:"brokenStock" json:"brokenStock"`
	IsSerialized bool      `bson:"isSerialized" json:"isSerialized"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewInstrument creates an instrument whose initial stock is all sterile and ready
func NewInstrument(id, name, category string, initialStock int, serialized bool, now time.Time) (*Instrument, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(name) == "" {
		return nil, ErrRequiredField
	}
	if initialStock < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Instrument{
		ID:           id,
		Name:         name,
		Category:     category,
		TotalStock:   initialStock,
		CSSDStock:    initialStock,
		IsSerialized: serialized,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// WithdrawSterile takes qty out of the sterile pool for distribution
func (i *Instrument) WithdrawSterile(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if i.CSSDStock < qty {
		return &InsufficientStockError{InstrumentID: i.ID, Pool: PoolCSSD, Requested: qty}
	}
	i.CSSDStock -= qty
	return nil
}

// ReceiveCollected books items coming back from a unit. Good items go to the
// wash queue, broken ones are quarantined and missing ones leave the books.
func (i *Instrument) ReceiveCollected(qty, broken, missing int) error {
	if qty < 0 || broken < 0 || missing < 0 || qty+broken+missing == 0 {
		return ErrInvalidQuantity
	}
	i.DirtyStock += qty
	i.BrokenStock += broken
	i.TotalStock -= missing
	return nil
}

// Wash moves qty from dirty to packing
func (i *Instrument) Wash(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if i.DirtyStock < qty {
		return &InsufficientStockError{InstrumentID: i.ID, Pool: PoolDirty, Requested: qty}
	}
	i.DirtyStock -= qty
	i.PackingStock += qty
	return nil
}

// Sterilize moves qty out of packing. A failed cycle sends the items back to the wash queue.
func (i *Instrument) Sterilize(qty int, success bool) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if i.PackingStock < qty {
		return &InsufficientStockError{InstrumentID: i.ID, Pool: PoolPacking, Requested: qty}
	}
	i.PackingStock -= qty
	if success {
		i.CSSDStock += qty
	} else {
		i.DirtyStock += qty
	}
	return nil
}

// ReservePacking takes qty out of packing stock into a pack
func (i *Instrument) ReservePacking(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if i.PackingStock < qty {
		return &InsufficientPackingStockError{InstrumentID: i.ID, Requested: qty}
	}
	i.PackingStock -= qty
	return nil
}

// ReleaseSterile credits qty of a sterilized pack back to the sterile pool
func (i *Instrument) ReleaseSterile(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	i.CSSDStock += qty
	return nil
}

// HeldAtCSSD is the quantity physically inside the department
func (i *Instrument) HeldAtCSSD() int {
	return i.CSSDStock + i.DirtyStock + i.PackingStock + i.BrokenStock
}

// Drift compares TotalStock against the pools plus what units and open packs hold.
// Zero means the books balance.
func (i *Instrument) Drift(atUnits, inPacks int) int {
	return i.TotalStock - (i.HeldAtCSSD() + atUnits + inPacks)
}
