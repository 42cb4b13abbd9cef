package domain

import (
	"context"
	"time"
)

// UnitOfWork runs fn atomically. Repositories called with the ctx handed to fn
// join the same storage transaction; any error returned by fn rolls it back.
// A ctx that already carries a transaction is reused rather than nested.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// StockLedger holds the guarded stock primitives. Each decrement is a single
// conditional update; a failed guard returns an error and changes nothing.
type StockLedger interface {
	MoveDistribute(ctx context.Context, instrumentID string, qty int, destUnitID string) error
	MoveCollect(ctx context.Context, instrumentID string, qty, broken, missing int, sourceUnitID string) error
	MoveWash(ctx context.Context, instrumentID string, qty int) error
	MoveSterilize(ctx context.Context, instrumentID string, qty int, success bool) error
	ReservePacking(ctx context.Context, instrumentID string, qty int) error
	ReleaseSterile(ctx context.Context, instrumentID string, qty int) error
}

// InstrumentRepository defines the interface for instrument persistence.
// Stock counters change only through StockLedger. Like every FindByID in
// this package, an unknown id yields nil, nil.
type InstrumentRepository interface {
	Create(ctx context.Context, instrument *Instrument) error
	FindByID(ctx context.Context, id string) (*Instrument, error)
	FindAll(ctx context.Context) ([]*Instrument, error)
}

// SnapshotRepository defines the interface for per-unit stock snapshots
type SnapshotRepository interface {
	Find(ctx context.Context, instrumentID, unitID string) (*InventorySnapshot, error)
	FindByUnit(ctx context.Context, unitID string) ([]*InventorySnapshot, error)
	FindAll(ctx context.Context) ([]*InventorySnapshot, error)
	SetMaxStock(ctx context.Context, instrumentID, unitID string, maxStock *int) error
}

// AssetRepository defines the interface for serialized asset persistence
type AssetRepository interface {
	Create(ctx context.Context, asset *InstrumentAsset) error
	FindByID(ctx context.Context, id string) (*InstrumentAsset, error)
	FindByInstrument(ctx context.Context, instrumentID string) ([]*InstrumentAsset, error)
	Update(ctx context.Context, asset *InstrumentAsset) error
}

// SetRepository defines the interface for set recipe persistence
type SetRepository interface {
	Save(ctx context.Context, set *InstrumentSet) error
	FindByID(ctx context.Context, id string) (*InstrumentSet, error)
	FindAll(ctx context.Context) ([]*InstrumentSet, error)
}

// PackFilter narrows pack queries. Zero values match everything.
type PackFilter struct {
	Status        PackStatus
	TargetUnitID  string
	CreatedBefore *time.Time
	ExpiresBefore *time.Time
}

// PackRepository defines the interface for pack persistence
type PackRepository interface {
	Save(ctx context.Context, pack *SterilePack) error
	FindByID(ctx context.Context, id string) (*SterilePack, error)
	Find(ctx context.Context, filter PackFilter) ([]*SterilePack, error)
}

// TransactionFilter narrows transaction queries. Zero values match everything; Limit 0 means no limit.
type TransactionFilter struct {
	UnitID string
	Type   TransactionType
	Status TransactionStatus
	Offset int
	Limit  int
}

// TransactionRepository defines the interface for ledger transaction persistence
type TransactionRepository interface {
	Save(ctx context.Context, tx *Transaction) error
	FindByID(ctx context.Context, id string) (*Transaction, error)
	Find(ctx context.Context, filter TransactionFilter) ([]*Transaction, error)
	Count(ctx context.Context, filter TransactionFilter) (int64, error)
}

// BatchRepository defines the interface for wash and sterilize cycle records
type BatchRepository interface {
	Save(ctx context.Context, batch *SterilizationBatch) error
	FindRecent(ctx context.Context, limit int) ([]*SterilizationBatch, error)
}

// DiscrepancyRepository defines the interface for discrepancy report persistence
type DiscrepancyRepository interface {
	Save(ctx context.Context, report *DiscrepancyReport) error
	FindByTransaction(ctx context.Context, transactionID string) ([]*DiscrepancyReport, error)
	FindRecent(ctx context.Context, limit int) ([]*DiscrepancyReport, error)
}

// UnitRepository defines the interface for the unit directory
type UnitRepository interface {
	Save(ctx context.Context, unit *Unit) error
	FindByID(ctx context.Context, id string) (*Unit, error)
	FindAll(ctx context.Context) ([]*Unit, error)
}

// EventRecorder stores domain events inside the current unit of work for later publishing
type EventRecorder interface {
	Record(ctx context.Context, aggregateType, aggregateID string, events []DomainEvent) error
}

// Repositories bundles the ports a storage backend provides
type Repositories struct {
	UnitOfWork    UnitOfWork
	Ledger        StockLedger
	Instruments   InstrumentRepository
	Snapshots     SnapshotRepository
	Assets        AssetRepository
	Sets          SetRepository
	Packs         PackRepository
	Transactions  TransactionRepository
	Batches       BatchRepository
	Discrepancies DiscrepancyRepository
	Units         UnitRepository
	Events        EventRecorder
}
