// Package memory provides an in-process backend. Each unit of work runs on a
// private copy of the committed state which replaces it only on success, so a
// failed guard halfway through an operation leaves nothing behind.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/outbox"
)

type state struct {
	instruments   map[string]domain.Instrument
	snapshots     map[domain.SnapshotKey]domain.InventorySnapshot
	assets        map[string]domain.InstrumentAsset
	sets          map[string]domain.InstrumentSet
	packs         map[string]domain.SterilePack
	transactions  map[string]domain.Transaction
	batches       []domain.SterilizationBatch
	discrepancies []domain.DiscrepancyReport
	units         map[string]domain.Unit
	outbox        map[string]outbox.OutboxEvent
}

func newState() *state {
	return &state{
		instruments:  map[string]domain.Instrument{},
		snapshots:    map[domain.SnapshotKey]domain.InventorySnapshot{},
		assets:       map[string]domain.InstrumentAsset{},
		sets:         map[string]domain.InstrumentSet{},
		packs:        map[string]domain.SterilePack{},
		transactions: map[string]domain.Transaction{},
		units:        map[string]domain.Unit{},
		outbox:       map[string]outbox.OutboxEvent{},
	}
}

// clone copies the maps. Stored values are never mutated in place, so
// sharing them between the copies is safe.
func (s *state) clone() *state {
	c := &state{
		instruments:   make(map[string]domain.Instrument, len(s.instruments)),
		snapshots:     make(map[domain.SnapshotKey]domain.InventorySnapshot, len(s.snapshots)),
		assets:        make(map[string]domain.InstrumentAsset, len(s.assets)),
		sets:          make(map[string]domain.InstrumentSet, len(s.sets)),
		packs:         make(map[string]domain.SterilePack, len(s.packs)),
		transactions:  make(map[string]domain.Transaction, len(s.transactions)),
		batches:       append([]domain.SterilizationBatch(nil), s.batches...),
		discrepancies: append([]domain.DiscrepancyReport(nil), s.discrepancies...),
		units:         make(map[string]domain.Unit, len(s.units)),
		outbox:        make(map[string]outbox.OutboxEvent, len(s.outbox)),
	}
	for k, v := range s.instruments {
		c.instruments[k] = v
	}
	for k, v := range s.snapshots {
		c.snapshots[k] = v
	}
	for k, v := range s.assets {
		c.assets[k] = v
	}
	for k, v := range s.sets {
		c.sets[k] = v
	}
	for k, v := range s.packs {
		c.packs[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.units {
		c.units[k] = v
	}
	for k, v := range s.outbox {
		c.outbox[k] = v
	}
	return c
}

type txKey struct{}

type memTx struct {
	state *state
}

// Store is the in-memory backend. Writers are serialized; readers see the
// last committed state without blocking writers.
type Store struct {
	mu        sync.RWMutex
	txMu      sync.Mutex
	committed *state
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{committed: newState()}
}

// Repositories returns every port backed by this store
func (s *Store) Repositories() domain.Repositories {
	return domain.Repositories{
		UnitOfWork:    s,
		Ledger:        &Ledger{store: s},
		Instruments:   &InstrumentRepository{store: s},
		Snapshots:     &SnapshotRepository{store: s},
		Assets:        &AssetRepository{store: s},
		Sets:          &SetRepository{store: s},
		Packs:         &PackRepository{store: s},
		Transactions:  &TransactionRepository{store: s},
		Batches:       &BatchRepository{store: s},
		Discrepancies: &DiscrepancyRepository{store: s},
		Units:         &UnitRepository{store: s},
	}
}

// Outbox returns the outbox repository sharing this store's transactions
func (s *Store) Outbox() *OutboxRepository {
	return &OutboxRepository{store: s}
}

// Do runs fn on a private copy of the state and commits it if fn succeeds.
// A ctx already inside a unit of work joins it.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*memTx); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{state: s.current().clone()}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	s.mu.Lock()
	s.committed = tx.state
	s.mu.Unlock()
	return nil
}

func (s *Store) current() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed
}

// view returns the state a read on ctx should see
func (s *Store) view(ctx context.Context) *state {
	if tx, ok := ctx.Value(txKey{}).(*memTx); ok {
		return tx.state
	}
	return s.current()
}

// write applies fn inside the ctx's unit of work, or in one of its own
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	return s.Do(ctx, func(ctx context.Context) error {
		return fn(ctx.Value(txKey{}).(*memTx).state)
	})
}

func cloneInstrument(v domain.Instrument) *domain.Instrument {
	return &v
}

func cloneSnapshot(v domain.InventorySnapshot) *domain.InventorySnapshot {
	if v.MaxStock != nil {
		m := *v.MaxStock
		v.MaxStock = &m
	}
	return &v
}

func cloneAsset(v domain.InstrumentAsset) *domain.InstrumentAsset {
	return &v
}

func cloneSet(v domain.InstrumentSet) *domain.InstrumentSet {
	v.Items = append([]domain.Component(nil), v.Items...)
	return &v
}

func clonePackTimes(t *domain.SterilePack) {
	if t.SterilizedAt != nil {
		at := *t.SterilizedAt
		t.SterilizedAt = &at
	}
	if t.ExpiresAt != nil {
		at := *t.ExpiresAt
		t.ExpiresAt = &at
	}
	if t.DistributedAt != nil {
		at := *t.DistributedAt
		t.DistributedAt = &at
	}
}

func clonePack(v domain.SterilePack) *domain.SterilePack {
	v.Items = append([]domain.PackItem(nil), v.Items...)
	v.DomainEvents = nil
	clonePackTimes(&v)
	return &v
}

func cloneTransaction(v domain.Transaction) *domain.Transaction {
	v.Items = append([]domain.ItemLine{}, v.Items...)
	for i := range v.Items {
		if v.Items[i].ReceivedCount != nil {
			n := *v.Items[i].ReceivedCount
			v.Items[i].ReceivedCount = &n
		}
		v.Items[i].AssetIDs = append([]string(nil), v.Items[i].AssetIDs...)
	}
	v.SetItems = append([]domain.SetLine{}, v.SetItems...)
	for i := range v.SetItems {
		if v.SetItems[i].ReceivedQuantity != nil {
			n := *v.SetItems[i].ReceivedQuantity
			v.SetItems[i].ReceivedQuantity = &n
		}
	}
	v.PackIDs = append([]string(nil), v.PackIDs...)
	if v.ExpectedReturnDate != nil {
		d := *v.ExpectedReturnDate
		v.ExpectedReturnDate = &d
	}
	if v.ValidatedAt != nil {
		d := *v.ValidatedAt
		v.ValidatedAt = &d
	}
	v.DomainEvents = nil
	return &v
}

func cloneBatch(v domain.SterilizationBatch) *domain.SterilizationBatch {
	v.Items = append([]domain.Component(nil), v.Items...)
	if v.ExpiryDate != nil {
		d := *v.ExpiryDate
		v.ExpiryDate = &d
	}
	return &v
}

func cloneReport(v domain.DiscrepancyReport) *domain.DiscrepancyReport {
	v.Summary.Lines = append([]domain.DiscrepancyLine(nil), v.Summary.Lines...)
	return &v
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
