package application

import (
	"context"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
)

// movements wraps the ledger for the length of one operation. It logs every
// primitive and tallies moved pieces; flush reports them once the unit of
// work has committed.
type movements struct {
	ledger domain.StockLedger
	logger *logging.Logger
	moved  map[string]int
}

func newMovements(ledger domain.StockLedger, logger *logging.Logger) *movements {
	return &movements{ledger: ledger, logger: logger, moved: make(map[string]int)}
}

func (m *movements) distribute(ctx context.Context, instrumentID string, qty int, unitID string) error {
	if err := m.ledger.MoveDistribute(ctx, instrumentID, qty, unitID); err != nil {
		return err
	}
	m.track(ctx, "distribute", instrumentID, unitID, qty)
	return nil
}

func (m *movements) collect(ctx context.Context, instrumentID string, qty, broken, missing int, unitID string) error {
	if err := m.ledger.MoveCollect(ctx, instrumentID, qty, broken, missing, unitID); err != nil {
		return err
	}
	m.track(ctx, "collect", instrumentID, unitID, qty)
	if broken > 0 {
		m.track(ctx, "broken", instrumentID, unitID, broken)
	}
	if missing > 0 {
		m.track(ctx, "missing", instrumentID, unitID, missing)
	}
	return nil
}

func (m *movements) wash(ctx context.Context, instrumentID string, qty int) error {
	if err := m.ledger.MoveWash(ctx, instrumentID, qty); err != nil {
		return err
	}
	m.track(ctx, "wash", instrumentID, "", qty)
	return nil
}

func (m *movements) sterilize(ctx context.Context, instrumentID string, qty int, success bool) error {
	if err := m.ledger.MoveSterilize(ctx, instrumentID, qty, success); err != nil {
		return err
	}
	kind := "sterilize"
	if !success {
		kind = "sterilize_failed"
	}
	m.track(ctx, kind, instrumentID, "", qty)
	return nil
}

func (m *movements) reserve(ctx context.Context, instrumentID string, qty int) error {
	if err := m.ledger.ReservePacking(ctx, instrumentID, qty); err != nil {
		return err
	}
	m.track(ctx, "pack", instrumentID, "", qty)
	return nil
}

func (m *movements) release(ctx context.Context, instrumentID string, qty int) error {
	if err := m.ledger.ReleaseSterile(ctx, instrumentID, qty); err != nil {
		return err
	}
	m.track(ctx, "pack_sterilize", instrumentID, "", qty)
	return nil
}

// reset forgets what an abandoned attempt moved
func (m *movements) reset() {
	m.moved = make(map[string]int)
}

func (m *movements) track(ctx context.Context, kind, instrumentID, unitID string, qty int) {
	m.logger.StockMovement(ctx, kind, instrumentID, unitID, qty)
	m.moved[kind] += qty
}

func (m *movements) flush(mt *metrics.Metrics) {
	for kind, qty := range m.moved {
		mt.RecordStockMoved(kind, qty)
	}
}

// setCache loads each set recipe at most once per operation
type setCache struct {
	repo domain.SetRepository
	sets map[string]*domain.InstrumentSet
}

func newSetCache(repo domain.SetRepository) *setCache {
	return &setCache{repo: repo, sets: make(map[string]*domain.InstrumentSet)}
}

func (c *setCache) get(ctx context.Context, id string) (*domain.InstrumentSet, error) {
	if set, ok := c.sets[id]; ok {
		return set, nil
	}
	set, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, domain.NewNotFoundError("set", id)
	}
	c.sets[id] = set
	return set, nil
}

// detached keeps ctx values for work that must outlive the request
func detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
