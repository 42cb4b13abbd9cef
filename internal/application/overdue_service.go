package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	apperrors "github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
)

// OverdueService replays committed ledger history to find loans still out past their due date
type OverdueService struct {
	repos    domain.Repositories
	config   *Config
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewOverdueService creates a new OverdueService
func NewOverdueService(
	repos domain.Repositories,
	config *Config,
	notifier Notifier,
	m *metrics.Metrics,
	logger *logging.Logger,
) *OverdueService {
	return &OverdueService{
		repos:    repos,
		config:   config,
		notifier: notifier,
		metrics:  m,
		logger:   logger.WithComponent("overdue-service"),
	}
}

// reconcile runs FIFO matching over the completed transactions of unitID, or of every unit when empty
func (s *OverdueService) reconcile(ctx context.Context, unitID string) ([]domain.DistributionLine, error) {
	txs, err := s.repos.Transactions.Find(ctx, domain.TransactionFilter{
		UnitID: unitID,
		Status: domain.TransactionStatusCompleted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return domain.ReconcileFIFO(domain.DistributionLines(txs), domain.CollectionLines(txs)), nil
}

// GetOverdueInstruments groups every overdue line by unit. overdueCount is the
// number of pieces still out.
func (s *OverdueService) GetOverdueInstruments(ctx context.Context) ([]UnitOverdueDTO, error) {
	now := s.config.now()
	lines, err := s.reconcile(ctx, "")
	if err != nil {
		return nil, err
	}
	return s.group(ctx, domain.OverdueLines(lines, now), now)
}

// CheckUnitOverdue runs the same matching for one unit and only counts
func (s *OverdueService) CheckUnitOverdue(ctx context.Context, unitID string) (*UnitOverdueStatusDTO, error) {
	if unitID == "" {
		return nil, apperrors.ErrValidation("unitId is required")
	}
	lines, err := s.reconcile(ctx, unitID)
	if err != nil {
		return nil, err
	}

	count := 0
	for _, l := range domain.OverdueLines(lines, s.config.now()) {
		count += l.Remaining
	}
	return &UnitOverdueStatusDTO{UnitID: unitID, HasOverdue: count > 0, OverdueCount: count}, nil
}

// GetOutstanding lists every line of unitID with pieces still out, due or not
func (s *OverdueService) GetOutstanding(ctx context.Context, unitID string) ([]OutstandingLineDTO, error) {
	if unitID == "" {
		return nil, apperrors.ErrValidation("unitId is required")
	}
	lines, err := s.reconcile(ctx, unitID)
	if err != nil {
		return nil, err
	}

	out := make([]OutstandingLineDTO, 0)
	for _, l := range domain.OutstandingLines(lines) {
		out = append(out, OutstandingLineDTO{
			ItemType:           string(l.ItemType),
			ItemID:             l.ItemID,
			TransactionID:      l.TransactionID,
			DistributedAt:      l.Timestamp,
			ExpectedReturnDate: l.ExpectedReturnDate,
			Count:              l.Count,
			Remaining:          l.Remaining,
		})
	}
	return out, nil
}

// SweepOverdue finds every unit with overdue loans, records an event for each,
// updates the overdue gauge and notifies staff. It is safe to re-run.
func (s *OverdueService) SweepOverdue(ctx context.Context) ([]UnitOverdueDTO, error) {
	units, err := s.GetOverdueInstruments(ctx)
	if err != nil {
		return nil, err
	}
	now := s.config.now()

	err = s.repos.UnitOfWork.Do(ctx, func(ctx context.Context) error {
		for _, u := range units {
			event := &domain.OverdueDetectedEvent{
				UnitID:       u.UnitID,
				UnitName:     u.UnitName,
				OverdueCount: u.OverdueCount,
				Lines:        len(u.Instruments),
				DetectedAt:   now,
			}
			if err := eventsOf(s.repos).Record(ctx, "Unit", u.UnitID, []domain.DomainEvent{event}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record overdue events: %w", err)
	}

	for _, u := range units {
		s.metrics.SetOverdueLines(u.UnitID, len(u.Instruments))
		notifyOverdue(ctx, s.notifier, u, s.metrics, s.logger)
	}

	s.logger.Info("Overdue sweep completed", "units", len(units))
	return units, nil
}

func (s *OverdueService) group(ctx context.Context, lines []domain.DistributionLine, now time.Time) ([]UnitOverdueDTO, error) {
	names := newNameResolver(s.repos)
	byUnit := make(map[string]*UnitOverdueDTO)
	order := make([]string, 0)

	for _, l := range lines {
		u, ok := byUnit[l.UnitID]
		if !ok {
			unitName, err := names.unit(ctx, l.UnitID)
			if err != nil {
				return nil, err
			}
			u = &UnitOverdueDTO{UnitID: l.UnitID, UnitName: unitName, Instruments: []OverdueInstrumentDTO{}}
			byUnit[l.UnitID] = u
			order = append(order, l.UnitID)
		}

		itemName, err := names.item(ctx, l.ItemType, l.ItemID)
		if err != nil {
			return nil, err
		}
		u.OverdueCount += l.Remaining
		u.Instruments = append(u.Instruments, OverdueInstrumentDTO{
			ItemType:           string(l.ItemType),
			ItemID:             l.ItemID,
			ItemName:           itemName,
			TransactionID:      l.TransactionID,
			DistributedAt:      l.Timestamp,
			ExpectedReturnDate: *l.ExpectedReturnDate,
			Remaining:          l.Remaining,
			DaysOverdue:        domain.DaysOverdue(now, *l.ExpectedReturnDate),
		})
	}

	sort.Strings(order)
	out := make([]UnitOverdueDTO, 0, len(order))
	for _, id := range order {
		out = append(out, *byUnit[id])
	}
	return out, nil
}

// nameResolver looks up display names once per operation, falling back to the id
type nameResolver struct {
	repos       domain.Repositories
	units       map[string]string
	instruments map[string]string
	sets        map[string]string
}

func newNameResolver(repos domain.Repositories) *nameResolver {
	return &nameResolver{
		repos:       repos,
		units:       make(map[string]string),
		instruments: make(map[string]string),
		sets:        make(map[string]string),
	}
}

func (n *nameResolver) unit(ctx context.Context, id string) (string, error) {
	if name, ok := n.units[id]; ok {
		return name, nil
	}
	u, err := n.repos.Units.FindByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to get unit: %w", err)
	}
	name := id
	if u != nil {
		name = u.Name
	}
	n.units[id] = name
	return name, nil
}

func (n *nameResolver) item(ctx context.Context, itemType domain.ItemType, id string) (string, error) {
	if itemType == domain.ItemTypeSet {
		if name, ok := n.sets[id]; ok {
			return name, nil
		}
		set, err := n.repos.Sets.FindByID(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to get set: %w", err)
		}
		name := id
		if set != nil {
			name = set.Name
		}
		n.sets[id] = name
		return name, nil
	}

	if name, ok := n.instruments[id]; ok {
		return name, nil
	}
	inst, err := n.repos.Instruments.FindByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to get instrument: %w", err)
	}
	name := id
	if inst != nil {
		name = inst.Name
	}
	n.instruments[id] = name
	return name, nil
}
