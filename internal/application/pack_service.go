package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	apperrors "github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
)

// PackService composes set recipes and sterile packs out of packing stock
type PackService struct {
	repos   domain.Repositories
	config  *Config
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewPackService creates a new PackService
func NewPackService(repos domain.Repositories, config *Config, m *metrics.Metrics, logger *logging.Logger) *PackService {
	return &PackService{
		repos:   repos,
		config:  config,
		metrics: m,
		logger:  logger.WithComponent("pack-service"),
	}
}

// DefineSet creates or replaces a set recipe. Every component must be a known instrument.
func (s *PackService) DefineSet(ctx context.Context, cmd DefineSetCommand) (*SetDTO, error) {
	now := s.config.now()
	id := cmd.ID
	if id == "" {
		id = s.config.id()
	}

	items := make([]domain.Component, 0, len(cmd.Items))
	for _, it := range cmd.Items {
		items = append(items, domain.Component{InstrumentID: it.InstrumentID, Quantity: it.Quantity})
	}
	set, err := domain.NewInstrumentSet(id, cmd.Name, cmd.Description, items, now)
	if err != nil {
		return nil, reject(s.metrics, s.logger, "defineSet", err)
	}

	err = s.repos.UnitOfWork.Do(ctx, func(ctx context.Context) error {
		for _, c := range set.Items {
			inst, err := s.repos.Instruments.FindByID(ctx, c.InstrumentID)
			if err != nil {
				return fmt.Errorf("failed to get instrument: %w", err)
			}
			if inst == nil {
				return domain.NewNotFoundError("instrument", c.InstrumentID)
			}
		}

		existing, err := s.repos.Sets.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get set: %w", err)
		}
		if existing != nil {
			set.CreatedAt = existing.CreatedAt
		}
		if err := s.repos.Sets.Save(ctx, set); err != nil {
			return fmt.Errorf("failed to save set: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, reject(s.metrics, s.logger, "defineSet", err)
	}

	s.logger.Info("Defined set", "setId", set.ID, "name", set.Name, "components", len(set.Items))
	return ToSetDTO(set), nil
}

// GetSet retrieves a set recipe by ID
func (s *PackService) GetSet(ctx context.Context, id string) (*SetDTO, error) {
	set, err := s.repos.Sets.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get set: %w", err)
	}
	if set == nil {
		return nil, apperrors.ErrNotFoundWithID("set", id)
	}
	return ToSetDTO(set), nil
}

// ListSets returns every set recipe
func (s *PackService) ListSets(ctx context.Context) ([]SetDTO, error) {
	sets, err := s.repos.Sets.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sets: %w", err)
	}
	out := make([]SetDTO, 0, len(sets))
	for _, set := range sets {
		out = append(out, *ToSetDTO(set))
	}
	return out, nil
}

// CreatePack bundles packing stock into a PACKED pack. Set lines reserve
// their expanded components. Without a name the pack is named from its content.
func (s *PackService) CreatePack(ctx context.Context, cmd CreatePackCommand) (*PackDTO, error) {
	now := s.config.now()
	items := make([]domain.PackItem, 0, len(cmd.Items))
	for _, it := range cmd.Items {
		itemType := domain.ItemType(it.ItemType)
		if itemType == "" {
			itemType = domain.ItemTypeSingle
		}
		items = append(items, domain.PackItem{ItemID: it.ItemID, ItemType: itemType, Quantity: it.Quantity})
	}
	if len(items) == 0 {
		return nil, reject(s.metrics, s.logger, "createPack", domain.ErrEmptyTransaction)
	}

	packType := domain.PackType(cmd.Type)
	if packType == "" {
		packType = inferPackType(items)
	}

	var (
		pack *domain.SterilePack
		mv   = newMovements(s.repos.Ledger, s.logger)
	)
	err := s.repos.UnitOfWork.Do(ctx, func(ctx context.Context) error {
		mv.reset()
		sets := newSetCache(s.repos.Sets)
		names := newNameResolver(s.repos)

		name := strings.TrimSpace(cmd.Name)
		if name == "" {
			named := make([]domain.NamedPackItem, 0, len(items))
			for _, it := range items {
				itemName, err := names.item(ctx, it.ItemType, it.ItemID)
				if err != nil {
					return err
				}
				named = append(named, domain.NamedPackItem{PackItem: it, Name: itemName})
			}
			name = domain.AutoPackName(named, now, packSuffix())
		}

		p, err := domain.NewSterilePack(s.config.id(), name, packType, items, cmd.TargetUnitID, cmd.CreatedBy, now)
		if err != nil {
			return err
		}

		components, err := packComponents(ctx, sets, p)
		if err != nil {
			return err
		}
		for _, c := range components {
			if err := mv.reserve(ctx, c.InstrumentID, c.Quantity); err != nil {
				return err
			}
		}

		if err := s.repos.Packs.Save(ctx, p); err != nil {
			return fmt.Errorf("failed to save pack: %w", err)
		}
		if err := eventsOf(s.repos).Record(ctx, "Pack", p.ID, p.GetDomainEvents()); err != nil {
			return err
		}
		p.ClearDomainEvents()
		pack = p
		return nil
	})
	if err != nil {
		return nil, reject(s.metrics, s.logger, "createPack", err)
	}

	mv.flush(s.metrics)
	s.metrics.RecordPack(string(pack.Status))
	s.logger.Info("Created pack", "packId", pack.ID, "name", pack.Name, "type", pack.Type, "items", len(pack.Items))
	return ToPackDTO(pack), nil
}

// SterilizePack runs a PACKED pack through the sterilizer. Its contents count
// towards sterile stock again only now.
func (s *PackService) SterilizePack(ctx context.Context, id string) (*PackDTO, error) {
	now := s.config.now()

	var (
		pack *domain.SterilePack
		mv   = newMovements(s.repos.Ledger, s.logger)
	)
	err := s.repos.UnitOfWork.Do(ctx, func(ctx context.Context) error {
		mv.reset()
		p, err := s.repos.Packs.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get pack: %w", err)
		}
		if p == nil {
			return domain.NewNotFoundError("pack", id)
		}
		if err := p.Sterilize(now, s.config.shelfLife()); err != nil {
			return err
		}

		components, err := packComponents(ctx, newSetCache(s.repos.Sets), p)
		if err != nil {
			return err
		}
		for _, c := range components {
			if err := mv.release(ctx, c.InstrumentID, c.Quantity); err != nil {
				return err
			}
		}

		if err := s.repos.Packs.Save(ctx, p); err != nil {
			return fmt.Errorf("failed to save pack: %w", err)
		}
		if err := eventsOf(s.repos).Record(ctx, "Pack", p.ID, p.GetDomainEvents()); err != nil {
			return err
		}
		p.ClearDomainEvents()
		pack = p
		return nil
	})
	if err != nil {
		return nil, reject(s.metrics, s.logger, "sterilizePack", err)
	}

	mv.flush(s.metrics)
	s.metrics.RecordPack(string(pack.Status))
	s.logger.Info("Sterilized pack", "packId", pack.ID, "expiresAt", pack.ExpiresAt)
	return ToPackDTO(pack), nil
}

// GetPack retrieves a pack. If an older pack of the same content is in the
// same state, the result carries a FIFO warning pointing at it.
func (s *PackService) GetPack(ctx context.Context, id string) (*PackDTO, error) {
	pack, err := s.repos.Packs.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get pack: %w", err)
	}
	if pack == nil {
		return nil, apperrors.ErrNotFoundWithID("pack", id)
	}

	dto := ToPackDTO(pack)
	if pack.Status == domain.PackStatusDistributed {
		return dto, nil
	}

	candidates, err := s.repos.Packs.Find(ctx, domain.PackFilter{Status: pack.Status, CreatedBefore: &pack.CreatedAt})
	if err != nil {
		return nil, fmt.Errorf("failed to find older packs: %w", err)
	}
	if older := domain.OldestEarlierPack(pack, candidates); older != nil {
		dto.FIFOWarning = &FIFOWarningDTO{
			Message: fmt.Sprintf("an older pack %q is still %s; use it first", older.Name, strings.ToLower(string(older.Status))),
			OlderPack: OlderPackDTO{
				ID:        older.ID,
				Name:      older.Name,
				CreatedAt: older.CreatedAt,
			},
		}
	}
	return dto, nil
}

// ListPacks lists packs oldest first
func (s *PackService) ListPacks(ctx context.Context, query ListPacksQuery) ([]PackDTO, error) {
	status := domain.PackStatus(query.Status)
	if status != "" && !status.IsValid() {
		return nil, apperrors.ErrValidation("invalid pack status")
	}
	packs, err := s.repos.Packs.Find(ctx, domain.PackFilter{Status: status, TargetUnitID: query.TargetUnitID})
	if err != nil {
		return nil, fmt.Errorf("failed to list packs: %w", err)
	}
	out := make([]PackDTO, 0, len(packs))
	for _, p := range packs {
		out = append(out, *ToPackDTO(p))
	}
	return out, nil
}

// ExpirePacks flags every sterile pack whose shelf life has run out. The
// contents stay in sterile stock; the pack can no longer be distributed.
func (s *PackService) ExpirePacks(ctx context.Context) ([]PackDTO, error) {
	now := s.config.now()

	var expired []*domain.SterilePack
	err := s.repos.UnitOfWork.Do(ctx, func(ctx context.Context) error {
		expired = nil
		packs, err := s.repos.Packs.Find(ctx, domain.PackFilter{Status: domain.PackStatusSterilized, ExpiresBefore: &now})
		if err != nil {
			return fmt.Errorf("failed to find sterile packs: %w", err)
		}
		for _, p := range packs {
			if !p.Expire(now) {
				continue
			}
			if err := s.repos.Packs.Save(ctx, p); err != nil {
				return fmt.Errorf("failed to save pack: %w", err)
			}
			event := &domain.PackExpiredEvent{PackID: p.ID, Name: p.Name, ExpiredAt: now}
			if err := eventsOf(s.repos).Record(ctx, "Pack", p.ID, []domain.DomainEvent{event}); err != nil {
				return err
			}
			expired = append(expired, p)
		}
		return nil
	})
	if err != nil {
		return nil, reject(s.metrics, s.logger, "expirePacks", err)
	}

	out := make([]PackDTO, 0, len(expired))
	for _, p := range expired {
		s.metrics.RecordPack(string(p.Status))
		out = append(out, *ToPackDTO(p))
	}
	if len(out) > 0 {
		s.logger.Info("Expired packs", "count", len(out))
	}
	return out, nil
}

// packComponents expands a pack into the instruments it holds
func packComponents(ctx context.Context, sets *setCache, p *domain.SterilePack) ([]domain.Component, error) {
	var out []domain.Component
	for _, it := range p.Items {
		if it.ItemType != domain.ItemTypeSet {
			out = append(out, domain.Component{InstrumentID: it.ItemID, Quantity: it.Quantity})
			continue
		}
		set, err := sets.get(ctx, it.ItemID)
		if err != nil {
			return nil, err
		}
		out = append(out, set.Expand(it.Quantity)...)
	}
	return domain.MergeComponents(out), nil
}

func inferPackType(items []domain.PackItem) domain.PackType {
	singles, sets := 0, 0
	for _, it := range items {
		if it.ItemType == domain.ItemTypeSet {
			sets++
		} else {
			singles++
		}
	}
	switch {
	case sets == 0:
		return domain.PackTypeSingleItems
	case singles == 0:
		return domain.PackTypeSet
	default:
		return domain.PackTypeMixed
	}
}

// packSuffix is the random part of a generated set pack name
func packSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
}
