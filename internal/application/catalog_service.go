package application

import (
	"context"
	"fmt"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	apperrors "github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
)

// CatalogService maintains instruments, serialized assets, units and par levels
type CatalogService struct {
	repos   domain.Repositories
	config  *Config
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(repos domain.Repositories, config *Config, m *metrics.Metrics, logger *logging.Logger) *CatalogService {
	return &CatalogService{
		repos:   repos,
		config:  config,
		metrics: m,
		logger:  logger.WithComponent("catalog-service"),
	}
}

// RegisterInstrument adds an instrument whose initial stock is all sterile at CSSD
func (s *CatalogService) RegisterInstrument(ctx context.Context, cmd RegisterInstrumentCommand) (*InstrumentDTO, error) {
	id := cmd.ID
	if id == "" {
		id = s.config.id()
	}
	inst, err := domain.NewInstrument(id, cmd.Name, cmd.Category, cmd.InitialStock, cmd.IsSerialized, s.config.now())
	if err != nil {
		return nil, reject(s.metrics, s.logger, "registerInstrument", err)
	}
	if err := s.repos.Instruments.Create(ctx, inst); err != nil {
		return nil, reject(s.metrics, s.logger, "registerInstrument", err)
	}

	s.logger.Audit(ctx, "register", "instrument", inst.ID, "", map[string]any{"initialStock": inst.TotalStock})
	return ToInstrumentDTO(inst), nil
}

// GetInstrument retrieves an instrument with its stock pools
func (s *CatalogService) GetInstrument(ctx context.Context, id string) (*InstrumentDTO, error) {
	inst, err := s.repos.Instruments.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument: %w", err)
	}
	if inst == nil {
		return nil, apperrors.ErrNotFoundWithID("instrument", id)
	}
	return ToInstrumentDTO(inst), nil
}

// ListInstruments returns every instrument
func (s *CatalogService) ListInstruments(ctx context.Context) ([]InstrumentDTO, error) {
	insts, err := s.repos.Instruments.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	out := make([]InstrumentDTO, 0, len(insts))
	for _, inst := range insts {
		out = append(out, *ToInstrumentDTO(inst))
	}
	return out, nil
}

// RegisterAsset adds a serialized unit of a known instrument
func (s *CatalogService) RegisterAsset(ctx context.Context, cmd RegisterAssetCommand) (*AssetDTO, error) {
	id := cmd.ID
	if id == "" {
		id = s.config.id()
	}
	location := cmd.Location
	if location == "" {
		location = s.config.cssdUnit()
	}

	var asset *domain.InstrumentAsset
	err := s.repos.UnitOfWork.Do(ctx, func(ctx context.Context) error {
		inst, err := s.repos.Instruments.FindByID(ctx, cmd.InstrumentID)
		if err != nil {
			return fmt.Errorf("failed to get instrument: %w", err)
		}
		if inst == nil {
			return domain.NewNotFoundError("instrument", cmd.InstrumentID)
		}

		a, err := domain.NewInstrumentAsset(id, inst.ID, cmd.SerialNumber, location, s.config.now())
		if err != nil {
			return err
		}
		if err := s.repos.Assets.Create(ctx, a); err != nil {
			return err
		}
		asset = a
		return nil
	})
	if err != nil {
		return nil, reject(s.metrics, s.logger, "registerAsset", err)
	}

	s.logger.Info("Registered asset", "assetId", asset.ID, "instrumentId", asset.InstrumentID, "serialNumber", asset.SerialNumber)
	return ToAssetDTO(asset), nil
}

// UpdateAssetStatus flags a serialized asset. A LOST asset stays lost.
func (s *CatalogService) UpdateAssetStatus(ctx context.Context, cmd UpdateAssetStatusCommand) (*AssetDTO, error) {
	var asset *domain.InstrumentAsset
	err := s.repos.UnitOfWork.Do(ctx, func(ctx context.Context) error {
		a, err := s.repos.Assets.FindByID(ctx, cmd.AssetID)
		if err != nil {
			return fmt.Errorf("failed to get asset: %w", err)
		}
		if a == nil {
			return domain.NewNotFoundError("asset", cmd.AssetID)
		}
		location := cmd.Location
		if location == "" {
			location = a.Location
		}
		if err := a.MoveTo(domain.AssetStatus(cmd.Status), location, s.config.now()); err != nil {
			return err
		}
		if err := s.repos.Assets.Update(ctx, a); err != nil {
			return fmt.Errorf("failed to update asset: %w", err)
		}
		asset = a
		return nil
	})
	if err != nil {
		return nil, reject(s.metrics, s.logger, "updateAssetStatus", err)
	}

	s.logger.Audit(ctx, "update_status", "asset", asset.ID, "", map[string]any{
		"status":   asset.Status,
		"location": asset.Location,
	})
	return ToAssetDTO(asset), nil
}

// ListAssets returns the serialized units of an instrument
func (s *CatalogService) ListAssets(ctx context.Context, instrumentID string) ([]AssetDTO, error) {
	assets, err := s.repos.Assets.FindByInstrument(ctx, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	out := make([]AssetDTO, 0, len(assets))
	for _, a := range assets {
		out = append(out, *ToAssetDTO(a))
	}
	return out, nil
}

// RegisterUnit adds or renames a care unit
func (s *CatalogService) RegisterUnit(ctx context.Context, cmd RegisterUnitCommand) (*UnitDTO, error) {
	if cmd.ID == s.config.cssdUnit() {
		return nil, reject(s.metrics, s.logger, "registerUnit", fmt.Errorf("%w: %s is reserved", domain.ErrInvalidUnit, cmd.ID))
	}
	unit, err := domain.NewUnit(cmd.ID, cmd.Name, s.config.now())
	if err != nil {
		return nil, reject(s.metrics, s.logger, "registerUnit", err)
	}
	if err := s.repos.Units.Save(ctx, unit); err != nil {
		return nil, fmt.Errorf("failed to save unit: %w", err)
	}
	return ToUnitDTO(unit), nil
}

// ListUnits returns the unit directory
func (s *CatalogService) ListUnits(ctx context.Context) ([]UnitDTO, error) {
	units, err := s.repos.Units.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	out := make([]UnitDTO, 0, len(units))
	for _, u := range units {
		out = append(out, *ToUnitDTO(u))
	}
	return out, nil
}

// SetParLevel sets or clears how many of an instrument a unit should hold
func (s *CatalogService) SetParLevel(ctx context.Context, cmd SetParLevelCommand) error {
	if cmd.UnitID == "" || cmd.InstrumentID == "" {
		return apperrors.ErrValidation("unitId and instrumentId are required")
	}
	if cmd.MaxStock != nil && *cmd.MaxStock < 0 {
		return apperrors.ErrValidation("maxStock must not be negative")
	}

	err := s.repos.UnitOfWork.Do(ctx, func(ctx context.Context) error {
		inst, err := s.repos.Instruments.FindByID(ctx, cmd.InstrumentID)
		if err != nil {
			return fmt.Errorf("failed to get instrument: %w", err)
		}
		if inst == nil {
			return domain.NewNotFoundError("instrument", cmd.InstrumentID)
		}
		return s.repos.Snapshots.SetMaxStock(ctx, cmd.InstrumentID, cmd.UnitID, cmd.MaxStock)
	})
	if err != nil {
		return reject(s.metrics, s.logger, "setParLevel", err)
	}
	return nil
}

// ListUnitStock returns what a unit currently holds, with par levels
func (s *CatalogService) ListUnitStock(ctx context.Context, unitID string) ([]UnitStockDTO, error) {
	if unitID == "" {
		return nil, apperrors.ErrValidation("unitId is required")
	}
	snaps, err := s.repos.Snapshots.FindByUnit(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unit stock: %w", err)
	}

	names := newNameResolver(s.repos)
	out := make([]UnitStockDTO, 0, len(snaps))
	for _, snap := range snaps {
		name, err := names.item(ctx, domain.ItemTypeSingle, snap.InstrumentID)
		if err != nil {
			return nil, err
		}
		out = append(out, UnitStockDTO{
			InstrumentID:   snap.InstrumentID,
			InstrumentName: name,
			UnitID:         snap.UnitID,
			Quantity:       snap.Quantity,
			MaxStock:       snap.MaxStock,
			BelowPar:       snap.BelowPar(),
			UpdatedAt:      snap.UpdatedAt,
		})
	}
	return out, nil
}
