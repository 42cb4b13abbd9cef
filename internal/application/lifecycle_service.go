package application

import (
	"context"
	"fmt"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	apperrors "github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
)

const defaultBatchLimit = 50

// LifecycleService moves returned instruments through the washer and the sterilizer
type LifecycleService struct {
	repos   domain.Repositories
	config  *Config
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(repos domain.Repositories, config *Config, m *metrics.Metrics, logger *logging.Logger) *LifecycleService {
	return &LifecycleService{
		repos:   repos,
		config:  config,
		metrics: m,
		logger:  logger.WithComponent("lifecycle-service"),
	}
}

// WashItems moves dirty stock into packing stock and records the cycle
func (s *LifecycleService) WashItems(ctx context.Context, cmd WashItemsCommand) (*BatchDTO, error) {
	batch, err := domain.NewWashBatch(s.config.id(), cmd.Operator, toComponents(cmd.Items), s.config.now())
	if err != nil {
		return nil, reject(s.metrics, s.logger, "washItems", err)
	}

	mv := newMovements(s.repos.Ledger, s.logger)
	err = s.repos.UnitOfWork.Do(ctx, func(ctx context.Context) error {
		mv.reset()
		for _, c := range batch.Items {
			if err := mv.wash(ctx, c.InstrumentID, c.Quantity); err != nil {
				return err
			}
		}
		if err := s.repos.Batches.Save(ctx, batch); err != nil {
			return fmt.Errorf("failed to save batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, reject(s.metrics, s.logger, "washItems", err)
	}

	mv.flush(s.metrics)
	s.metrics.RecordCycle(string(batch.Kind), string(batch.Status))
	s.logger.Info("Wash cycle recorded", "batchId", batch.ID, "operator", batch.Operator, "items", len(batch.Items))
	return ToBatchDTO(batch), nil
}

// SterilizeItems runs packing stock through the sterilizer. A successful
// cycle makes the pieces sterile; a failed one sends them back to dirty.
func (s *LifecycleService) SterilizeItems(ctx context.Context, cmd SterilizeItemsCommand) (*SterilizeResultDTO, error) {
	status := domain.BatchStatus(cmd.Status)
	if status == "" {
		status = domain.BatchStatusSuccess
	}
	batch, err := domain.NewSterilizeBatch(s.config.id(), cmd.Operator, cmd.Machine, status,
		toComponents(cmd.Items), s.config.now(), s.config.shelfLife())
	if err != nil {
		return nil, reject(s.metrics, s.logger, "sterilizeItems", err)
	}
	success := batch.Status == domain.BatchStatusSuccess

	mv := newMovements(s.repos.Ledger, s.logger)
	err = s.repos.UnitOfWork.Do(ctx, func(ctx context.Context) error {
		mv.reset()
		for _, c := range batch.Items {
			if err := mv.sterilize(ctx, c.InstrumentID, c.Quantity, success); err != nil {
				return err
			}
		}
		if err := s.repos.Batches.Save(ctx, batch); err != nil {
			return fmt.Errorf("failed to save batch: %w", err)
		}
		event := &domain.ItemsSterilizedEvent{
			BatchID:    batch.ID,
			Status:     batch.Status,
			Machine:    batch.Machine,
			Operator:   batch.Operator,
			Items:      batch.Items,
			ExpiryDate: batch.ExpiryDate,
			CreatedAt:  batch.CreatedAt,
		}
		return eventsOf(s.repos).Record(ctx, "SterilizationBatch", batch.ID, []domain.DomainEvent{event})
	})
	if err != nil {
		return nil, reject(s.metrics, s.logger, "sterilizeItems", err)
	}

	mv.flush(s.metrics)
	s.metrics.RecordCycle(string(batch.Kind), string(batch.Status))
	if success {
		s.logger.Info("Sterilize cycle recorded", "batchId", batch.ID, "machine", batch.Machine, "expiryDate", batch.ExpiryDate)
	} else {
		s.logger.Warn("Sterilize cycle failed, items returned to dirty stock", "batchId", batch.ID, "machine", batch.Machine)
	}
	return &SterilizeResultDTO{BatchID: batch.ID, Status: string(batch.Status), ExpiryDate: batch.ExpiryDate}, nil
}

// ListBatches returns the most recent cycles, newest first
func (s *LifecycleService) ListBatches(ctx context.Context, limit int) ([]BatchDTO, error) {
	if limit < 0 {
		return nil, apperrors.ErrValidation("limit must not be negative")
	}
	if limit == 0 {
		limit = defaultBatchLimit
	}
	batches, err := s.repos.Batches.FindRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	out := make([]BatchDTO, 0, len(batches))
	for _, b := range batches {
		out = append(out, *ToBatchDTO(b))
	}
	return out, nil
}

func toComponents(items []ProcessItemInput) []domain.Component {
	out := make([]domain.Component, 0, len(items))
	for _, it := range items {
		out = append(out, domain.Component{InstrumentID: it.InstrumentID, Quantity: it.Quantity})
	}
	return out
}
