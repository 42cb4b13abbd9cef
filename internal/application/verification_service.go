package application

import (
	"context"
	"fmt"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	apperrors "github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
)

// VerificationService reconciles the physical count of a collection with what was declared
type VerificationService struct {
	repos    domain.Repositories
	config   *Config
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewVerificationService creates a new VerificationService
func NewVerificationService(
	repos domain.Repositories,
	config *Config,
	notifier Notifier,
	m *metrics.Metrics,
	logger *logging.Logger,
) *VerificationService {
	return &VerificationService{
		repos:    repos,
		config:   config,
		notifier: notifier,
		metrics:  m,
		logger:   logger.WithComponent("verification-service"),
	}
}

// ValidateTransactionWithVerification checks received + broken + missing against
// every line before anything changes, then books the collection, completes the
// transaction and, for a PARTIAL outcome, stores a discrepancy report and
// notifies staff once committed.
func (s *VerificationService) ValidateTransactionWithVerification(ctx context.Context, cmd ValidateTransactionCommand) (*ValidationResultDTO, error) {
	now := s.config.now()

	var (
		tx      *domain.Transaction
		summary *domain.DiscrepancySummary
		report  *domain.DiscrepancyReport
		mv      = newMovements(s.repos.Ledger, s.logger)
	)

	err := s.repos.UnitOfWork.Do(ctx, func(ctx context.Context) error {
		report = nil
		mv.reset()
		var err error
		tx, err = s.repos.Transactions.FindByID(ctx, cmd.TransactionID)
		if err != nil {
			return fmt.Errorf("failed to get transaction: %w", err)
		}
		if tx == nil {
			return domain.NewNotFoundError("transaction", cmd.TransactionID)
		}
		if tx.Type != domain.TransactionTypeCollect {
			return &domain.InvalidStateError{Resource: "transaction", ID: tx.ID, Current: string(tx.Type), Required: string(domain.TransactionTypeCollect)}
		}

		summary, err = tx.ApplyVerification(cmd.ItemVerifications, cmd.SetVerifications, cmd.Notes, cmd.ValidatedBy, now)
		if err != nil {
			return err
		}

		if err := applyCollection(ctx, mv, newSetCache(s.repos.Sets), tx); err != nil {
			return err
		}

		if err := s.repos.Transactions.Save(ctx, tx); err != nil {
			return fmt.Errorf("failed to save transaction: %w", err)
		}

		if summary.Outcome() == domain.ValidationStatusPartial {
			report, err = recordDiscrepancy(ctx, s.repos, s.config, tx, summary, cmd.Notes, cmd.ValidatedBy, now)
			if err != nil {
				return err
			}
		}

		if err := eventsOf(s.repos).Record(ctx, "Transaction", tx.ID, tx.GetDomainEvents()); err != nil {
			return err
		}
		tx.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, reject(s.metrics, s.logger, "validateTransaction", err)
	}

	mv.flush(s.metrics)
	s.metrics.RecordTransaction(string(tx.Type), string(tx.Status))
	s.logger.Audit(ctx, "verify", "transaction", tx.ID, cmd.ValidatedBy, map[string]any{
		"validationStatus": tx.ValidationStatus,
		"totalExpected":    summary.TotalExpected,
		"totalBroken":      summary.TotalBroken,
		"totalMissing":     summary.TotalMissing,
	})

	result := &ValidationResultDTO{
		TransactionID:      tx.ID,
		ValidationStatus:   string(tx.ValidationStatus),
		DiscrepancySummary: ToDiscrepancySummaryDTO(summary),
	}
	if report != nil {
		result.ReportID = report.ID
		s.metrics.RecordDiscrepancy(summary.TotalBroken, summary.TotalMissing)
		notifyDiscrepancy(ctx, s.notifier, report, s.metrics, s.logger)
	}
	return result, nil
}

// ValidateTransaction accepts a pending collection exactly as declared.
//
// Deprecated: use ValidateTransactionWithVerification. Declared broken and
// missing counts are booked and reported through the same code.
func (s *VerificationService) ValidateTransaction(ctx context.Context, transactionID, validatedBy string) (*ValidationResultDTO, error) {
	return s.ValidateTransactionWithVerification(ctx, ValidateTransactionCommand{
		TransactionID: transactionID,
		ValidatedBy:   validatedBy,
	})
}

// GetDiscrepancies returns the reports stored for a transaction
func (s *VerificationService) GetDiscrepancies(ctx context.Context, transactionID string) ([]DiscrepancyReportDTO, error) {
	reports, err := s.repos.Discrepancies.FindByTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get discrepancy reports: %w", err)
	}
	out := make([]DiscrepancyReportDTO, 0, len(reports))
	for _, r := range reports {
		out = append(out, *ToDiscrepancyReportDTO(r))
	}
	return out, nil
}

// ListRecentDiscrepancies returns the newest reports across all units
func (s *VerificationService) ListRecentDiscrepancies(ctx context.Context, limit int) ([]DiscrepancyReportDTO, error) {
	if limit < 0 {
		return nil, apperrors.ErrValidation("limit must not be negative")
	}
	reports, err := s.repos.Discrepancies.FindRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list discrepancy reports: %w", err)
	}
	out := make([]DiscrepancyReportDTO, 0, len(reports))
	for _, r := range reports {
		out = append(out, *ToDiscrepancyReportDTO(r))
	}
	return out, nil
}
