package application

import (
	"context"
	"fmt"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
)

const notifyTimeout = 5 * time.Second

// recordDiscrepancy stores the report for a PARTIAL verification inside the current unit of work
func recordDiscrepancy(ctx context.Context, repos domain.Repositories, cfg *Config, tx *domain.Transaction, summary *domain.DiscrepancySummary, notes, by string, now time.Time) (*domain.DiscrepancyReport, error) {
	report := domain.NewDiscrepancyReport(cfg.id(), tx, summary, notes, by, now)
	if err := repos.Discrepancies.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save discrepancy report: %w", err)
	}
	event := &domain.DiscrepancyReportedEvent{
		ReportID:      report.ID,
		TransactionID: tx.ID,
		UnitID:        tx.UnitID,
		TotalBroken:   summary.TotalBroken,
		TotalMissing:  summary.TotalMissing,
		Lines:         report.Summary.Lines,
		ReportedBy:    by,
		ReportedAt:    now,
	}
	if err := eventsOf(repos).Record(ctx, "DiscrepancyReport", report.ID, []domain.DomainEvent{event}); err != nil {
		return nil, err
	}
	return report, nil
}

// notifyDiscrepancy sends the report to staff. It never fails the caller.
func notifyDiscrepancy(ctx context.Context, notifier Notifier, report *domain.DiscrepancyReport, m *metrics.Metrics, logger *logging.Logger) {
	if notifier == nil || report == nil {
		return
	}
	nctx, cancel := detached(ctx, notifyTimeout)
	defer cancel()

	if err := notifier.NotifyDiscrepancy(nctx, report); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("Failed to send discrepancy notification",
			"transactionId", report.TransactionID, "reportId", report.ID)
		m.RecordNotificationFailure("discrepancy")
	}
}

// notifyOverdue sends one unit's overdue list to staff. It never fails the caller.
func notifyOverdue(ctx context.Context, notifier Notifier, unit UnitOverdueDTO, m *metrics.Metrics, logger *logging.Logger) {
	if notifier == nil {
		return
	}
	nctx, cancel := detached(ctx, notifyTimeout)
	defer cancel()

	if err := notifier.NotifyOverdue(nctx, unit); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("Failed to send overdue notification", "unitId", unit.UnitID)
		m.RecordNotificationFailure("overdue")
	}
}

// applyCollection books every line of a collection whose counts are final
func applyCollection(ctx context.Context, mv *movements, sets *setCache, tx *domain.Transaction) error {
	for _, l := range tx.Items {
		if err := mv.collect(ctx, l.InstrumentID, l.Good(), l.BrokenCount, l.MissingCount, tx.UnitID); err != nil {
			return err
		}
	}
	for _, l := range tx.SetItems {
		set, err := sets.get(ctx, l.SetID)
		if err != nil {
			return err
		}
		for _, c := range set.Items {
			good, broken, missing := c.Quantity*l.Good(), c.Quantity*l.BrokenCount, c.Quantity*l.MissingCount
			if good+broken+missing == 0 {
				continue
			}
			if err := mv.collect(ctx, c.InstrumentID, good, broken, missing, tx.UnitID); err != nil {
				return err
			}
		}
	}
	return nil
}
