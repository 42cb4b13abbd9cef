package notification

import (
	"context"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/application"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
)

// LogNotifier writes alerts to the audit log. Used when no broker is configured.
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithComponent("log-notifier")}
}

// NotifyDiscrepancy logs the report as an audit entry
func (n *LogNotifier) NotifyDiscrepancy(ctx context.Context, report *domain.DiscrepancyReport) error {
	lines := make([]map[string]any, 0, len(report.Summary.Lines))
	for _, l := range report.Summary.DiscrepantLines() {
		lines = append(lines, map[string]any{
			"itemType": l.ItemType,
			"itemId":   l.ItemID,
			"broken":   l.Broken,
			"missing":  l.Missing,
		})
	}
	n.logger.Audit(ctx, "discrepancy_reported", "transaction", report.TransactionID, report.ReportedBy, map[string]any{
		"reportId":     report.ID,
		"unitId":       report.UnitID,
		"totalBroken":  report.Summary.TotalBroken,
		"totalMissing": report.Summary.TotalMissing,
		"lines":        lines,
	})
	return nil
}

// NotifyOverdue logs the unit's overdue loans
func (n *LogNotifier) NotifyOverdue(ctx context.Context, unit application.UnitOverdueDTO) error {
	n.logger.Event(ctx, "overdue_detected", map[string]any{
		"unitId":       unit.UnitID,
		"unitName":     unit.UnitName,
		"overdueCount": unit.OverdueCount,
		"lines":        len(unit.Instruments),
	})
	return nil
}

var (
	_ application.Notifier = (*KafkaNotifier)(nil)
	_ application.Notifier = (*LogNotifier)(nil)
)
