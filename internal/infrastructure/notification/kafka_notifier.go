// Package notification delivers staff alerts for discrepancies and overdue
// loans. Alerts go to the notifications topic and are separate from the
// ledger events relayed by the outbox.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/application"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/cloudevents"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/kafka"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
)

// KafkaNotifier publishes alerts as CloudEvents
type KafkaNotifier struct {
	publisher kafka.EventPublisher
	factory   *cloudevents.EventFactory
	topic     string
	clock     func() time.Time
	logger    *logging.Logger
}

// NewKafkaNotifier creates a notifier publishing through publisher, normally
// the circuit breaker producer
func NewKafkaNotifier(publisher kafka.EventPublisher, factory *cloudevents.EventFactory, logger *logging.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		publisher: publisher,
		factory:   factory,
		topic:     kafka.Topics.NotificationEvents,
		clock:     func() time.Time { return time.Now().UTC() },
		logger:    logger.WithComponent("kafka-notifier"),
	}
}

// NotifyDiscrepancy sends the broken and missing lines of a report
func (n *KafkaNotifier) NotifyDiscrepancy(ctx context.Context, report *domain.DiscrepancyReport) error {
	lines := make([]cloudevents.DiscrepancyLineData, 0, len(report.Summary.Lines))
	for _, l := range report.Summary.DiscrepantLines() {
		lines = append(lines, cloudevents.DiscrepancyLineData{
			ItemType: string(l.ItemType),
			ItemID:   l.ItemID,
			Expected: l.Expected,
			Received: l.Received,
			Broken:   l.Broken,
			Missing:  l.Missing,
			Notes:    l.Notes,
		})
	}

	event := n.factory.CreateDiscrepancyReportedEvent(ctx, cloudevents.DiscrepancyReportedData{
		ReportID:      report.ID,
		TransactionID: report.TransactionID,
		UnitID:        report.UnitID,
		TotalBroken:   report.Summary.TotalBroken,
		TotalMissing:  report.Summary.TotalMissing,
		Lines:         lines,
		ReportedBy:    report.ReportedBy,
		ReportedAt:    report.CreatedAt,
	})
	if event.CorrelationID == "" {
		event.WithCorrelationID(report.TransactionID)
	}

	if err := n.publisher.PublishEvent(ctx, n.topic, event); err != nil {
		return fmt.Errorf("failed to publish discrepancy alert for %s: %w", report.TransactionID, err)
	}
	n.logger.WithContext(ctx).Info("Discrepancy alert sent",
		"reportId", report.ID, "transactionId", report.TransactionID, "lines", len(lines))
	return nil
}

// NotifyOverdue sends one unit's overdue summary
func (n *KafkaNotifier) NotifyOverdue(ctx context.Context, unit application.UnitOverdueDTO) error {
	event := n.factory.CreateOverdueDetectedEvent(ctx, cloudevents.OverdueDetectedData{
		UnitID:       unit.UnitID,
		UnitName:     unit.UnitName,
		OverdueCount: unit.OverdueCount,
		Lines:        len(unit.Instruments),
		DetectedAt:   n.clock(),
	})

	if err := n.publisher.PublishEvent(ctx, n.topic, event); err != nil {
		return fmt.Errorf("failed to publish overdue alert for unit %s: %w", unit.UnitID, err)
	}
	n.logger.WithContext(ctx).Info("Overdue alert sent", "unitId", unit.UnitID, "overdueCount", unit.OverdueCount)
	return nil
}
