// Package eventing turns domain events into CloudEvents stored in the outbox
package eventing

import (
	"context"
	"fmt"
	"strings"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/cloudevents"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/kafka"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/outbox"
)

// OutboxRecorder implements domain.EventRecorder on top of an outbox repository.
// It must be called with the unit of work's ctx so the rows commit with the aggregate.
type OutboxRecorder struct {
	repo    outbox.Repository
	factory *cloudevents.EventFactory
}

var _ domain.EventRecorder = (*OutboxRecorder)(nil)

// NewOutboxRecorder creates a recorder
func NewOutboxRecorder(repo outbox.Repository, factory *cloudevents.EventFactory) *OutboxRecorder {
	return &OutboxRecorder{repo: repo, factory: factory}
}

// Record converts events and saves them in one call
func (r *OutboxRecorder) Record(ctx context.Context, aggregateType, aggregateID string, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	subject := strings.ToLower(aggregateType) + "/" + aggregateID
	correlationID := logging.CorrelationIDFromContext(ctx)

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(events))
	for _, event := range events {
		cloudEvent := r.factory.CreateEvent(ctx, event.EventType(), subject, event)
		cloudEvent.Time = event.OccurredAt().UTC()
		cloudEvent.CorrelationID = correlationID
		if unitID := unitOf(event); unitID != "" {
			cloudEvent.UnitID = unitID
		}

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(aggregateID, aggregateType, kafka.TopicForEvent(cloudEvent.Type), cloudEvent)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if err := r.repo.SaveAll(ctx, outboxEvents); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}

func unitOf(event domain.DomainEvent) string {
	switch e := event.(type) {
	case *domain.TransactionCreatedEvent:
		return e.UnitID
	case *domain.TransactionValidatedEvent:
		return e.UnitID
	case *domain.DiscrepancyReportedEvent:
		return e.UnitID
	case *domain.PackCreatedEvent:
		return e.TargetUnitID
	case *domain.OverdueDetectedEvent:
		return e.UnitID
	default:
		return ""
	}
}
