package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for CSSD domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// Source returns the source the factory stamps on its events
func (f *EventFactory) Source() string {
	return f.source
}

// CreateEvent creates a new CSSDCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *CSSDCloudEvent {
	return &CSSDCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
	}
}

// CreateEventWithCorrelation creates an event with correlation tracking
func (f *EventFactory) CreateEventWithCorrelation(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
	correlationID string,
	workflowID string,
) *CSSDCloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.CorrelationID = correlationID
	event.WorkflowID = workflowID
	return event
}

// CreateDiscrepancyReportedEvent creates a DiscrepancyReported event
func (f *EventFactory) CreateDiscrepancyReportedEvent(ctx context.Context, data DiscrepancyReportedData) *CSSDCloudEvent {
	event := f.CreateEvent(ctx, DiscrepancyReported, "transaction/"+data.TransactionID, data)
	event.UnitID = data.UnitID
	return event
}

// CreateOverdueDetectedEvent creates an OverdueDetected event
func (f *EventFactory) CreateOverdueDetectedEvent(ctx context.Context, data OverdueDetectedData) *CSSDCloudEvent {
	event := f.CreateEvent(ctx, OverdueDetected, "unit/"+data.UnitID, data)
	event.UnitID = data.UnitID
	return event
}

// WithCorrelationID sets the correlation extension and returns the event
func (e *CSSDCloudEvent) WithCorrelationID(id string) *CSSDCloudEvent {
	e.CorrelationID = id
	return e
}
