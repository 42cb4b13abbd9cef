package application

import (
	"context"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
)

// Notifier tells CSSD staff about things that need a human. Calls happen
// after the unit of work commits and their errors never fail the operation.
type Notifier interface {
	NotifyDiscrepancy(ctx context.Context, report *domain.DiscrepancyReport) error
	NotifyOverdue(ctx context.Context, unit UnitOverdueDTO) error
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, string, string, []domain.DomainEvent) error { return nil }

func eventsOf(repos domain.Repositories) domain.EventRecorder {
	if repos.Events == nil {
		return noopRecorder{}
	}
	return repos.Events
}
