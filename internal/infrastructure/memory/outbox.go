package memory

import (
	"context"
	"sort"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/pkg/outbox"
)

// OutboxRepository keeps outbox rows in the same state as the ledger, so
// events commit or roll back with the operation that raised them.
type OutboxRepository struct {
	store *Store
}

var _ outbox.Repository = (*OutboxRepository)(nil)

func cloneOutboxEvent(e outbox.OutboxEvent) *outbox.OutboxEvent {
	e.Payload = append([]byte(nil), e.Payload...)
	if e.PublishedAt != nil {
		at := *e.PublishedAt
		e.PublishedAt = &at
	}
	return &e
}

func (r *OutboxRepository) Save(ctx context.Context, event *outbox.OutboxEvent) error {
	return r.SaveAll(ctx, []*outbox.OutboxEvent{event})
}

func (r *OutboxRepository) SaveAll(ctx context.Context, events []*outbox.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.store.write(ctx, func(st *state) error {
		for _, e := range events {
			st.outbox[e.ID] = *cloneOutboxEvent(*e)
		}
		return nil
	})
}

func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	st := r.store.view(ctx)
	out := make([]*outbox.OutboxEvent, 0)
	for _, e := range st.outbox {
		if e.ShouldRetry() {
			out = append(out, cloneOutboxEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	return r.update(ctx, eventID, func(e *outbox.OutboxEvent) {
		now := time.Now().UTC()
		e.PublishedAt = &now
	})
}

func (r *OutboxRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	return r.update(ctx, eventID, func(e *outbox.OutboxEvent) {
		e.RetryCount++
		e.LastError = errorMsg
	})
}

func (r *OutboxRepository) update(ctx context.Context, eventID string, fn func(e *outbox.OutboxEvent)) error {
	return r.store.write(ctx, func(st *state) error {
		e, ok := st.outbox[eventID]
		if !ok {
			return nil
		}
		fn(&e)
		st.outbox[eventID] = e
		return nil
	})
}

func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := r.store.write(ctx, func(st *state) error {
		for id, e := range st.outbox {
			if e.PublishedAt != nil && e.PublishedAt.Before(before) {
				delete(st.outbox, id)
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}

func (r *OutboxRepository) FindByAggregateID(ctx context.Context, aggregateID string) ([]*outbox.OutboxEvent, error) {
	st := r.store.view(ctx)
	out := make([]*outbox.OutboxEvent, 0)
	for _, e := range st.outbox {
		if e.AggregateID == aggregateID {
			out = append(out, cloneOutboxEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
