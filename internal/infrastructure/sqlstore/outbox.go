package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/pkg/outbox"
)

// OutboxRepository implements outbox.Repository on the outbox_events table
type OutboxRepository struct {
	store *Store
}

var _ outbox.Repository = (*OutboxRepository)(nil)

const outboxColumns = `id, aggregate_id, aggregate_type, event_type, topic, payload, created_at, published_at, retry_count, last_error, max_retries`

func (r *OutboxRepository) Save(ctx context.Context, event *outbox.OutboxEvent) error {
	_, err := r.store.exec(ctx, "outbox_events", "insert",
		`INSERT INTO outbox_events (`+outboxColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.AggregateID, event.AggregateType, event.EventType, event.Topic, string(event.Payload),
		nanos(event.CreatedAt), nullNanos(event.PublishedAt), event.RetryCount, event.LastError, event.MaxRetries)
	if err != nil {
		return fmt.Errorf("failed to save outbox event: %w", err)
	}
	return nil
}

// SaveAll inserts every event in one unit of work
func (r *OutboxRepository) SaveAll(ctx context.Context, events []*outbox.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.store.Do(ctx, func(ctx context.Context) error {
		for _, e := range events {
			if err := r.Save(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *OutboxRepository) list(ctx context.Context, query string, args ...any) ([]*outbox.OutboxEvent, error) {
	rows, err := r.store.query(ctx, "outbox_events", query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*outbox.OutboxEvent, 0)
	for rows.Next() {
		var e outbox.OutboxEvent
		var payload string
		var created int64
		var published sql.NullInt64
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.Topic, &payload,
			&created, &published, &e.RetryCount, &e.LastError, &e.MaxRetries); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		e.Payload = []byte(payload)
		e.CreatedAt = fromNanos(created)
		e.PublishedAt = fromNullNanos(published)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// FindUnpublished retrieves unpublished events that still have retries left, oldest first
func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	q := `SELECT ` + outboxColumns + ` FROM outbox_events WHERE published_at IS NULL AND retry_count < max_retries ORDER BY created_at, id`
	if limit > 0 {
		return r.list(ctx, q+` LIMIT ?`, limit)
	}
	return r.list(ctx, q)
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	_, err := r.store.exec(ctx, "outbox_events", "update",
		`UPDATE outbox_events SET published_at = ? WHERE id = ?`, nanos(time.Now()), eventID)
	if err != nil {
		return fmt.Errorf("failed to mark event as published: %w", err)
	}
	return nil
}

func (r *OutboxRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	_, err := r.store.exec(ctx, "outbox_events", "update",
		`UPDATE outbox_events SET retry_count = retry_count + 1, last_error = ? WHERE id = ?`, errorMsg, eventID)
	if err != nil {
		return fmt.Errorf("failed to increment retry count: %w", err)
	}
	return nil
}

func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) (int64, error) {
	n, err := r.store.exec(ctx, "outbox_events", "delete",
		`DELETE FROM outbox_events WHERE published_at IS NOT NULL AND published_at < ?`, nanos(before))
	if err != nil {
		return 0, fmt.Errorf("failed to delete published events: %w", err)
	}
	return n, nil
}

func (r *OutboxRepository) FindByAggregateID(ctx context.Context, aggregateID string) ([]*outbox.OutboxEvent, error) {
	return r.list(ctx, `SELECT `+outboxColumns+` FROM outbox_events WHERE aggregate_id = ? ORDER BY created_at, id`, aggregateID)
}
