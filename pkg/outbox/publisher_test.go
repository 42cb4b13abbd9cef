package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/pkg/cloudevents"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	mu     sync.Mutex
	events map[string]*OutboxEvent
	pruned int
}

func newFakeRepository(events ...*OutboxEvent) *fakeRepository {
	r := &fakeRepository{events: map[string]*OutboxEvent{}}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *fakeRepository) Save(_ context.Context, event *OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.ID] = event
	return nil
}

func (r *fakeRepository) SaveAll(ctx context.Context, events []*OutboxEvent) error {
	for _, e := range events {
		_ = r.Save(ctx, e)
	}
	return nil
}

func (r *fakeRepository) FindUnpublished(_ context.Context, limit int) ([]*OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*OutboxEvent
	for _, e := range r.events {
		if e.ShouldRetry() && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeRepository) MarkPublished(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.events[id].PublishedAt = &now
	return nil
}

func (r *fakeRepository) IncrementRetry(_ context.Context, id, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[id].RetryCount++
	r.events[id].LastError = msg
	return nil
}

func (r *fakeRepository) DeletePublished(_ context.Context, _ time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruned++
	return 0, nil
}

func (r *fakeRepository) FindByAggregateID(_ context.Context, _ string) ([]*OutboxEvent, error) {
	return nil, nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEvent(ctx context.Context, topic string, event *cloudevents.CSSDCloudEvent) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func newEvent(t *testing.T, aggregateID string) *OutboxEvent {
	t.Helper()
	ce := cloudevents.NewEventFactory(cloudevents.SourceCSSDService).
		CreateEvent(context.Background(), cloudevents.TransactionCreated, "transaction/"+aggregateID, map[string]string{"id": aggregateID})
	event, err := NewOutboxEventFromCloudEvent(aggregateID, "transaction", "cssd.transactions.events", ce)
	require.NoError(t, err)
	return event
}

func TestPublisherProcessOnce(t *testing.T) {
	ok := newEvent(t, "TX-1")
	failing := newEvent(t, "TX-2")
	repo := newFakeRepository(ok, failing)

	producer := new(mockPublisher)
	producer.On("PublishEvent", mock.Anything, "cssd.transactions.events", mock.MatchedBy(func(e *cloudevents.CSSDCloudEvent) bool {
		return e.Subject == "transaction/TX-1"
	})).Return(nil)
	producer.On("PublishEvent", mock.Anything, "cssd.transactions.events", mock.MatchedBy(func(e *cloudevents.CSSDCloudEvent) bool {
		return e.Subject == "transaction/TX-2"
	})).Return(errors.New("broker down"))

	p := NewPublisher(repo, producer, logging.Discard(), nil, &PublisherConfig{PollInterval: time.Hour, BatchSize: 10, Retention: time.Hour})
	p.ProcessOnce(context.Background())

	assert.True(t, ok.IsPublished())
	assert.False(t, failing.IsPublished())
	assert.Equal(t, 1, failing.RetryCount)
	assert.Contains(t, failing.LastError, "broker down")
	assert.Equal(t, PublisherStats{Published: 1, Failed: 1}, p.Stats())
	assert.Equal(t, 1, repo.pruned)
	producer.AssertExpectations(t)
}

func TestPublisherStartStop(t *testing.T) {
	p := NewPublisher(newFakeRepository(), new(mockPublisher), logging.Discard(), nil, &PublisherConfig{PollInterval: time.Millisecond, BatchSize: 1})

	require.NoError(t, p.Start(context.Background()))
	assert.True(t, p.IsRunning())
	assert.Error(t, p.Start(context.Background()))
	require.NoError(t, p.Stop())
	assert.False(t, p.IsRunning())
	assert.Error(t, p.Stop())
}

func TestPublisherParksExhaustedEvent(t *testing.T) {
	event := newEvent(t, "TX-3")
	event.MaxRetries = 2
	repo := newFakeRepository(event)

	producer := new(mockPublisher)
	producer.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	p := NewPublisher(repo, producer, logging.Discard(), nil, &PublisherConfig{PollInterval: time.Hour, BatchSize: 10})
	p.ProcessOnce(context.Background())
	p.ProcessOnce(context.Background())
	p.ProcessOnce(context.Background())

	assert.Equal(t, 2, event.RetryCount)
	assert.False(t, event.ShouldRetry())
	producer.AssertNumberOfCalls(t, "PublishEvent", 2)
	assert.Zero(t, repo.pruned, "zero retention never prunes")
}

func TestOutboxEventRoundTripsCloudEvent(t *testing.T) {
	event := newEvent(t, "TX-9")
	ce, err := event.ToCloudEvent()
	require.NoError(t, err)
	assert.Equal(t, cloudevents.TransactionCreated, ce.Type)
	assert.Equal(t, "1.0", ce.SpecVersion)
	assert.True(t, event.ShouldRetry())
}
