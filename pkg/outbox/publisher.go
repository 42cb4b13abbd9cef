package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/pkg/kafka"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
)

// PublisherConfig holds configuration for the outbox publisher
type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// Retention is how long published events are kept. Zero keeps them forever.
	Retention time.Duration
}

// DefaultPublisherConfig polls every second and keeps published events a week
func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		PollInterval: time.Second,
		BatchSize:    100,
		Retention:    7 * 24 * time.Hour,
	}
}

// PublisherStats counts relay outcomes since the publisher was created
type PublisherStats struct {
	Published int64
	Failed    int64
}

// Publisher relays outbox events to Kafka in creation order. An event that
// fails MaxRetries times stays in the outbox as parked.
type Publisher struct {
	repo     Repository
	producer kafka.EventPublisher
	logger   *logging.Logger
	metrics  *metrics.Metrics
	config   PublisherConfig

	published atomic.Int64
	failed    atomic.Int64

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// NewPublisher creates a publisher. A nil config uses DefaultPublisherConfig; m may be nil.
func NewPublisher(repo Repository, producer kafka.EventPublisher, logger *logging.Logger, m *metrics.Metrics, config *PublisherConfig) *Publisher {
	if config == nil {
		config = DefaultPublisherConfig()
	}
	return &Publisher{
		repo:     repo,
		producer: producer,
		logger:   logger.WithComponent("outbox-publisher"),
		metrics:  m,
		config:   *config,
	}
}

// Start runs the polling loop until Stop is called or ctx ends
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return errors.New("publisher already running")
	}
	p.stop = make(chan struct{})
	p.stopped = make(chan struct{})

	p.logger.Info("Starting outbox publisher", "interval", p.config.PollInterval, "batchSize", p.config.BatchSize)
	go p.run(ctx, p.stop, p.stopped)
	return nil
}

// Stop ends the polling loop after the batch in flight
func (p *Publisher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop == nil {
		return errors.New("publisher not running")
	}
	close(p.stop)
	<-p.stopped
	p.stop, p.stopped = nil, nil

	stats := p.Stats()
	p.logger.Info("Outbox publisher stopped", "published", stats.Published, "failed", stats.Failed)
	return nil
}

// IsRunning reports whether the polling loop is active
func (p *Publisher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

// Stats returns the relay counters
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{Published: p.published.Load(), Failed: p.failed.Load()}
}

func (p *Publisher) run(ctx context.Context, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.ProcessOnce(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ProcessOnce relays one batch of pending events and prunes old published ones
func (p *Publisher) ProcessOnce(ctx context.Context) {
	events, err := p.repo.FindUnpublished(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.WithError(err).Error("Failed to find unpublished events")
		return
	}
	if p.metrics != nil {
		p.metrics.SetOutboxPending(len(events))
	}

	for _, event := range events {
		p.relay(ctx, event)
	}

	if p.config.Retention > 0 {
		if _, err := p.repo.DeletePublished(ctx, time.Now().Add(-p.config.Retention)); err != nil {
			p.logger.WithError(err).Warn("Failed to prune published events")
		}
	}
}

func (p *Publisher) relay(ctx context.Context, event *OutboxEvent) {
	logger := p.logger.WithContext(ctx).WithFields(map[string]any{
		"eventId":     event.ID,
		"eventType":   event.EventType,
		"aggregateId": event.AggregateID,
	})

	start := time.Now()
	err := p.send(ctx, event)
	duration := time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordOutboxPublish(event.EventType, err == nil, duration)
	}

	if err == nil {
		p.published.Add(1)
		if err := p.repo.MarkPublished(ctx, event.ID); err != nil {
			logger.WithError(err).Error("Failed to mark event as published")
		}
		logger.Debug("Published event from outbox", "topic", event.Topic, "duration", duration)
		return
	}

	p.failed.Add(1)
	if p.metrics != nil {
		p.metrics.RecordOutboxRetry(event.EventType)
	}
	if err := p.repo.IncrementRetry(ctx, event.ID, err.Error()); err != nil {
		logger.WithError(err).Error("Failed to increment retry count")
	}
	if event.RetryCount+1 >= event.MaxRetries {
		logger.WithError(err).Error("Outbox event parked after exhausting retries", "retries", event.MaxRetries)
		return
	}
	logger.WithError(err).Warn("Failed to publish event, will retry", "retryCount", event.RetryCount+1)
}

func (p *Publisher) send(ctx context.Context, event *OutboxEvent) error {
	cloudEvent, err := event.ToCloudEvent()
	if err != nil {
		return fmt.Errorf("failed to convert to CloudEvent: %w", err)
	}
	if err := p.producer.PublishEvent(ctx, event.Topic, cloudEvent); err != nil {
		return fmt.Errorf("failed to publish to Kafka: %w", err)
	}
	return nil
}
