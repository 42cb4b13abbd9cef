package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/application"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/cloudevents"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/contracts/asyncapi"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/kafka"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEvent(ctx context.Context, topic string, event *cloudevents.CSSDCloudEvent) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func partialReport() *domain.DiscrepancyReport {
	return &domain.DiscrepancyReport{
		ID:            "rep-1",
		TransactionID: "TX-9",
		UnitID:        "icu",
		Summary: domain.DiscrepancySummary{
			TotalExpected: 7,
			TotalReceived: 5,
			TotalBroken:   1,
			TotalMissing:  1,
			Lines: []domain.DiscrepancyLine{
				{ItemType: domain.ItemTypeSingle, ItemID: "A", Expected: 4, Received: 2, Broken: 1, Missing: 1},
				{ItemType: domain.ItemTypeSingle, ItemID: "B", Expected: 3, Received: 3},
			},
		},
		ReportedBy: "nurse-1",
		CreatedAt:  time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestKafkaNotifierDiscrepancy(t *testing.T) {
	pub := &mockPublisher{}
	var sent *cloudevents.CSSDCloudEvent
	pub.On("PublishEvent", mock.Anything, kafka.Topics.NotificationEvents, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(2).(*cloudevents.CSSDCloudEvent) }).
		Return(nil).Once()

	n := NewKafkaNotifier(pub, cloudevents.NewEventFactory(cloudevents.SourceCSSDService), logging.Discard())
	require.NoError(t, n.NotifyDiscrepancy(context.Background(), partialReport()))
	pub.AssertExpectations(t)

	require.NotNil(t, sent)
	assert.Equal(t, cloudevents.DiscrepancyReported, sent.Type)
	assert.Equal(t, "transaction/TX-9", sent.Subject)
	assert.Equal(t, "icu", sent.UnitID)
	assert.Equal(t, "TX-9", sent.CorrelationID)

	data, ok := sent.Data.(cloudevents.DiscrepancyReportedData)
	require.True(t, ok)
	assert.Equal(t, "rep-1", data.ReportID)
	assert.Equal(t, 1, data.TotalBroken)
	assert.Equal(t, 1, data.TotalMissing)
	require.Len(t, data.Lines, 1, "only lines with a discrepancy are sent")
	assert.Equal(t, "A", data.Lines[0].ItemID)
}

func TestKafkaNotifierOverdue(t *testing.T) {
	pub := &mockPublisher{}
	var sent *cloudevents.CSSDCloudEvent
	pub.On("PublishEvent", mock.Anything, kafka.Topics.NotificationEvents, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(2).(*cloudevents.CSSDCloudEvent) }).
		Return(nil).Once()

	n := NewKafkaNotifier(pub, cloudevents.NewEventFactory(cloudevents.SourceCSSDWorker), logging.Discard())
	detected := time.Date(2025, 3, 2, 6, 0, 0, 0, time.UTC)
	n.clock = func() time.Time { return detected }

	err := n.NotifyOverdue(context.Background(), application.UnitOverdueDTO{
		UnitID:       "icu",
		UnitName:     "ICU",
		OverdueCount: 5,
		Instruments:  []application.OverdueInstrumentDTO{{ItemID: "A", Remaining: 3}, {ItemID: "B", Remaining: 2}},
	})
	require.NoError(t, err)

	require.NotNil(t, sent)
	assert.Equal(t, cloudevents.OverdueDetected, sent.Type)
	assert.Equal(t, cloudevents.SourceCSSDWorker, sent.Source)
	data := sent.Data.(cloudevents.OverdueDetectedData)
	assert.Equal(t, 5, data.OverdueCount)
	assert.Equal(t, 2, data.Lines)
	assert.Equal(t, detected, data.DetectedAt)
}

func TestKafkaNotifierWrapsPublishError(t *testing.T) {
	pub := &mockPublisher{}
	boom := errors.New("broker down")
	pub.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything).Return(boom)

	n := NewKafkaNotifier(pub, cloudevents.NewEventFactory(cloudevents.SourceCSSDService), logging.Discard())
	err := n.NotifyDiscrepancy(context.Background(), partialReport())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "TX-9")
}

func TestKafkaNotifierBehindCircuitBreaker(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	breaker := kafka.NewCircuitBreakerProducer(pub, nil, nil)
	n := NewKafkaNotifier(breaker, cloudevents.NewEventFactory(cloudevents.SourceCSSDService), logging.Discard())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := n.NotifyDiscrepancy(ctx, partialReport())
		require.Error(t, err)
		assert.NotErrorIs(t, err, resilience.ErrCircuitOpen)
	}

	err := n.NotifyDiscrepancy(ctx, partialReport())
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	pub.AssertNumberOfCalls(t, "PublishEvent", 5)
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := NewLogNotifier(logging.Discard())
	assert.NoError(t, n.NotifyDiscrepancy(context.Background(), partialReport()))
	assert.NoError(t, n.NotifyOverdue(context.Background(), application.UnitOverdueDTO{UnitID: "icu"}))
}

func TestNotificationsMatchContract(t *testing.T) {
	validator, err := asyncapi.NewEventValidator("../../../api/asyncapi.yaml")
	require.NoError(t, err)

	pub := &mockPublisher{}
	var sent []*cloudevents.CSSDCloudEvent
	pub.On("PublishEvent", mock.Anything, kafka.Topics.NotificationEvents, mock.Anything).
		Run(func(args mock.Arguments) { sent = append(sent, args.Get(2).(*cloudevents.CSSDCloudEvent)) }).
		Return(nil)

	n := NewKafkaNotifier(pub, cloudevents.NewEventFactory(cloudevents.SourceCSSDService), logging.Discard())
	ctx := context.Background()
	require.NoError(t, n.NotifyDiscrepancy(ctx, partialReport()))
	require.NoError(t, n.NotifyOverdue(ctx, application.UnitOverdueDTO{
		UnitID:       "icu",
		UnitName:     "ICU",
		OverdueCount: 3,
		Instruments:  []application.OverdueInstrumentDTO{{ItemID: "A", Remaining: 3}},
	}))

	require.Len(t, sent, 2)
	for _, event := range sent {
		payload, err := json.Marshal(event)
		require.NoError(t, err)
		assert.NoError(t, validator.ValidateEventJSON(payload), event.Type)
	}
}
