package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mets-platform/mets/pkg/cloudevents"
	"github.com/mets-platform/mets/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() *cloudevents.METSCloudEvent {
	factory := cloudevents.NewEventFactory(cloudevents.SourceOrders)
	ctx := cloudevents.ContextWithCorrelationID(context.Background(), "corr-9")
	return factory.CreateOrderStatusChangedEvent(ctx, cloudevents.OrderStatusChangedData{
		OrderID:        "ORD-1",
		PreviousStatus: "planned",
		NewStatus:      "in_progress",
		ChangedAt:      time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
	})
}

func TestMessageRoundTrip(t *testing.T) {
	event := sampleEvent()

	msg, err := toMessage(event)
	require.NoError(t, err)
	assert.Equal(t, "order/ORD-1", string(msg.Key))

	parsed, err := ParseMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, event.ID, parsed.ID)
	assert.Equal(t, cloudevents.OrderStatusChanged, parsed.Type)
	assert.Equal(t, "corr-9", parsed.CorrelationID)
	assert.Equal(t, "ORD-1", parsed.OrderID)

	var data cloudevents.OrderStatusChangedData
	require.NoError(t, parsed.DecodeData(&data))
	assert.Equal(t, "in_progress", data.NewStatus)
}

func TestParseMessageHeadersOverrideBody(t *testing.T) {
	event := sampleEvent()
	msg, err := toMessage(event)
	require.NoError(t, err)

	for i, h := range msg.Headers {
		if h.Key == "ce-metscorrelationid" {
			msg.Headers[i].Value = []byte("from-header")
		}
	}

	parsed, err := ParseMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, "from-header", parsed.CorrelationID)
}

func TestDispatchPrefersExactHandler(t *testing.T) {
	c := NewConsumer(DefaultConfig(), logging.NewNop())
	var got []string

	c.Subscribe(Topics.OrdersEvents, cloudevents.OrderStatusChanged, func(ctx context.Context, e *cloudevents.METSCloudEvent) error {
		got = append(got, "exact")
		return nil
	})
	c.SubscribeAll(Topics.OrdersEvents, func(ctx context.Context, e *cloudevents.METSCloudEvent) error {
		got = append(got, "wildcard")
		return nil
	})

	require.NoError(t, c.dispatch(context.Background(), Topics.OrdersEvents, sampleEvent()))

	other := sampleEvent()
	other.Type = cloudevents.OrderCreated
	require.NoError(t, c.dispatch(context.Background(), Topics.OrdersEvents, other))

	assert.Equal(t, []string{"exact", "wildcard"}, got)
}

func TestDispatchUnknownTopic(t *testing.T) {
	c := NewConsumer(DefaultConfig(), nil)

	err := c.dispatch(context.Background(), "unknown", sampleEvent())
	assert.Error(t, err)
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) PublishEvent(context.Context, string, *cloudevents.METSCloudEvent) error {
	f.calls++
	return errors.New("broker unavailable")
}

func (f *failingPublisher) Close() error { return nil }

func TestCircuitBreakerProducerOpensOnRepeatedFailures(t *testing.T) {
	inner := &failingPublisher{}
	producer := NewCircuitBreakerProducer(inner, nil, nil)

	for i := 0; i < 5; i++ {
		assert.Error(t, producer.PublishEvent(context.Background(), Topics.OrdersEvents, sampleEvent()))
	}

	err := producer.PublishEvent(context.Background(), Topics.OrdersEvents, sampleEvent())
	assert.Error(t, err)
	assert.Equal(t, 5, inner.calls)
}
