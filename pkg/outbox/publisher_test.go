package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mets-platform/mets/pkg/cloudevents"
	"github.com/mets-platform/mets/pkg/logging"
	metstest "github.com/mets-platform/mets/pkg/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu     sync.Mutex
	events []*OutboxEvent
}

func (r *fakeRepo) SaveAll(_ context.Context, events []*OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *fakeRepo) FindUnpublished(_ context.Context, limit int) ([]*OutboxEvent, error) {
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

func (r *fakeRepo) get(id string) *OutboxEvent {
	for _, e := range r.events {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (r *fakeRepo) MarkPublished(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.get(id).PublishedAt = &now
	return nil
}

func (r *fakeRepo) IncrementRetry(_ context.Context, id, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.get(id)
	e.RetryCount++
	e.LastError = msg
	return nil
}

func (r *fakeRepo) publishedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.IsPublished() {
			n++
		}
	}
	return n
}

func (r *fakeRepo) DeletePublished(context.Context, time.Duration) (int64, error) { return 0, nil }

func (r *fakeRepo) FindByAggregateID(context.Context, string) ([]*OutboxEvent, error) {
	return nil, nil
}

type fakeProducer struct {
	fail      bool
	published []*cloudevents.METSCloudEvent
	topics    []string
}

func (p *fakeProducer) PublishEvent(_ context.Context, topic string, event *cloudevents.METSCloudEvent) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.topics = append(p.topics, topic)
	p.published = append(p.published, event)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func newEvent(t *testing.T, orderID string) *OutboxEvent {
	t.Helper()
	ce := cloudevents.NewEventFactory(cloudevents.SourceOrders).
		CreateOrderCanceledEvent(context.Background(), cloudevents.OrderCanceledData{OrderID: orderID, Reason: "test"})
	e, err := NewOutboxEventFromCloudEvent(orderID, "Order", "mets.orders.events", ce)
	require.NoError(t, err)
	return e
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	repo := &fakeRepo{}
	require.NoError(t, repo.SaveAll(context.Background(), []*OutboxEvent{newEvent(t, "ORD-1"), newEvent(t, "ORD-2")}))
	producer := &fakeProducer{}
	p := NewPublisher(repo, producer, logging.NewNop(), nil)

	published := p.ProcessBatch(context.Background())

	assert.Equal(t, 2, published)
	require.Len(t, producer.published, 2)
	assert.Equal(t, cloudevents.OrderCanceled, producer.published[0].Type)
	assert.Equal(t, "ORD-1", producer.published[0].OrderID)
	assert.Equal(t, []string{"mets.orders.events", "mets.orders.events"}, producer.topics)
	for _, e := range repo.events {
		assert.True(t, e.IsPublished())
	}
	assert.Equal(t, 0, p.ProcessBatch(context.Background()))
	assert.Equal(t, 2, p.Stats()["published"])
}

func TestProcessBatchRecordsRetries(t *testing.T) {
	repo := &fakeRepo{}
	event := newEvent(t, "ORD-1")
	event.MaxRetries = 2
	require.NoError(t, repo.SaveAll(context.Background(), []*OutboxEvent{event}))
	p := NewPublisher(repo, &fakeProducer{fail: true}, logging.NewNop(), nil)

	p.ProcessBatch(context.Background())
	p.ProcessBatch(context.Background())
	p.ProcessBatch(context.Background())

	assert.Equal(t, 2, event.RetryCount)
	assert.False(t, event.IsPublished())
	assert.Contains(t, event.LastError, "broker down")
	assert.Equal(t, 2, p.Stats()["failed"])
}

func TestStartStop(t *testing.T) {
	p := NewPublisher(&fakeRepo{}, &fakeProducer{}, logging.NewNop(), &PublisherConfig{PollInterval: 10 * time.Millisecond, BatchSize: 10})

	require.NoError(t, p.Start(context.Background()))
	assert.Error(t, p.Start(context.Background()))
	assert.True(t, p.IsRunning())

	require.NoError(t, p.Stop())
	assert.False(t, p.IsRunning())
}

func TestRunningPublisherDrainsOutbox(t *testing.T) {
	repo := &fakeRepo{}
	require.NoError(t, repo.SaveAll(context.Background(), []*OutboxEvent{newEvent(t, "ORD-1"), newEvent(t, "ORD-2")}))
	p := NewPublisher(repo, &fakeProducer{}, logging.NewNop(), &PublisherConfig{PollInterval: 5 * time.Millisecond, BatchSize: 1})

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	metstest.AssertEventually(t, func() bool { return repo.publishedCount() == 2 }, time.Second, "outbox not drained")
}
