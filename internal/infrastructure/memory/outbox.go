package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mets-platform/mets/pkg/cloudevents"
	"github.com/mets-platform/mets/pkg/logging"
	"github.com/mets-platform/mets/pkg/outbox"
)

// OutboxRepository is an outbox.Repository kept in process memory
type OutboxRepository struct {
	mu     sync.Mutex
	events []*outbox.OutboxEvent
}

// NewOutboxRepository creates an empty outbox
func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{}
}

// SaveAll appends events in insertion order
func (r *OutboxRepository) SaveAll(_ context.Context, events []*outbox.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range events {
		copied := *e
		r.events = append(r.events, &copied)
	}
	return nil
}

// FindUnpublished returns the oldest events still eligible for publishing
func (r *OutboxRepository) FindUnpublished(_ context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*outbox.OutboxEvent
	for _, e := range r.events {
		if len(out) >= limit {
			break
		}
		if e.ShouldRetry() {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *OutboxRepository) find(eventID string) (*outbox.OutboxEvent, error) {
	for _, e := range r.events {
		if e.ID == eventID {
			return e, nil
		}
	}
	return nil, fmt.Errorf("outbox event %s not found", eventID)
}

// MarkPublished marks an event as published
func (r *OutboxRepository) MarkPublished(_ context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.find(eventID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	e.PublishedAt = &now
	return nil
}

// IncrementRetry increments the retry count and records the error
func (r *OutboxRepository) IncrementRetry(_ context.Context, eventID string, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.find(eventID)
	if err != nil {
		return err
	}
	e.RetryCount++
	e.LastError = errorMsg
	return nil
}

// DeletePublished removes events published before now minus olderThan
func (r *OutboxRepository) DeletePublished(_ context.Context, olderThan time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	kept := r.events[:0]
	var deleted int64
	for _, e := range r.events {
		if e.PublishedAt != nil && e.PublishedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
	return deleted, nil
}

// FindByAggregateID returns all events for an aggregate, oldest first
func (r *OutboxRepository) FindByAggregateID(_ context.Context, aggregateID string) ([]*outbox.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*outbox.OutboxEvent
	for _, e := range r.events {
		if e.AggregateID == aggregateID {
			copied := *e
			out = append(out, &copied)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Len returns the number of stored events
func (r *OutboxRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// EventSink is the event publisher of the demo mode. It keeps the most
// recent events instead of sending them to a broker.
type EventSink struct {
	mu       sync.Mutex
	capacity int
	events   []SinkEntry
	logger   *logging.Logger
}

// SinkEntry is one event received by the sink
type SinkEntry struct {
	Topic string
	Event *cloudevents.METSCloudEvent
}

// NewEventSink creates a sink holding at most capacity events
func NewEventSink(capacity int, logger *logging.Logger) *EventSink {
	if capacity <= 0 {
		capacity = 100
	}
	return &EventSink{capacity: capacity, logger: logger}
}

// PublishEvent stores the event, dropping the oldest one when full
func (s *EventSink) PublishEvent(_ context.Context, topic string, event *cloudevents.METSCloudEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == s.capacity {
		s.events = s.events[1:]
	}
	s.events = append(s.events, SinkEntry{Topic: topic, Event: event})
	s.logger.Debug("Event published to sink", "topic", topic, "eventType", event.Type, "eventId", event.ID)
	return nil
}

// Events returns the stored events, oldest first
func (s *EventSink) Events() []SinkEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SinkEntry(nil), s.events...)
}

// Close implements kafka.EventPublisher
func (s *EventSink) Close() error {
	return nil
}
