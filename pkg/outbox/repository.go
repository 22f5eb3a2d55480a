package outbox

import (
	"context"
	"time"
)

// Repository defines the interface for outbox event persistence
type Repository interface {
	// SaveAll saves events in one write. Inside a Mongo session context the
	// write joins the surrounding transaction.
	SaveAll(ctx context.Context, events []*OutboxEvent) error

	// FindUnpublished returns the oldest events still eligible for publishing
	FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)

	// MarkPublished marks an event as published
	MarkPublished(ctx context.Context, eventID string) error

	// IncrementRetry increments the retry count and records the error
	IncrementRetry(ctx context.Context, eventID string, errorMsg string) error

	// DeletePublished removes events published before now minus olderThan
	DeletePublished(ctx context.Context, olderThan time.Duration) (int64, error)

	// FindByAggregateID returns all events for an aggregate, oldest first
	FindByAggregateID(ctx context.Context, aggregateID string) ([]*OutboxEvent, error)
}
