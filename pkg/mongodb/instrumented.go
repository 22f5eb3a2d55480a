package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/mets-platform/mets/pkg/logging"
	"github.com/mets-platform/mets/pkg/metrics"
	"github.com/mets-platform/mets/pkg/resilience"
	"github.com/mets-platform/mets/pkg/tracing"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedClient wraps a Client with metrics, tracing and a circuit
// breaker shared by all of its collections.
type InstrumentedClient struct {
	client  *Client
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
	breaker *resilience.CircuitBreaker
}

// NewInstrumentedClient creates a new instrumented MongoDB client. m and
// logger may be nil.
func NewInstrumentedClient(client *Client, m *metrics.Metrics, logger *logging.Logger) *InstrumentedClient {
	var observer resilience.StateObserver
	if m != nil {
		observer = m
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	config := resilience.DefaultCircuitBreakerConfig("mongodb")
	config.MaxRequests = 5

	return &InstrumentedClient{
		client:  client,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("mongodb"),
		breaker: resilience.NewCircuitBreaker(config, logger.Logger, observer),
	}
}

// Collection returns an instrumented collection
func (c *InstrumentedClient) Collection(name string) *InstrumentedCollection {
	return &InstrumentedCollection{
		collection: c.client.Database().Collection(name),
		name:       name,
		owner:      c,
	}
}

// Database returns the underlying database handle
func (c *InstrumentedClient) Database() *mongo.Database {
	return c.client.Database()
}

// Close disconnects the client
func (c *InstrumentedClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// HealthCheck pings the primary inside a span
func (c *InstrumentedClient) HealthCheck(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "mongodb.ping",
		trace.WithAttributes(semconv.DBSystemMongoDB, semconv.DBNameKey.String(c.client.config.Database)),
	)
	err := c.client.HealthCheck(ctx)
	tracing.EndWithResult(span, err)
	return err
}

// WithTransaction runs fn in a transaction inside a span
func (c *InstrumentedClient) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	ctx, span := c.tracer.Start(ctx, "mongodb.transaction",
		trace.WithAttributes(semconv.DBSystemMongoDB, semconv.DBNameKey.String(c.client.config.Database)),
	)
	err := c.client.WithTransaction(ctx, fn)
	tracing.EndWithResult(span, err)
	return err
}

// InstrumentedCollection wraps a mongo.Collection. Every call gets a client
// span, an operation metric, a debug log line and goes through the
// client's circuit breaker.
type InstrumentedCollection struct {
	collection *mongo.Collection
	name       string
	owner      *InstrumentedClient
}

// observe runs fn as operation. fn returns the number of documents it
// touched. ErrNoDocuments counts as success.
func (c *InstrumentedCollection) observe(ctx context.Context, operation string, fn func(ctx context.Context) (int64, error)) error {
	start := time.Now()
	ctx, span := c.owner.tracer.Start(ctx, "mongodb."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(c.owner.client.config.Database),
			semconv.DBOperationKey.String(operation),
			attribute.String("db.collection", c.name),
		),
	)

	var affected int64
	err := c.owner.breaker.Execute(ctx, func() error {
		n, err := fn(ctx)
		affected = n
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		return err
	})
	duration := time.Since(start)
	success := err == nil

	if c.owner.metrics != nil {
		c.owner.metrics.RecordMongoDBOperation(c.name, operation, success, duration)
	}
	c.owner.logger.DatabaseQuery(ctx, c.name, operation, duration, success, affected)

	span.SetAttributes(attribute.Int64("db.rows_affected", affected))
	tracing.EndWithResult(span, err)
	return err
}

// InsertOne inserts a single document
func (c *InstrumentedCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	var result *mongo.InsertOneResult
	err := c.observe(ctx, "insertOne", func(ctx context.Context) (int64, error) {
		var err error
		result, err = c.collection.InsertOne(ctx, document, opts...)
		if err != nil {
			return 0, err
		}
		return 1, nil
	})
	return result, err
}

// FindOne finds a single document. A missing document is reported through
// the returned result, as with the driver.
func (c *InstrumentedCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	var result *mongo.SingleResult
	err := c.observe(ctx, "findOne", func(ctx context.Context) (int64, error) {
		result = c.collection.FindOne(ctx, filter, opts...)
		if result.Err() != nil {
			return 0, result.Err()
		}
		return 1, nil
	})
	if result == nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
	}
	return result
}

// Find finds multiple documents
func (c *InstrumentedCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	var cursor *mongo.Cursor
	err := c.observe(ctx, "find", func(ctx context.Context) (int64, error) {
		var err error
		cursor, err = c.collection.Find(ctx, filter, opts...)
		return 0, err
	})
	return cursor, err
}

// UpdateOne updates a single document
func (c *InstrumentedCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	var result *mongo.UpdateResult
	err := c.observe(ctx, "updateOne", func(ctx context.Context) (int64, error) {
		var err error
		result, err = c.collection.UpdateOne(ctx, filter, update, opts...)
		if err != nil {
			return 0, err
		}
		return result.ModifiedCount + result.UpsertedCount, nil
	})
	return result, err
}

// DeleteOne deletes a single document
func (c *InstrumentedCollection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	var result *mongo.DeleteResult
	err := c.observe(ctx, "deleteOne", func(ctx context.Context) (int64, error) {
		var err error
		result, err = c.collection.DeleteOne(ctx, filter, opts...)
		if err != nil {
			return 0, err
		}
		return result.DeletedCount, nil
	})
	return result, err
}

// CountDocuments counts documents matching filter
func (c *InstrumentedCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	var count int64
	err := c.observe(ctx, "countDocuments", func(ctx context.Context) (int64, error) {
		var err error
		count, err = c.collection.CountDocuments(ctx, filter, opts...)
		return 0, err
	})
	return count, err
}

// Distinct returns the distinct values of field among matching documents
func (c *InstrumentedCollection) Distinct(ctx context.Context, field string, filter interface{}, opts ...*options.DistinctOptions) ([]interface{}, error) {
	var values []interface{}
	err := c.observe(ctx, "distinct", func(ctx context.Context) (int64, error) {
		var err error
		values, err = c.collection.Distinct(ctx, field, filter, opts...)
		return int64(len(values)), err
	})
	return values, err
}

// Aggregate runs an aggregation pipeline
func (c *InstrumentedCollection) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error) {
	var cursor *mongo.Cursor
	err := c.observe(ctx, "aggregate", func(ctx context.Context) (int64, error) {
		var err error
		cursor, err = c.collection.Aggregate(ctx, pipeline, opts...)
		return 0, err
	})
	return cursor, err
}

// BulkWrite executes a batch of write models
func (c *InstrumentedCollection) BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	var result *mongo.BulkWriteResult
	err := c.observe(ctx, "bulkWrite", func(ctx context.Context) (int64, error) {
		var err error
		result, err = c.collection.BulkWrite(ctx, models, opts...)
		if err != nil {
			return 0, err
		}
		return result.InsertedCount + result.ModifiedCount + result.UpsertedCount + result.DeletedCount, nil
	})
	return result, err
}

// EnsureIndexes creates the given indexes
func (c *InstrumentedCollection) EnsureIndexes(ctx context.Context, models []mongo.IndexModel) error {
	return c.observe(ctx, "createIndexes", func(ctx context.Context) (int64, error) {
		names, err := c.collection.Indexes().CreateMany(ctx, models)
		return int64(len(names)), err
	})
}

// Name returns the collection name
func (c *InstrumentedCollection) Name() string {
	return c.name
}
