package mongodb

import (
	"context"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/tracing"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedCollection wraps a MongoDB Collection with metrics, query logging and tracing
type InstrumentedCollection struct {
	collection *mongo.Collection
	name       string
	database   string
	metrics    *metrics.Metrics
	logger     *logging.Logger
	tracer     trace.Tracer
}

// NewInstrumentedCollection wraps collection. m and logger may be nil.
func NewInstrumentedCollection(collection *mongo.Collection, m *metrics.Metrics, logger *logging.Logger) *InstrumentedCollection {
	return &InstrumentedCollection{
		collection: collection,
		name:       collection.Name(),
		database:   collection.Database().Name(),
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("mongodb"),
	}
}

func (c *InstrumentedCollection) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "mongodb."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.DatabaseSpanAttributes("mongodb", c.database, operation, c.name)...),
	)
}

func (c *InstrumentedCollection) finish(ctx context.Context, span trace.Span, operation string, start time.Time, err error, rows int64) {
	duration := time.Since(start)
	success := err == nil || err == mongo.ErrNoDocuments
	if c.metrics != nil {
		c.metrics.RecordMongoDBOperation(c.name, operation, success, duration)
	}
	if c.logger != nil {
		c.logger.DatabaseQuery(ctx, c.name, operation, duration, success, rows)
	}
	if success {
		tracing.EndSpan(span, nil)
	} else {
		tracing.EndSpan(span, err)
	}
}

// InsertOne inserts a single document
func (c *InstrumentedCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "insertOne")
	result, err := c.collection.InsertOne(ctx, document, opts...)
	c.finish(ctx, span, "insertOne", start, err, 1)
	return result, err
}

// FindOne finds a single document
func (c *InstrumentedCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "findOne")
	result := c.collection.FindOne(ctx, filter, opts...)
	c.finish(ctx, span, "findOne", start, result.Err(), 1)
	return result
}

// Find finds documents
func (c *InstrumentedCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "find")
	cursor, err := c.collection.Find(ctx, filter, opts...)
	c.finish(ctx, span, "find", start, err, 0)
	return cursor, err
}

// UpdateOne updates a single document
func (c *InstrumentedCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "updateOne")
	result, err := c.collection.UpdateOne(ctx, filter, update, opts...)
	var rows int64
	if result != nil {
		rows = result.ModifiedCount + result.UpsertedCount
	}
	c.finish(ctx, span, "updateOne", start, err, rows)
	return result, err
}

// ReplaceOne replaces a single document
func (c *InstrumentedCollection) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "replaceOne")
	result, err := c.collection.ReplaceOne(ctx, filter, replacement, opts...)
	var rows int64
	if result != nil {
		rows = result.ModifiedCount + result.UpsertedCount
	}
	c.finish(ctx, span, "replaceOne", start, err, rows)
	return result, err
}

// CountDocuments counts documents
func (c *InstrumentedCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "countDocuments")
	count, err := c.collection.CountDocuments(ctx, filter, opts...)
	c.finish(ctx, span, "countDocuments", start, err, count)
	return count, err
}

// Aggregate runs an aggregation pipeline
func (c *InstrumentedCollection) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "aggregate")
	cursor, err := c.collection.Aggregate(ctx, pipeline, opts...)
	c.finish(ctx, span, "aggregate", start, err, 0)
	return cursor, err
}

// CreateIndexes creates indexes on the collection
func (c *InstrumentedCollection) CreateIndexes(ctx context.Context, models []mongo.IndexModel) error {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "createIndexes")
	_, err := c.collection.Indexes().CreateMany(ctx, models)
	c.finish(ctx, span, "createIndexes", start, err, int64(len(models)))
	return err
}

// Name returns the collection name
func (c *InstrumentedCollection) Name() string {
	return c.name
}
