package mongodb

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/internal/infrastructure/events"
	pkgmongo "github.com/mets-platform/mets/pkg/mongodb"
	"github.com/mets-platform/mets/pkg/outbox"
)

// Collection names
const (
	OrdersCollection     = "orders"
	UnitsCollection      = "production_units"
	PlansCollection      = "plan_snapshots"
	ParametersCollection = "planning_parameters"
	DocumentsCollection  = "technical_documents"
)

const indexTimeout = 10 * time.Second

// OrderRepository implements domain.OrderRepository using MongoDB
type OrderRepository struct {
	client     *pkgmongo.InstrumentedClient
	collection *pkgmongo.InstrumentedCollection
	outboxRepo outbox.Repository
	mapper     *events.Mapper
}

// NewOrderRepository creates a new OrderRepository and ensures its indexes
func NewOrderRepository(client *pkgmongo.InstrumentedClient, outboxRepo outbox.Repository, mapper *events.Mapper) (*OrderRepository, error) {
	collection := client.Collection(OrdersCollection)

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "orderNo", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "orderDate", Value: 1},
				{Key: "createdAt", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "customerInfo.name", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "cells.productTypeCode", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "updatedAt", Value: -1}},
		},
	}
	if err := collection.EnsureIndexes(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create order indexes: %w", err)
	}

	return &OrderRepository{
		client:     client,
		collection: collection,
		outboxRepo: outboxRepo,
		mapper:     mapper,
	}, nil
}

// Save persists an order with its domain events in a single transaction
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"orderId": order.OrderID}
		update := bson.M{"$set": order}

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}

		outboxEvents, err := r.mapper.ToOutboxEvents(sessCtx, order.OrderID, events.AggregateOrder, order.DomainEvents())
		if err != nil {
			return err
		}
		if len(outboxEvents) > 0 {
			if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
				return fmt.Errorf("failed to save outbox events: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	order.ClearDomainEvents()
	return nil
}

// FindByID retrieves an order by its OrderID
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := r.collection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ExistsByOrderNo reports whether an order number is taken
func (r *OrderRepository) ExistsByOrderNo(ctx context.Context, orderNo string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"orderNo": orderNo}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindAll returns one page of the orders matching the filter
func (r *OrderRepository) FindAll(ctx context.Context, filter domain.OrderFilter, sort domain.OrderSort, pagination domain.Pagination) ([]*domain.Order, error) {
	opts := options.Find().
		SetSort(orderSort(sort)).
		SetSkip(pagination.Skip())
	if pagination.Limit() > 0 {
		opts.SetLimit(pagination.Limit())
	}
	return r.findMany(ctx, orderFilter(filter), opts)
}

// Count returns the total number of orders matching the filter
func (r *OrderRepository) Count(ctx context.Context, filter domain.OrderFilter) (int64, error) {
	return r.collection.CountDocuments(ctx, orderFilter(filter))
}

// FindActive returns non-terminal orders in FIFO order
func (r *OrderRepository) FindActive(ctx context.Context) ([]*domain.Order, error) {
	opts := options.Find().SetSort(pkgmongo.SortMultiple(fifoSort...))
	return r.findMany(ctx, orderFilter(domain.OrderFilter{ActiveOnly: true}), opts)
}

// FindRecentlyUpdated returns the most recently updated orders
func (r *OrderRepository) FindRecentlyUpdated(ctx context.Context, limit int64) ([]*domain.Order, error) {
	opts := options.Find().
		SetSort(pkgmongo.SortMultiple(
			pkgmongo.SortField{Field: "updatedAt", Descending: true},
			pkgmongo.SortField{Field: "orderId"},
		)).
		SetLimit(limit)
	return r.findMany(ctx, bson.M{}, opts)
}

// CountByStatus returns the number of orders per status
func (r *OrderRepository) CountByStatus(ctx context.Context) (map[domain.Status]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}

	type statusCount struct {
		Status domain.Status `bson:"_id"`
		Count  int64         `bson:"count"`
	}
	rows, err := pkgmongo.DecodeAll[statusCount](ctx, cursor)
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// DistinctCustomers returns the sorted customer names
func (r *OrderRepository) DistinctCustomers(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "customerInfo.name")
}

// DistinctCellTypes returns the sorted product type codes
func (r *OrderRepository) DistinctCellTypes(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "cells.productTypeCode")
}

// UpdateEstimatedDeliveries stores plan estimates in one unordered bulk write
func (r *OrderRepository) UpdateEstimatedDeliveries(ctx context.Context, estimates map[string]time.Time) error {
	if len(estimates) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(estimates))
	for orderID, at := range estimates {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"orderId": orderID}).
			SetUpdate(bson.M{"$set": bson.M{"estimatedDelivery": at}}))
	}

	if _, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to update delivery estimates: %w", err)
	}
	return nil
}

func (r *OrderRepository) distinct(ctx context.Context, field string) ([]string, error) {
	values, err := r.collection.Distinct(ctx, field, bson.M{})
	if err != nil {
		return nil, err
	}
	out := pkgmongo.DistinctStrings(values)
	slices.Sort(out)
	return out, nil
}

func (r *OrderRepository) findMany(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]*domain.Order, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return pkgmongo.DecodeAll[*domain.Order](ctx, cursor)
}

var fifoSort = []pkgmongo.SortField{
	{Field: "orderDate"},
	{Field: "createdAt"},
	{Field: "orderId"},
}

// sortColumns maps API sort fields to stored fields
var sortColumns = map[string]string{
	domain.SortByPriority: "priorityRank",
}

// orderSort sorts by the requested field, then FIFO
func orderSort(sort domain.OrderSort) bson.D {
	field := sort.Field
	if field == "" {
		field = domain.SortByOrderDate
	}
	if column, ok := sortColumns[field]; ok {
		field = column
	}

	fields := []pkgmongo.SortField{{Field: field, Descending: sort.Descending}}
	for _, f := range fifoSort {
		if f.Field != field {
			fields = append(fields, f)
		}
	}
	return pkgmongo.SortMultiple(fields...)
}

// orderFilter translates an OrderFilter into a query document
func orderFilter(f domain.OrderFilter) bson.M {
	var conditions bson.A

	if f.Search != nil && *f.Search != "" {
		pattern := pkgmongo.ContainsIgnoreCase(*f.Search)
		conditions = append(conditions, bson.M{"$or": bson.A{
			bson.M{"orderNo": pattern},
			bson.M{"customerInfo.name": pattern},
		}})
	}
	if f.CellType != nil && *f.CellType != "" {
		conditions = append(conditions, bson.M{"cells.productTypeCode": *f.CellType})
	}
	if f.Status != nil {
		conditions = append(conditions, bson.M{"status": *f.Status})
	}
	if f.Priority != nil {
		conditions = append(conditions, bson.M{"priority": *f.Priority})
	}
	if f.CustomerName != nil && *f.CustomerName != "" {
		conditions = append(conditions, bson.M{"customerInfo.name": *f.CustomerName})
	}
	if f.DateFrom != nil || f.DateTo != nil {
		dateRange := bson.M{}
		if f.DateFrom != nil {
			dateRange["$gte"] = *f.DateFrom
		}
		if f.DateTo != nil {
			dateRange["$lte"] = *f.DateTo
		}
		conditions = append(conditions, bson.M{"orderDate": dateRange})
	}
	if f.ActiveOnly {
		conditions = append(conditions, bson.M{"status": bson.M{"$nin": bson.A{domain.StatusCompleted, domain.StatusCanceled}}})
	}

	switch len(conditions) {
	case 0:
		return bson.M{}
	case 1:
		return conditions[0].(bson.M)
	default:
		return bson.M{"$and": conditions}
	}
}
