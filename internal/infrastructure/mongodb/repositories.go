// Package mongodb implements the domain repositories on MongoDB. Aggregate
// writes and their outbox events share one transaction.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/internal/infrastructure/events"
	"github.com/mets-platform/mets/internal/planning"
	pkgmongo "github.com/mets-platform/mets/pkg/mongodb"
	"github.com/mets-platform/mets/pkg/outbox"
	outboxMongo "github.com/mets-platform/mets/pkg/outbox/mongodb"
)

// ProductionUnitRepository implements domain.ProductionUnitRepository.
// Units keep the position they were first stored at.
type ProductionUnitRepository struct {
	collection *pkgmongo.InstrumentedCollection
}

// NewProductionUnitRepository creates a new ProductionUnitRepository
func NewProductionUnitRepository(client *pkgmongo.InstrumentedClient) (*ProductionUnitRepository, error) {
	collection := client.Collection(UnitsCollection)

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "unitId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "position", Value: 1}},
		},
	}
	if err := collection.EnsureIndexes(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create production unit indexes: %w", err)
	}

	return &ProductionUnitRepository{collection: collection}, nil
}

// FindAll returns every unit in configuration order
func (r *ProductionUnitRepository) FindAll(ctx context.Context) ([]*domain.ProductionUnit, error) {
	opts := options.Find().SetSort(pkgmongo.SortMultiple(
		pkgmongo.SortField{Field: "position"},
		pkgmongo.SortField{Field: "unitId"},
	))
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	return pkgmongo.DecodeAll[*domain.ProductionUnit](ctx, cursor)
}

// FindByID retrieves a unit
func (r *ProductionUnitRepository) FindByID(ctx context.Context, unitID string) (*domain.ProductionUnit, error) {
	var unit domain.ProductionUnit
	err := r.collection.FindOne(ctx, bson.M{"unitId": unitID}).Decode(&unit)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &unit, nil
}

// Save upserts a unit. New units are appended after the existing ones.
func (r *ProductionUnitRepository) Save(ctx context.Context, unit *domain.ProductionUnit) error {
	position, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to count production units: %w", err)
	}

	update := bson.M{
		"$set":         unit,
		"$setOnInsert": bson.M{"position": position},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"unitId": unit.UnitID}, update, opts); err != nil {
		return fmt.Errorf("failed to save production unit: %w", err)
	}
	return nil
}

// PlanRepository implements domain.PlanRepository
type PlanRepository struct {
	client     *pkgmongo.InstrumentedClient
	collection *pkgmongo.InstrumentedCollection
	outboxRepo outbox.Repository
	mapper     *events.Mapper
}

// NewPlanRepository creates a new PlanRepository
func NewPlanRepository(client *pkgmongo.InstrumentedClient, outboxRepo outbox.Repository, mapper *events.Mapper) (*PlanRepository, error) {
	collection := client.Collection(PlansCollection)

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "planId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		},
	}
	if err := collection.EnsureIndexes(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create plan indexes: %w", err)
	}

	return &PlanRepository{
		client:     client,
		collection: collection,
		outboxRepo: outboxRepo,
		mapper:     mapper,
	}, nil
}

// Save inserts the snapshot and its events in a single transaction
func (r *PlanRepository) Save(ctx context.Context, plan *domain.PlanSnapshot) error {
	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := r.collection.InsertOne(sessCtx, plan); err != nil {
			return fmt.Errorf("failed to save plan: %w", err)
		}

		outboxEvents, err := r.mapper.ToOutboxEvents(sessCtx, plan.PlanID, events.AggregatePlan, plan.DomainEvents())
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

	plan.ClearDomainEvents()
	return nil
}

// FindLatest returns the most recent snapshot
func (r *PlanRepository) FindLatest(ctx context.Context) (*domain.PlanSnapshot, error) {
	var plan domain.PlanSnapshot
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	err := r.collection.FindOne(ctx, bson.M{}, opts).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

// parametersID is the key of the single parameter document
const parametersID = "default"

// ParametersRepository implements domain.ParametersRepository
type ParametersRepository struct {
	collection *pkgmongo.InstrumentedCollection
}

// NewParametersRepository creates a new ParametersRepository
func NewParametersRepository(client *pkgmongo.InstrumentedClient) *ParametersRepository {
	return &ParametersRepository{collection: client.Collection(ParametersCollection)}
}

// Get returns the stored parameters
func (r *ParametersRepository) Get(ctx context.Context) (*planning.Parameters, error) {
	var params planning.Parameters
	err := r.collection.FindOne(ctx, bson.M{"_id": parametersID}).Decode(&params)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &params, nil
}

// Save replaces the stored parameters
func (r *ParametersRepository) Save(ctx context.Context, params planning.Parameters) error {
	if params.UpdatedAt.IsZero() {
		params.UpdatedAt = time.Now().UTC()
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": parametersID}, bson.M{"$set": params}, opts); err != nil {
		return fmt.Errorf("failed to save planning parameters: %w", err)
	}
	return nil
}

// TechnicalDocumentRepository implements domain.TechnicalDocumentRepository
type TechnicalDocumentRepository struct {
	collection *pkgmongo.InstrumentedCollection
}

// NewTechnicalDocumentRepository creates a new TechnicalDocumentRepository
func NewTechnicalDocumentRepository(client *pkgmongo.InstrumentedClient) (*TechnicalDocumentRepository, error) {
	collection := client.Collection(DocumentsCollection)

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "docId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "category", Value: 1}},
		},
	}
	if err := collection.EnsureIndexes(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create technical document indexes: %w", err)
	}

	return &TechnicalDocumentRepository{collection: collection}, nil
}

// FindAll returns every document ordered by id
func (r *TechnicalDocumentRepository) FindAll(ctx context.Context) ([]*domain.TechnicalDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "docId", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	return pkgmongo.DecodeAll[*domain.TechnicalDocument](ctx, cursor)
}

// Save upserts a document
func (r *TechnicalDocumentRepository) Save(ctx context.Context, doc *domain.TechnicalDocument) error {
	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"docId": doc.DocID}, bson.M{"$set": doc}, opts); err != nil {
		return fmt.Errorf("failed to save technical document: %w", err)
	}
	return nil
}

// Repositories bundles the MongoDB repositories sharing one outbox
type Repositories struct {
	Outbox     *outboxMongo.OutboxRepository
	Orders     *OrderRepository
	Units      *ProductionUnitRepository
	Plans      *PlanRepository
	Parameters *ParametersRepository
	Documents  *TechnicalDocumentRepository
}

// NewRepositories creates every repository and its indexes
func NewRepositories(ctx context.Context, client *pkgmongo.InstrumentedClient) (*Repositories, error) {
	outboxRepo := outboxMongo.NewOutboxRepository(client.Database())
	if err := outboxRepo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create outbox indexes: %w", err)
	}
	mapper := events.NewMapper()

	orders, err := NewOrderRepository(client, outboxRepo, mapper)
	if err != nil {
		return nil, err
	}
	units, err := NewProductionUnitRepository(client)
	if err != nil {
		return nil, err
	}
	plans, err := NewPlanRepository(client, outboxRepo, mapper)
	if err != nil {
		return nil, err
	}
	documents, err := NewTechnicalDocumentRepository(client)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Outbox:     outboxRepo,
		Orders:     orders,
		Units:      units,
		Plans:      plans,
		Parameters: NewParametersRepository(client),
		Documents:  documents,
	}, nil
}
