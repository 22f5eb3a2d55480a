package testing

import (
	"context"
	"fmt"

	"github.com/mets-platform/mets/pkg/mongodb"
	tcmongodb "github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// MongoDBContainer wraps a single-node replica set started with
// testcontainers. Transactions need the replica set.
type MongoDBContainer struct {
	Container *tcmongodb.MongoDBContainer
	URI       string
}

// NewMongoDBContainer starts a MongoDB testcontainer
func NewMongoDBContainer(ctx context.Context) (*MongoDBContainer, error) {
	container, err := tcmongodb.Run(ctx, "mongo:7", tcmongodb.WithReplicaSet("rs0"))
	if err != nil {
		return nil, fmt.Errorf("failed to start mongodb container: %w", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &MongoDBContainer{
		Container: container,
		URI:       uri,
	}, nil
}

// Close terminates the MongoDB container
func (m *MongoDBContainer) Close(ctx context.Context) error {
	if m.Container != nil {
		return m.Container.Terminate(ctx)
	}
	return nil
}

// Client connects a METS mongodb client to database on the container.
func (m *MongoDBContainer) Client(ctx context.Context, database string) (*mongodb.Client, error) {
	config := mongodb.DefaultConfig()
	config.URI = m.URI
	config.Database = database
	config.Retry = nil

	client, err := mongodb.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb container: %w", err)
	}
	return client, nil
}
