package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/ir"
	"github.com/recastops/recast/pkg/migration"
)

// Config holds MongoDB connection settings.
type Config struct {
	URI      string // connection string, defaults to mongodb://localhost:27017
	Database string // defaults to "recast"
}

// MongoStore is a MongoDB-backed graph store. Records live in the
// "graphs" collection, one document per graph, keyed by graph ID.
type MongoStore struct {
	client   *mongo.Client
	graphs   *mongo.Collection
	versions *migration.Manager
}

// NewMongoStore connects to MongoDB, verifies the connection with a
// bounded ping, and ensures the graph ID index. A nil versions manager
// defaults to the builtin schema history.
func NewMongoStore(ctx context.Context, cfg Config, versions *migration.Manager) (*MongoStore, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "recast"
	}
	if versions == nil {
		versions = migration.NewSchemaManager()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "connect to store at %s", cfg.URI)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeIO, err, "ping store at %s", cfg.URI)
	}

	graphs := client.Database(cfg.Database).Collection("graphs")
	_, err = graphs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "graph_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeIO, err, "ensure graph index")
	}

	return &MongoStore{client: client, graphs: graphs, versions: versions}, nil
}

// Save stores the graph, replacing any stored graph with the same ID.
func (s *MongoStore) Save(ctx context.Context, g *ir.Graph) error {
	rec, err := newRecord(g)
	if err != nil {
		return err
	}
	filter := bson.M{"graph_id": rec.GraphID}
	_, err = s.graphs.ReplaceOne(ctx, filter, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "store graph %s", rec.GraphID)
	}
	return nil
}

// Get loads a stored graph by ID, migrating older schema versions
// forward before hydration.
func (s *MongoStore) Get(ctx context.Context, id string) (*ir.Graph, error) {
	var rec Record
	err := s.graphs.FindOne(ctx, bson.M{"graph_id": id}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeNotFound, "graph %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "load graph %s", id)
	}
	return rec.graph(s.versions)
}

// List returns the metadata records of all stored graphs, newest first.
func (s *MongoStore) List(ctx context.Context) ([]Record, error) {
	opts := options.Find().
		SetProjection(bson.M{"envelope": 0}).
		SetSort(bson.D{{Key: "stored_at", Value: -1}})
	cur, err := s.graphs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "list graphs")
	}
	var recs []Record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "list graphs")
	}
	return recs, nil
}

// Delete removes a stored graph.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.graphs.DeleteOne(ctx, bson.M{"graph_id": id})
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "delete graph %s", id)
	}
	if res.DeletedCount == 0 {
		return errors.New(errors.ErrCodeNotFound, "graph %s not found", id)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "disconnect store")
	}
	return nil
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
