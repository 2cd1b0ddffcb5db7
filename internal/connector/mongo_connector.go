package connector

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// IndexSpec is the slice of an index specification, as reported by
// listIndexes, that the harness compares against declared definitions.
// Key is bson.D so compound key order survives decoding.
type IndexSpec struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique"`
	Sparse bool   `bson:"sparse"`
}

// Store is the set of document-store operations the seeding pipeline
// needs: drop-collection, bulk-insert, index creation and listing,
// sampled reads and aggregation. Components take this interface rather
// than a concrete client so they can be exercised against fakes.
type Store interface {
	DropCollection(ctx context.Context, name string) error
	InsertMany(ctx context.Context, name string, docs []interface{}) error
	CreateIndex(ctx context.Context, name string, model mongo.IndexModel) (string, error)
	ListIndexes(ctx context.Context, name string) ([]IndexSpec, error)
	FindSample(ctx context.Context, name string, limit int64) ([]bson.M, error)
	CountDocuments(ctx context.Context, name string) (int64, error)
	Aggregate(ctx context.Context, name string, pipeline mongo.Pipeline) ([]bson.M, error)
}

// MongoConnector handles the MongoDB connection and implements Store.
type MongoConnector struct {
	URI      string
	Database string
	Client   *mongo.Client
	DB       *mongo.Database
	Logger   *logrus.Logger
}

// NewMongoConnector creates a connector, falling back to MONGODB_URI and
// MONGODB_DATABASE environment variables for unset parameters.
func NewMongoConnector(uri, database string, logger *logrus.Logger) *MongoConnector {
	if uri == "" {
		uri = getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017")
	}
	if database == "" {
		database = os.Getenv("MONGODB_DATABASE")
	}

	return &MongoConnector{
		URI:      uri,
		Database: database,
		Logger:   logger,
	}
}

// Connect establishes and pings the MongoDB connection.
func (mc *MongoConnector) Connect(ctx context.Context) error {
	if mc.Database == "" {
		return fmt.Errorf("database name must be provided either as an argument or as MONGODB_DATABASE environment variable")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mc.URI))
	if err != nil {
		mc.Logger.Errorf("Error connecting to MongoDB: %v", err)
		return err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		mc.Logger.Errorf("Error pinging MongoDB: %v", err)
		return err
	}

	mc.Client = client
	mc.DB = client.Database(mc.Database)
	mc.Logger.Infof("Connected to MongoDB database: %s", mc.Database)
	return nil
}

// Disconnect closes the MongoDB connection.
func (mc *MongoConnector) Disconnect(ctx context.Context) {
	if mc.Client != nil {
		if err := mc.Client.Disconnect(ctx); err != nil {
			mc.Logger.Errorf("Error closing MongoDB connection: %v", err)
		} else {
			mc.Logger.Info("MongoDB connection closed")
		}
	}
}

func (mc *MongoConnector) collection(name string) (*mongo.Collection, error) {
	if mc.DB == nil {
		return nil, fmt.Errorf("not connected to MongoDB")
	}
	return mc.DB.Collection(name), nil
}

// DropCollection drops the named collection. Dropping a collection that
// does not exist is a no-op success.
func (mc *MongoConnector) DropCollection(ctx context.Context, name string) error {
	coll, err := mc.collection(name)
	if err != nil {
		return err
	}
	return coll.Drop(ctx)
}

// InsertMany performs an unordered bulk insert and returns the raw
// driver error, so callers can distinguish duplicate-key write errors
// from connectivity failures.
func (mc *MongoConnector) InsertMany(ctx context.Context, name string, docs []interface{}) error {
	coll, err := mc.collection(name)
	if err != nil {
		return err
	}
	_, err = coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return err
}

// CreateIndex issues a create-index request and returns the index name.
func (mc *MongoConnector) CreateIndex(ctx context.Context, name string, model mongo.IndexModel) (string, error) {
	coll, err := mc.collection(name)
	if err != nil {
		return "", err
	}
	return coll.Indexes().CreateOne(ctx, model)
}

// ListIndexes returns the index specifications of the named collection.
func (mc *MongoConnector) ListIndexes(ctx context.Context, name string) ([]IndexSpec, error) {
	coll, err := mc.collection(name)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}

	var specs []IndexSpec
	if err := cursor.All(ctx, &specs); err != nil {
		return nil, err
	}
	return specs, nil
}

// FindSample returns up to limit documents from the named collection.
func (mc *MongoConnector) FindSample(ctx context.Context, name string, limit int64) ([]bson.M, error) {
	coll, err := mc.collection(name)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, bson.D{}, options.Find().SetLimit(limit))
	if err != nil {
		return nil, err
	}

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// CountDocuments counts all documents in the named collection.
func (mc *MongoConnector) CountDocuments(ctx context.Context, name string) (int64, error) {
	coll, err := mc.collection(name)
	if err != nil {
		return 0, err
	}
	return coll.CountDocuments(ctx, bson.D{})
}

// Aggregate runs the pipeline against the named collection and returns
// all result documents.
func (mc *MongoConnector) Aggregate(ctx context.Context, name string, pipeline mongo.Pipeline) ([]bson.M, error) {
	coll, err := mc.collection(name)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	var results []bson.M
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
