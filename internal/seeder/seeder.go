package seeder

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vitebski/mongo-dummy-seeder/internal/connector"
	"github.com/vitebski/mongo-dummy-seeder/internal/generator"
	"github.com/vitebski/mongo-dummy-seeder/internal/indexer"
	"github.com/vitebski/mongo-dummy-seeder/internal/loader"
	"github.com/vitebski/mongo-dummy-seeder/internal/schema"
	"github.com/vitebski/mongo-dummy-seeder/internal/validator"
	"github.com/vitebski/mongo-dummy-seeder/pkg/models"
)

// GenerateFunc produces the documents for one collection, replacing the
// default generator. Implementations draw references from the supplied
// identifier pools.
type GenerateFunc func(n int, pools map[string][]primitive.ObjectID) ([]bson.M, error)

// Seeder is the four-call lifecycle every seeding implementation must
// expose, invoked in order: clear, seed, index, validate.
type Seeder interface {
	ClearDatabase(ctx context.Context) error
	SeedAllCollections(ctx context.Context, counts map[string]int) error
	CreateIndexes(ctx context.Context) error
	ValidateSeedData(ctx context.Context) (*models.ValidationResult, error)
}

// DatabaseSeeder is the default Seeder: it generates and loads
// collections in dependency order, accumulating identifier pools for
// downstream reference fields.
type DatabaseSeeder struct {
	Store     connector.Store
	Schema    *models.DatabaseSchema
	Generator *generator.DocumentGenerator
	Loader    *loader.BulkLoader
	Indexes   *indexer.IndexManager
	Validator *validator.Validator
	Logger    *logrus.Logger

	SampleSize int

	overrides map[string]GenerateFunc
	checkers  map[string]validator.DocumentChecker

	// pools maps collection name -> identifiers of successfully loaded
	// documents. Written once per collection, read-only afterwards.
	pools  map[string][]primitive.ObjectID
	loaded map[string]int
}

// NewDatabaseSeeder wires a seeder around an explicit store handle.
func NewDatabaseSeeder(
	store connector.Store,
	dbSchema *models.DatabaseSchema,
	gen *generator.DocumentGenerator,
	batchSize int,
	sampleSize int,
	logger *logrus.Logger,
) *DatabaseSeeder {
	if sampleSize <= 0 {
		sampleSize = validator.DefaultSampleSize
	}
	return &DatabaseSeeder{
		Store:      store,
		Schema:     dbSchema,
		Generator:  gen,
		Loader:     loader.NewBulkLoader(store, batchSize, logger),
		Indexes:    indexer.NewIndexManager(store, logger),
		Validator:  validator.NewValidator(store, logger),
		Logger:     logger,
		SampleSize: sampleSize,
		overrides:  make(map[string]GenerateFunc),
		checkers:   make(map[string]validator.DocumentChecker),
		pools:      make(map[string][]primitive.ObjectID),
		loaded:     make(map[string]int),
	}
}

// WithGenerateOverride replaces the default generation logic for one
// collection. The lifecycle contract is unchanged.
func (ds *DatabaseSeeder) WithGenerateOverride(collection string, fn GenerateFunc) *DatabaseSeeder {
	ds.overrides[collection] = fn
	return ds
}

// WithShapeChecker adds a per-collection document checker applied during
// validation in addition to the declarative shape.
func (ds *DatabaseSeeder) WithShapeChecker(collection string, fn validator.DocumentChecker) *DatabaseSeeder {
	ds.checkers[collection] = fn
	return ds
}

// ClearDatabase drops every collection named in the schema. Safe to call
// repeatedly and against collections that do not exist.
func (ds *DatabaseSeeder) ClearDatabase(ctx context.Context) error {
	for _, name := range ds.Schema.CollectionNames() {
		if err := ds.Store.DropCollection(ctx, name); err != nil {
			return fmt.Errorf("dropping collection %s: %w", name, err)
		}
		ds.Logger.Infof("Cleared collection: %s", name)
	}

	ds.pools = make(map[string][]primitive.ObjectID)
	ds.loaded = make(map[string]int)
	return nil
}

// SeedAllCollections generates and loads every collection in dependency
// order. counts maps collection name to the target document count;
// collections absent from counts are seeded with zero documents, which
// surfaces as a ReferenceIntegrityError if a dependent requires them.
func (ds *DatabaseSeeder) SeedAllCollections(ctx context.Context, counts map[string]int) error {
	order, err := schema.InsertionOrder(ds.Schema)
	if err != nil {
		return err
	}

	ds.pools = make(map[string][]primitive.ObjectID)
	ds.loaded = make(map[string]int)

	for _, name := range order {
		cs, ok := ds.Schema.Collection(name)
		if !ok {
			return fmt.Errorf("collection %s missing from schema", name)
		}

		for _, dep := range schema.Dependencies(cs) {
			if _, published := ds.pools[dep]; !published {
				return &models.ReferenceIntegrityError{Collection: name, DependsOn: dep}
			}
		}

		n := counts[name]
		ds.Logger.Infof("Seeding collection %s with %d document(s)", name, n)

		docs, err := ds.generate(cs, n)
		if err != nil {
			return err
		}

		ids, err := ds.Loader.Load(ctx, name, docs)
		if err != nil {
			return err
		}

		// Publish the pool only after the load committed, so dependents
		// never reference identifiers that are not durable.
		ds.pools[name] = ids
		ds.loaded[name] = len(ids)
	}

	return nil
}

func (ds *DatabaseSeeder) generate(cs *models.CollectionSchema, n int) ([]bson.M, error) {
	if fn, ok := ds.overrides[cs.Name]; ok {
		return fn(n, ds.pools)
	}
	return ds.Generator.Generate(cs, n, ds.pools)
}

// CreateIndexes ensures every declared index exists, per collection.
// Called after loading so unique indexes fail loudly on bad data.
func (ds *DatabaseSeeder) CreateIndexes(ctx context.Context) error {
	for i := range ds.Schema.Collections {
		if err := ds.Indexes.EnsureIndexes(ctx, &ds.Schema.Collections[i]); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSeedData validates with the configured sample size and shape
// checkers.
func (ds *DatabaseSeeder) ValidateSeedData(ctx context.Context) (*models.ValidationResult, error) {
	return ds.ValidateSchemaAndIndexes(ctx, ds.SampleSize, ds.checkers)
}

// ValidateSchemaAndIndexes runs the validator with explicit parameters.
func (ds *DatabaseSeeder) ValidateSchemaAndIndexes(
	ctx context.Context,
	sampleSize int,
	checkers map[string]validator.DocumentChecker,
) (*models.ValidationResult, error) {
	return ds.Validator.Validate(ctx, ds.Schema, sampleSize, checkers)
}

// Pool returns the identifier pool published for a collection.
func (ds *DatabaseSeeder) Pool(collection string) []primitive.ObjectID {
	return ds.pools[collection]
}

// LoadedCounts returns how many documents were persisted per collection
// in the last SeedAllCollections run.
func (ds *DatabaseSeeder) LoadedCounts() map[string]int {
	counts := make(map[string]int, len(ds.loaded))
	for name, n := range ds.loaded {
		counts[name] = n
	}
	return counts
}
