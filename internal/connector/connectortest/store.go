// Package connectortest provides an in-memory Store for exercising the
// seeding pipeline without a running MongoDB.
package connectortest

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vitebski/mongo-dummy-seeder/internal/connector"
)

// Store is a fake connector.Store. Default behavior keeps documents and
// index specs in memory; individual operations can be overridden with
// the *Func hooks.
type Store struct {
	Docs    map[string][]bson.M
	Indexes map[string][]connector.IndexSpec

	// AggregateResults are returned per collection by Aggregate.
	AggregateResults map[string][]bson.M

	DroppedCollections []string
	InsertManyCalls    int

	DropCollectionFunc func(ctx context.Context, name string) error
	InsertManyFunc     func(ctx context.Context, name string, docs []interface{}) error
	CreateIndexFunc    func(ctx context.Context, name string, model mongo.IndexModel) (string, error)
	ListIndexesFunc    func(ctx context.Context, name string) ([]connector.IndexSpec, error)
	FindSampleFunc     func(ctx context.Context, name string, limit int64) ([]bson.M, error)
	CountDocumentsFunc func(ctx context.Context, name string) (int64, error)
	AggregateFunc      func(ctx context.Context, name string, pipeline mongo.Pipeline) ([]bson.M, error)
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		Docs:             make(map[string][]bson.M),
		Indexes:          make(map[string][]connector.IndexSpec),
		AggregateResults: make(map[string][]bson.M),
	}
}

func (s *Store) DropCollection(ctx context.Context, name string) error {
	if s.DropCollectionFunc != nil {
		return s.DropCollectionFunc(ctx, name)
	}
	s.DroppedCollections = append(s.DroppedCollections, name)
	delete(s.Docs, name)
	delete(s.Indexes, name)
	return nil
}

func (s *Store) InsertMany(ctx context.Context, name string, docs []interface{}) error {
	s.InsertManyCalls++
	if s.InsertManyFunc != nil {
		return s.InsertManyFunc(ctx, name, docs)
	}
	for _, doc := range docs {
		if m, ok := doc.(bson.M); ok {
			s.Docs[name] = append(s.Docs[name], m)
		}
	}
	return nil
}

func (s *Store) CreateIndex(ctx context.Context, name string, model mongo.IndexModel) (string, error) {
	if s.CreateIndexFunc != nil {
		return s.CreateIndexFunc(ctx, name, model)
	}
	spec := specFromModel(model)
	s.Indexes[name] = append(s.Indexes[name], spec)
	return spec.Name, nil
}

func (s *Store) ListIndexes(ctx context.Context, name string) ([]connector.IndexSpec, error) {
	if s.ListIndexesFunc != nil {
		return s.ListIndexesFunc(ctx, name)
	}
	return s.Indexes[name], nil
}

func (s *Store) FindSample(ctx context.Context, name string, limit int64) ([]bson.M, error) {
	if s.FindSampleFunc != nil {
		return s.FindSampleFunc(ctx, name, limit)
	}
	docs := s.Docs[name]
	if int64(len(docs)) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (s *Store) CountDocuments(ctx context.Context, name string) (int64, error) {
	if s.CountDocumentsFunc != nil {
		return s.CountDocumentsFunc(ctx, name)
	}
	return int64(len(s.Docs[name])), nil
}

func (s *Store) Aggregate(ctx context.Context, name string, pipeline mongo.Pipeline) ([]bson.M, error) {
	if s.AggregateFunc != nil {
		return s.AggregateFunc(ctx, name, pipeline)
	}
	return s.AggregateResults[name], nil
}

func specFromModel(model mongo.IndexModel) connector.IndexSpec {
	spec := connector.IndexSpec{}
	if keys, ok := model.Keys.(bson.D); ok {
		spec.Key = keys
	}
	if model.Options != nil {
		if model.Options.Name != nil {
			spec.Name = *model.Options.Name
		}
		if model.Options.Unique != nil {
			spec.Unique = *model.Options.Unique
		}
		if model.Options.Sparse != nil {
			spec.Sparse = *model.Options.Sparse
		}
	}
	return spec
}
