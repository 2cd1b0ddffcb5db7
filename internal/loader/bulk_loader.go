package loader

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vitebski/mongo-dummy-seeder/internal/connector"
	"github.com/vitebski/mongo-dummy-seeder/pkg/models"
)

const duplicateKeyCode = 11000

// DefaultBatchSize is the chunk size used when none is configured.
const DefaultBatchSize = 1000

// BulkLoader persists generated documents into a collection in batches.
// Duplicate-key violations on individual documents are skipped and
// logged; any other failure aborts the run as a LoadError. Earlier
// batches are never rolled back.
type BulkLoader struct {
	Store     connector.Store
	BatchSize int
	Logger    *logrus.Logger
}

// NewBulkLoader creates a bulk loader. batchSize <= 0 selects the
// default.
func NewBulkLoader(store connector.Store, batchSize int, logger *logrus.Logger) *BulkLoader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BulkLoader{
		Store:     store,
		BatchSize: batchSize,
		Logger:    logger,
	}
}

// Load inserts the documents and returns the ObjectIDs that were
// actually persisted, in insertion order. IDs of documents skipped for
// duplicate keys are excluded so they never enter identifier pools.
func (bl *BulkLoader) Load(ctx context.Context, collection string, docs []bson.M) ([]primitive.ObjectID, error) {
	inserted := make([]primitive.ObjectID, 0, len(docs))

	for start := 0; start < len(docs); start += bl.BatchSize {
		end := start + bl.BatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		failed, err := bl.loadBatch(ctx, collection, batch)
		if err != nil {
			return inserted, err
		}

		for i, doc := range batch {
			if failed[i] {
				continue
			}
			if id, ok := doc["_id"].(primitive.ObjectID); ok {
				inserted = append(inserted, id)
			}
		}
	}

	bl.Logger.Infof("Loaded %d/%d documents into collection %s", len(inserted), len(docs), collection)
	return inserted, nil
}

// loadBatch inserts one chunk and returns the in-batch indexes of
// documents rejected for duplicate keys.
func (bl *BulkLoader) loadBatch(ctx context.Context, collection string, batch []bson.M) (map[int]bool, error) {
	payload := make([]interface{}, len(batch))
	for i, doc := range batch {
		payload[i] = doc
	}

	err := bl.Store.InsertMany(ctx, collection, payload)
	if err == nil {
		return nil, nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return nil, &models.LoadError{Collection: collection, Err: err}
	}
	if bwe.WriteConcernError != nil {
		return nil, &models.LoadError{Collection: collection, Err: err}
	}

	failed := make(map[int]bool, len(bwe.WriteErrors))
	for _, we := range bwe.WriteErrors {
		if we.Code != duplicateKeyCode {
			return nil, &models.LoadError{Collection: collection, Err: err}
		}
		failed[we.Index] = true
		if we.Index >= 0 && we.Index < len(batch) {
			bl.Logger.Warningf("Skipping duplicate key in %s: _id=%v", collection, batch[we.Index]["_id"])
		}
	}

	return failed, nil
}
