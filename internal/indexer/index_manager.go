package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vitebski/mongo-dummy-seeder/internal/connector"
	"github.com/vitebski/mongo-dummy-seeder/pkg/models"
)

// Server error codes for conflicting index definitions.
const (
	codeIndexOptionsConflict  = 85
	codeIndexKeySpecsConflict = 86
	codeNamespaceNotFound     = 26
)

// IndexManager ensures the indexes declared on a collection schema exist
// on the store. A same-name index with identical options is a no-op; a
// same-name index with different options is an IndexConflictError.
type IndexManager struct {
	Store  connector.Store
	Logger *logrus.Logger
}

// NewIndexManager creates an index manager.
func NewIndexManager(store connector.Store, logger *logrus.Logger) *IndexManager {
	return &IndexManager{Store: store, Logger: logger}
}

// EnsureIndexes creates every index declared on the collection schema.
// Callers must invoke this only after bulk loading completes, so unique
// indexes fail loudly on already-violating data.
func (im *IndexManager) EnsureIndexes(ctx context.Context, cs *models.CollectionSchema) error {
	existing, err := im.existingIndexes(ctx, cs.Name)
	if err != nil {
		return fmt.Errorf("listing indexes on %s: %w", cs.Name, err)
	}

	for _, def := range cs.Indexes {
		if spec, ok := existing[def.Name]; ok {
			if SameSignature(spec, def) {
				im.Logger.Debugf("Index %s already exists on %s with identical options", def.Name, cs.Name)
				continue
			}
			return &models.IndexConflictError{
				Collection: cs.Name,
				Index:      def.Name,
				Reason:     describeMismatch(spec, def),
			}
		}

		if err := im.createIndex(ctx, cs.Name, def); err != nil {
			return err
		}
		im.Logger.Infof("Created index %s on %s", def.Name, cs.Name)
	}

	return nil
}

func (im *IndexManager) existingIndexes(ctx context.Context, collection string) (map[string]connector.IndexSpec, error) {
	specs, err := im.Store.ListIndexes(ctx, collection)
	if err != nil {
		// A collection that has never been written to has no indexes.
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceNotFound {
			return map[string]connector.IndexSpec{}, nil
		}
		return nil, err
	}

	byName := make(map[string]connector.IndexSpec, len(specs))
	for _, spec := range specs {
		byName[spec.Name] = spec
	}
	return byName, nil
}

func (im *IndexManager) createIndex(ctx context.Context, collection string, def models.IndexDefinition) error {
	keys := make(bson.D, 0, len(def.Keys))
	for _, key := range def.Keys {
		keys = append(keys, bson.E{Key: key.Field, Value: key.Kind.KeyValue()})
	}

	opts := options.Index().SetName(def.Name)
	if def.Unique {
		opts = opts.SetUnique(true)
	}
	if def.Sparse {
		opts = opts.SetSparse(true)
	}

	_, err := im.Store.CreateIndex(ctx, collection, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		if isConflict(err) {
			return &models.IndexConflictError{
				Collection: collection,
				Index:      def.Name,
				Reason:     err.Error(),
			}
		}
		return fmt.Errorf("creating index %s on %s: %w", def.Name, collection, err)
	}
	return nil
}

func isConflict(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == codeIndexOptionsConflict || cmdErr.Code == codeIndexKeySpecsConflict
	}
	return false
}

// SameSignature compares an existing index specification against a
// declared definition: key fields, key order, key kinds, uniqueness and
// sparseness.
func SameSignature(spec connector.IndexSpec, def models.IndexDefinition) bool {
	if len(spec.Key) != len(def.Keys) {
		return false
	}
	for i, key := range def.Keys {
		if spec.Key[i].Key != key.Field {
			return false
		}
		if !sameKeyValue(spec.Key[i].Value, key.Kind.KeyValue()) {
			return false
		}
	}
	return spec.Unique == def.Unique && spec.Sparse == def.Sparse
}

func sameKeyValue(existing, declared interface{}) bool {
	ev, eNum := asInt(existing)
	dv, dNum := asInt(declared)
	if eNum && dNum {
		return ev == dv
	}
	es, eStr := existing.(string)
	ds, dStr := declared.(string)
	return eStr && dStr && es == ds
}

func asInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func describeMismatch(spec connector.IndexSpec, def models.IndexDefinition) string {
	var parts []string
	if spec.Unique != def.Unique {
		parts = append(parts, fmt.Sprintf("unique: existing=%t declared=%t", spec.Unique, def.Unique))
	}
	if spec.Sparse != def.Sparse {
		parts = append(parts, fmt.Sprintf("sparse: existing=%t declared=%t", spec.Sparse, def.Sparse))
	}
	if len(parts) == 0 {
		parts = append(parts, "key specification differs")
	}
	return strings.Join(parts, ", ")
}
