package validator

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vitebski/mongo-dummy-seeder/internal/connector"
	"github.com/vitebski/mongo-dummy-seeder/internal/indexer"
	"github.com/vitebski/mongo-dummy-seeder/pkg/models"
)

// DefaultSampleSize is the number of documents sampled per collection
// when callers do not override it.
const DefaultSampleSize = 10

// duplicateReportLimit caps how many violating value combinations a
// single unique-index check reports.
const duplicateReportLimit = 25

// DocumentChecker is a caller-supplied hook that inspects one sampled
// document and returns error strings for anything the declarative shape
// cannot express.
type DocumentChecker func(doc bson.M) []string

// Validator confirms seeded data structurally and operationally matches
// the schema definition. A collection's failure never aborts the run;
// every collection is checked and reported.
type Validator struct {
	Store  connector.Store
	Logger *logrus.Logger
}

// NewValidator creates a validator.
func NewValidator(store connector.Store, logger *logrus.Logger) *Validator {
	return &Validator{Store: store, Logger: logger}
}

// Validate samples documents from every collection, checks them against
// the declared shape, confirms declared indexes exist with matching
// options, and runs full-collection duplicate checks for unique indexes.
func (v *Validator) Validate(
	ctx context.Context,
	s *models.DatabaseSchema,
	sampleSize int,
	checkers map[string]DocumentChecker,
) (*models.ValidationResult, error) {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	result := models.NewValidationResult()
	for i := range s.Collections {
		cs := &s.Collections[i]
		cv := &models.CollectionValidation{SchemaPassed: true, IndexPassed: true}

		v.checkSchema(ctx, cs, sampleSize, checkers[cs.Name], cv)
		v.checkIndexes(ctx, cs, cv)

		if !cv.Passed() {
			v.Logger.Warningf("Collection %s failed validation with %d error(s)",
				cs.Name, len(cv.SchemaErrors)+len(cv.IndexErrors))
		}
		result.Collections[cs.Name] = cv
	}

	result.Finalize()
	return result, nil
}

func (v *Validator) checkSchema(
	ctx context.Context,
	cs *models.CollectionSchema,
	sampleSize int,
	checker DocumentChecker,
	cv *models.CollectionValidation,
) {
	docs, err := v.Store.FindSample(ctx, cs.Name, int64(sampleSize))
	if err != nil {
		cv.SchemaPassed = false
		cv.SchemaErrors = append(cv.SchemaErrors, fmt.Sprintf("sampling failed: %v", err))
		return
	}

	cv.DocumentsSampled = len(docs)
	for _, doc := range docs {
		cv.SchemaErrors = append(cv.SchemaErrors, checkDocument(cs.Fields, doc)...)
		if checker != nil {
			cv.SchemaErrors = append(cv.SchemaErrors, checker(doc)...)
		}
	}

	if len(cv.SchemaErrors) > 0 {
		cv.SchemaPassed = false
	}
}

func (v *Validator) checkIndexes(ctx context.Context, cs *models.CollectionSchema, cv *models.CollectionValidation) {
	specs, err := v.Store.ListIndexes(ctx, cs.Name)
	if err != nil {
		cv.IndexPassed = false
		cv.IndexErrors = append(cv.IndexErrors, fmt.Sprintf("listing indexes failed: %v", err))
		return
	}

	byName := make(map[string]connector.IndexSpec, len(specs))
	for _, spec := range specs {
		byName[spec.Name] = spec
	}

	for _, def := range cs.Indexes {
		spec, ok := byName[def.Name]
		if !ok {
			cv.IndexErrors = append(cv.IndexErrors, fmt.Sprintf("declared index %q not found", def.Name))
			continue
		}
		if !indexer.SameSignature(spec, def) {
			cv.IndexErrors = append(cv.IndexErrors,
				fmt.Sprintf("index %q exists but its keys or options differ from the declaration", def.Name))
			continue
		}
		if def.Unique {
			cv.IndexErrors = append(cv.IndexErrors, v.checkUniqueness(ctx, cs.Name, def)...)
		}
	}

	if len(cv.IndexErrors) > 0 {
		cv.IndexPassed = false
	}
}

// checkUniqueness runs a full-collection group-and-count over the
// indexed fields and reports any value combination occurring more than
// once. Sparse indexes exclude documents missing the fields first.
func (v *Validator) checkUniqueness(ctx context.Context, collection string, def models.IndexDefinition) []string {
	var pipeline mongo.Pipeline

	if def.Sparse {
		match := bson.D{}
		for _, key := range def.Keys {
			match = append(match, bson.E{Key: key.Field, Value: bson.D{
				{Key: "$exists", Value: true},
				{Key: "$ne", Value: nil},
			}})
		}
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}

	groupID := bson.D{}
	for _, key := range def.Keys {
		groupID = append(groupID, bson.E{Key: groupKeyName(key.Field), Value: "$" + key.Field})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: groupID},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "count", Value: bson.D{{Key: "$gt", Value: 1}}},
		}}},
		bson.D{{Key: "$limit", Value: duplicateReportLimit}},
	)

	duplicates, err := v.Store.Aggregate(ctx, collection, pipeline)
	if err != nil {
		return []string{fmt.Sprintf("duplicate check for index %q failed: %v", def.Name, err)}
	}

	var errs []string
	for _, dup := range duplicates {
		errs = append(errs, fmt.Sprintf("unique index %q violated: value %v occurs %v times",
			def.Name, formatValue(dup["_id"]), dup["count"]))
	}
	return errs
}

// groupKeyName makes a dotted field path safe as a $group _id key.
func groupKeyName(field string) string {
	return strings.ReplaceAll(field, ".", "_")
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case bson.M:
		parts := make([]string, 0, len(val))
		for _, k := range sortedKeys(val) {
			parts = append(parts, fmt.Sprintf("%s=%v", k, val[k]))
		}
		return strings.Join(parts, ", ")
	case bson.D:
		parts := make([]string, 0, len(val))
		for _, e := range val {
			parts = append(parts, fmt.Sprintf("%s=%v", e.Key, e.Value))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// checkDocument coerces one sampled document against the declared shape
// and returns one error string per violation.
func checkDocument(fields map[string]models.FieldSpec, doc bson.M) []string {
	var errs []string
	for _, name := range sortedFieldNames(fields) {
		spec := fields[name]
		value, present := doc[name]
		if !present || value == nil {
			if spec.Required {
				if present {
					errs = append(errs, fmt.Sprintf("field %q expected %s, got null", name, spec.Type))
				} else {
					errs = append(errs, fmt.Sprintf("field %q is required but missing", name))
				}
			}
			continue
		}
		errs = append(errs, checkValue(name, &spec, value)...)
	}
	return errs
}

func checkValue(path string, spec *models.FieldSpec, value interface{}) []string {
	switch spec.Type {
	case models.FieldTypeString:
		return checkString(path, spec, value)
	case models.FieldTypeInt:
		return checkInt(path, spec, value)
	case models.FieldTypeDouble:
		return checkDouble(path, spec, value)
	case models.FieldTypeBool:
		if _, ok := value.(bool); !ok {
			return []string{typeError(path, "bool", value)}
		}
	case models.FieldTypeDate:
		switch value.(type) {
		case primitive.DateTime, time.Time:
		default:
			return []string{typeError(path, "date", value)}
		}
	case models.FieldTypeObjectID, models.FieldTypeReference:
		if _, ok := value.(primitive.ObjectID); !ok {
			return []string{typeError(path, "objectId", value)}
		}
	case models.FieldTypeEnum:
		return checkEnum(path, spec, value)
	case models.FieldTypeArray:
		return checkArray(path, spec, value)
	case models.FieldTypeObject:
		return checkObject(path, spec, value)
	}
	return nil
}

func checkString(path string, spec *models.FieldSpec, value interface{}) []string {
	s, ok := value.(string)
	if !ok {
		return []string{typeError(path, "string", value)}
	}

	var errs []string
	if spec.MinLength != nil && len(s) < *spec.MinLength {
		errs = append(errs, fmt.Sprintf("field %q length %d below min_length %d", path, len(s), *spec.MinLength))
	}
	if spec.MaxLength != nil && len(s) > *spec.MaxLength {
		errs = append(errs, fmt.Sprintf("field %q length %d above max_length %d", path, len(s), *spec.MaxLength))
	}
	if spec.Pattern != "" {
		if matched, err := regexp.MatchString(spec.Pattern, s); err == nil && !matched {
			errs = append(errs, fmt.Sprintf("field %q value %q does not match pattern %q", path, s, spec.Pattern))
		}
	}
	return errs
}

func checkInt(path string, spec *models.FieldSpec, value interface{}) []string {
	var n int64
	switch num := value.(type) {
	case int32:
		n = int64(num)
	case int64:
		n = num
	case int:
		n = int64(num)
	default:
		return []string{typeError(path, "int", value)}
	}
	return checkRange(path, spec, float64(n))
}

func checkDouble(path string, spec *models.FieldSpec, value interface{}) []string {
	var f float64
	switch num := value.(type) {
	case float64:
		f = num
	case int32:
		f = float64(num)
	case int64:
		f = float64(num)
	default:
		return []string{typeError(path, "double", value)}
	}
	return checkRange(path, spec, f)
}

func checkRange(path string, spec *models.FieldSpec, f float64) []string {
	var errs []string
	if spec.Min != nil && f < *spec.Min {
		errs = append(errs, fmt.Sprintf("field %q value %v below min %v", path, f, *spec.Min))
	}
	if spec.Max != nil && f > *spec.Max {
		errs = append(errs, fmt.Sprintf("field %q value %v above max %v", path, f, *spec.Max))
	}
	return errs
}

func checkEnum(path string, spec *models.FieldSpec, value interface{}) []string {
	s, ok := value.(string)
	if !ok {
		return []string{typeError(path, "enum", value)}
	}
	for _, allowed := range spec.Values {
		if s == allowed {
			return nil
		}
	}
	return []string{fmt.Sprintf("field %q value %q not in enum [%s]", path, s, strings.Join(spec.Values, ", "))}
}

func checkArray(path string, spec *models.FieldSpec, value interface{}) []string {
	var items []interface{}
	switch arr := value.(type) {
	case bson.A:
		items = arr
	case []interface{}:
		items = arr
	default:
		return []string{typeError(path, "array", value)}
	}

	var errs []string
	if len(items) < spec.MinItems {
		errs = append(errs, fmt.Sprintf("field %q has %d items, below min_items %d", path, len(items), spec.MinItems))
	}
	if spec.MaxItems > 0 && len(items) > spec.MaxItems {
		errs = append(errs, fmt.Sprintf("field %q has %d items, above max_items %d", path, len(items), spec.MaxItems))
	}
	if spec.Items != nil {
		for i, item := range items {
			if item == nil {
				errs = append(errs, fmt.Sprintf("field %q[%d] expected %s, got null", path, i, spec.Items.Type))
				continue
			}
			errs = append(errs, checkValue(fmt.Sprintf("%s[%d]", path, i), spec.Items, item)...)
		}
	}
	return errs
}

func checkObject(path string, spec *models.FieldSpec, value interface{}) []string {
	var doc bson.M
	switch obj := value.(type) {
	case bson.M:
		doc = obj
	case bson.D:
		doc = make(bson.M, len(obj))
		for _, e := range obj {
			doc[e.Key] = e.Value
		}
	default:
		return []string{typeError(path, "object", value)}
	}

	var errs []string
	for _, sub := range checkDocument(spec.Fields, doc) {
		errs = append(errs, fmt.Sprintf("%s: %s", path, sub))
	}
	return errs
}

func typeError(path, expected string, value interface{}) string {
	return fmt.Sprintf("field %q expected %s, got %T", path, expected, value)
}

func sortedFieldNames(fields map[string]models.FieldSpec) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedKeys(m bson.M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
