package models

import (
	"encoding/json"
	"fmt"
)

// FieldType is the closed set of value kinds a document field may hold.
type FieldType string

const (
	FieldTypeString    FieldType = "string"
	FieldTypeInt       FieldType = "int"
	FieldTypeDouble    FieldType = "double"
	FieldTypeBool      FieldType = "bool"
	FieldTypeDate      FieldType = "date"
	FieldTypeObjectID  FieldType = "objectId"
	FieldTypeEnum      FieldType = "enum"
	FieldTypeArray     FieldType = "array"
	FieldTypeObject    FieldType = "object"
	FieldTypeReference FieldType = "reference"
)

// FieldSpec describes one field of a collection's document shape,
// including the constraints the generator must honor and the validator
// must check.
type FieldSpec struct {
	Type      FieldType `json:"type"`
	Required  bool      `json:"required,omitempty"`
	MinLength *int      `json:"min_length,omitempty"`
	MaxLength *int      `json:"max_length,omitempty"`
	Pattern   string    `json:"pattern,omitempty"`
	Min       *float64  `json:"min,omitempty"`
	Max       *float64  `json:"max,omitempty"`

	// Enum constraints. Weights, when present, must be the same length
	// as Values and bias the generator's draw.
	Values  []string  `json:"values,omitempty"`
	Weights []float64 `json:"weights,omitempty"`

	// Array constraints.
	Items    *FieldSpec `json:"items,omitempty"`
	MinItems int        `json:"min_items,omitempty"`
	MaxItems int        `json:"max_items,omitempty"`

	// Nested object shape.
	Fields map[string]FieldSpec `json:"fields,omitempty"`

	// Ref names the collection whose identifier pool a reference field
	// draws from.
	Ref string `json:"ref,omitempty"`
}

// IndexKind is the direction or kind of a single index key.
type IndexKind int8

const (
	Ascending IndexKind = iota
	Descending
	Text
	Hashed
)

var indexKindNames = map[IndexKind]string{
	Ascending:  "ascending",
	Descending: "descending",
	Text:       "text",
	Hashed:     "hashed",
}

func (k IndexKind) String() string {
	if name, ok := indexKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("IndexKind(%d)", int8(k))
}

// KeyValue returns the value MongoDB expects for this kind in an index
// key document: 1, -1, "text" or "hashed".
func (k IndexKind) KeyValue() interface{} {
	switch k {
	case Ascending:
		return int32(1)
	case Descending:
		return int32(-1)
	case Text:
		return "text"
	case Hashed:
		return "hashed"
	default:
		return int32(1)
	}
}

// MarshalJSON renders the kind as its lowercase name.
func (k IndexKind) MarshalJSON() ([]byte, error) {
	name, ok := indexKindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown index kind %d", int8(k))
	}
	return json.Marshal(name)
}

// UnmarshalJSON accepts the lowercase kind names used in schema files.
func (k *IndexKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for kind, kindName := range indexKindNames {
		if kindName == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown index kind %q", name)
}

// IndexKey is one field of an index, with its direction or kind.
type IndexKey struct {
	Field string    `json:"field"`
	Kind  IndexKind `json:"kind"`
}

// IndexDefinition declares one index on a collection.
type IndexDefinition struct {
	Name   string     `json:"name"`
	Keys   []IndexKey `json:"keys"`
	Unique bool       `json:"unique,omitempty"`
	Sparse bool       `json:"sparse,omitempty"`
}

// CollectionSchema declares one collection: its document shape, indexes
// and the collections it depends on for reference fields. DependsOn is
// declared by the schema author; reference fields are additionally
// inferred when computing insertion order.
type CollectionSchema struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Fields      map[string]FieldSpec `json:"fields"`
	Indexes     []IndexDefinition    `json:"indexes,omitempty"`
	DependsOn   []string             `json:"depends_on,omitempty"`
}

// DatabaseSchema is the full declarative definition for one database.
// Collections are ordered; the declared order is the author's intended
// seeding order.
type DatabaseSchema struct {
	DatabaseName string             `json:"database_name"`
	Description  string             `json:"description,omitempty"`
	Collections  []CollectionSchema `json:"collections"`
}

// Collection returns the schema for the named collection.
func (s *DatabaseSchema) Collection(name string) (*CollectionSchema, bool) {
	for i := range s.Collections {
		if s.Collections[i].Name == name {
			return &s.Collections[i], true
		}
	}
	return nil, false
}

// CollectionNames returns the declared collection names in order.
func (s *DatabaseSchema) CollectionNames() []string {
	names := make([]string, 0, len(s.Collections))
	for i := range s.Collections {
		names = append(names, s.Collections[i].Name)
	}
	return names
}

// CollectionValidation holds one collection's validation outcome.
type CollectionValidation struct {
	SchemaPassed     bool     `json:"schema_passed"`
	SchemaErrors     []string `json:"schema_errors,omitempty"`
	IndexPassed      bool     `json:"index_passed"`
	IndexErrors      []string `json:"index_errors,omitempty"`
	DocumentsSampled int      `json:"documents_sampled"`
}

// Passed reports whether both schema and index validation succeeded.
func (cv *CollectionValidation) Passed() bool {
	return cv.SchemaPassed && cv.IndexPassed
}

// ValidationSummary aggregates the per-collection results.
type ValidationSummary struct {
	TotalCollections  int  `json:"total_collections"`
	SchemaPassedCount int  `json:"schema_passed_count"`
	IndexPassedCount  int  `json:"index_passed_count"`
	DocumentsSampled  int  `json:"documents_sampled"`
	TotalErrors       int  `json:"total_errors"`
	OverallSuccess    bool `json:"overall_success"`
}

// ValidationResult is the report returned by a validation run. It is
// built fresh per run and not mutated after Finalize.
type ValidationResult struct {
	Collections map[string]*CollectionValidation `json:"collections"`
	Summary     ValidationSummary                `json:"validation_summary"`
}

// NewValidationResult returns an empty result ready to accumulate
// per-collection entries.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Collections: make(map[string]*CollectionValidation),
	}
}

// Finalize computes the summary from the accumulated collection entries.
// OverallSuccess is the logical AND of every collection's combined
// schema and index outcome.
func (r *ValidationResult) Finalize() {
	summary := ValidationSummary{
		TotalCollections: len(r.Collections),
		OverallSuccess:   true,
	}

	for _, cv := range r.Collections {
		if cv.SchemaPassed {
			summary.SchemaPassedCount++
		}
		if cv.IndexPassed {
			summary.IndexPassedCount++
		}
		if !cv.Passed() {
			summary.OverallSuccess = false
		}
		summary.DocumentsSampled += cv.DocumentsSampled
		summary.TotalErrors += len(cv.SchemaErrors) + len(cv.IndexErrors)
	}

	r.Summary = summary
}
