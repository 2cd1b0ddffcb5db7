package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIndexKindJSON(t *testing.T) {
	kinds := []IndexKind{Ascending, Descending, Text, Hashed}
	names := []string{"ascending", "descending", "text", "hashed"}

	for i, kind := range kinds {
		data, err := json.Marshal(kind)
		if err != nil {
			t.Fatalf("Marshal %v failed: %v", kind, err)
		}
		if string(data) != fmt.Sprintf("%q", names[i]) {
			t.Errorf("Expected %q, got %s", names[i], data)
		}

		var back IndexKind
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal %s failed: %v", data, err)
		}
		if back != kind {
			t.Errorf("Round trip changed %v to %v", kind, back)
		}
	}
}

func TestIndexKindRejectsUnknownName(t *testing.T) {
	var kind IndexKind
	if err := json.Unmarshal([]byte(`"geospatial"`), &kind); err == nil {
		t.Error("Expected unknown kind name to be rejected")
	}
}

func TestIndexKindKeyValue(t *testing.T) {
	if Ascending.KeyValue() != int32(1) {
		t.Errorf("Expected ascending to be 1, got %v", Ascending.KeyValue())
	}
	if Descending.KeyValue() != int32(-1) {
		t.Errorf("Expected descending to be -1, got %v", Descending.KeyValue())
	}
	if Text.KeyValue() != "text" {
		t.Errorf("Expected text kind, got %v", Text.KeyValue())
	}
	if Hashed.KeyValue() != "hashed" {
		t.Errorf("Expected hashed kind, got %v", Hashed.KeyValue())
	}
}

func TestDatabaseSchemaCollectionLookup(t *testing.T) {
	s := &DatabaseSchema{
		DatabaseName: "shop",
		Collections: []CollectionSchema{
			{Name: "users"},
			{Name: "orders"},
		},
	}

	users, ok := s.Collection("users")
	if !ok || users.Name != "users" {
		t.Error("Expected users collection to be found")
	}
	if _, ok := s.Collection("ghosts"); ok {
		t.Error("Expected unknown collection lookup to fail")
	}

	names := s.CollectionNames()
	if len(names) != 2 || names[0] != "users" || names[1] != "orders" {
		t.Errorf("Expected declared order [users orders], got %v", names)
	}
}

func TestValidationResultFinalize(t *testing.T) {
	result := NewValidationResult()
	result.Collections["users"] = &CollectionValidation{
		SchemaPassed:     true,
		IndexPassed:      true,
		DocumentsSampled: 10,
	}
	result.Collections["orders"] = &CollectionValidation{
		SchemaPassed:     false,
		SchemaErrors:     []string{"field \"total\" is required but missing"},
		IndexPassed:      true,
		DocumentsSampled: 5,
	}
	result.Finalize()

	s := result.Summary
	if s.TotalCollections != 2 {
		t.Errorf("Expected 2 collections, got %d", s.TotalCollections)
	}
	if s.SchemaPassedCount != 1 || s.IndexPassedCount != 2 {
		t.Errorf("Expected schema 1/2 and index 2/2, got %d and %d", s.SchemaPassedCount, s.IndexPassedCount)
	}
	if s.DocumentsSampled != 15 {
		t.Errorf("Expected 15 documents sampled, got %d", s.DocumentsSampled)
	}
	if s.TotalErrors != 1 {
		t.Errorf("Expected 1 error, got %d", s.TotalErrors)
	}
	if s.OverallSuccess {
		t.Error("Expected overall failure when any collection fails")
	}
}

func TestValidationResultFinalizeAllPassing(t *testing.T) {
	result := NewValidationResult()
	result.Collections["users"] = &CollectionValidation{SchemaPassed: true, IndexPassed: true}
	result.Finalize()

	if !result.Summary.OverallSuccess {
		t.Error("Expected overall success when every collection passes")
	}
}

func TestSchemaDefinitionErrorMessage(t *testing.T) {
	err := &SchemaDefinitionError{Violations: []string{"first", "second"}}
	msg := err.Error()
	if !strings.Contains(msg, "2 violation(s)") {
		t.Errorf("Expected violation count in message, got %q", msg)
	}
	if !strings.Contains(msg, "first") || !strings.Contains(msg, "second") {
		t.Errorf("Expected all violations in message, got %q", msg)
	}
}

func TestReferenceIntegrityErrorMessage(t *testing.T) {
	withField := &ReferenceIntegrityError{Collection: "orders", Field: "user_id", DependsOn: "users"}
	if !strings.Contains(withField.Error(), `field "user_id"`) {
		t.Errorf("Expected field in message, got %q", withField.Error())
	}

	withoutField := &ReferenceIntegrityError{Collection: "orders", DependsOn: "users"}
	if !strings.Contains(withoutField.Error(), `depends on "users"`) {
		t.Errorf("Expected dependency in message, got %q", withoutField.Error())
	}
}

func TestLoadErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &LoadError{Collection: "users", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("Expected LoadError to unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "users") {
		t.Errorf("Expected collection name in message, got %q", err.Error())
	}
}

func TestFieldSpecJSONRoundTrip(t *testing.T) {
	minLen := 4
	spec := FieldSpec{
		Type:      FieldTypeString,
		Required:  true,
		MinLength: &minLen,
		Pattern:   "^[a-z]+$",
	}

	data, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back FieldSpec
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.Type != FieldTypeString || !back.Required || back.Pattern != "^[a-z]+$" {
		t.Errorf("Round trip lost data: %+v", back)
	}
	if back.MinLength == nil || *back.MinLength != 4 {
		t.Error("Round trip lost min_length")
	}
}
