package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vitebski/mongo-dummy-seeder/pkg/models"
)

func usersOrdersSchema() *models.DatabaseSchema {
	return &models.DatabaseSchema{
		DatabaseName: "shop",
		Collections: []models.CollectionSchema{
			{
				Name: "users",
				Fields: map[string]models.FieldSpec{
					"email": {Type: models.FieldTypeString, Required: true},
					"name":  {Type: models.FieldTypeString},
				},
				Indexes: []models.IndexDefinition{
					{
						Name:   "email_unique",
						Keys:   []models.IndexKey{{Field: "email", Kind: models.Ascending}},
						Unique: true,
					},
				},
			},
			{
				Name: "orders",
				Fields: map[string]models.FieldSpec{
					"user_id": {Type: models.FieldTypeReference, Required: true, Ref: "users"},
					"total":   {Type: models.FieldTypeDouble, Required: true},
				},
			},
		},
	}
}

func TestValidateCleanSchema(t *testing.T) {
	if err := Validate(usersOrdersSchema()); err != nil {
		t.Errorf("Expected clean schema to validate, got %v", err)
	}
}

func TestValidateReportsAllViolations(t *testing.T) {
	s := &models.DatabaseSchema{
		DatabaseName: "broken",
		Collections: []models.CollectionSchema{
			{
				Name: "users",
				Fields: map[string]models.FieldSpec{
					"status": {Type: models.FieldTypeEnum}, // no values
				},
				Indexes: []models.IndexDefinition{
					{Name: "idx_a", Keys: []models.IndexKey{{Field: "missing", Kind: models.Ascending}}},
					{Name: "idx_a", Keys: []models.IndexKey{{Field: "status", Kind: models.Ascending}}},
				},
			},
			{
				Name: "users", // duplicate collection name
				Fields: map[string]models.FieldSpec{
					"ref": {Type: models.FieldTypeReference, Ref: "nowhere"},
				},
			},
		},
	}

	err := Validate(s)
	if err == nil {
		t.Fatal("Expected validation to fail")
	}

	var defErr *models.SchemaDefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("Expected SchemaDefinitionError, got %T", err)
	}

	expected := []string{
		"duplicate collection name",
		"unknown field \"missing\"",
		"duplicate index name",
		"declares no values",
		"unknown collection \"nowhere\"",
	}
	for _, want := range expected {
		found := false
		for _, v := range defErr.Violations {
			if strings.Contains(v, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected a violation containing %q, got %v", want, defErr.Violations)
		}
	}
}

func TestValidateDottedIndexPath(t *testing.T) {
	s := &models.DatabaseSchema{
		DatabaseName: "crm",
		Collections: []models.CollectionSchema{
			{
				Name: "contacts",
				Fields: map[string]models.FieldSpec{
					"address": {
						Type: models.FieldTypeObject,
						Fields: map[string]models.FieldSpec{
							"city": {Type: models.FieldTypeString, Required: true},
						},
					},
				},
				Indexes: []models.IndexDefinition{
					{Name: "city_idx", Keys: []models.IndexKey{{Field: "address.city", Kind: models.Ascending}}},
				},
			},
		},
	}

	if err := Validate(s); err != nil {
		t.Errorf("Expected dotted index path to resolve, got %v", err)
	}
}

func TestDependencies(t *testing.T) {
	s := usersOrdersSchema()
	orders, _ := s.Collection("orders")
	orders.DependsOn = []string{"users"}

	deps := Dependencies(orders)
	if len(deps) != 1 || deps[0] != "users" {
		t.Errorf("Expected deduplicated dependency [users], got %v", deps)
	}
}

func TestInsertionOrder(t *testing.T) {
	// Declare orders before users: the computed order must still put
	// users first.
	s := usersOrdersSchema()
	s.Collections[0], s.Collections[1] = s.Collections[1], s.Collections[0]

	order, err := InsertionOrder(s)
	if err != nil {
		t.Fatalf("Expected insertion order, got error %v", err)
	}
	if len(order) != 2 {
		t.Fatalf("Expected 2 collections in order, got %d", len(order))
	}
	if order[0] != "users" || order[1] != "orders" {
		t.Errorf("Expected [users orders], got %v", order)
	}
}

func TestInsertionOrderKeepsDeclaredOrder(t *testing.T) {
	s := &models.DatabaseSchema{
		DatabaseName: "independent",
		Collections: []models.CollectionSchema{
			{Name: "b", Fields: map[string]models.FieldSpec{"x": {Type: models.FieldTypeString}}},
			{Name: "a", Fields: map[string]models.FieldSpec{"x": {Type: models.FieldTypeString}}},
		},
	}

	order, err := InsertionOrder(s)
	if err != nil {
		t.Fatalf("Expected insertion order, got error %v", err)
	}
	if order[0] != "b" || order[1] != "a" {
		t.Errorf("Expected declared order [b a] to be kept, got %v", order)
	}
}

func TestInsertionOrderRejectsCycles(t *testing.T) {
	s := &models.DatabaseSchema{
		DatabaseName: "cyclic",
		Collections: []models.CollectionSchema{
			{
				Name: "employees",
				Fields: map[string]models.FieldSpec{
					"department_id": {Type: models.FieldTypeReference, Ref: "departments"},
				},
			},
			{
				Name: "departments",
				Fields: map[string]models.FieldSpec{
					"manager_id": {Type: models.FieldTypeReference, Ref: "employees"},
				},
			},
		},
	}

	_, err := InsertionOrder(s)
	if err == nil {
		t.Fatal("Expected cyclic dependencies to be rejected")
	}

	var defErr *models.SchemaDefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("Expected SchemaDefinitionError, got %T", err)
	}
	if !strings.Contains(defErr.Violations[0], "employees") || !strings.Contains(defErr.Violations[0], "departments") {
		t.Errorf("Expected cycle members to be named, got %v", defErr.Violations)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `{
		"database_name": "shop",
		"collections": [
			{
				"name": "users",
				"fields": {
					"email": {"type": "string", "required": true}
				},
				"indexes": [
					{
						"name": "email_unique",
						"keys": [{"field": "email", "kind": "ascending"}],
						"unique": true
					}
				]
			}
		]
	}`

	path := filepath.Join(t.TempDir(), "db_schema.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write schema file: %v", err)
	}

	s, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("Expected schema to load, got %v", err)
	}
	if s.DatabaseName != "shop" {
		t.Errorf("Expected database_name shop, got %s", s.DatabaseName)
	}

	users, ok := s.Collection("users")
	if !ok {
		t.Fatal("Expected users collection")
	}
	if users.Indexes[0].Keys[0].Kind != models.Ascending {
		t.Errorf("Expected ascending index kind, got %v", users.Indexes[0].Keys[0].Kind)
	}
	if !users.Indexes[0].Unique {
		t.Error("Expected unique index")
	}
}

func TestLoadFromFileRejectsInvalidSchema(t *testing.T) {
	content := `{
		"database_name": "shop",
		"collections": [
			{
				"name": "users",
				"fields": {"email": {"type": "string"}},
				"indexes": [
					{"name": "bad", "keys": [{"field": "missing", "kind": "ascending"}]}
				]
			}
		]
	}`

	path := filepath.Join(t.TempDir(), "db_schema.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write schema file: %v", err)
	}

	_, err := LoadFromFile(path)
	var defErr *models.SchemaDefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("Expected SchemaDefinitionError, got %v", err)
	}
}
