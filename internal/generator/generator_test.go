package generator

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vitebski/mongo-dummy-seeder/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func intPtr(n int) *int          { return &n }
func floatPtr(f float64) *float64 { return &f }

func usersSchema() *models.CollectionSchema {
	return &models.CollectionSchema{
		Name: "users",
		Fields: map[string]models.FieldSpec{
			"email":      {Type: models.FieldTypeString, Required: true},
			"age":        {Type: models.FieldTypeInt, Required: true, Min: floatPtr(18), Max: floatPtr(99)},
			"score":      {Type: models.FieldTypeDouble, Required: true, Min: floatPtr(0), Max: floatPtr(1)},
			"status":     {Type: models.FieldTypeEnum, Required: true, Values: []string{"active", "inactive", "banned"}},
			"created_at": {Type: models.FieldTypeDate, Required: true},
			"code":       {Type: models.FieldTypeString, Required: true, MinLength: intPtr(4), MaxLength: intPtr(8)},
			"nickname":   {Type: models.FieldTypeString},
			"tags": {
				Type:     models.FieldTypeArray,
				Required: true,
				Items:    &models.FieldSpec{Type: models.FieldTypeString},
				MinItems: 1,
				MaxItems: 3,
			},
			"profile": {
				Type:     models.FieldTypeObject,
				Required: true,
				Fields: map[string]models.FieldSpec{
					"city": {Type: models.FieldTypeString, Required: true},
				},
			},
		},
	}
}

func ordersSchema() *models.CollectionSchema {
	return &models.CollectionSchema{
		Name: "orders",
		Fields: map[string]models.FieldSpec{
			"user_id": {Type: models.FieldTypeReference, Required: true, Ref: "users"},
			"total":   {Type: models.FieldTypeDouble, Required: true, Min: floatPtr(1), Max: floatPtr(500)},
		},
	}
}

func TestGenerateCount(t *testing.T) {
	gen := NewSeededDocumentGenerator(42, DefaultConfig(), testLogger())

	docs, err := gen.Generate(usersSchema(), 50, nil)
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}
	if len(docs) != 50 {
		t.Errorf("Expected exactly 50 documents, got %d", len(docs))
	}

	for i, doc := range docs {
		if _, ok := doc["_id"].(primitive.ObjectID); !ok {
			t.Errorf("Document %d has no ObjectID _id", i)
		}
	}
}

func TestRequiredFieldsAlwaysPresent(t *testing.T) {
	gen := NewSeededDocumentGenerator(7, DefaultConfig(), testLogger())

	docs, err := gen.Generate(usersSchema(), 100, nil)
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}

	required := []string{"email", "age", "score", "status", "created_at", "code", "tags", "profile"}
	for i, doc := range docs {
		for _, field := range required {
			if _, ok := doc[field]; !ok {
				t.Errorf("Document %d missing required field %s", i, field)
			}
		}
	}
}

func TestConstraintsHonored(t *testing.T) {
	gen := NewSeededDocumentGenerator(99, DefaultConfig(), testLogger())

	docs, err := gen.Generate(usersSchema(), 200, nil)
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}

	allowed := map[string]bool{"active": true, "inactive": true, "banned": true}
	for i, doc := range docs {
		age := doc["age"].(int64)
		if age < 18 || age > 99 {
			t.Errorf("Document %d age %d out of range", i, age)
		}
		score := doc["score"].(float64)
		if score < 0 || score > 1 {
			t.Errorf("Document %d score %f out of range", i, score)
		}
		if !allowed[doc["status"].(string)] {
			t.Errorf("Document %d status %v not in enum", i, doc["status"])
		}
		code := doc["code"].(string)
		if len(code) < 4 || len(code) > 8 {
			t.Errorf("Document %d code length %d out of bounds", i, len(code))
		}
	}
}

func TestReferencesDrawFromPool(t *testing.T) {
	gen := NewSeededDocumentGenerator(11, DefaultConfig(), testLogger())

	pool := make([]primitive.ObjectID, 5)
	inPool := make(map[primitive.ObjectID]bool)
	for i := range pool {
		pool[i] = primitive.NewObjectID()
		inPool[pool[i]] = true
	}
	pools := map[string][]primitive.ObjectID{"users": pool}

	docs, err := gen.Generate(ordersSchema(), 50, pools)
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}

	for i, doc := range docs {
		id, ok := doc["user_id"].(primitive.ObjectID)
		if !ok {
			t.Fatalf("Document %d user_id is not an ObjectID", i)
		}
		if !inPool[id] {
			t.Errorf("Document %d references %s, which is not in the users pool", i, id.Hex())
		}
	}
}

func TestEmptyPoolRequiredReference(t *testing.T) {
	gen := NewSeededDocumentGenerator(11, DefaultConfig(), testLogger())

	_, err := gen.Generate(ordersSchema(), 5, map[string][]primitive.ObjectID{})
	if err == nil {
		t.Fatal("Expected generation to fail with an empty pool")
	}

	var refErr *models.ReferenceIntegrityError
	if !errors.As(err, &refErr) {
		t.Fatalf("Expected ReferenceIntegrityError, got %T", err)
	}
	if refErr.Collection != "orders" || refErr.DependsOn != "users" {
		t.Errorf("Expected error naming orders->users, got %+v", refErr)
	}
}

func TestDeterministicWithSeed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	pool := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()}
	pools := map[string][]primitive.ObjectID{"users": pool}

	first, err := NewSeededDocumentGenerator(1234, cfg, testLogger()).Generate(ordersSchema(), 25, pools)
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}
	second, err := NewSeededDocumentGenerator(1234, cfg, testLogger()).Generate(ordersSchema(), 25, pools)
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical output for identical seeds")
	}
}

func TestDifferentSeedsDiffer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	first, _ := NewSeededDocumentGenerator(1, cfg, testLogger()).Generate(usersSchema(), 10, nil)
	second, _ := NewSeededDocumentGenerator(2, cfg, testLogger()).Generate(usersSchema(), 10, nil)

	if reflect.DeepEqual(first, second) {
		t.Error("Expected different seeds to produce different output")
	}
}

func TestOptionalPresenceProbability(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OptionalProbability = 0.000001
	gen := NewSeededDocumentGenerator(3, cfg, testLogger())

	docs, err := gen.Generate(usersSchema(), 50, nil)
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}

	present := 0
	for _, doc := range docs {
		if _, ok := doc["nickname"]; ok {
			present++
		}
	}
	if present != 0 {
		t.Errorf("Expected optional field to be absent with near-zero probability, present in %d documents", present)
	}
}

func TestDatesWithinRecencyWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cfg.RecencyWindow = 30 * 24 * time.Hour
	gen := NewSeededDocumentGenerator(8, cfg, testLogger())

	docs, err := gen.Generate(usersSchema(), 100, nil)
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}

	earliest := cfg.Now.Add(-cfg.RecencyWindow)
	for i, doc := range docs {
		ts := doc["created_at"].(time.Time)
		if ts.Before(earliest) || ts.After(cfg.Now) {
			t.Errorf("Document %d created_at %v outside recency window", i, ts)
		}
	}
}
