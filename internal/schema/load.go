package schema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vitebski/mongo-dummy-seeder/pkg/models"
)

// LoadFromFile reads a JSON schema-definition artifact, as produced by
// the upstream design step, and validates it before returning.
func LoadFromFile(path string) (*models.DatabaseSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file %s: %w", path, err)
	}

	var s models.DatabaseSchema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing schema file %s: %w", path, err)
	}

	if err := Validate(&s); err != nil {
		return nil, err
	}

	return &s, nil
}
