package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/yourbasic/graph"

	"github.com/vitebski/mongo-dummy-seeder/pkg/models"
)

// Validate performs the structural self-checks on a schema definition:
// duplicate collection names, duplicate index names within a collection,
// index keys that do not resolve to a declared field, references to
// unknown collections, and malformed field constraints. Every violation
// found is accumulated into a single SchemaDefinitionError.
func Validate(s *models.DatabaseSchema) error {
	var violations []string

	if s.DatabaseName == "" {
		violations = append(violations, "database_name is required")
	}
	if len(s.Collections) == 0 {
		violations = append(violations, "schema declares no collections")
	}

	seen := make(map[string]bool)
	for i := range s.Collections {
		cs := &s.Collections[i]
		if cs.Name == "" {
			violations = append(violations, fmt.Sprintf("collection #%d has no name", i))
			continue
		}
		if seen[cs.Name] {
			violations = append(violations, fmt.Sprintf("duplicate collection name %q", cs.Name))
		}
		seen[cs.Name] = true
	}

	for i := range s.Collections {
		cs := &s.Collections[i]
		violations = append(violations, validateCollection(s, cs)...)
	}

	if len(violations) > 0 {
		return &models.SchemaDefinitionError{Violations: violations}
	}
	return nil
}

func validateCollection(s *models.DatabaseSchema, cs *models.CollectionSchema) []string {
	var violations []string

	if len(cs.Fields) == 0 {
		violations = append(violations, fmt.Sprintf("collection %q declares no fields", cs.Name))
	}

	for _, name := range sortedFieldNames(cs.Fields) {
		spec := cs.Fields[name]
		violations = append(violations, validateFieldSpec(s, cs.Name, name, &spec)...)
	}

	indexNames := make(map[string]bool)
	for _, idx := range cs.Indexes {
		if idx.Name == "" {
			violations = append(violations, fmt.Sprintf("collection %q has an index with no name", cs.Name))
			continue
		}
		if indexNames[idx.Name] {
			violations = append(violations, fmt.Sprintf("collection %q has duplicate index name %q", cs.Name, idx.Name))
		}
		indexNames[idx.Name] = true

		if len(idx.Keys) == 0 {
			violations = append(violations, fmt.Sprintf("index %q on %q has no keys", idx.Name, cs.Name))
		}
		for _, key := range idx.Keys {
			if !fieldExists(cs.Fields, key.Field) {
				violations = append(violations,
					fmt.Sprintf("index %q on %q references unknown field %q", idx.Name, cs.Name, key.Field))
			}
		}
	}

	for _, dep := range cs.DependsOn {
		if _, ok := s.Collection(dep); !ok {
			violations = append(violations,
				fmt.Sprintf("collection %q depends on unknown collection %q", cs.Name, dep))
		}
	}

	return violations
}

func validateFieldSpec(s *models.DatabaseSchema, collection, field string, spec *models.FieldSpec) []string {
	var violations []string
	at := fmt.Sprintf("%s.%s", collection, field)

	switch spec.Type {
	case models.FieldTypeString, models.FieldTypeInt, models.FieldTypeDouble,
		models.FieldTypeBool, models.FieldTypeDate, models.FieldTypeObjectID:
	case models.FieldTypeEnum:
		if len(spec.Values) == 0 {
			violations = append(violations, fmt.Sprintf("enum field %s declares no values", at))
		}
		if len(spec.Weights) > 0 && len(spec.Weights) != len(spec.Values) {
			violations = append(violations,
				fmt.Sprintf("enum field %s has %d weights for %d values", at, len(spec.Weights), len(spec.Values)))
		}
	case models.FieldTypeArray:
		if spec.Items == nil {
			violations = append(violations, fmt.Sprintf("array field %s declares no item spec", at))
		} else {
			violations = append(violations, validateFieldSpec(s, collection, field+"[]", spec.Items)...)
		}
		if spec.MaxItems > 0 && spec.MinItems > spec.MaxItems {
			violations = append(violations, fmt.Sprintf("array field %s has min_items > max_items", at))
		}
	case models.FieldTypeObject:
		if len(spec.Fields) == 0 {
			violations = append(violations, fmt.Sprintf("object field %s declares no nested fields", at))
		}
		for _, sub := range sortedFieldNames(spec.Fields) {
			subSpec := spec.Fields[sub]
			violations = append(violations, validateFieldSpec(s, collection, field+"."+sub, &subSpec)...)
		}
	case models.FieldTypeReference:
		if spec.Ref == "" {
			violations = append(violations, fmt.Sprintf("reference field %s names no target collection", at))
		} else if _, ok := s.Collection(spec.Ref); !ok {
			violations = append(violations,
				fmt.Sprintf("reference field %s targets unknown collection %q", at, spec.Ref))
		}
	default:
		violations = append(violations, fmt.Sprintf("field %s has unknown type %q", at, spec.Type))
	}

	if spec.MinLength != nil && spec.MaxLength != nil && *spec.MinLength > *spec.MaxLength {
		violations = append(violations, fmt.Sprintf("field %s has min_length > max_length", at))
	}
	if spec.Min != nil && spec.Max != nil && *spec.Min > *spec.Max {
		violations = append(violations, fmt.Sprintf("field %s has min > max", at))
	}
	if spec.Pattern != "" {
		if _, err := regexp.Compile(spec.Pattern); err != nil {
			violations = append(violations, fmt.Sprintf("field %s has invalid pattern: %v", at, err))
		}
	}

	return violations
}

// fieldExists resolves a possibly dotted path against the declared shape,
// descending into nested objects and array item shapes.
func fieldExists(fields map[string]models.FieldSpec, path string) bool {
	parts := strings.Split(path, ".")
	current := fields
	for i, part := range parts {
		spec, ok := current[part]
		if !ok {
			return false
		}
		if i == len(parts)-1 {
			return true
		}
		switch spec.Type {
		case models.FieldTypeObject:
			current = spec.Fields
		case models.FieldTypeArray:
			if spec.Items == nil || spec.Items.Type != models.FieldTypeObject {
				return false
			}
			current = spec.Items.Fields
		default:
			return false
		}
	}
	return false
}

// Dependencies returns the collections that must be seeded before the
// given one: the declared depends_on list plus every collection targeted
// by a reference field, deduplicated.
func Dependencies(cs *models.CollectionSchema) []string {
	seen := make(map[string]bool)
	var deps []string

	add := func(name string) {
		if name != "" && name != cs.Name && !seen[name] {
			seen[name] = true
			deps = append(deps, name)
		}
	}

	for _, dep := range cs.DependsOn {
		add(dep)
	}
	for _, name := range sortedFieldNames(cs.Fields) {
		spec := cs.Fields[name]
		collectRefs(&spec, add)
	}

	return deps
}

func collectRefs(spec *models.FieldSpec, add func(string)) {
	switch spec.Type {
	case models.FieldTypeReference:
		add(spec.Ref)
	case models.FieldTypeArray:
		if spec.Items != nil {
			collectRefs(spec.Items, add)
		}
	case models.FieldTypeObject:
		for _, name := range sortedFieldNames(spec.Fields) {
			sub := spec.Fields[name]
			collectRefs(&sub, add)
		}
	}
}

// InsertionOrder returns a seeding order in which every collection comes
// after all of its dependencies. The declared collection order is kept
// wherever dependencies allow. Cyclic dependencies are rejected with a
// SchemaDefinitionError naming the collections involved.
func InsertionOrder(s *models.DatabaseSchema) ([]string, error) {
	n := len(s.Collections)
	indexOf := make(map[string]int, n)
	for i := range s.Collections {
		indexOf[s.Collections[i].Name] = i
	}

	// Edges run dependency -> dependent.
	g := graph.New(n)
	deps := make(map[string][]string, n)
	for i := range s.Collections {
		cs := &s.Collections[i]
		deps[cs.Name] = Dependencies(cs)
		for _, dep := range deps[cs.Name] {
			if j, ok := indexOf[dep]; ok {
				g.Add(j, i)
			}
		}
	}

	if !graph.Acyclic(g) {
		var cyclic []string
		for _, component := range graph.StrongComponents(g) {
			if len(component) < 2 {
				continue
			}
			for _, v := range component {
				cyclic = append(cyclic, s.Collections[v].Name)
			}
		}
		sort.Strings(cyclic)
		return nil, &models.SchemaDefinitionError{
			Violations: []string{
				fmt.Sprintf("cyclic collection dependencies: %s", strings.Join(cyclic, ", ")),
			},
		}
	}

	// Stable topological sort: repeatedly take the first declared
	// collection whose dependencies are all placed.
	placed := make(map[string]bool, n)
	order := make([]string, 0, n)
	for len(order) < n {
		progressed := false
		for i := range s.Collections {
			name := s.Collections[i].Name
			if placed[name] {
				continue
			}
			ready := true
			for _, dep := range deps[name] {
				if _, known := indexOf[dep]; known && !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				order = append(order, name)
				placed[name] = true
				progressed = true
			}
		}
		if !progressed {
			// Unreachable once Acyclic passed, kept as a guard.
			return nil, &models.SchemaDefinitionError{
				Violations: []string{"unable to order collections: unresolved dependencies"},
			}
		}
	}

	return order, nil
}

func sortedFieldNames(fields map[string]models.FieldSpec) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
