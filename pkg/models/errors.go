package models

import (
	"fmt"
	"strings"
)

// SchemaDefinitionError reports an internally inconsistent schema
// definition. It carries every violation found, not just the first, so
// authors can fix all problems in one pass.
type SchemaDefinitionError struct {
	Violations []string
}

func (e *SchemaDefinitionError) Error() string {
	return fmt.Sprintf("schema definition has %d violation(s): %s",
		len(e.Violations), strings.Join(e.Violations, "; "))
}

// ReferenceIntegrityError reports that generating a collection required
// an identifier pool that was missing or empty. This signals a
// dependency-ordering bug in the schema or invocation sequence, not a
// transient failure.
type ReferenceIntegrityError struct {
	Collection string
	Field      string
	DependsOn  string
}

func (e *ReferenceIntegrityError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("collection %q field %q references %q but its identifier pool is empty",
			e.Collection, e.Field, e.DependsOn)
	}
	return fmt.Sprintf("collection %q depends on %q but no identifier pool is available",
		e.Collection, e.DependsOn)
}

// LoadError reports an unrecoverable write failure during bulk loading.
// It is fatal for the current run; retries are the caller's choice.
type LoadError struct {
	Collection string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("bulk load into %q failed: %v", e.Collection, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IndexConflictError reports that an index with the declared name
// already exists with different options. Requires manual resolution.
type IndexConflictError struct {
	Collection string
	Index      string
	Reason     string
}

func (e *IndexConflictError) Error() string {
	return fmt.Sprintf("index %q on collection %q conflicts with an existing index: %s",
		e.Index, e.Collection, e.Reason)
}
