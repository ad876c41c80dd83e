package core

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors.
var (
	// ErrNotFound is returned when a document, extension or schema is missing.
	ErrNotFound = errors.New("not found")

	// ErrMalformedDocument is returned when the frontmatter framing or the header cannot be decoded.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrCircularSchemaDependency is returned when schema inheritance loops back on itself.
	ErrCircularSchemaDependency = errors.New("circular schema dependency")

	// ErrDuplicateIdentifier is returned when an identifier is already present in the index.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")

	// ErrStoreUnavailable is returned when the index store cannot be opened or queried.
	ErrStoreUnavailable = errors.New("index store unavailable")

	// ErrValidation is returned for structural problems in otherwise parseable content.
	ErrValidation = errors.New("validation error")

	ErrExtensionNotFound = fmt.Errorf("extension %w", ErrNotFound)
	ErrSchemaNotFound    = fmt.Errorf("schema %w", ErrNotFound)
)

// CycleError reports the schema that was re-entered during resolution
// together with the chain that led back to it.
type CycleError struct {
	Schema string
	Chain  []string
}

func (e *CycleError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("circular schema dependency involving %q", e.Schema)
	}
	return fmt.Sprintf("circular schema dependency involving %q: %s", e.Schema, strings.Join(e.Chain, " -> "))
}

func (e *CycleError) Unwrap() error {
	return ErrCircularSchemaDependency
}

// DocumentError attaches the relative path of the offending file to a
// codec or store failure.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}
