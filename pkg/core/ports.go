package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WalkFunc is called for every candidate document file. err is non-nil
// when the file could not be read or parsed; returning an error stops the walk.
type WalkFunc func(relPath string, doc Document, err error) error

// Store owns the on-disk document bytes. Paths are relative to the vault root.
type Store interface {
	Read(ctx context.Context, relPath string) (Document, error)

	// Write creates missing parent directories and overwrites the file.
	// It does not touch the index.
	Write(ctx context.Context, relPath string, doc Document) error

	// Remove deletes the file. A missing file is not an error.
	Remove(ctx context.Context, relPath string) error

	Walk(ctx context.Context, fn WalkFunc) error

	// ScanAll returns the identifier of every parseable document, ordered by path.
	ScanAll(ctx context.Context) ([]IndexEntry, error)

	// NewPath derives an unused relative path for a document of the namespace created at t.
	NewPath(namespace string, t time.Time) (string, error)
}

// Index is the derived identifier -> path lookup table. It is never authoritative.
type Index interface {
	Insert(ctx context.Context, id uuid.UUID, relPath string) error
	Lookup(ctx context.Context, id uuid.UUID) (string, bool, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Rebuild replaces the whole table content with entries in one transaction.
	Rebuild(ctx context.Context, entries []IndexEntry) error
	Close() error
}

// SchemaLoader produces the resolved registry of extensions and schemas.
type SchemaLoader interface {
	Load(ctx context.Context) (*Registry, error)
}

// Layout checks the fixed directory layout of a vault.
type Layout interface {
	// Verify returns the missing layout entries, creating them first when fix is set.
	Verify(fix bool) ([]string, error)
}
