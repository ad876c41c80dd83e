// Package sqlite implements the secondary index over an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/bkase/aethel/pkg/core"
)

const schemaDDL = `CREATE TABLE IF NOT EXISTS artifacts (
  uuid TEXT PRIMARY KEY NOT NULL,
  filepath TEXT NOT NULL
)`

// Index maps artifact identifiers to vault-relative paths.
type Index struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	mu          sync.RWMutex
	lastRebuild *time.Time
	rebuilt     int
}

// Open opens or creates the index database at path, creating parent directories.
// Failures are reported as core.ErrStoreUnavailable.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, unavailable("create index directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, unavailable("open index", err)
	}
	// SQLite doesn't support concurrent writes; a single connection also
	// serializes lookups behind an in-flight rebuild.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, unavailable("configure index", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, unavailable("create artifacts table", err)
	}

	logger.Debug("index opened", "path", path)
	return &Index{db: db, path: path, logger: logger}, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", core.ErrStoreUnavailable, op, err)
}

// Close releases the database handle.
func (x *Index) Close() error {
	return x.db.Close()
}

// Insert records a new entry. An existing identifier fails with core.ErrDuplicateIdentifier.
func (x *Index) Insert(ctx context.Context, id uuid.UUID, relPath string) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin insert", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, "SELECT filepath FROM artifacts WHERE uuid = ?", id.String()).Scan(&existing)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s already indexed at %s", core.ErrDuplicateIdentifier, id, existing)
	case !errors.Is(err, sql.ErrNoRows):
		return unavailable("query index", err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO artifacts (uuid, filepath) VALUES (?, ?)", id.String(), relPath); err != nil {
		return unavailable("insert entry", err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit insert", err)
	}
	return nil
}

// Lookup returns the path recorded for id. The boolean is false when absent.
func (x *Index) Lookup(ctx context.Context, id uuid.UUID) (string, bool, error) {
	var relPath string
	err := x.db.QueryRowContext(ctx, "SELECT filepath FROM artifacts WHERE uuid = ?", id.String()).Scan(&relPath)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("query index", err)
	}
	return relPath, true, nil
}

// Delete removes the entry for id. Deleting an absent id is not an error.
func (x *Index) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := x.db.ExecContext(ctx, "DELETE FROM artifacts WHERE uuid = ?", id.String()); err != nil {
		return unavailable("delete entry", err)
	}
	return nil
}

// Entries returns every entry ordered by path.
func (x *Index) Entries(ctx context.Context) ([]core.IndexEntry, error) {
	rows, err := x.db.QueryContext(ctx, "SELECT uuid, filepath FROM artifacts ORDER BY filepath, uuid")
	if err != nil {
		return nil, unavailable("list entries", err)
	}
	defer rows.Close()

	var entries []core.IndexEntry
	for rows.Next() {
		var rawID, relPath string
		if err := rows.Scan(&rawID, &relPath); err != nil {
			return nil, unavailable("scan entry", err)
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("%w: corrupt identifier %q in index", core.ErrValidation, rawID)
		}
		entries = append(entries, core.IndexEntry{ID: id, Path: relPath})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list entries", err)
	}
	return entries, nil
}

// Rebuild replaces the table content with entries inside one transaction.
// On any failure the previous content is kept.
func (x *Index) Rebuild(ctx context.Context, entries []core.IndexEntry) error {
	seen := make(map[uuid.UUID]string, len(entries))
	for _, e := range entries {
		if prev, ok := seen[e.ID]; ok {
			return fmt.Errorf("%w: %s found at %s and %s", core.ErrDuplicateIdentifier, e.ID, prev, e.Path)
		}
		seen[e.ID] = e.Path
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin rebuild", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM artifacts"); err != nil {
		return unavailable("clear index", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO artifacts (uuid, filepath) VALUES (?, ?)")
	if err != nil {
		return unavailable("prepare insert", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID.String(), e.Path); err != nil {
			return unavailable(fmt.Sprintf("index %s (%s)", e.ID, e.Path), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit rebuild", err)
	}
	committed = true

	now := time.Now()
	x.mu.Lock()
	x.lastRebuild = &now
	x.rebuilt = len(entries)
	x.mu.Unlock()

	x.logger.Debug("index rebuilt", "entries", len(entries))
	return nil
}

var _ core.Index = (*Index)(nil)
