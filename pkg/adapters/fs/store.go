package fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/bkase/aethel/pkg/core"
)

// Config holds the configuration for a Store.
type Config struct {
	// Root is the vault root directory.
	Root string
	// ArtifactsDir is the subtree scanned for documents, relative to Root.
	// Defaults to ArtifactsDir.
	ArtifactsDir string
	Logger       *slog.Logger
	// Serializers keyed by file extension. Defaults to DefaultSerializers.
	Serializers map[string]Serializer
}

// Store reads and writes documents under a vault root. It never touches the index.
type Store struct {
	root         string
	artifactsDir string
	logger       *slog.Logger
	serializers  map[string]Serializer

	mu       sync.RWMutex
	lastScan *time.Time
	scanned  int
	skipped  int
}

// NewStore creates a Store.
func NewStore(cfg Config) *Store {
	s := &Store{
		root:         cfg.Root,
		artifactsDir: cfg.ArtifactsDir,
		logger:       cfg.Logger,
		serializers:  cfg.Serializers,
	}
	if s.artifactsDir == "" {
		s.artifactsDir = ArtifactsDir
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if len(s.serializers) == 0 {
		s.serializers = DefaultSerializers()
	}
	return s
}

// Root returns the vault root.
func (s *Store) Root() string { return s.root }

func (s *Store) resolve(relPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path %q escapes the vault", core.ErrValidation, relPath)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *Store) serializerFor(relPath string) (Serializer, error) {
	ser, ok := s.serializers[strings.ToLower(filepath.Ext(relPath))]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported document extension %q", core.ErrValidation, filepath.Ext(relPath))
	}
	return ser, nil
}

// Read loads and parses the document at relPath.
func (s *Store) Read(ctx context.Context, relPath string) (core.Document, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return core.Document{}, err
	}
	ser, err := s.serializerFor(relPath)
	if err != nil {
		return core.Document{}, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return core.Document{}, &core.DocumentError{Path: relPath, Err: core.ErrNotFound}
		}
		return core.Document{}, fmt.Errorf("failed to read document: %w", err)
	}

	doc, err := ser.Parse(bytes.NewReader(data))
	if err != nil {
		return core.Document{}, &core.DocumentError{Path: relPath, Err: err}
	}
	return doc, nil
}

// Write creates missing parent directories and atomically replaces the file at relPath.
func (s *Store) Write(ctx context.Context, relPath string, doc core.Document) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	ser, err := s.serializerFor(relPath)
	if err != nil {
		return err
	}

	data, err := ser.Serialize(doc)
	if err != nil {
		return &core.DocumentError{Path: relPath, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := WriteFileAtomic(full, data, 0644); err != nil {
		return err
	}

	s.logger.Debug("document written", "path", relPath, "uuid", doc.ID)
	return nil
}

// Remove deletes the document at relPath. A missing file is not an error.
func (s *Store) Remove(ctx context.Context, relPath string) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("failed to remove document: %w", err)
	}
	s.logger.Debug("document removed", "path", relPath)
	return nil
}

// Pattern returns the glob matching every recognized document below the artifacts subtree.
func (s *Store) Pattern() string {
	exts := make([]string, 0, len(s.serializers))
	for ext := range s.serializers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	if len(exts) == 1 {
		return "**/*" + exts[0]
	}
	return "**/*{" + strings.Join(exts, ",") + "}"
}

// Walk visits every recognized document file under the artifacts subtree
// in lexical order, passing read and parse failures to fn instead of stopping.
func (s *Store) Walk(ctx context.Context, fn core.WalkFunc) error {
	base := filepath.Join(s.root, s.artifactsDir)
	if _, err := os.Stat(base); errors.Is(err, iofs.ErrNotExist) {
		return nil
	}

	fsys := os.DirFS(base)
	return doublestar.GlobWalk(fsys, s.Pattern(), func(p string, d iofs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), TempFilePrefix) {
			return nil
		}

		relPath := path.Join(filepath.ToSlash(s.artifactsDir), p)
		ser, err := s.serializerFor(p)
		if err != nil {
			return fn(relPath, core.Document{}, err)
		}
		data, err := iofs.ReadFile(fsys, p)
		if err != nil {
			return fn(relPath, core.Document{}, fmt.Errorf("failed to read document: %w", err))
		}
		doc, err := ser.Parse(bytes.NewReader(data))
		return fn(relPath, doc, err)
	})
}

// ScanAll inventories the artifacts subtree. Files that cannot be read or
// parsed are skipped.
func (s *Store) ScanAll(ctx context.Context) ([]core.IndexEntry, error) {
	var entries []core.IndexEntry
	skipped := 0

	err := s.Walk(ctx, func(relPath string, doc core.Document, err error) error {
		if err != nil {
			skipped++
			s.logger.Debug("skipping unparseable document", "path", relPath, "error", err)
			return nil
		}
		entries = append(entries, core.IndexEntry{ID: doc.ID, Path: relPath})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	now := time.Now()
	s.mu.Lock()
	s.lastScan = &now
	s.scanned = len(entries)
	s.skipped = skipped
	s.mu.Unlock()

	return entries, nil
}

// ArtifactDir returns the canonical directory for documents of namespace created at t:
// <artifacts>/<namespace>/YYYY/MM.
func (s *Store) ArtifactDir(namespace string, t time.Time) string {
	return ArtifactDirFor(s.artifactsDir, namespace, t)
}

// ArtifactDirFor is ArtifactDir for an explicit artifacts subtree.
func ArtifactDirFor(artifactsDir, namespace string, t time.Time) string {
	t = t.UTC()
	return path.Join(filepath.ToSlash(artifactsDir), namespace, t.Format("2006"), t.Format("01"))
}

// ArtifactFilename returns the base name (without extension) for a document created at t.
func ArtifactFilename(t time.Time) string {
	return t.UTC().Format("2006-01-02-15-04-05")
}

// NewPath returns an unused relative path under ArtifactDir. Same-second
// collisions get a numeric suffix.
func (s *Store) NewPath(namespace string, t time.Time) (string, error) {
	if namespace == "" || namespace != path.Base(namespace) || namespace == "." || namespace == ".." || strings.ContainsAny(namespace, `\/`) {
		return "", fmt.Errorf("%w: invalid namespace %q", core.ErrValidation, namespace)
	}

	dir := s.ArtifactDir(namespace, t)
	name := ArtifactFilename(t)
	for i := 0; ; i++ {
		candidate := name + ".md"
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d.md", name, i)
		}
		relPath := path.Join(dir, candidate)
		full, err := s.resolve(relPath)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(full); errors.Is(err, iofs.ErrNotExist) {
			return relPath, nil
		} else if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", relPath, err)
		}
	}
}

var _ core.Store = (*Store)(nil)
