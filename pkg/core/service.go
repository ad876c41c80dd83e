package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ServiceConfig wires the collaborators of a Service.
type ServiceConfig struct {
	Store   Store
	Index   Index
	Schemas SchemaLoader
	Layout  Layout
	Clock   Clock
	NewID   IDGenerator
	Logger  *slog.Logger
}

// Service handles the business logic for artifacts.
type Service struct {
	store   Store
	index   Index
	schemas SchemaLoader
	layout  Layout
	clock   Clock
	newID   IDGenerator
	logger  *slog.Logger

	mu          sync.RWMutex
	lastReindex *time.Time
	created     int
	appended    int
}

// NewService creates a new Service. Clock, NewID and Logger fall back to
// the wall clock, random UUIDs and a discarding logger.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		store:   cfg.Store,
		index:   cfg.Index,
		schemas: cfg.Schemas,
		layout:  cfg.Layout,
		clock:   cfg.Clock,
		newID:   cfg.NewID,
		logger:  cfg.Logger,
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	if s.newID == nil {
		s.newID = NewRandomID
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// CreateRequest describes a new artifact.
type CreateRequest struct {
	Type   string
	Title  string
	Body   string
	Tags   []string
	Fields map[string]Value
}

// Create assigns a fresh identifier and timestamps, writes the document at the
// layout path of its extension and records it in the index.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Document, string, error) {
	if strings.TrimSpace(req.Type) == "" {
		return Document{}, "", fmt.Errorf("%w: type is required when creating new artifacts", ErrValidation)
	}

	reg, err := s.schemas.Load(ctx)
	if err != nil {
		return Document{}, "", fmt.Errorf("failed to load registry: %w", err)
	}

	typeTag := QualifiedType(req.Type)
	ns, _ := SplitType(typeTag)
	if _, ok := reg.Plugin(ns); !ok {
		return Document{}, "", fmt.Errorf("%w: %s", ErrExtensionNotFound, ns)
	}

	now := s.clock.Now().UTC()
	doc := Document{
		ID:            s.newID(),
		Type:          typeTag,
		CreatedAt:     now,
		UpdatedAt:     now,
		Tags:          append([]string{}, req.Tags...),
		SchemaVersion: DefaultSchemaVersion,
		Body:          req.Body,
	}
	if req.Title != "" || len(req.Fields) > 0 {
		doc.Metadata = make(Metadata, len(req.Fields)+1)
	}
	if req.Title != "" {
		doc.Metadata["title"] = String(req.Title)
	}
	for k, v := range req.Fields {
		doc.Metadata[k] = v
	}

	if fields, ok := reg.Resolve(typeTag); ok {
		if missing := MissingRequired(fields, doc); len(missing) > 0 {
			return Document{}, "", fmt.Errorf("%w: %s requires %s", ErrValidation, typeTag, strings.Join(missing, ", "))
		}
	} else {
		s.logger.Warn("creating artifact of unknown schema", "type", typeTag)
	}

	relPath, err := s.store.NewPath(ns, now)
	if err != nil {
		return Document{}, "", err
	}
	if err := s.store.Write(ctx, relPath, doc); err != nil {
		return Document{}, "", err
	}
	if err := s.index.Insert(ctx, doc.ID, relPath); err != nil {
		if rmErr := s.store.Remove(ctx, relPath); rmErr != nil {
			s.logger.Warn("failed to remove unindexed artifact", "path", relPath, "error", rmErr)
		}
		return Document{}, "", err
	}

	s.mu.Lock()
	s.created++
	s.mu.Unlock()

	s.logger.Debug("artifact created", "uuid", doc.ID, "path", relPath)
	return doc, relPath, nil
}

// Get resolves an identifier through the index and reads the document.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Document, string, error) {
	relPath, err := s.locate(ctx, id)
	if err != nil {
		return Document{}, "", err
	}
	doc, err := s.store.Read(ctx, relPath)
	if err != nil {
		return Document{}, "", err
	}
	return doc, relPath, nil
}

// Append extends the body of an existing artifact and refreshes updatedAt.
func (s *Service) Append(ctx context.Context, id uuid.UUID, content string) (Document, error) {
	doc, relPath, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}

	doc.AppendBody(content, s.clock.Now().UTC())
	if err := s.store.Write(ctx, relPath, doc); err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	s.appended++
	s.mu.Unlock()
	return doc, nil
}

// Reindex rebuilds the index from a full scan of the artifacts tree.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	entries, err := s.store.ScanAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to scan artifacts: %w", err)
	}
	if err := s.index.Rebuild(ctx, entries); err != nil {
		return 0, err
	}

	now := s.clock.Now()
	s.mu.Lock()
	s.lastReindex = &now
	s.mu.Unlock()

	s.logger.Debug("index rebuilt", "entries", len(entries))
	return len(entries), nil
}

// Schemas loads the registry.
func (s *Service) Schemas(ctx context.Context) (*Registry, error) {
	return s.schemas.Load(ctx)
}

func (s *Service) locate(ctx context.Context, id uuid.UUID) (string, error) {
	relPath, ok, err := s.index.Lookup(ctx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("artifact %s: %w", id, ErrNotFound)
	}
	return relPath, nil
}

// DoctorOptions selects the repairs Doctor may perform.
type DoctorOptions struct {
	Fix          bool
	RebuildIndex bool
}

// Issue is one problem found by Doctor.
type Issue struct {
	Path    string `json:"path"`
	Problem string `json:"problem"`
	Fixed   bool   `json:"fixed"`
}

// Report summarizes a Doctor pass.
type Report struct {
	Issues    []Issue `json:"issues"`
	Plugins   int     `json:"plugins"`
	Schemas   int     `json:"schemas"`
	Artifacts int     `json:"artifacts"`
	Reindexed int     `json:"reindexed"`
}

// Count returns the number of issues found.
func (r Report) Count() int { return len(r.Issues) }

// FixedCount returns the number of issues repaired.
func (r Report) FixedCount() int {
	n := 0
	for _, is := range r.Issues {
		if is.Fixed {
			n++
		}
	}
	return n
}

func (r *Report) add(path, problem string, fixed bool) {
	r.Issues = append(r.Issues, Issue{Path: path, Problem: problem, Fixed: fixed})
}

// Doctor inspects the whole vault and reports every problem it finds rather
// than stopping at the first one. Only resolution cycles and store failures abort it.
func (s *Service) Doctor(ctx context.Context, opts DoctorOptions) (Report, error) {
	var report Report

	if s.layout != nil {
		missing, err := s.layout.Verify(opts.Fix)
		if err != nil {
			return report, fmt.Errorf("failed to verify layout: %w", err)
		}
		for _, m := range missing {
			report.add(m, "missing", opts.Fix)
		}
	}

	reg, err := s.schemas.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load registry: %w", err)
	}
	report.Plugins = len(reg.Plugins)
	report.Schemas = len(reg.ResolvedSchemas)
	for _, d := range reg.Diagnostics {
		report.add(d.Item, d.Message, false)
	}

	seen := make(map[uuid.UUID]string)
	err = s.store.Walk(ctx, func(relPath string, doc Document, walkErr error) error {
		if walkErr != nil {
			report.add(relPath, "invalid artifact: "+walkErr.Error(), false)
			return nil
		}
		report.Artifacts++

		if prev, dup := seen[doc.ID]; dup {
			report.add(relPath, fmt.Sprintf("%v: %s also used by %s", ErrDuplicateIdentifier, doc.ID, prev), false)
		} else {
			seen[doc.ID] = relPath
		}

		ns := doc.Namespace()
		if _, ok := reg.Plugin(ns); !ok {
			report.add(relPath, fmt.Sprintf("%v: %s", ErrExtensionNotFound, ns), false)
		} else if fields, ok := reg.Resolve(doc.Type); ok {
			if missing := MissingRequired(fields, doc); len(missing) > 0 {
				report.add(relPath, fmt.Sprintf("%v: missing %s", ErrValidation, strings.Join(missing, ", ")), false)
			}
		}

		if doc.Inconsistent() {
			fixed := false
			if opts.Fix {
				doc.UpdatedAt = s.clock.Now().UTC()
				if err := s.store.Write(ctx, relPath, doc); err != nil {
					return err
				}
				fixed = true
			}
			report.add(relPath, "updatedAt precedes createdAt", fixed)
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	if opts.RebuildIndex {
		n, err := s.Reindex(ctx)
		if err != nil {
			return report, err
		}
		report.Reindexed = n
	}

	return report, nil
}

// IsCycle reports whether err stems from a schema inheritance cycle.
func IsCycle(err error) bool {
	return errors.Is(err, ErrCircularSchemaDependency)
}
