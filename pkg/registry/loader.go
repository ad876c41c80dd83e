// Package registry discovers extensions and their schemas inside a vault,
// resolves schema inheritance and keeps a binary cache of the result.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bkase/aethel/pkg/adapters/fs"
	"github.com/bkase/aethel/pkg/core"
)

// Config holds the configuration for a Loader.
type Config struct {
	// Root is the vault root. PluginsDir and CachePath default to its fixed locations.
	Root       string
	PluginsDir string
	CachePath  string
	// Clock stamps freshly written caches. Defaults to core.SystemClock.
	Clock  core.Clock
	Logger *slog.Logger
}

// Loader builds registries, reusing the cache while it is fresh.
type Loader struct {
	pluginsDir string
	cachePath  string
	clock      core.Clock
	logger     *slog.Logger

	mu          sync.RWMutex
	cacheHits   int
	rebuilds    int
	lastLoad    *time.Time
	lastSource  string
	diagnostics int
}

// NewLoader creates a Loader.
func NewLoader(cfg Config) *Loader {
	l := &Loader{
		pluginsDir: cfg.PluginsDir,
		cachePath:  cfg.CachePath,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}
	if l.pluginsDir == "" {
		l.pluginsDir = fs.PluginsPath(cfg.Root)
	}
	if l.cachePath == "" {
		l.cachePath = fs.RegistryCachePath(cfg.Root)
	}
	if l.clock == nil {
		l.clock = core.SystemClock{}
	}
	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}
	return l
}

// Load returns the registry of the vault. A cache newer than everything
// under the extensions directory is returned as is; otherwise the registry
// is rebuilt and the cache rewritten. Failing to write the cache is not an error.
func (l *Loader) Load(ctx context.Context) (*core.Registry, error) {
	reg, err := readCache(l.cachePath, l.pluginsDir)
	if err == nil {
		l.logger.Debug("registry cache hit", "path", l.cachePath)
		l.record("cache", reg)
		return reg, nil
	}
	l.logger.Debug("registry cache miss", "path", l.cachePath, "reason", err)

	stamp := l.clock.Now()
	reg, err = Build(ctx, l.pluginsDir)
	if err != nil {
		return nil, err
	}
	for _, d := range reg.Diagnostics {
		l.logger.Warn("registry entry skipped", "item", d.Item, "reason", d.Message)
	}

	if err := writeCache(l.cachePath, reg, stamp); err != nil {
		l.logger.Warn("failed to write registry cache", "path", l.cachePath, "error", err)
	}
	l.logger.Debug("registry rebuilt", "plugins", len(reg.Plugins), "schemas", len(reg.ResolvedSchemas))
	l.record("build", reg)
	return reg, nil
}

func (l *Loader) record(source string, reg *core.Registry) {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if source == "cache" {
		l.cacheHits++
	} else {
		l.rebuilds++
	}
	l.lastLoad = &now
	l.lastSource = source
	l.diagnostics = len(reg.Diagnostics)
}

// Build discovers and resolves every extension under pluginsDir, bypassing the cache.
func Build(ctx context.Context, pluginsDir string) (*core.Registry, error) {
	plugins, diags, err := Discover(ctx, pluginsDir)
	if err != nil {
		return nil, err
	}
	resolved, resolveDiags, err := Resolve(plugins)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schemas: %w", err)
	}
	return &core.Registry{
		Plugins:         plugins,
		ResolvedSchemas: resolved,
		Diagnostics:     append(diags, resolveDiags...),
	}, nil
}

// Load is a convenience for NewLoader with the vault's default locations.
func Load(ctx context.Context, root string, clock core.Clock) (*core.Registry, error) {
	return NewLoader(Config{Root: root, Clock: clock}).Load(ctx)
}

var _ core.SchemaLoader = (*Loader)(nil)
