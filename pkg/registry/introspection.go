package registry

import (
	"time"

	"github.com/aretw0/introspection"
)

// LoaderState exposes internal state for observability.
type LoaderState struct {
	PluginsDir  string     `json:"plugins_dir"`
	CachePath   string     `json:"cache_path"`
	CacheHits   int        `json:"cache_hits"`
	Rebuilds    int        `json:"rebuilds"`
	LastLoad    *time.Time `json:"last_load,omitempty"`
	LastSource  string     `json:"last_source,omitempty"`
	Diagnostics int        `json:"diagnostics"`
}

// State implements introspection.Introspectable.
func (l *Loader) State() any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return LoaderState{
		PluginsDir:  l.pluginsDir,
		CachePath:   l.cachePath,
		CacheHits:   l.cacheHits,
		Rebuilds:    l.rebuilds,
		LastLoad:    l.lastLoad,
		LastSource:  l.lastSource,
		Diagnostics: l.diagnostics,
	}
}

// ComponentType implements introspection.Component.
func (l *Loader) ComponentType() string {
	return "schema-registry"
}

var _ introspection.Introspectable = (*Loader)(nil)
var _ introspection.Component = (*Loader)(nil)
