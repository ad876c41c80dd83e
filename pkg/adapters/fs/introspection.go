package fs

import (
	"sort"
	"time"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Root         string     `json:"root"`
	ArtifactsDir string     `json:"artifacts_dir"`
	Serializers  []string   `json:"serializers"`
	LastScan     *time.Time `json:"last_scan,omitempty"`
	Scanned      int        `json:"scanned"`
	Skipped      int        `json:"skipped"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	serializers := make([]string, 0, len(s.serializers))
	for ext := range s.serializers {
		serializers = append(serializers, ext)
	}
	sort.Strings(serializers)

	return StoreState{
		Root:         s.root,
		ArtifactsDir: s.artifactsDir,
		Serializers:  serializers,
		LastScan:     s.lastScan,
		Scanned:      s.scanned,
		Skipped:      s.skipped,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "fs-store"
}

// WatcherState exposes internal state for observability.
type WatcherState struct {
	Dir         string     `json:"dir"`
	Active      bool       `json:"active"`
	Directories int        `json:"directories"`
	Events      int        `json:"events"`
	Runs        int        `json:"runs"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// State implements introspection.Introspectable.
func (w *Watcher) State() any {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return WatcherState{
		Dir:         w.cfg.Dir,
		Active:      w.active,
		Directories: w.watching,
		Events:      w.events,
		Runs:        w.runs,
		LastRun:     w.lastRun,
		LastError:   w.lastErr,
	}
}

// ComponentType implements introspection.Component.
func (w *Watcher) ComponentType() string {
	return "fs-watcher"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
var _ introspection.Introspectable = (*Watcher)(nil)
var _ introspection.Component = (*Watcher)(nil)
