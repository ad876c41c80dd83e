package sqlite

import (
	"context"
	"time"

	"github.com/aretw0/introspection"
)

// IndexState exposes internal state for observability.
type IndexState struct {
	Path        string     `json:"path"`
	Entries     int        `json:"entries"`
	LastRebuild *time.Time `json:"last_rebuild,omitempty"`
	Rebuilt     int        `json:"rebuilt"`
}

// State implements introspection.Introspectable.
func (x *Index) State() any {
	var count int
	_ = x.db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM artifacts").Scan(&count)

	x.mu.RLock()
	defer x.mu.RUnlock()
	return IndexState{
		Path:        x.path,
		Entries:     count,
		LastRebuild: x.lastRebuild,
		Rebuilt:     x.rebuilt,
	}
}

// ComponentType implements introspection.Component.
func (x *Index) ComponentType() string {
	return "sqlite-index"
}

var _ introspection.Introspectable = (*Index)(nil)
var _ introspection.Component = (*Index)(nil)
