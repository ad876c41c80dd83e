package core

import (
	"time"

	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	StoreType   string     `json:"store_type"`
	IndexType   string     `json:"index_type"`
	Created     int        `json:"created"`
	Appended    int        `json:"appended"`
	LastReindex *time.Time `json:"last_reindex,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ServiceState{
		StoreType:   componentType(s.store, "store"),
		IndexType:   componentType(s.index, "index"),
		Created:     s.created,
		Appended:    s.appended,
		LastReindex: s.lastReindex,
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

func componentType(v any, fallback string) string {
	if comp, ok := v.(introspection.Component); ok {
		return comp.ComponentType()
	}
	return fallback
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
