// Document is the central entity of the domain.
package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultNamespace is the extension assumed for a type tag without a "/".
const DefaultNamespace = "core_note"

// DefaultSchemaVersion is stamped on newly created documents.
const DefaultSchemaVersion = "1.0"

// Metadata holds the header keys a Document does not model explicitly.
// They are kept verbatim so that unknown fields survive a round-trip.
type Metadata map[string]Value

// Document is a stored artifact: a structured header plus an opaque body.
type Document struct {
	ID            uuid.UUID
	Type          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Tags          []string
	SchemaVersion string
	Metadata      Metadata
	Body          string
}

// Namespace returns the extension part of the document type tag.
func (d Document) Namespace() string {
	ns, _ := SplitType(d.Type)
	return ns
}

// Inconsistent reports whether the last-modified time precedes the creation time.
func (d Document) Inconsistent() bool {
	return d.UpdatedAt.Before(d.CreatedAt)
}

// Has reports whether the header carries the named field.
func (d Document) Has(name string) bool {
	switch name {
	case "uuid":
		return d.ID != uuid.Nil
	case "type":
		return d.Type != ""
	case "createdAt":
		return !d.CreatedAt.IsZero()
	case "updatedAt":
		return !d.UpdatedAt.IsZero()
	case "tags":
		return true
	case "schemaVersion":
		return d.SchemaVersion != ""
	}
	_, ok := d.Metadata[name]
	return ok
}

// AppendBody extends the body, separating non-empty content by a blank line,
// and refreshes UpdatedAt.
func (d *Document) AppendBody(content string, now time.Time) {
	if d.Body != "" {
		d.Body += "\n\n"
	}
	d.Body += content
	d.UpdatedAt = now
}

// SplitType splits a type tag into extension id and schema name.
// A tag without a namespace belongs to DefaultNamespace.
func SplitType(t string) (namespace, schema string) {
	if ns, name, ok := strings.Cut(t, "/"); ok {
		return ns, name
	}
	return DefaultNamespace, t
}

// QualifiedType returns the fully-namespaced form of a type tag.
func QualifiedType(t string) string {
	ns, name := SplitType(t)
	return ns + "/" + name
}

// IndexEntry maps a document identifier to its path relative to the vault root.
type IndexEntry struct {
	ID   uuid.UUID
	Path string
}
