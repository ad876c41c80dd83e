package typed

import (
	"context"

	"github.com/google/uuid"

	"github.com/bkase/aethel/pkg/core"
)

// Service wraps a core.Service for artifacts of one type whose extra
// header fields map onto T.
type Service[T any] struct {
	svc     *core.Service
	typeTag string
}

// NewService creates a typed service for typeTag (e.g. "note" or "journal/entry").
func NewService[T any](svc *core.Service, typeTag string) *Service[T] {
	return &Service[T]{svc: svc, typeTag: core.QualifiedType(typeTag)}
}

// Type returns the qualified type tag handled by the service.
func (s *Service[T]) Type() string { return s.typeTag }

// Create stores a new artifact whose header carries the fields of data.
func (s *Service[T]) Create(ctx context.Context, title, body string, tags []string, data T) (*Artifact[T], error) {
	fields, err := EncodeFields(data)
	if err != nil {
		return nil, err
	}
	doc, relPath, err := s.svc.Create(ctx, core.CreateRequest{
		Type:   s.typeTag,
		Title:  title,
		Body:   body,
		Tags:   tags,
		Fields: fields,
	})
	if err != nil {
		return nil, err
	}
	return s.wrap(doc, relPath)
}

// Get loads an artifact and decodes its metadata.
func (s *Service[T]) Get(ctx context.Context, id uuid.UUID) (*Artifact[T], error) {
	doc, relPath, err := s.svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.wrap(doc, relPath)
}

// Append implements Appender.
func (s *Service[T]) Append(ctx context.Context, a *Artifact[T], content string) error {
	doc, err := s.svc.Append(ctx, a.ID, content)
	if err != nil {
		return err
	}
	a.Document = doc
	return nil
}

func (s *Service[T]) wrap(doc core.Document, relPath string) (*Artifact[T], error) {
	data, err := DecodeFields[T](doc.Metadata)
	if err != nil {
		return nil, &core.DocumentError{Path: relPath, Err: err}
	}
	return &Artifact[T]{Document: doc, Path: relPath, Data: data, appender: s}, nil
}
