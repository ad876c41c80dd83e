// Package typed offers a generic view of artifact metadata as a Go struct.
package typed

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/bkase/aethel/pkg/core"
)

// Artifact pairs a document with its metadata decoded into T.
type Artifact[T any] struct {
	core.Document
	Path string
	Data T

	appender Appender[T]
}

// Appender is implemented by whatever produced the artifact (usually a Service).
type Appender[T any] interface {
	Append(ctx context.Context, a *Artifact[T], content string) error
}

// Append extends the artifact body through the service that loaded it.
func (a *Artifact[T]) Append(ctx context.Context, content string) error {
	if a.appender == nil {
		return fmt.Errorf("artifact %s is detached", a.ID)
	}
	return a.appender.Append(ctx, a, content)
}

// EncodeFields converts the yaml-tagged fields of data into metadata values.
func EncodeFields[T any](data T) (map[string]core.Value, error) {
	var node yaml.Node
	if err := node.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to encode typed fields: %w", err)
	}
	v, err := core.ValueFromNode(&node)
	if err != nil {
		return nil, err
	}
	switch v.Kind {
	case core.KindNull:
		return nil, nil
	case core.KindMapping:
		return v.Map, nil
	}
	return nil, fmt.Errorf("%w: typed fields must encode to a mapping, got %s", core.ErrValidation, v.Kind)
}

// DecodeFields fills a T from document metadata. Keys T does not declare are ignored.
func DecodeFields[T any](meta core.Metadata) (T, error) {
	var out T
	if len(meta) == 0 {
		return out, nil
	}
	node, err := core.Mapping(meta).Node()
	if err != nil {
		return out, err
	}
	if err := node.Decode(&out); err != nil {
		return out, fmt.Errorf("%w: failed to decode typed fields: %v", core.ErrValidation, err)
	}
	return out, nil
}
