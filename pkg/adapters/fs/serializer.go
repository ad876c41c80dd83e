package fs

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/bkase/aethel/pkg/core"
)

// Delimiter frames the header block of a document.
const Delimiter = "---"

// Serializer converts documents to and from their on-disk form.
type Serializer interface {
	Parse(r io.Reader) (core.Document, error)
	Serialize(doc core.Document) ([]byte, error)
}

// DefaultSerializers returns the serializers keyed by recognized file extension.
func DefaultSerializers() map[string]Serializer {
	return map[string]Serializer{
		".md": NewMarkdownSerializer(),
	}
}

// MarkdownSerializer reads and writes "---" framed YAML frontmatter followed by a body.
type MarkdownSerializer struct{}

func NewMarkdownSerializer() *MarkdownSerializer {
	return &MarkdownSerializer{}
}

func (s *MarkdownSerializer) Parse(r io.Reader) (core.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Document{}, err
	}
	return Parse(data)
}

func (s *MarkdownSerializer) Serialize(doc core.Document) ([]byte, error) {
	return Serialize(doc)
}

// SplitFrontmatter separates the header block from the body. The first line
// must be the delimiter and the header ends at the next line that is exactly
// the delimiter. The line break after the closing delimiter is consumed.
func SplitFrontmatter(data []byte) (header []byte, body []byte, err error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	line, rest := cutLine(data)
	if string(line) != Delimiter {
		return nil, nil, fmt.Errorf("%w: missing opening delimiter", core.ErrMalformedDocument)
	}

	offset := 0
	for {
		line, next := cutLine(rest[offset:])
		if string(line) == Delimiter {
			return rest[:offset], next, nil
		}
		if next == nil {
			break
		}
		offset = len(rest) - len(next)
	}
	return nil, nil, fmt.Errorf("%w: frontmatter started but no closing delimiter found", core.ErrMalformedDocument)
}

// cutLine returns the first line without its line ending, and the remainder after it.
func cutLine(data []byte) (line []byte, rest []byte) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return bytes.TrimSuffix(data, []byte("\r")), nil
	}
	return bytes.TrimSuffix(data[:i], []byte("\r")), data[i+1:]
}

// DecodeHeader parses the header block into its top-level mapping node.
// An empty header yields an empty mapping.
func DecodeHeader(header []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(header, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse frontmatter: %v", core.ErrMalformedDocument, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: frontmatter is not a mapping", core.ErrMalformedDocument)
	}
	return root, nil
}

// Parse decodes a document. Tags is never nil; Metadata is nil when the
// header carries no keys beyond the modeled ones.
func Parse(data []byte) (core.Document, error) {
	header, body, err := SplitFrontmatter(data)
	if err != nil {
		return core.Document{}, err
	}
	root, err := DecodeHeader(header)
	if err != nil {
		return core.Document{}, err
	}

	doc := core.Document{Tags: []string{}, Body: string(body)}
	seen := make(map[string]bool, 6)

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i].Value, root.Content[i+1]
		seen[key] = true

		switch key {
		case "uuid":
			s, err := scalar(key, val)
			if err != nil {
				return core.Document{}, err
			}
			id, err := uuid.Parse(s)
			if err != nil {
				return core.Document{}, fmt.Errorf("%w: invalid uuid %q", core.ErrValidation, s)
			}
			doc.ID = id
		case "type":
			if doc.Type, err = scalar(key, val); err != nil {
				return core.Document{}, err
			}
		case "createdAt":
			if doc.CreatedAt, err = timestamp(key, val); err != nil {
				return core.Document{}, err
			}
		case "updatedAt":
			if doc.UpdatedAt, err = timestamp(key, val); err != nil {
				return core.Document{}, err
			}
		case "schemaVersion":
			if doc.SchemaVersion, err = scalar(key, val); err != nil {
				return core.Document{}, err
			}
		case "tags":
			if doc.Tags, err = stringList(key, val); err != nil {
				return core.Document{}, err
			}
		default:
			v, err := core.ValueFromNode(val)
			if err != nil {
				return core.Document{}, fmt.Errorf("%w: field %q: %v", core.ErrMalformedDocument, key, err)
			}
			if doc.Metadata == nil {
				doc.Metadata = make(core.Metadata)
			}
			doc.Metadata[key] = v
		}
	}

	for _, required := range []string{"uuid", "type", "createdAt", "updatedAt", "schemaVersion"} {
		if !seen[required] {
			return core.Document{}, fmt.Errorf("%w: missing required field %q", core.ErrValidation, required)
		}
	}

	return doc, nil
}

// Serialize encodes a document. Modeled fields come first in a fixed order,
// followed by metadata keys in sorted order.
func Serialize(doc core.Document) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	add := func(key string, val *yaml.Node) {
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, val)
	}

	add("uuid", strNode(doc.ID.String()))
	add("type", strNode(doc.Type))
	add("createdAt", timeNode(doc.CreatedAt))
	add("updatedAt", timeNode(doc.UpdatedAt))
	tags := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, t := range doc.Tags {
		tags.Content = append(tags.Content, strNode(t))
	}
	add("tags", tags)
	add("schemaVersion", strNode(doc.SchemaVersion))

	keys := make([]string, 0, len(doc.Metadata))
	for k := range doc.Metadata {
		switch k {
		case "uuid", "type", "createdAt", "updatedAt", "tags", "schemaVersion":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n, err := doc.Metadata[k].Node()
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %q: %w", k, err)
		}
		add(k, n)
	}

	var buf bytes.Buffer
	buf.WriteString(Delimiter + "\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	buf.WriteString(Delimiter + "\n")
	buf.WriteString(doc.Body)
	return buf.Bytes(), nil
}

func strNode(s string) *yaml.Node {
	n := &yaml.Node{}
	if err := n.Encode(s); err != nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s, Style: yaml.DoubleQuotedStyle}
	}
	return n
}

func timeNode(t time.Time) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: t.UTC().Format(time.RFC3339Nano)}
}

func scalar(key string, n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("%w: field %q must be a scalar", core.ErrValidation, key)
	}
	return n.Value, nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999Z07:00", "2006-01-02 15:04:05", "2006-01-02"}

func timestamp(key string, n *yaml.Node) (time.Time, error) {
	s, err := scalar(key, n)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: field %q is not a timestamp: %q", core.ErrValidation, key, s)
}

func stringList(key string, n *yaml.Node) ([]string, error) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return []string{}, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: field %q must be a sequence", core.ErrValidation, key)
	}
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		s, err := scalar(key, item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
