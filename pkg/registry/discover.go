package registry

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/bkase/aethel/pkg/adapters/fs"
	"github.com/bkase/aethel/pkg/core"
)

const (
	// PluginFile is the extension definition inside each extension directory.
	PluginFile = "plugin.aethel.md"
	// SchemaPattern selects the schema definitions of an extension.
	SchemaPattern = "schemas/*.md"

	defaultPluginVersion = "1.0"
)

// Discover reads every extension directory below pluginsDir. Extensions and
// schemas that cannot be read or decoded are left out and reported as
// diagnostics, with paths relative to pluginsDir. A missing pluginsDir
// yields no extensions.
func Discover(ctx context.Context, pluginsDir string) (map[string]core.Extension, []core.Diagnostic, error) {
	plugins := map[string]core.Extension{}

	entries, err := os.ReadDir(pluginsDir)
	if errors.Is(err, iofs.ErrNotExist) {
		return plugins, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list extensions: %w", err)
	}

	var diags []core.Diagnostic
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		ext, extDiags, err := loadExtension(filepath.Join(pluginsDir, entry.Name()), entry.Name())
		diags = append(diags, extDiags...)
		if err != nil {
			diags = append(diags, core.Diagnostic{Item: entry.Name(), Message: err.Error()})
			continue
		}
		plugins[ext.ID] = ext
	}
	return plugins, diags, nil
}

func loadExtension(dir, id string) (core.Extension, []core.Diagnostic, error) {
	header, err := readHeader(filepath.Join(dir, PluginFile))
	if errors.Is(err, iofs.ErrNotExist) {
		return core.Extension{}, nil, fmt.Errorf("%w: no %s", core.ErrExtensionNotFound, PluginFile)
	}
	if err != nil {
		return core.Extension{}, nil, err
	}

	ext := core.Extension{
		ID:          id,
		Name:        stringKey(header, "name", id),
		Description: stringKey(header, "description", ""),
		Version:     stringKey(header, "version", defaultPluginVersion),
		Author:      stringKey(header, "author", ""),
		Schemas:     map[string]core.Schema{},
	}

	files, err := doublestar.Glob(os.DirFS(dir), SchemaPattern)
	if err != nil {
		return core.Extension{}, nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	sort.Strings(files)

	var diags []core.Diagnostic
	for _, file := range files {
		item := path.Join(id, file)
		schema, fieldDiags, err := loadSchema(filepath.Join(dir, filepath.FromSlash(file)))
		for _, d := range fieldDiags {
			diags = append(diags, core.Diagnostic{Item: item, Message: d})
		}
		if err != nil {
			diags = append(diags, core.Diagnostic{Item: item, Message: err.Error()})
			continue
		}
		ext.Schemas[schema.Name] = schema
	}
	return ext, diags, nil
}

// SchemaName derives a schema name from its file name: "note.aethel.md" is "note".
func SchemaName(file string) string {
	stem := strings.TrimSuffix(path.Base(filepath.ToSlash(file)), path.Ext(file))
	return strings.TrimSuffix(stem, ".aethel")
}

// loadSchema decodes one schema file. Field entries lacking a name or type
// are dropped and described in the returned messages.
func loadSchema(file string) (core.Schema, []string, error) {
	header, err := readHeader(file)
	if err != nil {
		return core.Schema{}, nil, err
	}

	schema := core.Schema{
		Name:        SchemaName(file),
		Extends:     stringKey(header, "extends", ""),
		Description: stringKey(header, "description", ""),
		Fields:      []core.Field{},
	}

	node := lookup(header, "fields")
	if node == nil || isNull(node) {
		return schema, nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return core.Schema{}, nil, fmt.Errorf("%w: fields must be a list", core.ErrMalformedDocument)
	}

	var skipped []string
	for i, item := range node.Content {
		field, err := decodeField(item)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("field %d skipped: %v", i, err))
			continue
		}
		schema.Fields = append(schema.Fields, field)
	}
	return schema, skipped, nil
}

func decodeField(n *yaml.Node) (core.Field, error) {
	if n.Kind != yaml.MappingNode {
		return core.Field{}, errors.New("not a mapping")
	}
	field := core.Field{
		Name:        stringKey(n, "name", ""),
		Type:        core.FieldType(stringKey(n, "type", "")),
		Description: stringKey(n, "description", ""),
	}
	if field.Name == "" {
		return core.Field{}, errors.New("missing name")
	}
	if field.Type == "" {
		return core.Field{}, fmt.Errorf("%s: missing type", field.Name)
	}

	if req := lookup(n, "required"); req != nil && !isNull(req) {
		if err := req.Decode(&field.Required); err != nil {
			return core.Field{}, fmt.Errorf("%s: required must be a boolean", field.Name)
		}
	}
	if def := lookup(n, "default"); def != nil {
		v, err := core.ValueFromNode(def)
		if err != nil {
			return core.Field{}, fmt.Errorf("%s: invalid default: %w", field.Name, err)
		}
		field.Default = &v
	}
	return field, nil
}

func readHeader(file string) (*yaml.Node, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	header, _, err := fs.SplitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	return fs.DecodeHeader(header)
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

// stringKey returns the scalar text under key, or def when absent, null or not a scalar.
func stringKey(m *yaml.Node, key, def string) string {
	n := lookup(m, key)
	if n == nil || n.Kind != yaml.ScalarNode || isNull(n) {
		return def
	}
	return n.Value
}
