package registry

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/bkase/aethel/pkg/core"
)

// Resolve flattens the inheritance chain of every schema of every extension.
//
// A root schema starts from core.BaseFields; a derived schema starts from
// its parent's resolved fields. Own fields then overlay by name: a field
// whose name already exists replaces it in place, new names are appended
// in declaration order.
//
// Schemas whose chain ends in a missing parent are left out and reported as
// diagnostics. A cycle aborts resolution with a *core.CycleError.
func Resolve(plugins map[string]core.Extension) (map[string][]core.Field, []core.Diagnostic, error) {
	r := &resolver{
		schemas:    map[string]core.Schema{},
		owners:     map[string]string{},
		resolved:   map[string][]core.Field{},
		failed:     map[string]error{},
		inProgress: map[string]bool{},
	}
	for id, ext := range plugins {
		for name, schema := range ext.Schemas {
			key := id + "/" + name
			r.schemas[key] = schema
			r.owners[key] = id
		}
	}

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	var diags []core.Diagnostic
	for _, name := range names {
		if _, err := r.resolve(name); err != nil {
			var cycle *core.CycleError
			if errors.As(err, &cycle) {
				return nil, nil, err
			}
			diags = append(diags, core.Diagnostic{Item: name, Message: err.Error()})
		}
	}
	return r.resolved, diags, nil
}

type resolver struct {
	schemas    map[string]core.Schema
	owners     map[string]string
	resolved   map[string][]core.Field
	failed     map[string]error
	inProgress map[string]bool
	stack      []string
}

func (r *resolver) resolve(name string) ([]core.Field, error) {
	if fields, ok := r.resolved[name]; ok {
		return fields, nil
	}
	if err, ok := r.failed[name]; ok {
		return nil, err
	}
	if r.inProgress[name] {
		start := slices.Index(r.stack, name)
		chain := append(slices.Clone(r.stack[start:]), name)
		return nil, &core.CycleError{Schema: name, Chain: chain}
	}

	schema, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSchemaNotFound, name)
	}

	r.inProgress[name] = true
	r.stack = append(r.stack, name)
	defer func() {
		delete(r.inProgress, name)
		r.stack = r.stack[:len(r.stack)-1]
	}()

	base := core.BaseFields()
	if schema.Extends != "" {
		parent := parentName(r.owners[name], schema.Extends)
		fields, err := r.resolve(parent)
		if err != nil {
			var cycle *core.CycleError
			if errors.As(err, &cycle) {
				return nil, err
			}
			err = fmt.Errorf("extends %s: %w", parent, err)
			r.failed[name] = err
			return nil, err
		}
		base = fields
	}

	fields := Overlay(base, schema.Fields)
	r.resolved[name] = fields
	return fields, nil
}

// parentName qualifies an extends reference; a bare schema name refers to
// the extension that declares the child.
func parentName(owner, extends string) string {
	if strings.Contains(extends, "/") {
		return extends
	}
	return owner + "/" + extends
}

// Overlay returns base with own applied on top. base is not modified.
func Overlay(base, own []core.Field) []core.Field {
	out := make([]core.Field, len(base), len(base)+len(own))
	copy(out, base)

	pos := make(map[string]int, len(out))
	for i, f := range out {
		pos[f.Name] = i
	}
	for _, f := range own {
		if i, ok := pos[f.Name]; ok {
			out[i] = f
			continue
		}
		pos[f.Name] = len(out)
		out = append(out, f)
	}
	return out
}
