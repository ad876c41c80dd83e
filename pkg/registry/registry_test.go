package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkase/aethel/pkg/adapters/fs"
	"github.com/bkase/aethel/pkg/core"
)

const notePlugin = `---
name: Core Note
version: 1.0
description: Basic note-taking plugin for Aethel
author: Aethel Team
---
`

const noteSchema = `---
description: A basic note
fields:
  - name: title
    type: string
    required: true
    description: The title of the note
---
`

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func schemaFile(extends string, fields ...string) string {
	s := "---\n"
	if extends != "" {
		s += "extends: " + extends + "\n"
	}
	s += "fields:\n"
	for _, f := range fields {
		s += f
	}
	return s + "---\n"
}

func field(name, typ string, required bool) string {
	req := "false"
	if required {
		req = "true"
	}
	return "  - name: " + name + "\n    type: " + typ + "\n    required: " + req + "\n"
}

func fieldNames(fields []core.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func TestBuild_CoreNote(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "core_note/plugin.aethel.md", notePlugin)
	writeFile(t, dir, "core_note/schemas/note.aethel.md", noteSchema)

	reg, err := Build(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, reg.Diagnostics)

	ext, ok := reg.Plugin("core_note")
	require.True(t, ok)
	assert.Equal(t, "Core Note", ext.Name)
	assert.Equal(t, "1.0", ext.Version)
	assert.Equal(t, "Aethel Team", ext.Author)
	require.Contains(t, ext.Schemas, "note")
	assert.Equal(t, "A basic note", ext.Schemas["note"].Description)

	fields, ok := reg.Resolve("note")
	require.True(t, ok)
	want := append(core.BaseFields(), core.Field{
		Name: "title", Type: core.FieldString, Required: true, Description: "The title of the note",
	})
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Errorf("resolved fields mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_PluginDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bare/plugin.aethel.md", "---\n---\n")

	reg, err := Build(context.Background(), dir)
	require.NoError(t, err)

	ext, ok := reg.Plugin("bare")
	require.True(t, ok)
	assert.Equal(t, "bare", ext.Name)
	assert.Equal(t, "1.0", ext.Version)
	assert.Equal(t, "", ext.Description)
	assert.Empty(t, ext.Schemas)
}

func TestResolve_Inheritance(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ext/plugin.aethel.md", "---\nname: Ext\n---\n")
	writeFile(t, dir, "ext/schemas/a.md", schemaFile("", field("f1", "string", true)))
	writeFile(t, dir, "ext/schemas/b.md", schemaFile("a", field("f2", "number", false)))
	writeFile(t, dir, "ext/schemas/c.md", schemaFile("ext/b", field("f1", "integer", false), field("f3", "boolean", false)))

	reg, err := Build(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, reg.Diagnostics)

	c := reg.ResolvedSchemas["ext/c"]
	assert.Equal(t, []string{"uuid", "type", "createdAt", "updatedAt", "tags", "schemaVersion", "f1", "f2", "f3"}, fieldNames(c))
	assert.Equal(t, core.Field{Name: "f1", Type: core.FieldInteger}, c[6], "child overrides parent field in place")

	a := reg.ResolvedSchemas["ext/a"]
	assert.Equal(t, core.Field{Name: "f1", Type: core.FieldString, Required: true}, a[6], "parent list is not mutated")
}

func TestResolve_OverrideBaseField(t *testing.T) {
	plugins := map[string]core.Extension{
		"x": {ID: "x", Schemas: map[string]core.Schema{
			"s": {Name: "s", Fields: []core.Field{{Name: "tags", Type: core.FieldArray, Required: true}}},
		}},
	}

	resolved, diags, err := Resolve(plugins)
	require.NoError(t, err)
	assert.Empty(t, diags)

	fields := resolved["x/s"]
	require.Len(t, fields, 6)
	assert.Equal(t, core.Field{Name: "tags", Type: core.FieldArray, Required: true}, fields[4])
}

func TestResolve_Cycle(t *testing.T) {
	plugins := map[string]core.Extension{
		"x": {ID: "x", Schemas: map[string]core.Schema{
			"a": {Name: "a", Extends: "b"},
			"b": {Name: "b", Extends: "x/a"},
			"c": {Name: "c"},
		}},
	}

	_, _, err := Resolve(plugins)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCircularSchemaDependency)

	var cycle *core.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, "x/a", cycle.Schema)
	assert.Equal(t, []string{"x/a", "x/b", "x/a"}, cycle.Chain)
}

func TestResolve_SelfCycle(t *testing.T) {
	plugins := map[string]core.Extension{
		"x": {ID: "x", Schemas: map[string]core.Schema{"loop": {Name: "loop", Extends: "loop"}}},
	}
	_, _, err := Resolve(plugins)
	assert.ErrorIs(t, err, core.ErrCircularSchemaDependency)
}

func TestResolve_DanglingParent(t *testing.T) {
	plugins := map[string]core.Extension{
		"x": {ID: "x", Schemas: map[string]core.Schema{
			"child":      {Name: "child", Extends: "missing/base"},
			"grandchild": {Name: "grandchild", Extends: "child"},
			"ok":         {Name: "ok"},
		}},
	}

	resolved, diags, err := Resolve(plugins)
	require.NoError(t, err)
	assert.Contains(t, resolved, "x/ok")
	assert.NotContains(t, resolved, "x/child")
	assert.NotContains(t, resolved, "x/grandchild")

	require.Len(t, diags, 2)
	assert.Equal(t, "x/child", diags[0].Item)
	assert.Equal(t, "x/grandchild", diags[1].Item)
	assert.Contains(t, diags[0].Message, "missing/base")
}

func TestDiscover_SkipsBrokenEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good/plugin.aethel.md", "---\nname: Good\n---\n")
	writeFile(t, dir, "good/schemas/fine.md", schemaFile("", field("x", "string", false)))
	writeFile(t, dir, "good/schemas/broken.md", "---\nfields: [unclosed\n---\n")
	writeFile(t, dir, "good/schemas/partial.md", "---\nfields:\n  - name: kept\n    type: string\n  - name: notype\n  - type: string\n---\n")
	writeFile(t, dir, "good/schemas/readme.txt", "not a schema")
	writeFile(t, dir, "nodef/schemas/x.md", schemaFile(""))
	writeFile(t, dir, "badplugin/plugin.aethel.md", "no frontmatter here")
	writeFile(t, dir, ".hidden/plugin.aethel.md", "---\n---\n")
	writeFile(t, dir, "stray.md", "---\n---\n")

	plugins, diags, err := Discover(context.Background(), dir)
	require.NoError(t, err)

	assert.Len(t, plugins, 1)
	good := plugins["good"]
	assert.Len(t, good.Schemas, 2)
	assert.Equal(t, []string{"kept"}, fieldNames(good.Schemas["partial"].Fields))

	items := map[string]int{}
	for _, d := range diags {
		items[d.Item]++
	}
	assert.Equal(t, map[string]int{
		"badplugin":               1,
		"good/schemas/broken.md":  1,
		"good/schemas/partial.md": 2,
		"nodef":                   1,
	}, items)

	for _, d := range diags {
		if d.Item == "nodef" {
			assert.Contains(t, d.Message, core.ErrExtensionNotFound.Error())
		}
	}
}

func TestDiscover_MissingDir(t *testing.T) {
	plugins, diags, err := Discover(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, plugins)
	assert.Empty(t, diags)
}

func TestDiscover_FieldDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x/plugin.aethel.md", "---\n---\n")
	writeFile(t, dir, "x/schemas/task.md", `---
fields:
  - name: status
    type: string
    default: open
  - name: priority
    type: integer
    default: 3
---
`)

	plugins, diags, err := Discover(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, diags)

	fields := plugins["x"].Schemas["task"].Fields
	require.Len(t, fields, 2)
	assert.False(t, fields[0].Required)
	require.NotNil(t, fields[0].Default)
	assert.Equal(t, core.String("open"), *fields[0].Default)
	assert.Equal(t, core.Int(3), *fields[1].Default)
}

func TestSchemaName(t *testing.T) {
	assert.Equal(t, "note", SchemaName("schemas/note.aethel.md"))
	assert.Equal(t, "task", SchemaName("task.md"))
	assert.Equal(t, "a.b", SchemaName("a.b.md"))
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

// touchTree sets the modification time of dir and everything below it.
func touchTree(t *testing.T, dir string, ts time.Time) {
	t.Helper()
	require.NoError(t, filepath.WalkDir(dir, func(p string, _ os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return os.Chtimes(p, ts, ts)
	}))
}

func TestLoader_Cache(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	plugins := filepath.Join(root, "plugins")
	cachePath := filepath.Join(root, ".aethel", "registry.cache")

	writeFile(t, plugins, "core_note/plugin.aethel.md", notePlugin)
	writeFile(t, plugins, "core_note/schemas/note.aethel.md", noteSchema)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	touchTree(t, plugins, t0)

	clock := &fakeClock{now: t0.Add(time.Minute)}
	l := NewLoader(Config{PluginsDir: plugins, CachePath: cachePath, Clock: clock})

	first, err := l.Load(ctx)
	require.NoError(t, err)
	info, err := os.Stat(cachePath)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(clock.now))

	second, err := l.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("cached registry mismatch (-built +cached):\n%s", diff)
	}
	state := l.State().(LoaderState)
	assert.Equal(t, 1, state.Rebuilds)
	assert.Equal(t, 1, state.CacheHits)
	assert.Equal(t, "cache", state.LastSource)

	writeFile(t, plugins, "core_note/schemas/note.aethel.md", schemaFile("", field("title", "string", true), field("mood", "string", false)))
	touchTree(t, plugins, t0.Add(2*time.Minute))
	clock.now = t0.Add(3 * time.Minute)

	third, err := l.Load(ctx)
	require.NoError(t, err)
	fields, ok := third.Resolve("note")
	require.True(t, ok)
	assert.Equal(t, "mood", fields[len(fields)-1].Name)
	assert.Equal(t, 2, l.State().(LoaderState).Rebuilds)
}

// steppingClock returns base, base+1s, base+2s, ... on successive readings.
type steppingClock struct {
	next  time.Time
	reads []time.Time
}

func (c *steppingClock) Now() time.Time {
	now := c.next
	c.reads = append(c.reads, now)
	c.next = c.next.Add(time.Second)
	return now
}

func TestLoader_StampsCacheBeforeBuild(t *testing.T) {
	root := t.TempDir()
	plugins := filepath.Join(root, "plugins")
	cachePath := filepath.Join(root, "registry.cache")
	writeFile(t, plugins, "core_note/plugin.aethel.md", notePlugin)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	touchTree(t, plugins, t0)
	clock := &steppingClock{next: t0.Add(time.Minute)}

	l := NewLoader(Config{PluginsDir: plugins, CachePath: cachePath, Clock: clock})
	_, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, clock.reads, 2)
	info, err := os.Stat(cachePath)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(clock.reads[0]), "cache carries the time read before discovery")
	assert.True(t, l.State().(LoaderState).LastLoad.Equal(clock.reads[1]))

	// A schema written while the build ran is newer than the stamp.
	writeFile(t, plugins, "core_note/schemas/note.aethel.md", noteSchema)
	touchTree(t, plugins, clock.reads[0].Add(time.Millisecond))

	reg, err := l.Load(context.Background())
	require.NoError(t, err)
	_, ok := reg.Resolve("core_note/note")
	assert.True(t, ok, "stale cache must not hide the new schema")
	assert.Equal(t, 2, l.State().(LoaderState).Rebuilds)
}

func TestLoader_UnreadableExtensionIsMiss(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := t.TempDir()
	plugins := filepath.Join(root, "plugins")
	cachePath := filepath.Join(root, "registry.cache")
	writeFile(t, plugins, "core_note/plugin.aethel.md", notePlugin)
	writeFile(t, plugins, "core_note/schemas/note.aethel.md", noteSchema)
	writeFile(t, plugins, "locked/plugin.aethel.md", notePlugin)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	touchTree(t, plugins, t0)
	clock := &fakeClock{now: t0.Add(time.Minute)}
	l := NewLoader(Config{PluginsDir: plugins, CachePath: cachePath, Clock: clock})
	_, err := l.Load(context.Background())
	require.NoError(t, err)

	locked := filepath.Join(plugins, "locked")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	_, err = readCache(cachePath, plugins)
	assert.Error(t, err)

	reg, err := l.Load(context.Background())
	require.NoError(t, err, "a failed freshness check falls back to a rebuild")
	assert.Contains(t, reg.Plugins, "core_note")
	assert.NotContains(t, reg.Plugins, "locked")
	assert.Equal(t, 2, l.State().(LoaderState).Rebuilds)
}

func TestLoad_VaultRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, fs.PluginsPath(root), "core_note/plugin.aethel.md", notePlugin)
	writeFile(t, fs.PluginsPath(root), "core_note/schemas/note.aethel.md", noteSchema)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	touchTree(t, fs.PluginsPath(root), t0)
	clock := &fakeClock{now: t0.Add(time.Minute)}

	built, err := Load(context.Background(), root, clock)
	require.NoError(t, err)
	fields, ok := built.Resolve("note")
	require.True(t, ok)
	assert.Equal(t, "title", fields[len(fields)-1].Name)
	assert.FileExists(t, fs.RegistryCachePath(root))

	cached, err := Load(context.Background(), root, clock)
	require.NoError(t, err)
	if diff := cmp.Diff(built, cached, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("cached registry mismatch (-built +cached):\n%s", diff)
	}
}

func TestLoader_CorruptCacheIsMiss(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	plugins := filepath.Join(root, "plugins")
	cachePath := filepath.Join(root, "registry.cache")
	writeFile(t, plugins, "core_note/plugin.aethel.md", notePlugin)
	writeFile(t, plugins, "core_note/schemas/note.aethel.md", noteSchema)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	touchTree(t, plugins, t0)

	require.NoError(t, os.WriteFile(cachePath, []byte("AETHREG garbage that is long enough"), 0644))
	future := t0.Add(time.Hour)
	require.NoError(t, os.Chtimes(cachePath, future, future))

	l := NewLoader(Config{PluginsDir: plugins, CachePath: cachePath, Clock: &fakeClock{now: future}})
	reg, err := l.Load(ctx)
	require.NoError(t, err)
	_, ok := reg.Resolve("core_note/note")
	assert.True(t, ok)
	assert.Equal(t, 1, l.State().(LoaderState).Rebuilds)

	data, err := os.ReadFile(cachePath)
	require.NoError(t, err)
	_, err = DecodeCache(data)
	assert.NoError(t, err, "cache is rewritten after a miss")
}

func TestLoader_CacheWriteFailureIsNotFatal(t *testing.T) {
	root := t.TempDir()
	plugins := filepath.Join(root, "plugins")
	writeFile(t, plugins, "core_note/plugin.aethel.md", notePlugin)

	cachePath := filepath.Join(root, "cache-dir")
	require.NoError(t, os.MkdirAll(filepath.Join(cachePath, "occupied"), 0755))

	reg, err := NewLoader(Config{PluginsDir: plugins, CachePath: cachePath}).Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, reg.Plugins, "core_note")
}

func TestLoader_CycleFailsLoad(t *testing.T) {
	root := t.TempDir()
	plugins := filepath.Join(root, "plugins")
	writeFile(t, plugins, "x/plugin.aethel.md", "---\n---\n")
	writeFile(t, plugins, "x/schemas/a.md", schemaFile("b"))
	writeFile(t, plugins, "x/schemas/b.md", schemaFile("a"))

	_, err := NewLoader(Config{PluginsDir: plugins, CachePath: filepath.Join(root, "c")}).Load(context.Background())
	assert.ErrorIs(t, err, core.ErrCircularSchemaDependency)
	_, statErr := os.Stat(filepath.Join(root, "c"))
	assert.True(t, os.IsNotExist(statErr), "failed loads leave no cache behind")
}

func TestCache_Decode(t *testing.T) {
	reg := &core.Registry{
		Plugins: map[string]core.Extension{"x": {ID: "x", Name: "X", Version: "1.0", Schemas: map[string]core.Schema{}}},
		ResolvedSchemas: map[string][]core.Field{
			"x/s": core.BaseFields(),
		},
		Diagnostics: []core.Diagnostic{{Item: "y", Message: "skipped"}},
	}
	data, err := EncodeCache(reg)
	require.NoError(t, err)

	got, err := DecodeCache(data)
	require.NoError(t, err)
	if diff := cmp.Diff(reg, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("decoded registry mismatch (-want +got):\n%s", diff)
	}

	flipped := append([]byte{}, data...)
	flipped[len(flipped)-1] ^= 0xff
	_, err = DecodeCache(flipped)
	assert.ErrorIs(t, err, errCacheChecksum)

	_, err = DecodeCache(data[:len(data)-1])
	assert.ErrorIs(t, err, errCacheLength)

	wrongVersion := append([]byte{}, data...)
	wrongVersion[len(cacheMagic)] = cacheVersion + 1
	_, err = DecodeCache(wrongVersion)
	assert.ErrorIs(t, err, errCacheVersion)

	_, err = DecodeCache([]byte("short"))
	assert.ErrorIs(t, err, errCacheTooSmall)
}
