package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkase/aethel/pkg/adapters/fs"
	"github.com/bkase/aethel/pkg/core"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	x, err := Open(context.Background(), filepath.Join(t.TempDir(), ".aethel", "index.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { x.Close() })
	return x
}

func TestIndex_InsertLookupDelete(t *testing.T) {
	x := openTestIndex(t)
	ctx := context.Background()
	id := uuid.New()

	_, ok, err := x.Lookup(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, x.Insert(ctx, id, "20_artifacts/core_note/2024/01/a.md"))

	got, ok, err := x.Lookup(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "20_artifacts/core_note/2024/01/a.md", got)

	err = x.Insert(ctx, id, "other.md")
	assert.ErrorIs(t, err, core.ErrDuplicateIdentifier)

	got, _, err = x.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "20_artifacts/core_note/2024/01/a.md", got, "failed insert must not overwrite")

	require.NoError(t, x.Delete(ctx, id))
	_, ok, err = x.Lookup(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, x.Delete(ctx, id), "deleting an absent id is a no-op")
}

func TestIndex_Rebuild(t *testing.T) {
	x := openTestIndex(t)
	ctx := context.Background()

	stale := uuid.New()
	require.NoError(t, x.Insert(ctx, stale, "gone.md"))

	entries := []core.IndexEntry{
		{ID: uuid.New(), Path: "20_artifacts/a.md"},
		{ID: uuid.New(), Path: "20_artifacts/b.md"},
	}

	for range 2 {
		require.NoError(t, x.Rebuild(ctx, entries))

		got, err := x.Entries(ctx)
		require.NoError(t, err)
		assert.Equal(t, entries, got)
	}

	for _, e := range entries {
		p, ok, err := x.Lookup(ctx, e.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, e.Path, p)
	}

	_, ok, err := x.Lookup(ctx, stale)
	require.NoError(t, err)
	assert.False(t, ok)

	state := x.State().(IndexState)
	assert.Equal(t, 2, state.Entries)
	assert.NotNil(t, state.LastRebuild)
}

func TestIndex_Rebuild_DuplicateKeepsOldContent(t *testing.T) {
	x := openTestIndex(t)
	ctx := context.Background()

	keep := core.IndexEntry{ID: uuid.New(), Path: "keep.md"}
	require.NoError(t, x.Rebuild(ctx, []core.IndexEntry{keep}))

	dup := uuid.New()
	err := x.Rebuild(ctx, []core.IndexEntry{{ID: dup, Path: "a.md"}, {ID: dup, Path: "b.md"}})
	assert.ErrorIs(t, err, core.ErrDuplicateIdentifier)

	got, err := x.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.IndexEntry{keep}, got)
}

func TestIndex_Rebuild_Empty(t *testing.T) {
	x := openTestIndex(t)
	ctx := context.Background()
	require.NoError(t, x.Insert(ctx, uuid.New(), "a.md"))

	require.NoError(t, x.Rebuild(ctx, nil))

	got, err := x.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIndex_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()
	id := uuid.New()

	x, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, x.Insert(ctx, id, "a.md"))
	require.NoError(t, x.Close())

	x, err = Open(ctx, path, nil)
	require.NoError(t, err)
	defer x.Close()

	p, ok, err := x.Lookup(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a.md", p)
}

func TestOpen_Unavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := Open(context.Background(), filepath.Join(blocker, "index.db"), nil)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestIndex_RebuildFromScanIsIdempotent(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, fs.EnsureLayout(root))
	store := fs.NewStore(fs.Config{Root: root})

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, rel := range []string{
		"20_artifacts/core_note/2024/03/2024-03-01-12-00-00.md",
		"20_artifacts/core_note/2024/04/2024-04-02-08-15-00.md",
		"20_artifacts/journal/2024/03/2024-03-05-21-40-00.md",
	} {
		doc := core.Document{
			ID:            uuid.New(),
			Type:          "core_note/note",
			CreatedAt:     created.Add(time.Duration(i) * time.Hour),
			UpdatedAt:     created.Add(time.Duration(i) * time.Hour),
			Tags:          []string{},
			SchemaVersion: core.DefaultSchemaVersion,
		}
		require.NoError(t, store.Write(ctx, rel, doc))
	}
	broken := filepath.Join(root, "20_artifacts", "core_note", "broken.md")
	require.NoError(t, os.WriteFile(broken, []byte("no header"), 0644))

	x := openTestIndex(t)
	var previous []core.IndexEntry
	for i := range 2 {
		scanned, err := store.ScanAll(ctx)
		require.NoError(t, err)
		require.Len(t, scanned, 3, "unparseable files are not indexed")
		require.NoError(t, x.Rebuild(ctx, scanned))

		got, err := x.Entries(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, scanned, got)
		if i > 0 {
			assert.Equal(t, previous, got, "second rebuild changes nothing")
		}
		previous = got
	}
}
