package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkase/aethel/pkg/core"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_Workflow(t *testing.T) {
	cfgHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfgHome)
	vault := filepath.Join(t.TempDir(), "vault")

	out, err := run(t, "init", "--no-git", vault)
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized new Aethel vault at: "+vault)

	cfg, err := os.ReadFile(filepath.Join(cfgHome, "aethel", "config.json"))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), vault)

	out, err = run(t, "new", "--type", "note", "--title", "Hello", "--body", "first", "--field", "mood=calm")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	_, err = uuid.Parse(id)
	require.NoError(t, err, "new prints only the UUID")

	out, err = run(t, "grow", "--uuid", id, "--content", "second")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = run(t, "get", "--uuid", id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "---\nuuid: "+id+"\ntype: core_note/note\n"))
	assert.True(t, strings.HasSuffix(out, "---\nfirst\n\nsecond"))

	out, err = run(t, "get", "--uuid", id, "--format", "json")
	require.NoError(t, err)
	var got struct {
		Frontmatter map[string]any `json:"frontmatter"`
		Content     string         `json:"content"`
		Path        string         `json:"path"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "first\n\nsecond", got.Content)
	assert.Equal(t, "calm", got.Frontmatter["mood"])
	assert.Equal(t, "Hello", got.Frontmatter["title"])
	assert.Equal(t, id, got.Frontmatter["uuid"])
	assert.True(t, strings.HasPrefix(got.Path, "20_artifacts/core_note/"))

	_, err = run(t, "write", "--type", "note", "--content", "untitled")
	assert.ErrorIs(t, err, core.ErrValidation)

	out, err = run(t, "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "Plugins: 1, schemas: 1, artifacts: 1")
	assert.Contains(t, out, "No issues found")

	out, err = run(t, "schema", "list")
	require.NoError(t, err)
	assert.Equal(t, "core_note/note\n", out)

	out, err = run(t, "schema", "show", "note")
	require.NoError(t, err)
	assert.Contains(t, out, "title")
	assert.Contains(t, out, "The title of the note")

	out, err = run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "aethel version 0.1.0\n", out)
}

func TestParseFields(t *testing.T) {
	fields, err := parseFields([]string{"a=1", "b=x=y", "c="})
	require.NoError(t, err)
	assert.Equal(t, map[string]core.Value{
		"a": core.String("1"),
		"b": core.String("x=y"),
		"c": core.String(""),
	}, fields)

	_, err = parseFields([]string{"novalue"})
	assert.ErrorIs(t, err, core.ErrValidation)

	fields, err = parseFields(nil)
	require.NoError(t, err)
	assert.Nil(t, fields)
}
