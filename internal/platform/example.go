package platform

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/bkase/aethel/pkg/adapters/fs"
)

// ExamplePlugin is the extension every new vault starts with.
const ExamplePlugin = "core_note"

const examplePluginDoc = `---
name: Core Note
version: 1.0
description: Basic note-taking plugin for Aethel
author: Aethel Team
---

# Core Note Plugin

This plugin provides basic note-taking functionality for your Aethel vault.

## Features

- Simple text notes with title and content
- Tag support for organization
- Timestamp tracking

## Usage

Create a new note:
` + "```bash\naethel new --type note --title \"My First Note\"\n```\n"

const exampleNoteSchema = `---
name: note
description: A simple text note
fields:
  - name: title
    type: string
    required: true
    description: The title of the note
---

# Note Schema

This schema defines the structure for basic notes in your Aethel vault.
`

// writeExamplePlugin creates the core_note extension files that do not exist yet.
func writeExamplePlugin(root string) error {
	dir := filepath.Join(fs.PluginsPath(root), ExamplePlugin)
	files := []struct{ path, content string }{
		{filepath.Join(dir, "plugin.aethel.md"), examplePluginDoc},
		{filepath.Join(dir, "schemas", "note.aethel.md"), exampleNoteSchema},
	}
	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil {
			continue
		} else if !errors.Is(err, iofs.ErrNotExist) {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
			return err
		}
		if err := fs.WriteFileAtomic(f.path, []byte(f.content), 0644); err != nil {
			return err
		}
	}
	return nil
}
