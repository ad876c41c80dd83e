package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Fixed vault layout.
const (
	InboxDir     = "00_inbox"
	SourcesDir   = "10_sources"
	ArtifactsDir = "20_artifacts"
	KnowledgeDir = "30_knowledge"
	SystemDir    = "99_system"
	PluginsDir   = "99_system/plugins"
	HiddenDir    = ".aethel"

	IndexFile         = "index.db"
	RegistryCacheFile = "registry.cache"
	GitIgnoreFile     = ".gitignore"
)

// LayoutDirs lists the directories every vault contains, in creation order.
var LayoutDirs = []string{InboxDir, SourcesDir, ArtifactsDir, KnowledgeDir, SystemDir, PluginsDir, HiddenDir}

// IndexPath returns the index database path of the vault at root.
func IndexPath(root string) string {
	return filepath.Join(root, HiddenDir, IndexFile)
}

// RegistryCachePath returns the registry cache path of the vault at root.
func RegistryCachePath(root string) string {
	return filepath.Join(root, HiddenDir, RegistryCacheFile)
}

// PluginsPath returns the extensions root of the vault at root.
func PluginsPath(root string) string {
	return filepath.Join(root, filepath.FromSlash(PluginsDir))
}

// Layout checks and repairs the directory layout of a vault.
type Layout struct {
	Root string
}

// Verify returns the layout entries missing under Root. With fix set, they are created afterwards.
func (l Layout) Verify(fix bool) ([]string, error) {
	var missing []string
	for _, dir := range LayoutDirs {
		info, err := os.Stat(filepath.Join(l.Root, filepath.FromSlash(dir)))
		if err == nil && info.IsDir() {
			continue
		}
		if err != nil && !errors.Is(err, iofs.ErrNotExist) {
			return nil, err
		}
		missing = append(missing, dir)
	}

	ignored, err := hasIgnoreEntry(l.Root)
	if err != nil {
		return nil, err
	}
	if !ignored {
		missing = append(missing, GitIgnoreFile)
	}

	if fix && len(missing) > 0 {
		if err := EnsureLayout(l.Root); err != nil {
			return missing, err
		}
	}
	return missing, nil
}

// EnsureLayout creates the vault directories and the .gitignore entry for the hidden directory.
func EnsureLayout(root string) error {
	for _, dir := range LayoutDirs {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if _, err := EnsureIgnore(root); err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}
	return nil
}

func hasIgnoreEntry(root string) (bool, error) {
	content, err := os.ReadFile(filepath.Join(root, GitIgnoreFile))
	if errors.Is(err, iofs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == HiddenDir+"/" {
			return true, nil
		}
	}
	return false, nil
}

// EnsureIgnore appends the hidden directory to .gitignore unless already listed.
// It reports whether the file was modified.
func EnsureIgnore(root string) (bool, error) {
	ignored, err := hasIgnoreEntry(root)
	if err != nil || ignored {
		return false, err
	}

	ignorePath := filepath.Join(root, GitIgnoreFile)
	content, err := os.ReadFile(ignorePath)
	if err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return false, err
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	if _, err := f.WriteString(HiddenDir + "/\n"); err != nil {
		return false, err
	}
	return true, nil
}
