package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bkase/aethel/pkg/adapters/fs"
	"github.com/bkase/aethel/pkg/core"
)

// FindRoot looks upwards from startDir for a directory containing the
// hidden .aethel directory and returns its absolute path.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if isVault(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("vault root above %s: %w", abs, core.ErrNotFound)
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

// IsInitialized reports whether root holds every fixed layout directory.
func IsInitialized(root string) bool {
	for _, dir := range fs.LayoutDirs {
		if !hasFile(root, filepath.FromSlash(dir)) {
			return false
		}
	}
	return true
}
