// Package platform assembles the filesystem store, the SQLite index and the
// schema registry into a ready-to-use vault.
package platform

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bkase/aethel/pkg/adapters/fs"
	"github.com/bkase/aethel/pkg/adapters/sqlite"
	"github.com/bkase/aethel/pkg/core"
	"github.com/bkase/aethel/pkg/git"
	"github.com/bkase/aethel/pkg/registry"
)

// Vault is an opened vault and its components.
type Vault struct {
	Root     string
	Service  *core.Service
	Store    *fs.Store
	Index    *sqlite.Index
	Registry *registry.Loader

	logger       *slog.Logger
	errorHandler func(error)
}

// Init creates the vault layout at path, the index database and the
// bundled core_note extension, then initializes git when versioning is
// enabled. Existing files are left untouched. It returns the resolved root.
func Init(ctx context.Context, path string, opts ...Option) (string, error) {
	o := buildOptions(opts)
	return initVault(ctx, o.resolvePath(path), o)
}

func initVault(ctx context.Context, root string, o *options) (string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", fmt.Errorf("failed to create vault directory: %w", err)
	}
	if err := fs.EnsureLayout(root); err != nil {
		return "", err
	}

	idx, err := sqlite.Open(ctx, fs.IndexPath(root), o.logger)
	if err != nil {
		return "", err
	}
	if err := idx.Close(); err != nil {
		return "", err
	}

	if err := writeExamplePlugin(root); err != nil {
		return "", err
	}

	if o.versioning {
		if !git.IsInstalled() {
			o.logger.Warn("git not found, vault is not versioned", "path", root)
		} else if err := git.NewClient(root, o.logger).Init(ctx); err != nil {
			return "", err
		}
	}

	o.logger.Info("vault initialized", "path", root)
	return root, nil
}

// New opens the vault at path. With WithAutoInit, an uninitialized vault
// is initialized first; otherwise path must already contain .aethel.
func New(ctx context.Context, path string, opts ...Option) (*Vault, error) {
	o := buildOptions(opts)
	root, err := filepath.Abs(o.resolvePath(path))
	if err != nil {
		return nil, err
	}

	if o.autoInit && !isVault(root) {
		if _, err := initVault(ctx, root, o); err != nil {
			return nil, err
		}
	}

	info, err := os.Stat(root)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, fmt.Errorf("vault %s: %w", root, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: vault %s is not a directory", core.ErrValidation, root)
	}
	if !isVault(root) {
		return nil, fmt.Errorf("vault %s: %w (missing %s, run init)", root, core.ErrNotFound, fs.HiddenDir)
	}

	idx, err := sqlite.Open(ctx, fs.IndexPath(root), o.logger)
	if err != nil {
		return nil, err
	}

	store := fs.NewStore(fs.Config{Root: root, Logger: o.logger, Serializers: serializers(o)})
	loader := registry.NewLoader(registry.Config{Root: root, Clock: o.clock, Logger: o.logger})

	svc := core.NewService(core.ServiceConfig{
		Store:   store,
		Index:   idx,
		Schemas: loader,
		Layout:  fs.Layout{Root: root},
		Clock:   o.clock,
		NewID:   o.newID,
		Logger:  o.logger,
	})

	return &Vault{
		Root:         root,
		Service:      svc,
		Store:        store,
		Index:        idx,
		Registry:     loader,
		logger:       o.logger,
		errorHandler: o.errorHandler,
	}, nil
}

func serializers(o *options) map[string]fs.Serializer {
	if len(o.serializers) == 0 {
		return nil
	}
	out := fs.DefaultSerializers()
	for ext, s := range o.serializers {
		out[ext] = s
	}
	return out
}

func isVault(root string) bool {
	info, err := os.Stat(filepath.Join(root, fs.HiddenDir))
	return err == nil && info.IsDir()
}

// Close releases the index database.
func (v *Vault) Close() error {
	return v.Index.Close()
}

// Watch reindexes the vault whenever documents under the artifacts
// directory change, until ctx is cancelled.
func (v *Vault) Watch(ctx context.Context) (*fs.Watcher, error) {
	w := fs.NewWatcher(fs.WatcherConfig{
		Dir:    filepath.Join(v.Root, fs.ArtifactsDir),
		Logger: v.logger,
		OnChange: func(ctx context.Context) error {
			n, err := v.Service.Reindex(ctx)
			if err != nil {
				return err
			}
			v.logger.Info("index rebuilt", "entries", n)
			return nil
		},
		ErrorHandler: v.errorHandler,
	})
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// Components lists the introspectable parts of the vault.
func (v *Vault) Components() []any {
	return []any{v.Service, v.Store, v.Index, v.Registry}
}
