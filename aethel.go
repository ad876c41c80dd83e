package aethel

import (
	"context"
	"log/slog"

	"github.com/bkase/aethel/internal/platform"
	"github.com/bkase/aethel/pkg/adapters/fs"
	"github.com/bkase/aethel/pkg/core"
	"github.com/bkase/aethel/pkg/typed"
)

// --- Types ---

// Vault is an opened vault: its service, store, index and schema registry.
type Vault = platform.Vault

// Artifact is a document whose metadata is decoded into T.
type Artifact[T any] = typed.Artifact[T]

// TypedService is a public alias for the typed service.
type TypedService[T any] = typed.Service[T]

// --- Configuration ---

// Option defines a functional option for opening a vault.
type Option = platform.Option

// WithAutoInit initializes the vault on New when it has not been initialized yet.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithVersioning enables or disables git initialization of new vaults.
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithClock replaces the wall clock.
func WithClock(clock core.Clock) Option {
	return platform.WithClock(clock)
}

// WithIDGenerator replaces the UUID source for new artifacts.
func WithIDGenerator(gen core.IDGenerator) Option {
	return platform.WithIDGenerator(gen)
}

// WithDevSafety controls the temporary-directory sandbox used by `go run` and `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithSerializer registers a serializer for a document file extension.
func WithSerializer(ext string, s fs.Serializer) Option {
	return platform.WithSerializer(ext, s)
}

// WithWatcherErrorHandler receives failures from Vault.Watch.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// New opens the vault at path.
func New(ctx context.Context, path string, opts ...Option) (*Vault, error) {
	return platform.New(ctx, path, opts...)
}

// Init creates or completes the vault layout at path and returns its absolute root.
func Init(ctx context.Context, path string, opts ...Option) (string, error) {
	return platform.Init(ctx, path, opts...)
}

// NewTypedService creates a typed service for artifacts of typeTag.
func NewTypedService[T any](v *Vault, typeTag string) *typed.Service[T] {
	return typed.NewService[T](v.Service, typeTag)
}

// --- Utils ---

// FindVaultRoot looks upwards from startDir for the nearest vault.
func FindVaultRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}
