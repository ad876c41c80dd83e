package platform

import (
	"log/slog"

	"github.com/bkase/aethel/pkg/adapters/fs"
	"github.com/bkase/aethel/pkg/core"
)

// options holds the internal configuration for opening a vault.
type options struct {
	logger       *slog.Logger
	clock        core.Clock
	newID        core.IDGenerator
	versioning   bool
	autoInit     bool
	devSafety    bool
	serializers  map[string]fs.Serializer
	errorHandler func(error)
}

// Option defines a functional option for configuring a vault.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		versioning:  true,
		devSafety:   true,
		serializers: make(map[string]fs.Serializer),
	}
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.clock == nil {
		o.clock = core.SystemClock{}
	}
	return o
}

// WithLogger sets the logger shared by every component of the vault.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock replaces the wall clock used for timestamps and cache stamps.
func WithClock(clock core.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithIDGenerator replaces the random UUID source used for new artifacts.
func WithIDGenerator(gen core.IDGenerator) Option {
	return func(o *options) {
		o.newID = gen
	}
}

// WithVersioning enables or disables git initialization of new vaults.
// By default, versioning is enabled.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		o.versioning = enabled
	}
}

// WithAutoInit makes New initialize the vault when it has not been initialized yet.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.autoInit = auto
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or `go test`.
// By default (true), such runs are redirected to a temporary directory.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithSerializer registers a serializer for a document file extension (e.g. ".md").
func WithSerializer(ext string, s fs.Serializer) Option {
	return func(o *options) {
		o.serializers[ext] = s
	}
}

// WithWatcherErrorHandler registers a callback for failures inside Watch.
// Without it, failures are only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}
