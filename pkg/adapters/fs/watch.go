package fs

import (
	"context"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last filesystem event before OnChange runs.
const DefaultDebounce = 250 * time.Millisecond

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Dir is the directory tree to watch.
	Dir string
	// Extensions that count as documents. Removals and renames always count.
	Extensions []string
	Debounce   time.Duration
	Logger     *slog.Logger
	// OnChange runs once per burst of relevant events.
	OnChange func(ctx context.Context) error
	// ErrorHandler receives OnChange and watcher failures. Defaults to logging.
	ErrorHandler func(error)
}

// Watcher observes a directory tree and calls OnChange, debounced, when documents change.
type Watcher struct {
	cfg     WatcherConfig
	watcher *fsnotify.Watcher
	done    chan struct{}

	mu       sync.RWMutex
	active   bool
	events   int
	runs     int
	lastRun  *time.Time
	lastErr  string
	watching int
}

// NewWatcher creates a Watcher. It does nothing until Start.
func NewWatcher(cfg WatcherConfig) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".md"}
	}
	return &Watcher{cfg: cfg, done: make(chan struct{})}
}

// Start registers the tree with fsnotify and runs the event loop until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if w.watcher != nil {
		return fmt.Errorf("watcher already started")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := os.MkdirAll(w.cfg.Dir, 0755); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to create %s: %w", w.cfg.Dir, err)
	}
	w.watcher = watcher
	if _, err := w.addTree(w.cfg.Dir); err != nil {
		_ = watcher.Close()
		return err
	}
	w.setActive(true)

	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		w.report(fmt.Errorf("watcher panic: %w", err))
	}))
	return nil
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} { return w.done }

// Run starts the watcher and blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-w.done
	return nil
}

// addTree watches root and every directory below it. It returns the number
// of document files already present, which were written before the watch existed.
func (w *Watcher) addTree(root string) (int, error) {
	docs := 0
	err := filepath.WalkDir(root, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if w.isDocument(d.Name()) {
				docs++
			}
			return nil
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		w.mu.Lock()
		w.watching++
		w.mu.Unlock()
		return nil
	})
	return docs, err
}

func (w *Watcher) isDocument(name string) bool {
	if strings.HasPrefix(name, TempFilePrefix) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range w.cfg.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if strings.HasPrefix(filepath.Base(event.Name), TempFilePrefix) {
		return false
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return true
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	return w.isDocument(filepath.Base(event.Name))
}

func (w *Watcher) run(ctx context.Context) (err error) {
	defer close(w.done)
	defer w.setActive(false)
	defer w.watcher.Close()
	defer func() {
		if r := recover(); r != nil {
			attrs := []any{"error", r}
			if w.cfg.Logger.Enabled(ctx, slog.LevelDebug) {
				attrs = append(attrs, "stack", string(debug.Stack()))
			}
			w.cfg.Logger.Error("watcher panic", attrs...)
			err = fmt.Errorf("watcher panic: %v", r)
		}
	}()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.cfg.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())

			relevant := w.relevant(event)
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					docs, err := w.addTree(event.Name)
					if err != nil {
						w.report(err)
					}
					relevant = relevant || docs > 0
				}
			}
			if !relevant {
				continue
			}

			w.mu.Lock()
			w.events++
			w.mu.Unlock()

			if timer == nil {
				timer = time.NewTimer(w.cfg.Debounce)
			} else {
				timer.Reset(w.cfg.Debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.report(fmt.Errorf("fsnotify: %w", err))

		case <-fire:
			fire = nil
			w.fire(ctx)
		}
	}
}

func (w *Watcher) fire(ctx context.Context) {
	if w.cfg.OnChange == nil {
		return
	}
	err := w.cfg.OnChange(ctx)

	now := time.Now()
	w.mu.Lock()
	w.runs++
	w.lastRun = &now
	if err != nil {
		w.lastErr = err.Error()
	}
	w.mu.Unlock()

	if err != nil {
		w.report(err)
	}
}

func (w *Watcher) report(err error) {
	if w.cfg.ErrorHandler != nil {
		w.cfg.ErrorHandler(err)
		return
	}
	w.cfg.Logger.Error("watcher error", "error", err)
}

func (w *Watcher) setActive(active bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = active
}
