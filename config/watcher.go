package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"go.jacobcolvin.com/marklog/log"
	"go.jacobcolvin.com/marklog/marker"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher keeps a [log.Switch] pointed at the pipeline built from a
// configuration file, rebuilding it when the file changes.
//
// A reload that fails to read, validate or build the file leaves the
// previous pipeline in place. Reload outcomes are reported on a separate
// diagnostic logger, never on the managed one.
//
// Create instances with [NewWatcher].
type Watcher struct {
	sw       *log.Switch
	reg      *marker.Registry
	diag     *slog.Logger
	current  *Pipeline
	build    BuildOptions
	path     string
	debounce time.Duration
	mu       sync.Mutex
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithDebounce sets how long the Watcher waits for further changes before
// reloading. The default is 200ms.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithDiagnostics sets the logger that reload outcomes are reported to. The
// default discards everything.
func WithDiagnostics(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.diag = l
	}
}

// WithBuildOptions sets the options passed to [Build]. Unless set, the
// diagnostics logger also receives notify delivery failures.
func WithBuildOptions(opts BuildOptions) WatcherOption {
	return func(w *Watcher) {
		w.build = opts
	}
}

// NewWatcher creates a [Watcher] for the file at path that swaps rebuilt
// handlers into sw. A nil reg means [marker.Default].
func NewWatcher(path string, sw *log.Switch, reg *marker.Registry, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		sw:       sw,
		reg:      reg,
		diag:     slog.New(slog.DiscardHandler),
		path:     filepath.Clean(path),
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.build.Diagnostics == nil {
		w.build.Diagnostics = w.diag
	}

	return w
}

// Reload loads and builds the file, starts the new pipeline's dispatchers
// with ctx, swaps its handler into the switch and closes the previous
// pipeline. On error nothing changes.
func (w *Watcher) Reload(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	cfg, err := Load(w.path)
	if err != nil {
		w.diag.WarnContext(ctx, "keeping previous logging configuration",
			slog.String("path", w.path),
			slog.Any("error", err),
		)

		return err
	}

	p, err := Build(cfg, w.reg, &w.build)
	if err != nil {
		w.diag.WarnContext(ctx, "keeping previous logging configuration",
			slog.String("path", w.path),
			slog.Any("error", err),
		)

		return err
	}

	p.Start(ctx)
	w.sw.Set(p.Handler())

	prev := w.current
	w.current = p

	if prev != nil {
		err = prev.Close()
		if err != nil {
			w.diag.WarnContext(ctx, "closing previous logging pipeline", slog.Any("error", err))
		}
	}

	w.diag.InfoContext(ctx, "logging configuration loaded",
		slog.String("path", w.path),
		slog.Int("outputs", len(cfg.Outputs)),
		slog.Int("markers", len(cfg.Markers)),
	)

	return nil
}

// Run loads the file, then watches it like [Watcher.Watch]. It returns an
// error only if the initial load fails or the file cannot be watched.
func (w *Watcher) Run(ctx context.Context) error {
	err := w.Reload(ctx)
	if err != nil {
		return err
	}

	return w.Watch(ctx)
}

// Watch reloads the file on every change until ctx is cancelled. The parent
// directory is watched so that editors which replace the file are handled.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	err = fw.Add(filepath.Dir(w.path))
	if err != nil {
		return fmt.Errorf("watching %s: %w", w.path, err)
	}

	// Coalesced reload requests from the debounce timer.
	reload := make(chan struct{}, 1)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)

	defer func() {
		timerMu.Lock()
		defer timerMu.Unlock()

		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}

			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}

			timer = time.AfterFunc(w.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
			timerMu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}

			w.diag.WarnContext(ctx, "file watcher error", slog.Any("error", err))

		case <-reload:
			//nolint:errcheck // Failures are reported on the diagnostic logger.
			w.Reload(ctx)
		}
	}
}

// Close closes the current pipeline. Call it after the switch no longer
// routes records to the pipeline, or accept that later records to closed
// files are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current == nil {
		return nil
	}

	err := w.current.Close()
	w.current = nil

	return err
}
