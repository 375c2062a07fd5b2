package internal

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/kamu/pkg/logger"
)

// ReloaderOption configures a Reloader.
type ReloaderOption func(*Reloader)

// WithDebounceDelay sets how long file events settle before a reload.
func WithDebounceDelay(d time.Duration) ReloaderOption {
	return func(r *Reloader) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// WithReloadLogger sets the reloader's logger.
func WithReloadLogger(l *slog.Logger) ReloaderOption {
	return func(r *Reloader) {
		r.logger = logger.OrNope(l)
	}
}

// WithCacheFile recompiles the route cache after each successful reload.
func WithCacheFile(path string) ReloaderOption {
	return func(r *Reloader) {
		r.cachePath = path
	}
}

// Reloader rebuilds the route table from its file and swaps it into the
// router. A failed reload keeps the live table. Concurrent reload requests
// share one evaluation.
type Reloader struct {
	router    *Router
	path      string
	cachePath string
	debounce  time.Duration
	logger    *slog.Logger
	group     singleflight.Group
}

// NewReloader watches the route file at path for router.
func NewReloader(router *Router, path string, opts ...ReloaderOption) *Reloader {
	r := &Reloader{
		router:   router,
		path:     path,
		debounce: 100 * time.Millisecond,
		logger:   router.Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reload evaluates the route file into a fresh table and installs it.
func (r *Reloader) Reload() error {
	_, err, shared := r.group.Do(r.path, func() (any, error) {
		t := NewTable()
		if err := t.LoadFile(r.path); err != nil {
			return nil, err
		}
		if err := r.router.Load(t); err != nil {
			return nil, err
		}
		if r.cachePath != "" {
			if err := t.CompileToCache(r.cachePath); err != nil {
				r.logger.Warn("route cache not refreshed",
					slog.String("path", r.cachePath),
					slog.Any("error", err),
				)
			}
		}
		return nil, nil
	})

	if err != nil {
		r.router.metrics.observeReload(ReloadError)
		r.logger.Error("route reload failed, keeping live table",
			slog.String("path", r.path),
			slog.Any("error", err),
		)
		return err
	}
	if !shared {
		r.router.metrics.observeReload(ReloadSuccess)
	}
	return nil
}

// Run watches the route file's directory and reloads on writes until ctx
// is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	abs, err := filepath.Abs(r.path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Editors replace files on save, so watch the directory.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	r.logger.Info("watching route file", slog.String("path", abs))

	var (
		timer    *time.Timer
		debounce <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(r.debounce)
			debounce = timer.C

		case <-debounce:
			debounce = nil
			_ = r.Reload()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("route watcher error", slog.Any("error", err))
		}
	}
}
