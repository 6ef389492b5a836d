package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReloadFunc receives every configuration that loaded and validated.
type ReloadFunc func(*Config) error

// ErrorFunc receives load, validation and watch errors.
type ErrorFunc func(error)

// Watcher reloads a configuration file when it changes on disk. An invalid
// file is reported and the previous configuration stays active.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onReload ReloadFunc
	onError  ErrorFunc
	logger   *zap.Logger
	debounce time.Duration

	mu      sync.Mutex
	current *Config
	stopped chan struct{}
}

type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

func WithWatchLogger(logger *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

func WithErrorFunc(fn ErrorFunc) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

func NewWatcher(path string, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	if onReload == nil {
		return nil, errors.New("reload callback is required")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     absPath,
		watcher:  fsWatcher,
		onReload: onReload,
		logger:   zap.NewNop(),
		debounce: 100 * time.Millisecond,
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start watches the directory holding the config file, so editors that
// replace the file by rename are still observed. It returns once watching
// has begun; the loop ends when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = w.watcher.Close()
		return err
	}
	w.logger.Info("watching configuration", zap.String("path", w.path))

	go w.loop(ctx)
	return nil
}

// Close releases the file watch of a watcher that was never started.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Wait blocks until the watch loop has exited.
func (w *Watcher) Wait() {
	<-w.stopped
}

// applied returns the last configuration applied by the watcher, or nil.
func (w *Watcher) applied() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.stopped)
	defer func() { _ = w.watcher.Close() }()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("configuration changed", zap.String("op", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			w.Reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.fail("config watcher error", err)
		}
	}
}

// Reload loads, validates and applies the configuration file immediately.
func (w *Watcher) Reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.fail("failed to load configuration", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		w.fail("configuration validation failed", err)
		return
	}
	if err := w.onReload(cfg); err != nil {
		w.fail("failed to apply configuration", err)
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	w.logger.Info("configuration reloaded", zap.String("path", w.path))
}

func (w *Watcher) fail(msg string, err error) {
	fields := []zap.Field{zap.String("path", w.path), zap.Error(err)}
	var verr *ValidationError
	if errors.As(err, &verr) {
		fields = append(fields, zap.Strings("problems", verr.Problems))
	}
	w.logger.Error(msg, fields...)
	if w.onError != nil {
		w.onError(err)
	}
}
