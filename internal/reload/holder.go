// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package reload keeps the last valid configuration of a file and refreshes it
// when the file changes on disk.
package reload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	xglog "github.com/psi-fda/scanmodel/internal/log"
	"github.com/psi-fda/scanmodel/internal/metrics"
	"github.com/psi-fda/scanmodel/internal/model"
	"github.com/rs/zerolog"
)

// DefaultDebounce collapses bursts of file events into one reload.
const DefaultDebounce = 500 * time.Millisecond

// ErrAlreadyStarted is returned by Start when the watcher is running.
var ErrAlreadyStarted = errors.New("reload: watcher already started")

// Loader reads a configuration file. *codec.Codec satisfies it.
type Loader interface {
	Load(ctx context.Context, path string) (*model.Configuration, error)
}

// Holder serves the last configuration that loaded successfully from path.
// A file that fails to load never replaces a good configuration.
type Holder struct {
	path     string
	loader   Loader
	logger   zerolog.Logger
	debounce time.Duration

	mu      sync.RWMutex
	current *model.Configuration

	listenersMu sync.RWMutex
	listeners   []chan<- *model.Configuration
	onFailure   func(error)

	runMu   sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Holder.
type Option func(*Holder)

// WithDebounce sets how long the watcher waits for events to settle.
func WithDebounce(d time.Duration) Option {
	return func(h *Holder) { h.debounce = d }
}

// WithLogger sets the holder's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Holder) { h.logger = l }
}

// WithFailureHandler sets a function called with the load error of every
// rejected reload. It runs on the goroutine that called Reload.
func WithFailureHandler(fn func(error)) Option {
	return func(h *Holder) { h.onFailure = fn }
}

// New returns a holder for path. Get returns nil until the first successful Reload.
func New(path string, loader Loader, opts ...Option) *Holder {
	h := &Holder{
		path:     path,
		loader:   loader,
		logger:   xglog.WithComponent("reload"),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Get returns the current configuration. Callers must treat it as read-only.
func (h *Holder) Get() *model.Configuration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload loads the file and, on success, replaces the current configuration
// and notifies listeners. On failure the previous configuration stays in place.
func (h *Holder) Reload(ctx context.Context) error {
	logger := xglog.WithContext(ctx, h.logger)
	logger.Debug().Str(xglog.FieldEvent, "reload.start").Str(xglog.FieldPath, h.path).Msg("reloading configuration")

	cfg, err := h.loader.Load(ctx, h.path)
	if err != nil {
		metrics.RecordReload(false)
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "reload.failed").
			Str(xglog.FieldPath, h.path).
			Msg("keeping previous configuration")
		if h.onFailure != nil {
			h.onFailure(err)
		}
		return fmt.Errorf("reload %s: %w", h.path, err)
	}

	h.mu.Lock()
	h.current = cfg
	h.mu.Unlock()
	metrics.RecordReload(true)

	h.notify(cfg)

	logger.Info().
		Str(xglog.FieldEvent, "reload.success").
		Str(xglog.FieldPath, h.path).
		Msg("configuration reloaded")
	return nil
}

// Start watches the file's directory and reloads after the file is written,
// created or renamed into place. Save replaces files by rename, so the
// directory is watched rather than the file itself. The watcher runs until ctx
// is cancelled or Stop is called.
func (h *Holder) Start(ctx context.Context) error {
	h.runMu.Lock()
	defer h.runMu.Unlock()
	if h.watcher != nil {
		return ErrAlreadyStarted
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(h.path), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	h.watcher = watcher
	h.cancel = cancel
	h.done = make(chan struct{})

	h.logger.Info().
		Str(xglog.FieldEvent, "reload.watcher_started").
		Str(xglog.FieldPath, h.path).
		Msg("watching configuration file")

	go h.watchLoop(ctx, watcher, h.done)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, done chan<- struct{}) {
	defer close(done)
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(h.path)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "reload.watcher_stopped").Msg("configuration watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			h.logger.Debug().
				Str(xglog.FieldEvent, "reload.file_changed").
				Str(xglog.FieldOp, event.Op.String()).
				Msg("configuration file changed")

			if timer == nil {
				timer = time.NewTimer(h.debounce)
			} else {
				timer.Reset(h.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			// Failures are logged and counted by Reload.
			_ = h.Reload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "reload.watcher_error").
				Msg("configuration watcher error")
		}
	}
}

// Stop ends the watcher and waits for it to exit. It is safe to call more than
// once and without Start.
func (h *Holder) Stop() {
	h.runMu.Lock()
	cancel, done := h.cancel, h.done
	h.watcher, h.cancel, h.done = nil, nil, nil
	h.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Subscribe registers ch to receive every configuration that Reload installs.
// Sends never block; a full channel misses the update.
func (h *Holder) Subscribe(ch chan<- *model.Configuration) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notify(cfg *model.Configuration) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()

	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().
				Str(xglog.FieldEvent, "reload.listener_skip").
				Msg("listener channel full, update skipped")
		}
	}
}
