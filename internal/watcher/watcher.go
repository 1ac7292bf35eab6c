// Package watcher reloads the genre affinity table when its YAML file
// changes on disk, so operators can tune adjacency without a restart.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc is called after the affinity file changes. It receives the
// file path and should load and install the new table.
type ReloadFunc func(ctx context.Context, path string) error

// Service watches a single affinity file for writes, creates, and renames,
// coalescing bursts into one reload. Editors that replace files atomically
// produce rename-plus-create sequences, so the parent directory is watched
// rather than the file itself.
type Service struct {
	path     string
	reloadFn ReloadFunc
	logger   *slog.Logger
	debounce time.Duration
	pollTick time.Duration

	lastMod time.Time
}

// NewService creates a watcher for the given affinity file path.
func NewService(path string, reloadFn ReloadFunc, logger *slog.Logger) *Service {
	return &Service{
		path:     path,
		reloadFn: reloadFn,
		logger:   logger.With("component", "affinity-watcher"),
		debounce: 1 * time.Second,
		pollTick: 1 * time.Minute,
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (s *Service) SetDebounce(d time.Duration) {
	s.debounce = d
}

// SetPollInterval overrides the default poll interval (for testing).
func (s *Service) SetPollInterval(d time.Duration) {
	s.pollTick = d
}

// Start blocks until ctx is canceled. It creates an fsnotify watcher on the
// file's parent directory and reloads on change. If fsnotify is unavailable,
// the service still runs with mtime polling.
func (s *Service) Start(ctx context.Context) {
	if info, err := os.Stat(s.path); err == nil {
		s.lastMod = info.ModTime()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("fsnotify unavailable, running poll-only", "error", err)
		w = nil
	} else {
		defer w.Close() //nolint:errcheck
		dir := filepath.Dir(s.path)
		if err := w.Add(dir); err != nil {
			s.logger.Warn("failed to watch affinity directory, running poll-only",
				"dir", dir, "error", err)
			w.Close() //nolint:errcheck
			w = nil
		}
	}

	s.logger.Info("affinity watcher starting", "path", s.path)

	pollTicker := time.NewTicker(s.pollTick)
	defer pollTicker.Stop()

	// Debounce timer coalesces rapid write events into a single reload.
	// Starts stopped; reset on each relevant event.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	reloadPending := false

	// When fsnotify is unavailable, use nil channels (never receive).
	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	if w != nil {
		eventCh = w.Events
		errCh = w.Errors
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("affinity watcher stopping")
			return

		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if !s.relevant(ev) {
				continue
			}
			resetTimer(debounceTimer, s.debounce)
			reloadPending = true

		case err, ok := <-errCh:
			if !ok {
				return
			}
			s.logger.Error("fsnotify error", "error", err)

		case <-debounceTimer.C:
			if reloadPending {
				reloadPending = false
				s.reload(ctx)
			}

		case <-pollTicker.C:
			if s.modTimeChanged() && !reloadPending {
				resetTimer(debounceTimer, s.debounce)
				reloadPending = true
			}
		}
	}
}

// relevant filters events down to changes of the watched file.
func (s *Service) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (s *Service) reload(ctx context.Context) {
	if err := s.reloadFn(ctx, s.path); err != nil {
		s.logger.Error("affinity reload failed, keeping previous table",
			"path", s.path, "error", err)
		return
	}
	if info, err := os.Stat(s.path); err == nil {
		s.lastMod = info.ModTime()
	}
	s.logger.Info("affinity table reloaded", "path", s.path)
}

// modTimeChanged reports whether the file's mtime moved since the last
// observation. A missing file is not a change; the previous table stays.
func (s *Service) modTimeChanged() bool {
	info, err := os.Stat(s.path)
	if err != nil {
		return false
	}
	return info.ModTime().After(s.lastMod)
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
