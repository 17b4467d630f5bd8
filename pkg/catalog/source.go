package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
)

// Source provides the current set of items
type Source interface {
	Items() []Item
}

// StaticSource is a fixed item list
type StaticSource []Item

// Items returns the list itself
func (s StaticSource) Items() []Item { return s }

// DefaultReloadDelay is how long WatchedSource waits for a burst of file
// events to settle before reloading
const DefaultReloadDelay = 200 * time.Millisecond

// WatchedSource serves items loaded from every YAML file matching a
// doublestar pattern ("catalogs/**/*.yaml") and reloads them when a file in
// the pattern's base directory changes. A failed reload keeps the previous
// items.
type WatchedSource struct {
	pattern  string
	base     string
	registry *HandlerRegistry
	logger   logging.Logger
	delay    time.Duration

	mu    sync.RWMutex
	items []Item
	files []string

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
	reloads chan struct{}
}

// NewWatchedSource loads the catalog files matching pattern. The returned
// source does not watch until Start is called.
func NewWatchedSource(pattern string, registry *HandlerRegistry, logger logging.Logger) (*WatchedSource, error) {
	if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
		return nil, fmt.Errorf("invalid catalog pattern %q", pattern)
	}
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	s := &WatchedSource{
		pattern:  filepath.ToSlash(pattern),
		base:     filepath.FromSlash(base),
		registry: registry,
		logger:   logging.OrNop(logger).WithFields(logging.String("component", "catalog")),
		delay:    DefaultReloadDelay,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Items returns the most recently loaded items
func (s *WatchedSource) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

// Files returns the files the current items were loaded from
func (s *WatchedSource) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.files...)
}

// Reload re-reads every matching file. Files are read in lexical order so
// that first-declaration-wins rules are stable.
func (s *WatchedSource) Reload() error {
	matches, err := doublestar.FilepathGlob(filepath.FromSlash(s.pattern), doublestar.WithFilesOnly())
	if err != nil {
		return fmt.Errorf("match catalog files: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no catalog files match %q", s.pattern)
	}
	sort.Strings(matches)

	var items []Item
	for _, path := range matches {
		fileItems, err := LoadFile(path, s.registry)
		if err != nil {
			return err
		}
		items = append(items, fileItems...)
	}

	s.mu.Lock()
	s.items = items
	s.files = matches
	s.mu.Unlock()
	s.logger.Info("catalog loaded", logging.Int("files", len(matches)), logging.Int("items", len(items)))
	return nil
}

// Start watches the catalog directories until ctx is done or Close is called
func (s *WatchedSource) Start(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dirs, err := s.watchDirs()
	if err != nil {
		w.Close()
		return err
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.watcher = w
	s.cancel = cancel
	s.done = make(chan struct{})
	s.reloads = make(chan struct{}, 1)
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Reloaded receives a value after every reload attempt triggered by the
// watcher. It is nil before Start.
func (s *WatchedSource) Reloaded() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reloads
}

// Close stops watching
func (s *WatchedSource) Close() error {
	s.mu.Lock()
	cancel, done, w := s.cancel, s.done, s.watcher
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return w.Close()
}

func (s *WatchedSource) watchDirs() ([]string, error) {
	dirs := []string{s.base}
	err := filepath.WalkDir(s.base, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != s.base {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}

func (s *WatchedSource) run(ctx context.Context) {
	defer close(s.done)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = s.watcher.Add(ev.Name)
				}
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if ok, _ := doublestar.PathMatch(filepath.FromSlash(s.pattern), ev.Name); !ok {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.delay)
			} else {
				timer.Reset(s.delay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := s.Reload(); err != nil {
				s.logger.Warn("catalog reload failed, keeping previous items", logging.ErrorField(err))
			}
			select {
			case s.reloads <- struct{}{}:
			default:
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("catalog watcher error", logging.ErrorField(err))
		}
	}
}
