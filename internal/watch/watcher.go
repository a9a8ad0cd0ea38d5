// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when files under a directory change.
//
// Events are debounced: a run starts once the tree has been quiet for the
// debounce period, and receives every path that changed since the previous
// run. Runs are serialized; changes made while a run is in progress are
// collected and trigger exactly one follow-up run.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Config.Debounce is not set.
const DefaultDebounce = 500 * time.Millisecond

// defaultIgnores are doublestar patterns, relative to the watched directory,
// that never trigger a run. dist is the frontend's own build output.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/dist/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

// ErrAlreadyStarted is returned by Run when called more than once.
var ErrAlreadyStarted = errors.New("watch: Run called more than once")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Dir is the directory watched recursively. Empty means the working directory.
		Dir string

		// Exclude lists directories whose contents never trigger a run, such as
		// an export destination that lives inside Dir.
		Exclude []string

		// Ignore are extra doublestar patterns merged with the defaults.
		Ignore []string

		// Debounce is the quiet period before a run. Zero or negative means DefaultDebounce.
		Debounce time.Duration

		// OnChange is called with the changed paths, relative to Dir. An error
		// is logged and watching continues.
		OnChange func(ctx context.Context, changed []string) error

		// Logger receives watch diagnostics. nil discards them.
		Logger *log.Logger
	}

	// Watcher watches a directory tree and runs Config.OnChange after changes.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		dir      string
		exclude  []string
		ignores  []string
		debounce time.Duration
		logger   *log.Logger
		started  atomic.Bool
	}
)

// New creates a Watcher and registers every non-ignored directory under
// cfg.Dir.
func New(cfg Config) (*Watcher, error) {
	dir := cfg.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		dir = wd
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve directory: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", absDir)
	}

	for _, pat := range cfg.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid ignore pattern %q", pat)
		}
	}

	exclude := make([]string, 0, len(cfg.Exclude))
	for _, ex := range cfg.Exclude {
		abs, err := filepath.Abs(ex)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve excluded directory: %w", err)
		}
		exclude = append(exclude, abs)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		dir:      absDir,
		exclude:  exclude,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		debounce: debounce,
		logger:   logger,
	}

	if err := w.addTree(absDir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Dir returns the absolute watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Run processes events until ctx is done. It returns nil on cancellation,
// after any run in progress has finished.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("closing watcher", "err", err)
		}
	}()

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		ready   = make(chan struct{}, 1)
		wg      sync.WaitGroup
	)

	signal := func() {
		select {
		case ready <- struct{}{}:
		default:
		}
	}
	timer := time.AfterFunc(time.Hour, signal)
	timer.Stop()
	defer timer.Stop()

	ctx, cancel := context.WithCancel(ctx)

	// One runner goroutine keeps runs from overlapping.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ready:
			}

			mu.Lock()
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			mu.Unlock()
			if len(changed) == 0 {
				continue
			}

			w.logger.Debug("change detected", "files", len(changed), "first", changed[0])
			if w.cfg.OnChange == nil {
				continue
			}
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("run failed, still watching", "err", err)
			}
		}
	}()
	defer wg.Wait()
	// Stops the runner when Run returns on a watch error.
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed unexpectedly")
			}
			rel, skip := w.relevant(evt.Name)
			if skip {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.addNewDir(evt.Name)
			}

			mu.Lock()
			pending[rel] = struct{}{}
			mu.Unlock()
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed unexpectedly")
			}
			if isFatal(err) {
				return fmt.Errorf("watch: %w", err)
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

// relevant maps an event path to its slash-separated path relative to the
// watched directory and reports whether it should be skipped.
func (w *Watcher) relevant(path string) (string, bool) {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return "", true
	}
	rel = filepath.ToSlash(rel)
	return rel, w.isExcluded(path) || w.isIgnored(rel)
}

// addTree walks root and watches every directory that is not ignored.
// Unreadable directories are skipped.
func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", walkErr)
			return nil //nolint:nilerr // keep walking past unreadable entries
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.dir && w.skipDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk directory tree: %w", err)
	}
	return nil
}

// addNewDir extends the watch to a directory created after startup.
func (w *Watcher) addNewDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.skipDir(path) {
		return
	}
	if err := w.addTree(path); err != nil {
		w.logger.Warn("watching new directory", "path", path, "err", err)
	}
}

func (w *Watcher) skipDir(path string) bool {
	if w.isExcluded(path) {
		return true
	}
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return true
	}
	rel = filepath.ToSlash(rel)
	return w.isIgnored(rel) || w.isIgnored(rel+"/")
}

func (w *Watcher) isExcluded(path string) bool {
	for _, ex := range w.exclude {
		if path == ex || strings.HasPrefix(path, ex+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) isIgnored(rel string) bool {
	for _, pat := range w.ignores {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}
