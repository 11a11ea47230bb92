package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// Options controls a Watcher.
type Options struct {
	Debounce time.Duration
	// Match selects which files under a watched directory trigger a run.
	// Nil matches every file. Files named explicitly always match.
	Match func(path string) bool
	// SkipDir prunes directories from recursive watching.
	SkipDir func(path string) bool
	Logger  *zap.Logger
}

// Stats counts watcher activity.
type Stats struct {
	Events  int
	Batches int
	Errors  int
}

// Watcher watches files and directory trees for changes.
type Watcher struct {
	fsw   *fsnotify.Watcher
	opts  Options
	log   *zap.Logger
	files map[string]bool
	dirs  map[string]bool

	mu    sync.Mutex
	stats Stats
}

// New creates a watcher for the given files and directories. A file is
// watched through its parent directory.
func New(paths []string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		fsw:   fsw,
		opts:  opts,
		log:   logger,
		files: make(map[string]bool),
		dirs:  make(map[string]bool),
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watching %s: %w", p, err)
		}
		p = filepath.Clean(p)
		if info.IsDir() {
			w.dirs[p] = true
			if err := w.addTree(p); err != nil {
				fsw.Close()
				return nil, err
			}
			continue
		}
		w.files[p] = true
		if err := w.fsw.Add(filepath.Dir(p)); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watching %s: %w", p, err)
		}
	}
	return w, nil
}

// addTree watches root and every directory below it that is not skipped.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.opts.SkipDir != nil && w.opts.SkipDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		w.log.Debug("watching directory", zap.String("dir", path))
		return nil
	})
}

// WatchList returns the directories currently registered.
func (w *Watcher) WatchList() []string {
	l := w.fsw.WatchList()
	sort.Strings(l)
	return l
}

// Stats returns a snapshot of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run delivers batches of changed paths to fn until ctx is cancelled and
// then closes the watcher. fn runs on the watcher's goroutine; events that
// arrive while it runs form the next batch.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, changed []string)) error {
	defer w.fsw.Close()

	tick := w.opts.Debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	b := newBatcher(w.opts.Debounce)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(event) {
				b.add(filepath.Clean(event.Name), time.Now())
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case now := <-ticker.C:
			if changed := b.due(now); changed != nil {
				w.mu.Lock()
				w.stats.Batches++
				w.mu.Unlock()
				w.log.Debug("change batch", zap.Strings("paths", changed))
				fn(ctx, changed)
			}
		}
	}
}

// handleEvent reports whether event should trigger a run. New directories
// inside a watched tree are added as a side effect.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	path := filepath.Clean(event.Name)

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.inTree(path) && (w.opts.SkipDir == nil || !w.opts.SkipDir(path)) {
				if err := w.addTree(path); err != nil {
					w.log.Warn("watching new directory", zap.String("dir", path), zap.Error(err))
				}
			}
			return false
		}
	}

	if !w.files[path] {
		if !w.inTree(path) {
			return false
		}
		if w.opts.Match != nil && !w.opts.Match(path) {
			return false
		}
	}
	w.mu.Lock()
	w.stats.Events++
	w.mu.Unlock()
	w.log.Debug("file event", zap.String("path", path), zap.String("op", event.Op.String()))
	return true
}

func (w *Watcher) inTree(path string) bool {
	for dir := range w.dirs {
		if rel, err := filepath.Rel(dir, path); err == nil && rel != ".." && !startsWithParent(rel) {
			return true
		}
	}
	return false
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

// batcher collects paths until no event has arrived for the window.
type batcher struct {
	window  time.Duration
	pending map[string]bool
	last    time.Time
}

func newBatcher(window time.Duration) *batcher {
	return &batcher{window: window, pending: make(map[string]bool)}
}

func (b *batcher) add(path string, at time.Time) {
	b.pending[path] = true
	b.last = at
}

// due returns the sorted pending paths once the window has passed since
// the last event, or nil.
func (b *batcher) due(now time.Time) []string {
	if len(b.pending) == 0 || now.Sub(b.last) < b.window {
		return nil
	}
	out := make([]string, 0, len(b.pending))
	for p := range b.pending {
		out = append(out, p)
	}
	sort.Strings(out)
	b.pending = make(map[string]bool)
	return out
}
