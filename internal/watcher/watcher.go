// Package watcher watches a project tree and reports debounced batches of
// changed files. It backs `jsbuild watch`, which rebuilds the whole project
// whenever a batch arrives.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/jsbuild/internal/logging"
)

// DefaultIgnores are never watched regardless of configuration.
var DefaultIgnores = []string{
	".git",
	".git/**",
	"**/.git/**",
	"**/node_modules",
	"**/node_modules/**",
	"**/*.swp",
	"**/*~",
	"**/.DS_Store",
}

// FileWatcher watches for file changes with debouncing
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	root      string
	ignores   []string
	filters   []FileFilter
	handlers  []ChangeHandler
	mutex     sync.RWMutex
	logger    logging.Logger
	stopOnce  sync.Once
}

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Type EventType
	// Path is absolute; Rel is slash-separated and relative to the root.
	Path string
	Rel  string
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileFilter determines if a change to path should be reported. Every
// filter must accept a path for it to be reported.
type FileFilter func(path string) bool

// ChangeHandler handles file change events. Handlers run one batch at a
// time, in the order they were added.
type ChangeHandler func(ctx context.Context, events []ChangeEvent) error

// Debouncer groups rapid file changes together
type Debouncer struct {
	delay   time.Duration
	events  chan ChangeEvent
	output  chan []ChangeEvent
	timer   *time.Timer
	pending []ChangeEvent
	mutex   sync.Mutex
}

func newDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		events:  make(chan ChangeEvent, 256),
		output:  make(chan []ChangeEvent, 1),
		pending: make([]ChangeEvent, 0),
	}
}

// NewFileWatcher creates a watcher for the tree under root.
func NewFileWatcher(root string, debounceDelay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	if debounceDelay <= 0 {
		return nil, fmt.Errorf("debounce must be positive, got %s", debounceDelay)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		watcher:   watcher,
		debouncer: newDebouncer(debounceDelay),
		root:      absRoot,
		ignores:   slices.Clone(DefaultIgnores),
		filters:   make([]FileFilter, 0),
		handlers:  make([]ChangeHandler, 0),
		logger:    logger.WithComponent("watch"),
	}, nil
}

// AddIgnore adds doublestar patterns, relative to the root, for paths that
// are never watched.
func (fw *FileWatcher) AddIgnore(patterns ...string) error {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	for _, p := range patterns {
		p = strings.TrimPrefix(filepath.ToSlash(p), "./")
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid ignore pattern %q", p)
		}
		fw.ignores = append(fw.ignores, p)
	}
	return nil
}

// AddFilter adds a file filter
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler adds a change handler
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddRecursive watches dir and every directory below it that is not ignored.
// dir must be inside the root.
func (fw *FileWatcher) AddRecursive(dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if _, ok := fw.relative(absDir); !ok {
		return fmt.Errorf("%s is outside the watch root %s", dir, fw.root)
	}

	return filepath.WalkDir(absDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			fw.logger.Warn(context.Background(), err, "Skipping inaccessible path", "path", path)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, _ := fw.relative(path); fw.ignored(rel) {
			return filepath.SkipDir
		}
		return fw.watcher.Add(path)
	})
}

// Watched lists the directories currently registered with the OS watcher.
func (fw *FileWatcher) Watched() []string {
	list := fw.watcher.WatchList()
	slices.Sort(list)
	return list
}

// relative returns path relative to the root with forward slashes, and
// whether path is inside the root at all.
func (fw *FileWatcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(fw.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (fw *FileWatcher) ignored(rel string) bool {
	if rel == "." {
		return false
	}
	fw.mutex.RLock()
	defer fw.mutex.RUnlock()
	for _, pattern := range fw.ignores {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// Start starts the file watcher. Handlers are invoked until ctx is done or
// Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	go fw.debouncer.start(ctx)
	go fw.processEvents(ctx)
	go fw.watchLoop(ctx)
	return nil
}

// Stop stops the file watcher and cleans up resources
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		fw.debouncer.stop()
		err = fw.watcher.Close()
	})
	return err
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	rel, ok := fw.relative(event.Name)
	if !ok || fw.ignored(rel) {
		return
	}

	// New directories are watched too, so files created inside them later
	// are seen.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.AddRecursive(event.Name); err != nil {
				fw.logger.Warn(context.Background(), err, "Failed to watch new directory", "path", event.Name)
			}
			return
		}
	}

	fw.mutex.RLock()
	filters := fw.filters
	fw.mutex.RUnlock()
	for _, filter := range filters {
		if !filter(event.Name) {
			return
		}
	}

	changeEvent := ChangeEvent{Type: eventType(event.Op), Path: event.Name, Rel: rel}
	select {
	case fw.debouncer.events <- changeEvent:
	default:
		fw.logger.Debug(context.Background(), "Dropped change event, queue full", "path", rel)
	}
}

func eventType(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventTypeCreated
	case op.Has(fsnotify.Write):
		return EventTypeModified
	case op.Has(fsnotify.Remove):
		return EventTypeDeleted
	case op.Has(fsnotify.Rename):
		return EventTypeRenamed
	default:
		return EventTypeModified
	}
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.debouncer.output:
			fw.mutex.RLock()
			handlers := fw.handlers
			fw.mutex.RUnlock()

			for _, handler := range handlers {
				if err := handler(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
					fw.logger.Error(ctx, err, "Change handler failed", "changes", len(events))
				}
			}
		}
	}
}

func (d *Debouncer) start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.stop()
			return
		case event := <-d.events:
			d.addEvent(event)
		}
	}
}

func (d *Debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) addEvent(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending = append(d.pending, event)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

// flush hands the pending events to the handlers, one per path with the
// latest event winning. While a batch is still waiting to be handled the
// events stay pending and are retried after another delay.
func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	latest := make(map[string]ChangeEvent, len(d.pending))
	for _, event := range d.pending {
		latest[event.Path] = event
	}
	events := make([]ChangeEvent, 0, len(latest))
	for _, event := range latest {
		events = append(events, event)
	}
	slices.SortFunc(events, func(a, b ChangeEvent) int { return strings.Compare(a.Path, b.Path) })

	select {
	case d.output <- events:
		d.pending = d.pending[:0]
	default:
		d.timer = time.AfterFunc(d.delay, d.flush)
	}
}

// ExtensionFilter accepts files with one of the given extensions.
func ExtensionFilter(exts ...string) FileFilter {
	return func(path string) bool {
		return slices.Contains(exts, strings.ToLower(filepath.Ext(path)))
	}
}

// NameFilter accepts files with one of the given base names.
func NameFilter(names ...string) FileFilter {
	return func(path string) bool {
		return slices.Contains(names, filepath.Base(path))
	}
}

// AnyFilter accepts a path when at least one of filters does.
func AnyFilter(filters ...FileFilter) FileFilter {
	return func(path string) bool {
		for _, f := range filters {
			if f(path) {
				return true
			}
		}
		return false
	}
}
