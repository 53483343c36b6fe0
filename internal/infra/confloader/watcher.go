package confloader

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a watched file must be quiet before
// subscribers hear about it.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports changes to watched configuration files.
//
// Parent directories are watched so a file replaced by rename is still
// seen. A burst of writes to one file is delivered as a single
// notification once the file has been quiet for the debounce period.
type Watcher struct {
	fs       *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	files   map[string]struct{}
	pending map[string]*time.Timer
	subs    []func(string)

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logger }
}

// WithWatcherDebounce overrides DefaultDebounce. Zero delivers every event.
func WithWatcherDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a configuration file watcher.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:       fw,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
		files:    make(map[string]struct{}),
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch adds path to the watched set.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.fs.Add(filepath.Dir(abs)); err != nil {
		w.logger.Error("failed to watch config directory", "path", filepath.Dir(abs), "error", err)
		return err
	}
	w.mu.Lock()
	w.files[abs] = struct{}{}
	w.mu.Unlock()
	w.logger.Debug("watching config file", "file", abs)
	return nil
}

// OnChange registers fn to receive the absolute path of a changed file.
func (w *Watcher) OnChange(fn func(string)) {
	w.mu.Lock()
	w.subs = append(w.subs, fn)
	w.mu.Unlock()
}

// Start dispatches events until Stop is called. It blocks.
func (w *Watcher) Start() {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.handle(ev)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// StartAsync runs Start in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop stops the watcher and cancels pending notifications. It is safe to
// call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		for p, t := range w.pending {
			t.Stop()
			delete(w.pending, p)
		}
		w.mu.Unlock()
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) handle(ev fsnotify.Event) {
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[abs]; !ok {
		return
	}
	w.logger.Debug("config file changed", "file", abs, "op", ev.Op.String())

	if w.debounce <= 0 {
		go w.fire(abs)
		return
	}
	if t, ok := w.pending[abs]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[abs] = time.AfterFunc(w.debounce, func() { w.fire(abs) })
}

func (w *Watcher) fire(path string) {
	select {
	case <-w.done:
		return
	default:
	}

	w.mu.Lock()
	delete(w.pending, path)
	subs := append(([]func(string))(nil), w.subs...)
	w.mu.Unlock()

	for _, fn := range subs {
		fn(path)
	}
}
