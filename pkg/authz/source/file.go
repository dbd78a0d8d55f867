package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"mercator-hq/sentinel/pkg/authz"
)

// FileStoreConfig contains configuration for the file-backed store.
type FileStoreConfig struct {
	// Path is the YAML file holding the authorization configuration.
	Path string

	// DebounceInterval is the quiet period after a file event before the
	// file is re-read (default: 100ms). Editors and atomic writers emit
	// several events per save; debouncing coalesces them into one change.
	DebounceInterval time.Duration
}

// DefaultFileStoreConfig returns the default file store configuration for
// the given path.
func DefaultFileStoreConfig(path string) *FileStoreConfig {
	return &FileStoreConfig{
		Path:             path,
		DebounceInterval: 100 * time.Millisecond,
	}
}

// FileStore reads the authorization configuration from a YAML file and
// watches it for changes with fsnotify. A deleted file is reported as an
// absent container, not an error.
type FileStore struct {
	path    string
	logger  *slog.Logger
	bcast   *broadcaster
	watcher *fsnotify.Watcher

	mu   sync.Mutex
	last *authz.AuthorizationConfig

	debounce  *debouncer
	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewFileStore creates a file store and starts watching the file's parent
// directory (so saves that replace the file via rename are still observed).
func NewFileStore(cfg *FileStoreConfig, logger *slog.Logger) (*FileStore, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, fmt.Errorf("file store path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.DebounceInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(cfg.Path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory %q: %w", dir, err)
	}

	s := &FileStore{
		path:     cfg.Path,
		logger:   logger.With("component", "authz.source.file"),
		bcast:    newBroadcaster(),
		watcher:  watcher,
		debounce: newDebouncer(interval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	// Prime the before-state so the first change event carries an
	// accurate transition.
	if initial, err := s.load(); err == nil {
		s.last = initial
	}

	go s.run()

	s.logger.Info("authorization file store watching",
		"path", cfg.Path,
		"debounce_ms", interval.Milliseconds(),
	)

	return s, nil
}

// ReadConfig implements authz.Store. A missing file means the container is
// absent, which is not an error.
func (s *FileStore) ReadConfig(ctx context.Context) (*authz.AuthorizationConfig, error) {
	return s.load()
}

// Watch implements authz.Store.
func (s *FileStore) Watch(ctx context.Context) (<-chan authz.ChangeBatch, error) {
	return s.bcast.subscribe(ctx), nil
}

// Close stops the watcher and all subscriptions. Idempotent.
func (s *FileStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
		s.debounce.stop()
		s.watcher.Close()
		s.bcast.close()
	})
	return nil
}

// load reads and parses the configuration file.
func (s *FileStore) load() (*authz.AuthorizationConfig, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %q: %w", s.path, err)
	}

	var cfg authz.AuthorizationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", s.path, err)
	}
	return &cfg, nil
}

// run is the fsnotify event loop.
func (s *FileStore) run() {
	defer close(s.doneCh)

	for {
		select {
		case <-s.stopCh:
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !s.shouldProcessEvent(event) {
				continue
			}

			s.logger.Debug("file event detected",
				"path", event.Name,
				"op", event.Op.String(),
			)

			s.debounce.trigger(s.reload)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("file watcher error", "error", err)
			// Continue watching despite errors
		}
	}
}

// shouldProcessEvent filters events down to the watched file.
func (s *FileStore) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	return filepath.Clean(event.Name) == filepath.Clean(s.path)
}

// reload re-reads the file and publishes the resulting change. A parse
// error keeps the previous state in effect; a missing file publishes an
// absent container.
func (s *FileStore) reload() {
	cfg, err := s.load()
	if err != nil {
		s.logger.Error("authorization config reload failed, keeping previous state",
			"path", s.path,
			"error", err,
		)
		return
	}

	s.mu.Lock()
	before := s.last
	s.last = cfg
	s.mu.Unlock()

	s.logger.Info("authorization config file changed",
		"path", s.path,
		"present", cfg != nil,
	)

	s.bcast.publish(authz.Change{Before: before, After: cfg.Clone()})
}

// debouncer collects rapid events and fires the callback only after a
// quiet period.
type debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// trigger arms the debouncer; the callback runs after the interval elapses
// without further triggers.
func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
		}

		d.mu.Lock()
		cb := d.callback
		d.mu.Unlock()

		if cb != nil {
			cb()
		}
	})
}

// stop cancels any pending callback.
func (d *debouncer) stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
