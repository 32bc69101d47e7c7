package daemon

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/telemetry/pkg/paths"
	"github.com/sirupsen/logrus"
)

// ConfigWatcher watches the config directory for changes to telemetry
// configuration files and reports them through a callback.
type ConfigWatcher struct {
	watcher      *fsnotify.Watcher
	debounce     time.Duration
	lastChange   map[string]time.Time
	mu           sync.Mutex
	logger       *logrus.Entry
	onReload     func(file string) // Callback to broadcast event
	targetToLink map[string]string // Maps target file paths to their symlink names in config dir
	configDir    string
}

// NewConfigWatcher creates a ConfigWatcher on dir (the grove config
// directory when empty). Rapid changes to the same file within debounce are
// reported once. It also watches symlink target directories so changes to
// linked files are detected.
func NewConfigWatcher(dir string, debounce time.Duration, onReload func(string), logger *logrus.Entry) (*ConfigWatcher, error) {
	if dir == "" {
		dir = paths.ConfigDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	// fsnotify doesn't follow symlinks, so we need to watch targets explicitly
	watchedDirs := map[string]bool{dir: true}
	targetToLink := make(map[string]string)

	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, entry := range entries {
			if !isTelemetryConfig(entry.Name()) {
				continue
			}
			info, err := entry.Info()
			if err != nil || info.Mode()&os.ModeSymlink == 0 {
				continue
			}

			fullPath := filepath.Join(dir, entry.Name())
			target, err := filepath.EvalSymlinks(fullPath)
			if err != nil {
				logger.WithError(err).Warnf("Failed to resolve symlink %s", entry.Name())
				continue
			}
			targetToLink[target] = entry.Name()

			targetDir := filepath.Dir(target)
			if !watchedDirs[targetDir] {
				if err := watcher.Add(targetDir); err != nil {
					logger.WithError(err).Warnf("Failed to watch symlink target dir %s", targetDir)
				} else {
					watchedDirs[targetDir] = true
					logger.Debugf("Watching symlink target directory: %s", targetDir)
				}
			}
		}
	}

	return &ConfigWatcher{
		watcher:      watcher,
		debounce:     debounce,
		lastChange:   make(map[string]time.Time),
		logger:       logger,
		onReload:     onReload,
		targetToLink: targetToLink,
		configDir:    dir,
	}, nil
}

// Start begins watching for config changes. It blocks until the context is cancelled.
func (w *ConfigWatcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Map target file changes back to symlink names
			name := event.Name
			if linkName, ok := w.targetToLink[event.Name]; ok {
				name = filepath.Join(w.configDir, linkName)
			}
			if isTelemetryConfig(filepath.Base(name)) {
				w.handleChange(name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.watcher.Close()
			return
		}
	}
}

// handleChange reports a config file change with debouncing.
func (w *ConfigWatcher) handleChange(file string) {
	w.mu.Lock()
	if last, ok := w.lastChange[file]; ok && time.Since(last) < w.debounce {
		w.mu.Unlock()
		w.logger.Debugf("Debounced: %s", filepath.Base(file))
		return
	}
	w.lastChange[file] = time.Now()
	w.mu.Unlock()

	w.logger.Infof("Config changed: %s", filepath.Base(file))
	if w.onReload != nil {
		w.onReload(filepath.Base(file))
	}
}

// Close stops the watcher and releases resources.
func (w *ConfigWatcher) Close() error {
	return w.watcher.Close()
}

func isTelemetryConfig(name string) bool {
	if !strings.HasPrefix(name, "telemetry.") {
		return false
	}
	switch filepath.Ext(name) {
	case ".yml", ".yaml", ".toml":
		return true
	}
	return false
}
