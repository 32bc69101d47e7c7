package collector

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/telemetry/pkg/transcripts"
	"github.com/sirupsen/logrus"
)

// transcriptWatcher signals whenever a transcript under root is created or
// appended to. Project directories created later are picked up as they appear.
type transcriptWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	logger  *logrus.Entry
}

func newTranscriptWatcher(root string, logger *logrus.Entry) (*transcriptWatcher, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(root); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &transcriptWatcher{watcher: watcher, root: root, logger: logger}
	entries, err := os.ReadDir(root)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				w.add(filepath.Join(root, entry.Name()))
			}
		}
	}
	return w, nil
}

func (w *transcriptWatcher) add(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		w.logger.WithError(err).Debugf("Failed to watch %s", dir)
	}
}

// run forwards change notifications to trigger until ctx is done.
func (w *transcriptWatcher) run(ctx context.Context, trigger chan<- struct{}) {
	defer w.watcher.Close()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 && filepath.Dir(event.Name) == w.root {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.add(event.Name)
					continue
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !strings.HasSuffix(event.Name, transcripts.Extension) {
				continue
			}
			select {
			case trigger <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			return
		}
	}
}
