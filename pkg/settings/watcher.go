package settings

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher re-merges a settings file into a registry whenever it changes on
// disk, so edits made by the host (for example an opt-out toggled in the
// editor preferences UI) take effect in the running session.
//
// The parent directory is watched rather than the file itself: editors
// commonly replace files via rename, which would otherwise detach the watch.
type Watcher struct {
	fsw  *fsnotify.Watcher
	path string
	done chan struct{}
	log  *logrus.Logger
}

// Watch starts watching path and merging it into registry on change. The
// file does not need to exist yet; its directory does.
func Watch(registry *Registry, path string, log *logrus.Logger) (*Watcher, error) {
	if log == nil {
		log = logrus.New()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		fsw:  fsw,
		path: path,
		done: make(chan struct{}),
		log:  log,
	}
	go w.run(registry)
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) run(registry *Registry) {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if err := registry.MergeFile(w.path); err != nil {
				w.log.Warnf("Failed to reload settings from %s: %v", w.path, err)
				continue
			}
			w.log.Debugf("Reloaded settings from %s", w.path)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnf("Settings watcher error: %v", err)
		}
	}
}
