// ABOUTME: Watches the config file and reloads it on external edits.
// ABOUTME: Debounces bursts of write events before posting a reload.

package main

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// ConfigWatcher reloads the config when the file changes on disk. Editors
// fire several events per save, so changes are debounced. The reload
// callback runs on the control loop.
type ConfigWatcher struct {
	path     string
	marshal  *EventMarshal
	onReload func()

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending *time.Timer
	closed  bool
}

func NewConfigWatcher(path string, marshal *EventMarshal, onReload func()) *ConfigWatcher {
	return &ConfigWatcher{path: path, marshal: marshal, onReload: onReload}
}

// Start begins watching the config file's directory. Watching the directory
// rather than the file survives editors that replace the file on save.
func (w *ConfigWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher

	go w.loop()
	return nil
}

func (w *ConfigWatcher) loop() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config watcher error: %v", err)
		}
	}
}

// schedule arms the debounce timer, resetting it on repeated events.
func (w *ConfigWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(watchDebounce, func() {
		w.marshal.Post(w.onReload)
	})
}

// Stop stops watching and cancels any pending reload.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	w.closed = true
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
	w.mu.Unlock()

	if w.watcher != nil {
		w.watcher.Close()
	}
}
