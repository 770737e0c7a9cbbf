package fileaccess

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"draftdesk/engine/internal/event"
)

// Watcher observes the loaded document's file on disk and publishes a
// document_external_change event when something other than the engine
// modifies it. The engine suspends the watch around its own saves.
type Watcher struct {
	bus *event.Bus

	mu        sync.Mutex
	fsw       *fsnotify.Watcher
	path      string
	suspended bool
	closed    bool
	done      chan struct{}
}

func NewWatcher(bus *event.Bus) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{bus: bus, fsw: fsw, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

// Watch switches the watcher to a new document path, dropping any previous
// watch. Watching the parent directory survives atomic rename-over saves.
func (w *Watcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("watcher closed")
	}
	if w.path != "" {
		_ = w.fsw.Remove(filepath.Dir(w.path))
	}
	w.path = path
	if path == "" {
		return nil
	}
	if err := w.fsw.Add(filepath.Dir(path)); err != nil {
		w.path = ""
		return fmt.Errorf("watch %s: %w", path, err)
	}
	return nil
}

// Suspend mutes external-change events while the engine performs its own
// write; Resume re-arms them.
func (w *Watcher) Suspend() {
	w.mu.Lock()
	w.suspended = true
	w.mu.Unlock()
}

func (w *Watcher) Resume() {
	w.mu.Lock()
	w.suspended = false
	w.mu.Unlock()
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(evt)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handle(evt fsnotify.Event) {
	if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
		return
	}
	w.mu.Lock()
	path := w.path
	suspended := w.suspended
	w.mu.Unlock()
	if path == "" || suspended {
		return
	}
	if filepath.Clean(evt.Name) != filepath.Clean(path) {
		return
	}
	w.bus.Publish(event.DocumentExternalChange(path))
}
