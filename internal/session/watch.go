package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize session watcher")

// Change reports a login or logout made by another process.
type Change struct {
	// Family is the newly logged-in family, empty after a logout.
	Family string
}

// LoggedIn reports whether the change is a login.
func (c Change) LoggedIn() bool { return c.Family != "" }

// Watcher follows the session file for logins and logouts.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	changes chan Change
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	last    string
}

// Watch starts following the session file. The directory is watched rather
// than the file so that logins after a logout are seen. The watcher stops
// when ctx is cancelled or Stop is called; Changes is then closed.
func (s *Store) Watch(ctx context.Context) (*Watcher, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	w := &Watcher{
		store:   s,
		watcher: fw,
		changes: make(chan Change, 4),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		last:    s.Family(),
	}
	go w.processEvents(ctx)
	return w, nil
}

// Changes delivers one value per effective login state change.
func (w *Watcher) Changes() <-chan Change { return w.changes }

// Stop ends the watch and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.stop) })
	<-w.done
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
	defer close(w.changes)
	defer w.watcher.Close()

	name := filepath.Base(w.store.path)
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			current := w.store.Family()
			if current == w.last {
				continue
			}
			w.last = current
			select {
			case w.changes <- Change{Family: current}:
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
