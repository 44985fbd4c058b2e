package profile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeEvent is emitted by Watch after the profile document changed on disk
// and the in-memory view was reloaded.
type ChangeEvent struct {
	Profiles []Profile
}

// Watch reloads the store whenever the document changes underneath us, e.g.
// another meshctl process editing the same file. Events are coalesced so a
// burst of writes produces one reload. The channel is closed when ctx is
// done or the watcher fails.
func (s *Store) Watch(ctx context.Context) (<-chan ChangeEvent, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("profile: ensure config dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("profile: create watcher: %w", err)
	}
	var closeOnce sync.Once
	closeWatcher := func() {
		closeOnce.Do(func() {
			if err := watcher.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "profile: watcher close: %v\n", err)
			}
		})
	}

	// Watch the directory, not the file: atomic rename replaces the inode so
	// a file watch would go stale after the first save.
	if err := watcher.Add(dir); err != nil {
		closeWatcher()
		return nil, fmt.Errorf("profile: watch %s: %w", dir, err)
	}

	events := make(chan ChangeEvent, 8)

	go func() {
		defer close(events)
		defer closeWatcher()

		throttle := newReloadThrottle(100 * time.Millisecond)
		defer throttle.Stop()

		reload := func() {
			if err := s.reload(); err != nil {
				fmt.Fprintf(os.Stderr, "profile: reload: %v\n", err)
				return
			}
			select {
			case events <- ChangeEvent{Profiles: s.List()}:
			default:
				// Drop if the consumer is not ready; the next change will
				// deliver a fresh view.
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
				throttle.Enqueue(reload)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != filepath.Clean(s.path) {
					continue
				}
				throttle.Enqueue(reload)
			}
		}
	}()

	return events, nil
}

// reloadThrottle coalesces rapid change notifications so a burst of writes
// triggers a single reload.
type reloadThrottle struct {
	mu    sync.Mutex
	timer *time.Timer
	delay time.Duration
}

func newReloadThrottle(delay time.Duration) *reloadThrottle {
	return &reloadThrottle{delay: delay}
}

func (t *reloadThrottle) Enqueue(fn func()) {
	t.mu.Lock()
	if t.timer == nil {
		t.timer = time.AfterFunc(t.delay, func() {
			t.mu.Lock()
			t.timer = nil
			t.mu.Unlock()
			fn()
		})
	}
	t.mu.Unlock()
}

func (t *reloadThrottle) Stop() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
}
