// Copyright 2025 Joseph Cumines
//
// On-disk AddressBook change watcher

package contacts

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses the burst of writes Contacts.app performs on every
// edit into a single invalidation.
const watchDebounce = 2 * time.Second

// Watcher invalidates a Resolver when the AddressBook database directory
// changes on disk, so edits made outside this process are picked up on the
// next resolution instead of after TTL expiry.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Watcher struct {
	fsw      *fsnotify.Watcher
	resolver *Resolver
	done     chan struct{}
}

// WatchAddressBook starts watching dir (typically
// ~/Library/Application Support/AddressBook) for writes.
func WatchAddressBook(resolver *Resolver, dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{fsw: fsw, resolver: resolver, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
				fire = debounce.C
			} else {
				// The timer may already have fired with the value still
				// queued; drain it so Reset arms a clean debounce window
				// instead of an immediate extra invalidation.
				if !debounce.Stop() {
					select {
					case <-fire:
					default:
					}
				}
				debounce.Reset(watchDebounce)
			}
		case <-fire:
			debounce = nil
			fire = nil
			slog.Debug("address book changed on disk, invalidating contact cache")
			w.resolver.InvalidateCache()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("address book watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// Close stops watching. Safe to call once.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
