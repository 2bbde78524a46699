// Copyright 2025 Joseph Cumines

package contacts

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joeycumines/MacosPimSDK/internal/apple"
)

func TestWatchAddressBookMissingDir(t *testing.T) {
	resolver := NewResolver(&mockSource{}, time.Minute)
	if _, err := WatchAddressBook(resolver, filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Error("expected an error for a nonexistent directory")
	}
}

func TestWatchAddressBookInvalidates(t *testing.T) {
	src := &mockSource{fetchAllFn: func(ctx context.Context) ([]apple.Contact, error) {
		return testContacts(), nil
	}}
	resolver := NewResolver(src, time.Hour)

	// Warm the cache.
	if got := resolver.ResolveHandle(context.Background(), "+12125551234"); got == nil {
		t.Fatal("expected a cached match")
	}
	if resolver.CacheSize() == 0 {
		t.Fatal("cache should be populated")
	}

	dir := t.TempDir()
	w, err := WatchAddressBook(resolver, dir)
	if err != nil {
		t.Fatalf("WatchAddressBook: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "AddressBook-v22.abcddb"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// The watcher debounces writes before invalidating.
	deadline := time.Now().Add(watchDebounce + 5*time.Second)
	for resolver.CacheSize() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("cache was not invalidated after an address book write")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// A burst of writes re-arms the debounce timer; the watcher must still settle
// into exactly one clean invalidation per burst, including after a previous
// burst already fired.
func TestWatchAddressBookDebouncesBursts(t *testing.T) {
	src := &mockSource{fetchAllFn: func(ctx context.Context) ([]apple.Contact, error) {
		return testContacts(), nil
	}}
	resolver := NewResolver(src, time.Hour)

	dir := t.TempDir()
	w, err := WatchAddressBook(resolver, dir)
	if err != nil {
		t.Fatalf("WatchAddressBook: %v", err)
	}
	defer w.Close()

	awaitInvalidation := func(burst int) {
		t.Helper()
		deadline := time.Now().Add(watchDebounce + 5*time.Second)
		for resolver.CacheSize() != 0 {
			if time.Now().After(deadline) {
				t.Fatalf("burst %d: cache was not invalidated", burst)
			}
			time.Sleep(50 * time.Millisecond)
		}
	}

	for burst := 1; burst <= 2; burst++ {
		if got := resolver.ResolveHandle(context.Background(), "+12125551234"); got == nil {
			t.Fatalf("burst %d: expected a cached match", burst)
		}
		for i := 0; i < 3; i++ {
			name := filepath.Join(dir, "AddressBook-v22.abcddb")
			if err := os.WriteFile(name, []byte{byte(i)}, 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			time.Sleep(20 * time.Millisecond)
		}
		awaitInvalidation(burst)
	}
}

func TestWatcherCloseStopsLoop(t *testing.T) {
	resolver := NewResolver(&mockSource{}, time.Minute)
	w, err := WatchAddressBook(resolver, t.TempDir())
	if err != nil {
		t.Fatalf("WatchAddressBook: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
