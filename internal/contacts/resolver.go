// Copyright 2025 Joseph Cumines
//
// TTL-bound handle resolution cache

package contacts

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/joeycumines/MacosPimSDK/internal/apple"
)

// DefaultCacheTTL is the production cache lifetime. Tests inject a much
// shorter one.
const DefaultCacheTTL = 5 * time.Minute

// Summary is a lightweight, immutable contact snapshot copied out of the
// cache. Callers must not assume the same value is returned across rebuilds.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Summary struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Source is the identity source consumed by the Resolver. FetchAllContacts
// is expensive (one Apple event round trip returning the whole address book);
// SearchContactsByName is filtered server-side and assumed cheap.
type Source interface {
	FetchAllContacts(ctx context.Context) ([]apple.Contact, error)
	SearchContactsByName(ctx context.Context, query string) ([]apple.Contact, error)
}

// Resolver maps raw handles to contact summaries through an in-memory index
// rebuilt at most once per TTL. It is constructed once at startup and shared
// by every tool handler; all methods are safe for concurrent use.
//
// ResolveHandle and ResolveBatch never fail: any source error (permission
// denied included) produces a fresh-but-empty cache, so callers observe "no
// match" rather than an error. Enrichment is best-effort by design; the raw
// handle is always available as a fallback.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Resolver struct {
	source Source
	ttl    time.Duration
	clock  func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	byHandle map[string]Summary
	bySuffix map[string]Summary
	builtAt  time.Time
}

// NewResolver creates a resolver with the given cache TTL. A non-positive
// ttl selects DefaultCacheTTL.
func NewResolver(source Source, ttl time.Duration) *Resolver {
	return NewResolverWithClock(source, ttl, time.Now)
}

// NewResolverWithClock creates a resolver with an injectable clock.
// This is primarily used for testing to control TTL expiry.
func NewResolverWithClock(source Source, ttl time.Duration, clock func() time.Time) *Resolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Resolver{source: source, ttl: ttl, clock: clock}
}

// ResolveHandle resolves a single raw handle to a contact summary, building
// the cache first if it is stale. Returns nil when the handle does not match
// any contact, is too short to be a plausible identifier, or the identity
// source is unavailable.
func (r *Resolver) ResolveHandle(ctx context.Context, raw string) *Summary {
	class := Classify(raw)
	if class == HandleUnknown {
		return nil
	}
	r.ensureFresh(ctx)
	return r.lookup(class, raw)
}

// ResolveBatch resolves a set of raw handles in one pass over a single fresh
// cache. The returned map is keyed by the raw input handle and contains only
// the handles that resolved; unresolved handles are absent. An empty input
// returns an empty map without touching the cache or the identity source.
func (r *Resolver) ResolveBatch(ctx context.Context, handles []string) map[string]Summary {
	resolved := make(map[string]Summary)
	if len(handles) == 0 {
		return resolved
	}

	built := false
	for _, raw := range handles {
		class := Classify(raw)
		if class == HandleUnknown {
			continue
		}
		if !built {
			r.ensureFresh(ctx)
			built = true
		}
		if s := r.lookup(class, raw); s != nil {
			resolved[raw] = *s
		}
	}
	return resolved
}

// InvalidateCache drops the cache content and freshness timestamp. The next
// resolution triggers a rebuild. Used when identity data may have changed on
// disk, and by tests.
func (r *Resolver) InvalidateCache() {
	r.mu.Lock()
	r.byHandle = nil
	r.bySuffix = nil
	r.builtAt = time.Time{}
	r.mu.Unlock()
}

// CacheSize returns the number of normalized-handle entries currently
// indexed. Diagnostic only.
func (r *Resolver) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byHandle)
}

// lookup resolves against the current cache state. Phones fall back to
// last-10-digit suffix matching when the exact normalized form misses, which
// tolerates a missing or extra country code.
func (r *Resolver) lookup(class HandleClass, raw string) *Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch class {
	case HandlePhone:
		norm := NormalizePhone(raw)
		if s, ok := r.byHandle[norm]; ok {
			return &s
		}
		if suffix := phoneSuffix(norm); suffix != "" {
			if s, ok := r.bySuffix[suffix]; ok {
				return &s
			}
		}
	case HandleEmail:
		if s, ok := r.byHandle[NormalizeEmail(raw)]; ok {
			return &s
		}
	}
	return nil
}

// ensureFresh rebuilds the cache if it is stale, coalescing concurrent
// callers onto a single in-flight rebuild. N concurrent resolutions against
// a stale cache result in exactly one FetchAllContacts call; every caller
// returns only after that build has published.
func (r *Resolver) ensureFresh(ctx context.Context) {
	if r.fresh() {
		return
	}
	r.group.Do("rebuild", func() (any, error) {
		// A build that finished while this caller was queueing may already
		// have made the cache fresh.
		if r.fresh() {
			return nil, nil
		}
		r.rebuild(ctx)
		return nil, nil
	})
}

func (r *Resolver) fresh() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.builtAt.IsZero() && r.clock().Sub(r.builtAt) < r.ttl
}

// rebuild fetches the full contact list and replaces the cache as one unit.
// The freshness timestamp is recorded on failure too: a permission-denied or
// erroring source yields a valid empty cache, so lookups within the TTL
// window short-circuit instead of hammering a source that will keep failing.
func (r *Resolver) rebuild(ctx context.Context) {
	// The triggering caller may stop waiting (enrichment timeouts abandon
	// rather than cancel); the build must still complete and publish for
	// future callers.
	ctx = context.WithoutCancel(ctx)

	byHandle := make(map[string]Summary)
	bySuffix := make(map[string]Summary)

	all, err := r.source.FetchAllContacts(ctx)
	if err != nil {
		if apple.IsPermissionDenied(err) {
			slog.Warn("contacts cache rebuild: permission denied, caching empty", "error", err)
		} else {
			slog.Warn("contacts cache rebuild failed, caching empty", "error", err)
		}
	}

	for _, c := range all {
		s := Summary{ID: c.ID, FullName: c.FullName, FirstName: c.FirstName, LastName: c.LastName}
		for _, phone := range c.Phones {
			norm := NormalizePhone(phone)
			if norm == "" {
				continue
			}
			if _, ok := byHandle[norm]; !ok {
				byHandle[norm] = s
			}
			if suffix := phoneSuffix(norm); suffix != "" {
				// First writer wins. Two contacts sharing a last-10-digit
				// suffix (differing only in country code) are not
				// disambiguated; the later one is dropped silently.
				if _, ok := bySuffix[suffix]; !ok {
					bySuffix[suffix] = s
				}
			}
		}
		for _, email := range c.Emails {
			norm := NormalizeEmail(email)
			if norm == "" {
				continue
			}
			if _, ok := byHandle[norm]; !ok {
				byHandle[norm] = s
			}
		}
	}

	r.mu.Lock()
	r.byHandle = byHandle
	r.bySuffix = bySuffix
	r.builtAt = r.clock()
	r.mu.Unlock()
}
