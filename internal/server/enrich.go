// Copyright 2025 Joseph Cumines
//
// Cross-tool contact enrichment

package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joeycumines/MacosPimSDK/internal/contacts"
)

const (
	// maxEnrichHandles bounds the worst-case cost of a cold-cache batch
	// resolution. Handles beyond the cap stay unenriched; rows are never
	// dropped.
	maxEnrichHandles = 20

	// enrichTimeout is the per-call-site budget for batch resolution. When
	// it fires the handler renders raw handles instead of waiting for a
	// slow cache rebuild.
	enrichTimeout = 3 * time.Second
)

// withTimeout races fn against a timer. If the timer fires first, fallback
// is returned and fn is left to finish in the background with its result
// discarded; no cancellation signal is sent. The abandoned call may still
// have useful side effects (a cache rebuild that completes late still serves
// future callers).
func withTimeout[T any](ctx context.Context, timeout time.Duration, fallback T, label string, fn func(context.Context) T) T {
	done := make(chan T, 1)
	go func() {
		done <- fn(ctx)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-done:
		return v
	case <-timer.C:
		slog.Warn("enrichment timed out, using fallback",
			slog.String("label", label),
			slog.Duration("timeout", timeout))
		return fallback
	}
}

// resolveHandleBatch resolves up to maxEnrichHandles of the given raw
// handles within the enrichment budget. Returns an empty map on timeout.
// Keys are the raw handles as passed in.
func resolveHandleBatch(ctx context.Context, resolver contactResolver, handles []string) map[string]contacts.Summary {
	if len(handles) == 0 {
		return nil
	}
	if len(handles) > maxEnrichHandles {
		handles = handles[:maxEnrichHandles]
	}
	return withTimeout(ctx, enrichTimeout, map[string]contacts.Summary{}, "resolve_batch",
		func(ctx context.Context) map[string]contacts.Summary {
			return resolver.ResolveBatch(ctx, handles)
		})
}

// collectHandles gathers distinct non-empty handles in first-seen order.
func collectHandles(rows []string) []string {
	seen := make(map[string]struct{}, len(rows))
	var out []string
	for _, h := range rows {
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// displayName renders the name for a row using resolved name, then any
// display name the source already provided, then the raw handle. Enrichment
// is strictly additive; it never hides data the source supplied.
func displayName(resolved map[string]contacts.Summary, rawHandle, existing string) string {
	if s, ok := resolved[rawHandle]; ok && s.FullName != "" {
		return s.FullName
	}
	if existing != "" {
		return existing
	}
	return rawHandle
}
