// Copyright 2025 Joseph Cumines
//
// Targeted name-to-handles search (uncached)

package contacts

import (
	"context"
	"fmt"
	"strings"

	"github.com/joeycumines/MacosPimSDK/internal/apple"
)

// HandleSet groups the distinct normalized handles attached to the contacts
// matching a name query.
type HandleSet struct {
	Phones []string `json:"phones"`
	Emails []string `json:"emails"`
}

// SearchError is a name-search failure the caller must distinguish from "no
// such contact". Unlike the bulk resolution path there is no raw value to
// degrade to here, so the error is surfaced instead of swallowed. Timeout is
// set when the identity source classified the failure as a timeout.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type SearchError struct {
	Err     error
	Timeout bool
}

func (e *SearchError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("contact search timed out: %v", e.Err)
	}
	return fmt.Sprintf("contact search failed: %v", e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// ResolveNameToHandles returns every distinct phone number and email address
// across the contacts whose name matches the query. This is the inverse of
// the cache: it issues a fresh, server-side-filtered identity source call on
// every invocation and never touches or populates the resolution cache.
//
// Returns (nil, nil) for a blank query, when the source denies permission
// (consistent with the cache path), or when no matching contact carries any
// handle. Other source failures return a *SearchError.
func (r *Resolver) ResolveNameToHandles(ctx context.Context, name string) (*HandleSet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	matches, err := r.source.SearchContactsByName(ctx, name)
	if err != nil {
		if apple.IsPermissionDenied(err) {
			return nil, nil
		}
		return nil, &SearchError{Err: err, Timeout: apple.IsTimeout(err)}
	}

	set := &HandleSet{}
	seenPhones := make(map[string]bool)
	seenEmails := make(map[string]bool)
	for _, c := range matches {
		for _, phone := range c.Phones {
			norm := NormalizePhone(phone)
			if norm == "" || seenPhones[norm] {
				continue
			}
			seenPhones[norm] = true
			set.Phones = append(set.Phones, norm)
		}
		for _, email := range c.Emails {
			norm := NormalizeEmail(email)
			if norm == "" || seenEmails[norm] {
				continue
			}
			seenEmails[norm] = true
			set.Emails = append(set.Emails, norm)
		}
	}

	if len(set.Phones) == 0 && len(set.Emails) == 0 {
		return nil, nil
	}
	return set, nil
}
