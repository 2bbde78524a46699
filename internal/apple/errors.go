// Copyright 2025 Joseph Cumines
//
// Typed errors for the automation boundary

package apple

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies an automation failure.
type ErrorKind int

const (
	// KindScript indicates the script itself failed (syntax error, missing
	// application, unexpected output).
	KindScript ErrorKind = iota

	// KindPermission indicates macOS denied the Apple event (the user has not
	// granted Automation or Contacts/Calendars/Reminders access).
	KindPermission

	// KindTimeout indicates the script did not finish within its deadline.
	KindTimeout
)

// TimeoutSignature is the substring present in every timeout-classified
// automation failure. Callers that only have an error message (for example
// after crossing a process or serialization boundary) can match against it.
const TimeoutSignature = "timed out"

// Apple event error codes that osascript reports on stderr when automation
// access is blocked. -1743 is errAEEventNotPermitted; -25211 is returned by
// some privacy-guarded applications instead.
var permissionMarkers = []string{
	"-1743",
	"-25211",
	"Not authorized to send Apple events",
	"not allowed assistive access",
}

// Error is a classified automation failure.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Error struct {
	Op     string
	Detail string
	Err    error
	Kind   ErrorKind
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindPermission:
		return fmt.Sprintf("%s: automation permission denied: %s", e.Op, e.Detail)
	case KindTimeout:
		return fmt.Sprintf("%s: %s: %s", e.Op, TimeoutSignature, e.Detail)
	default:
		return fmt.Sprintf("%s: script failed: %s", e.Op, e.Detail)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsPermissionDenied reports whether err is an automation failure caused by
// a missing privacy permission.
func IsPermissionDenied(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == KindPermission
}

// IsTimeout reports whether err represents an automation timeout. It matches
// the typed error kind first and falls back to the message signature so that
// errors which lost their type are still classified correctly.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == KindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(err.Error(), TimeoutSignature)
}

// classifyFailure wraps a raw script execution failure as an *Error, using
// the stderr output and context state to pick the kind.
func classifyFailure(op string, runErr error, stderr string, ctxErr error) *Error {
	detail := strings.TrimSpace(stderr)
	if detail == "" {
		detail = runErr.Error()
	}

	kind := KindScript
	switch {
	case ctxErr == context.DeadlineExceeded:
		kind = KindTimeout
	case containsAny(detail, permissionMarkers):
		kind = KindPermission
	case strings.Contains(detail, "-1712"), strings.Contains(detail, "AppleEvent timed out"):
		// -1712 is errAETimeout: the target application accepted the event
		// but never replied.
		kind = KindTimeout
	}

	return &Error{Op: op, Detail: detail, Err: runErr, Kind: kind}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
