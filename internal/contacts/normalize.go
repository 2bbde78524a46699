// Copyright 2025 Joseph Cumines

// Package contacts maps phone numbers and email addresses ("handles") to
// display names. The Resolver amortizes one expensive full Contacts dump
// across the process lifetime behind a TTL-bound, singleflight-coalesced
// in-memory index; ResolveNameToHandles is the inverse, uncached path.
package contacts

import "strings"

// HandleClass is the inferred kind of a raw handle string.
type HandleClass int

const (
	// HandleUnknown means the input is neither email-shaped nor long enough
	// to be a plausible phone number. Unknown handles never resolve.
	HandleUnknown HandleClass = iota

	// HandlePhone means the input carries enough digits to be a phone number.
	HandlePhone

	// HandleEmail means the input looks like an email address.
	HandleEmail
)

// minPhoneDigits is the smallest digit count treated as a phone number.
// Anything shorter is not a plausible dialable identifier.
const minPhoneDigits = 7

// phoneSuffixLen is the number of trailing digits used for fallback phone
// matching, tolerating a missing or extra country code.
const phoneSuffixLen = 10

// NormalizePhone reduces a phone number to its digits. Formatting characters
// ('+', spaces, parentheses, dashes, dots) and extension markers are dropped;
// extension digits are kept, appended to the number. Empty input yields "".
// Idempotent: normalizing an already-normalized value returns it unchanged.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeEmail lowercases and trims an email address. Empty input yields
// "". Idempotent.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Classify infers whether raw is a phone number or an email address.
// Digit density wins: at least minPhoneDigits digits means phone regardless
// of other characters. Otherwise anything containing '@' is email-shaped.
// Everything else is HandleUnknown, which resolvers treat as unresolvable
// rather than guessing.
func Classify(raw string) HandleClass {
	digits := 0
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits >= minPhoneDigits {
		return HandlePhone
	}
	if strings.Contains(raw, "@") {
		return HandleEmail
	}
	return HandleUnknown
}

// phoneSuffix returns the last phoneSuffixLen digits of a normalized phone
// number, or "" when the number is too short for suffix matching.
func phoneSuffix(normalized string) string {
	if len(normalized) < phoneSuffixLen {
		return ""
	}
	return normalized[len(normalized)-phoneSuffixLen:]
}
