// Copyright 2025 Joseph Cumines

package contacts

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"e164", "+12125551234", "12125551234"},
		{"punctuated", "+1 (212) 555-1234", "12125551234"},
		{"dots", "212.555.1234", "2125551234"},
		{"bare digits", "2125551234", "2125551234"},
		{"extension digits kept", "212-555-1234 ext. 89", "212555123489"},
		{"letters dropped", "call 212 555 1234 now", "2125551234"},
		{"empty", "", ""},
		{"no digits", "+()- .", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.in); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"mixed case", "Someone@Example.COM", "someone@example.com"},
		{"whitespace", "  user@example.com\t", "user@example.com"},
		{"already normalized", "user@example.com", "user@example.com"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeEmail(tt.in); got != tt.want {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"+1 (212) 555-1234", "2125551234", "Someone@Example.COM", "", "x", "212-555-1234 ext. 89"}
	for _, in := range inputs {
		once := NormalizePhone(in)
		if twice := NormalizePhone(once); twice != once {
			t.Errorf("NormalizePhone not idempotent for %q: %q != %q", in, twice, once)
		}
		once = NormalizeEmail(in)
		if twice := NormalizeEmail(once); twice != once {
			t.Errorf("NormalizeEmail not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want HandleClass
	}{
		{"e164 phone", "+12125551234", HandlePhone},
		{"punctuated phone", "(212) 555-1234", HandlePhone},
		{"seven digits", "5551234", HandlePhone},
		{"six digits too short", "555123", HandleUnknown},
		{"email", "user@example.com", HandleEmail},
		{"email with digits", "user42@example.com", HandleEmail},
		{"digit-heavy email is phone", "12345678@example.com", HandlePhone},
		{"bare word", "unknown", HandleUnknown},
		{"empty", "", HandleUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.in); got != tt.want {
				t.Errorf("Classify(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestPhoneSuffix(t *testing.T) {
	if got := phoneSuffix("12125551234"); got != "2125551234" {
		t.Errorf("phoneSuffix(11 digits) = %q, want last 10", got)
	}
	if got := phoneSuffix("2125551234"); got != "2125551234" {
		t.Errorf("phoneSuffix(10 digits) = %q, want itself", got)
	}
	if got := phoneSuffix("5551234"); got != "" {
		t.Errorf("phoneSuffix(7 digits) = %q, want empty", got)
	}
}
