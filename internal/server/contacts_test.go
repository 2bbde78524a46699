// Copyright 2025 Joseph Cumines
//
// Contacts tool handler tests

package server

import (
	"context"
	"strings"
	"testing"

	"github.com/joeycumines/MacosPimSDK/internal/apple"
	"github.com/joeycumines/MacosPimSDK/internal/contacts"
)

func TestContactsSearch(t *testing.T) {
	s := newTestServer(t)
	s.contacts = &mockContactSearcher{
		searchFn: func(ctx context.Context, query string) ([]apple.Contact, error) {
			if query != "jane" {
				t.Errorf("query = %q, want jane", query)
			}
			return []apple.Contact{
				{
					FullName: "Jane Doe",
					Phones:   []string{"+1 (212) 555-1234"},
					Emails:   []string{"jane@example.com"},
				},
			}, nil
		},
	}

	text, isErr := resultText(t, callTool(t, s, "contacts", `{"operation":"search","query":"jane"}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	for _, want := range []string{"Jane Doe", "+1 (212) 555-1234", "jane@example.com"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestContactsSearchNoResults(t *testing.T) {
	s := newTestServer(t)
	s.contacts = &mockContactSearcher{
		searchFn: func(ctx context.Context, query string) ([]apple.Contact, error) {
			return nil, nil
		},
	}

	text, isErr := resultText(t, callTool(t, s, "contacts", `{"operation":"search","query":"nobody"}`))
	if isErr {
		t.Fatal("no results should not be a tool error")
	}
	if !strings.Contains(text, "No contacts found") {
		t.Errorf("output = %q", text)
	}
}

func TestContactsSearchEmptyQuery(t *testing.T) {
	s := newTestServer(t)
	_, isErr := resultText(t, callTool(t, s, "contacts", `{"operation":"search","query":"  "}`))
	if !isErr {
		t.Error("blank query should be a tool error")
	}
}

func TestContactsSearchPermissionDenied(t *testing.T) {
	s := newTestServer(t)
	s.contacts = &mockContactSearcher{
		searchFn: func(ctx context.Context, query string) ([]apple.Contact, error) {
			return nil, &apple.Error{
				Op:   "contacts.search",
				Kind: apple.KindPermission,
				Err:  context.Canceled,
			}
		},
	}

	text, isErr := resultText(t, callTool(t, s, "contacts", `{"operation":"search","query":"jane"}`))
	if !isErr {
		t.Fatal("permission failure should be a tool error")
	}
	if !strings.Contains(text, "Privacy & Security") {
		t.Errorf("permission error should carry a TCC suggestion:\n%s", text)
	}
}

func TestContactsResolve(t *testing.T) {
	s := newTestServer(t)
	s.resolver = &fakeResolver{
		byHandle: map[string]contacts.Summary{
			"+15551234567": {ID: "c1", FullName: "Jane Doe"},
		},
	}

	text, isErr := resultText(t, callTool(t, s, "contacts",
		`{"operation":"resolve","handles":["+15551234567","unknown@example.com"]}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	if !strings.Contains(text, "+15551234567: Jane Doe") {
		t.Errorf("resolved handle missing:\n%s", text)
	}
	if !strings.Contains(text, "unknown@example.com: (no match)") {
		t.Errorf("unresolved handle should render (no match):\n%s", text)
	}
}

func TestContactsResolveNoHandles(t *testing.T) {
	s := newTestServer(t)
	_, isErr := resultText(t, callTool(t, s, "contacts", `{"operation":"resolve","handles":[]}`))
	if !isErr {
		t.Error("empty handles should be a tool error")
	}
}
