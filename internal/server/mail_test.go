// Copyright 2025 Joseph Cumines
//
// Mail tool handler tests

package server

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/joeycumines/MacosPimSDK/internal/apple"
	"github.com/joeycumines/MacosPimSDK/internal/contacts"
	"github.com/joeycumines/MacosPimSDK/internal/store"
)

func TestMailUnreadSenderPrecedence(t *testing.T) {
	s := newTestServer(t)
	s.resolver = &fakeResolver{
		byHandle: map[string]contacts.Summary{
			"jane@example.com": {FullName: "Jane Doe"},
		},
	}
	s.mailStore = &mockMailIndex{
		unreadFn: func(ctx context.Context, limit int) ([]store.MailMessage, error) {
			return []store.MailMessage{
				{RowID: 1, SenderAddress: "jane@example.com", SenderName: "J. Doe", Subject: "lunch", ReceivedAt: time.Unix(1700000000, 0), Unread: true},
				{RowID: 2, SenderAddress: "bob@example.com", SenderName: "Bob Smith", Subject: "report", ReceivedAt: time.Unix(1700000100, 0), Unread: true},
				{RowID: 3, SenderAddress: "noreply@example.com", Subject: "receipt", ReceivedAt: time.Unix(1700000200, 0), Unread: true},
			}, nil
		},
	}

	text, isErr := resultText(t, callTool(t, s, "mail", `{"operation":"unread"}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	if !strings.Contains(text, "Jane Doe: lunch") {
		t.Errorf("resolved contact name should win over the stored display name:\n%s", text)
	}
	if !strings.Contains(text, "Bob Smith: report") {
		t.Errorf("stored display name should win over the bare address:\n%s", text)
	}
	if !strings.Contains(text, "noreply@example.com: receipt") {
		t.Errorf("bare address should be the last resort:\n%s", text)
	}
	if !strings.Contains(text, "* [") {
		t.Errorf("unread messages should carry a marker:\n%s", text)
	}
}

func TestMailUnreadEmpty(t *testing.T) {
	s := newTestServer(t)
	s.mailStore = &mockMailIndex{
		unreadFn: func(ctx context.Context, limit int) ([]store.MailMessage, error) {
			return nil, nil
		},
	}

	text, isErr := resultText(t, callTool(t, s, "mail", `{"operation":"unread"}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	if text != "No unread mail" {
		t.Errorf("output = %q", text)
	}
}

func TestMailSearch(t *testing.T) {
	s := newTestServer(t)
	var gotQuery string
	s.mailStore = &mockMailIndex{
		searchFn: func(ctx context.Context, query string, limit int) ([]store.MailMessage, error) {
			gotQuery = query
			return []store.MailMessage{
				{RowID: 1, SenderAddress: "jane@example.com", Subject: "invoice 42", ReceivedAt: time.Unix(1700000000, 0)},
			}, nil
		},
	}

	text, isErr := resultText(t, callTool(t, s, "mail", `{"operation":"search","query":"invoice"}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	if gotQuery != "invoice" {
		t.Errorf("query = %q", gotQuery)
	}
	if !strings.Contains(text, "invoice 42") {
		t.Errorf("output = %q", text)
	}
}

func TestMailSearchMissingQuery(t *testing.T) {
	s := newTestServer(t)
	s.mailStore = &mockMailIndex{}
	_, isErr := resultText(t, callTool(t, s, "mail", `{"operation":"search"}`))
	if !isErr {
		t.Error("missing query should be a tool error")
	}
}

func TestMailStoreUnavailable(t *testing.T) {
	s := newTestServer(t)
	// mailStore stays nil.
	text, isErr := resultText(t, callTool(t, s, "mail", `{"operation":"unread"}`))
	if !isErr {
		t.Fatal("missing store should be a tool error")
	}
	if !strings.Contains(text, "unavailable") {
		t.Errorf("output = %q", text)
	}
}

func TestMailMailboxes(t *testing.T) {
	s := newTestServer(t)
	s.mail = &mockMailAutomation{
		listMailboxesFn: func(ctx context.Context) ([]apple.Mailbox, error) {
			return []apple.Mailbox{
				{Account: "iCloud", Name: "INBOX", Unread: 3},
				{Account: "Work", Name: "Archive"},
			}, nil
		},
	}

	text, isErr := resultText(t, callTool(t, s, "mail", `{"operation":"mailboxes"}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	if !strings.Contains(text, "iCloud / INBOX (3 unread)") {
		t.Errorf("output = %q", text)
	}
	if !strings.Contains(text, "Work / Archive (0 unread)") {
		t.Errorf("output = %q", text)
	}
}

func TestMailSend(t *testing.T) {
	s := newTestServer(t)
	var gotDraft apple.MailDraft
	s.mail = &mockMailAutomation{
		sendMailFn: func(ctx context.Context, draft apple.MailDraft) error {
			gotDraft = draft
			return nil
		},
	}

	text, isErr := resultText(t, callTool(t, s, "mail",
		`{"operation":"send","to":["jane@example.com","bob@example.com"],"cc":["eve@example.com"],"subject":"hi","body":"hello"}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	if len(gotDraft.To) != 2 || gotDraft.To[0] != "jane@example.com" {
		t.Errorf("draft.To = %v", gotDraft.To)
	}
	if len(gotDraft.CC) != 1 || gotDraft.CC[0] != "eve@example.com" {
		t.Errorf("draft.CC = %v", gotDraft.CC)
	}
	if gotDraft.Subject != "hi" || gotDraft.Body != "hello" {
		t.Errorf("draft = %+v", gotDraft)
	}
	if !strings.Contains(text, "Mail sent to jane@example.com, bob@example.com") {
		t.Errorf("output = %q", text)
	}
}

func TestMailSendValidation(t *testing.T) {
	s := newTestServer(t)
	s.mail = &mockMailAutomation{}

	for name, args := range map[string]string{
		"no recipients":      `{"operation":"send","subject":"hi"}`,
		"no subject or body": `{"operation":"send","to":["jane@example.com"]}`,
	} {
		if _, isErr := resultText(t, callTool(t, s, "mail", args)); !isErr {
			t.Errorf("%s: expected a tool error", name)
		}
	}
}
