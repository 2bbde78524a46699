// Copyright 2025 Joseph Cumines
//
// Messages tool handler tests

package server

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/joeycumines/MacosPimSDK/internal/contacts"
	"github.com/joeycumines/MacosPimSDK/internal/store"
)

func TestMessagesReadByContactName(t *testing.T) {
	s := newTestServer(t)
	s.resolver = &fakeResolver{
		nameHandles: &contacts.HandleSet{Phones: []string{"12125551234"}},
		byHandle: map[string]contacts.Summary{
			"+12125551234": {FullName: "Jane Doe"},
		},
	}
	s.msgStore = &mockMessageStore{
		withFn: func(ctx context.Context, handleSuffix string, limit int) ([]store.Message, error) {
			if handleSuffix != "12125551234" {
				t.Errorf("handleSuffix = %q, want normalized phone", handleSuffix)
			}
			return []store.Message{
				{RowID: 1, Sender: "+12125551234", Text: "hey", SentAt: time.Unix(1700000000, 0)},
				{RowID: 2, Text: "hi back", SentAt: time.Unix(1700000100, 0), IsFromMe: true},
			}, nil
		},
	}

	text, isErr := resultText(t, callTool(t, s, "messages", `{"operation":"read","contact":"Jane"}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	if !strings.Contains(text, "Jane Doe: hey") {
		t.Errorf("sender should be enriched to contact name:\n%s", text)
	}
	if !strings.Contains(text, "Me: hi back") {
		t.Errorf("own messages should render as Me:\n%s", text)
	}
	// Newest first.
	if strings.Index(text, "hi back") > strings.Index(text, "hey") {
		t.Errorf("messages should be sorted newest first:\n%s", text)
	}
}

func TestMessagesReadNoContactMatch(t *testing.T) {
	s := newTestServer(t)
	s.resolver = &fakeResolver{nameHandles: nil}
	s.msgStore = &mockMessageStore{}

	text, isErr := resultText(t, callTool(t, s, "messages", `{"operation":"read","contact":"Nobody"}`))
	if isErr {
		t.Fatal("no contact match should not be a tool error")
	}
	if !strings.Contains(text, `No contact found matching "Nobody"`) {
		t.Errorf("output = %q", text)
	}
}

func TestMessagesReadSearchTimeout(t *testing.T) {
	s := newTestServer(t)
	s.resolver = &fakeResolver{
		nameErr: &contacts.SearchError{Err: fmt.Errorf("apple event timed out"), Timeout: true},
	}
	s.msgStore = &mockMessageStore{}

	text, isErr := resultText(t, callTool(t, s, "messages", `{"operation":"read","contact":"Jane"}`))
	if !isErr {
		t.Fatal("search timeout should be a tool error")
	}
	if !strings.Contains(text, "timed out") {
		t.Errorf("timeout errors should be called out:\n%s", text)
	}
}

func TestMessagesReadByHandleLimit(t *testing.T) {
	s := newTestServer(t)
	var msgs []store.Message
	for i := 0; i < 30; i++ {
		msgs = append(msgs, store.Message{
			RowID:  int64(i),
			Sender: "+12125551234",
			Text:   fmt.Sprintf("msg %d", i),
			SentAt: time.Unix(int64(1700000000+i), 0),
		})
	}
	s.msgStore = &mockMessageStore{
		withFn: func(ctx context.Context, handleSuffix string, limit int) ([]store.Message, error) {
			return msgs, nil
		},
	}

	text, isErr := resultText(t, callTool(t, s, "messages",
		`{"operation":"read","handle":"+1 (212) 555-1234","limit":5}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	if !strings.HasPrefix(text, "5 message(s):") {
		t.Errorf("merged result should be trimmed to the limit:\n%s", text)
	}
	// The newest messages survive the trim.
	if !strings.Contains(text, "msg 29") || strings.Contains(text, "msg 0\n") {
		t.Errorf("trim should keep newest messages:\n%s", text)
	}
}

func TestMessagesUnread(t *testing.T) {
	s := newTestServer(t)
	s.msgStore = &mockMessageStore{
		unreadFn: func(ctx context.Context, limit int) ([]store.Message, error) {
			return []store.Message{
				{RowID: 1, Sender: "+15550001111", Text: "ping", SentAt: time.Unix(1700000000, 0)},
			}, nil
		},
	}

	text, isErr := resultText(t, callTool(t, s, "messages", `{"operation":"unread"}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	if !strings.Contains(text, "+15550001111: ping") {
		t.Errorf("unresolved sender should render as raw handle:\n%s", text)
	}
}

func TestMessagesUnreadEmpty(t *testing.T) {
	s := newTestServer(t)
	s.msgStore = &mockMessageStore{
		unreadFn: func(ctx context.Context, limit int) ([]store.Message, error) {
			return nil, nil
		},
	}

	text, isErr := resultText(t, callTool(t, s, "messages", `{"operation":"unread"}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	if text != "No unread messages" {
		t.Errorf("output = %q", text)
	}
}

func TestMessagesStoreUnavailable(t *testing.T) {
	s := newTestServer(t)
	// msgStore stays nil.
	text, isErr := resultText(t, callTool(t, s, "messages", `{"operation":"unread"}`))
	if !isErr {
		t.Fatal("missing store should be a tool error")
	}
	if !strings.Contains(text, "unavailable") {
		t.Errorf("output = %q", text)
	}
}

func TestMessagesSendByHandle(t *testing.T) {
	s := newTestServer(t)
	var gotHandle, gotText string
	s.messages = &mockMessageSender{
		sendFn: func(ctx context.Context, handle, text string) error {
			gotHandle, gotText = handle, text
			return nil
		},
	}

	_, isErr := resultText(t, callTool(t, s, "messages",
		`{"operation":"send","handle":"+1 (212) 555-1234","text":"hello"}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	if gotHandle != "12125551234" {
		t.Errorf("handle = %q, want normalized digits", gotHandle)
	}
	if gotText != "hello" {
		t.Errorf("text = %q", gotText)
	}
}

func TestMessagesSendByContactPrefersPhone(t *testing.T) {
	s := newTestServer(t)
	s.resolver = &fakeResolver{
		nameHandles: &contacts.HandleSet{
			Phones: []string{"12125551234"},
			Emails: []string{"jane@example.com"},
		},
	}
	var gotHandle string
	s.messages = &mockMessageSender{
		sendFn: func(ctx context.Context, handle, text string) error {
			gotHandle = handle
			return nil
		},
	}

	_, isErr := resultText(t, callTool(t, s, "messages",
		`{"operation":"send","contact":"Jane","text":"hello"}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	if gotHandle != "12125551234" {
		t.Errorf("handle = %q, phones should be preferred over emails", gotHandle)
	}
}

func TestMessagesSendMissingText(t *testing.T) {
	s := newTestServer(t)
	_, isErr := resultText(t, callTool(t, s, "messages",
		`{"operation":"send","handle":"+12125551234"}`))
	if !isErr {
		t.Error("missing text should be a tool error")
	}
}
