// Copyright 2025 Joseph Cumines
//
// Reminders tool handler tests

package server

import (
	"context"
	"strings"
	"testing"

	"github.com/joeycumines/MacosPimSDK/internal/apple"
)

func TestRemindersList(t *testing.T) {
	s := newTestServer(t)
	var gotList string
	s.reminders = &mockRemindersAutomation{
		listFn: func(ctx context.Context, listName string) ([]apple.Reminder, error) {
			gotList = listName
			return []apple.Reminder{
				{ID: "r1", Name: "Buy milk", List: "Groceries", DueDate: "2026-09-01"},
				{ID: "r2", Name: "File taxes", List: "Home", Completed: true},
			}, nil
		},
	}

	text, isErr := resultText(t, callTool(t, s, "reminders", `{"operation":"list","list":"Groceries"}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	if gotList != "Groceries" {
		t.Errorf("list = %q", gotList)
	}
	if !strings.Contains(text, "[ ] (Groceries) Buy milk due 2026-09-01") {
		t.Errorf("output = %q", text)
	}
	if !strings.Contains(text, "[x] (Home) File taxes") {
		t.Errorf("completed reminders should be marked:\n%s", text)
	}
}

func TestRemindersListEmpty(t *testing.T) {
	s := newTestServer(t)
	s.reminders = &mockRemindersAutomation{
		listFn: func(ctx context.Context, listName string) ([]apple.Reminder, error) {
			return nil, nil
		},
	}

	text, isErr := resultText(t, callTool(t, s, "reminders", `{"operation":"list"}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	if text != "No open reminders" {
		t.Errorf("output = %q", text)
	}
}

func TestRemindersSearch(t *testing.T) {
	s := newTestServer(t)
	var gotQuery string
	s.reminders = &mockRemindersAutomation{
		searchFn: func(ctx context.Context, query string) ([]apple.Reminder, error) {
			gotQuery = query
			return nil, nil
		},
	}

	text, isErr := resultText(t, callTool(t, s, "reminders", `{"operation":"search","query":"milk"}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	if gotQuery != "milk" {
		t.Errorf("query = %q", gotQuery)
	}
	if !strings.Contains(text, `No reminders matching "milk"`) {
		t.Errorf("output = %q", text)
	}
}

func TestRemindersCreate(t *testing.T) {
	s := newTestServer(t)
	var gotDraft apple.ReminderDraft
	s.reminders = &mockRemindersAutomation{
		createFn: func(ctx context.Context, draft apple.ReminderDraft) (*apple.Reminder, error) {
			gotDraft = draft
			return &apple.Reminder{ID: "r3", Name: draft.Name, List: "Reminders"}, nil
		},
	}

	text, isErr := resultText(t, callTool(t, s, "reminders",
		`{"operation":"create","name":"Call dentist","due_date":"2026-09-02T09:00:00Z"}`))
	if isErr {
		t.Fatal("unexpected tool error")
	}
	if gotDraft.Name != "Call dentist" || gotDraft.DueDate != "2026-09-02T09:00:00Z" {
		t.Errorf("draft = %+v", gotDraft)
	}
	if !strings.Contains(text, `Created reminder "Call dentist" in list "Reminders"`) {
		t.Errorf("output = %q", text)
	}
}

func TestRemindersCreateMissingName(t *testing.T) {
	s := newTestServer(t)
	s.reminders = &mockRemindersAutomation{}
	if _, isErr := resultText(t, callTool(t, s, "reminders", `{"operation":"create"}`)); !isErr {
		t.Error("missing name should be a tool error")
	}
}

func TestRemindersPermissionDenied(t *testing.T) {
	s := newTestServer(t)
	s.reminders = &mockRemindersAutomation{
		listFn: func(ctx context.Context, listName string) ([]apple.Reminder, error) {
			return nil, &apple.Error{Op: "reminders.list", Kind: apple.KindPermission}
		},
	}

	text, isErr := resultText(t, callTool(t, s, "reminders", `{"operation":"list"}`))
	if !isErr {
		t.Fatal("permission failure should be a tool error")
	}
	if !strings.Contains(text, "Privacy & Security") {
		t.Errorf("permission errors should point at System Settings:\n%s", text)
	}
}
