// Copyright 2025 Joseph Cumines
//
// Reminders tool handler

package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joeycumines/MacosPimSDK/internal/apple"
)

// handleReminders handles the reminders tool.
func (s *MCPServer) handleReminders(call *ToolCall) (*ToolResult, error) {
	var args struct {
		Operation string `json:"operation"`
		List      string `json:"list"`
		Query     string `json:"query"`
		Name      string `json:"name"`
		Body      string `json:"body"`
		DueDate   string `json:"due_date"`
	}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return errorResultf("invalid arguments: %v", err), nil
		}
	}

	switch args.Operation {
	case "list":
		reminders, err := s.reminders.ListReminders(s.ctx, args.List)
		if err != nil {
			return s.automationError("reminders", err), nil
		}
		return formatReminders(reminders, "No open reminders"), nil
	case "search":
		query := strings.TrimSpace(args.Query)
		if query == "" {
			return errorResult("query is required for the search operation"), nil
		}
		reminders, err := s.reminders.SearchReminders(s.ctx, query)
		if err != nil {
			return s.automationError("reminders", err), nil
		}
		return formatReminders(reminders, fmt.Sprintf("No reminders matching %q", query)), nil
	case "create":
		if strings.TrimSpace(args.Name) == "" {
			return errorResult("name is required for the create operation"), nil
		}
		reminder, err := s.reminders.CreateReminder(s.ctx, apple.ReminderDraft{
			Name:    args.Name,
			Body:    args.Body,
			List:    args.List,
			DueDate: args.DueDate,
		})
		if err != nil {
			return s.automationError("reminders", err), nil
		}
		return textResultf("Created reminder %q in list %q", reminder.Name, reminder.List), nil
	default:
		return errorResultf("unknown operation: %q", args.Operation), nil
	}
}

func formatReminders(reminders []apple.Reminder, emptyMsg string) *ToolResult {
	if len(reminders) == 0 {
		return textResult(emptyMsg)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d reminder(s):", len(reminders))
	for _, r := range reminders {
		status := " "
		if r.Completed {
			status = "x"
		}
		fmt.Fprintf(&sb, "\n[%s] (%s) %s", status, r.List, r.Name)
		if r.DueDate != "" {
			fmt.Fprintf(&sb, " due %s", r.DueDate)
		}
	}
	return textResult(sb.String())
}
