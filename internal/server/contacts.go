// Copyright 2025 Joseph Cumines
//
// Contacts tool handler

package server

import (
	"encoding/json"
	"fmt"
	"strings"
)

// handleContacts handles the contacts tool: name search against the address
// book, and bulk handle-to-name resolution through the shared cache.
func (s *MCPServer) handleContacts(call *ToolCall) (*ToolResult, error) {
	var args struct {
		Operation string   `json:"operation"`
		Query     string   `json:"query"`
		Handles   []string `json:"handles"`
	}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return errorResultf("invalid arguments: %v", err), nil
		}
	}

	switch args.Operation {
	case "search":
		return s.contactsSearch(args.Query)
	case "resolve":
		return s.contactsResolve(args.Handles)
	default:
		return errorResultf("unknown operation: %q", args.Operation), nil
	}
}

func (s *MCPServer) contactsSearch(query string) (*ToolResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return errorResult("query is required for the search operation"), nil
	}

	matches, err := s.contacts.SearchContactsByName(s.ctx, query)
	if err != nil {
		return s.automationError("contacts", err), nil
	}
	if len(matches) == 0 {
		return textResultf("No contacts found matching %q", query), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d contact(s) matching %q:\n", len(matches), query)
	for _, c := range matches {
		fmt.Fprintf(&sb, "\n%s", c.FullName)
		for _, p := range c.Phones {
			fmt.Fprintf(&sb, "\n  phone: %s", p)
		}
		for _, e := range c.Emails {
			fmt.Fprintf(&sb, "\n  email: %s", e)
		}
	}
	return textResult(sb.String()), nil
}

func (s *MCPServer) contactsResolve(handles []string) (*ToolResult, error) {
	handles = collectHandles(handles)
	if len(handles) == 0 {
		return errorResult("handles is required for the resolve operation"), nil
	}

	resolved := resolveHandleBatch(s.ctx, s.resolver, handles)

	var sb strings.Builder
	for i, h := range handles {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if summary, ok := resolved[h]; ok {
			fmt.Fprintf(&sb, "%s: %s", h, summary.FullName)
		} else {
			fmt.Fprintf(&sb, "%s: (no match)", h)
		}
	}
	return textResult(sb.String()), nil
}
