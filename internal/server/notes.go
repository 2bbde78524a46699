// Copyright 2025 Joseph Cumines
//
// Notes tool handler

package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joeycumines/MacosPimSDK/internal/apple"
)

// handleNotes handles the notes tool.
func (s *MCPServer) handleNotes(call *ToolCall) (*ToolResult, error) {
	var args struct {
		Operation string `json:"operation"`
		Folder    string `json:"folder"`
		Query     string `json:"query"`
		Name      string `json:"name"`
		Body      string `json:"body"`
	}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return errorResultf("invalid arguments: %v", err), nil
		}
	}

	switch args.Operation {
	case "list":
		notes, err := s.notes.ListNotes(s.ctx, args.Folder)
		if err != nil {
			return s.automationError("notes", err), nil
		}
		return formatNotes(notes, "No notes found"), nil
	case "search":
		query := strings.TrimSpace(args.Query)
		if query == "" {
			return errorResult("query is required for the search operation"), nil
		}
		notes, err := s.notes.SearchNotes(s.ctx, query)
		if err != nil {
			return s.automationError("notes", err), nil
		}
		return formatNotes(notes, fmt.Sprintf("No notes matching %q", query)), nil
	case "create":
		if strings.TrimSpace(args.Name) == "" {
			return errorResult("name is required for the create operation"), nil
		}
		note, err := s.notes.CreateNote(s.ctx, apple.NoteDraft{
			Name:   args.Name,
			Body:   args.Body,
			Folder: args.Folder,
		})
		if err != nil {
			return s.automationError("notes", err), nil
		}
		return textResultf("Created note %q in folder %q", note.Name, note.Folder), nil
	default:
		return errorResultf("unknown operation: %q", args.Operation), nil
	}
}

func formatNotes(notes []apple.Note, emptyMsg string) *ToolResult {
	if len(notes) == 0 {
		return textResult(emptyMsg)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d note(s):", len(notes))
	for _, n := range notes {
		fmt.Fprintf(&sb, "\n[%s] %s", n.Folder, n.Name)
		if n.Body != "" {
			fmt.Fprintf(&sb, " - %s", truncateText(n.Body))
		}
	}
	return textResult(sb.String())
}
