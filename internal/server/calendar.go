// Copyright 2025 Joseph Cumines
//
// Calendar tool handler

package server

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joeycumines/MacosPimSDK/internal/apple"
)

const defaultEventWindow = 7 * 24 * time.Hour

// handleCalendar handles the calendar tool.
func (s *MCPServer) handleCalendar(call *ToolCall) (*ToolResult, error) {
	var args struct {
		Operation string `json:"operation"`
		From      string `json:"from"`
		To        string `json:"to"`
		Query     string `json:"query"`
		Title     string `json:"title"`
		Calendar  string `json:"calendar"`
		Location  string `json:"location"`
		Notes     string `json:"notes"`
		Start     string `json:"start"`
		End       string `json:"end"`
	}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return errorResultf("invalid arguments: %v", err), nil
		}
	}

	switch args.Operation {
	case "events", "search":
		from, to, err := eventRange(args.From, args.To)
		if err != nil {
			return errorResultf("invalid date range: %v", err), nil
		}

		var events []apple.CalendarEvent
		if args.Operation == "search" {
			query := strings.TrimSpace(args.Query)
			if query == "" {
				return errorResult("query is required for the search operation"), nil
			}
			events, err = s.calendar.SearchEvents(s.ctx, query, from, to)
		} else {
			events, err = s.calendar.EventsBetween(s.ctx, from, to)
		}
		if err != nil {
			return s.automationError("calendar", err), nil
		}
		if len(events) == 0 {
			return textResultf("No events between %s and %s",
				from.Format("2006-01-02"), to.Format("2006-01-02")), nil
		}
		return textResult(s.formatEvents(events)), nil
	case "create":
		if strings.TrimSpace(args.Title) == "" {
			return errorResult("title is required for the create operation"), nil
		}
		start, err := time.Parse(time.RFC3339, args.Start)
		if err != nil {
			return errorResultf("invalid start: %v", err), nil
		}
		end, err := time.Parse(time.RFC3339, args.End)
		if err != nil {
			return errorResultf("invalid end: %v", err), nil
		}
		if !end.After(start) {
			return errorResult("end must be after start"), nil
		}

		event, err := s.calendar.CreateEvent(s.ctx, apple.EventDraft{
			Title:    args.Title,
			Calendar: args.Calendar,
			Location: args.Location,
			Notes:    args.Notes,
			Start:    start,
			End:      end,
		})
		if err != nil {
			return s.automationError("calendar", err), nil
		}
		return textResultf("Created event %q in calendar %q", event.Title, event.Calendar), nil
	default:
		return errorResultf("unknown operation: %q", args.Operation), nil
	}
}

// eventRange parses the optional from/to bounds, defaulting to the next
// seven days.
func eventRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from := time.Now()
	if fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("from: %w", err)
		}
		from = parsed
	}

	to := from.Add(defaultEventWindow)
	if toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("to: %w", err)
		}
		to = parsed
	}

	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("to must be after from")
	}
	return from, to, nil
}

// formatEvents renders events with attendee addresses enriched to contact
// names where the resolver knows them.
func (s *MCPServer) formatEvents(events []apple.CalendarEvent) string {
	var attendees []string
	for _, e := range events {
		attendees = append(attendees, e.Attendees...)
	}
	resolved := resolveHandleBatch(s.ctx, s.resolver, collectHandles(attendees))

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d event(s):", len(events))
	for _, e := range events {
		fmt.Fprintf(&sb, "\n[%s - %s] %s (%s)", e.Start, e.End, e.Title, e.Calendar)
		if e.Location != "" {
			fmt.Fprintf(&sb, " @ %s", e.Location)
		}
		if len(e.Attendees) > 0 {
			names := make([]string, 0, len(e.Attendees))
			for _, a := range e.Attendees {
				names = append(names, displayName(resolved, a, ""))
			}
			fmt.Fprintf(&sb, "\n  attendees: %s", strings.Join(names, ", "))
		}
	}
	return sb.String()
}
