// Copyright 2025 Joseph Cumines
//
// Messages tool handler

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/joeycumines/MacosPimSDK/internal/contacts"
	"github.com/joeycumines/MacosPimSDK/internal/store"
)

const defaultMessageLimit = 20
const maxMessageLimit = 100

// handleMessages handles the messages tool: conversation history and unread
// messages from chat.db, and sending via the Messages app.
func (s *MCPServer) handleMessages(call *ToolCall) (*ToolResult, error) {
	var args struct {
		Operation string `json:"operation"`
		Contact   string `json:"contact"`
		Handle    string `json:"handle"`
		Text      string `json:"text"`
		Limit     int    `json:"limit"`
	}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return errorResultf("invalid arguments: %v", err), nil
		}
	}

	limit := clampLimit(args.Limit, defaultMessageLimit, maxMessageLimit)

	switch args.Operation {
	case "read":
		return s.messagesRead(args.Contact, args.Handle, limit)
	case "unread":
		return s.messagesUnread(limit)
	case "send":
		return s.messagesSend(args.Contact, args.Handle, args.Text)
	default:
		return errorResultf("unknown operation: %q", args.Operation), nil
	}
}

func clampLimit(requested, fallback, max int) int {
	if requested <= 0 {
		return fallback
	}
	if requested > max {
		return max
	}
	return requested
}

// targetHandles determines the normalized handles for a read or send target.
// An explicit handle wins; otherwise the contact name is searched. A nil
// result with an empty error message means no matching contact.
func (s *MCPServer) targetHandles(contact, handle string) ([]string, *ToolResult) {
	if handle = strings.TrimSpace(handle); handle != "" {
		switch contacts.Classify(handle) {
		case contacts.HandleEmail:
			return []string{contacts.NormalizeEmail(handle)}, nil
		default:
			return []string{contacts.NormalizePhone(handle)}, nil
		}
	}

	contact = strings.TrimSpace(contact)
	if contact == "" {
		return nil, nil
	}

	hs, err := s.resolver.ResolveNameToHandles(s.ctx, contact)
	if err != nil {
		var searchErr *contacts.SearchError
		if errors.As(err, &searchErr) && searchErr.Timeout {
			return nil, errorResultf("contact search for %q timed out; try again", contact)
		}
		return nil, errorResultf("contact search for %q failed: %v", contact, err)
	}
	if hs == nil {
		return nil, textResultf("No contact found matching %q", contact)
	}
	return append(append([]string{}, hs.Phones...), hs.Emails...), nil
}

func (s *MCPServer) messagesRead(contact, handle string, limit int) (*ToolResult, error) {
	if s.msgStore == nil {
		return errorResult("messages database is unavailable"), nil
	}

	handles, res := s.targetHandles(contact, handle)
	if res != nil {
		return res, nil
	}

	var msgs []store.Message
	var err error
	if len(handles) == 0 {
		msgs, err = s.msgStore.RecentMessages(s.ctx, limit)
	} else {
		for _, h := range handles {
			batch, qerr := s.msgStore.MessagesWith(s.ctx, h, limit)
			if qerr != nil {
				err = qerr
				break
			}
			msgs = append(msgs, batch...)
		}
		// Merged conversations come back per-handle; re-sort newest first.
		sort.Slice(msgs, func(i, j int) bool { return msgs[i].SentAt.After(msgs[j].SentAt) })
		if len(msgs) > limit {
			msgs = msgs[:limit]
		}
	}
	if err != nil {
		return errorResultf("failed to read messages: %v", err), nil
	}
	if len(msgs) == 0 {
		return textResult("No messages found"), nil
	}

	return textResult(s.formatMessages(msgs)), nil
}

func (s *MCPServer) messagesUnread(limit int) (*ToolResult, error) {
	if s.msgStore == nil {
		return errorResult("messages database is unavailable"), nil
	}

	msgs, err := s.msgStore.UnreadMessages(s.ctx, limit)
	if err != nil {
		return errorResultf("failed to read unread messages: %v", err), nil
	}
	if len(msgs) == 0 {
		return textResult("No unread messages"), nil
	}

	return textResult(s.formatMessages(msgs)), nil
}

func (s *MCPServer) messagesSend(contact, handle, text string) (*ToolResult, error) {
	if strings.TrimSpace(text) == "" {
		return errorResult("text is required for the send operation"), nil
	}

	handles, res := s.targetHandles(contact, handle)
	if res != nil {
		return res, nil
	}
	if len(handles) == 0 {
		return errorResult("contact or handle is required for the send operation"), nil
	}

	// Prefer the first handle; name resolution orders phones before emails.
	target := handles[0]
	if err := s.messages.SendMessage(s.ctx, target, text); err != nil {
		return s.automationError("messages", err), nil
	}
	return textResultf("Message sent to %s", target), nil
}

// formatMessages renders rows newest-first with enriched sender names.
func (s *MCPServer) formatMessages(msgs []store.Message) string {
	var senders []string
	for _, m := range msgs {
		if !m.IsFromMe {
			senders = append(senders, m.Sender)
		}
	}
	resolved := resolveHandleBatch(s.ctx, s.resolver, collectHandles(senders))

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d message(s):", len(msgs))
	for _, m := range msgs {
		who := "Me"
		if !m.IsFromMe {
			who = displayName(resolved, m.Sender, "")
		}
		fmt.Fprintf(&sb, "\n[%s] %s: %s", m.SentAt.Format("2006-01-02 15:04"), who, truncateText(m.Text))
	}
	return sb.String()
}
