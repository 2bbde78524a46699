// Copyright 2025 Joseph Cumines
//
// Mail tool handler

package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joeycumines/MacosPimSDK/internal/apple"
	"github.com/joeycumines/MacosPimSDK/internal/store"
)

// handleMail handles the mail tool: unread and search reads from the
// Envelope Index, mailbox listing and sending via the Mail app.
func (s *MCPServer) handleMail(call *ToolCall) (*ToolResult, error) {
	var args struct {
		Operation string   `json:"operation"`
		Query     string   `json:"query"`
		To        []string `json:"to"`
		CC        []string `json:"cc"`
		Subject   string   `json:"subject"`
		Body      string   `json:"body"`
		Limit     int      `json:"limit"`
	}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return errorResultf("invalid arguments: %v", err), nil
		}
	}

	limit := clampLimit(args.Limit, defaultMessageLimit, maxMessageLimit)

	switch args.Operation {
	case "unread":
		return s.mailUnread(limit)
	case "search":
		return s.mailSearch(args.Query, limit)
	case "mailboxes":
		return s.mailMailboxes()
	case "send":
		return s.mailSend(args.To, args.CC, args.Subject, args.Body)
	default:
		return errorResultf("unknown operation: %q", args.Operation), nil
	}
}

func (s *MCPServer) mailUnread(limit int) (*ToolResult, error) {
	if s.mailStore == nil {
		return errorResult("mail database is unavailable"), nil
	}

	msgs, err := s.mailStore.UnreadMessages(s.ctx, limit)
	if err != nil {
		return errorResultf("failed to read unread mail: %v", err), nil
	}
	if len(msgs) == 0 {
		return textResult("No unread mail"), nil
	}
	return textResult(s.formatMail(msgs)), nil
}

func (s *MCPServer) mailSearch(query string, limit int) (*ToolResult, error) {
	if s.mailStore == nil {
		return errorResult("mail database is unavailable"), nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return errorResult("query is required for the search operation"), nil
	}

	msgs, err := s.mailStore.SearchMessages(s.ctx, query, limit)
	if err != nil {
		return errorResultf("failed to search mail: %v", err), nil
	}
	if len(msgs) == 0 {
		return textResultf("No mail matching %q", query), nil
	}
	return textResult(s.formatMail(msgs)), nil
}

func (s *MCPServer) mailMailboxes() (*ToolResult, error) {
	boxes, err := s.mail.ListMailboxes(s.ctx)
	if err != nil {
		return s.automationError("mail", err), nil
	}
	if len(boxes) == 0 {
		return textResult("No mailboxes found"), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d mailbox(es):", len(boxes))
	for _, b := range boxes {
		fmt.Fprintf(&sb, "\n%s / %s (%d unread)", b.Account, b.Name, b.Unread)
	}
	return textResult(sb.String()), nil
}

func (s *MCPServer) mailSend(to, cc []string, subject, body string) (*ToolResult, error) {
	if len(to) == 0 {
		return errorResult("to is required for the send operation"), nil
	}
	if strings.TrimSpace(subject) == "" && strings.TrimSpace(body) == "" {
		return errorResult("subject or body is required for the send operation"), nil
	}

	draft := apple.MailDraft{To: to, CC: cc, Subject: subject, Body: body}
	if err := s.mail.SendMail(s.ctx, draft); err != nil {
		return s.automationError("mail", err), nil
	}
	return textResultf("Mail sent to %s", strings.Join(to, ", ")), nil
}

// formatMail renders envelope rows with enriched sender names. The Envelope
// Index often carries a display name already; the resolved contact name
// takes precedence, then the stored name, then the bare address.
func (s *MCPServer) formatMail(msgs []store.MailMessage) string {
	var senders []string
	for _, m := range msgs {
		senders = append(senders, m.SenderAddress)
	}
	resolved := resolveHandleBatch(s.ctx, s.resolver, collectHandles(senders))

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d message(s):", len(msgs))
	for _, m := range msgs {
		marker := " "
		if m.Unread {
			marker = "*"
		}
		from := displayName(resolved, m.SenderAddress, m.SenderName)
		fmt.Fprintf(&sb, "\n%s [%s] %s: %s", marker, m.ReceivedAt.Format("2006-01-02 15:04"), from, truncateText(m.Subject))
	}
	return sb.String()
}
