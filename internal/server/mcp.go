// Copyright 2025 Joseph Cumines
//
// MCP server implementation

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joeycumines/MacosPimSDK/internal/apple"
	"github.com/joeycumines/MacosPimSDK/internal/config"
	"github.com/joeycumines/MacosPimSDK/internal/contacts"
	"github.com/joeycumines/MacosPimSDK/internal/store"
	"github.com/joeycumines/MacosPimSDK/internal/transport"
)

const (
	serverName      = "macos-pim-mcp"
	serverVersion   = "0.1.0"
	protocolVersion = "2024-11-05"
)

// contactResolver is the contact resolution surface consumed by handlers.
// *contacts.Resolver satisfies it; tests substitute a stub.
type contactResolver interface {
	ResolveHandle(ctx context.Context, raw string) *contacts.Summary
	ResolveBatch(ctx context.Context, handles []string) map[string]contacts.Summary
	ResolveNameToHandles(ctx context.Context, name string) (*contacts.HandleSet, error)
	InvalidateCache()
	CacheSize() int
}

// Per-domain automation surfaces, narrowed to what handlers call so tests
// can mock them with small function-field structs.
type (
	contactSearcher interface {
		SearchContactsByName(ctx context.Context, query string) ([]apple.Contact, error)
	}
	messageSender interface {
		SendMessage(ctx context.Context, handle, text string) error
	}
	mailAutomation interface {
		ListMailboxes(ctx context.Context) ([]apple.Mailbox, error)
		SendMail(ctx context.Context, draft apple.MailDraft) error
	}
	notesAutomation interface {
		ListNotes(ctx context.Context, folderName string) ([]apple.Note, error)
		SearchNotes(ctx context.Context, query string) ([]apple.Note, error)
		CreateNote(ctx context.Context, draft apple.NoteDraft) (*apple.Note, error)
	}
	remindersAutomation interface {
		ListReminders(ctx context.Context, listName string) ([]apple.Reminder, error)
		SearchReminders(ctx context.Context, query string) ([]apple.Reminder, error)
		CreateReminder(ctx context.Context, draft apple.ReminderDraft) (*apple.Reminder, error)
	}
	calendarAutomation interface {
		EventsBetween(ctx context.Context, from, to time.Time) ([]apple.CalendarEvent, error)
		SearchEvents(ctx context.Context, query string, from, to time.Time) ([]apple.CalendarEvent, error)
		CreateEvent(ctx context.Context, draft apple.EventDraft) (*apple.CalendarEvent, error)
	}
	messageStore interface {
		RecentMessages(ctx context.Context, limit int) ([]store.Message, error)
		MessagesWith(ctx context.Context, handleSuffix string, limit int) ([]store.Message, error)
		UnreadMessages(ctx context.Context, limit int) ([]store.Message, error)
	}
	mailIndex interface {
		UnreadMessages(ctx context.Context, limit int) ([]store.MailMessage, error)
		SearchMessages(ctx context.Context, query string, limit int) ([]store.MailMessage, error)
	}
)

// MCPServer serves the personal-data tool surface over MCP. The resolver is
// constructed once and shared by every handler; it amortizes the expensive
// address book fetch across the process lifetime.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type MCPServer struct {
	cfg       *config.Config
	resolver  contactResolver
	contacts  contactSearcher
	messages  messageSender
	mail      mailAutomation
	notes     notesAutomation
	reminders remindersAutomation
	calendar  calendarAutomation

	// Read-only SQLite paths; nil when the database could not be opened
	// (handlers answer with an error result rather than failing startup).
	msgStore  messageStore
	mailStore mailIndex

	audit   *AuditLogger
	metrics *transport.MetricsRegistry

	ctx    context.Context
	cancel context.CancelFunc
	tools  map[string]*Tool
	mu     sync.RWMutex

	closers []func() error
}

// Tool represents an MCP tool
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Tool struct {
	Handler     func(*ToolCall) (*ToolResult, error)
	InputSchema map[string]interface{}
	Name        string
	Description string
}

// ToolCall represents a tool call request
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult represents a tool call result
type ToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content represents a content item in a tool result
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// NewMCPServer creates a new MCP server, wiring the osascript automation
// clients, the read-only SQLite stores, and the shared contact resolver.
func NewMCPServer(cfg *config.Config) (*MCPServer, error) {
	ctx, cancel := context.WithCancel(context.Background())

	runner := &apple.OsascriptRunner{
		Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
	}

	contactsClient := apple.NewContactsClient(runner)
	resolver := contacts.NewResolver(contactsClient, cfg.ContactCacheTTL)

	audit, err := NewAuditLogger(cfg.AuditLogPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	s := &MCPServer{
		cfg:       cfg,
		resolver:  resolver,
		contacts:  contactsClient,
		messages:  apple.NewMessagesClient(runner),
		mail:      apple.NewMailClient(runner),
		notes:     apple.NewNotesClient(runner),
		reminders: apple.NewRemindersClient(runner),
		calendar:  apple.NewCalendarClient(runner),
		audit:     audit,
		metrics:   transport.DefaultMetrics(),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.closers = append(s.closers, audit.Close)

	// The SQLite databases only exist on a machine with Messages/Mail
	// configured. Missing or unreadable databases degrade the affected
	// tools, not the whole server.
	if msgStore, err := store.OpenMessages(cfg.MessagesDBPath); err != nil {
		log.Printf("Warning: messages database unavailable: %v", err)
	} else {
		s.msgStore = msgStore
		s.closers = append(s.closers, msgStore.Close)
	}
	if mailStore, err := store.OpenMail(cfg.MailDBPath); err != nil {
		log.Printf("Warning: mail database unavailable: %v", err)
	} else {
		s.mailStore = mailStore
		s.closers = append(s.closers, mailStore.Close)
	}

	// Invalidate the contact cache when Contacts.app writes to the
	// AddressBook directory, so external edits show up before TTL expiry.
	if cfg.AddressBookPath != "" {
		if watcher, err := contacts.WatchAddressBook(resolver, cfg.AddressBookPath); err != nil {
			log.Printf("Warning: address book watcher unavailable: %v", err)
		} else {
			s.closers = append(s.closers, watcher.Close)
		}
	}

	s.registerTools()

	return s, nil
}

// Shutdown gracefully shuts down the server
func (s *MCPServer) Shutdown() {
	s.cancel()
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}
	log.Println("Shutting down MCP server...")
}

// registerTools registers all available tools
func (s *MCPServer) registerTools() {
	s.tools = map[string]*Tool{
		"contacts": {
			Name:        "contacts",
			Description: "Search contacts by name or resolve phone/email handles to contact names",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"operation": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"search", "resolve"},
						"description": "search: find contacts by name; resolve: map handles to names",
					},
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Name to search for (search operation)",
					},
					"handles": map[string]interface{}{
						"type":        "array",
						"description": "Phone numbers or email addresses to resolve (resolve operation)",
					},
				},
				"required": []string{"operation"},
			},
			Handler: s.handleContacts,
		},
		"messages": {
			Name:        "messages",
			Description: "Read or send iMessage/SMS conversations",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"operation": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"read", "unread", "send"},
						"description": "read: conversation history; unread: unread messages; send: send a message",
					},
					"contact": map[string]interface{}{
						"type":        "string",
						"description": "Contact name to read from or send to",
					},
					"handle": map[string]interface{}{
						"type":        "string",
						"description": "Phone number or email, used instead of contact name",
					},
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Message text (send operation)",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of messages to return (default 20)",
					},
				},
				"required": []string{"operation"},
			},
			Handler: s.handleMessages,
		},
		"mail": {
			Name:        "mail",
			Description: "Read unread mail, search mail, list mailboxes, or send mail",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"operation": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"unread", "search", "send", "mailboxes"},
						"description": "unread: unread messages; search: search by subject or sender; send: send mail; mailboxes: list mailboxes",
					},
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Search term (search operation)",
					},
					"to": map[string]interface{}{
						"type":        "array",
						"description": "Recipient addresses (send operation)",
					},
					"cc": map[string]interface{}{
						"type":        "array",
						"description": "CC addresses (send operation)",
					},
					"subject": map[string]interface{}{
						"type":        "string",
						"description": "Mail subject (send operation)",
					},
					"body": map[string]interface{}{
						"type":        "string",
						"description": "Mail body (send operation)",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of messages to return (default 20)",
					},
				},
				"required": []string{"operation"},
			},
			Handler: s.handleMail,
		},
		"notes": {
			Name:        "notes",
			Description: "List, search, or create notes",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"operation": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"list", "search", "create"},
						"description": "list: notes in a folder; search: full-text search; create: new note",
					},
					"folder": map[string]interface{}{
						"type":        "string",
						"description": "Folder name (list/create operations; default all folders)",
					},
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Search term (search operation)",
					},
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Note title (create operation)",
					},
					"body": map[string]interface{}{
						"type":        "string",
						"description": "Note body (create operation)",
					},
				},
				"required": []string{"operation"},
			},
			Handler: s.handleNotes,
		},
		"reminders": {
			Name:        "reminders",
			Description: "List, search, or create reminders",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"operation": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"list", "search", "create"},
						"description": "list: open reminders in a list; search: search by name; create: new reminder",
					},
					"list": map[string]interface{}{
						"type":        "string",
						"description": "Reminder list name (list/create operations; default all lists)",
					},
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Search term (search operation)",
					},
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Reminder title (create operation)",
					},
					"body": map[string]interface{}{
						"type":        "string",
						"description": "Reminder notes (create operation)",
					},
					"due_date": map[string]interface{}{
						"type":        "string",
						"description": "Due date in ISO 8601 format (create operation)",
					},
				},
				"required": []string{"operation"},
			},
			Handler: s.handleReminders,
		},
		"calendar": {
			Name:        "calendar",
			Description: "List calendar events in a date range, search events, or create events",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"operation": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"events", "search", "create"},
						"description": "events: events in a range; search: search by title; create: new event",
					},
					"from": map[string]interface{}{
						"type":        "string",
						"description": "Range start in ISO 8601 format (default now)",
					},
					"to": map[string]interface{}{
						"type":        "string",
						"description": "Range end in ISO 8601 format (default 7 days from start)",
					},
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Search term (search operation)",
					},
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Event title (create operation)",
					},
					"calendar": map[string]interface{}{
						"type":        "string",
						"description": "Target calendar name (create operation)",
					},
					"location": map[string]interface{}{
						"type":        "string",
						"description": "Event location (create operation)",
					},
					"notes": map[string]interface{}{
						"type":        "string",
						"description": "Event notes (create operation)",
					},
					"start": map[string]interface{}{
						"type":        "string",
						"description": "Event start in ISO 8601 format (create operation)",
					},
					"end": map[string]interface{}{
						"type":        "string",
						"description": "Event end in ISO 8601 format (create operation)",
					},
				},
				"required": []string{"operation"},
			},
			Handler: s.handleCalendar,
		},
	}
}

// Serve reads MCP requests from the stdio transport until stdin closes.
func (s *MCPServer) Serve(tr *transport.StdioTransport) error {
	log.Println("MCP server starting (stdio)...")
	return tr.Serve(s.HandleMessage)
}

// ServeHTTP serves MCP requests over the HTTP/SSE transport.
func (s *MCPServer) ServeHTTP(tr *transport.HTTPTransport) error {
	log.Println("MCP server starting (http)...")
	return tr.Serve(s.HandleMessage)
}

// HandleMessage dispatches a single MCP message and returns the response,
// or nil for notifications.
func (s *MCPServer) HandleMessage(msg *transport.Message) (*transport.Message, error) {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg), nil
	case "notifications/initialized":
		return nil, nil
	case "tools/list":
		return s.handleToolsList(msg), nil
	case "tools/call":
		return s.handleToolsCall(msg), nil
	default:
		return &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &transport.ErrorObj{
				Code:    transport.ErrCodeMethodNotFound,
				Message: fmt.Sprintf("Method not found: %s", msg.Method),
			},
		}, nil
	}
}

func (s *MCPServer) handleInitialize(msg *transport.Message) *transport.Message {
	result, _ := json.Marshal(map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
		"serverInfo": map[string]interface{}{
			"name":    serverName,
			"version": serverVersion,
		},
	})
	return &transport.Message{JSONRPC: "2.0", ID: msg.ID, Result: result}
}

func (s *MCPServer) handleToolsList(msg *transport.Message) *transport.Message {
	s.mu.RLock()
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	tools := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		tool := s.tools[name]
		tools = append(tools, map[string]interface{}{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": tool.InputSchema,
		})
	}
	s.mu.RUnlock()

	result, _ := json.Marshal(map[string]interface{}{"tools": tools})
	return &transport.Message{JSONRPC: "2.0", ID: msg.ID, Result: result}
}

func (s *MCPServer) handleToolsCall(msg *transport.Message) *transport.Message {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &transport.ErrorObj{
				Code:    transport.ErrCodeInvalidRequest,
				Message: fmt.Sprintf("Invalid request: %v", err),
			},
		}
	}

	s.mu.RLock()
	tool, exists := s.tools[params.Name]
	s.mu.RUnlock()

	if !exists {
		return &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &transport.ErrorObj{
				Code:    transport.ErrCodeMethodNotFound,
				Message: fmt.Sprintf("Tool not found: %s", params.Name),
			},
		}
	}

	// Validate arguments against the declared schema before dispatch.
	if len(params.Arguments) > 0 {
		var args map[string]any
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return &transport.Message{
				JSONRPC: "2.0",
				ID:      msg.ID,
				Error: &transport.ErrorObj{
					Code:    transport.ErrCodeInvalidParams,
					Message: fmt.Sprintf("Invalid arguments: %v", err),
				},
			}
		}
		if errMsg := validateToolInput(params.Name, args, s.tools); errMsg != nil {
			errMsg.ID = msg.ID
			return errMsg
		}
	}

	invocationID := uuid.NewString()
	start := time.Now()
	result, err := tool.Handler(&ToolCall{
		Name:      params.Name,
		Arguments: params.Arguments,
	})
	duration := time.Since(start)

	status := "success"
	if err != nil || (result != nil && result.IsError) {
		status = "error"
	}
	s.metrics.RecordRequest(params.Name, status, duration)
	s.audit.LogToolCall(invocationID, params.Name, params.Arguments, status, duration)

	if err != nil {
		return &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &transport.ErrorObj{
				Code:    transport.ErrCodeInternalError,
				Message: err.Error(),
			},
		}
	}

	resultMap := map[string]interface{}{"content": result.Content}
	if result.IsError {
		resultMap["isError"] = true
	}
	resultBytes, _ := json.Marshal(resultMap)
	return &transport.Message{JSONRPC: "2.0", ID: msg.ID, Result: resultBytes}
}

// automationError formats an osascript failure as a tool result and records
// the failure kind metric.
func (s *MCPServer) automationError(toolName string, err error) *ToolResult {
	kind := "script"
	switch {
	case apple.IsPermissionDenied(err):
		kind = "permission"
	case apple.IsTimeout(err):
		kind = "timeout"
	}
	s.metrics.RecordAutomationError(kind)
	return errorResult(formatAutomationError(err, toolName))
}
