// Copyright 2025 Joseph Cumines

// Package transport provides MCP message transport implementations for
// JSON-RPC 2.0 communication over stdio and HTTP/SSE.
package transport

import "encoding/json"

// JSON-RPC 2.0 standard error codes.
// See: https://www.jsonrpc.org/specification#error_object
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Message represents a JSON-RPC 2.0 message, either a request or a response.
//
// For requests, Method is set and Params optionally carries arguments; ID is
// omitted for notifications. For responses, exactly one of Result or Error is
// set and ID matches the request.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Message struct {
	// Error contains error details for failed requests.
	// Mutually exclusive with Result.
	Error *ErrorObj `json:"error,omitempty"`

	// JSONRPC is always "2.0" per the JSON-RPC specification.
	JSONRPC string `json:"jsonrpc"`

	// Method is the name of the method to invoke. Requests only.
	Method string `json:"method,omitempty"`

	// ID is the request identifier; any JSON value. Omitted for notifications.
	ID json.RawMessage `json:"id,omitempty"`

	// Params contains the method parameters; may be object or array.
	Params json.RawMessage `json:"params,omitempty"`

	// Result contains the success response data.
	// Mutually exclusive with Error.
	Result json.RawMessage `json:"result,omitempty"`
}

// ErrorObj represents a JSON-RPC 2.0 error object.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type ErrorObj struct {
	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// Data contains additional error information; structure is
	// implementation-defined.
	Data json.RawMessage `json:"data,omitempty"`

	// Code is a number indicating the error type.
	Code int `json:"code"`
}

// Transport is the interface shared by the stdio and HTTP/SSE transports.
// Implementations must be safe for concurrent use.
//
// HTTPTransport does not support ReadMessage; it delivers requests via the
// handler passed to Serve, and WriteMessage broadcasts to connected SSE
// clients. StdioTransport reads line-delimited JSON from stdin and writes
// to stdout.
type Transport interface {
	// ReadMessage blocks until a message is available, an error occurs, or
	// the transport is closed.
	ReadMessage() (*Message, error)

	// WriteMessage writes a message to the transport. Returns an error if
	// the transport is closed or the write fails.
	WriteMessage(msg *Message) error

	// Close releases transport resources. Idempotent.
	Close() error

	// IsClosed reports whether the transport has been closed.
	IsClosed() bool
}

var _ Transport = (*StdioTransport)(nil)
