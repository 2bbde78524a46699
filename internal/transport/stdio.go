// Copyright 2025 Joseph Cumines
//
// Stdio transport for JSON-RPC 2.0 communication

package transport

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

var errStdinClosed = errors.New("stdin closed")

// StdioTransport implements JSON-RPC 2.0 transport over stdin/stdout.
// Reads and writes are serialized independently so a blocked read does
// not prevent responses from being written.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type StdioTransport struct {
	reader  *bufio.Reader
	writer  io.Writer
	readMu  sync.Mutex
	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
}

// NewStdioTransport creates a new stdio transport
func NewStdioTransport(stdin io.Reader, stdout io.Writer) *StdioTransport {
	return &StdioTransport{
		reader: bufio.NewReader(stdin),
		writer: stdout,
	}
}

// ReadMessage reads one newline-delimited JSON-RPC 2.0 message.
// Returns errStdinClosed when the peer closes stdin.
func (t *StdioTransport) ReadMessage() (*Message, error) {
	if t.IsClosed() {
		return nil, fmt.Errorf("transport is closed")
	}

	t.readMu.Lock()
	defer t.readMu.Unlock()

	line, err := t.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return nil, errStdinClosed
		}
		return nil, fmt.Errorf("failed to read line: %w", err)
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("empty line received")
	}

	var msg Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &msg, nil
}

// WriteMessage writes a JSON-RPC 2.0 message followed by a newline.
func (t *StdioTransport) WriteMessage(msg *Message) error {
	if t.IsClosed() {
		return fmt.Errorf("transport is closed")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if _, err := t.writer.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

// Close closes the transport
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// IsClosed returns whether the transport is closed
func (t *StdioTransport) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Serve reads messages in a loop, dispatching each to handler and writing
// the response. Returns nil when stdin closes. Malformed input lines are
// logged and skipped rather than terminating the loop.
func (t *StdioTransport) Serve(handler func(*Message) (*Message, error)) error {
	for {
		msg, err := t.ReadMessage()
		if err != nil {
			if errors.Is(err, errStdinClosed) {
				log.Println("Stdin closed, exiting")
				return nil
			}
			log.Printf("Error reading message: %v", err)
			continue
		}

		response, err := handler(msg)
		if err != nil {
			log.Printf("Error handling message: %v", err)
			response = &Message{
				JSONRPC: "2.0",
				ID:      msg.ID,
				Error: &ErrorObj{
					Code:    ErrCodeInternalError,
					Message: err.Error(),
				},
			}
		}

		if response != nil {
			if err := t.WriteMessage(response); err != nil {
				log.Printf("Error writing message: %v", err)
			}
		}
	}
}
