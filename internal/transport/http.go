// Copyright 2025 Joseph Cumines
//
// HTTP/SSE transport for JSON-RPC 2.0 communication

package transport

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// HTTPTransportConfig holds configuration for the HTTP transport.
//
// SocketPath takes precedence over Address when both are set. APIKey, when
// non-empty, requires a matching Bearer token on /message, /events, and
// /metrics. RateLimit is in requests per second; 0 disables limiting.
// WriteTimeout defaults to 0 (disabled) because SSE streams are long-lived.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type HTTPTransportConfig struct {
	Address           string
	SocketPath        string
	CORSOrigin        string
	APIKey            string
	RateLimit         float64
	HeartbeatInterval time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
}

// DefaultHTTPConfig returns default HTTP transport configuration
func DefaultHTTPConfig() *HTTPTransportConfig {
	return &HTTPTransportConfig{
		Address:           ":8080",
		HeartbeatInterval: 15 * time.Second,
		CORSOrigin:        "*",
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // Disabled for SSE compatibility
	}
}

// HTTPTransport implements HTTP/SSE transport for MCP
type HTTPTransport struct {
	config     *HTTPTransportConfig
	server     *http.Server
	handler    func(*Message) (*Message, error)
	clients    *ClientRegistry
	metrics    *MetricsRegistry
	limiter    *RateLimiter
	shutdownCh chan struct{}
	eventID    atomic.Uint64
	closed     atomic.Bool
}

// NewHTTPTransport creates a new HTTP/SSE transport using the global
// metrics registry.
func NewHTTPTransport(config *HTTPTransportConfig) *HTTPTransport {
	return NewHTTPTransportWithMetrics(config, DefaultMetrics())
}

// NewHTTPTransportWithMetrics creates a new HTTP/SSE transport recording
// into the given metrics registry.
func NewHTTPTransportWithMetrics(config *HTTPTransportConfig, metrics *MetricsRegistry) *HTTPTransport {
	if config == nil {
		config = DefaultHTTPConfig()
	}
	if config.HeartbeatInterval == 0 {
		config.HeartbeatInterval = 15 * time.Second
	}
	if config.CORSOrigin == "" {
		config.CORSOrigin = "*"
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 30 * time.Second
	}

	t := &HTTPTransport{
		config:     config,
		clients:    NewClientRegistry(),
		metrics:    metrics,
		limiter:    NewRateLimiter(config.RateLimit),
		shutdownCh: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/message", t.handleMessage)
	mux.HandleFunc("/events", t.handleSSE)
	mux.HandleFunc("/health", t.handleHealth)
	mux.HandleFunc("/metrics", t.handleMetrics)

	handler := t.authMiddleware(mux)
	handler = RateLimitMiddleware(t.limiter, handler)
	handler = t.corsMiddleware(handler)

	t.server = &http.Server{
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return t
}

// corsMiddleware adds CORS headers to all responses
func (t *HTTPTransport) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", t.config.CORSOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Last-Event-ID")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware enforces Bearer token auth on /message, /events, and
// /metrics when an API key is configured. /health stays open so load
// balancers can probe without credentials. Token comparison is constant
// time.
func (t *HTTPTransport) authMiddleware(next http.Handler) http.Handler {
	if t.config.APIKey == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/message", "/events", "/metrics":
			token, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(t.config.APIKey)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="mcp"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	return auth[len(prefix):], true
}

// handleMessage handles POST /message for JSON-RPC requests
func (t *HTTPTransport) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	if t.handler == nil {
		http.Error(w, "Handler not set", http.StatusInternalServerError)
		return
	}

	response, err := t.handler(&msg)
	if err != nil {
		response = &Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &ErrorObj{
				Code:    ErrCodeInternalError,
				Message: err.Error(),
			},
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding response: %v", err)
	}

	// Also broadcast the response as an SSE event for streaming clients
	if response != nil {
		eventData, _ := json.Marshal(response)
		t.broadcast(&SSEEvent{
			ID:    fmt.Sprintf("%d", t.eventID.Add(1)),
			Event: "message",
			Data:  string(eventData),
		})
	}
}

// broadcast sends an event to all SSE clients and records the metric.
func (t *HTTPTransport) broadcast(event *SSEEvent) {
	t.clients.Broadcast(event)
	t.metrics.RecordSSEEvent()
}

// handleSSE handles GET /events for SSE streaming
func (t *HTTPTransport) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastEventID := r.Header.Get("Last-Event-ID")

	client := t.clients.Add(lastEventID)
	t.metrics.SetSSEConnections(t.clients.Count())
	defer func() {
		t.clients.Remove(client.ID)
		t.metrics.SetSSEConnections(t.clients.Count())
	}()

	log.Printf("SSE client connected: %s", client.ID)

	// Replay missed events if reconnecting
	if lastEventID != "" {
		missedEvents := t.clients.eventStore.GetSince(lastEventID)
		for _, event := range missedEvents {
			if err := writeSSEEvent(w, event); err != nil {
				log.Printf("SSE client %s: write error during reconnect replay: %v", client.ID, err)
				return
			}
		}
		flusher.Flush()
	}

	heartbeatTicker := time.NewTicker(t.config.HeartbeatInterval)
	defer heartbeatTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Printf("SSE client disconnected: %s", client.ID)
			return
		case <-t.shutdownCh:
			fmt.Fprintf(w, "event: complete\ndata: server shutdown\n\n")
			flusher.Flush()
			return
		case <-heartbeatTicker.C:
			if _, err := fmt.Fprintf(w, ": heartbeat\n\n"); err != nil {
				log.Printf("SSE client %s: heartbeat write error: %v", client.ID, err)
				return
			}
			flusher.Flush()
		case event, ok := <-client.ResponseChan:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				log.Printf("SSE client %s: write error: %v", client.ID, err)
				return
			}
			flusher.Flush()
		}
	}
}

// handleHealth handles GET /health for health checks
func (t *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      "ok",
		"clients":     t.clients.Count(),
		"server_time": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("Error encoding health response: %v", err)
	}
}

// handleMetrics handles GET /metrics, exporting Prometheus text format.
func (t *HTTPTransport) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := t.metrics.WritePrometheus(w); err != nil {
		log.Printf("Error writing metrics: %v", err)
	}
}

// Serve starts the HTTP server and handles messages
func (t *HTTPTransport) Serve(handler func(*Message) (*Message, error)) error {
	t.handler = handler

	var listener net.Listener
	var err error

	if t.config.SocketPath != "" {
		// Remove stale socket file if it exists
		if err := os.Remove(t.config.SocketPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: failed to remove stale socket %s: %v", t.config.SocketPath, err)
		}
		listener, err = net.Listen("unix", t.config.SocketPath)
		if err != nil {
			return fmt.Errorf("failed to listen on socket %s: %w", t.config.SocketPath, err)
		}
		log.Printf("HTTP/SSE transport listening on unix:%s", t.config.SocketPath)
	} else {
		listener, err = net.Listen("tcp", t.config.Address)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", t.config.Address, err)
		}
		log.Printf("HTTP/SSE transport listening on %s", t.config.Address)
	}

	if err := t.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ReadMessage is not supported; the HTTP transport delivers requests via
// the handler passed to Serve. Returns an error immediately rather than
// blocking.
func (t *HTTPTransport) ReadMessage() (*Message, error) {
	return nil, fmt.Errorf("ReadMessage is not supported by HTTPTransport: use Serve(handler) callback pattern instead")
}

// WriteMessage broadcasts a message to all connected SSE clients
func (t *HTTPTransport) WriteMessage(msg *Message) error {
	if t.closed.Load() {
		return fmt.Errorf("transport is closed")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	t.broadcast(&SSEEvent{
		ID:    fmt.Sprintf("%d", t.eventID.Add(1)),
		Event: "message",
		Data:  string(data),
	})

	return nil
}

// Close closes the HTTP transport
func (t *HTTPTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}

	close(t.shutdownCh)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := t.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	if t.config.SocketPath != "" {
		if err := os.Remove(t.config.SocketPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: failed to remove socket file %s: %v", t.config.SocketPath, err)
		}
	}

	return nil
}

// IsClosed returns whether the transport is closed
func (t *HTTPTransport) IsClosed() bool {
	return t.closed.Load()
}

var _ Transport = (*HTTPTransport)(nil)
