// Copyright 2025 Joseph Cumines
//
// MCP HTTP/SSE transport integration tests - validates the HTTP surface of
// the macos-pim-mcp binary: health, metrics, auth, and JSON-RPC dispatch.

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestHTTPTransport_Health(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	baseURL, cleanup := startHTTPServer(t, ctx)
	defer cleanup()

	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health status = %d, want 200", resp.StatusCode)
	}
}

func TestHTTPTransport_MessageDispatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	baseURL, cleanup := startHTTPServer(t, ctx)
	defer cleanup()

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`
	resp, err := http.Post(baseURL+"/message", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /message failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /message status = %d, want 200", resp.StatusCode)
	}

	var parsed struct {
		Result struct {
			ServerInfo struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if parsed.Error != nil {
		t.Fatalf("initialize error: %s", parsed.Error.Message)
	}
	if parsed.Result.ServerInfo.Name != "macos-pim-mcp" {
		t.Errorf("serverInfo.name = %q, want %q", parsed.Result.ServerInfo.Name, "macos-pim-mcp")
	}
}

func TestHTTPTransport_Auth(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const apiKey = "integration-test-key"
	baseURL, cleanup := startHTTPServer(t, ctx, "MCP_HTTP_API_KEY="+apiKey)
	defer cleanup()

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`

	// Without a token the guarded endpoints reject.
	resp, err := http.Post(baseURL+"/message", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /message failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated POST /message status = %d, want 401", resp.StatusCode)
	}

	// Health stays open for probes.
	resp, err = http.Get(baseURL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health status = %d, want 200", resp.StatusCode)
	}

	// With the bearer token the request goes through.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/message", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authenticated POST /message failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("authenticated POST /message status = %d, want 200", resp.StatusCode)
	}
}

func TestHTTPTransport_Metrics(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	baseURL, cleanup := startHTTPServer(t, ctx)
	defer cleanup()

	// Dispatch one request so the counters move.
	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	resp, err := http.Post(baseURL+"/message", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /message failed: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(baseURL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want 200", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics: %v", err)
	}
	if !strings.Contains(string(data), "pim_mcp_") {
		t.Errorf("Metrics output missing pim_mcp_ series:\n%s", data)
	}
}
