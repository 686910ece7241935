// ABOUTME: Tests for the MCP HTTP bindings: synchronous POST and SSE sessions
// ABOUTME: Validates framing, error envelopes, the endpoint handshake, and the message inbox

package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/2389/sms-gateway/internal/sms"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	server, err := NewServer(ServerConfig{
		Router: setupTestRouter(t, &stubSender{}),
		Logger: slog.Default(),
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return server
}

func postJSON(t *testing.T, mux *http.ServeMux, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, body *bytes.Buffer) *JSONRPCResponse {
	t.Helper()
	var resp JSONRPCResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return &resp
}

func TestHandlePost(t *testing.T) {
	server := setupTestServer(t)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	t.Run("initialize round trip", func(t *testing.T) {
		rr := postJSON(t, mux, "/mcp", `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		resp := decodeResponse(t, rr.Body)
		if resp.Error != nil {
			t.Fatalf("unexpected error: %+v", resp.Error)
		}
		if string(resp.ID) != "1" {
			t.Errorf("expected id 1, got %s", resp.ID)
		}
	})

	t.Run("tools call round trip", func(t *testing.T) {
		rr := postJSON(t, mux, "/mcp", `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"task_complete","arguments":{"message":"done"}}}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		resp := decodeResponse(t, rr.Body)
		if resp.Error != nil {
			t.Fatalf("unexpected error: %+v", resp.Error)
		}
	})

	t.Run("unknown tool returns method not found", func(t *testing.T) {
		rr := postJSON(t, mux, "/mcp", `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"wrong_tool","arguments":{"message":"hi"}}}`)
		resp := decodeResponse(t, rr.Body)
		if resp.Error == nil {
			t.Fatal("expected error response")
		}
		if resp.Error.Code != JSONRPCMethodNotFound {
			t.Errorf("expected code %d, got %d", JSONRPCMethodNotFound, resp.Error.Code)
		}
	})

	t.Run("malformed JSON returns parse error", func(t *testing.T) {
		rr := postJSON(t, mux, "/mcp", `{not json`)
		resp := decodeResponse(t, rr.Body)
		if resp.Error == nil || resp.Error.Code != JSONRPCParseError {
			t.Fatalf("expected parse error, got %+v", resp.Error)
		}
	})

	t.Run("oversized body rejected", func(t *testing.T) {
		big := `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"task_complete","arguments":{"message":"` +
			strings.Repeat("x", MaxRequestBodySize) + `"}}}`
		rr := postJSON(t, mux, "/mcp", big)
		resp := decodeResponse(t, rr.Body)
		if resp.Error == nil || resp.Error.Code != JSONRPCInvalidRequest {
			t.Fatalf("expected invalid request, got %+v", resp.Error)
		}
	})

	t.Run("notification returns 202 with no body", func(t *testing.T) {
		rr := postJSON(t, mux, "/mcp", `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
		if rr.Code != http.StatusAccepted {
			t.Errorf("expected status 202, got %d", rr.Code)
		}
		if rr.Body.Len() != 0 {
			t.Errorf("expected empty body, got %q", rr.Body.String())
		}
	})

	t.Run("unsupported method rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", rr.Code)
		}
	})
}

// panicSender fails catastrophically instead of returning an error.
type panicSender struct{}

func (p *panicSender) Send(from, to, body string) (*sms.SendResult, error) {
	panic("sender wiring broken")
}

// A fault deep in dispatch must still produce a framed -32603 response with
// the original request id, never a dropped HTTP exchange.
func TestHandlePostRecoversPanic(t *testing.T) {
	server, err := NewServer(ServerConfig{
		Router: setupTestRouter(t, &panicSender{}),
		Logger: slog.Default(),
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	rr := postJSON(t, mux, "/mcp", `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"task_complete","arguments":{"message":"done"}}}`)

	resp := decodeResponse(t, rr.Body)
	if resp.Error == nil {
		t.Fatal("expected error response")
	}
	if resp.Error.Code != JSONRPCInternalError {
		t.Errorf("expected code %d, got %d", JSONRPCInternalError, resp.Error.Code)
	}
	if string(resp.ID) != "7" {
		t.Errorf("expected id 7, got %s", resp.ID)
	}
}

func TestHandleSessionMessage_Errors(t *testing.T) {
	server := setupTestServer(t)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	t.Run("missing session id", func(t *testing.T) {
		rr := postJSON(t, mux, "/mcp/messages", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		rr := postJSON(t, mux, "/mcp/messages?session_id=nope", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("GET not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/mcp/messages?session_id=x", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", rr.Code)
		}
	})
}

// TestSSESession exercises the full SSE binding against a live listener: open
// the stream, receive the endpoint event, POST a request to the inbox, and
// read the response back as a message event.
func TestSSESession(t *testing.T) {
	server := setupTestServer(t)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	ts := httptest.NewServer(mux)
	defer ts.Close()
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/mcp", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to open SSE stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %s", ct)
	}

	reader := bufio.NewReader(resp.Body)

	// First event must be the endpoint event naming the message inbox.
	event, data := readSSEEvent(t, reader)
	if event != "endpoint" {
		t.Fatalf("expected endpoint event, got %s", event)
	}
	if !strings.HasPrefix(data, "/mcp/messages?session_id=") {
		t.Fatalf("unexpected endpoint data: %s", data)
	}

	// POST a request to the inbox; the transport acknowledges with 202.
	inboxResp, err := http.Post(ts.URL+data, "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":10,"method":"tools/list"}`))
	if err != nil {
		t.Fatalf("failed to POST to inbox: %v", err)
	}
	inboxResp.Body.Close()
	if inboxResp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected status 202 from inbox, got %d", inboxResp.StatusCode)
	}

	// The response arrives on the stream as a message event.
	event, data = readSSEEvent(t, reader)
	if event != "message" {
		t.Fatalf("expected message event, got %s", event)
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal([]byte(data), &rpcResp); err != nil {
		t.Fatalf("message event is not valid JSON-RPC: %v", err)
	}
	if string(rpcResp.ID) != "10" {
		t.Errorf("expected id 10, got %s", rpcResp.ID)
	}
	if rpcResp.Error != nil {
		t.Errorf("unexpected error: %+v", rpcResp.Error)
	}
}

// noFlushWriter hides the recorder's Flusher so the handler sees a writer
// that cannot stream.
type noFlushWriter struct {
	http.ResponseWriter
}

// A writer that cannot stream gets a synchronous 500 JSON body instead of a
// half-open event stream.
func TestSSEStreamingUnsupported(t *testing.T) {
	server := setupTestServer(t)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	mux.ServeHTTP(&noFlushWriter{rr}, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected error detail in body")
	}
}

// readSSEEvent reads one event/data pair from the stream, skipping comments
// and blank lines.
func readSSEEvent(t *testing.T, reader *bufio.Reader) (event, data string) {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("failed reading SSE stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			return event, data
		}
	}
}
