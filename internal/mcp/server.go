// ABOUTME: HTTP bindings for the MCP endpoint: synchronous POST and SSE streaming
// ABOUTME: Converts wire framing to canonical envelopes and guarantees a framed reply

package mcp

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// ServerConfig holds configuration for the MCP HTTP server.
type ServerConfig struct {
	Router *Router
	Logger *slog.Logger
}

// Server exposes the MCP protocol over HTTP. POST /mcp handles exactly one
// JSON-RPC exchange per request; GET /mcp opens a Server-Sent Events session
// whose messages arrive via POST /mcp/messages.
type Server struct {
	router   *Router
	logger   *slog.Logger
	sessions *sessionStore
}

// NewServer creates a new MCP HTTP server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Router == nil {
		return nil, errors.New("router is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		router:   cfg.Router,
		logger:   logger.With("component", "mcp"),
		sessions: newSessionStore(),
	}, nil
}

// RegisterRoutes registers the MCP endpoints on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/mcp", s.handleMCP)
	mux.HandleFunc("/mcp/messages", s.handleSessionMessage)
}

// Close terminates all active SSE sessions.
func (s *Server) Close() {
	s.sessions.closeAll()
}

// handleMCP is the MCP endpoint: POST for one-shot JSON-RPC exchanges, GET
// for the SSE streaming binding.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodGet:
		s.handleSSE(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// handlePost processes exactly one JSON-RPC message and writes exactly one
// HTTP response. Internal faults anywhere in routing or dispatch are caught
// and converted into a -32603 error envelope rather than a dropped request.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeEnvelope(w, r)
	if !ok {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("panic handling request", "method", req.Method, "panic", rec)
			s.writeResponse(w, newError(req.ID, JSONRPCInternalError, "Internal error", nil))
		}
	}()

	resp := s.router.Dispatch(r.Context(), req)
	if resp == nil {
		// Notification: accepted, no body
		w.WriteHeader(http.StatusAccepted)
		return
	}

	s.writeResponse(w, resp)
}

// decodeEnvelope reads and parses the request body into a canonical
// envelope. On failure it writes the error response and returns ok=false.
func (s *Server) decodeEnvelope(w http.ResponseWriter, r *http.Request) (*JSONRPCRequest, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.writeResponse(w, newError(nil, JSONRPCParseError, "failed to read request body", nil))
		return nil, false
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.writeResponse(w, newError(nil, JSONRPCInvalidRequest, "request body too large", nil))
		return nil, false
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeResponse(w, newError(nil, JSONRPCParseError, "invalid JSON", nil))
		return nil, false
	}

	return &req, true
}

// writeResponse frames one JSON-RPC response as the HTTP response body.
func (s *Server) writeResponse(w http.ResponseWriter, resp *JSONRPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC response", "error", err)
	}
}

// writeHTTPError sends a plain JSON error body with the given HTTP status,
// used before any protocol framing has been established.
func (s *Server) writeHTTPError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		s.logger.Warn("failed to encode error body", "error", err)
	}
}
