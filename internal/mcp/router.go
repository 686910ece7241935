// ABOUTME: Transport-independent JSON-RPC method router for the MCP lifecycle
// ABOUTME: Routes initialize, tools/list, and tools/call over a closed method set

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/sms-gateway/internal/notify"
)

// method is the closed set of JSON-RPC methods the router understands.
// Dispatching over this enum rather than raw strings keeps the routing
// switch exhaustiveness-checkable.
type method int

const (
	methodUnknown method = iota
	methodInitialize
	methodInitialized
	methodToolsList
	methodToolsCall
)

func parseMethod(name string) method {
	switch name {
	case "initialize":
		return methodInitialize
	case "notifications/initialized":
		return methodInitialized
	case "tools/list":
		return methodToolsList
	case "tools/call":
		return methodToolsCall
	default:
		return methodUnknown
	}
}

// initializeResult is the result body for the initialize handshake.
type initializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    capabilities `json:"capabilities"`
	ServerInfo      serverInfo   `json:"serverInfo"`
}

type capabilities struct {
	Tools struct{} `json:"tools"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// listToolsResult is the result body for tools/list.
type listToolsResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// callToolParams are the params for tools/call.
type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// callToolResult is the result body for tools/call.
type callToolResult struct {
	Content []toolContent `json:"content"`
}

// toolContent is one content block in a tool result.
type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// RouterConfig holds the router's collaborators.
type RouterConfig struct {
	Registry   *Registry
	Dispatcher *notify.Dispatcher
	Version    string
	Logger     *slog.Logger
}

// Router translates canonical JSON-RPC envelopes into registry and
// dispatcher calls. All three transports share one Router instance; it holds
// no per-invocation state.
type Router struct {
	registry   *Registry
	dispatcher *notify.Dispatcher
	version    string
	logger     *slog.Logger
}

// NewRouter creates a router from the given configuration.
func NewRouter(cfg RouterConfig) (*Router, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	return &Router{
		registry:   cfg.Registry,
		dispatcher: cfg.Dispatcher,
		version:    version,
		logger:     logger.With("component", "router"),
	}, nil
}

// Dispatch processes one canonical envelope and returns the response to
// frame, or nil for notifications (which receive no body on any transport).
func (r *Router) Dispatch(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	if req.JSONRPC != "2.0" {
		if req.IsNotification() {
			return nil
		}
		return newError(req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version", nil)
	}

	m := parseMethod(req.Method)

	if req.IsNotification() {
		if m != methodInitialized {
			r.logger.Warn("ignoring unexpected notification", "method", req.Method)
		}
		return nil
	}

	r.logger.Debug("request", "method", req.Method)

	switch m {
	case methodInitialize:
		return r.handleInitialize(req)
	case methodInitialized:
		// initialized sent with an id: acknowledge with an empty result
		return newResult(req.ID, struct{}{})
	case methodToolsList:
		return r.handleToolsList(req)
	case methodToolsCall:
		return r.handleToolsCall(ctx, req)
	case methodUnknown:
		return newError(req.ID, JSONRPCMethodNotFound, "Method not found", req.Method)
	}
	return newError(req.ID, JSONRPCMethodNotFound, "Method not found", req.Method)
}

func (r *Router) handleInitialize(req *JSONRPCRequest) *JSONRPCResponse {
	r.logger.Info("client initializing", "protocol_version", ProtocolVersion)
	return newResult(req.ID, initializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo: serverInfo{
			Name:    ServerName,
			Version: r.version,
		},
	})
}

func (r *Router) handleToolsList(req *JSONRPCRequest) *JSONRPCResponse {
	tools := r.registry.List()
	r.logger.Debug("tools/list", "count", len(tools))
	return newResult(req.ID, listToolsResult{Tools: tools})
}

func (r *Router) handleToolsCall(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	var params callToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return newError(req.ID, JSONRPCInvalidParams, "invalid params", nil)
		}
	}

	if _, err := r.registry.Get(params.Name); err != nil {
		return newError(req.ID, JSONRPCMethodNotFound, fmt.Sprintf("Unknown tool: %s", params.Name), nil)
	}

	var callReq notify.Request
	if len(params.Arguments) > 0 {
		if err := json.Unmarshal(params.Arguments, &callReq); err != nil {
			return newError(req.ID, JSONRPCInvalidParams, "invalid arguments", nil)
		}
	}

	result, err := r.dispatcher.Execute(ctx, &callReq)
	if err != nil {
		r.logger.Warn("tools/call failed", "tool", params.Name, "error", err)
		return newError(req.ID, executeErrorCode(err), err.Error(), nil)
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return newError(req.ID, JSONRPCInternalError, "Internal error", err.Error())
	}

	r.logger.Info("tools/call complete",
		"tool", params.Name,
		"message_sid", result.MessageSID,
		"truncated", result.Truncated,
	)

	return newResult(req.ID, callToolResult{
		Content: []toolContent{{Type: "text", Text: string(text)}},
	})
}

// executeErrorCode maps dispatcher failures onto JSON-RPC error codes.
func executeErrorCode(err error) int {
	var verr *notify.ValidationError
	var perr *notify.ProviderError
	switch {
	case errors.Is(err, notify.ErrNotConfigured):
		return JSONRPCNotConfigured
	case errors.As(err, &verr):
		return JSONRPCInvalidParams
	case errors.As(err, &perr):
		return JSONRPCInternalError
	default:
		return JSONRPCInternalError
	}
}
