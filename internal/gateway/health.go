// ABOUTME: Health endpoint reporting server identity and SMS configuration state
// ABOUTME: Configured=false still serves the protocol; tool calls fail cleanly

package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/2389/sms-gateway/internal/mcp"
)

// HealthResponse is the JSON body for GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Server     string `json:"server"`
	Configured bool   `json:"configured"`
}

// handleHealth reports liveness and whether the SMS capability is usable.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:     "ok",
		Server:     mcp.ServerName,
		Configured: g.smsClient != nil,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		g.logger.Warn("failed to encode health response", "error", err)
	}
}
