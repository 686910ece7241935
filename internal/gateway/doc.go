// Package gateway wires the sms-gateway components together and runs the
// HTTP server.
//
// The gateway owns the process lifecycle for the HTTP/SSE transports:
// listener setup (plain TCP or a Tailscale tsnet node, optionally with
// Funnel or tailnet HTTPS), graceful shutdown, and the /health endpoint.
// The stdio transport is wired directly in cmd/sms-gateway since it has no
// server lifecycle beyond the pipe.
//
// Degradation is deliberate: missing SMS credentials or persistence config
// never stop the server; they only change what tool invocations report.
package gateway
