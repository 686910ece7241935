// Package mcp implements the Model Context Protocol surface of the gateway.
//
// # Overview
//
// MCP (Model Context Protocol) is a JSON-RPC 2.0-based protocol that lets AI
// agent clients discover and invoke tools. This package exposes the single
// task_complete tool over three transport bindings that share one method
// router:
//
//   - stdio: one JSON-RPC message per line on stdin, responses on stdout.
//     Diagnostics go to stderr so the protocol stream stays clean.
//   - SSE: GET /mcp opens a persistent event stream. The first event is an
//     endpoint event naming the session's message inbox
//     (POST /mcp/messages?session_id=...); responses arrive as message
//     events on the stream.
//   - HTTP: POST /mcp carries exactly one JSON-RPC exchange per request.
//
// # Protocol
//
// The server advertises protocol version 2024-11-05 and routes four methods:
//
//	initialize                 -> protocolVersion, capabilities, serverInfo
//	notifications/initialized  -> accepted, no reply
//	tools/list                 -> the task_complete descriptor
//	tools/call                 -> dispatches to the notification dispatcher
//
// Anything else is answered with JSON-RPC error -32601. Tool execution
// failures are always framed as JSON-RPC error objects; the HTTP binding
// additionally converts panics into -32603 responses so a reply is always
// sent.
//
// # Architecture
//
// Components:
//
//   - Registry: static single-entry tool catalog
//   - Router: canonical envelope routing shared by all transports
//   - Server: the HTTP bindings (sync POST + SSE sessions)
//   - StdioServer: the pipe binding
package mcp
