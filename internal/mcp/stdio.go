// ABOUTME: Stdio transport binding: one JSON-RPC message per line
// ABOUTME: Protocol frames go to stdout only; diagnostics must stay on stderr

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

// stdioMaxLineSize bounds a single inbound protocol line.
const stdioMaxLineSize = MaxRequestBodySize

// StdioServer speaks the MCP stdio binding: newline-delimited JSON-RPC
// messages on the input stream, responses on the output stream in the order
// requests finish processing. Nothing but protocol frames may be written to
// the output stream, so the logger handed in here must not target it.
type StdioServer struct {
	router *Router
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

// NewStdioServer creates a stdio transport over the given streams.
func NewStdioServer(router *Router, in io.Reader, out io.Writer, logger *slog.Logger) *StdioServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StdioServer{
		router: router,
		in:     in,
		out:    out,
		logger: logger.With("component", "stdio"),
	}
}

// Run processes requests line by line until the input stream closes or the
// context is canceled. Malformed JSON lines are logged and skipped rather
// than answered, matching the lenient line protocol.
func (s *StdioServer) Run(ctx context.Context) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		scanner.Buffer(make([]byte, 64*1024), stdioMaxLineSize)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	s.logger.Info("stdio transport started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stdio transport stopping")
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("reading stdin: %w", err)
					}
				default:
				}
				s.logger.Info("stdin closed, stdio transport stopping")
				return nil
			}
			if len(line) == 0 {
				continue
			}
			s.handleLine(ctx, line)
		}
	}
}

// handleLine parses and dispatches one inbound line, writing the response
// frame (if any) as a single line on the output stream.
func (s *StdioServer) handleLine(ctx context.Context, line []byte) {
	var req JSONRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.logger.Error("invalid JSON received", "error", err)
		return
	}

	resp := s.router.Dispatch(ctx, &req)
	if resp == nil {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to encode response", "error", err)
		return
	}

	if _, err := fmt.Fprintf(s.out, "%s\n", data); err != nil {
		// Total wire-level failure: nothing more we can do for this request.
		s.logger.Error("failed to write response", "error", err)
	}
}
