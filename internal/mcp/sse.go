// ABOUTME: SSE transport binding: persistent event streams with a message inbox
// ABOUTME: Streams open with an endpoint event and live until the client disconnects

package mcp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// sseHeartbeatInterval is how often idle streams emit a keepalive comment so
// intermediaries don't close the connection.
const sseHeartbeatInterval = 30 * time.Second

// sseSession is one active SSE protocol session. The outbound channel
// carries responses from the message inbox to the stream writer.
type sseSession struct {
	id        string
	outbound  chan *JSONRPCResponse
	done      chan struct{}
	closeOnce sync.Once
	createdAt time.Time
}

func (s *sseSession) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// sessionStore manages active SSE sessions (in-memory).
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sseSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*sseSession)}
}

func (s *sessionStore) create() *sseSession {
	sess := &sseSession{
		id:        uuid.New().String(),
		outbound:  make(chan *JSONRPCResponse, 8),
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess
}

func (s *sessionStore) get(id string) (*sseSession, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	return sess, ok
}

func (s *sessionStore) delete(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.close()
	}
}

func (s *sessionStore) closeAll() {
	s.mu.Lock()
	for id, sess := range s.sessions {
		sess.close()
		delete(s.sessions, id)
	}
	s.mu.Unlock()
}

// handleSSE opens a persistent event stream for one protocol session. The
// first event is an endpoint event naming the session's message inbox URL;
// every response envelope follows as a message event. The session ends when
// the client disconnects.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// Fail fast with a synchronous error before any stream bytes are sent.
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("streaming not supported")
		s.writeHTTPError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sess := s.sessions.create()
	defer s.sessions.delete(sess.id)

	s.logger.Info("SSE session opened", "session_id", sess.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Tell the client where to POST its JSON-RPC messages.
	fmt.Fprintf(w, "event: endpoint\ndata: /mcp/messages?session_id=%s\n\n", sess.id)
	flusher.Flush()

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("SSE session closed", "session_id", sess.id)
			return
		case <-sess.done:
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case resp := <-sess.outbound:
			data, err := json.Marshal(resp)
			if err != nil {
				s.logger.Warn("failed to marshal SSE message", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleSessionMessage is the inbox for SSE sessions: clients POST JSON-RPC
// envelopes here and receive the responses on their event stream.
func (s *Server) handleSessionMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		s.writeHTTPError(w, http.StatusBadRequest, "missing session_id")
		return
	}

	sess, ok := s.sessions.get(sessionID)
	if !ok {
		s.writeHTTPError(w, http.StatusNotFound, "unknown session")
		return
	}

	req, decoded := s.decodeEnvelope(w, r)
	if !decoded {
		return
	}

	resp := s.router.Dispatch(r.Context(), req)
	if resp != nil {
		select {
		case sess.outbound <- resp:
		case <-sess.done:
			s.writeHTTPError(w, http.StatusGone, "session closed")
			return
		}
	}

	w.WriteHeader(http.StatusAccepted)
}
