// ABOUTME: Supabase-backed Store implementation using the PostgREST insert API
// ABOUTME: Appends send records to the sms_sends table with service-key auth

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// sendsTable is the Supabase table send records are appended to.
const sendsTable = "sms_sends"

// SupabaseStore implements Store against a Supabase project's REST endpoint.
type SupabaseStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewSupabaseStore creates a store that appends records via PostgREST.
// The URL is the project base (e.g. "https://xyz.supabase.co") and the key a
// service-role or anon key with insert rights on the sms_sends table.
func NewSupabaseStore(url, key string, logger *slog.Logger) (*SupabaseStore, error) {
	if url == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if key == "" {
		return nil, fmt.Errorf("supabase key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &SupabaseStore{
		baseURL: strings.TrimRight(url, "/"),
		apiKey:  key,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With("component", "supabase"),
	}

	s.logger.Info("Supabase store initialized", "url", s.baseURL, "table", sendsTable)
	return s, nil
}

// AppendSendRecord inserts one record into the sms_sends table.
func (s *SupabaseStore) AppendSendRecord(ctx context.Context, rec *SendRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding send record: %w", err)
	}

	url := s.baseURL + "/rest/v1/" + sendsTable
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating insert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("inserting send record: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("supabase insert failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	s.logger.Debug("send record appended", "message_sid", rec.MessageSID)
	return nil
}

// Close releases the underlying HTTP client's idle connections.
func (s *SupabaseStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
