// ABOUTME: Tests for gateway assembly and the health endpoint
// ABOUTME: Covers degraded startup without credentials and sink selection

package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/sms-gateway/internal/config"
	"github.com/2389/sms-gateway/internal/store"
)

func newTestGateway(t *testing.T, cfg *config.Config) *Gateway {
	t.Helper()
	gw, err := New(cfg, "test", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { gw.Shutdown(context.Background()) })
	return gw
}

func getHealth(t *testing.T, gw *Gateway) HealthResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	gw.httpServer.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&health))
	return health
}

func TestHealthUnconfigured(t *testing.T) {
	gw := newTestGateway(t, &config.Config{})

	health := getHealth(t, gw)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "sms-gateway", health.Server)
	assert.False(t, health.Configured)
}

func TestHealthConfigured(t *testing.T) {
	gw := newTestGateway(t, &config.Config{
		Twilio: config.TwilioConfig{
			AccountSID: "AC123",
			AuthToken:  "tok",
			FromNumber: "+15550001111",
		},
	})

	health := getHealth(t, gw)
	assert.True(t, health.Configured)
}

// An unconfigured gateway still serves the protocol: tool calls fail with
// the server-defined configuration error rather than a transport failure.
func TestUnconfiguredToolCall(t *testing.T) {
	gw := newTestGateway(t, &config.Config{})

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"task_complete","arguments":{"message":"done"}}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	rr := httptest.NewRecorder()
	gw.httpServer.Handler.ServeHTTP(rr, req)

	var resp struct {
		Error *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32002, resp.Error.Code)
}

func TestInitStore(t *testing.T) {
	t.Run("nil when nothing configured", func(t *testing.T) {
		s, err := initStore(&config.Config{}, slog.Default())
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("sqlite when database path set", func(t *testing.T) {
		cfg := &config.Config{
			Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "sends.db")},
		}
		s, err := initStore(cfg, slog.Default())
		require.NoError(t, err)
		require.NotNil(t, s)
		defer s.Close()

		_, ok := s.(*store.SQLiteStore)
		assert.True(t, ok)
	})

	t.Run("supabase preferred over sqlite", func(t *testing.T) {
		cfg := &config.Config{
			Supabase: config.SupabaseConfig{URL: "https://example.supabase.co", Key: "key"},
			Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "sends.db")},
		}
		s, err := initStore(cfg, slog.Default())
		require.NoError(t, err)
		require.NotNil(t, s)
		defer s.Close()

		_, ok := s.(*store.SupabaseStore)
		assert.True(t, ok)
	})
}
