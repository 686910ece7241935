// ABOUTME: Tests for the SQLite send-log sink
// ABOUTME: Covers schema creation, record round trips, and counting

package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(sid string) *SendRecord {
	return &SendRecord{
		MessageSID:      sid,
		FromNumber:      "+15550001111",
		ToNumber:        "+15552223333",
		OriginalMessage: "deploy finished",
		SentMessage:     "deploy finished",
		OriginalLength:  15,
		SentLength:      15,
		Truncated:       false,
		Status:          "sent",
		TwilioStatus:    "queued",
		SentAt:          time.Now().UTC(),
	}
}

func TestSQLiteAppendAndGet(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := testRecord("SM0001")
	require.NoError(t, s.AppendSendRecord(ctx, rec))

	got, err := s.GetSendRecord(ctx, "SM0001")
	require.NoError(t, err)

	assert.Equal(t, rec.MessageSID, got.MessageSID)
	assert.Equal(t, rec.FromNumber, got.FromNumber)
	assert.Equal(t, rec.ToNumber, got.ToNumber)
	assert.Equal(t, rec.OriginalMessage, got.OriginalMessage)
	assert.Equal(t, rec.SentMessage, got.SentMessage)
	assert.Equal(t, rec.Status, got.Status)
	assert.Equal(t, rec.TwilioStatus, got.TwilioStatus)
	assert.False(t, got.Truncated)
	assert.WithinDuration(t, rec.SentAt, got.SentAt, time.Second)
}

func TestSQLiteTruncatedFlagRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := testRecord("SM0002")
	rec.Truncated = true
	rec.OriginalLength = 300
	rec.SentLength = 250
	require.NoError(t, s.AppendSendRecord(ctx, rec))

	got, err := s.GetSendRecord(ctx, "SM0002")
	require.NoError(t, err)
	assert.True(t, got.Truncated)
	assert.Equal(t, 300, got.OriginalLength)
	assert.Equal(t, 250, got.SentLength)
}

func TestSQLiteGetMissingRecord(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetSendRecord(context.Background(), "SM-missing")
	require.Error(t, err)
}

func TestSQLiteDuplicateSIDRejected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendSendRecord(ctx, testRecord("SM0003")))
	require.Error(t, s.AppendSendRecord(ctx, testRecord("SM0003")))
}

func TestSQLiteCountSendRecords(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	count, err := s.CountSendRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, s.AppendSendRecord(ctx, testRecord("SM0004")))
	require.NoError(t, s.AppendSendRecord(ctx, testRecord("SM0005")))

	count, err = s.CountSendRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLiteCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "sends.db")

	s, err := NewSQLiteStore(path, slog.Default())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AppendSendRecord(context.Background(), testRecord("SM0006")))
}
