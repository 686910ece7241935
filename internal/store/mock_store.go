// ABOUTME: In-memory mock implementation of the Store interface for testing
// ABOUTME: Records appended entries and supports forced append failures

package store

import (
	"context"
	"sync"
)

// MockStore implements Store in memory for tests.
type MockStore struct {
	mu      sync.Mutex
	records []*SendRecord

	// AppendErr, when set, is returned from every AppendSendRecord call.
	AppendErr error
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// AppendSendRecord records the entry, or fails if AppendErr is set.
func (m *MockStore) AppendSendRecord(_ context.Context, rec *SendRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of the appended records.
func (m *MockStore) Records() []*SendRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*SendRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}
