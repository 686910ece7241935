// ABOUTME: Store interface and data types for sms-gateway persistence
// ABOUTME: Defines the write-once SendRecord and the append-only sink contract

package store

import (
	"context"
	"time"
)

// SendRecord is the durable log entry for one successful SMS send. Records
// are write-once: the gateway never updates them after insertion.
type SendRecord struct {
	// MessageSID is the provider message id and the record's unique key.
	MessageSID      string    `json:"message_sid"`
	FromNumber      string    `json:"from_number"`
	ToNumber        string    `json:"to_number"`
	OriginalMessage string    `json:"original_message"`
	SentMessage     string    `json:"sent_message"`
	OriginalLength  int       `json:"original_length"`
	SentLength      int       `json:"sent_length"`
	Truncated       bool      `json:"truncated"`
	Status          string    `json:"status"`
	TwilioStatus    string    `json:"twilio_status"`
	SentAt          time.Time `json:"sent_at"`
}

// Store is the persistence sink for send records. Appends are best-effort
// from the caller's perspective: a failing or absent sink must never affect
// the outcome of the send itself.
type Store interface {
	// AppendSendRecord inserts one record.
	AppendSendRecord(ctx context.Context, rec *SendRecord) error

	// Close releases any resources held by the store.
	Close() error
}
