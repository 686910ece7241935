// ABOUTME: Notification dispatcher orchestrating normalize, resolve, send, and log
// ABOUTME: Presents one transport-independent execute operation for the task_complete tool

package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/2389/sms-gateway/internal/sms"
	"github.com/2389/sms-gateway/internal/store"
)

// Request is one tool invocation, constructed fresh per call from decoded
// JSON-RPC params.
type Request struct {
	Message       string `json:"message"`
	ToPhoneNumber string `json:"to_phone_number,omitempty"`
}

// Result is returned to the caller as the tool invocation outcome.
type Result struct {
	Success        bool   `json:"success"`
	MessageSID     string `json:"message_sid"`
	Truncated      bool   `json:"truncated"`
	OriginalLength int    `json:"original_length"`
	SentLength     int    `json:"sent_length"`
	Recipient      string `json:"recipient"`
}

// Config holds the dispatcher's collaborators and numbers. Sender and Store
// may be nil: a nil Sender fails every execute with ErrNotConfigured, a nil
// Store skips the send log entirely.
type Config struct {
	Sender           sms.Sender
	Store            store.Store
	FromNumber       string
	DefaultRecipient string
	Logger           *slog.Logger
}

// Dispatcher executes tool invocations. Safe for concurrent use: all fields
// are read-only after construction.
type Dispatcher struct {
	sender           sms.Sender
	store            store.Store
	fromNumber       string
	defaultRecipient string
	logger           *slog.Logger
}

// NewDispatcher creates a dispatcher from the given configuration.
func NewDispatcher(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sender:           cfg.Sender,
		store:            cfg.Store,
		fromNumber:       cfg.FromNumber,
		defaultRecipient: cfg.DefaultRecipient,
		logger:           logger.With("component", "dispatcher"),
	}
}

// Execute runs one notification: validate, send, best-effort log, respond.
// Re-invoking with identical input sends a second independent SMS; there is
// no deduplication and the provider call is never retried.
func (d *Dispatcher) Execute(ctx context.Context, req *Request) (*Result, error) {
	// Configuration gate precedes all validation.
	if d.sender == nil {
		return nil, ErrNotConfigured
	}

	msg, err := Normalize(req.Message)
	if err != nil {
		return nil, err
	}
	if msg.Truncated {
		d.logger.Info("message truncated",
			"original_length", msg.OriginalLength,
			"sent_length", msg.SentLength,
		)
	}

	recipient, err := ResolveRecipient(req.ToPhoneNumber, d.defaultRecipient)
	if err != nil {
		return nil, err
	}

	sent, err := d.sender.Send(d.fromNumber, recipient, msg.SentText)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}

	result := &Result{
		Success:        true,
		MessageSID:     sent.SID,
		Truncated:      msg.Truncated,
		OriginalLength: msg.OriginalLength,
		SentLength:     msg.SentLength,
		Recipient:      recipient,
	}

	d.appendSendRecord(ctx, msg, recipient, sent)

	return result, nil
}

// appendSendRecord logs the send to the persistence sink. Best-effort: every
// failure is logged and swallowed so it never unwinds into the result.
func (d *Dispatcher) appendSendRecord(ctx context.Context, msg *NormalizedMessage, recipient string, sent *sms.SendResult) {
	if d.store == nil {
		return
	}

	rec := &store.SendRecord{
		MessageSID:      sent.SID,
		FromNumber:      d.fromNumber,
		ToNumber:        recipient,
		OriginalMessage: msg.OriginalText,
		SentMessage:     msg.SentText,
		OriginalLength:  msg.OriginalLength,
		SentLength:      msg.SentLength,
		Truncated:       msg.Truncated,
		Status:          "sent",
		TwilioStatus:    sent.Status,
		SentAt:          time.Now().UTC(),
	}

	if err := d.store.AppendSendRecord(ctx, rec); err != nil {
		d.logger.Warn("failed to log send record",
			"message_sid", sent.SID,
			"error", err,
		)
	}
}
