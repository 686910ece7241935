// ABOUTME: Twilio SMS client wrapping the official twilio-go REST SDK
// ABOUTME: Exposes the Sender interface so dispatch logic can run against mocks

package sms

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SendResult carries the provider's identifiers for a completed send.
type SendResult struct {
	// SID is the provider message id (e.g. "SM...").
	SID string
	// Status is the provider delivery status at send time (e.g. "queued").
	Status string
}

// Sender is the outbound SMS capability: send a text message, get back a
// provider message id and delivery status.
type Sender interface {
	Send(from, to, body string) (*SendResult, error)
}

// AccountInfo holds basic provider account details, used for startup
// credential validation.
type AccountInfo struct {
	SID          string
	FriendlyName string
	Status       string
}

// Client implements Sender against the Twilio REST API.
type Client struct {
	api        *twilio.RestClient
	accountSID string
	logger     *slog.Logger
}

// NewClient creates a Twilio client with the given credentials.
func NewClient(accountSID, authToken string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	api := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Client{
		api:        api,
		accountSID: accountSID,
		logger:     logger.With("component", "twilio"),
	}
}

// Send delivers one SMS. The call is not retried; transient provider
// failures surface to the caller unchanged.
func (c *Client) Send(from, to, body string) (*SendResult, error) {
	params := &openapi.CreateMessageParams{}
	params.SetFrom(from)
	params.SetTo(to)
	params.SetBody(body)

	msg, err := c.api.Api.CreateMessage(params)
	if err != nil {
		c.logger.Error("twilio API error", "to", to, "error", err)
		return nil, fmt.Errorf("twilio API error: %w", err)
	}

	if msg.Sid == nil {
		return nil, errors.New("twilio returned a message without a SID")
	}

	result := &SendResult{SID: *msg.Sid}
	if msg.Status != nil {
		result.Status = *msg.Status
	}

	c.logger.Info("SMS sent", "to", to, "message_sid", result.SID, "status", result.Status)
	return result, nil
}

// AccountInfo fetches basic account details, validating the credentials.
func (c *Client) AccountInfo() (*AccountInfo, error) {
	account, err := c.api.Api.FetchAccount(c.accountSID)
	if err != nil {
		return nil, fmt.Errorf("fetching account info: %w", err)
	}

	info := &AccountInfo{}
	if account.Sid != nil {
		info.SID = *account.Sid
	}
	if account.FriendlyName != nil {
		info.FriendlyName = *account.FriendlyName
	}
	if account.Status != nil {
		info.Status = *account.Status
	}
	return info, nil
}
