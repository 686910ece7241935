// ABOUTME: Error taxonomy for notification dispatch
// ABOUTME: Distinguishes configuration, validation, and provider failures

package notify

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when the SMS provider was never initialized
// (missing account SID, auth token, or sender number).
var ErrNotConfigured = errors.New("twilio client is not configured: check environment variables")

// ValidationError rejects a request before any external call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ProviderError wraps a failure from the SMS provider. The provider's own
// diagnostic text is preserved verbatim for operator debugging.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return "Failed to send SMS: " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
