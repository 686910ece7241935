// ABOUTME: Recipient resolution between explicit overrides and the configured default
// ABOUTME: Enforces the E.164 plus-prefix precondition

package notify

import "strings"

// ResolveRecipient picks the destination number: the explicit recipient when
// provided, otherwise the configured default. The resolved number must start
// with "+" (E.164); no further format validation is performed.
func ResolveRecipient(explicit, fallback string) (string, error) {
	recipient := explicit
	if recipient == "" {
		recipient = fallback
	}

	if recipient == "" {
		return "", &ValidationError{Field: "to_phone_number", Reason: "no recipient provided and no default configured"}
	}
	if !strings.HasPrefix(recipient, "+") {
		return "", &ValidationError{Field: "to_phone_number", Reason: "phone number must be in E.164 format (start with +)"}
	}

	return recipient, nil
}
