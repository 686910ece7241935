// ABOUTME: Message normalization with character-based length enforcement
// ABOUTME: Truncates outbound text to the SMS length budget with an ellipsis marker

package notify

// Truncation contract: messages longer than MaxMessageLength characters are
// cut at MaxMessageLength-len(Ellipsis) characters and the ellipsis appended,
// so the sent text is always exactly MaxMessageLength characters. Both values
// are fixed here; nothing else may re-derive them.
const (
	MaxMessageLength = 250
	Ellipsis         = "..."
)

// NormalizedMessage is the outcome of normalizing raw user text.
type NormalizedMessage struct {
	OriginalText   string
	SentText       string
	Truncated      bool
	OriginalLength int
	SentLength     int
}

// Normalize produces the text actually transmitted. Lengths are measured in
// characters, not bytes, so multi-byte runes are never split.
func Normalize(text string) (*NormalizedMessage, error) {
	if text == "" {
		return nil, &ValidationError{Field: "message", Reason: "message is required"}
	}

	runes := []rune(text)
	originalLength := len(runes)

	if originalLength <= MaxMessageLength {
		return &NormalizedMessage{
			OriginalText:   text,
			SentText:       text,
			Truncated:      false,
			OriginalLength: originalLength,
			SentLength:     originalLength,
		}, nil
	}

	sent := string(runes[:MaxMessageLength-len(Ellipsis)]) + Ellipsis
	return &NormalizedMessage{
		OriginalText:   text,
		SentText:       sent,
		Truncated:      true,
		OriginalLength: originalLength,
		SentLength:     MaxMessageLength,
	}, nil
}
