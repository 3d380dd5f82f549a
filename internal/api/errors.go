package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrUnauthorized matches upstream 401 and 403 responses via errors.Is.
var ErrUnauthorized = errors.New("unauthorized")

// Error is a non-2xx response from the API.
type Error struct {
	StatusCode int
	// Message is the human-readable reason extracted from the body, if any.
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// UserMessage returns the message to show a user for err, or fallback when
// err carries none.
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func newError(status int, body []byte) *Error {
	return &Error{StatusCode: status, Message: extractMessage(body)}
}

const maxPlainMessage = 200

// extractMessage understands {"error": "..."}, {"detail": "..."} and
// field-error maps such as {"email": ["already exists"]}.
func extractMessage(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		text := strings.TrimSpace(string(body))
		if strings.HasPrefix(text, "<") || len(text) > maxPlainMessage {
			return ""
		}
		return text
	}

	for _, key := range []string{"error", "detail", "message"} {
		if raw, ok := fields[key]; ok {
			if msg := firstString(raw); msg != "" {
				return msg
			}
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if msg := firstString(fields[k]); msg != "" {
			return k + ": " + msg
		}
	}
	return ""
}

func firstString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}
