package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// maxMessageBytes caps plain-text error bodies shown to the operator.
const maxMessageBytes = 200

var (
	// ErrNoMeeting is returned when no meeting is scheduled for today.
	ErrNoMeeting = errors.New("no meeting scheduled today")
	// ErrNotConfigured is returned when the client has no base URL.
	ErrNotConfigured = errors.New("backend not configured")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: backend returned %d", e.Op, e.StatusCode)
}

// UserMessage returns the server's explanation, if it sent one.
func (e *APIError) UserMessage() string {
	return e.Message
}

// Temporary reports whether the failure is worth another attempt later.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

func newAPIError(op string, resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{Op: op, StatusCode: resp.StatusCode, Message: extractMessage(body)}
}

func extractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, candidate := range []string{payload.Message, payload.Error, payload.Detail} {
			if c := strings.TrimSpace(candidate); c != "" {
				return c
			}
		}
		return ""
	}
	if strings.HasPrefix(trimmed, "<") {
		return ""
	}
	if len(trimmed) > maxMessageBytes {
		cut := maxMessageBytes
		for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
			cut--
		}
		trimmed = trimmed[:cut]
	}
	return trimmed
}
