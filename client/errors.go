package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrAuthRequired is returned by protected operations when no session
// exists. It is raised before any network call is made.
var ErrAuthRequired = errors.New("authentication required")

// requestFailedMessage is the generic message for transport-level
// failures where no server response exists to extract one from.
const requestFailedMessage = "Request failed"

// APIError is the single normalized error for failed API calls. Its
// message is the human-readable text the presentation layer shows;
// there is no structured error code and no retry metadata.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// errorMessage extracts a display message from a failed response
// body. It checks the "detail" field, then "message", then falls back
// to the stringified JSON body; a non-JSON body yields the HTTP
// status text, or "HTTP <code>" for codes without one.
func errorMessage(statusCode int, body []byte) string {
	var payload any
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil && payload != nil {
		if object, ok := payload.(map[string]any); ok {
			if detail, ok := object["detail"].(string); ok && detail != "" {
				return detail
			}
			if message, ok := object["message"].(string); ok && message != "" {
				return message
			}
		}
		if raw, err := json.Marshal(payload); err == nil {
			return string(raw)
		}
	}

	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", statusCode)
}

// errorCategory classifies a failure for metrics labels. Transport
// errors are inspected first; otherwise the status code decides.
func errorCategory(err error, statusCode int) string {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "timeout"
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "timeout"
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return "connection"
		}
		return "transport"
	}

	switch {
	case statusCode == http.StatusUnauthorized:
		return "unauthorized"
	case statusCode == http.StatusForbidden:
		return "forbidden"
	case statusCode == http.StatusNotFound:
		return "not_found"
	case statusCode >= http.StatusInternalServerError:
		return "server"
	case statusCode >= http.StatusBadRequest:
		return "client"
	}
	return "other"
}
