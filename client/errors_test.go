package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
)

func TestErrorMessageExtractionOrder(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		expected   string
	}{
		{
			name:       "detail field",
			statusCode: http.StatusNotFound,
			body:       `{"detail":"Book not found"}`,
			expected:   "Book not found",
		},
		{
			name:       "message fallback",
			statusCode: http.StatusBadRequest,
			body:       `{"message":"Cart is empty"}`,
			expected:   "Cart is empty",
		},
		{
			name:       "detail wins over message",
			statusCode: http.StatusBadRequest,
			body:       `{"detail":"Email already registered","message":"ignored"}`,
			expected:   "Email already registered",
		},
		{
			name:       "object without known fields stringified",
			statusCode: http.StatusUnprocessableEntity,
			body:       `{"errors":["email invalid"]}`,
			expected:   `{"errors":["email invalid"]}`,
		},
		{
			name:       "non-object json stringified",
			statusCode: http.StatusBadRequest,
			body:       `["bad request"]`,
			expected:   `["bad request"]`,
		},
		{
			name:       "non-json body uses status text",
			statusCode: http.StatusInternalServerError,
			body:       "<html>boom</html>",
			expected:   "Internal Server Error",
		},
		{
			name:       "empty body uses status text",
			statusCode: http.StatusBadGateway,
			body:       "",
			expected:   "Bad Gateway",
		},
		{
			name:       "unknown status code constructed",
			statusCode: 599,
			body:       "nope",
			expected:   "HTTP 599",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorMessage(tt.statusCode, []byte(tt.body)); got != tt.expected {
				t.Fatalf("errorMessage(%d, %q) = %q, want %q", tt.statusCode, tt.body, got, tt.expected)
			}
		})
	}
}

func TestErrorCategory(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "context timeout", err: context.DeadlineExceeded, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, expected: "connection"},
		{name: "other transport", err: errors.New("mystery"), expected: "transport"},
		{name: "unauthorized", statusCode: http.StatusUnauthorized, expected: "unauthorized"},
		{name: "forbidden", statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "server", statusCode: http.StatusBadGateway, expected: "server"},
		{name: "client", statusCode: http.StatusUnprocessableEntity, expected: "client"},
		{name: "unclassified", statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorCategory(tt.err, tt.statusCode); got != tt.expected {
				t.Fatalf("errorCategory(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestAPIErrorUnwrap(t *testing.T) {
	underlying := errors.New("dial tcp: refused")
	err := &APIError{Message: requestFailedMessage, Err: underlying}

	if err.Error() != "Request failed" {
		t.Fatalf("Error() = %q, want Request failed", err.Error())
	}
	if !errors.Is(err, underlying) {
		t.Fatalf("wrapped error should be reachable via errors.Is")
	}
}
