package providers

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured means the user has no provider settings or the
	// endpoint is missing; no network call was attempted.
	ErrNotConfigured = errors.New("llm provider is not configured")

	// ErrUpstreamUnavailable covers dial failures: refused connections,
	// DNS errors, connect timeouts. These fail fast.
	ErrUpstreamUnavailable = errors.New("model server is unreachable")

	// ErrUpstreamTimeout means the server accepted the connection but
	// did not finish responding within the read timeout.
	ErrUpstreamTimeout = errors.New("model server did not respond in time")

	// ErrUpstreamRejected matches any non-2xx vendor response.
	ErrUpstreamRejected = errors.New("model server rejected the request")

	// ErrMalformedResponse means a 2xx response whose JSON did not
	// contain the expected text shape.
	ErrMalformedResponse = errors.New("model server returned an unexpected response shape")
)

// RejectedError carries the vendor status and a truncated body snippet
// for diagnostics. It never contains the API key.
type RejectedError struct {
	Status int
	Body   string
}

func (e *RejectedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider status %d", e.Status)
	}
	return fmt.Sprintf("provider status %d: %s", e.Status, e.Body)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrUpstreamRejected
}

const rejectedBodyLimit = 512

// NewRejectedError truncates the vendor body to a diagnostic snippet.
func NewRejectedError(status int, body []byte) *RejectedError {
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > rejectedBodyLimit {
		snippet = snippet[:rejectedBodyLimit]
	}
	return &RejectedError{Status: status, Body: snippet}
}
