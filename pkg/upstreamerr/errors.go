// Package upstreamerr defines the error taxonomy for upstream
// failures. Transport problems (HTTP status, timeout) and payload
// problems (undecodable feed) stay distinct types so callers can map
// them to different protocol responses.
package upstreamerr

import (
	"fmt"
	"time"
)

// HTTPError is a non-2xx response from an upstream API.
type HTTPError struct {
	Source     string
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: HTTP %d from %s", e.Source, e.StatusCode, e.URL)
}

// TimeoutError is an upstream request that exceeded its time budget.
type TimeoutError struct {
	Source  string
	URL     string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: request to %s timed out after %s", e.Source, e.URL, e.Elapsed)
}

// ParseError is a response body that could not be decoded. It is never
// raised for transport failures.
type ParseError struct {
	Source string
	URL    string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse feed from %s: %v", e.Source, e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError is a programming-contract violation on entity
// construction, not a recoverable upstream condition.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
