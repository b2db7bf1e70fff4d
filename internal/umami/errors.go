package umami

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnknown is surfaced when a request loop exhausts its attempts without
// having recorded a concrete error. This should not normally happen and
// exists as a guard against silent failure.
var ErrUnknown = errors.New("unknown error")

// RequestError represents a connection-level failure or timeout while
// talking to the upstream API. Request errors are always retryable.
type RequestError struct {
	// Op names the operation that failed (e.g. "GET /websites").
	Op string
	// Err is the underlying transport error.
	Err error
	// Timeout is true when the failure was a request timeout.
	Timeout bool
}

// NewRequestError creates a RequestError wrapping the given transport error.
func NewRequestError(op string, err error, timeout bool) *RequestError {
	return &RequestError{Op: op, Err: err, Timeout: timeout}
}

// Error returns a string representation of the request error.
// It implements the error interface.
func (e *RequestError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: request timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// HTTPError represents a non-2xx response from the upstream API.
// It is retryable only for 5xx status codes and 429 Too Many Requests;
// any other 4xx is terminal.
type HTTPError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int
	// Message is the upstream error message, when one could be parsed.
	Message string
	// Body is the raw response body, kept for diagnostics.
	Body string
}

// NewHTTPError creates an HTTPError for the given status code. When the
// upstream body carried no message, a default one is derived from the
// status code.
func NewHTTPError(statusCode int, message, body string) *HTTPError {
	if message == "" {
		message = defaultStatusMessage(statusCode)
	}
	return &HTTPError{StatusCode: statusCode, Message: message, Body: body}
}

// Error returns a string representation of the HTTP error.
// It implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the response status warrants a retry.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError ||
		e.StatusCode == http.StatusTooManyRequests
}

// ValidationError represents a malformed or missing required query
// parameter. It is raised synchronously before any network call and is
// never retried.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Error returns a string representation of the validation error in the
// format "field: message". It implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// DecodeError represents a response body that matched none of the shapes
// the caller can handle. It is terminal.
type DecodeError struct {
	// Endpoint is the request path that produced the payload.
	Endpoint string
	// Reason describes why decoding failed.
	Reason string
}

// Error returns a string representation of the decode error.
// It implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: cannot decode response: %s", e.Endpoint, e.Reason)
}

// IsRetryable reports whether the given error warrants another request
// attempt. Connection-level failures and timeouts are retryable; HTTP
// errors delegate to their status code; validation and decode errors are
// terminal.
func IsRetryable(err error) bool {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	return false
}

// defaultStatusMessage maps well-known status codes to stable error
// messages matching the upstream dashboard's wording.
func defaultStatusMessage(statusCode int) string {
	switch statusCode {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "access denied"
	case http.StatusNotFound:
		return "resource not found"
	case http.StatusInternalServerError:
		return "server error"
	default:
		return "unknown error"
	}
}
