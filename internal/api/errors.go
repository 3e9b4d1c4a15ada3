package api

import (
	"errors"
	"fmt"
)

// ErrorKind is the failure class of a label API call.
type ErrorKind int

const (
	// KindNetwork covers transport failures, timeouts and non-2xx responses.
	KindNetwork ErrorKind = iota
	// KindParse indicates a response body that could not be decoded.
	KindParse
	// KindConflict indicates the server rejected a duplicate add or remove.
	KindConflict
)

// String returns the string representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "NetworkError"
	case KindParse:
		return "ParseError"
	case KindConflict:
		return "ConflictError"
	default:
		return "Unknown"
	}
}

// APIError is returned by every Client operation that fails after the
// request has been built.
type APIError struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := fmt.Sprintf("label API error [%s] %s: %s", e.Kind, e.Op, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *APIError) Unwrap() error {
	return e.Err
}

func isKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}

// IsNetworkError checks if the error is a transport or HTTP failure
func IsNetworkError(err error) bool {
	return isKind(err, KindNetwork)
}

// IsParseError checks if the error is a malformed response body
func IsParseError(err error) bool {
	return isKind(err, KindParse)
}

// IsConflictError checks if the server rejected a duplicate add or remove
func IsConflictError(err error) bool {
	return isKind(err, KindConflict)
}
