package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAPI is the sentinel error wrapped by [APIError].
	ErrAPI = errors.New("api request failed")
	// ErrAuthFailure is additionally matched by an [APIError] when the
	// server responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
	// ErrItemNotFound is the sentinel error wrapped by [ItemNotFoundError].
	ErrItemNotFound = errors.New("item not found")
	// ErrMalformedResponse indicates a decoded payload lacks a field the
	// API guarantees, or could not be decoded at all.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrInvalidInput is returned before any network call when an argument
	// violates a precondition.
	ErrInvalidInput = errors.New("invalid input")
	// ErrClientClosed is returned by operations issued after [Client.Close].
	ErrClientClosed = errors.New("client closed")
)

// errNoProperties signals an item without properties. It never leaves
// the package: GetProperties turns it into an empty result.
var errNoProperties = errors.New("no properties could be found")

// APIError is returned for any non-2xx response that isn't otherwise
// classified.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API '%s %s' failed with %d - '%s'", e.Method, e.Path, e.StatusCode, e.Message)
}

// Is reports ErrAPI for every APIError, and ErrAuthFailure
// for 401 and 403 responses.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAPI:
		return true
	case ErrAuthFailure:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}

	return false
}

// ItemNotFoundError is returned when the requested repo or path
// does not exist.
type ItemNotFoundError struct {
	Path string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", ErrItemNotFound, e.Path)
}

func (e *ItemNotFoundError) Unwrap() error {
	return ErrItemNotFound
}

// malformed wraps ErrMalformedResponse with detail.
func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
