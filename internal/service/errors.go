package service

import (
	"fmt"
	"net/http"
)

// Kind classifies why a request failed. Every kind maps to exactly one
// status code and public message in (Kind).response.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidJSON
	KindInvalidCount
	KindMethodNotAllowed
	KindStoreRead
	KindStoreWrite
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindInvalidJSON:
		return "invalid_json"
	case KindInvalidCount:
		return "invalid_count"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindStoreRead:
		return "store_read"
	case KindStoreWrite:
		return "store_write"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) response() (int, string) {
	switch k {
	case KindInvalidJSON:
		return http.StatusBadRequest, "Invalid JSON in request body"
	case KindInvalidCount:
		return http.StatusBadRequest, "Invalid count value"
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed, "Method not allowed"
	case KindStoreRead:
		return http.StatusInternalServerError, "Failed to retrieve counter"
	case KindStoreWrite:
		return http.StatusInternalServerError, "Failed to update counter"
	case KindInternal:
	}
	return http.StatusInternalServerError, "Internal server error"
}

// Error is what GetCounter and UpdateCounter fail with.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
