package scoredto

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure independently of its specific code.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindLocked     Kind = "locked"
	KindConflict   Kind = "conflict"
	KindStore      Kind = "store_failure"
)

// Codes that are not arbiter reasons.
const (
	CodeEmptyUpdate  = "empty_update"
	CodeInvalidBody  = "invalid_body"
	CodeGameNotFound = "game_not_found"
	CodeGameExists   = "game_exists"
	CodeStoreFailure = "store_failure"
)

// DomainError is returned by the game service for every non-success outcome.
type DomainError struct {
	Kind  Kind
	Code  string
	Facet string
	Table string
	// Holder of a contended lock. Diagnostics only, never sent to clients.
	Holder string
	Err    error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Err)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return string(e.Kind)
}

func (e *DomainError) Unwrap() error { return e.Err }

// Status maps the kind to the HTTP status the boundary responds with.
func (e *DomainError) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindLocked:
		return http.StatusLocked
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// StoreFailure wraps a key-value backend error.
func StoreFailure(err error) *DomainError {
	return &DomainError{Kind: KindStore, Code: CodeStoreFailure, Err: err}
}

// ErrorBody is the JSON error envelope written by the HTTP layer.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// APIError is what a client sees for a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("scorepad api error: status=%d code=%s message=%s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("scorepad api error: status=%d message=%s", e.Status, e.Message)
}
