package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks input the client or backend rejected as malformed.
	ErrValidation = errors.New("validation error")
	// ErrAuth marks wrong credentials, an invalid or expired OTP, or a
	// missing admin session.
	ErrAuth = errors.New("authentication failed")
	// ErrConflict marks a duplicate vote.
	ErrConflict = errors.New("conflict")
	// ErrNotFound marks an unknown state, poll or party.
	ErrNotFound = errors.New("not found")
	// ErrNetwork marks transport failures and timeouts.
	ErrNetwork = errors.New("server unavailable")
	// ErrServer marks any other backend failure.
	ErrServer = errors.New("backend error")
)

// APIError is a failure reported by the backend.
type APIError struct {
	Kind      error
	Status    int
	Message   string
	RequestID string
}

// Error returns the backend's message as sent.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d %s)", e.Kind, e.Status, http.StatusText(e.Status))
	}
	return e.Kind.Error()
}

func (e *APIError) Unwrap() error { return e.Kind }

// kindForStatus maps an HTTP status to an error kind.
func kindForStatus(status int) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuth
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusRequestTimeout, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrNetwork
	default:
		return ErrServer
	}
}

// networkError wraps a transport failure so it matches both ErrNetwork and
// the underlying cause (for example context.DeadlineExceeded).
func networkError(err error) error {
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
