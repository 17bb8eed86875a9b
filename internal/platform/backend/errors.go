package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthentication means the backend rejected the supplied credentials.
	ErrAuthentication = errors.New("invalid credentials")
	// ErrAuthorizationDenied means the session is missing or lacks the role
	// the backend requires.
	ErrAuthorizationDenied = errors.New("not authorized")
	// ErrNetwork covers transport failures and unexpected non-2xx statuses.
	ErrNetwork = errors.New("backend request failed")
	// ErrMalformedResponse means a 2xx body could not be decoded.
	ErrMalformedResponse = errors.New("malformed backend response")
)

// APIError is a non-2xx backend response. It unwraps to one of the
// sentinels above.
type APIError struct {
	Status  int
	Message string
	Path    string

	kind error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.kind, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d", e.kind, e.Path, e.Status)
}

func (e *APIError) Unwrap() error { return e.kind }

// NewAPIError classifies a non-login backend response by status.
func NewAPIError(status int, path, message string) *APIError {
	return newAPIError(status, path, message, false)
}

func newAPIError(status int, path, message string, login bool) *APIError {
	kind := ErrNetwork
	switch {
	case login && (status == http.StatusUnauthorized || status == http.StatusBadRequest):
		kind = ErrAuthentication
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = ErrAuthorizationDenied
	}
	return &APIError{Status: status, Message: message, Path: path, kind: kind}
}

// UserMessage returns the text shown to the user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	switch {
	case errors.Is(err, ErrAuthentication):
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
		return "Invalid username or password."
	case errors.Is(err, ErrAuthorizationDenied):
		return "You are not allowed to access this resource. Please sign in again."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return "The server could not be reached. Please try again later."
	}
}
