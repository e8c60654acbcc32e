package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized means the bearer token is missing, invalid or expired
	ErrUnauthorized = errors.New("gateway: unauthorized")
	// ErrNotFound means the requested entity does not exist upstream
	ErrNotFound = errors.New("gateway: not found")
	// ErrConflict means a create or update violated a uniqueness constraint
	ErrConflict = errors.New("gateway: conflict")
)

// APIError is a non-2xx upstream response. It matches the sentinel errors
// through errors.Is so callers can branch on the common cases while still
// having the upstream message for display.
type APIError struct {
	StatusCode int
	Status     string
	Msg        string
}

func (e *APIError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("gateway: %d %s", e.StatusCode, e.Msg)
	}
	return fmt.Sprintf("gateway: unexpected status %d", e.StatusCode)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	}
	return false
}
