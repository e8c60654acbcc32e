// Package session holds bearer tokens for logged-in browsers. The browser
// only ever sees an opaque session ID cookie; the token itself stays server
// side in one of the Store backends.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no session exists for the given ID
var ErrNotFound = errors.New("session not found")

// Session is the bearer token obtained from the token exchange plus its
// metadata. The user profile is deliberately not stored here: it is derived
// state, fetched fresh from the gateway whenever the token changes.
type Session struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresIn int64     `json:"expires_in"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists sessions keyed by session ID. Implementations must treat
// Clear of a missing session as a no-op.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Set(ctx context.Context, id string, s *Session) error
	Clear(ctx context.Context, id string) error
}
