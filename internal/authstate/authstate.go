// Package authstate resolves a browser session into the identity state the
// rest of the server renders against. The state is computed once per request
// and stashed in the request context.
package authstate

import (
	"context"
	"errors"

	"github.com/knu-cse/dept-front/internal/gateway"
	"github.com/knu-cse/dept-front/internal/log"
	"github.com/knu-cse/dept-front/internal/roles"
	"github.com/knu-cse/dept-front/internal/session"
)

// Status is the lifecycle of a request's identity
type Status string

const (
	// StatusUninitialized means no resolution has run yet
	StatusUninitialized Status = "uninitialized"
	// StatusLoading means resolution is in flight; pages render a pending shell
	StatusLoading Status = "loading"
	// StatusAuthenticated means a valid token resolved to a user profile
	StatusAuthenticated Status = "authenticated"
	// StatusAnonymous means there is no usable session
	StatusAnonymous Status = "anonymous"
)

// State is the resolved identity for one request
type State struct {
	Status Status
	User   *gateway.UserProfile
	// Token is the upstream bearer token, available to handlers that call
	// the gateway on the user's behalf
	Token string
}

func (s State) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

func (s State) IsAdmin() bool {
	return s.User != nil && roles.IsAdmin(s.User.Role)
}

func (s State) IsFinanceOrAbove() bool {
	return s.User != nil && roles.IsFinanceOrAbove(s.User.Role)
}

// HasRole reports whether the user's role ranks at or above required
func (s State) HasRole(required roles.Role) bool {
	return s.User != nil && roles.HasRequiredRole(s.User.Role, required)
}

// Anonymous is the state for requests with no usable session
func Anonymous() State {
	return State{Status: StatusAnonymous}
}

// ProfileFetcher is the slice of the gateway client the resolver needs
type ProfileFetcher interface {
	TokenInfo(ctx context.Context, token string) (*gateway.UserProfile, error)
}

// Resolver turns session IDs into identity state
type Resolver struct {
	sessions session.Store
	gateway  ProfileFetcher
}

func NewResolver(sessions session.Store, fetcher ProfileFetcher) *Resolver {
	return &Resolver{sessions: sessions, gateway: fetcher}
}

// Resolve looks up the session and validates its token against the gateway.
// A session whose token no longer resolves to a profile is cleared so the
// next request skips the upstream call entirely.
func (r *Resolver) Resolve(ctx context.Context, sessionID string) State {
	if sessionID == "" {
		return Anonymous()
	}

	sess, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			log.LogWarnWithFields("authstate", "Session lookup failed", map[string]any{
				"error": err.Error(),
			})
		}
		return Anonymous()
	}

	profile, err := r.gateway.TokenInfo(ctx, sess.Token)
	if err != nil || profile == nil {
		if err != nil && !errors.Is(err, gateway.ErrUnauthorized) {
			log.LogWarnWithFields("authstate", "Profile fetch failed", map[string]any{
				"error": err.Error(),
			})
		}
		r.clear(ctx, sessionID)
		return Anonymous()
	}

	return State{
		Status: StatusAuthenticated,
		User:   profile,
		Token:  sess.Token,
	}
}

func (r *Resolver) clear(ctx context.Context, sessionID string) {
	if err := r.sessions.Clear(ctx, sessionID); err != nil {
		log.LogWarnWithFields("authstate", "Failed to clear stale session", map[string]any{
			"error": err.Error(),
		})
	}
}

type contextKey struct{}

// WithState stashes the resolved state in the request context
func WithState(ctx context.Context, state State) context.Context {
	return context.WithValue(ctx, contextKey{}, state)
}

// FromContext returns the resolved state, or an uninitialized state when
// the resolving middleware did not run
func FromContext(ctx context.Context) State {
	if state, ok := ctx.Value(contextKey{}).(State); ok {
		return state
	}
	return State{Status: StatusUninitialized}
}
