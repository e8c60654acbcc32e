// Package guard decides what a page request gets to see. Decide is pure:
// handlers and middleware feed it the resolved identity state and the
// request URL, and act on the returned decision.
package guard

import (
	"net/url"
	"strings"

	"github.com/knu-cse/dept-front/internal/authstate"
	"github.com/knu-cse/dept-front/internal/roles"
)

// Params declares what a route requires. The zero value requires
// authentication and nothing else.
type Params struct {
	// Public allows anonymous access
	Public bool
	// RequiredRole gates the route by role rank
	RequiredRole roles.Role
	// AdminOnly restricts the route to finance-or-above roles
	AdminOnly bool
}

// Action is what the caller should do with the request
type Action int

const (
	// Render serves the page normally
	Render Action = iota
	// RenderNothing serves an empty shell, used to break redirect loops
	// and while identity is still resolving
	RenderNothing
	// Redirect sends the browser elsewhere
	Redirect
)

// Decision is the outcome of a guard check
type Decision struct {
	Action Action
	// URL is the redirect target when Action is Redirect
	URL string
	// Replace asks the client to replace the history entry instead of
	// pushing a new one
	Replace bool
}

// Guard evaluates route requirements against identity state
type Guard struct {
	// adminCallbackURL is the registered OAuth return address. Requests to
	// admin pages that need a login restart from it, because the identity
	// service only redirects back to registered URLs.
	adminCallbackURL string
}

func New(adminCallbackURL string) *Guard {
	return &Guard{adminCallbackURL: adminCallbackURL}
}

// Decide runs the checks in a fixed order: resolution state first, then
// authentication, then role. The first failing check wins.
func (g *Guard) Decide(state authstate.State, params Params, requestURL *url.URL) Decision {
	if state.Status == authstate.StatusLoading || state.Status == authstate.StatusUninitialized {
		return Decision{Action: RenderNothing}
	}

	if !params.Public && !state.IsAuthenticated() {
		// Already on the login page, or already carrying a redirect target.
		// Redirecting again would loop.
		if requestURL.Path == "/login" || strings.Contains(requestURL.String(), "redirectUrl=") {
			return Decision{Action: RenderNothing}
		}

		target := requestURL.String()
		if strings.HasPrefix(requestURL.Path, "/admin") {
			target = g.adminCallbackURL
		}
		return Decision{
			Action:  Redirect,
			URL:     "/login?redirectUrl=" + url.QueryEscape(target),
			Replace: true,
		}
	}

	if params.AdminOnly && !state.IsFinanceOrAbove() {
		return Decision{Action: Redirect, URL: "/dashboard", Replace: true}
	}

	if params.RequiredRole != "" && !state.HasRole(params.RequiredRole) {
		return Decision{Action: Redirect, URL: "/dashboard", Replace: true}
	}

	return Decision{Action: Render}
}
