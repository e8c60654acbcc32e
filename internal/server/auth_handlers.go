package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/knu-cse/dept-front/internal/authstate"
	"github.com/knu-cse/dept-front/internal/config"
	"github.com/knu-cse/dept-front/internal/cookie"
	"github.com/knu-cse/dept-front/internal/crypto"
	"github.com/knu-cse/dept-front/internal/gateway"
	"github.com/knu-cse/dept-front/internal/idp"
	jsonwriter "github.com/knu-cse/dept-front/internal/json"
	"github.com/knu-cse/dept-front/internal/log"
	"github.com/knu-cse/dept-front/internal/metrics"
	"github.com/knu-cse/dept-front/internal/roles"
	"github.com/knu-cse/dept-front/internal/session"
	"github.com/knu-cse/dept-front/internal/urlutil"
)

// callbackTimeout bounds the whole code-for-token exchange
const callbackTimeout = 30 * time.Second

// AuthHandlers owns login, logout and the OAuth callback
type AuthHandlers struct {
	gateway  *gateway.Client
	sessions session.Store
	provider *idp.Provider
	config   config.Config
	metrics  *metrics.Metrics
}

// NewAuthHandlers creates the auth handler set
func NewAuthHandlers(gw *gateway.Client, sessions session.Store, provider *idp.Provider, cfg config.Config, m *metrics.Metrics) *AuthHandlers {
	return &AuthHandlers{
		gateway:  gw,
		sessions: sessions,
		provider: provider,
		config:   cfg,
		metrics:  m,
	}
}

// LoginHandler renders the login page. An already-authenticated browser is
// sent straight to its destination.
func (h *AuthHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	target := r.URL.Query().Get("redirectUrl")
	if !h.safeRedirect(target) {
		target = urlutil.MustJoinPath(h.config.Server.BaseURL, "dashboard")
	}

	if authstate.FromContext(r.Context()).IsAuthenticated() {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	authorizeURL, err := h.provider.AuthorizeURL(target)
	if err != nil {
		log.LogErrorWithFields("auth", "Failed to build authorize URL", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "Internal server error")
		return
	}

	data := LoginPageData{
		AuthorizeURL: authorizeURL,
		Message:      r.URL.Query().Get("message"),
		MessageType:  r.URL.Query().Get("type"),
	}
	renderPage(w, loginPageTemplate, "login", data)
}

// safeRedirect only allows same-site targets so the login page cannot be
// used as an open redirector
func (h *AuthHandlers) safeRedirect(target string) bool {
	if target == "" {
		return false
	}
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") {
		return true
	}
	return strings.HasPrefix(target, h.config.Server.BaseURL)
}

// LogoutHandler clears the server-side session and the browser cookie
func (h *AuthHandlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	if sessionID, err := cookie.GetSession(r); err == nil && sessionID != "" {
		if err := h.sessions.Clear(r.Context(), sessionID); err != nil {
			log.LogWarnWithFields("auth", "Failed to clear session on logout", map[string]any{
				"error": err.Error(),
			})
		}
		h.metrics.SessionClosed()
	}

	cookie.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// HandleCallback finishes the OAuth flow: check the state parameter,
// exchange the code, fetch the profile, validate the role, and only then
// persist the session. A token that fails validation is never stored.
func (h *AuthHandlers) HandleCallback(w http.ResponseWriter, r *http.Request, code string) {
	ctx, cancel := context.WithTimeout(r.Context(), callbackTimeout)
	defer cancel()

	// The state must verify before anything else happens. Without it the
	// code could have been planted by a login CSRF, so it is never exchanged.
	returnTo, err := h.provider.VerifyState(r.URL.Query().Get("state"))
	if err != nil {
		log.LogWarnWithFields("auth", "Rejected callback with bad state", map[string]any{
			"error": err.Error(),
		})
		h.callbackError(w, "Login failed. Please try again.")
		return
	}

	token, err := h.gateway.ExchangeToken(ctx, code, h.config.Auth.AdminCallbackURL)
	if err != nil || token == nil || token.AccessToken == "" {
		if err != nil {
			log.LogErrorWithFields("auth", "Token exchange failed", map[string]any{
				"error": err.Error(),
			})
		}
		h.callbackError(w, "Login failed. Please try again.")
		return
	}

	profile, err := h.gateway.TokenInfo(ctx, token.AccessToken)
	if err != nil || profile == nil {
		if err != nil {
			log.LogErrorWithFields("auth", "Profile fetch failed after exchange", map[string]any{
				"error": err.Error(),
			})
		}
		h.callbackError(w, "Login failed. Please try again.")
		return
	}

	if !roles.Known(profile.Role) {
		log.LogWarnWithFields("auth", "Login rejected: unrecognized role", map[string]any{
			"student_number": profile.StudentNumber,
			"role":           string(profile.Role),
		})
		h.callbackError(w, "Your account does not have access.")
		return
	}

	sessionID, err := crypto.GenerateSecureToken()
	if err != nil {
		log.LogErrorWithFields("auth", "Failed to generate session ID", map[string]any{
			"error": err.Error(),
		})
		h.callbackError(w, "Login failed. Please try again.")
		return
	}

	if err := h.sessions.Set(ctx, sessionID, &session.Session{
		Token:     token.AccessToken,
		TokenType: token.TokenType,
		ExpiresIn: token.ExpiresIn,
		CreatedAt: time.Now(),
	}); err != nil {
		log.LogErrorWithFields("auth", "Failed to persist session", map[string]any{
			"error": err.Error(),
		})
		h.callbackError(w, "Login failed. Please try again.")
		return
	}

	cookie.SetSession(w, sessionID, h.config.Auth.SessionTTL)
	h.metrics.SessionOpened()

	log.LogInfoWithFields("auth", "Login completed", map[string]any{
		"student_number": profile.StudentNumber,
		"role":           string(profile.Role),
	})

	// Send the browser back to where login started, with a full redirect
	// so the page loads with the fresh session. The guard still decides
	// what the role may actually see there.
	target := "/dashboard"
	if roles.IsFinanceOrAbove(profile.Role) {
		target = "/admin"
	}
	if h.safeRedirect(returnTo) {
		target = returnTo
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *AuthHandlers) callbackError(w http.ResponseWriter, message string) {
	renderPageStatus(w, http.StatusUnauthorized, callbackErrorTemplate, "callback_error", CallbackErrorData{Message: message})
}
