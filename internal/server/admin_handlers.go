package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/knu-cse/dept-front/internal/authstate"
	"github.com/knu-cse/dept-front/internal/cookie"
	"github.com/knu-cse/dept-front/internal/crypto"
	"github.com/knu-cse/dept-front/internal/gateway"
	jsonwriter "github.com/knu-cse/dept-front/internal/json"
	"github.com/knu-cse/dept-front/internal/log"
	"github.com/knu-cse/dept-front/internal/metrics"
	"github.com/knu-cse/dept-front/internal/session"
)

var studentNumberRe = regexp.MustCompile(`^\d{7,10}$`)

// AdminHandlers owns the admin pages. Every handler here runs behind the
// guard, so the identity in the context is always finance-or-above.
type AdminHandlers struct {
	gateway  *gateway.Client
	sessions session.Store
	csrf     crypto.CSRFProtection
	metrics  *metrics.Metrics
}

// NewAdminHandlers creates the admin handler set
func NewAdminHandlers(gw *gateway.Client, sessions session.Store, encryptionKey string, m *metrics.Metrics) *AdminHandlers {
	return &AdminHandlers{
		gateway:  gw,
		sessions: sessions,
		csrf:     crypto.NewCSRFProtection([]byte(encryptionKey), 15*time.Minute),
		metrics:  m,
	}
}

// DashboardHandler shows the admin dashboard with aggregate counters
func (h *AdminHandlers) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	state := authstate.FromContext(r.Context())
	token := state.Token

	// One counter per upstream collection, fetched concurrently. Only the
	// totals are needed, so each query asks for a single element.
	var stats AdminStatistics
	probe := gateway.PageQuery{Size: 1}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		page, err := h.gateway.ListStudents(ctx, token, probe)
		if err != nil {
			return err
		}
		stats.TotalStudents = page.TotalElements
		return nil
	})
	g.Go(func() error {
		page, err := h.gateway.ListDues(ctx, token, probe)
		if err != nil {
			return err
		}
		stats.PaidDues = page.TotalElements
		return nil
	})
	g.Go(func() error {
		page, err := h.gateway.ListQRLogs(ctx, token, probe)
		if err != nil {
			return err
		}
		stats.QRScans = page.TotalElements
		return nil
	})
	g.Go(func() error {
		page, err := h.gateway.ListProviders(ctx, token, probe)
		if err != nil {
			return err
		}
		stats.Providers = page.TotalElements
		return nil
	})

	data := DashboardPageData{
		UserName:    state.User.Name,
		Role:        string(state.User.Role),
		Message:     r.URL.Query().Get("message"),
		MessageType: r.URL.Query().Get("type"),
	}

	if err := g.Wait(); err != nil {
		if h.expireOnUnauthorized(w, r, err) {
			return
		}
		log.LogErrorWithFields("admin", "Failed to load dashboard statistics", map[string]any{
			"error": err.Error(),
		})
		data.Message = "Failed to load statistics"
		data.MessageType = "error"
	}
	data.Stats = stats

	renderPage(w, dashboardTemplate, "dashboard", data)
}

// expireOnUnauthorized handles the gateway 401 contract: the stored token
// is dead, so the session is cleared and the browser starts over at login
func (h *AdminHandlers) expireOnUnauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, gateway.ErrUnauthorized) {
		return false
	}

	if sessionID, cerr := cookie.GetSession(r); cerr == nil && sessionID != "" {
		if cerr := h.sessions.Clear(r.Context(), sessionID); cerr != nil {
			log.LogWarnWithFields("admin", "Failed to clear expired session", map[string]any{
				"error": cerr.Error(),
			})
		}
		h.metrics.SessionClosed()
	}
	cookie.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusFound)
	return true
}

// checkedForm validates the method, form encoding and CSRF token of an
// admin action. Returns false after writing the response on failure.
func (h *AdminHandlers) checkedForm(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return false
	}
	if err := r.ParseForm(); err != nil {
		jsonwriter.WriteBadRequest(w, "Bad request")
		return false
	}
	if !h.csrf.Validate(r.FormValue("csrf_token")) {
		jsonwriter.WriteForbidden(w, "Invalid CSRF token")
		return false
	}
	return true
}

// csrfToken generates a token for a page render, or fails the request
func (h *AdminHandlers) csrfToken(w http.ResponseWriter) (string, bool) {
	token, err := h.csrf.Generate()
	if err != nil {
		log.LogErrorWithFields("admin", "Failed to generate CSRF token", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "Internal server error")
		return "", false
	}
	return token, true
}

// redirectWithMessage sends the browser back to a page with a banner
func redirectWithMessage(w http.ResponseWriter, r *http.Request, path, message, messageType string) {
	http.Redirect(w, r, fmt.Sprintf("%s?message=%s&type=%s",
		path, url.QueryEscape(message), messageType), http.StatusSeeOther)
}

// redirectWithFieldError sends the browser back with an inline form error
func redirectWithFieldError(w http.ResponseWriter, r *http.Request, path, fieldError string) {
	http.Redirect(w, r, fmt.Sprintf("%s?fieldError=%s", path, url.QueryEscape(fieldError)), http.StatusSeeOther)
}

// actionError routes a failed gateway call to the right response shape:
// dead token restarts login, conflicts become inline form errors, and
// anything else becomes a banner with the upstream message when available
func (h *AdminHandlers) actionError(w http.ResponseWriter, r *http.Request, path string, err error) {
	if h.expireOnUnauthorized(w, r, err) {
		return
	}
	if errors.Is(err, gateway.ErrConflict) {
		msg := "Already exists"
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) && apiErr.Msg != "" {
			msg = apiErr.Msg
		}
		redirectWithFieldError(w, r, path, msg)
		return
	}

	log.LogErrorWithFields("admin", "Admin action failed", map[string]any{
		"path":  path,
		"error": err.Error(),
	})
	msg := "Request failed. Please try again."
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.Msg != "" {
		msg = apiErr.Msg
	}
	redirectWithMessage(w, r, path, msg, "error")
}

// pageQueryFromRequest reads the pagination params off a list page URL
// and passes them through unchanged
func pageQueryFromRequest(r *http.Request) gateway.PageQuery {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	return gateway.PageQuery{
		Page:          page,
		Size:          size,
		SortBy:        q.Get("sortBy"),
		Direction:     q.Get("direction"),
		SearchColumn:  q.Get("searchColumn"),
		SearchKeyword: q.Get("searchKeyword"),
	}
}

// parseIDs reads a comma separated ids form value
func parseIDs(value string) ([]int64, error) {
	if value == "" {
		return nil, errors.New("no ids given")
	}
	parts := strings.Split(value, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
