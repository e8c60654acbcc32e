package server

import (
	"errors"
	"net/http"

	"github.com/knu-cse/dept-front/internal/authstate"
	"github.com/knu-cse/dept-front/internal/cookie"
	"github.com/knu-cse/dept-front/internal/gateway"
	jsonwriter "github.com/knu-cse/dept-front/internal/json"
	"github.com/knu-cse/dept-front/internal/log"
	"github.com/knu-cse/dept-front/internal/metrics"
	"github.com/knu-cse/dept-front/internal/session"
)

// UserHandlers owns the pages any authenticated member can see
type UserHandlers struct {
	gateway  *gateway.Client
	sessions session.Store
	metrics  *metrics.Metrics
}

func NewUserHandlers(gw *gateway.Client, sessions session.Store, m *metrics.Metrics) *UserHandlers {
	return &UserHandlers{gateway: gw, sessions: sessions, metrics: m}
}

// UserDashboardData is the data for the member dashboard
type UserDashboardData struct {
	UserName      string
	StudentNumber string
	Major         string
	Role          string
	Dues          *gateway.Dues
	ShowAdminLink bool
	Message       string
	MessageType   string
}

// DashboardHandler shows the member's own profile and dues status. This is
// also where role-gated redirects land.
func (h *UserHandlers) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	state := authstate.FromContext(r.Context())

	data := UserDashboardData{
		UserName:      state.User.Name,
		StudentNumber: state.User.StudentNumber,
		Major:         state.User.Major,
		Role:          string(state.User.Role),
		ShowAdminLink: state.IsFinanceOrAbove(),
		Message:       r.URL.Query().Get("message"),
		MessageType:   r.URL.Query().Get("type"),
	}

	dues, err := h.gateway.MyDues(r.Context(), state.Token)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		if errors.Is(err, gateway.ErrUnauthorized) {
			// Session middleware already validated the token this request,
			// so this is a race with expiry. The session holds a dead token
			// now, so drop it before sending the browser back to login.
			if sessionID, cerr := cookie.GetSession(r); cerr == nil && sessionID != "" {
				if cerr := h.sessions.Clear(r.Context(), sessionID); cerr != nil {
					log.LogWarnWithFields("user", "Failed to clear expired session", map[string]any{
						"error": cerr.Error(),
					})
				}
				h.metrics.SessionClosed()
			}
			cookie.ClearSession(w)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		log.LogErrorWithFields("user", "Failed to load own dues", map[string]any{
			"error": err.Error(),
		})
		data.Message = "Failed to load dues status"
		data.MessageType = "error"
	}
	data.Dues = dues

	renderPage(w, myDuesTemplate, "my_dues", data)
}
