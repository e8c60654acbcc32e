package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knu-cse/dept-front/internal/cookie"
	"github.com/knu-cse/dept-front/internal/gateway"
	"github.com/knu-cse/dept-front/internal/roles"
	"github.com/knu-cse/dept-front/internal/session"
)

func newUserHandlers(t *testing.T, upstream http.HandlerFunc) (*UserHandlers, *session.MemoryStore) {
	t.Helper()
	sessions := session.NewMemoryStore(time.Hour)
	return NewUserHandlers(newUpstream(t, upstream), sessions, testMetrics()), sessions
}

func TestUserDashboardHandler(t *testing.T) {
	t.Run("shows profile and dues", func(t *testing.T) {
		h, _ := newUserHandlers(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/dues/me", r.URL.Path)
			require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"status": "OK", "data": gateway.Dues{
				StudentName:        "Kim",
				StudentNumber:      "2020123456",
				Amount:             30000,
				RemainingSemesters: 3,
			}})
		})

		rec := httptest.NewRecorder()
		h.DashboardHandler(rec, authedRequest("GET", "/dashboard", roles.Student, "tok"))

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Kim")
		assert.Contains(t, body, "30000")
		assert.NotContains(t, body, "/admin", "students do not see the admin link")
	})

	t.Run("no dues record renders the unpaid state", func(t *testing.T) {
		h, _ := newUserHandlers(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"status": "ERROR", "msg": "not found"})
		})

		rec := httptest.NewRecorder()
		h.DashboardHandler(rec, authedRequest("GET", "/dashboard", roles.Student, "tok"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "Failed to load")
	})

	t.Run("finance members get the admin link", func(t *testing.T) {
		h, _ := newUserHandlers(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"status": "OK", "data": nil})
		})

		rec := httptest.NewRecorder()
		h.DashboardHandler(rec, authedRequest("GET", "/dashboard", roles.Finance, "tok"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "/admin")
	})

	t.Run("expired token mid-request clears the session and restarts login", func(t *testing.T) {
		h, sessions := newUserHandlers(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"status": "ERROR", "msg": "expired"})
		})

		ctx := context.Background()
		require.NoError(t, sessions.Set(ctx, "sid-1", &session.Session{Token: "tok"}))

		r := authedRequest("GET", "/dashboard", roles.Student, "tok")
		r.AddCookie(&http.Cookie{Name: cookie.SessionCookie, Value: "sid-1"})
		rec := httptest.NewRecorder()
		h.DashboardHandler(rec, r)

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))

		_, err := sessions.Get(ctx, "sid-1")
		assert.ErrorIs(t, err, session.ErrNotFound, "dead session must not linger")

		cleared := false
		for _, c := range rec.Result().Cookies() {
			if c.Name == cookie.SessionCookie && c.MaxAge < 0 {
				cleared = true
			}
		}
		assert.True(t, cleared, "session cookie should be expired")
	})
}
