package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knu-cse/dept-front/internal/cookie"
	"github.com/knu-cse/dept-front/internal/gateway"
	"github.com/knu-cse/dept-front/internal/roles"
	"github.com/knu-cse/dept-front/internal/session"
)

func newAdminHandlers(t *testing.T, upstream http.HandlerFunc) (*AdminHandlers, *session.MemoryStore) {
	t.Helper()
	gw := newUpstream(t, upstream)
	sessions := session.NewMemoryStore(time.Hour)
	return NewAdminHandlers(gw, sessions, string(testConfig().Auth.EncryptionKey), testMetrics()), sessions
}

func writePage(t *testing.T, w http.ResponseWriter, content any, total int64) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]any{
		"status": "OK",
		"data": map[string]any{
			"content":       content,
			"totalElements": total,
			"totalPages":    1,
			"first":         true,
			"last":          true,
		},
	})
	require.NoError(t, err)
}

func adminForm(h *AdminHandlers, t *testing.T, target string, form url.Values) *http.Request {
	t.Helper()
	token, err := h.csrf.Generate()
	require.NoError(t, err)
	form.Set("csrf_token", token)
	return authedForm(target, roles.Admin, "tok", form)
}

func TestStudentsPageHandler(t *testing.T) {
	t.Run("renders the roster", func(t *testing.T) {
		h, _ := newAdminHandlers(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/students", r.URL.Path)
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			writePage(t, w, []gateway.Student{
				{StudentID: 1, StudentNumber: "2020123456", Name: "Kim", Major: "CSE", Role: roles.Student},
				{StudentID: 2, StudentNumber: "2021987654", Name: "Lee", Major: "CSE", Role: roles.Executive},
			}, 42)
		})

		rec := httptest.NewRecorder()
		h.StudentsPageHandler(rec, authedRequest("GET", "/admin/students", roles.Admin, "tok"))

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Kim")
		assert.Contains(t, body, "Lee")
		assert.Contains(t, body, "42")
		assert.Contains(t, body, "csrf_token")
	})

	t.Run("dead token clears the session and restarts login", func(t *testing.T) {
		h, sessions := newAdminHandlers(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"status": "ERROR", "msg": "expired"})
		})

		ctx := context.Background()
		require.NoError(t, sessions.Set(ctx, "sid-1", &session.Session{Token: "tok"}))

		r := authedRequest("GET", "/admin/students", roles.Admin, "tok")
		r.AddCookie(&http.Cookie{Name: cookie.SessionCookie, Value: "sid-1"})
		rec := httptest.NewRecorder()
		h.StudentsPageHandler(rec, r)

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))

		_, err := sessions.Get(ctx, "sid-1")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("upstream failure still renders with a banner", func(t *testing.T) {
		h, _ := newAdminHandlers(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		rec := httptest.NewRecorder()
		h.StudentsPageHandler(rec, authedRequest("GET", "/admin/students", roles.Admin, "tok"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Failed to load students")
	})
}

func TestStudentCreateHandler(t *testing.T) {
	t.Run("rejects a bad student number before calling upstream", func(t *testing.T) {
		h, _ := newAdminHandlers(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("upstream must not be called for invalid input")
		})

		form := url.Values{"studentNumber": {"12"}, "name": {"Kim"}}
		rec := httptest.NewRecorder()
		h.StudentCreateHandler(rec, adminForm(h, t, "/admin/students/create", form))

		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Contains(t, rec.Header().Get("Location"), "fieldError=")
	})

	t.Run("rejects a missing CSRF token", func(t *testing.T) {
		h, _ := newAdminHandlers(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("upstream must not be called without a CSRF token")
		})

		form := url.Values{"studentNumber": {"2020123456"}, "name": {"Kim"}}
		rec := httptest.NewRecorder()
		h.StudentCreateHandler(rec, authedForm("/admin/students/create", roles.Admin, "tok", form))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("creates and redirects with a success banner", func(t *testing.T) {
		h, _ := newAdminHandlers(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "POST", r.Method)
			require.Equal(t, "/students", r.URL.Path)

			var s gateway.Student
			require.NoError(t, json.NewDecoder(r.Body).Decode(&s))
			assert.Equal(t, "2020123456", s.StudentNumber)
			assert.Equal(t, roles.Student, s.Role)

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"status": "OK", "data": s})
		})

		form := url.Values{"studentNumber": {"2020123456"}, "name": {"Kim"}, "major": {"CSE"}}
		rec := httptest.NewRecorder()
		h.StudentCreateHandler(rec, adminForm(h, t, "/admin/students/create", form))

		require.Equal(t, http.StatusSeeOther, rec.Code)
		loc := rec.Header().Get("Location")
		assert.Contains(t, loc, "/admin/students?message=")
		assert.Contains(t, loc, "type=success")
	})

	t.Run("duplicate becomes an inline form error", func(t *testing.T) {
		h, _ := newAdminHandlers(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]any{"status": "ERROR", "msg": "Student already registered"})
		})

		form := url.Values{"studentNumber": {"2020123456"}, "name": {"Kim"}}
		rec := httptest.NewRecorder()
		h.StudentCreateHandler(rec, adminForm(h, t, "/admin/students/create", form))

		require.Equal(t, http.StatusSeeOther, rec.Code)
		loc := rec.Header().Get("Location")
		assert.Contains(t, loc, "fieldError=")
		assert.Contains(t, loc, url.QueryEscape("Student already registered"))
	})
}

func TestStudentDeleteHandler(t *testing.T) {
	t.Run("deletes the selected ids", func(t *testing.T) {
		h, _ := newAdminHandlers(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "DELETE", r.Method)
			require.Equal(t, "/students", r.URL.Path)
			assert.Equal(t, "1,2,7", r.URL.Query().Get("ids"))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"status": "OK"})
		})

		form := url.Values{"ids": {"1,2,7"}}
		rec := httptest.NewRecorder()
		h.StudentDeleteHandler(rec, adminForm(h, t, "/admin/students/delete", form))

		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Contains(t, rec.Header().Get("Location"), "type=success")
	})

	t.Run("rejects malformed ids", func(t *testing.T) {
		h, _ := newAdminHandlers(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("upstream must not be called for malformed ids")
		})

		form := url.Values{"ids": {"1,banana"}}
		rec := httptest.NewRecorder()
		h.StudentDeleteHandler(rec, adminForm(h, t, "/admin/students/delete", form))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAdminDashboardHandler(t *testing.T) {
	h, _ := newAdminHandlers(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("size"))
		switch r.URL.Path {
		case "/students":
			writePage(t, w, []gateway.Student{}, 1234)
		case "/dues":
			writePage(t, w, []gateway.Dues{}, 567)
		case "/qr-auth-logs":
			writePage(t, w, []gateway.QrAuthLog{}, 89)
		case "/providers":
			writePage(t, w, []gateway.Provider{}, 21)
		default:
			t.Errorf("unexpected upstream call: %s", r.URL.Path)
		}
	})

	rec := httptest.NewRecorder()
	h.DashboardHandler(rec, authedRequest("GET", "/admin", roles.Admin, "tok"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "1234")
	assert.Contains(t, body, "567")
	assert.Contains(t, body, "89")
	assert.Contains(t, body, "21")
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs("1, 2,3")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	_, err = parseIDs("")
	assert.Error(t, err)

	_, err = parseIDs("1,x")
	assert.Error(t, err)
}

func TestPageQueryFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/admin/students?page=2&size=25&searchColumn=name&searchKeyword=kim", nil)
	q := pageQueryFromRequest(r)
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, 25, q.Size)
	assert.Equal(t, "name", q.SearchColumn)
	assert.Equal(t, "kim", q.SearchKeyword)
}
