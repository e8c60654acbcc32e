package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/knu-cse/dept-front/internal/authstate"
	"github.com/knu-cse/dept-front/internal/config"
	"github.com/knu-cse/dept-front/internal/cookie"
	"github.com/knu-cse/dept-front/internal/gateway"
	"github.com/knu-cse/dept-front/internal/guard"
	"github.com/knu-cse/dept-front/internal/roles"
	"github.com/knu-cse/dept-front/internal/session"
)

func TestChainMiddleware(t *testing.T) {
	var order []string
	tag := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := ChainMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), tag("inner"), tag("outer"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestSessionMiddleware(t *testing.T) {
	upstream := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token-info", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "OK", "data": gateway.UserProfile{
			StudentNumber: "2020123456",
			Name:          "Kim",
			Role:          roles.Admin,
		}})
	})

	sessions := session.NewMemoryStore(time.Hour)
	require.NoError(t, sessions.Set(context.Background(), "sid-1", &session.Session{Token: "tok"}))
	mw := NewSessionMiddleware(authstate.NewResolver(sessions, upstream))

	t.Run("valid cookie resolves to an authenticated state", func(t *testing.T) {
		var got authstate.State
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = authstate.FromContext(r.Context())
		}))

		r := httptest.NewRequest("GET", "/dashboard", nil)
		r.AddCookie(&http.Cookie{Name: cookie.SessionCookie, Value: "sid-1"})
		h.ServeHTTP(httptest.NewRecorder(), r)

		require.True(t, got.IsAuthenticated())
		assert.Equal(t, "Kim", got.User.Name)
		assert.Equal(t, "tok", got.Token)
	})

	t.Run("no cookie resolves to anonymous", func(t *testing.T) {
		var got authstate.State
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = authstate.FromContext(r.Context())
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/dashboard", nil))
		assert.Equal(t, authstate.StatusAnonymous, got.Status)
	})
}

func TestGuardMiddleware(t *testing.T) {
	g := guard.New("https://dues.cse.example.ac.kr/admin")
	baseURL := "https://dues.cse.example.ac.kr"
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("anonymous browser is sent to login", func(t *testing.T) {
		h := NewGuardMiddleware(g, baseURL, guard.Params{})(next)

		r := httptest.NewRequest("GET", "/dashboard", nil)
		r = r.WithContext(authstate.WithState(r.Context(), authstate.Anonymous()))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Contains(t, rec.Header().Get("Location"), "/login?redirectUrl=")
	})

	t.Run("loading state renders nothing", func(t *testing.T) {
		h := NewGuardMiddleware(g, baseURL, guard.Params{})(next)

		r := httptest.NewRequest("GET", "/dashboard", nil)
		r = r.WithContext(authstate.WithState(r.Context(), authstate.State{Status: authstate.StatusLoading}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("authenticated browser passes through", func(t *testing.T) {
		h := NewGuardMiddleware(g, baseURL, guard.Params{AdminOnly: true})(next)

		r := authedRequest("GET", "/admin/students", roles.Finance, "tok")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("student on an admin page lands on the dashboard", func(t *testing.T) {
		h := NewGuardMiddleware(g, baseURL, guard.Params{AdminOnly: true})(next)

		r := authedRequest("GET", "/admin/students", roles.Student, "tok")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	})
}

func TestKioskAuthMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("scanner-pw"), bcrypt.MinCost)
	require.NoError(t, err)
	kiosk := &config.KioskConfig{
		Tokens:         []string{"kiosk-token-1"},
		Username:       "kiosk",
		HashedPassword: config.Secret(hash),
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := NewKioskAuthMiddleware(kiosk)(next)

	t.Run("logged in browser passes without kiosk credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, authedRequest("POST", "/qr-auth/scan", roles.Student, "tok"))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("valid bearer token passes", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/qr-auth/scan", nil)
		r.Header.Set("Authorization", "Bearer kiosk-token-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("valid basic credentials pass", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/qr-auth/scan", nil)
		r.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("kiosk:scanner-pw")))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("wrong password is rejected with a challenge", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/qr-auth/scan", nil)
		r.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("kiosk:wrong")))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("unknown bearer token is rejected", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/qr-auth/scan", nil)
		r.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing credentials are rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/qr-auth/scan", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestResponseWriterDelegator(t *testing.T) {
	rec := httptest.NewRecorder()
	w := wrapResponseWriter(rec)

	w.WriteHeader(http.StatusCreated)
	w.WriteHeader(http.StatusInternalServerError) // second call is ignored
	n, err := w.Write([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, w.Status())
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, w.BytesWritten())
	assert.Equal(t, http.StatusCreated, rec.Code)
}
