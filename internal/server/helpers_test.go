package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/knu-cse/dept-front/internal/authstate"
	"github.com/knu-cse/dept-front/internal/config"
	"github.com/knu-cse/dept-front/internal/gateway"
	"github.com/knu-cse/dept-front/internal/metrics"
	"github.com/knu-cse/dept-front/internal/roles"
)

func newUpstream(t *testing.T, handler http.HandlerFunc) *gateway.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return gateway.New(config.GatewayConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{
			BaseURL: "https://dues.cse.example.ac.kr",
			Addr:    ":8080",
			Name:    "dept-front",
		},
		Gateway: config.GatewayConfig{
			BaseURL: "http://upstream.invalid",
			Timeout: 5 * time.Second,
		},
		Auth: config.AuthConfig{
			AuthorizeURL:     "https://idp.example.ac.kr/oauth2/authorize",
			TokenURL:         "https://idp.example.ac.kr/token",
			ClientID:         "dept-front",
			AdminCallbackURL: "https://dues.cse.example.ac.kr/admin",
			SessionTTL:       time.Hour,
			EncryptionKey:    "0123456789abcdef0123456789abcdef",
		},
	}
}

// authedRequest builds a request carrying an authenticated identity, as if
// the session middleware had run
func authedRequest(method, target string, role roles.Role, token string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	state := authstate.State{
		Status: authstate.StatusAuthenticated,
		User: &gateway.UserProfile{
			StudentID:     1,
			StudentNumber: "2020123456",
			Name:          "Kim",
			Major:         "CSE",
			Role:          role,
		},
		Token: token,
	}
	return r.WithContext(authstate.WithState(r.Context(), state))
}

// authedForm builds an authenticated POST carrying an urlencoded form
func authedForm(target string, role roles.Role, token string, form url.Values) *http.Request {
	r := authedRequest("POST", target, role, token)
	body := strings.NewReader(form.Encode())
	req := httptest.NewRequest("POST", target, body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req.WithContext(r.Context())
}

func testMetrics() *metrics.Metrics {
	return metrics.New()
}
