package server

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/knu-cse/dept-front/internal/authstate"
	"github.com/knu-cse/dept-front/internal/config"
	"github.com/knu-cse/dept-front/internal/cookie"
	"github.com/knu-cse/dept-front/internal/guard"
	jsonwriter "github.com/knu-cse/dept-front/internal/json"
	"github.com/knu-cse/dept-front/internal/log"
	"github.com/knu-cse/dept-front/internal/metrics"
)

// MiddlewareFunc is a function that wraps an http.Handler
type MiddlewareFunc func(http.Handler) http.Handler

// ChainMiddleware chains multiple middleware functions
func ChainMiddleware(h http.Handler, middlewares ...MiddlewareFunc) http.Handler {
	for _, mw := range middlewares {
		h = mw(h)
	}
	return h
}

// NewCORSMiddleware adds CORS headers to responses
func NewCORSMiddleware(allowedOrigins []string) MiddlewareFunc {
	allowedMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		allowedMap[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && allowedMap[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			} else if len(allowedOrigins) == 0 {
				// No allowed origins configured, allow all (development mode)
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Cache-Control")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriterDelegator wraps http.ResponseWriter to capture status and bytes written
// while properly delegating all optional interfaces through Unwrap
type responseWriterDelegator struct {
	http.ResponseWriter
	status      int
	written     int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriterDelegator {
	return &responseWriterDelegator{
		ResponseWriter: w,
		status:         http.StatusOK,
	}
}

func (r *responseWriterDelegator) Status() int {
	return r.status
}

func (r *responseWriterDelegator) BytesWritten() int {
	return r.written
}

func (r *responseWriterDelegator) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseWriterDelegator) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += n
	return n, err
}

// Unwrap returns the underlying ResponseWriter for interface detection
func (r *responseWriterDelegator) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Flush implements http.Flusher
func (r *responseWriterDelegator) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

var _ http.ResponseWriter = (*responseWriterDelegator)(nil)
var _ http.Flusher = (*responseWriterDelegator)(nil)

// NewLoggerMiddleware adds request/response logging with a request ID
func NewLoggerMiddleware(prefix string) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()
			w.Header().Set("X-Request-ID", requestID)

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			fields := map[string]any{
				"request_id":  requestID,
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      wrapped.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"bytes":       wrapped.BytesWritten(),
				"remote_addr": r.RemoteAddr,
			}
			if r.URL.RawQuery != "" {
				fields["query"] = r.URL.RawQuery
			}

			log.LogInfoWithFields(prefix, "request", fields)
		})
	}
}

// NewRecoverMiddleware recovers from panics
func NewRecoverMiddleware(prefix string) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Logf("<%s> Recovered from panic: %v", prefix, err)
					jsonwriter.WriteInternalServerError(w, "Internal Server Error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// NewMetricsMiddleware records request counts and latency
func NewMetricsMiddleware(m *metrics.Metrics) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r)
			m.ObserveRequest(r.URL.Path, wrapped.Status(), time.Since(start).Seconds())
		})
	}
}

// NewSessionMiddleware resolves the browser session into identity state,
// exactly once per request. Downstream handlers read it from the context.
func NewSessionMiddleware(resolver *authstate.Resolver) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := cookie.GetSession(r)
			if err != nil {
				sessionID = ""
			}

			state := resolver.Resolve(r.Context(), sessionID)
			next.ServeHTTP(w, r.WithContext(authstate.WithState(r.Context(), state)))
		})
	}
}

// NewGuardMiddleware enforces route requirements via the guard decision
func NewGuardMiddleware(g *guard.Guard, baseURL string, params guard.Params) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := authstate.FromContext(r.Context())
			decision := g.Decide(state, params, absoluteURL(baseURL, r))

			switch decision.Action {
			case guard.Redirect:
				http.Redirect(w, r, decision.URL, http.StatusFound)
			case guard.RenderNothing:
				w.WriteHeader(http.StatusNoContent)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// absoluteURL rebuilds the request URL as the browser saw it, using the
// configured public base URL for scheme and host
func absoluteURL(baseURL string, r *http.Request) *url.URL {
	u := *r.URL
	if base, err := url.Parse(baseURL); err == nil {
		u.Scheme = base.Scheme
		u.Host = base.Host
	}
	return &u
}

// NewKioskAuthMiddleware authenticates the QR kiosk. A logged-in browser
// session passes through; otherwise the kiosk must present one of the
// configured bearer tokens or its basic credentials.
func NewKioskAuthMiddleware(kiosk *config.KioskConfig) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authstate.FromContext(r.Context()).IsAuthenticated() {
				next.ServeHTTP(w, r)
				return
			}

			if kiosk == nil {
				jsonwriter.WriteUnauthorized(w, "Unauthorized")
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				jsonwriter.WriteUnauthorized(w, "Unauthorized")
				return
			}

			if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
				if slices.Contains(kiosk.Tokens, token) {
					next.ServeHTTP(w, r)
					return
				}
				log.LogDebugWithFields("kiosk_auth", "Bearer auth failed: invalid token", nil)
			}

			if encoded, ok := strings.CutPrefix(authHeader, "Basic "); ok {
				decoded, err := base64.StdEncoding.DecodeString(encoded)
				if err == nil {
					username, password, found := strings.Cut(string(decoded), ":")
					if found && username == kiosk.Username {
						if bcrypt.CompareHashAndPassword([]byte(kiosk.HashedPassword), []byte(password)) == nil {
							next.ServeHTTP(w, r)
							return
						}
					}
				}
				log.LogDebugWithFields("kiosk_auth", "Basic auth failed", nil)
			}

			w.Header().Set("WWW-Authenticate", `Basic realm="dept-front"`)
			jsonwriter.WriteUnauthorized(w, "Unauthorized")
		})
	}
}
