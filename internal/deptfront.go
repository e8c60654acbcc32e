// Package internal wires the dept-front application together
package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/knu-cse/dept-front/internal/authstate"
	"github.com/knu-cse/dept-front/internal/config"
	"github.com/knu-cse/dept-front/internal/gateway"
	"github.com/knu-cse/dept-front/internal/guard"
	"github.com/knu-cse/dept-front/internal/idp"
	"github.com/knu-cse/dept-front/internal/log"
	"github.com/knu-cse/dept-front/internal/metrics"
	"github.com/knu-cse/dept-front/internal/server"
	"github.com/knu-cse/dept-front/internal/session"
)

// DeptFront is the complete application
type DeptFront struct {
	config     config.Config
	httpServer *server.HTTPServer
	sessions   session.Store
	cleanup    *session.CleanupManager
}

// NewDeptFront builds the application with all dependencies
func NewDeptFront(ctx context.Context, cfg config.Config) (*DeptFront, error) {
	log.LogInfoWithFields("deptfront", "Building application", map[string]any{
		"baseURL": cfg.Server.BaseURL,
		"gateway": cfg.Gateway.BaseURL,
		"storage": string(cfg.Storage.Kind),
	})

	sessions, err := setupSessions(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup session store: %w", err)
	}

	mux := buildHTTPHandler(cfg, sessions)

	var cleanup *session.CleanupManager
	if sweeper, ok := sessions.(session.Sweeper); ok && cfg.Auth.SessionTTL > 0 {
		cleanup = session.NewCleanupManager(sweeper, time.Hour)
	}

	return &DeptFront{
		config:     cfg,
		httpServer: server.NewHTTPServer(mux, cfg.Server.Addr),
		sessions:   sessions,
		cleanup:    cleanup,
	}, nil
}

// setupSessions picks the session backend from config
func setupSessions(ctx context.Context, cfg config.Config) (session.Store, error) {
	switch cfg.Storage.Kind {
	case config.StorageKindFirestore:
		return session.NewFirestoreStore(
			ctx,
			cfg.Storage.GCPProject,
			cfg.Storage.Database,
			cfg.Storage.Collection,
			[]byte(cfg.Auth.EncryptionKey),
			cfg.Auth.SessionTTL,
		)
	default:
		log.LogWarnWithFields("deptfront", "Using in-memory session store, logins will not survive restarts", nil)
		return session.NewMemoryStore(cfg.Auth.SessionTTL), nil
	}
}

// buildHTTPHandler assembles all routes and their middleware chains
func buildHTTPHandler(cfg config.Config, sessions session.Store) http.Handler {
	gw := gateway.New(cfg.Gateway)
	provider := idp.New(cfg.Auth)
	resolver := authstate.NewResolver(sessions, gw)
	routeGuard := guard.New(cfg.Auth.AdminCallbackURL)
	m := metrics.New()

	authHandlers := server.NewAuthHandlers(gw, sessions, provider, cfg, m)
	adminHandlers := server.NewAdminHandlers(gw, sessions, string(cfg.Auth.EncryptionKey), m)
	userHandlers := server.NewUserHandlers(gw, sessions, m)
	qrHandlers := server.NewQRHandlers(gw)
	infoHandlers := server.NewInfoHandlers(gw, cfg)

	// Outer chain applied to everything
	base := func(h http.Handler, extra ...server.MiddlewareFunc) http.Handler {
		chain := append([]server.MiddlewareFunc{
			server.NewMetricsMiddleware(m),
			server.NewCORSMiddleware(cfg.Auth.AllowedOrigins),
		}, extra...)
		chain = append(chain,
			server.NewLoggerMiddleware("http"),
			server.NewRecoverMiddleware("http"),
		)
		return server.ChainMiddleware(h, chain...)
	}

	withSession := server.NewSessionMiddleware(resolver)
	authOnly := server.NewGuardMiddleware(routeGuard, cfg.Server.BaseURL, guard.Params{})
	adminOnly := server.NewGuardMiddleware(routeGuard, cfg.Server.BaseURL, guard.Params{AdminOnly: true})

	mux := http.NewServeMux()

	mux.Handle("/healthz", server.NewHealthHandler())
	mux.Handle("/metrics", m.Handler())

	mux.Handle("/{$}", base(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})))

	mux.Handle("/login", base(http.HandlerFunc(authHandlers.LoginHandler), withSession))
	mux.Handle("/logout", base(http.HandlerFunc(authHandlers.LogoutHandler), withSession))

	mux.Handle("/dashboard", base(
		server.ChainMiddleware(http.HandlerFunc(userHandlers.DashboardHandler), authOnly),
		withSession))

	// The OAuth provider returns to /admin with a code; everything else on
	// this path is the guarded dashboard
	dashboard := server.ChainMiddleware(http.HandlerFunc(adminHandlers.DashboardHandler), adminOnly)
	mux.Handle("/admin", base(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code := r.URL.Query().Get("code"); code != "" && r.Method == http.MethodGet {
			authHandlers.HandleCallback(w, r, code)
			return
		}
		dashboard.ServeHTTP(w, r)
	}), withSession))

	adminRoutes := map[string]http.HandlerFunc{
		"/admin/students":        methodSplit(adminHandlers.StudentsPageHandler, adminHandlers.StudentCreateHandler),
		"/admin/students/{id}":   adminHandlers.StudentUpdateHandler,
		"/admin/students/delete": adminHandlers.StudentDeleteHandler,
		"/admin/dues":            methodSplit(adminHandlers.DuesPageHandler, adminHandlers.DuesCreateHandler),
		"/admin/dues/{id}":       adminHandlers.DuesUpdateHandler,
		"/admin/dues/delete":     adminHandlers.DuesDeleteHandler,
		"/admin/dues/upload":     adminHandlers.DuesUploadHandler,
		"/admin/qr-logs":         adminHandlers.QRLogsPageHandler,
		"/admin/qr-logs/delete":  adminHandlers.QRLogDeleteHandler,
		"/admin/providers":       methodSplit(adminHandlers.ProvidersPageHandler, adminHandlers.ProviderCreateHandler),
		"/admin/providers/{id}":  adminHandlers.ProviderUpdateHandler,
		"/admin/providers/delete": adminHandlers.ProviderDeleteHandler,
	}
	for pattern, handler := range adminRoutes {
		mux.Handle(pattern, base(server.ChainMiddleware(handler, adminOnly), withSession))
	}

	kioskAuth := server.NewKioskAuthMiddleware(cfg.Kiosk)
	mux.Handle("/qr-auth", base(
		server.ChainMiddleware(http.HandlerFunc(qrHandlers.QRAuthPageHandler), authOnly),
		withSession))
	mux.Handle("/qr-auth/scan", base(
		server.ChainMiddleware(http.HandlerFunc(qrHandlers.QRScanHandler), kioskAuth),
		withSession))

	mux.Handle("/additional-info", base(http.HandlerFunc(infoHandlers.AdditionalInfoPageHandler)))
	mux.Handle("/additional-info/check", base(http.HandlerFunc(infoHandlers.InfoCheckHandler)))
	mux.Handle("/additional-info/connect", base(http.HandlerFunc(infoHandlers.InfoConnectHandler)))

	return mux
}

// methodSplit routes GET to the page handler and POST to the form handler
func methodSplit(get, post http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			post(w, r)
			return
		}
		get(w, r)
	}
}

// Run starts the application and blocks until shutdown
func (d *DeptFront) Run() error {
	log.LogInfoWithFields("deptfront", "Starting application", map[string]any{
		"addr": d.config.Server.Addr,
	})

	if d.cleanup != nil {
		d.cleanup.Start(context.Background())
	}

	errChan := make(chan error, 1)
	go func() {
		if err := d.httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var shutdownReason string
	select {
	case sig := <-sigChan:
		shutdownReason = fmt.Sprintf("signal %v", sig)
		log.LogInfoWithFields("deptfront", "Received shutdown signal", map[string]any{
			"signal": sig.String(),
		})
	case err := <-errChan:
		shutdownReason = fmt.Sprintf("error: %v", err)
		log.LogErrorWithFields("deptfront", "Shutting down due to error", map[string]any{
			"error": err.Error(),
		})
	}

	log.LogInfoWithFields("deptfront", "Starting graceful shutdown", map[string]any{
		"reason":  shutdownReason,
		"timeout": "30s",
	})
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := d.httpServer.Stop(shutdownCtx); err != nil {
		log.LogErrorWithFields("deptfront", "HTTP server shutdown error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	if d.cleanup != nil {
		d.cleanup.Stop()
	}

	if closer, ok := d.sessions.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.LogWarnWithFields("deptfront", "Session store close error", map[string]any{
				"error": err.Error(),
			})
		}
	}

	log.LogInfoWithFields("deptfront", "Shutdown complete", nil)
	return nil
}
