// Package httpapi is the HTTP boundary of the server. It extracts and
// verifies bearer credentials, maps service errors to statuses, and manages
// the refresh-token cookie; all authentication decisions live in the
// services layer.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/avolkovs/authcore/internal/logging"
	"github.com/avolkovs/authcore/internal/server/auth"
	"github.com/avolkovs/authcore/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Server struct {
	addr   string
	logger logging.Logger
	auth   *services.AuthService
	twofa  *services.TwoFactorService
	tokens *auth.TokenService

	refreshValidity time.Duration
	secureCookies   bool
}

func NewServer(addr string, logger logging.Logger,
	authService *services.AuthService, twofaService *services.TwoFactorService,
	tokens *auth.TokenService, refreshValidity time.Duration, secureCookies bool) *Server {
	return &Server{
		addr:            addr,
		logger:          logger.With("module", "httpapi"),
		auth:            authService,
		twofa:           twofaService,
		tokens:          tokens,
		refreshValidity: refreshValidity,
		secureCookies:   secureCookies,
	}
}

// Routes assembles the router. Endpoints behind requireToken(TokenAccess)
// need a full session; /2fa/login is only reachable with a temp two-factor
// token, never an access token.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Post("/signup", s.handleSignup)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Post("/refresh-token", s.handleRefresh)
	r.Post("/forgot-password", s.handleForgotPassword)
	r.Post("/reset-password", s.handleResetPassword)

	r.Group(func(g chi.Router) {
		g.Use(s.requireToken(auth.TokenAccess))
		g.Get("/me", s.handleMe)
		g.Post("/2fa/setup", s.handleTwoFactorSetup)
		g.Post("/2fa/verify-setup", s.handleTwoFactorVerifySetup)
		g.Post("/2fa/disable", s.handleTwoFactorDisable)
	})

	r.Group(func(g chi.Router) {
		g.Use(s.requireToken(auth.TokenTemp2FA))
		g.Post("/2fa/login", s.handleTwoFactorLogin)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info(ctx, "starting HTTP server", "address", s.addr)

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
