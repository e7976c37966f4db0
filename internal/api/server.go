package api

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/org/memberauth/internal/audit"
	"github.com/org/memberauth/internal/auth"
	"github.com/org/memberauth/internal/storage"
	"github.com/org/memberauth/pkg/models"
	"github.com/rs/zerolog/log"
)

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr    string
	TLSCertFile   string
	TLSKeyFile    string
	OperatorToken string
	LoginRPS      int
	LoginBurst    int
}

// Server is the API server.
type Server struct {
	store        storage.Backend
	auth         *auth.Service
	auditor      *audit.Logger
	loginLimiter *rateLimiter
	cfg          Config
	httpSrv      *http.Server
}

// NewServer creates a fully wired Server.
func NewServer(store storage.Backend, svc *auth.Service, cfg Config) *Server {
	return &Server{
		store:        store,
		auth:         svc,
		auditor:      audit.NewLogger(store),
		loginLimiter: newRateLimiter(cfg.LoginRPS, cfg.LoginBurst),
		cfg:          cfg,
	}
}

// BuildRouter wires up all routes and returns a chi router.
func (s *Server) BuildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(authenticationGate(s.auth.Tokens(), s.auth.Revocations()))
	r.Use(metricsMiddleware)

	r.Handle("/metrics", s.metricsHandler())
	r.Get("/health", s.HealthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(s.loginLimiter.middleware).Post("/auth/login", s.LoginHandler)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(requireAuthenticated)

			r.Post("/auth/logout", s.LogoutHandler)
			r.Put("/auth/password", s.PasswordChangeHandler)
			r.Get("/auth/me", s.MeHandler)

			r.With(requireAuthority(models.RoleTrainee.Authority())).Get("/trainees/{id}", s.TraineeHandler)
			r.With(requireAuthority(models.RoleTrainer.Authority())).Get("/trainers/{id}", s.TrainerHandler)
		})

		// Operator routes
		r.Route("/sys", func(r chi.Router) {
			r.Use(operatorMiddleware(s.cfg.OperatorToken))

			r.Get("/revocations", s.RevocationsHandler)
			r.Delete("/revocations", s.RevocationsClearHandler)
			r.Get("/lockouts/{username}", s.LockoutHandler)
			r.Delete("/lockouts/{username}", s.LockoutClearHandler)
			r.Get("/auth-events", s.AuthEventsHandler)
		})
	})

	return r
}

// RunMaintenance prunes idle login rate-limit buckets every interval until ctx
// is cancelled.
func (s *Server) RunMaintenance(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.loginLimiter.prune()
			revokedTokens.Set(float64(s.auth.Revocations().Count()))
		}
	}
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	handler := s.BuildRouter()

	s.httpSrv = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
		tlsCfg := &tls.Config{
			MinVersion: tls.VersionTLS12,
			CurvePreferences: []tls.CurveID{
				tls.CurveP256,
				tls.X25519,
			},
		}
		s.httpSrv.TLSConfig = tlsCfg
		log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTPS server")
		return s.httpSrv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	}

	log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTP server")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
