package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/linkgate/linkgate/pkg/policy"
)

// Server is the HTTP server of the redirect gateway.
type Server struct {
	config *Config

	// Redirect validator, built once from config.
	validator *policy.Validator

	// Trusted proxy matcher for forwarded headers.
	trustedProxies *proxyMatcher

	// Audit event fan-out.
	audit *auditHub

	// Route table.
	router chi.Router

	// Middleware applied around the router.
	middleware []Middleware

	// HTTP server, set while running.
	httpServer *http.Server
	running    atomic.Bool

	logger *slog.Logger
}

// Middleware is a function that wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// New creates a new Server with the given configuration.
func New(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	} else {
		// Fill in defaults for any unset fields.
		defaults := DefaultConfig()
		if config.Address == "" {
			config.Address = defaults.Address
		}
		if config.RedirectStatus == 0 {
			config.RedirectStatus = defaults.RedirectStatus
		}
		if config.ReadHeaderTimeout == 0 {
			config.ReadHeaderTimeout = defaults.ReadHeaderTimeout
		}
		if config.ReadTimeout == 0 {
			config.ReadTimeout = defaults.ReadTimeout
		}
		if config.WriteTimeout == 0 {
			config.WriteTimeout = defaults.WriteTimeout
		}
		if config.IdleTimeout == 0 {
			config.IdleTimeout = defaults.IdleTimeout
		}
		if config.ShutdownTimeout == 0 {
			config.ShutdownTimeout = defaults.ShutdownTimeout
		}
		if config.CheckOrigin == nil {
			config.CheckOrigin = defaults.CheckOrigin
		}
		if config.AuditQueueSize == 0 {
			config.AuditQueueSize = defaults.AuditQueueSize
		}
	}

	logger := slog.Default().With("component", "server")

	for _, warning := range config.Warnings() {
		logger.Warn("config warning", "warning", warning)
	}
	if err := config.Validate(); err != nil {
		logger.Error("config validation failed", "error", err)
	}

	s := &Server{
		config: config,
		validator: policy.NewValidator(
			policy.NewAllowlist(config.AllowedHosts),
			config.EnforceAllowlist,
		),
		trustedProxies: newProxyMatcher(config.TrustedProxies, logger),
		logger:         logger,
	}
	s.audit = newAuditHub(config, logger.With("component", "audit"))

	r := chi.NewRouter()
	r.Get("/redirect", s.handleRedirect)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/audit/ws", s.audit.handleUpgrade)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	s.router = r

	return s
}

// Use adds middleware to the server. Middleware runs outermost-first in the
// order added and wraps every route, including /metrics and /audit/ws.
func (s *Server) Use(mw Middleware) {
	s.middleware = append(s.middleware, mw)
}

// Handler returns an http.Handler for mounting in external routers.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.ServeHTTP)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var handler http.Handler = s.router
	for i := len(s.middleware) - 1; i >= 0; i-- {
		handler = s.middleware[i](handler)
	}
	handler.ServeHTTP(w, r)
}

// Run starts the server and blocks until shutdown.
func (s *Server) Run() error {
	if err := s.config.Validate(); err != nil {
		return err
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			"address", s.config.Address,
			"enforce", s.config.EnforceAllowlist,
			"allowed_hosts", len(s.config.AllowedHosts))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-shutdown:
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server and closes the audit stream.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.audit.shutdown()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Validator returns the redirect validator.
func (s *Server) Validator() *policy.Validator {
	return s.validator
}

// Config returns the server configuration.
func (s *Server) Config() *Config {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// SetLogger sets the server logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}
