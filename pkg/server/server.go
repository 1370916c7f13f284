// Package server serves the postboard rpc dispatcher over HTTP.
//
//	srv := server.New(st, &server.Config{Address: cfg.Addr, Debug: cfg.Debug},
//	    server.WithLogger(logger),
//	)
//	if err := srv.Run(ctx); err != nil {
//	    return err
//	}
//
// Routes:
//
//	POST /backend_fn       enveloped call naming its operation
//	POST /signup           signup, bare arguments
//	POST /login            login, bare arguments
//	POST /logout           logout
//	POST /delete_account   delete_account
//	GET  /healthz          store ping
//	GET  /metrics          Prometheus exposition
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/postboard/pkg/middleware"
	"github.com/vango-dev/postboard/pkg/rpc"
	"github.com/vango-dev/postboard/pkg/session"
)

// Paths of the RPC endpoints.
const (
	PathBackend       = "/backend_fn"
	PathSignup        = "/signup"
	PathLogin         = "/login"
	PathLogout        = "/logout"
	PathDeleteAccount = "/delete_account"
	PathHealth        = "/healthz"
	PathMetrics       = "/metrics"
)

// ErrShutdown is returned when in-flight requests outlive ShutdownTimeout.
var ErrShutdown = errors.New("server: shutdown incomplete")

// singles maps the bare-argument endpoints to their operations.
var singles = map[string]string{
	PathSignup:        rpc.OpSignup,
	PathLogin:         rpc.OpLogin,
	PathLogout:        rpc.OpLogout,
	PathDeleteAccount: rpc.OpDeleteAccount,
}

// healthTimeout bounds the store ping of /healthz.
const healthTimeout = 2 * time.Second

// Store is the data access the server needs. *store.Store implements it.
type Store interface {
	rpc.Store
	Ping(ctx context.Context) error
}

// Server is the postboard HTTP server.
type Server struct {
	config *Config
	store  Store
	logger *slog.Logger

	registry *prometheus.Registry
	tracer   trace.TracerProvider
	rpcOpts  []rpc.Option

	dispatcher *rpc.Dispatcher
	handler    http.Handler

	// HTTP server
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRegistry sets the registry the RPC metrics are registered
// on and /metrics exposes. Default: a fresh registry with the Go and
// process collectors.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithTracerProvider sets the provider for RPC spans. Default: the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.tracer = tp
	}
}

// WithRPCOptions passes extra options to the dispatcher.
func WithRPCOptions(opts ...rpc.Option) Option {
	return func(s *Server) {
		s.rpcOpts = append(s.rpcOpts, opts...)
	}
}

// New creates a Server for st.
func New(st Store, config *Config, opts ...Option) *Server {
	s := &Server{
		config: config.withDefaults(),
		store:  st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	s.logger = s.logger.With("component", "server")

	policy := session.DefaultCookiePolicy(s.config.Debug)
	resolver := session.NewResolver(st,
		session.WithCookieName(policy.Name),
		session.WithLogger(s.logger),
	)
	metrics := middleware.NewMetrics(middleware.WithRegistry(s.registry))

	rpcOpts := []rpc.Option{
		rpc.WithLogger(s.logger),
		rpc.WithCookiePolicy(policy),
		rpc.WithResolver(resolver),
		rpc.WithMiddleware(
			metrics.Middleware(),
			middleware.OpenTelemetry(middleware.WithTracerProvider(s.tracer)),
		),
	}
	s.dispatcher = rpc.NewDispatcher(st, append(rpcOpts, s.rpcOpts...)...)
	s.handler = s.routes(resolver)
	return s
}

func (s *Server) routes(resolver *session.Resolver) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog(s.logger))
	r.Use(chimw.Recoverer)

	r.Get(PathHealth, s.health)
	r.Method(http.MethodGet, PathMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	// The dispatcher answers every method so that non-POST requests get
	// an enveloped 405.
	r.Group(func(r chi.Router) {
		r.Use(resolver.Middleware)
		r.Handle(PathBackend, s.dispatcher)
		for path, op := range singles {
			r.Handle(path, s.dispatcher.Single(op))
		}
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Dispatcher returns the rpc dispatcher.
func (s *Server) Dispatcher() *rpc.Dispatcher {
	return s.dispatcher
}

// Config returns the server configuration.
func (s *Server) Config() *Config {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	w.Header().Set("Cache-Control", "no-store")
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// Run listens on the configured address and serves until ctx is done or
// the process receives SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Set up graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)
	go func() {
		select {
		case sig := <-shutdown:
			s.logger.Info("shutting down...", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	// Error channel for Serve
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server, waiting at most
// ShutdownTimeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return fmt.Errorf("%w: %w", ErrShutdown, err)
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// accessLog logs one line per request at debug level, and at warn for
// 5xx responses.
func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				level := slog.LevelDebug
				if ww.Status() >= http.StatusInternalServerError {
					level = slog.LevelWarn
				}
				logger.Log(r.Context(), level, "request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", chimw.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
