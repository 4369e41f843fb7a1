// Package http serves the loan approval form, its JSON API and the live
// WebSocket channel on top of an immutable ml.Engine.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"loanwise/logger"
	"loanwise/ml"
	"loanwise/monitoring"
)

// Server is the HTTP front end of the loan approval engine.
type Server struct {
	server *http.Server
	config ServerConfig
	log    logger.ILogger
}

// ServerConfig holds listener, limit and CORS settings.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string

	// Per client IP: RateLimit requests every RateWindow, tracked for at
	// most MaxClients clients. RateLimit <= 0 disables limiting.
	RateLimit  int
	RateWindow time.Duration
	MaxClients int
}

// DefaultServerConfig returns the settings used when nothing is configured.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           ":8080",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		MaxBodyBytes:   1 << 20,
		AllowedOrigins: []string{"*"},
		RateLimit:      30,
		RateWindow:     time.Minute,
		MaxClients:     10000,
	}
}

// NewServer wires the routes and middleware around engine. drift may be nil;
// a nil metrics gets a fresh collector.
func NewServer(config ServerConfig, engine *ml.Engine, log logger.ILogger, drift ChangeReporter, metrics *monitoring.MetricsCollector) (*Server, error) {
	if engine == nil {
		return nil, errors.New("http: engine is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	if metrics == nil {
		metrics = monitoring.NewMetricsCollector()
	}

	pages, err := parseTemplates(newPrinter())
	if err != nil {
		return nil, err
	}
	limiter, err := NewRateLimiter(config.RateLimit, config.RateWindow, config.MaxClients)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	h := &handlers{
		engine:   engine,
		drift:    drift,
		limiter:  limiter,
		metrics:  metrics,
		log:      log,
		pages:    pages,
		upgrader: newUpgrader(config.AllowedOrigins),
		maxFrame: config.MaxBodyBytes,
	}

	mux := http.NewServeMux()
	h.register(mux, RateLimitMiddleware(limiter, log, metrics))

	chain := Chain(
		RecoveryMiddleware(log),
		LoggerMiddleware(log),
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		RequestSizeMiddleware(config.MaxBodyBytes),
	)

	return &Server{
		server: &http.Server{
			Addr:         config.Addr,
			Handler:      chain(mux),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  120 * time.Second,
		},
		config: config,
		log:    log,
	}, nil
}

// Start blocks until the server stops. A clean Stop returns nil.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server",
		logger.String("addr", s.server.Addr),
		logger.Strings("allowed_origins", s.config.AllowedOrigins),
		logger.Int64("max_body_bytes", s.config.MaxBodyBytes),
	)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests for up to five seconds.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.log.Info("shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}
