// Package httpapi exposes the orchestration loop over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jonwraymond/toolpilot/exec"
	"github.com/jonwraymond/toolpilot/observability"
)

const shutdownTimeout = 10 * time.Second

// ErrSessionsRequired is returned by New when Config.Sessions is nil.
var ErrSessionsRequired = errors.New("httpapi: Sessions is required")

// Config configures the HTTP server.
type Config struct {
	// Sessions resolves the session named in each request.
	// Required.
	Sessions *exec.Sessions

	// Metrics adds request metrics and serves GET /metrics. Optional.
	Metrics *observability.Metrics

	// Logger receives request logs.
	Logger *zerolog.Logger
}

// Server routes HTTP requests to sessions.
type Server struct {
	sessions *exec.Sessions
	exec     *exec.Exec
	router   *gin.Engine
	logger   zerolog.Logger
}

// New builds the router and registers every route.
func New(cfg Config) (*Server, error) {
	if cfg.Sessions == nil {
		return nil, ErrSessionsRequired
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "httpapi").Logger()
	}

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
	}))
	r.Use(observability.RequestLogger(logger))
	if cfg.Metrics != nil {
		r.Use(observability.RequestMetrics(cfg.Metrics))
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		sessions: cfg.Sessions,
		exec:     cfg.Sessions.Exec(),
		router:   r,
		logger:   logger,
	}
	s.routes()
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info().Str("addr", addr).Msg("listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		// rounds in flight are bounded by their own call timeouts
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) routes() {
	api := s.router.Group("/api")
	api.GET("/health", s.health)
	api.GET("/history", s.history)
	api.POST("/execute", s.execute)
	api.POST("/add-tool", s.addTool)
	api.GET("/capabilities", s.capabilities)
}
