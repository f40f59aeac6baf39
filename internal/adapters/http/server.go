// Package http serves the daily quote API with gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/daily-quote/internal/platform/config"
)

// Server is the API listener. It implements suture.Service: Serve blocks
// until its context ends and then drains in-flight requests.
type Server struct {
	engine *gin.Engine
	srv    *http.Server
	cfg    *config.ServerConfig
	logger *slog.Logger
}

// New builds a server for cfg. Request bodies are capped at
// cfg.MaxRequestSize.
func New(cfg *config.ServerConfig, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.MaxRequestSize)
		c.Next()
	})

	return &Server{
		engine: engine,
		cfg:    cfg,
		logger: logger,
		srv: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
			ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
	}
}

// Engine is where routes are registered.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Addr is the host:port the server listens on.
func (s *Server) Addr() string { return s.srv.Addr }

func (s *Server) String() string { return "http-server" }

// Serve listens on Addr until ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}

	return s.serve(ctx, ln)
}

// serve owns ln. Request contexts derive from ctx, so an open event
// stream ends with the service.
func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }

	failed := make(chan error, 1)

	go func() { failed <- s.srv.Serve(ln) }()

	s.logger.InfoContext(ctx, "http server listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-failed:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	drain, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(drain); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.logger.InfoContext(drain, "http server stopped")

	return nil
}
