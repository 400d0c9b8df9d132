// Package server exposes a read-only HTTP view of the relay registries.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ServerReadTimeout  = 5 * time.Second
	ServerWriteTimeout = 5 * time.Second
	ServerIdleTimeout  = 10 * time.Second
	MaxHeaderBytes     = 1 << 20
)

type AdminServer struct {
	handlers   *Handler
	engine     *gin.Engine
	httpServer *http.Server
	listener   net.Listener
	logger     logr.Logger
}

func NewAdmin(r Registry, opts ...Option) *AdminServer {
	cfg := newDefaultConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	s := &AdminServer{
		handlers: NewHandler(r, cfg.clock),
		logger:   cfg.logger,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(cfg.logger))

	engine.GET("/healthz", s.handlers.HealthHandler)

	v1 := engine.Group("/v1")
	v1.GET("/stats", s.handlers.StatsHandler)
	v1.GET("/servers", s.handlers.ServersHandler)
	v1.GET("/servers/:ip", s.handlers.ServerHandler)
	v1.GET("/waiting", s.handlers.WaitingHandler)

	if cfg.gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{})))
	}

	s.engine = engine
	return s
}

// Handler returns the routed HTTP handler.
func (s *AdminServer) Handler() http.Handler {
	return s.engine
}

// Start binds addr and serves in the background. Bind errors are returned
// immediately.
func (s *AdminServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:        s.engine,
		ReadTimeout:    ServerReadTimeout,
		WriteTimeout:   ServerWriteTimeout,
		IdleTimeout:    ServerIdleTimeout,
		MaxHeaderBytes: MaxHeaderBytes,
	}

	go func() {
		if errServe := s.httpServer.Serve(ln); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			s.logger.Error(errServe, "Admin server stopped unexpectedly")
		}
	}()

	s.logger.Info("Admin API listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or an empty string before Start.
func (s *AdminServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *AdminServer) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func requestLogger(logger logr.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.V(1).Info("Admin request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String())
	}
}
