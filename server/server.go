// Package server hosts the HTTP surface of the tutoring service.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mentora/mentora/ai"
	"github.com/mentora/mentora/internal/profile"
	apiv1 "github.com/mentora/mentora/server/router/api/v1"
	"github.com/mentora/mentora/store"
)

// Server wires the HTTP layer over the tutoring pipeline.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store
	AI      *ai.Services

	echoServer *echo.Echo
}

// NewServer creates the server and registers all routes.
func NewServer(ctx context.Context, p *profile.Profile, s *store.Store) (*Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	aiServices, err := ai.NewServices(p, s, registry)
	if err != nil {
		return nil, fmt.Errorf("server: build ai services: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("http request",
				"method", v.Method, "uri", v.URI,
				"status", v.Status, "latency_ms", v.Latency.Milliseconds())
			return nil
		},
	}))

	server := &Server{
		Profile:    p,
		Store:      s,
		AI:         aiServices,
		echoServer: e,
	}

	e.GET("/healthz", server.healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	apiv1.Register(e.Group("/api/v1"), s, aiServices)

	return server, nil
}

// Start brings up the pipeline and listens. Returns once the listener is
// running; serve errors other than graceful close are logged.
func (s *Server) Start(ctx context.Context) error {
	if err := s.AI.Start(ctx); err != nil {
		return err
	}

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			slog.Error("server: listener failed", "error", err)
		}
	}()
	slog.Info("server: listening", "address", address, "version", s.Profile.Version)
	return nil
}

// Shutdown drains HTTP, background tasks, and the store, in that order.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("server: http shutdown failed", "error", err)
	}
	if err := s.AI.Shutdown(ctx); err != nil {
		slog.Error("server: ai shutdown incomplete", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("server: store close failed", "error", err)
	}
	slog.Info("server: shutdown complete")
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Profile.Version,
	})
}
