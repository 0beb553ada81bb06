package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Application event ingress (same payload as the Redis events channel)
	s.echo.POST("/api/events", s.handleEvent)

	// WebSocket endpoint. Authentication happens upstream; the broker only
	// sees already-authenticated identities.
	s.echo.GET("/ws", s.handleWebSocket)
}
