// Package server exposes the HTTP surface: websocket upgrade, event ingress,
// health, and metrics.
package server

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/finpulse/finpulse/internal/broker"
	"github.com/finpulse/finpulse/internal/config"
	"github.com/finpulse/finpulse/internal/notify"
)

type Server struct {
	echo    *echo.Echo
	config  *config.Config
	broker  *broker.Broker
	notify  *notify.Service
	clock   clockwork.Clock
}

func NewServer(cfg *config.Config, b *broker.Broker, svc *notify.Service, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	srv := &Server{
		echo:   e,
		config: cfg,
		broker: b,
		notify: svc,
		clock:  clock,
	}
	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	err := s.echo.Start(":" + s.config.Port)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
