package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	wsadapter "github.com/finpulse/finpulse/internal/adapter/websocket"
	"github.com/finpulse/finpulse/internal/broker"
	"github.com/finpulse/finpulse/internal/domain"
	"github.com/finpulse/finpulse/internal/metrics"
	"github.com/finpulse/finpulse/internal/notify"
	"github.com/finpulse/finpulse/internal/version"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The reverse proxy enforces origin; the broker itself does not.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type healthResponse struct {
	Status string       `json:"status"`
	Build  version.Info `json:"build"`
	Broker broker.Stats `json:"broker"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status: "ok",
		Build:  version.Get(),
		Broker: s.broker.Stats(),
	})
}

func (s *Server) handleEvent(c echo.Context) error {
	var event notify.Event
	if err := c.Bind(&event); err != nil {
		metrics.IngestEventsTotal.WithLabelValues("http", "malformed").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event payload")
	}

	if err := s.notify.Dispatch(c.Request().Context(), event); err != nil {
		metrics.IngestEventsTotal.WithLabelValues("http", "malformed").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	metrics.IngestEventsTotal.WithLabelValues("http", "ok").Inc()
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) handleWebSocket(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "user_id", userID, "error", err)
		return nil
	}

	if err := wsadapter.Serve(s.broker, conn, userID, s.clock); err != nil {
		switch {
		case errors.Is(err, domain.ErrTooManyConnections):
			slog.Warn("Connection rejected: per-user cap", "user_id", userID)
		case errors.Is(err, domain.ErrDuplicateConnection):
			slog.Error("Duplicate connection ID generated", "user_id", userID)
		default:
			slog.Error("WebSocket session failed", "user_id", userID, "error", err)
		}
	}
	return nil
}
