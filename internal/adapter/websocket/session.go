package websocket

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/finpulse/finpulse/internal/domain"
)

// Registrar is the slice of the broker the transport needs.
type Registrar interface {
	Register(connID, userID string, channel domain.Channel) error
	Remove(connID string) bool
	HandlePong(connID string)
	Subscribe(connID, topic string)
	Unsubscribe(connID, topic string)
}

// clientAction is the inbound message protocol: clients only ever send
// subscription requests; everything else rides on protocol-level frames.
type clientAction struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

// Serve registers an upgraded connection with the broker and runs its read
// loop until the connection dies or the broker force-closes it. The caller's
// goroutine is occupied for the connection's lifetime (the usual gorilla
// handler shape).
func Serve(broker Registrar, conn *websocket.Conn, userID string, clock clockwork.Clock) error {
	connID := uuid.NewString()

	conn.SetPongHandler(func(string) error {
		broker.HandlePong(connID)
		return nil
	})

	if err := broker.Register(connID, userID, NewChannel(conn, clock)); err != nil {
		_ = conn.Close()
		return err
	}

	defer broker.Remove(connID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("Connection read error", "conn_id", connID, "user_id", userID, "error", err)
			}
			return nil
		}
		handleInbound(broker, connID, data)
	}
}

// handleInbound processes one client message. A parse failure is logged and
// dropped; it must not evict the connection.
func handleInbound(broker Registrar, connID string, data []byte) {
	var action clientAction
	if err := json.Unmarshal(data, &action); err != nil {
		slog.Warn("Malformed inbound message", "conn_id", connID, "error", err)
		return
	}

	switch action.Action {
	case "subscribe":
		if action.Topic == "" {
			slog.Warn("Subscribe without topic", "conn_id", connID)
			return
		}
		broker.Subscribe(connID, action.Topic)
	case "unsubscribe":
		if action.Topic == "" {
			slog.Warn("Unsubscribe without topic", "conn_id", connID)
			return
		}
		broker.Unsubscribe(connID, action.Topic)
	default:
		slog.Warn("Unknown inbound action", "conn_id", connID, "action", action.Action)
	}
}
