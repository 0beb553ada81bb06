// Package websocket adapts gorilla/websocket connections to the broker's
// channel abstraction and translates inbound frames into broker events.
package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const writeDeadline = 5 * time.Second

// Channel wraps a websocket connection behind domain.Channel. All writes go
// through the broker's per-connection writer goroutine, so no write mutex is
// needed; every write carries a short deadline and a deadline overrun is a
// transport error.
type Channel struct {
	conn  *websocket.Conn
	clock clockwork.Clock
}

func NewChannel(conn *websocket.Conn, clock clockwork.Clock) *Channel {
	return &Channel{conn: conn, clock: clock}
}

func (c *Channel) Write(data []byte) error {
	_ = c.conn.SetWriteDeadline(c.clock.Now().Add(writeDeadline))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Channel) Ping() error {
	_ = c.conn.SetWriteDeadline(c.clock.Now().Add(writeDeadline))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *Channel) Close() error {
	return c.conn.Close()
}
