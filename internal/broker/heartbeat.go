package broker

import (
	"log/slog"

	"github.com/finpulse/finpulse/internal/metrics"
)

// The heartbeat monitor runs two independent sweeps. The ping sweep catches
// channels that can no longer accept writes; the stale sweep catches channels
// that accept probes but never answer them. Worst-case detection latency is
// one stale-sweep interval plus the stale timeout.

// pingSweep probes every alive connection and evicts the ones already marked
// dead by an earlier probe or write failure.
func (b *Broker) pingSweep() {
	for connID, rec := range b.conns {
		if !rec.alive {
			// Already failed: force-close and evict.
			slog.Info("Evicting dead connection", "conn_id", connID, "user_id", rec.userID)
			metrics.ConnectionsEvicted.WithLabelValues("dead").Inc()
			b.handleRemove(connID)
			continue
		}

		if !rec.writer.ping() {
			rec.alive = false
			metrics.PingFailures.Inc()
			slog.Debug("Liveness probe failed to send", "conn_id", connID, "user_id", rec.userID)
		}
	}
}

// staleSweep evicts connections whose last pong is older than the stale
// timeout, regardless of the alive flag.
func (b *Broker) staleSweep() {
	now := b.clock.Now()
	for connID, rec := range b.conns {
		if now.Sub(rec.lastPong) > b.opts.StaleTimeout {
			slog.Info("Evicting stale connection",
				"conn_id", connID, "user_id", rec.userID, "last_pong_age", now.Sub(rec.lastPong))
			metrics.ConnectionsEvicted.WithLabelValues("stale").Inc()
			b.handleRemove(connID)
		}
	}
}
