package broker

import (
	"encoding/json"
	"log/slog"

	"github.com/finpulse/finpulse/internal/domain"
	"github.com/finpulse/finpulse/internal/metrics"
)

// encodeEnvelope serializes an envelope once per delivery, regardless of how
// many connections it fans out to.
func encodeEnvelope(env domain.Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// --- Actor handlers ---

func (b *Broker) handleSendToUser(userID string, env domain.Envelope) {
	data, err := encodeEnvelope(env)
	if err != nil {
		slog.Error("Failed to encode envelope", "envelope_id", env.ID, "error", err)
		return
	}

	delivered := false
	for connID := range b.users[userID] {
		rec := b.conns[connID]
		if rec == nil || !rec.alive {
			continue
		}
		if rec.writer.enqueue(data) {
			delivered = true
		} else {
			// Send failure marks the connection dead but does not abort
			// delivery to the user's remaining connections.
			rec.alive = false
			metrics.SendFailures.Inc()
		}
	}

	if !delivered {
		// The designed degrade path, not an error: no live connection took
		// the message, so it waits in the offline queue for the next session.
		b.queues.push(userID, env)
		b.syncGauges()
		metrics.DeliveriesTotal.WithLabelValues(string(env.Kind), "queued").Inc()
		slog.Debug("Envelope queued for offline user",
			"user_id", userID, "kind", env.Kind, "queue_size", b.queues.size(userID))
		return
	}

	metrics.DeliveriesTotal.WithLabelValues(string(env.Kind), "delivered").Inc()
}

func (b *Broker) handleBroadcast(env domain.Envelope) {
	data, err := encodeEnvelope(env)
	if err != nil {
		slog.Error("Failed to encode envelope", "envelope_id", env.ID, "error", err)
		return
	}

	delivered := 0
	for _, rec := range b.conns {
		if !rec.alive {
			continue
		}
		if rec.writer.enqueue(data) {
			delivered++
		} else {
			rec.alive = false
			metrics.SendFailures.Inc()
		}
	}

	outcome := "delivered"
	if delivered == 0 {
		outcome = "dropped"
	}
	metrics.DeliveriesTotal.WithLabelValues(string(env.Kind), outcome).Inc()
	slog.Debug("Broadcast delivered", "kind", env.Kind, "connections", delivered)
}

func (b *Broker) handlePublishToTopic(topic string, env domain.Envelope) {
	data, err := encodeEnvelope(env)
	if err != nil {
		slog.Error("Failed to encode envelope", "envelope_id", env.ID, "error", err)
		return
	}

	delivered := 0
	for _, rec := range b.conns {
		if !rec.alive {
			continue
		}
		if _, subscribed := rec.topics[topic]; !subscribed {
			continue
		}
		if rec.writer.enqueue(data) {
			delivered++
		} else {
			rec.alive = false
			metrics.SendFailures.Inc()
		}
	}

	outcome := "delivered"
	if delivered == 0 {
		outcome = "dropped"
	}
	metrics.DeliveriesTotal.WithLabelValues(string(env.Kind), outcome).Inc()
	slog.Debug("Topic publish delivered", "topic", topic, "kind", env.Kind, "connections", delivered)
}

// --- Public API ---

// SendToUser delivers an envelope to every live connection of the user, or
// queues it when none takes the write. Best-effort from the caller's
// perspective: no delivery status is returned.
func (b *Broker) SendToUser(userID string, env domain.Envelope) {
	b.cmdCh <- sendToUserCmd{userID: userID, envelope: env}
}

// Broadcast delivers an envelope to every live connection. Never queued:
// there is no offline recipient for an all-connections fan-out.
func (b *Broker) Broadcast(env domain.Envelope) {
	b.cmdCh <- broadcastCmd{envelope: env}
}

// PublishToTopic delivers an envelope to live connections subscribed to the
// topic. Same best-effort, no-queue semantics as Broadcast.
func (b *Broker) PublishToTopic(topic string, env domain.Envelope) {
	b.cmdCh <- publishToTopicCmd{topic: topic, envelope: env}
}
