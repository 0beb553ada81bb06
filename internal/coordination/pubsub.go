// Package coordination connects the broker process to the rest of the system
// via Redis pub/sub: application services publish notification events on a
// shared channel and every broker instance ingests them.
package coordination

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/finpulse/finpulse/internal/metrics"
	"github.com/finpulse/finpulse/internal/notify"
)

// EventsChannel is the Redis pub/sub channel application services publish to.
const EventsChannel = "finpulse:events"

// Dispatcher is the slice of the notify service the ingestor needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, event notify.Event) error
}

// EventIngestor subscribes to the events channel and forwards each event to
// the notify service.
type EventIngestor struct {
	rdb        *redis.Client
	dispatcher Dispatcher
}

func NewEventIngestor(rdb *redis.Client, dispatcher Dispatcher) *EventIngestor {
	return &EventIngestor{rdb: rdb, dispatcher: dispatcher}
}

// Start begins listening for events. Blocks until ctx is cancelled.
func (i *EventIngestor) Start(ctx context.Context) {
	pubsub := i.rdb.Subscribe(ctx, EventsChannel)
	defer func() {
		_ = pubsub.Close()
	}()

	ch := pubsub.Channel()
	for {
		select {
		case msg := <-ch:
			if msg == nil {
				return
			}
			i.handleEvent(ctx, msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

// handleEvent processes a single event payload. A malformed payload is logged
// and dropped; it never tears anything down.
func (i *EventIngestor) handleEvent(ctx context.Context, payload string) {
	var event notify.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		metrics.IngestEventsTotal.WithLabelValues("pubsub", "malformed").Inc()
		slog.Warn("Malformed event payload on pub/sub channel", "error", err)
		return
	}

	if err := i.dispatcher.Dispatch(ctx, event); err != nil {
		metrics.IngestEventsTotal.WithLabelValues("pubsub", "malformed").Inc()
		slog.Warn("Rejected event from pub/sub channel", "kind", event.Kind, "error", err)
		return
	}

	metrics.IngestEventsTotal.WithLabelValues("pubsub", "ok").Inc()
}

// PublishEvent broadcasts a notification event to all broker instances. This
// is the producer half, exported for application services and tests.
func PublishEvent(ctx context.Context, rdb *redis.Client, event notify.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := rdb.Publish(ctx, EventsChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
