// Package notify is the application-facing layer above the broker: it builds
// envelopes per message kind, applies user notification preferences, and
// routes events to the right delivery primitive.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/finpulse/finpulse/internal/domain"
)

// Well-known topics clients subscribe to for fan-out kinds.
const (
	TopicDashboard = "dashboard"
	TopicMarket    = "market"
)

// Scope selects the delivery primitive for an event.
type Scope string

const (
	ScopeUser      Scope = "user"
	ScopeBroadcast Scope = "broadcast"
	ScopeTopic     Scope = "topic"
)

// Event is the wire form of an application notification, accepted from both
// the HTTP ingress and the Redis events channel.
type Event struct {
	Scope   Scope           `json:"scope"`
	Kind    domain.Kind     `json:"kind"`
	UserID  string          `json:"user_id,omitempty"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate checks structural requirements before dispatch.
func (e Event) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown message kind %q", e.Kind)
	}
	switch e.Scope {
	case ScopeUser:
		if e.UserID == "" {
			return fmt.Errorf("user_id is required for user-scoped events")
		}
	case ScopeTopic:
		if e.Topic == "" {
			return fmt.Errorf("topic is required for topic-scoped events")
		}
	case ScopeBroadcast:
	default:
		return fmt.Errorf("unknown scope %q", e.Scope)
	}
	return nil
}

// Sender is the slice of the broker the service needs.
type Sender interface {
	SendToUser(userID string, env domain.Envelope)
	Broadcast(env domain.Envelope)
	PublishToTopic(topic string, env domain.Envelope)
}

// Service dispatches application events into the broker.
type Service struct {
	sender Sender
	prefs  domain.PreferenceRepository
	clock  clockwork.Clock
}

func NewService(sender Sender, prefs domain.PreferenceRepository, clock clockwork.Clock) *Service {
	return &Service{sender: sender, prefs: prefs, clock: clock}
}

// Dispatch validates an event, applies preferences for targeted kinds, and
// hands it to the broker. Delivery is best-effort; the only errors surfaced
// are validation failures.
func (s *Service) Dispatch(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	switch event.Scope {
	case ScopeUser:
		if !s.wants(ctx, event.UserID, event.Kind) {
			slog.Debug("Notification suppressed by user preferences",
				"user_id", event.UserID, "kind", event.Kind)
			return nil
		}
		env := domain.NewEnvelope(event.Kind, event.UserID, event.Payload, s.clock.Now())
		s.sender.SendToUser(event.UserID, env)
	case ScopeBroadcast:
		env := domain.NewEnvelope(event.Kind, "", event.Payload, s.clock.Now())
		s.sender.Broadcast(env)
	case ScopeTopic:
		env := domain.NewEnvelope(event.Kind, "", event.Payload, s.clock.Now())
		s.sender.PublishToTopic(event.Topic, env)
	}
	return nil
}

// wants consults the preference store, failing open: a store error must not
// swallow a notification.
func (s *Service) wants(ctx context.Context, userID string, kind domain.Kind) bool {
	if s.prefs == nil {
		return true
	}
	prefs, err := s.prefs.GetPreferences(ctx, userID)
	if err != nil {
		slog.Warn("Preference lookup failed, delivering anyway",
			"user_id", userID, "error", err)
		return true
	}
	return prefs.Wants(kind)
}

// --- Typed helpers for in-process callers ---

func (s *Service) TransactionAdded(ctx context.Context, userID string, payload json.RawMessage) error {
	return s.Dispatch(ctx, Event{Scope: ScopeUser, Kind: domain.KindTransactionAdded, UserID: userID, Payload: payload})
}

func (s *Service) GoalProgress(ctx context.Context, userID string, payload json.RawMessage) error {
	return s.Dispatch(ctx, Event{Scope: ScopeUser, Kind: domain.KindGoalProgress, UserID: userID, Payload: payload})
}

func (s *Service) DeadlineReminder(ctx context.Context, userID string, payload json.RawMessage) error {
	return s.Dispatch(ctx, Event{Scope: ScopeUser, Kind: domain.KindDeadlineReminder, UserID: userID, Payload: payload})
}

func (s *Service) AIInsight(ctx context.Context, userID string, payload json.RawMessage) error {
	return s.Dispatch(ctx, Event{Scope: ScopeUser, Kind: domain.KindAIInsight, UserID: userID, Payload: payload})
}

func (s *Service) DashboardUpdate(ctx context.Context, userID string, payload json.RawMessage) error {
	return s.Dispatch(ctx, Event{Scope: ScopeUser, Kind: domain.KindDashboardUpdate, UserID: userID, Payload: payload})
}

// MarketUpdate fans out to connections subscribed to the market topic.
func (s *Service) MarketUpdate(ctx context.Context, payload json.RawMessage) error {
	return s.Dispatch(ctx, Event{Scope: ScopeTopic, Kind: domain.KindMarketUpdate, Topic: TopicMarket, Payload: payload})
}

// SystemNotice goes to every connected client.
func (s *Service) SystemNotice(ctx context.Context, payload json.RawMessage) error {
	return s.Dispatch(ctx, Event{Scope: ScopeBroadcast, Kind: domain.KindSystemNotification, Payload: payload})
}
