package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the type of a notification message. The set is closed:
// delivery sites switch over it and treat anything else as malformed input.
type Kind string

const (
	KindDashboardUpdate    Kind = "dashboard_update"
	KindTransactionAdded   Kind = "transaction_added"
	KindGoalProgress       Kind = "goal_progress"
	KindDeadlineReminder   Kind = "deadline_reminder"
	KindMarketUpdate       Kind = "market_update"
	KindAIInsight          Kind = "ai_insight"
	KindSystemNotification Kind = "system_notification"

	// Internal liveness-probe kinds. Never constructed by application code.
	KindPing Kind = "ping"
	KindPong Kind = "pong"
)

// Valid reports whether k is one of the application-facing kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindDashboardUpdate, KindTransactionAdded, KindGoalProgress,
		KindDeadlineReminder, KindMarketUpdate, KindAIInsight, KindSystemNotification:
		return true
	}
	return false
}

// Targeted reports whether messages of this kind are addressed to a single
// user (and therefore eligible for offline queueing).
func (k Kind) Targeted() bool {
	switch k {
	case KindTransactionAdded, KindGoalProgress, KindDeadlineReminder, KindAIInsight:
		return true
	}
	return false
}

// Envelope is one unit of notification content. It is immutable once
// constructed: hand out copies, never pointers into shared state.
type Envelope struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	UserID    string          `json:"user_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEnvelope builds an envelope with a generated identifier. userID is empty
// for broadcast and topic messages.
func NewEnvelope(kind Kind, userID string, payload json.RawMessage, now time.Time) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		Kind:      kind,
		UserID:    userID,
		Payload:   payload,
		CreatedAt: now,
	}
}
