package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindValid(t *testing.T) {
	valid := []Kind{
		KindDashboardUpdate, KindTransactionAdded, KindGoalProgress,
		KindDeadlineReminder, KindMarketUpdate, KindAIInsight, KindSystemNotification,
	}
	for _, k := range valid {
		assert.True(t, k.Valid(), "kind %q should be valid", k)
	}

	assert.False(t, KindPing.Valid(), "ping is internal, not application-facing")
	assert.False(t, KindPong.Valid(), "pong is internal, not application-facing")
	assert.False(t, Kind("").Valid())
	assert.False(t, Kind("portfolio_exploded").Valid())
}

func TestKindTargeted(t *testing.T) {
	targeted := []Kind{KindTransactionAdded, KindGoalProgress, KindDeadlineReminder, KindAIInsight}
	for _, k := range targeted {
		assert.True(t, k.Targeted(), "kind %q should be targeted", k)
	}

	fanOut := []Kind{KindDashboardUpdate, KindMarketUpdate, KindSystemNotification, KindPing, KindPong}
	for _, k := range fanOut {
		assert.False(t, k.Targeted(), "kind %q should not be targeted", k)
	}
}

func TestNewEnvelope(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	payload := json.RawMessage(`{"amount":42.5}`)

	env := NewEnvelope(KindTransactionAdded, "alice", payload, now)

	assert.NotEmpty(t, env.ID)
	assert.Equal(t, KindTransactionAdded, env.Kind)
	assert.Equal(t, "alice", env.UserID)
	assert.Equal(t, payload, env.Payload)
	assert.Equal(t, now, env.CreatedAt)

	other := NewEnvelope(KindTransactionAdded, "alice", payload, now)
	assert.NotEqual(t, env.ID, other.ID, "each envelope gets a fresh identifier")
}

func TestEnvelopeJSONOmitsEmptyFields(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env := NewEnvelope(KindSystemNotification, "", nil, now)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "user_id")
	assert.NotContains(t, string(data), "payload")
	assert.Contains(t, string(data), `"kind":"system_notification"`)
}
