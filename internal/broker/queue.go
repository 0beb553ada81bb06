package broker

import (
	"github.com/finpulse/finpulse/internal/domain"
	"github.com/finpulse/finpulse/internal/metrics"
)

// offlineQueues holds one bounded FIFO buffer per user for envelopes that
// could not be delivered live. Owned by the broker actor; never accessed
// concurrently.
type offlineQueues struct {
	cap    int
	byUser map[string][]domain.Envelope
	total  int
}

func newOfflineQueues(cap int) *offlineQueues {
	return &offlineQueues{
		cap:    cap,
		byUser: make(map[string][]domain.Envelope),
	}
}

// push appends an envelope to the user's queue, evicting the oldest entry
// when the queue is at capacity (strict FIFO, one-in-one-out beyond cap).
func (q *offlineQueues) push(userID string, env domain.Envelope) {
	buf := append(q.byUser[userID], env)
	if len(buf) > q.cap {
		buf = buf[1:]
		metrics.QueueEvictions.Inc()
	} else {
		q.total++
	}
	q.byUser[userID] = buf
}

// drainAndClear returns all buffered envelopes in insertion order and deletes
// the user's queue entirely.
func (q *offlineQueues) drainAndClear(userID string) []domain.Envelope {
	buf, exists := q.byUser[userID]
	if !exists {
		return nil
	}
	delete(q.byUser, userID)
	q.total -= len(buf)
	return buf
}

func (q *offlineQueues) size(userID string) int {
	return len(q.byUser[userID])
}

func (q *offlineQueues) totalSize() int {
	return q.total
}
