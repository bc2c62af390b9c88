// Package matchmaking pairs waiting connections into sessions in FIFO order
// of readiness.
package matchmaking

import (
	"sync"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dkovn/match-server/pkg/game"
	"github.com/dkovn/match-server/pkg/messages"
)

type pendingEntry struct {
	client     game.Client
	enqueuedAt time.Time
	seq        uint64 // insertion order, tie-break for equal timestamps
}

// Queue holds connections waiting for an opponent. Draining happens eagerly
// after every enqueue and on a periodic tick, so pairing latency stays bounded
// even when an eager drain loses a race. The queue never errors; it only
// delays.
type Queue struct {
	mu      sync.Mutex
	pending []pendingEntry
	seq     uint64

	registry *game.Registry
	logger   *zap.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewQueue creates an empty queue draining into registry.
func NewQueue(registry *game.Registry, logger *zap.Logger) *Queue {
	return &Queue{
		registry: registry,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Enqueue inserts the client into the pending set and acknowledges with a
// "searching" message. A client already in a live session or already pending
// is a no-op, which makes duplicate ready-signals harmless.
func (q *Queue) Enqueue(c game.Client) {
	if q.registry.InSession(c.ConnID()) {
		return
	}

	q.mu.Lock()
	for _, entry := range q.pending {
		if entry.client.ConnID() == c.ConnID() {
			q.mu.Unlock()
			return
		}
	}
	q.seq++
	q.pending = append(q.pending, pendingEntry{
		client:     c,
		enqueuedAt: time.Now(),
		seq:        q.seq,
	})
	q.mu.Unlock()

	c.SendJSON(messages.OutboundMessage{
		Type: messages.TypeMatchmaking,
		Payload: messages.MatchmakingPayload{
			Status:  "searching",
			Message: "Waiting for an opponent",
		},
	})

	q.Drain()
}

// Remove drops any pending entry for the connection.
func (q *Queue) Remove(connID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = pie.FilterNot(q.pending, func(entry pendingEntry) bool {
		return entry.client.ConnID() == connID
	})
}

// PendingCount returns the number of waiting connections.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain repeatedly pairs the two oldest pending entries into new sessions
// until fewer than two remain. Pair extraction is atomic with respect to
// concurrent enqueues, so no connection is matched twice or dropped. The
// older entry of each pair becomes white.
func (q *Queue) Drain() {
	q.mu.Lock()
	q.pending = pie.SortStableUsing(q.pending, func(a, b pendingEntry) bool {
		if a.enqueuedAt.Equal(b.enqueuedAt) {
			return a.seq < b.seq
		}
		return a.enqueuedAt.Before(b.enqueuedAt)
	})

	var pairs [][2]pendingEntry
	for len(q.pending) >= 2 {
		pairs = append(pairs, [2]pendingEntry{q.pending[0], q.pending[1]})
		q.pending = q.pending[2:]
	}
	q.mu.Unlock()

	for _, pair := range pairs {
		if _, err := q.registry.CreateSession(pair[0].client, pair[1].client); err != nil {
			// Registry refused the pairing. Keep whoever is still free
			// waiting, with the original enqueue time.
			q.logger.Warn("pairing rejected by registry", zap.Error(err))
			q.requeue(pair[0])
			q.requeue(pair[1])
		}
	}
}

func (q *Queue) requeue(entry pendingEntry) {
	if q.registry.InSession(entry.client.ConnID()) {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, existing := range q.pending {
		if existing.client.ConnID() == entry.client.ConnID() {
			return
		}
	}
	q.pending = append(q.pending, entry)
}

// Run drives the periodic drain tick until Stop is called.
func (q *Queue) Run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			q.Drain()
		case <-q.done:
			return
		}
	}
}

// Stop ends the periodic drain. Pending entries are not flushed.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.done)
	})
}
