package matchmaking

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dkovn/match-server/pkg/events"
	"github.com/dkovn/match-server/pkg/game"
	"github.com/dkovn/match-server/pkg/messages"
)

type fakeClient struct {
	id   uuid.UUID
	mu   sync.Mutex
	msgs []messages.OutboundMessage
}

func newFakeClient() *fakeClient { return &fakeClient{id: uuid.New()} }

func (f *fakeClient) ConnID() uuid.UUID { return f.id }

func (f *fakeClient) SendJSON(v interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, v.(messages.OutboundMessage))
}

func (f *fakeClient) countOf(msgType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.msgs {
		if m.Type == msgType {
			n++
		}
	}
	return n
}

func newTestQueue() (*Queue, *game.Registry) {
	registry := game.NewRegistry(events.NewPublisher(), zap.NewNop())
	return NewQueue(registry, zap.NewNop()), registry
}

func TestEnqueueAcknowledgesSearching(t *testing.T) {
	q, _ := newTestQueue()
	a := newFakeClient()

	q.Enqueue(a)

	assert.Equal(t, 1, q.PendingCount())
	assert.Equal(t, 1, a.countOf(messages.TypeMatchmaking))
}

func TestPairingIsFIFO(t *testing.T) {
	q, registry := newTestQueue()
	a, b, c, d := newFakeClient(), newFakeClient(), newFakeClient(), newFakeClient()

	q.Enqueue(a)
	q.Enqueue(b)
	q.Enqueue(c)
	q.Enqueue(d)

	require.Equal(t, 0, q.PendingCount())
	require.Equal(t, 2, registry.SessionCount())

	first, ok := registry.Route(a.ConnID())
	require.True(t, ok)
	second, ok := registry.Route(c.ConnID())
	require.True(t, ok)
	assert.NotSame(t, first, second)

	// A arrived before B, so A is white in the first session; likewise C in
	// the second. (A,C) must never be a pair.
	white, black := first.Participants()
	assert.Equal(t, a.ConnID(), white.ConnID())
	assert.Equal(t, b.ConnID(), black.ConnID())

	white, black = second.Participants()
	assert.Equal(t, c.ConnID(), white.ConnID())
	assert.Equal(t, d.ConnID(), black.ConnID())
}

func TestDuplicateEnqueueIsIdempotent(t *testing.T) {
	q, registry := newTestQueue()
	a, b := newFakeClient(), newFakeClient()

	q.Enqueue(a)
	q.Enqueue(a)

	assert.Equal(t, 1, q.PendingCount())
	assert.Equal(t, 1, a.countOf(messages.TypeMatchmaking))

	q.Enqueue(b)

	assert.Equal(t, 1, registry.SessionCount())
	assert.Equal(t, 1, a.countOf(messages.TypeInitGame))
}

func TestEnqueueIgnoredWhileInSession(t *testing.T) {
	q, registry := newTestQueue()
	a, b := newFakeClient(), newFakeClient()

	q.Enqueue(a)
	q.Enqueue(b)
	require.Equal(t, 1, registry.SessionCount())

	q.Enqueue(a)

	assert.Equal(t, 0, q.PendingCount())
	assert.Equal(t, 1, registry.SessionCount())
	assert.Equal(t, 1, a.countOf(messages.TypeMatchmaking))
}

func TestRemoveDropsPendingEntry(t *testing.T) {
	q, registry := newTestQueue()
	a, b := newFakeClient(), newFakeClient()

	q.Enqueue(a)
	q.Remove(a.ConnID())
	require.Equal(t, 0, q.PendingCount())

	// B now waits alone; A is gone and must not be paired.
	q.Enqueue(b)
	assert.Equal(t, 1, q.PendingCount())
	assert.Equal(t, 0, registry.SessionCount())
}

func TestRunDrainsPeriodicallyAndStops(t *testing.T) {
	q, registry := newTestQueue()
	a, b := newFakeClient(), newFakeClient()

	// Insert entries directly so only the ticker can pair them.
	q.mu.Lock()
	q.pending = append(q.pending,
		pendingEntry{client: a, enqueuedAt: time.Now(), seq: 1},
		pendingEntry{client: b, enqueuedAt: time.Now(), seq: 2},
	)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.Run(5 * time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return registry.SessionCount() == 1
	}, time.Second, 5*time.Millisecond)

	q.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
