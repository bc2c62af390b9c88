// Package metrics exposes prometheus instrumentation for the match server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dkovn/match-server/pkg/events"
	"github.com/dkovn/match-server/pkg/messages"
)

// Collector holds the server's counters.
type Collector struct {
	ConnectionsOpened prometheus.Counter
	ConnectionsClosed prometheus.Counter
	MatchesCreated    prometheus.Counter
	MovesProcessed    prometheus.Counter
	GamesFinished     *prometheus.CounterVec
}

// New registers the collectors on registry.
func New(registry prometheus.Registerer) *Collector {
	c := &Collector{
		ConnectionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchserver_connections_opened_total",
			Help: "Websocket connections accepted.",
		}),
		ConnectionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchserver_connections_closed_total",
			Help: "Websocket connections closed.",
		}),
		MatchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchserver_matches_created_total",
			Help: "Sessions created by the matchmaking queue.",
		}),
		MovesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchserver_moves_processed_total",
			Help: "Moves accepted by the rules oracle.",
		}),
		GamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchserver_games_finished_total",
			Help: "Sessions that reached a terminal state.",
		}, []string{"reason"}),
	}

	registry.MustRegister(
		c.ConnectionsOpened,
		c.ConnectionsClosed,
		c.MatchesCreated,
		c.MovesProcessed,
		c.GamesFinished,
	)

	return c
}

// Observe wires the collectors to the event publisher.
func (c *Collector) Observe(publisher *events.Publisher) {
	publisher.Subscribe(events.EventConnectionOpened, func(events.Event) {
		c.ConnectionsOpened.Inc()
	})
	publisher.Subscribe(events.EventConnectionClosed, func(events.Event) {
		c.ConnectionsClosed.Inc()
	})
	publisher.Subscribe(events.EventMatchCreated, func(events.Event) {
		c.MatchesCreated.Inc()
	})
	publisher.Subscribe(events.EventMoveProcessed, func(events.Event) {
		c.MovesProcessed.Inc()
	})
	publisher.Subscribe(events.EventGameOver, func(event events.Event) {
		reason := "unknown"
		if payload, ok := event.Payload.(messages.GameOverPayload); ok {
			reason = payload.Reason
		}
		c.GamesFinished.WithLabelValues(reason).Inc()
	})
}
