package app

import (
	"fmt"
	"log/slog"

	"trivia-live-service/internal/protocol"
)

// Dispatcher fans events out to the connections of a competition room.
//
// Delivery is best-effort: closed connections are skipped and a failed send is
// logged without affecting the remaining connections. Clients that miss an
// event recover from the snapshot sent on (re)join. Per-room ordering comes
// from callers broadcasting while holding the competition's lock.
type Dispatcher struct {
	registry *Registry
	log      *slog.Logger
}

func NewDispatcher(registry *Registry, log *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, log: log}
}

// Broadcast encodes evt once and queues it on every open connection of the
// competition's room. It returns the number of connections that accepted it.
func (d *Dispatcher) Broadcast(competitionID int64, evt protocol.Event) int {
	frame, err := protocol.Encode(evt)
	if err != nil {
		d.log.Error("encode broadcast event",
			slog.Int64("competition_id", competitionID),
			slog.String("event", evt.EventType()),
			slog.Any("error", err))
		return 0
	}

	delivered := 0
	for _, conn := range d.registry.BroadcastTargets(competitionID) {
		if !conn.Open() {
			continue
		}
		if err := conn.Send(frame); err != nil {
			d.log.Warn("broadcast send failed",
				slog.Int64("competition_id", competitionID),
				slog.String("conn_id", conn.ID()),
				slog.String("event", evt.EventType()),
				slog.Any("error", err))
			continue
		}
		delivered++
	}
	return delivered
}

// Send delivers evt to a single connection.
func (d *Dispatcher) Send(conn Conn, evt protocol.Event) error {
	frame, err := protocol.Encode(evt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", evt.EventType(), err)
	}
	return conn.Send(frame)
}
