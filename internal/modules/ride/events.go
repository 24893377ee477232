package ride

import (
	"context"

	"ridepool/internal/types"
)

// Operation names, as logged and as published in events.
const (
	OpJoin            = "join"
	OpWaitlistJoin    = "waitlist_join"
	OpWaitlistLeave   = "waitlist_leave"
	OpLeave           = "leave"
	OpRemovePassenger = "remove_passenger"
	OpResign          = "resign"
	OpTogglePause     = "toggle_pause"
	OpToggleForce     = "toggle_force_allow"
	OpDelete          = "delete"
)

// Event is a committed mutation. Ride is the state after the write and is
// nil when Deleted is set.
type Event struct {
	Op      string
	RideID  types.ID
	ActorID types.ID
	Ride    *Ride
	Deleted bool
}

// EventSink receives events after commit. Implementations must not block.
type EventSink interface {
	RideEvent(ctx context.Context, e Event)
}

// WithEvents adds sinks; each event goes to every sink in order.
func WithEvents(sinks ...EventSink) Option {
	return func(s *Service) {
		for _, sink := range sinks {
			if sink != nil {
				s.events = append(s.events, sink)
			}
		}
	}
}

func (s *Service) emit(ctx context.Context, op string, id, actorID types.ID, r *Ride, m Mutation) {
	if len(s.events) == 0 || m == MutationNone {
		return
	}
	e := Event{Op: op, RideID: id, ActorID: actorID, Deleted: m == MutationDelete}
	if r != nil {
		e.Ride = r.Clone()
	}
	for _, sink := range s.events {
		sink.RideEvent(ctx, e)
	}
}
