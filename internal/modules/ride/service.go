// README: Reservation engine; every command is an atomic transform re-checked against the latest ride.
package ride

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ridepool/internal/schedule"
	"ridepool/internal/types"
)

const DefaultMaxAttempts = 3

// PickFunc returns an index in [0, n). It chooses the successor host.
type PickFunc func(n int) int

type Service struct {
	store       Store
	log         logrus.FieldLogger
	maxAttempts int
	pick        PickFunc
	clock       func() time.Time
	events      []EventSink
}

type Option func(*Service)

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithPicker(pick PickFunc) Option {
	return func(s *Service) { s.pick = pick }
}

// WithClock sets the source of "now". Its location is the timezone ride
// schedules are read in.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		s.clock = func() time.Time { return time.Now().In(loc) }
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		log:         logrus.StandardLogger(),
		maxAttempts: DefaultMaxAttempts,
		pick:        rand.Intn,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateCommand struct {
	Host       Actor
	From       string
	To         string
	Date       string
	Hour       int
	Minute     int
	Meridiem   string
	Vehicle    Vehicle
	LadiesOnly bool
}

type JoinCommand struct {
	RideID types.ID
	Actor  Actor
}

type WaitlistCommand struct {
	RideID types.ID
	Actor  Actor
}

type LeaveCommand struct {
	RideID  types.ID
	ActorID types.ID
}

type RemovePassengerCommand struct {
	RideID      types.ID
	HostID      types.ID
	PassengerID types.ID
}

// HostCommand is shared by the host-only controls.
type HostCommand struct {
	RideID types.ID
	HostID types.ID
}

type ResignResult struct {
	Deleted bool
	NewHost *ActorSummary
}

// Now is the engine clock, in the configured schedule timezone.
func (s *Service) Now() time.Time {
	return s.clock()
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Ride, error) {
	if cmd.Host.ID == "" {
		return nil, fmt.Errorf("%w: missing host", ErrBadRequest)
	}
	if !IsKnownLocation(cmd.From) || !IsKnownLocation(cmd.To) {
		return nil, fmt.Errorf("%w: unknown location", ErrBadRequest)
	}
	if cmd.From == cmd.To {
		return nil, fmt.Errorf("%w: from and to must differ", ErrBadRequest)
	}
	if Capacity(cmd.Vehicle) == 0 {
		return nil, fmt.Errorf("%w: unknown vehicle %q", ErrBadRequest, cmd.Vehicle)
	}
	clock, err := schedule.FormatClock(cmd.Hour, cmd.Minute, cmd.Meridiem)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	date := strings.TrimSpace(cmd.Date)
	now := s.clock()
	departure, err := schedule.ToInstant(date, clock, now.Location())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if departure.Before(now) {
		return nil, fmt.Errorf("%w: departure is in the past", ErrBadRequest)
	}

	r := &Ride{
		ID:       types.NewID(),
		Route:    Route{From: cmd.From, To: cmd.To},
		Schedule: Schedule{Date: date, Time: clock},
		Vehicle:  cmd.Vehicle,
		Host:     cmd.Host.ActorSummary,
		// Only female hosts may publish a ladies-only ride.
		LadiesOnly: cmd.LadiesOnly && cmd.Host.Gender == types.GenderFemale,
		CreatedAt:  now,
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"ride_id": r.ID, "actor_id": r.Host.ID, "op": "create"}).Info("ride created")
	return r, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Ride, error) {
	return s.store.Get(ctx, id)
}

// Evaluate loads the ride and reports what actor may do with it now.
func (s *Service) Evaluate(ctx context.Context, id types.ID, actor Actor) (Eligibility, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return Eligibility{}, err
	}
	return Evaluate(r, actor, s.clock()), nil
}

func (s *Service) View(ctx context.Context, id types.ID, viewer Actor) (View, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	return NewView(r, viewer, s.clock()), nil
}

// Join seats the actor. Joining twice is a no-op.
func (s *Service) Join(ctx context.Context, cmd JoinCommand) (*Ride, error) {
	if cmd.Actor.ID == "" {
		return nil, ErrBadRequest
	}
	r, _, err := s.mutate(ctx, cmd.RideID, cmd.Actor.ID, OpJoin, func(r *Ride) (Mutation, error) {
		if r.IsPassenger(cmd.Actor.ID) {
			return MutationNone, nil
		}
		e := Evaluate(r, cmd.Actor, s.clock())
		if !e.CanJoin {
			return MutationNone, notEligible(e.DenyReason)
		}
		r.Passengers = append(r.Passengers, cmd.Actor.ActorSummary)
		r.Waitlist = without(r.Waitlist, cmd.Actor.ID)
		return MutationWrite, nil
	})
	return r, err
}

// JoinWaitlist appends the actor to the end of the waitlist.
func (s *Service) JoinWaitlist(ctx context.Context, cmd WaitlistCommand) (*Ride, error) {
	if cmd.Actor.ID == "" {
		return nil, ErrBadRequest
	}
	r, _, err := s.mutate(ctx, cmd.RideID, cmd.Actor.ID, OpWaitlistJoin, func(r *Ride) (Mutation, error) {
		if reason := waitlistDenial(r, cmd.Actor); reason != DenyNone {
			return MutationNone, notEligible(reason)
		}
		r.Waitlist = append(r.Waitlist, cmd.Actor.ActorSummary)
		return MutationWrite, nil
	})
	return r, err
}

func (s *Service) LeaveWaitlist(ctx context.Context, cmd LeaveCommand) (*Ride, error) {
	r, _, err := s.mutate(ctx, cmd.RideID, cmd.ActorID, OpWaitlistLeave, func(r *Ride) (Mutation, error) {
		if !r.OnWaitlist(cmd.ActorID) {
			return MutationNone, nil
		}
		r.Waitlist = without(r.Waitlist, cmd.ActorID)
		return MutationWrite, nil
	})
	return r, err
}

// Leave gives up a seat. The freed seat is not offered to the waitlist.
func (s *Service) Leave(ctx context.Context, cmd LeaveCommand) (*Ride, error) {
	r, _, err := s.mutate(ctx, cmd.RideID, cmd.ActorID, OpLeave, func(r *Ride) (Mutation, error) {
		if !r.IsPassenger(cmd.ActorID) {
			return MutationNone, nil
		}
		r.Passengers = without(r.Passengers, cmd.ActorID)
		return MutationWrite, nil
	})
	return r, err
}

func (s *Service) RemovePassenger(ctx context.Context, cmd RemovePassengerCommand) (*Ride, error) {
	r, _, err := s.mutate(ctx, cmd.RideID, cmd.HostID, OpRemovePassenger, func(r *Ride) (Mutation, error) {
		if !r.IsHost(cmd.HostID) {
			return MutationNone, ErrForbidden
		}
		if !r.IsPassenger(cmd.PassengerID) {
			return MutationNone, nil
		}
		r.Passengers = without(r.Passengers, cmd.PassengerID)
		return MutationWrite, nil
	})
	return r, err
}

// ResignHost hands the ride to a random passenger, or deletes it when there
// is nobody to take over. The departing host is never kept as a passenger.
func (s *Service) ResignHost(ctx context.Context, cmd HostCommand) (ResignResult, error) {
	var res ResignResult
	_, _, err := s.mutate(ctx, cmd.RideID, cmd.HostID, OpResign, func(r *Ride) (Mutation, error) {
		res = ResignResult{}
		if !r.IsHost(cmd.HostID) {
			return MutationNone, ErrForbidden
		}
		if len(r.Passengers) == 0 {
			res.Deleted = true
			return MutationDelete, nil
		}
		i := s.pick(len(r.Passengers))
		if i < 0 || i >= len(r.Passengers) {
			i = 0
		}
		successor := r.Passengers[i]
		r.Passengers = without(r.Passengers, successor.ID)
		r.Host = successor
		res.NewHost = &successor
		return MutationWrite, nil
	})
	if err != nil {
		return ResignResult{}, err
	}
	return res, nil
}

// TogglePause flips the pause flag and returns the new value.
func (s *Service) TogglePause(ctx context.Context, cmd HostCommand) (bool, error) {
	r, _, err := s.mutate(ctx, cmd.RideID, cmd.HostID, OpTogglePause, func(r *Ride) (Mutation, error) {
		if !r.IsHost(cmd.HostID) {
			return MutationNone, ErrForbidden
		}
		r.Paused = !r.Paused
		return MutationWrite, nil
	})
	if err != nil {
		return false, err
	}
	return r.Paused, nil
}

// ToggleForceAllow flips late joining and returns the new value.
func (s *Service) ToggleForceAllow(ctx context.Context, cmd HostCommand) (bool, error) {
	r, _, err := s.mutate(ctx, cmd.RideID, cmd.HostID, OpToggleForce, func(r *Ride) (Mutation, error) {
		if !r.IsHost(cmd.HostID) {
			return MutationNone, ErrForbidden
		}
		r.ForceAllow = !r.ForceAllow
		return MutationWrite, nil
	})
	if err != nil {
		return false, err
	}
	return r.ForceAllow, nil
}

func (s *Service) Delete(ctx context.Context, cmd HostCommand) error {
	_, _, err := s.mutate(ctx, cmd.RideID, cmd.HostID, OpDelete, func(r *Ride) (Mutation, error) {
		if !r.IsHost(cmd.HostID) {
			return MutationNone, ErrForbidden
		}
		return MutationDelete, nil
	})
	return err
}

// mutate runs fn through the store, retrying version conflicts up to
// maxAttempts times.
func (s *Service) mutate(ctx context.Context, id, actorID types.ID, op string, fn TransformFunc) (*Ride, Mutation, error) {
	if id == "" {
		return nil, MutationNone, ErrBadRequest
	}
	fields := logrus.Fields{"ride_id": id, "actor_id": actorID, "op": op}
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, MutationNone, err
		}
		r, m, err := s.store.Update(ctx, id, fn)
		if errors.Is(err, ErrConflict) {
			s.log.WithFields(fields).WithField("attempt", attempt).Debug("ride version conflict")
			continue
		}
		if err != nil {
			return nil, MutationNone, err
		}
		if m != MutationNone {
			s.log.WithFields(fields).WithField("attempt", attempt).Info("ride updated")
			s.emit(ctx, op, id, actorID, r, m)
		}
		return r, m, nil
	}
	s.log.WithFields(fields).Warn("ride update gave up after conflicts")
	return nil, MutationNone, ErrConflict
}
