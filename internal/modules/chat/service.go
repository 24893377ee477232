// README: Chat service; every read and write is gated on the caller's ride membership.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ridepool/internal/modules/ride"
	"ridepool/internal/types"
)

// Rides is the part of the ride engine chat depends on.
type Rides interface {
	Get(ctx context.Context, id types.ID) (*ride.Ride, error)
	Active(ctx context.Context, actorID types.ID) ([]*ride.Ride, error)
	CanMessage(ctx context.Context, id, viewer, target types.ID) (*ride.Ride, error)
}

type Service struct {
	rides Rides
	store Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewService(rides Rides, store Store, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{rides: rides, store: store, log: log, now: time.Now}
}

type SendCommand struct {
	RideID types.ID
	Sender ride.ActorSummary
	Text   string
}

type PrivateCommand struct {
	RideID   types.ID
	Sender   ride.ActorSummary
	TargetID types.ID
	Text     string
}

// Contact is someone the actor shares an active ride with.
type Contact struct {
	ride.ActorSummary
	RideID types.ID `json:"ride_id"`
	From   string   `json:"from"`
	To     string   `json:"to"`
}

func (s *Service) SendGroup(ctx context.Context, cmd SendCommand) (Message, error) {
	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	if _, err := s.member(ctx, cmd.RideID, cmd.Sender.ID); err != nil {
		return Message{}, err
	}
	return s.append(ctx, GroupThread(cmd.RideID), cmd.RideID, cmd.Sender, text)
}

func (s *Service) SendPrivate(ctx context.Context, cmd PrivateCommand) (Message, error) {
	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	if cmd.TargetID == "" {
		return Message{}, ErrBadRequest
	}
	if _, err := s.rides.CanMessage(ctx, cmd.RideID, cmd.Sender.ID, cmd.TargetID); err != nil {
		return Message{}, err
	}
	return s.append(ctx, PrivateThread(cmd.Sender.ID, cmd.TargetID), cmd.RideID, cmd.Sender, text)
}

func (s *Service) ListGroup(ctx context.Context, rideID, viewerID types.ID) ([]Message, error) {
	if _, err := s.member(ctx, rideID, viewerID); err != nil {
		return nil, err
	}
	return s.store.List(ctx, GroupThread(rideID), DefaultHistory)
}

func (s *Service) ListPrivate(ctx context.Context, rideID, viewerID, targetID types.ID) ([]Message, error) {
	if targetID == "" {
		return nil, ErrBadRequest
	}
	if _, err := s.rides.CanMessage(ctx, rideID, viewerID, targetID); err != nil {
		return nil, err
	}
	return s.store.List(ctx, PrivateThread(viewerID, targetID), DefaultHistory)
}

// Contacts lists the other members of the actor's active rides, each person
// once, attributed to the first ride they were found on.
func (s *Service) Contacts(ctx context.Context, actorID types.ID) ([]Contact, error) {
	rides, err := s.rides.Active(ctx, actorID)
	if err != nil {
		return nil, err
	}
	seen := map[types.ID]bool{actorID: true}
	var out []Contact
	for _, r := range rides {
		members := append([]ride.ActorSummary{r.Host}, r.Passengers...)
		for _, m := range members {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			out = append(out, Contact{ActorSummary: m, RideID: r.ID, From: r.Route.From, To: r.Route.To})
		}
	}
	return out, nil
}

// MyRides is the actor's active rides, each of which has a group thread.
func (s *Service) MyRides(ctx context.Context, actorID types.ID) ([]*ride.Ride, error) {
	return s.rides.Active(ctx, actorID)
}

func (s *Service) member(ctx context.Context, rideID, actorID types.ID) (*ride.Ride, error) {
	r, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !r.IsMember(actorID) {
		return nil, &ride.NotEligibleError{Reason: ride.DenyChatLocked}
	}
	return r, nil
}

func (s *Service) append(ctx context.Context, t Thread, rideID types.ID, sender ride.ActorSummary, text string) (Message, error) {
	m, err := s.store.Append(ctx, t, Message{
		Thread:     t.ID(),
		RideID:     rideID,
		SenderID:   sender.ID,
		SenderName: shortName(sender.DisplayName),
		Text:       text,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return Message{}, err
	}
	s.log.WithFields(logrus.Fields{"ride_id": rideID, "actor_id": sender.ID, "thread": t.ID()}).Debug("message sent")
	return m, nil
}
