// README: Firebase Cloud Messaging fan-out; ride events are pushed to a per-ride topic that member devices subscribe to.
package push

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"

	"ridepool/internal/modules/ride"
	"ridepool/internal/types"
)

// Client is the subset of *messaging.Client the service needs.
type Client interface {
	Send(ctx context.Context, m *messaging.Message) (string, error)
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
	UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
}

type Rides interface {
	Get(ctx context.Context, id types.ID) (*ride.Ride, error)
}

var ErrTopicRejected = errors.New("topic request rejected")

const DefaultTimeout = 5 * time.Second

type Service struct {
	client  Client
	rides   Rides
	log     logrus.FieldLogger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewService(client Client, rides Rides, timeout time.Duration, log logrus.FieldLogger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{client: client, rides: rides, log: log, timeout: timeout}
}

// Topic is the FCM topic carrying one ride's events.
func Topic(id types.ID) string {
	return "ride-" + string(id)
}

// Subscribe registers a device of a ride member for that ride's events.
func (s *Service) Subscribe(ctx context.Context, rideID, actorID types.ID, token string) error {
	if err := s.checkMember(ctx, rideID, actorID, token); err != nil {
		return err
	}
	res, err := s.client.SubscribeToTopic(ctx, []string{token}, Topic(rideID))
	return topicResult("subscribe", rideID, res, err)
}

// Unsubscribe is allowed for anyone holding the token, member or not.
func (s *Service) Unsubscribe(ctx context.Context, rideID types.ID, token string) error {
	if token == "" {
		return fmt.Errorf("%w: device token required", ride.ErrBadRequest)
	}
	res, err := s.client.UnsubscribeFromTopic(ctx, []string{token}, Topic(rideID))
	return topicResult("unsubscribe", rideID, res, err)
}

func (s *Service) checkMember(ctx context.Context, rideID, actorID types.ID, token string) error {
	if token == "" {
		return fmt.Errorf("%w: device token required", ride.ErrBadRequest)
	}
	r, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return err
	}
	if !r.IsMember(actorID) && !r.OnWaitlist(actorID) {
		return ride.ErrForbidden
	}
	return nil
}

func topicResult(op string, rideID types.ID, res *messaging.TopicManagementResponse, err error) error {
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, Topic(rideID), err)
	}
	if res != nil && res.FailureCount > 0 {
		reason := "unknown"
		if len(res.Errors) > 0 && res.Errors[0] != nil {
			reason = res.Errors[0].Reason
		}
		return fmt.Errorf("%s %s: %w: %s", op, Topic(rideID), ErrTopicRejected, reason)
	}
	return nil
}

// RideEvent implements ride.EventSink. Sends run in the background and
// outlive the request that caused them, bounded by the service timeout.
func (s *Service) RideEvent(ctx context.Context, e ride.Event) {
	msg := Message(e)
	if msg == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		fields := logrus.Fields{"ride_id": e.RideID, "op": e.Op}
		id, err := s.client.Send(sendCtx, msg)
		if err != nil {
			s.log.WithFields(fields).WithError(err).Warn("push failed")
			return
		}
		s.log.WithFields(fields).WithField("message_id", id).Debug("push sent")
	}()
}

// Wait blocks until in-flight sends finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Message builds the notification for an event, or nil for events members
// are not told about.
func Message(e ride.Event) *messaging.Message {
	title, body := text(e)
	if title == "" {
		return nil
	}
	data := map[string]string{
		"type":     e.Op,
		"ride_id":  string(e.RideID),
		"actor_id": string(e.ActorID),
	}
	if e.Ride != nil {
		data["seats_left"] = strconv.Itoa(e.Ride.SeatsLeft())
		data["host_id"] = string(e.Ride.Host.ID)
	}
	return &messaging.Message{
		Topic:        Topic(e.RideID),
		Data:         data,
		Notification: &messaging.Notification{Title: title, Body: body},
		Android:      &messaging.AndroidConfig{Priority: "high"},
	}
}

func text(e ride.Event) (string, string) {
	if e.Deleted {
		return "Ride cancelled", "A ride you were part of has been cancelled"
	}
	r := e.Ride
	if r == nil {
		return "", ""
	}
	dest := r.Route.To
	switch e.Op {
	case ride.OpJoin:
		name := "Someone"
		for _, p := range r.Passengers {
			if p.ID == e.ActorID && p.DisplayName != "" {
				name = p.DisplayName
			}
		}
		return "New passenger", fmt.Sprintf("%s joined the ride to %s", name, dest)
	case ride.OpLeave:
		return "Seat freed", fmt.Sprintf("A passenger left the ride to %s (%d seats left)", dest, r.SeatsLeft())
	case ride.OpRemovePassenger:
		return "Roster updated", fmt.Sprintf("The host updated the passengers for the ride to %s", dest)
	case ride.OpResign:
		return "New host", fmt.Sprintf("%s is now hosting the ride to %s", r.Host.DisplayName, dest)
	case ride.OpTogglePause:
		if r.Paused {
			return "Bookings paused", fmt.Sprintf("The ride to %s is not taking new passengers", dest)
		}
		return "Bookings reopened", fmt.Sprintf("The ride to %s is taking passengers again", dest)
	default:
		return "", ""
	}
}
