package push

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"

	"ridepool/internal/modules/ride"
	"ridepool/internal/types"
)

type fakeClient struct {
	mu         sync.Mutex
	sent       []*messaging.Message
	subscribed map[string][]string
	reject     string
	sendErr    error
}

func newFakeClient() *fakeClient {
	return &fakeClient{subscribed: map[string][]string{}}
}

func (f *fakeClient) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, m)
	return "msg-1", nil
}

func (f *fakeClient) SubscribeToTopic(_ context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject != "" {
		return &messaging.TopicManagementResponse{FailureCount: 1, Errors: []*messaging.ErrorInfo{{Index: 0, Reason: f.reject}}}, nil
	}
	f.subscribed[topic] = append(f.subscribed[topic], tokens...)
	return &messaging.TopicManagementResponse{SuccessCount: len(tokens)}, nil
}

func (f *fakeClient) UnsubscribeFromTopic(_ context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subscribed, topic)
	return &messaging.TopicManagementResponse{SuccessCount: len(tokens)}, nil
}

type fakeRides map[types.ID]*ride.Ride

func (f fakeRides) Get(_ context.Context, id types.ID) (*ride.Ride, error) {
	r, ok := f[id]
	if !ok {
		return nil, ride.ErrNotFound
	}
	return r, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testRide() *ride.Ride {
	return &ride.Ride{
		ID:         "r1",
		Route:      ride.Route{From: "VIT-AP Campus", To: "Guntur"},
		Schedule:   ride.Schedule{Date: "2026-03-10", Time: "11:00 AM"},
		Vehicle:    ride.VehicleAuto,
		Host:       ride.ActorSummary{ID: "host", DisplayName: "Asha"},
		Passengers: []ride.ActorSummary{{ID: "p1", DisplayName: "Ravi"}},
		Waitlist:   []ride.ActorSummary{{ID: "w1"}},
	}
}

func TestMessageText(t *testing.T) {
	r := testRide()
	paused := testRide()
	paused.Paused = true

	cases := []struct {
		name  string
		event ride.Event
		title string
		body  string
	}{
		{"join", ride.Event{Op: ride.OpJoin, RideID: "r1", ActorID: "p1", Ride: r}, "New passenger", "Ravi joined the ride to Guntur"},
		{"join unknown", ride.Event{Op: ride.OpJoin, RideID: "r1", ActorID: "zz", Ride: r}, "New passenger", "Someone joined the ride to Guntur"},
		{"leave", ride.Event{Op: ride.OpLeave, RideID: "r1", Ride: r}, "Seat freed", "A passenger left the ride to Guntur (6 seats left)"},
		{"resign", ride.Event{Op: ride.OpResign, RideID: "r1", Ride: r}, "New host", "Asha is now hosting the ride to Guntur"},
		{"pause", ride.Event{Op: ride.OpTogglePause, RideID: "r1", Ride: paused}, "Bookings paused", "The ride to Guntur is not taking new passengers"},
		{"unpause", ride.Event{Op: ride.OpTogglePause, RideID: "r1", Ride: r}, "Bookings reopened", "The ride to Guntur is taking passengers again"},
		{"deleted", ride.Event{Op: ride.OpDelete, RideID: "r1", Deleted: true}, "Ride cancelled", "A ride you were part of has been cancelled"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := Message(tc.event)
			if m == nil {
				t.Fatalf("no message")
			}
			if m.Topic != "ride-r1" || m.Notification.Title != tc.title || m.Notification.Body != tc.body {
				t.Fatalf("got %q/%q on %s", m.Notification.Title, m.Notification.Body, m.Topic)
			}
			if m.Data["type"] != tc.event.Op || m.Data["ride_id"] != "r1" {
				t.Fatalf("unexpected data: %v", m.Data)
			}
		})
	}

	for _, op := range []string{ride.OpWaitlistJoin, ride.OpWaitlistLeave, ride.OpToggleForce} {
		if m := Message(ride.Event{Op: op, RideID: "r1", Ride: r}); m != nil {
			t.Fatalf("%s should not notify", op)
		}
	}
}

func TestRideEventSends(t *testing.T) {
	client := newFakeClient()
	svc := NewService(client, fakeRides{}, 0, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	svc.RideEvent(ctx, ride.Event{Op: ride.OpJoin, RideID: "r1", ActorID: "p1", Ride: testRide()})
	svc.RideEvent(ctx, ride.Event{Op: ride.OpWaitlistJoin, RideID: "r1", Ride: testRide()})
	cancel()
	svc.Wait()

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.sent) != 1 || client.sent[0].Data["actor_id"] != "p1" {
		t.Fatalf("unexpected sends: %+v", client.sent)
	}
}

func TestRideEventSendFailureIsLogged(t *testing.T) {
	client := newFakeClient()
	client.sendErr = errors.New("unavailable")
	svc := NewService(client, fakeRides{}, 0, quietLogger())
	svc.RideEvent(context.Background(), ride.Event{Op: ride.OpDelete, RideID: "r1", Deleted: true})
	svc.Wait()
}

func TestSubscribe(t *testing.T) {
	client := newFakeClient()
	svc := NewService(client, fakeRides{"r1": testRide()}, 0, quietLogger())
	ctx := context.Background()

	for _, uid := range []types.ID{"host", "p1", "w1"} {
		if err := svc.Subscribe(ctx, "r1", uid, "tok-"+string(uid)); err != nil {
			t.Fatalf("subscribe %s: %v", uid, err)
		}
	}
	if got := client.subscribed["ride-r1"]; len(got) != 3 {
		t.Fatalf("subscribed tokens = %v", got)
	}

	if err := svc.Subscribe(ctx, "r1", "stranger", "tok"); !errors.Is(err, ride.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.Subscribe(ctx, "r1", "p1", ""); !errors.Is(err, ride.ErrBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
	if err := svc.Subscribe(ctx, "missing", "p1", "tok"); !errors.Is(err, ride.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	client.reject = "invalid-argument"
	if err := svc.Subscribe(ctx, "r1", "p1", "tok"); !errors.Is(err, ErrTopicRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}

	if err := svc.Unsubscribe(ctx, "r1", "tok-p1"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if _, ok := client.subscribed["ride-r1"]; ok {
		t.Fatalf("topic still subscribed")
	}
}
