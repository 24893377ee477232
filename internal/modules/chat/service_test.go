// README: Chat service tests against a ride engine on the in-memory store.
package chat

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"ridepool/internal/modules/ride"
	"ridepool/internal/types"
)

type fixture struct {
	rides   *ride.Service
	chat    *Service
	cleanup *Cleanup
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))}
	messages := NewMemoryStore()
	f.cleanup = NewCleanup(messages, log)
	f.rides = ride.NewService(ride.NewMemoryStore(),
		ride.WithClock(func() time.Time { return f.now }),
		ride.WithLogger(log),
		ride.WithEvents(f.cleanup),
	)
	f.chat = NewService(f.rides, messages, log)
	return f
}

func person(id, name string) ride.Actor {
	return ride.Actor{
		ActorSummary: ride.ActorSummary{ID: types.ID(id), DisplayName: name},
		Gender:       types.GenderMale,
	}
}

func (f *fixture) createRide(t *testing.T, host ride.Actor, to string, passengers ...ride.Actor) *ride.Ride {
	t.Helper()
	ctx := context.Background()
	r, err := f.rides.Create(ctx, ride.CreateCommand{
		Host: host, From: "VIT-AP Campus", To: to, Date: "2026-03-10",
		Hour: 11, Meridiem: "AM", Vehicle: ride.VehicleAuto,
	})
	if err != nil {
		t.Fatalf("create ride: %v", err)
	}
	for _, p := range passengers {
		if _, err := f.rides.Join(ctx, ride.JoinCommand{RideID: r.ID, Actor: p}); err != nil {
			t.Fatalf("join %s: %v", p.ID, err)
		}
	}
	return r
}

func assertLocked(t *testing.T, err error, want ride.DenyReason) {
	t.Helper()
	if !errors.Is(err, ride.ErrNotEligible) || ride.ReasonOf(err) != want {
		t.Fatalf("expected %s, got %v", want, err)
	}
}

func TestThreadKeys(t *testing.T) {
	if PrivateThread("b", "a") != PrivateThread("a", "b") {
		t.Fatalf("private thread is not symmetric")
	}
	if got := PrivateThread("zed", "amy").ID(); got != "amy_zed" {
		t.Fatalf("private thread id = %s", got)
	}
	if got := GroupThread("r1").ID(); got != "ride:r1" {
		t.Fatalf("group thread id = %s", got)
	}
}

func TestShortName(t *testing.T) {
	cases := map[string]string{
		"Asha Rao":        "Asha",
		"  Ravi  Kumar  ": "Ravi",
		"Mononym":         "Mononym",
		"":                "User",
	}
	for in, want := range cases {
		if got := shortName(in); got != want {
			t.Errorf("shortName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGroupChatRequiresMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	host, rider, outsider := person("h", "Host Person"), person("p", "Ravi Kumar"), person("x", "Out Sider")
	r := f.createRide(t, host, "Guntur", rider)

	if _, err := f.chat.SendGroup(ctx, SendCommand{RideID: r.ID, Sender: rider.ActorSummary, Text: "   "}); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	_, err := f.chat.SendGroup(ctx, SendCommand{RideID: r.ID, Sender: outsider.ActorSummary, Text: "hi"})
	assertLocked(t, err, ride.DenyChatLocked)
	_, err = f.chat.ListGroup(ctx, r.ID, outsider.ID)
	assertLocked(t, err, ride.DenyChatLocked)

	for _, m := range []struct {
		who  ride.Actor
		text string
	}{{host, "leaving at 11"}, {rider, " see you at the gate "}} {
		if _, err := f.chat.SendGroup(ctx, SendCommand{RideID: r.ID, Sender: m.who.ActorSummary, Text: m.text}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	msgs, err := f.chat.ListGroup(ctx, r.ID, host.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].SenderName != "Host" || msgs[1].Text != "see you at the gate" || msgs[1].SenderName != "Ravi" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	if msgs[0].Thread != "ride:"+string(r.ID) {
		t.Fatalf("thread = %s", msgs[0].Thread)
	}

	if _, err := f.chat.ListGroup(ctx, "missing", host.ID); !errors.Is(err, ride.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPrivateChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	host, a, b := person("h", "Host"), person("a", "Amy"), person("b", "Ben")
	r := f.createRide(t, host, "Guntur", a, b)

	_, err := f.chat.SendPrivate(ctx, PrivateCommand{RideID: r.ID, Sender: a.ActorSummary, TargetID: a.ID, Text: "me"})
	assertLocked(t, err, ride.DenySelfMessage)
	_, err = f.chat.SendPrivate(ctx, PrivateCommand{RideID: r.ID, Sender: person("x", "X").ActorSummary, TargetID: a.ID, Text: "hey"})
	assertLocked(t, err, ride.DenyChatLocked)

	if _, err := f.chat.SendPrivate(ctx, PrivateCommand{RideID: r.ID, Sender: a.ActorSummary, TargetID: b.ID, Text: "hi ben"}); err != nil {
		t.Fatalf("send a->b: %v", err)
	}
	if _, err := f.chat.SendPrivate(ctx, PrivateCommand{RideID: r.ID, Sender: b.ActorSummary, TargetID: a.ID, Text: "hi amy"}); err != nil {
		t.Fatalf("send b->a: %v", err)
	}

	msgs, err := f.chat.ListPrivate(ctx, r.ID, a.ID, b.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].SenderID != a.ID || msgs[1].SenderID != b.ID {
		t.Fatalf("unexpected messages: %+v", msgs)
	}

	other, err := f.chat.ListPrivate(ctx, r.ID, a.ID, host.ID)
	if err != nil {
		t.Fatalf("list other thread: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("threads leaked: %+v", other)
	}
}

func TestContactsAndMyRides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	me, h1, h2, p := person("me", "Me"), person("h1", "H One"), person("h2", "H Two"), person("p", "Pat")

	f.createRide(t, h1, "Guntur", me, p)
	f.createRide(t, h2, "PNBS Bus Stand", me, p)
	f.createRide(t, person("h3", "Stranger"), "Guntur")

	contacts, err := f.chat.Contacts(ctx, me.ID)
	if err != nil {
		t.Fatalf("contacts: %v", err)
	}
	ids := map[types.ID]types.ID{}
	for _, c := range contacts {
		ids[c.ID] = c.RideID
	}
	if len(contacts) != 3 || ids["h1"] == "" || ids["h2"] == "" || ids["me"] != "" {
		t.Fatalf("unexpected contacts: %+v", contacts)
	}

	rides, err := f.chat.MyRides(ctx, me.ID)
	if err != nil || len(rides) != 2 {
		t.Fatalf("my rides: n=%d err=%v", len(rides), err)
	}

	// After the grace window both rides drop out of chat surfaces.
	f.now = f.now.Add(4 * time.Hour)
	contacts, err = f.chat.Contacts(ctx, me.ID)
	if err != nil {
		t.Fatalf("contacts: %v", err)
	}
	if len(contacts) != 0 {
		t.Fatalf("expired rides still produce contacts: %+v", contacts)
	}
}

func TestMemoryStoreKeepsNewest(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	th := GroupThread("r1")
	for i := 0; i < 5; i++ {
		if _, err := s.Append(ctx, th, Message{Text: string(rune('a' + i))}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	msgs, err := s.List(ctx, th, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Text != "d" || msgs[1].Text != "e" || msgs[1].ID != "5" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestMessageFromFirestore(t *testing.T) {
	at := time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC)
	m := messageFromFirestore(GroupThread("r9"), "m1", map[string]interface{}{
		"text": "hello", "senderId": "u1", "senderName": "Asha", "createdAt": at,
	})
	if m.ID != "m1" || m.RideID != "r9" || m.SenderID != "u1" || !m.CreatedAt.Equal(at) || m.Thread != "ride:r9" {
		t.Fatalf("unexpected message: %+v", m)
	}
}

func TestDeletingRideDropsGroupThread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	host, a := person("h", "Host"), person("a", "Amy")
	gone := f.createRide(t, host, "Guntur", a)
	kept := f.createRide(t, host, "PNBS Bus Stand")

	sends := []struct {
		rideID types.ID
		send   func(types.ID) error
	}{
		{gone.ID, func(id types.ID) error {
			_, err := f.chat.SendGroup(ctx, SendCommand{RideID: id, Sender: a.ActorSummary, Text: "on my way"})
			return err
		}},
		{gone.ID, func(id types.ID) error {
			_, err := f.chat.SendPrivate(ctx, PrivateCommand{RideID: id, Sender: a.ActorSummary, TargetID: host.ID, Text: "hi"})
			return err
		}},
		{kept.ID, func(id types.ID) error {
			_, err := f.chat.SendGroup(ctx, SendCommand{RideID: id, Sender: host.ActorSummary, Text: "still on"})
			return err
		}},
	}
	for _, s := range sends {
		if err := s.send(s.rideID); err != nil {
			t.Fatalf("send on %s: %v", s.rideID, err)
		}
	}

	if err := f.rides.Delete(ctx, ride.HostCommand{RideID: gone.ID, HostID: host.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	f.cleanup.Wait()

	cases := []struct {
		name   string
		thread Thread
		want   int
	}{
		{"deleted ride group", GroupThread(gone.ID), 0},
		{"other ride group", GroupThread(kept.ID), 1},
		{"private pair", PrivateThread(a.ID, host.ID), 1},
	}
	for _, tc := range cases {
		msgs, err := f.chat.store.List(ctx, tc.thread, 0)
		if err != nil {
			t.Fatalf("%s: list: %v", tc.name, err)
		}
		if len(msgs) != tc.want {
			t.Errorf("%s: %d messages, want %d", tc.name, len(msgs), tc.want)
		}
	}
}
