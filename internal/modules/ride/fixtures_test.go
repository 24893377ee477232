package ride

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"ridepool/internal/types"
)

var testLoc = time.FixedZone("IST", 5*3600+1800)

// testNow is 09:00 on the day every fixture ride departs at 11:00 AM.
func testNow() time.Time {
	return time.Date(2026, 3, 10, 9, 0, 0, 0, testLoc)
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, testLoc)
}

func actor(id string, g types.Gender) Actor {
	return Actor{
		ActorSummary: ActorSummary{ID: types.ID(id), DisplayName: "User " + id},
		Gender:       g,
	}
}

func summaries(ids ...string) []ActorSummary {
	out := make([]ActorSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, ActorSummary{ID: types.ID(id), DisplayName: "User " + id})
	}
	return out
}

func fixtureRide(v Vehicle, passengers ...string) *Ride {
	return &Ride{
		ID:         "r1",
		Route:      Route{From: "VIT-AP Campus", To: "Guntur"},
		Schedule:   Schedule{Date: "2026-03-10", Time: "11:00 AM"},
		Vehicle:    v,
		Host:       ActorSummary{ID: "host", DisplayName: "Host Person"},
		Passengers: summaries(passengers...),
		CreatedAt:  testNow().Add(-time.Hour),
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// testClock is a settable clock for single-goroutine tests.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, opts ...Option) (*Service, *testClock) {
	t.Helper()
	clock := &testClock{now: testNow()}
	base := []Option{WithClock(clock.Now), WithLogger(quietLogger())}
	return NewService(NewMemoryStore(), append(base, opts...)...), clock
}

func mustCreateRide(t *testing.T, svc *Service, host Actor, v Vehicle) *Ride {
	t.Helper()
	r, err := svc.Create(context.Background(), CreateCommand{
		Host:     host,
		From:     "VIT-AP Campus",
		To:       "Vijayawada Railway Station",
		Date:     "2026-03-10",
		Hour:     11,
		Minute:   0,
		Meridiem: "AM",
		Vehicle:  v,
	})
	if err != nil {
		t.Fatalf("create ride: %v", err)
	}
	return r
}

func mustJoin(t *testing.T, svc *Service, id types.ID, ids ...string) {
	t.Helper()
	for _, uid := range ids {
		if _, err := svc.Join(context.Background(), JoinCommand{RideID: id, Actor: actor(uid, types.GenderMale)}); err != nil {
			t.Fatalf("join %s: %v", uid, err)
		}
	}
}

func mustGet(t *testing.T, svc *Service, id types.ID) *Ride {
	t.Helper()
	r, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get ride: %v", err)
	}
	return r
}

func assertDenied(t *testing.T, err error, want DenyReason) {
	t.Helper()
	if !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible(%s), got %v", want, err)
	}
	if got := ReasonOf(err); got != want {
		t.Fatalf("deny reason = %s, want %s", got, want)
	}
}

func userIDs(n int, prefix string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}
