package ride

import (
	"testing"
	"time"

	"ridepool/internal/types"
)

func TestVisibleFiltersAndOrders(t *testing.T) {
	now := testNow()
	mk := func(id, from, to, clock string, age time.Duration) *Ride {
		r := fixtureRide(VehicleAuto)
		r.ID = types.ID(id)
		r.Route = Route{From: from, To: to}
		r.Schedule.Time = clock
		r.CreatedAt = now.Add(-age)
		return r
	}
	rides := []*Ride{
		mk("old", "VIT-AP Campus", "Guntur", "11:00 AM", 3*time.Hour),
		mk("expired", "VIT-AP Campus", "Guntur", "07:30 AM", time.Hour),
		mk("departed", "Guntur", "PNBS Bus Stand", "08:30 AM", 2*time.Hour),
		mk("loop", "Guntur", "Guntur", "11:00 AM", time.Minute),
		mk("new", "Gannavaram Airport", "VIT-AP Campus", "11:00 AM", time.Minute),
		mk("malformed", "VIT-AP Campus", "Guntur", "25:99", 4*time.Hour),
		nil,
	}

	got := Visible(rides, now, FeedFilter{})
	want := []types.ID{"new", "departed", "old", "malformed"}
	if len(got) != len(want) {
		t.Fatalf("got %d rides, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}

	got = Visible(rides, now, FeedFilter{Location: "Guntur"})
	if len(got) != 3 {
		t.Fatalf("location filter: got %d rides, want 3", len(got))
	}

	got = Visible(rides, now, FeedFilter{Date: "2026-03-11"})
	if len(got) != 0 {
		t.Fatalf("date filter: got %d rides, want 0", len(got))
	}
}

func TestVisibleKeepsTiesInInputOrder(t *testing.T) {
	a, b := fixtureRide(VehicleAuto), fixtureRide(VehicleAuto)
	a.ID, b.ID = "a", "b"
	b.CreatedAt = a.CreatedAt

	got := Visible([]*Ride{a, b}, testNow(), FeedFilter{})
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("tie order changed: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestNewViewHidesRosterAndWaitlist(t *testing.T) {
	r := fixtureRide(VehicleCab, "p0", "p1")
	r.Waitlist = summaries("w0")
	r.LadiesOnly = true

	v := NewView(r, actor("u1", types.GenderMale), testNow())
	if v.Passengers != nil || v.Waitlist != nil {
		t.Fatalf("restricted viewer saw roster: %+v", v)
	}
	if v.SeatsLeft != 3 || v.Capacity != 6 {
		t.Fatalf("seat counts: %+v", v)
	}

	v = NewView(r, actor("u2", types.GenderFemale), testNow())
	if len(v.Passengers) != 2 || v.Waitlist != nil {
		t.Fatalf("eligible viewer: passengers=%d waitlist=%d", len(v.Passengers), len(v.Waitlist))
	}

	v = NewView(r, actor("host", types.GenderFemale), testNow())
	if len(v.Waitlist) != 1 || !v.Eligibility.IsHost {
		t.Fatalf("host view: %+v", v)
	}
}
