package ride

import (
	"testing"
	"time"

	"ridepool/internal/types"
)

func TestEvaluate(t *testing.T) {
	male := actor("u1", types.GenderMale)
	female := actor("u2", types.GenderFemale)
	unset := actor("u3", types.GenderUnset)

	cases := []struct {
		name  string
		ride  func() *Ride
		actor Actor
		now   time.Time
		check func(t *testing.T, e Eligibility)
	}{
		{
			name:  "host manages and cannot join",
			ride:  func() *Ride { return fixtureRide(VehicleAuto) },
			actor: actor("host", types.GenderMale),
			check: func(t *testing.T, e Eligibility) {
				if !e.IsHost || !e.CanManageAsHost || e.CanJoin || e.CanLeave {
					t.Fatalf("unexpected host eligibility: %+v", e)
				}
				if e.DenyReason != DenyAlreadyMember {
					t.Fatalf("deny reason = %s", e.DenyReason)
				}
			},
		},
		{
			name:  "passenger may leave",
			ride:  func() *Ride { return fixtureRide(VehicleAuto, "u1") },
			actor: male,
			check: func(t *testing.T, e Eligibility) {
				if !e.IsPassenger || !e.CanLeave || e.CanJoin || e.CanManageAsHost {
					t.Fatalf("unexpected passenger eligibility: %+v", e)
				}
			},
		},
		{
			name:  "stranger joins open ride",
			ride:  func() *Ride { return fixtureRide(VehicleAuto) },
			actor: male,
			check: func(t *testing.T, e Eligibility) {
				if !e.CanJoin || e.LateJoin || e.DenyReason != DenyNone || e.SeatsLeft != 7 {
					t.Fatalf("unexpected eligibility: %+v", e)
				}
			},
		},
		{
			name: "ladies only blocks male",
			ride: func() *Ride {
				r := fixtureRide(VehicleAuto)
				r.LadiesOnly = true
				return r
			},
			actor: male,
			check: func(t *testing.T, e Eligibility) {
				if e.CanJoin || e.CanViewRoster || e.DenyReason != DenyGenderRestricted {
					t.Fatalf("unexpected eligibility: %+v", e)
				}
			},
		},
		{
			name: "ladies only blocks unset gender",
			ride: func() *Ride {
				r := fixtureRide(VehicleAuto)
				r.LadiesOnly = true
				return r
			},
			actor: unset,
			check: func(t *testing.T, e Eligibility) {
				if e.DenyReason != DenyGenderRestricted {
					t.Fatalf("deny reason = %s", e.DenyReason)
				}
			},
		},
		{
			name: "gender restriction wins over pause",
			ride: func() *Ride {
				r := fixtureRide(VehicleAuto)
				r.LadiesOnly = true
				r.Paused = true
				return r
			},
			actor: male,
			check: func(t *testing.T, e Eligibility) {
				if e.DenyReason != DenyGenderRestricted {
					t.Fatalf("deny reason = %s", e.DenyReason)
				}
			},
		},
		{
			name: "ladies only admits female",
			ride: func() *Ride {
				r := fixtureRide(VehicleAuto)
				r.LadiesOnly = true
				return r
			},
			actor: female,
			check: func(t *testing.T, e Eligibility) {
				if !e.CanJoin || !e.CanViewRoster {
					t.Fatalf("unexpected eligibility: %+v", e)
				}
			},
		},
		{
			name: "paused blocks joining",
			ride: func() *Ride {
				r := fixtureRide(VehicleAuto)
				r.Paused = true
				return r
			},
			actor: male,
			check: func(t *testing.T, e Eligibility) {
				if e.CanJoin || e.CanWaitlistJoin || e.DenyReason != DenyBookingPaused {
					t.Fatalf("unexpected eligibility: %+v", e)
				}
			},
		},
		{
			name:  "full ride offers waitlist",
			ride:  func() *Ride { return fixtureRide(VehicleCab, userIDs(5, "p")...) },
			actor: male,
			check: func(t *testing.T, e Eligibility) {
				if e.CanJoin || !e.CanWaitlistJoin || e.DenyReason != DenyRideFull || e.SeatsLeft != 0 {
					t.Fatalf("unexpected eligibility: %+v", e)
				}
			},
		},
		{
			name: "waitlisted actor on full ride",
			ride: func() *Ride {
				r := fixtureRide(VehicleCab, userIDs(5, "p")...)
				r.Waitlist = summaries("u1")
				return r
			},
			actor: male,
			check: func(t *testing.T, e Eligibility) {
				if !e.OnWaitlist || e.CanWaitlistJoin || !e.CanLeaveWaitlist {
					t.Fatalf("unexpected eligibility: %+v", e)
				}
			},
		},
		{
			name:  "departed ride refuses joins",
			ride:  func() *Ride { return fixtureRide(VehicleAuto) },
			actor: male,
			now:   at(11, 1),
			check: func(t *testing.T, e Eligibility) {
				if e.CanJoin || e.DenyReason != DenyDeparted {
					t.Fatalf("unexpected eligibility: %+v", e)
				}
			},
		},
		{
			name:  "exactly at departure is still open",
			ride:  func() *Ride { return fixtureRide(VehicleAuto) },
			actor: male,
			now:   at(11, 0),
			check: func(t *testing.T, e Eligibility) {
				if !e.CanJoin || e.LateJoin {
					t.Fatalf("unexpected eligibility: %+v", e)
				}
			},
		},
		{
			name: "force allow permits late join",
			ride: func() *Ride {
				r := fixtureRide(VehicleAuto)
				r.ForceAllow = true
				return r
			},
			actor: male,
			now:   at(11, 30),
			check: func(t *testing.T, e Eligibility) {
				if !e.CanJoin || !e.LateJoin {
					t.Fatalf("unexpected eligibility: %+v", e)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			now := tc.now
			if now.IsZero() {
				now = testNow()
			}
			tc.check(t, Evaluate(tc.ride(), tc.actor, now))
		})
	}
}

func TestWaitlistDenial(t *testing.T) {
	r := fixtureRide(VehicleCab, "p0")
	r.Waitlist = summaries("w0")

	if got := waitlistDenial(r, actor("host", types.GenderMale)); got != DenyAlreadyMember {
		t.Fatalf("host: %s", got)
	}
	if got := waitlistDenial(r, actor("p0", types.GenderMale)); got != DenyAlreadyMember {
		t.Fatalf("passenger: %s", got)
	}
	if got := waitlistDenial(r, actor("w0", types.GenderMale)); got != DenyAlreadyMember {
		t.Fatalf("already waitlisted: %s", got)
	}
	if got := waitlistDenial(r, actor("u1", types.GenderMale)); got != DenyNone {
		t.Fatalf("stranger: %s", got)
	}

	r.Paused = true
	if got := waitlistDenial(r, actor("u1", types.GenderMale)); got != DenyBookingPaused {
		t.Fatalf("paused: %s", got)
	}
	r.LadiesOnly = true
	if got := waitlistDenial(r, actor("u1", types.GenderMale)); got != DenyGenderRestricted {
		t.Fatalf("ladies only: %s", got)
	}
}
