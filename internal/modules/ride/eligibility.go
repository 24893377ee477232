// README: Pure eligibility evaluation; decides which actions an actor may take on a ride right now.
package ride

import (
	"time"

	"ridepool/internal/types"
)

// Eligibility is the full permission set for one actor on one ride.
// DenyReason explains why CanJoin is false.
type Eligibility struct {
	IsHost           bool       `json:"is_host"`
	IsPassenger      bool       `json:"is_passenger"`
	OnWaitlist       bool       `json:"on_waitlist"`
	CanJoin          bool       `json:"can_join"`
	CanWaitlistJoin  bool       `json:"can_waitlist_join"`
	CanLeave         bool       `json:"can_leave"`
	CanLeaveWaitlist bool       `json:"can_leave_waitlist"`
	CanViewRoster    bool       `json:"can_view_roster"`
	CanManageAsHost  bool       `json:"can_manage_as_host"`
	LateJoin         bool       `json:"late_join"`
	SeatsLeft        int        `json:"seats_left"`
	DenyReason       DenyReason `json:"deny_reason,omitempty"`
}

// Evaluate applies the booking rules in order and stops at the first one
// that denies joining. The schedule is read in now's location.
func Evaluate(r *Ride, a Actor, now time.Time) Eligibility {
	e := Eligibility{
		SeatsLeft:     r.SeatsLeft(),
		OnWaitlist:    r.OnWaitlist(a.ID),
		CanViewRoster: passesGenderGate(r, a),
	}

	if r.IsHost(a.ID) {
		e.IsHost = true
		e.CanManageAsHost = true
		e.DenyReason = DenyAlreadyMember
		return e
	}
	if r.IsPassenger(a.ID) {
		e.IsPassenger = true
		e.CanLeave = true
		e.DenyReason = DenyAlreadyMember
		return e
	}
	e.CanLeaveWaitlist = e.OnWaitlist

	// Ladies-only is checked ahead of pause so a restricted actor always
	// learns the restriction rather than a transient pause.
	if !e.CanViewRoster {
		e.DenyReason = DenyGenderRestricted
		return e
	}
	if r.Paused {
		e.DenyReason = DenyBookingPaused
		return e
	}
	if r.IsFull() {
		e.DenyReason = DenyRideFull
		e.CanWaitlistJoin = !e.OnWaitlist
		return e
	}
	late := r.IsPastDeparture(now)
	if late && !r.ForceAllow {
		e.DenyReason = DenyDeparted
		return e
	}
	e.CanJoin = true
	e.LateJoin = late
	return e
}

// waitlistDenial is the precondition for joining the waitlist. Capacity and
// timing do not apply.
func waitlistDenial(r *Ride, a Actor) DenyReason {
	switch {
	case r.IsMember(a.ID), r.OnWaitlist(a.ID):
		return DenyAlreadyMember
	case !passesGenderGate(r, a):
		return DenyGenderRestricted
	case r.Paused:
		return DenyBookingPaused
	}
	return DenyNone
}

func passesGenderGate(r *Ride, a Actor) bool {
	return !r.LadiesOnly || a.Gender == types.GenderFemale
}
