// README: Ride aggregate, actor shapes and the fixed location set.
package ride

import (
	"time"

	"ridepool/internal/schedule"
	"ridepool/internal/types"
)

type Vehicle string

const (
	VehicleAuto Vehicle = "Auto"
	VehicleCab  Vehicle = "Cab"
)

// Locations is the fixed set rides may start from or end at.
var Locations = []string{
	"VIT-AP Campus",
	"Vijayawada Railway Station",
	"PNBS Bus Stand",
	"Gannavaram Airport",
	"Guntur",
}

func IsKnownLocation(name string) bool {
	for _, l := range Locations {
		if l == name {
			return true
		}
	}
	return false
}

// ActorSummary is the identity snapshot stored on a ride for its host,
// passengers and waitlist entries.
type ActorSummary struct {
	ID          types.ID `json:"uid"`
	DisplayName string   `json:"name"`
	AvatarRef   string   `json:"photo"`
}

// Actor is the caller of an engine operation together with the profile
// attributes eligibility depends on.
type Actor struct {
	ActorSummary
	Gender types.Gender
}

type Route struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Schedule holds local wall-clock values with no timezone.
type Schedule struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type Ride struct {
	ID         types.ID
	Route      Route
	Schedule   Schedule
	Vehicle    Vehicle
	Host       ActorSummary
	Passengers []ActorSummary
	Waitlist   []ActorSummary
	LadiesOnly bool
	Paused     bool
	ForceAllow bool
	CreatedAt  time.Time
	Version    int
}

// Clone returns a deep copy so transforms never alias stored slices.
func (r *Ride) Clone() *Ride {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Passengers = append([]ActorSummary(nil), r.Passengers...)
	cp.Waitlist = append([]ActorSummary(nil), r.Waitlist...)
	return &cp
}

func (r *Ride) IsHost(id types.ID) bool {
	return r.Host.ID == id
}

func (r *Ride) IsPassenger(id types.ID) bool {
	return indexOf(r.Passengers, id) >= 0
}

func (r *Ride) OnWaitlist(id types.ID) bool {
	return indexOf(r.Waitlist, id) >= 0
}

// IsMember reports whether id is the host or a passenger.
func (r *Ride) IsMember(id types.ID) bool {
	return r.IsHost(id) || r.IsPassenger(id)
}

func (r *Ride) IsPastDeparture(now time.Time) bool {
	return schedule.IsPastDeparture(r.Schedule.Date, r.Schedule.Time, now)
}

func (r *Ride) IsExpired(now time.Time) bool {
	return schedule.IsExpired(r.Schedule.Date, r.Schedule.Time, now)
}

func indexOf(list []ActorSummary, id types.ID) int {
	for i, a := range list {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func without(list []ActorSummary, id types.ID) []ActorSummary {
	i := indexOf(list, id)
	if i < 0 {
		return list
	}
	out := make([]ActorSummary, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}
