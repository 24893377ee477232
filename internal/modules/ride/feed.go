// README: Discovery feed filtering and per-viewer ride views.
package ride

import (
	"sort"
	"time"
)

// FeedFilter narrows the feed. Empty fields match everything.
type FeedFilter struct {
	Location string
	Date     string
}

func (f FeedFilter) matches(r *Ride) bool {
	if f.Location != "" && r.Route.From != f.Location && r.Route.To != f.Location {
		return false
	}
	if f.Date != "" && r.Schedule.Date != f.Date {
		return false
	}
	return true
}

// Visible returns the discoverable rides, newest first. The input slice is
// left untouched.
func Visible(rides []*Ride, now time.Time, f FeedFilter) []*Ride {
	out := make([]*Ride, 0, len(rides))
	for _, r := range rides {
		if r == nil || r.IsExpired(now) || r.Route.From == r.Route.To {
			continue
		}
		if !f.matches(r) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// View is a ride as one viewer is allowed to see it.
type View struct {
	ID          string         `json:"id"`
	From        string         `json:"from"`
	To          string         `json:"to"`
	Date        string         `json:"date"`
	Time        string         `json:"time"`
	Vehicle     Vehicle        `json:"vehicle"`
	Capacity    int            `json:"capacity"`
	SeatsLeft   int            `json:"seats_left"`
	IsFull      bool           `json:"is_full"`
	LadiesOnly  bool           `json:"ladies_only"`
	Paused      bool           `json:"paused"`
	ForceAllow  bool           `json:"force_allow"`
	PastDepart  bool           `json:"past_departure"`
	Expired     bool           `json:"expired"`
	Host        ActorSummary   `json:"host"`
	Passengers  []ActorSummary `json:"passengers,omitempty"`
	Waitlist    []ActorSummary `json:"waitlist,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Eligibility Eligibility    `json:"eligibility"`
}

// NewView renders r for viewer. The roster is omitted when the viewer may
// not see it; the waitlist is shown to the host only.
func NewView(r *Ride, viewer Actor, now time.Time) View {
	e := Evaluate(r, viewer, now)
	v := View{
		ID:          string(r.ID),
		From:        r.Route.From,
		To:          r.Route.To,
		Date:        r.Schedule.Date,
		Time:        r.Schedule.Time,
		Vehicle:     r.Vehicle,
		Capacity:    Capacity(r.Vehicle),
		SeatsLeft:   e.SeatsLeft,
		IsFull:      r.IsFull(),
		LadiesOnly:  r.LadiesOnly,
		Paused:      r.Paused,
		ForceAllow:  r.ForceAllow,
		PastDepart:  r.IsPastDeparture(now),
		Expired:     r.IsExpired(now),
		Host:        r.Host,
		CreatedAt:   r.CreatedAt,
		Eligibility: e,
	}
	if e.CanViewRoster {
		v.Passengers = append([]ActorSummary(nil), r.Passengers...)
	}
	if e.IsHost {
		v.Waitlist = append([]ActorSummary(nil), r.Waitlist...)
	}
	return v
}
