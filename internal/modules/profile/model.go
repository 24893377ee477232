// README: Profile model; the identity snapshot plus the write-once gender attribute.
package profile

import (
	"errors"
	"time"

	"ridepool/internal/modules/ride"
	"ridepool/internal/types"
)

var (
	ErrNotFound      = errors.New("profile not found")
	ErrGenderLocked  = errors.New("gender already set")
	ErrInvalidGender = errors.New("invalid gender")
	ErrBadRequest    = errors.New("bad request")
)

// Identity is what the identity provider tells us about a caller.
type Identity struct {
	ID          types.ID
	DisplayName string
	AvatarRef   string
}

type Profile struct {
	ID          types.ID     `json:"uid"`
	DisplayName string       `json:"name"`
	AvatarRef   string       `json:"photo"`
	Gender      types.Gender `json:"gender,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Actor is the profile as the reservation engine sees it.
func (p *Profile) Actor() ride.Actor {
	return ride.Actor{
		ActorSummary: ride.ActorSummary{ID: p.ID, DisplayName: p.DisplayName, AvatarRef: p.AvatarRef},
		Gender:       p.Gender,
	}
}
