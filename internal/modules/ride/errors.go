package ride

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("ride not found")
	ErrForbidden   = errors.New("host-only operation")
	ErrConflict    = errors.New("ride state conflict")
	ErrBadRequest  = errors.New("bad request")
	ErrNotEligible = errors.New("not eligible")
)

type DenyReason string

const (
	DenyNone             DenyReason = ""
	DenyBookingPaused    DenyReason = "BookingPaused"
	DenyGenderRestricted DenyReason = "GenderRestricted"
	DenyRideFull         DenyReason = "RideFull"
	DenyDeparted         DenyReason = "Departed"
	DenyAlreadyMember    DenyReason = "AlreadyMember"
	DenyChatLocked       DenyReason = "ChatLocked"
	DenySelfMessage      DenyReason = "SelfMessage"
)

// NotEligibleError carries the rule that blocked an action. It matches
// ErrNotEligible under errors.Is.
type NotEligibleError struct {
	Reason DenyReason
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("not eligible: %s", e.Reason)
}

func (e *NotEligibleError) Is(target error) bool {
	return target == ErrNotEligible
}

func notEligible(reason DenyReason) error {
	return &NotEligibleError{Reason: reason}
}

// ReasonOf extracts the deny reason from err, or DenyNone.
func ReasonOf(err error) DenyReason {
	var ne *NotEligibleError
	if errors.As(err, &ne) {
		return ne.Reason
	}
	return DenyNone
}
