package ride

import "ridepool/internal/types"

// CanMessage reports whether viewer may open a private thread with target in
// the context of r. Only the host and passengers may message, and never
// themselves. The returned reason is DenyNone when allowed.
func CanMessage(r *Ride, viewer, target types.ID) (bool, DenyReason) {
	if !r.IsMember(viewer) {
		return false, DenyChatLocked
	}
	if target == viewer {
		return false, DenySelfMessage
	}
	return true, DenyNone
}
