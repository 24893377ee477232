// README: Base handler utilities (JSON helpers, caller resolution, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridepool/internal/http/middleware"
	"ridepool/internal/modules/chat"
	"ridepool/internal/modules/profile"
	"ridepool/internal/modules/ride"
	"ridepool/internal/push"
	"ridepool/internal/types"
)

type errorResponse struct {
	Error  string          `json:"error"`
	Reason ride.DenyReason `json:"reason,omitempty"`
}

// isValidID accepts UUIDs and Firestore auto IDs.
func isValidID(v string) bool {
	if v == "" || len(v) > 128 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ride.ErrNotEligible):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Reason: ride.ReasonOf(err)})
	case errors.Is(err, ride.ErrConflict), errors.Is(err, profile.ErrGenderLocked):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ride.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ride.ErrNotFound), errors.Is(err, profile.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ride.ErrBadRequest), errors.Is(err, profile.ErrBadRequest),
		errors.Is(err, profile.ErrInvalidGender), errors.Is(err, chat.ErrBadRequest),
		errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, push.ErrTopicRejected):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// rideID reads and validates the :id path parameter.
func rideID(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid ride id")
		return "", false
	}
	return types.ID(id), true
}

// resolveCaller loads the caller's profile, creating it on first sight and
// refreshing name or avatar when the token carries newer values.
func resolveCaller(c *gin.Context, profiles *profile.Service) (*profile.Profile, bool) {
	ctx := c.Request.Context()
	id := profile.Identity{
		ID:          types.ID(middleware.CallerUID(c)),
		DisplayName: middleware.CallerName(c),
		AvatarRef:   middleware.CallerPicture(c),
	}
	p, err := profiles.Get(ctx, id.ID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		p, err = profiles.Resolve(ctx, id)
	case err == nil && identityChanged(p, id):
		if id.DisplayName == "" {
			id.DisplayName = p.DisplayName
		}
		if id.AvatarRef == "" {
			id.AvatarRef = p.AvatarRef
		}
		p, err = profiles.Resolve(ctx, id)
	}
	if err != nil {
		writeServiceError(c, err)
		return nil, false
	}
	return p, true
}

func identityChanged(p *profile.Profile, id profile.Identity) bool {
	return (id.DisplayName != "" && id.DisplayName != p.DisplayName) ||
		(id.AvatarRef != "" && id.AvatarRef != p.AvatarRef)
}
