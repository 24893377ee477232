// README: Profile handlers (current user, one-time gender, ride history).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridepool/internal/http/middleware"
	"ridepool/internal/modules/profile"
	"ridepool/internal/modules/ride"
	"ridepool/internal/types"
)

type ProfileHandler struct {
	profiles *profile.Service
	rides    *ride.Service
}

func NewProfileHandler(profiles *profile.Service, rides *ride.Service) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, rides: rides}
}

type setGenderReq struct {
	Gender string `json:"gender"`
}

func (h *ProfileHandler) Me(c *gin.Context) {
	p, ok := resolveCaller(c, h.profiles)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, p)
}

func (h *ProfileHandler) SetGender(c *gin.Context) {
	var req setGenderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if _, ok := resolveCaller(c, h.profiles); !ok {
		return
	}
	p, err := h.profiles.SetGender(c.Request.Context(), callerID(c), types.Gender(req.Gender))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

func (h *ProfileHandler) History(c *gin.Context) {
	p, ok := resolveCaller(c, h.profiles)
	if !ok {
		return
	}
	hist, err := h.rides.History(c.Request.Context(), p.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	now := h.rides.Now()
	past := make([]ride.View, 0, len(hist.Past))
	for _, r := range hist.Past {
		past = append(past, ride.NewView(r, p.Actor(), now))
	}
	writeJSON(c, http.StatusOK, gin.H{"hosted": hist.Hosted, "joined": hist.Joined, "past": past})
}

func callerID(c *gin.Context) types.ID {
	return types.ID(middleware.CallerUID(c))
}
