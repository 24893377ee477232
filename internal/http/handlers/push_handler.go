// README: Device registration for ride push notifications.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridepool/internal/types"
)

// DeviceSubscriber attaches devices to a ride's notification topic.
type DeviceSubscriber interface {
	Subscribe(ctx context.Context, rideID, actorID types.ID, token string) error
	Unsubscribe(ctx context.Context, rideID types.ID, token string) error
}

type PushHandler struct {
	push DeviceSubscriber
}

func NewPushHandler(push DeviceSubscriber) *PushHandler {
	return &PushHandler{push: push}
}

type deviceReq struct {
	Token string `json:"token"`
}

func (h *PushHandler) Subscribe(c *gin.Context) {
	id, req, ok := h.bind(c)
	if !ok {
		return
	}
	if err := h.push.Subscribe(c.Request.Context(), id, callerID(c), req.Token); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PushHandler) Unsubscribe(c *gin.Context) {
	id, req, ok := h.bind(c)
	if !ok {
		return
	}
	if err := h.push.Unsubscribe(c.Request.Context(), id, req.Token); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PushHandler) bind(c *gin.Context) (types.ID, deviceReq, bool) {
	var req deviceReq
	if h.push == nil {
		writeError(c, http.StatusServiceUnavailable, "push notifications are not configured")
		return "", req, false
	}
	id, ok := rideID(c)
	if !ok {
		return "", req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		writeError(c, http.StatusBadRequest, "device token required")
		return "", req, false
	}
	return id, req, true
}
