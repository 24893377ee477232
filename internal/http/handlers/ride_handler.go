// README: Ride handlers for the feed, creation, booking commands and host controls.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ridepool/internal/maps"
	"ridepool/internal/modules/profile"
	"ridepool/internal/modules/ride"
	"ridepool/internal/types"
)

// RouteEstimator is satisfied by *maps.RouteService.
type RouteEstimator interface {
	GetTravelEstimate(ctx context.Context, origin, destination string) (maps.Estimate, error)
}

type RideHandler struct {
	rides     *ride.Service
	profiles  *profile.Service
	routes    RouteEstimator
	log       logrus.FieldLogger
	keepalive time.Duration
	done      <-chan struct{}
}

// NewRideHandler builds the handler. routes may be nil when no maps key is
// configured.
func NewRideHandler(rides *ride.Service, profiles *profile.Service, routes RouteEstimator, log logrus.FieldLogger) *RideHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RideHandler{rides: rides, profiles: profiles, routes: routes, log: log, keepalive: 25 * time.Second}
}

// WithDone makes open streams end when done is closed.
func (h *RideHandler) WithDone(done <-chan struct{}) *RideHandler {
	h.done = done
	return h
}

type createRideReq struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Date       string `json:"date"`
	Hour       int    `json:"hour"`
	Minute     int    `json:"minute"`
	Meridiem   string `json:"meridiem"`
	Vehicle    string `json:"vehicle"`
	LadiesOnly bool   `json:"ladies_only"`
}

func (h *RideHandler) caller(c *gin.Context) (ride.Actor, bool) {
	p, ok := resolveCaller(c, h.profiles)
	if !ok {
		return ride.Actor{}, false
	}
	return p.Actor(), true
}

func (h *RideHandler) List(c *gin.Context) {
	actor, ok := h.caller(c)
	if !ok {
		return
	}
	views, err := h.rides.ListVisible(c.Request.Context(), actor, feedFilter(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"rides": views})
}

func (h *RideHandler) Create(c *gin.Context) {
	var req createRideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	actor, ok := h.caller(c)
	if !ok {
		return
	}
	r, err := h.rides.Create(c.Request.Context(), ride.CreateCommand{
		Host:       actor,
		From:       req.From,
		To:         req.To,
		Date:       req.Date,
		Hour:       req.Hour,
		Minute:     req.Minute,
		Meridiem:   req.Meridiem,
		Vehicle:    ride.Vehicle(req.Vehicle),
		LadiesOnly: req.LadiesOnly,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, ride.NewView(r, actor, h.rides.Now()))
}

func (h *RideHandler) Get(c *gin.Context) {
	id, ok := rideID(c)
	if !ok {
		return
	}
	actor, ok := h.caller(c)
	if !ok {
		return
	}
	v, err := h.rides.View(c.Request.Context(), id, actor)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

func (h *RideHandler) Delete(c *gin.Context) {
	h.hostControl(c, func(ctx context.Context, cmd ride.HostCommand) (any, error) {
		if err := h.rides.Delete(ctx, cmd); err != nil {
			return nil, err
		}
		return gin.H{"deleted": true}, nil
	})
}

func (h *RideHandler) Join(c *gin.Context) {
	h.command(c, func(ctx context.Context, id types.ID, actor ride.Actor) (*ride.Ride, error) {
		return h.rides.Join(ctx, ride.JoinCommand{RideID: id, Actor: actor})
	})
}

func (h *RideHandler) JoinWaitlist(c *gin.Context) {
	h.command(c, func(ctx context.Context, id types.ID, actor ride.Actor) (*ride.Ride, error) {
		return h.rides.JoinWaitlist(ctx, ride.WaitlistCommand{RideID: id, Actor: actor})
	})
}

func (h *RideHandler) LeaveWaitlist(c *gin.Context) {
	h.command(c, func(ctx context.Context, id types.ID, actor ride.Actor) (*ride.Ride, error) {
		return h.rides.LeaveWaitlist(ctx, ride.LeaveCommand{RideID: id, ActorID: actor.ID})
	})
}

func (h *RideHandler) Leave(c *gin.Context) {
	h.command(c, func(ctx context.Context, id types.ID, actor ride.Actor) (*ride.Ride, error) {
		return h.rides.Leave(ctx, ride.LeaveCommand{RideID: id, ActorID: actor.ID})
	})
}

func (h *RideHandler) RemovePassenger(c *gin.Context) {
	uid := c.Param("uid")
	if !isValidID(uid) {
		writeError(c, http.StatusBadRequest, "invalid passenger id")
		return
	}
	h.command(c, func(ctx context.Context, id types.ID, actor ride.Actor) (*ride.Ride, error) {
		return h.rides.RemovePassenger(ctx, ride.RemovePassengerCommand{RideID: id, HostID: actor.ID, PassengerID: types.ID(uid)})
	})
}

func (h *RideHandler) Resign(c *gin.Context) {
	h.hostControl(c, func(ctx context.Context, cmd ride.HostCommand) (any, error) {
		res, err := h.rides.ResignHost(ctx, cmd)
		if err != nil {
			return nil, err
		}
		return gin.H{"deleted": res.Deleted, "new_host": res.NewHost}, nil
	})
}

func (h *RideHandler) TogglePause(c *gin.Context) {
	h.hostControl(c, func(ctx context.Context, cmd ride.HostCommand) (any, error) {
		paused, err := h.rides.TogglePause(ctx, cmd)
		if err != nil {
			return nil, err
		}
		return gin.H{"paused": paused}, nil
	})
}

func (h *RideHandler) ToggleLateJoin(c *gin.Context) {
	h.hostControl(c, func(ctx context.Context, cmd ride.HostCommand) (any, error) {
		allowed, err := h.rides.ToggleForceAllow(ctx, cmd)
		if err != nil {
			return nil, err
		}
		return gin.H{"force_allow": allowed}, nil
	})
}

func (h *RideHandler) Route(c *gin.Context) {
	id, ok := rideID(c)
	if !ok {
		return
	}
	if h.routes == nil {
		writeError(c, http.StatusServiceUnavailable, "route estimates are not configured")
		return
	}
	r, err := h.rides.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	est, err := h.routes.GetTravelEstimate(c.Request.Context(), r.Route.From, r.Route.To)
	if err != nil {
		h.log.WithError(err).WithField("ride_id", id).Warn("route estimate failed")
		writeError(c, http.StatusBadGateway, "route estimate unavailable")
		return
	}
	writeJSON(c, http.StatusOK, est)
}

// command runs a booking command and responds with the updated ride as the
// caller sees it.
func (h *RideHandler) command(c *gin.Context, run func(context.Context, types.ID, ride.Actor) (*ride.Ride, error)) {
	id, ok := rideID(c)
	if !ok {
		return
	}
	actor, ok := h.caller(c)
	if !ok {
		return
	}
	r, err := run(c.Request.Context(), id, actor)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, ride.NewView(r, actor, h.rides.Now()))
}

// hostControl runs a host-only command. Only the caller's uid matters, so
// the profile lookup is skipped.
func (h *RideHandler) hostControl(c *gin.Context, run func(context.Context, ride.HostCommand) (any, error)) {
	id, ok := rideID(c)
	if !ok {
		return
	}
	out, err := run(c.Request.Context(), ride.HostCommand{RideID: id, HostID: callerID(c)})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func feedFilter(c *gin.Context) ride.FeedFilter {
	return ride.FeedFilter{Location: c.Query("location"), Date: c.Query("date")}
}
