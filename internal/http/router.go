// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ridepool/internal/http/handlers"
	"ridepool/internal/http/middleware"
	"ridepool/internal/infra"
	"ridepool/internal/modules/chat"
	"ridepool/internal/modules/profile"
	"ridepool/internal/modules/ride"
)

type RouterDeps struct {
	Rides    *ride.Service
	Profiles *profile.Service
	Chat     *chat.Service
	// Routes is optional; without it the route endpoint answers 503.
	Routes   handlers.RouteEstimator
	Verifier infra.TokenVerifier
	Log      logrus.FieldLogger
	// Push is optional; without it device registration answers 503.
	Push     handlers.DeviceSubscriber
	// Done ends open event streams so shutdown can drain.
	Done     <-chan struct{}
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	rideHandler := handlers.NewRideHandler(deps.Rides, deps.Profiles, deps.Routes, deps.Log).WithDone(deps.Done)
	api.GET("/rides", rideHandler.List)
	api.POST("/rides", rideHandler.Create)
	api.GET("/rides/stream", rideHandler.Stream)
	api.GET("/rides/:id", rideHandler.Get)
	api.DELETE("/rides/:id", rideHandler.Delete)
	api.POST("/rides/:id/join", rideHandler.Join)
	api.POST("/rides/:id/waitlist", rideHandler.JoinWaitlist)
	api.DELETE("/rides/:id/waitlist", rideHandler.LeaveWaitlist)
	api.POST("/rides/:id/leave", rideHandler.Leave)
	api.DELETE("/rides/:id/passengers/:uid", rideHandler.RemovePassenger)
	api.POST("/rides/:id/resign", rideHandler.Resign)
	api.POST("/rides/:id/pause", rideHandler.TogglePause)
	api.POST("/rides/:id/late-join", rideHandler.ToggleLateJoin)
	api.GET("/rides/:id/route", rideHandler.Route)

	profileHandler := handlers.NewProfileHandler(deps.Profiles, deps.Rides)
	api.GET("/me", profileHandler.Me)
	api.PUT("/me/gender", profileHandler.SetGender)
	api.GET("/me/history", profileHandler.History)

	chatHandler := handlers.NewChatHandler(deps.Chat, deps.Profiles)
	api.GET("/chats/contacts", chatHandler.Contacts)
	api.GET("/chats/rides", chatHandler.MyRides)
	api.GET("/rides/:id/messages", chatHandler.ListGroup)
	api.POST("/rides/:id/messages", chatHandler.SendGroup)
	api.GET("/rides/:id/messages/:uid", chatHandler.ListPrivate)
	api.POST("/rides/:id/messages/:uid", chatHandler.SendPrivate)

	pushHandler := handlers.NewPushHandler(deps.Push)
	api.POST("/rides/:id/devices", pushHandler.Subscribe)
	api.DELETE("/rides/:id/devices", pushHandler.Unsubscribe)

	return r
}
