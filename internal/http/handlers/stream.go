// README: Server-sent event stream of feed changes, rendered per viewer.
package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"ridepool/internal/modules/ride"
)

// Stream sends a "snapshot" of the feed, then a "ride" event for every
// visible change and a "removed" event when a ride leaves the feed.
func (h *RideHandler) Stream(c *gin.Context) {
	actor, ok := h.caller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	f := feedFilter(c)

	changes, err := h.rides.Watch(ctx, nil)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	views, err := h.rides.ListVisible(ctx, actor, f)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("snapshot", views)
	c.Writer.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-h.done:
			return false
		case <-keepalive.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case ch, ok := <-changes:
			if !ok {
				return false
			}
			c.SSEvent(streamEvent(ch, actor, h.rides.Now(), f))
			return true
		}
	})
}

func streamEvent(ch ride.Change, viewer ride.Actor, now time.Time, f ride.FeedFilter) (string, any) {
	if ch.Kind == ride.ChangeUpserted && ch.Ride != nil {
		if len(ride.Visible([]*ride.Ride{ch.Ride}, now, f)) == 1 {
			return "ride", ride.NewView(ch.Ride, viewer, now)
		}
	}
	return "removed", gin.H{"id": ch.RideID}
}
