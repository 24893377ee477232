package chat

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"ridepool/internal/modules/ride"
)

const cleanupTimeout = 30 * time.Second

// Cleanup drops a ride's group thread once the ride is deleted. Private
// threads are keyed by the pair, not the ride, and are kept.
type Cleanup struct {
	store Store
	log   logrus.FieldLogger
	wg    sync.WaitGroup
}

func NewCleanup(store Store, log logrus.FieldLogger) *Cleanup {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Cleanup{store: store, log: log}
}

// RideEvent implements ride.EventSink.
func (c *Cleanup) RideEvent(ctx context.Context, e ride.Event) {
	if !e.Deleted {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		th := GroupThread(e.RideID)
		if err := c.store.DeleteThread(delCtx, th); err != nil {
			c.log.WithField("thread", th.ID()).WithError(err).Warn("chat cleanup failed")
			return
		}
		c.log.WithField("thread", th.ID()).Debug("chat thread deleted")
	}()
}

// Wait blocks until in-flight deletes finish.
func (c *Cleanup) Wait() {
	c.wg.Wait()
}
