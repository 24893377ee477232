// README: Change fan-out for stores without native realtime subscriptions.
package ride

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Notifier interface {
	Publish(ctx context.Context, c Change) error
	Subscribe(ctx context.Context) (<-chan Change, error)
}

const subscriberBuffer = 64

// LocalNotifier fans changes out in-process. Slow subscribers miss changes
// instead of blocking the publisher.
type LocalNotifier struct {
	mu   sync.RWMutex
	subs map[chan Change]struct{}
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{subs: make(map[chan Change]struct{})}
}

func (n *LocalNotifier) Publish(_ context.Context, c Change) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.subs {
		select {
		case ch <- c:
		default:
		}
	}
	return nil
}

func (n *LocalNotifier) Subscribe(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, subscriberBuffer)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.subs, ch)
		n.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

const changesChannel = "ridepool:rides:changes"

// RedisNotifier relays changes over Redis pub/sub so every API instance sees
// writes made by the others.
type RedisNotifier struct {
	redis *redis.Client
	log   logrus.FieldLogger
}

func NewRedisNotifier(client *redis.Client, log logrus.FieldLogger) *RedisNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisNotifier{redis: client, log: log}
}

func (n *RedisNotifier) Publish(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	return n.redis.Publish(ctx, changesChannel, payload).Err()
}

func (n *RedisNotifier) Subscribe(ctx context.Context) (<-chan Change, error) {
	ps := n.redis.Subscribe(ctx, changesChannel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", changesChannel, err)
	}

	out := make(chan Change, subscriberBuffer)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					n.log.WithError(err).Warn("dropping undecodable ride change")
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
