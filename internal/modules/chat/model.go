// README: Chat threads and messages; one group thread per ride plus one private thread per pair of users.
package chat

import (
	"errors"
	"strings"
	"time"

	"ridepool/internal/types"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrBadRequest   = errors.New("bad request")
)

// DefaultHistory is how many of the latest messages a thread read returns.
const DefaultHistory = 200

type ThreadKind string

const (
	ThreadGroup   ThreadKind = "ride"
	ThreadPrivate ThreadKind = "private"
)

type Thread struct {
	Kind ThreadKind
	Key  string
}

func GroupThread(rideID types.ID) Thread {
	return Thread{Kind: ThreadGroup, Key: string(rideID)}
}

// PrivateThread is symmetric: both participants resolve to the same key.
func PrivateThread(a, b types.ID) Thread {
	if b < a {
		a, b = b, a
	}
	return Thread{Kind: ThreadPrivate, Key: string(a) + "_" + string(b)}
}

func (t Thread) ID() string {
	if t.Kind == ThreadGroup {
		return "ride:" + t.Key
	}
	return t.Key
}

type Message struct {
	ID         string    `json:"id"`
	Thread     string    `json:"thread"`
	RideID     types.ID  `json:"ride_id"`
	SenderID   types.ID  `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// shortName is the first word of a display name.
func shortName(displayName string) string {
	fields := strings.Fields(displayName)
	if len(fields) == 0 {
		return "User"
	}
	return fields[0]
}
