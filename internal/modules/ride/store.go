// README: Document-store contract for rides; every mutation goes through Update.
package ride

import (
	"context"

	"ridepool/internal/types"
)

// Mutation tells the store what to do with the record a transform produced.
type Mutation int

const (
	MutationNone Mutation = iota
	MutationWrite
	MutationDelete
)

// TransformFunc receives a private copy of the latest record. Returning an
// error aborts the update without effect.
type TransformFunc func(r *Ride) (Mutation, error)

type ChangeKind string

const (
	ChangeUpserted ChangeKind = "upserted"
	ChangeDeleted  ChangeKind = "deleted"
)

// Change is one push notification from the store. Ride is nil for deletions.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	RideID types.ID   `json:"ride_id"`
	Ride   *Ride      `json:"ride,omitempty"`
}

// Store is the persistent document store. Update must serialize transforms
// per ride id: either by running them one at a time or by rejecting a stale
// write with ErrConflict so the caller can retry.
type Store interface {
	Create(ctx context.Context, r *Ride) error
	Get(ctx context.Context, id types.ID) (*Ride, error)
	List(ctx context.Context) ([]*Ride, error)
	Update(ctx context.Context, id types.ID, fn TransformFunc) (*Ride, Mutation, error)
	Subscribe(ctx context.Context) (<-chan Change, error)
}
