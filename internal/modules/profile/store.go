package profile

import (
	"context"

	"ridepool/internal/types"
)

type Store interface {
	// Upsert refreshes the identity fields and never touches gender.
	Upsert(ctx context.Context, id Identity) (*Profile, error)
	Get(ctx context.Context, id types.ID) (*Profile, error)
	// SetGenderOnce stores g only while no gender is recorded. It returns
	// ErrGenderLocked otherwise.
	SetGenderOnce(ctx context.Context, id types.ID, g types.Gender) error
}
