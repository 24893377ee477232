package profile

import (
	"context"
	"errors"
	"testing"

	"ridepool/internal/pgtest"
	"ridepool/internal/types"
)

func TestPostgresStoreGenderWriteOnce(t *testing.T) {
	ctx := context.Background()
	s := NewPostgresStore(pgtest.Open(t, "profiles"))

	if err := s.SetGenderOnce(ctx, "ghost", types.GenderMale); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	p, err := s.Upsert(ctx, Identity{ID: "u1", DisplayName: "Asha", AvatarRef: "a.png"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if p.Gender != types.GenderUnset {
		t.Fatalf("gender = %q", p.Gender)
	}

	if err := s.SetGenderOnce(ctx, "u1", types.GenderFemale); err != nil {
		t.Fatalf("set gender: %v", err)
	}
	if err := s.SetGenderOnce(ctx, "u1", types.GenderMale); !errors.Is(err, ErrGenderLocked) {
		t.Fatalf("expected ErrGenderLocked, got %v", err)
	}

	p, err = s.Upsert(ctx, Identity{ID: "u1", DisplayName: "Asha R"})
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if p.Gender != types.GenderFemale || p.DisplayName != "Asha R" {
		t.Fatalf("unexpected profile: %+v", p)
	}
}
