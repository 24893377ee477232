package profile

import (
	"context"
	"sync"
	"time"

	"ridepool/internal/types"
)

type MemoryStore struct {
	mu       sync.Mutex
	profiles map[types.ID]Profile
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[types.ID]Profile), now: time.Now}
}

func (s *MemoryStore) Upsert(_ context.Context, id Identity) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profiles[id.ID]
	p.ID = id.ID
	p.DisplayName = id.DisplayName
	p.AvatarRef = id.AvatarRef
	p.UpdatedAt = s.now()
	s.profiles[id.ID] = p
	return &p, nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) SetGenderOnce(_ context.Context, id types.ID, g types.Gender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return ErrNotFound
	}
	if p.Gender != types.GenderUnset {
		return ErrGenderLocked
	}
	p.Gender = g
	p.UpdatedAt = s.now()
	s.profiles[id] = p
	return nil
}
