package profile

import (
	"context"

	"github.com/sirupsen/logrus"

	"ridepool/internal/types"
)

type Service struct {
	store Store
	log   logrus.FieldLogger
}

func NewService(store Store, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: store, log: log}
}

// Resolve records the caller's latest identity and returns the full profile.
func (s *Service) Resolve(ctx context.Context, id Identity) (*Profile, error) {
	if id.ID == "" {
		return nil, ErrBadRequest
	}
	return s.store.Upsert(ctx, id)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Profile, error) {
	return s.store.Get(ctx, id)
}

// SetGender records the caller's gender. It can be set exactly once.
func (s *Service) SetGender(ctx context.Context, id types.ID, g types.Gender) (*Profile, error) {
	if id == "" {
		return nil, ErrBadRequest
	}
	if !g.Valid() {
		return nil, ErrInvalidGender
	}
	if err := s.store.SetGenderOnce(ctx, id, g); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"actor_id": id, "op": "set_gender"}).Info("gender recorded")
	return s.store.Get(ctx, id)
}
