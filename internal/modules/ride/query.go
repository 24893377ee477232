package ride

import (
	"context"

	"ridepool/internal/types"
)

// ListVisible returns the discovery feed rendered for viewer.
func (s *Service) ListVisible(ctx context.Context, viewer Actor, f FeedFilter) ([]View, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	visible := Visible(all, now, f)
	views := make([]View, 0, len(visible))
	for _, r := range visible {
		views = append(views, NewView(r, viewer, now))
	}
	return views, nil
}

// Active returns the non-expired rides actorID hosts or rides in.
func (s *Service) Active(ctx context.Context, actorID types.ID) ([]*Ride, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	var out []*Ride
	for _, r := range all {
		if r.IsMember(actorID) && !r.IsExpired(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

type History struct {
	Hosted int     `json:"hosted"`
	Joined int     `json:"joined"`
	Past   []*Ride `json:"-"`
}

// History counts every ride actorID hosts or rides in and lists the expired
// ones.
func (s *Service) History(ctx context.Context, actorID types.ID) (History, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return History{}, err
	}
	now := s.clock()
	var h History
	for _, r := range all {
		hosted, joined := r.IsHost(actorID), r.IsPassenger(actorID)
		if hosted {
			h.Hosted++
		}
		if joined {
			h.Joined++
		}
		if (hosted || joined) && r.IsExpired(now) {
			h.Past = append(h.Past, r)
		}
	}
	return h, nil
}

// CanMessage loads the ride and checks the private-message predicate.
func (s *Service) CanMessage(ctx context.Context, id, viewer, target types.ID) (*Ride, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok, reason := CanMessage(r, viewer, target); !ok {
		return nil, notEligible(reason)
	}
	return r, nil
}

// Watch streams store changes accepted by match until ctx is done.
func (s *Service) Watch(ctx context.Context, match func(Change) bool) (<-chan Change, error) {
	in, err := s.store.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan Change, subscriberBuffer)
	go func() {
		defer close(out)
		for c := range in {
			if match != nil && !match(c) {
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
