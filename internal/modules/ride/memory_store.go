// README: In-memory ride store with per-ride write serialization.
package ride

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ridepool/internal/types"
)

// MemoryStore keeps rides in a map. Writers on the same ride queue on that
// ride's mutex; transforms run on a copy, so readers only wait for the final
// pointer swap.
type MemoryStore struct {
	mu       sync.RWMutex
	rides    map[types.ID]*Ride
	locks    map[types.ID]*sync.Mutex
	notifier Notifier
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rides:    make(map[types.ID]*Ride),
		locks:    make(map[types.ID]*sync.Mutex),
		notifier: NewLocalNotifier(),
	}
}

func (s *MemoryStore) Create(ctx context.Context, r *Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rides[r.ID]; exists {
		return fmt.Errorf("ride %s already exists", r.ID)
	}
	cp := r.Clone()
	s.rides[r.ID] = cp
	s.locks[r.ID] = &sync.Mutex{}
	_ = s.notifier.Publish(ctx, Change{Kind: ChangeUpserted, RideID: r.ID, Ride: cp.Clone()})
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Ride, 0, len(s.rides))
	for _, r := range s.rides {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, id types.ID, fn TransformFunc) (*Ride, Mutation, error) {
	s.mu.RLock()
	lock, ok := s.locks[id]
	s.mu.RUnlock()
	if !ok {
		return nil, MutationNone, ErrNotFound
	}
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	cur, ok := s.rides[id]
	s.mu.RUnlock()
	if !ok {
		return nil, MutationNone, ErrNotFound
	}

	next := cur.Clone()
	m, err := fn(next)
	if err != nil {
		return nil, MutationNone, err
	}

	switch m {
	case MutationWrite:
		next.ID = id
		next.Version = cur.Version + 1
		s.mu.Lock()
		s.rides[id] = next
		s.mu.Unlock()
		_ = s.notifier.Publish(ctx, Change{Kind: ChangeUpserted, RideID: id, Ride: next.Clone()})
		return next.Clone(), m, nil
	case MutationDelete:
		s.mu.Lock()
		delete(s.rides, id)
		delete(s.locks, id)
		s.mu.Unlock()
		_ = s.notifier.Publish(ctx, Change{Kind: ChangeDeleted, RideID: id})
		return nil, m, nil
	default:
		return cur.Clone(), MutationNone, nil
	}
}

func (s *MemoryStore) Subscribe(ctx context.Context) (<-chan Change, error) {
	return s.notifier.Subscribe(ctx)
}
