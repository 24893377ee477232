package chat

import (
	"context"
	"strconv"
	"sync"
)

type MemoryStore struct {
	mu      sync.Mutex
	seq     int64
	threads map[string][]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string][]Message)}
}

func (s *MemoryStore) Append(_ context.Context, t Thread, m Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	m.ID = strconv.FormatInt(s.seq, 10)
	m.Thread = t.ID()
	s.threads[m.Thread] = append(s.threads[m.Thread], m)
	return m, nil
}

func (s *MemoryStore) List(_ context.Context, t Thread, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.threads[t.ID()]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]Message(nil), msgs...), nil
}

func (s *MemoryStore) DeleteThread(_ context.Context, t Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, t.ID())
	return nil
}
