package strikes

import (
	"context"
	"sync"
)

type MemStore struct {
	mu   sync.Mutex
	recs map[string]Record
}

func NewMemStore() *MemStore {
	return &MemStore{
		recs: make(map[string]Record),
	}
}

func memKey(channel, userID string) string {
	return channel + "/" + userID
}

func (s *MemStore) Get(ctx context.Context, channel, userID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[memKey(channel, userID)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemStore) Put(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[memKey(rec.Channel, rec.UserID)] = *rec
	return nil
}

func (s *MemStore) Clear(ctx context.Context, channel, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, memKey(channel, userID))
	return nil
}
