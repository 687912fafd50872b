package permit

import (
	"context"
	"sync"
	"time"
)

type grant struct {
	grantedBy string
	expiresAt time.Time
}

type MemStore struct {
	mu     sync.Mutex
	grants map[string]grant
}

func NewMemStore() *MemStore {
	return &MemStore{
		grants: make(map[string]grant),
	}
}

func memKey(channel, userID string) string {
	return channel + "/" + userID
}

func (s *MemStore) Grant(ctx context.Context, channel, userID, grantedBy string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[memKey(channel, userID)] = grant{
		grantedBy: grantedBy,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (s *MemStore) Consume(ctx context.Context, channel, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey(channel, userID)
	g, ok := s.grants[k]
	if !ok {
		return false, nil
	}
	// expired grants are removed lazily
	delete(s.grants, k)
	if time.Now().After(g.expiresAt) {
		return false, nil
	}
	return true, nil
}

func (s *MemStore) Active(ctx context.Context, channel, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[memKey(channel, userID)]
	if !ok {
		return false, nil
	}
	return time.Now().Before(g.expiresAt), nil
}
