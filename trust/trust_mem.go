package trust

import (
	"context"
	"sync"
	"time"
)

type MemStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string]*Record),
	}
}

func memKey(channel, userID string) string {
	return channel + "/" + userID
}

func (s *MemStore) GetOrCreate(ctx context.Context, channel, userID, username string, now time.Time) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[memKey(channel, userID)]; ok {
		out := *rec
		return &out, nil
	}
	rec := &Record{
		Channel:   channel,
		UserID:    userID,
		Username:  username,
		Score:     DefaultScore,
		FirstSeen: now,
		LastSeen:  now,
	}
	s.records[memKey(channel, userID)] = rec
	out := *rec
	return &out, nil
}

func (s *MemStore) BumpMessage(ctx context.Context, channel, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[memKey(channel, userID)]
	if !ok {
		return nil
	}
	rec.MessageCount, rec.Score = bumpDrift(rec.MessageCount, rec.Score)
	rec.LastSeen = now
	return nil
}

func (s *MemStore) AdjustScore(ctx context.Context, channel, userID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[memKey(channel, userID)]
	if !ok {
		return nil
	}
	rec.Score = clampScore(rec.Score + delta)
	return nil
}

func (s *MemStore) SetWhitelisted(ctx context.Context, channel, userID string, whitelisted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[memKey(channel, userID)]
	if !ok {
		rec = &Record{
			Channel:   channel,
			UserID:    userID,
			Username:  userID,
			Score:     DefaultScore,
			FirstSeen: time.Now(),
		}
		s.records[memKey(channel, userID)] = rec
	}
	rec.Whitelisted = whitelisted
	return nil
}
