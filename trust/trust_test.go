package trust

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemStoreGetOrCreate(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	s := NewMemStore()
	rec, err := s.GetOrCreate(ctx, "chan1", "u1", "alice", now)
	assert.NoError(err)
	assert.Equal(DefaultScore, rec.Score)
	assert.Equal(now, rec.FirstSeen)

	// second fetch returns the same record, does not reset
	assert.NoError(s.AdjustScore(ctx, "chan1", "u1", -10))
	rec, err = s.GetOrCreate(ctx, "chan1", "u1", "alice", now.Add(time.Hour))
	assert.NoError(err)
	assert.Equal(DefaultScore-10, rec.Score)
	assert.Equal(now, rec.FirstSeen)
}

func TestMemStoreScoreClamped(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.Now()

	s := NewMemStore()
	_, err := s.GetOrCreate(ctx, "chan1", "u1", "alice", now)
	assert.NoError(err)

	assert.NoError(s.AdjustScore(ctx, "chan1", "u1", -500))
	rec, _ := s.GetOrCreate(ctx, "chan1", "u1", "alice", now)
	assert.Equal(ScoreMin, rec.Score)

	assert.NoError(s.AdjustScore(ctx, "chan1", "u1", 500))
	rec, _ = s.GetOrCreate(ctx, "chan1", "u1", "alice", now)
	assert.Equal(ScoreMax, rec.Score)
}

func TestBumpDriftSharedRule(t *testing.T) {
	assert := assert.New(t)

	count, score := bumpDrift(cleanDriftEvery-1, DefaultScore)
	assert.Equal(cleanDriftEvery, count)
	assert.Equal(DefaultScore+1, score)

	count, score = bumpDrift(0, DefaultScore)
	assert.Equal(1, count)
	assert.Equal(DefaultScore, score)

	_, score = bumpDrift(cleanDriftEvery-1, ScoreMax)
	assert.Equal(ScoreMax, score)
}

func TestMemStoreBumpDrift(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.Now()

	s := NewMemStore()
	_, err := s.GetOrCreate(ctx, "chan1", "u1", "alice", now)
	assert.NoError(err)

	for i := 0; i < 2*cleanDriftEvery; i++ {
		assert.NoError(s.BumpMessage(ctx, "chan1", "u1", now))
	}
	rec, err := s.GetOrCreate(ctx, "chan1", "u1", "alice", now)
	assert.NoError(err)
	assert.Equal(2*cleanDriftEvery, rec.MessageCount)
	assert.Equal(DefaultScore+2, rec.Score)
}

func TestMemStoreWhitelistUnknownUser(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewMemStore()
	assert.NoError(s.SetWhitelisted(ctx, "chan1", "u9", true))
	rec, err := s.GetOrCreate(ctx, "chan1", "u9", "u9", time.Now())
	assert.NoError(err)
	assert.True(rec.Whitelisted)
}

func TestFirstSeenAge(t *testing.T) {
	assert := assert.New(t)

	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	rec := Record{FirstSeen: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	assert.Equal(30, rec.FirstSeenAge(now))

	var fresh Record
	assert.Equal(0, fresh.FirstSeenAge(now))
}
