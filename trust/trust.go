// Package trust tracks long-lived per-user standing within a channel. Trust
// drifts up with clean activity and down with enforcement, and whitelisted
// users bypass scoring entirely.
package trust

import (
	"context"
	"time"
)

const (
	// Score assigned to a user on first sight.
	DefaultScore = 50
	ScoreMin     = 0
	ScoreMax     = 100

	// EnforcementPenalty is subtracted from the score each time an
	// automatic action lands on the user.
	EnforcementPenalty = 10

	// cleanDriftEvery clean messages, the score rises one point.
	cleanDriftEvery = 25
)

// Record is one user's standing in one channel. Never deleted; a reset
// rewrites it in place.
type Record struct {
	Channel      string    `gorm:"primaryKey;size:64"`
	UserID       string    `gorm:"primaryKey;size:64"`
	Username     string    `gorm:"size:64"`
	Score        int
	MessageCount int
	Whitelisted  bool
	FirstSeen    time.Time
	LastSeen     time.Time
}

// FirstSeenAge is the days since the user was first observed, used to soften
// scoring for established chatters.
func (r *Record) FirstSeenAge(now time.Time) int {
	if r.FirstSeen.IsZero() {
		return 0
	}
	return int(now.Sub(r.FirstSeen).Hours() / 24)
}

// Store is the repository interface for trust records.
type Store interface {
	// GetOrCreate returns the existing record, or creates one at the
	// default score.
	GetOrCreate(ctx context.Context, channel, userID, username string, now time.Time) (*Record, error)
	// BumpMessage increments the message count and nudges the score upward.
	BumpMessage(ctx context.Context, channel, userID string, now time.Time) error
	// AdjustScore shifts the score by delta, clamped to [ScoreMin, ScoreMax].
	AdjustScore(ctx context.Context, channel, userID string, delta int) error
	SetWhitelisted(ctx context.Context, channel, userID string, whitelisted bool) error
}

// bumpDrift applies one message's activity drift to a record's count and
// score. Shared by every Store implementation so they stay in step.
func bumpDrift(messageCount, score int) (int, int) {
	messageCount++
	if messageCount%cleanDriftEvery == 0 {
		score = clampScore(score + 1)
	}
	return messageCount, score
}

func clampScore(v int) int {
	if v < ScoreMin {
		return ScoreMin
	}
	if v > ScoreMax {
		return ScoreMax
	}
	return v
}
