// Package audit records every moderation action the system takes or attempts.
// The log is append-only: delivery failures are recorded alongside successes
// so the trail reflects intent, not just outcome.
package audit

import (
	"context"
	"time"
)

// Source distinguishes how an action was initiated.
type Source string

const (
	SourceAuto   Source = "auto"
	SourceManual Source = "manual"
	SourceNuke   Source = "nuke"
)

// ModAction is one attempted moderation action against a user.
type ModAction struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Channel         string    `gorm:"index:idx_mod_actions_channel_user" json:"channel"`
	UserID          string    `gorm:"index:idx_mod_actions_channel_user" json:"user_id"`
	Username        string    `json:"username"`
	Action          string    `json:"action"`
	DurationSeconds int       `json:"duration_seconds,omitempty"`
	Reason          string    `json:"reason"`
	Score           int       `json:"score,omitempty"`
	Source          Source    `json:"source"`
	SessionID       string    `gorm:"index" json:"session_id,omitempty"`
	ModeratorID     string    `json:"moderator_id,omitempty"`
	Delivered       bool      `json:"delivered"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// NukeSession summarizes one preview or execute sweep.
type NukeSession struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Channel     string    `gorm:"index" json:"channel"`
	Pattern     string    `json:"pattern"`
	Regex       bool      `json:"regex"`
	Executed    bool      `json:"executed"`
	Matched     int       `json:"matched"`
	Actioned    int       `json:"actioned"`
	Failed      int       `json:"failed"`
	InitiatedBy string    `json:"initiated_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActionLog is the repository interface for the audit trail.
type ActionLog interface {
	Append(ctx context.Context, action *ModAction) error
	// Recent returns the newest actions for a channel, newest first.
	Recent(ctx context.Context, channel string, limit int) ([]ModAction, error)
	// ForUser returns the newest actions against one user, newest first.
	ForUser(ctx context.Context, channel, userID string, limit int) ([]ModAction, error)
	AppendNuke(ctx context.Context, session *NukeSession) error
	RecentNukes(ctx context.Context, channel string, limit int) ([]NukeSession, error)
}
