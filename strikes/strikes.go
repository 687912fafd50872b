// Package strikes implements the escalation ladder for flagged messages.
// Each flagged message advances a per-user strike level; the level maps to a
// penalty that grows from a warning through timeouts to a ban.
package strikes

import (
	"context"
	"time"

	"github.com/chatward/chatward/config"
)

type ActionType string

const (
	// ActionNone means the strike was debounced and no new penalty applies.
	ActionNone    ActionType = "none"
	ActionWarn    ActionType = "warn"
	ActionTimeout ActionType = "timeout"
	ActionBan     ActionType = "ban"
)

// timeouts by strike level; level 1 is a warning, levels past the ladder ban.
var levelTimeouts = map[int]time.Duration{
	2: 60 * time.Second,
	3: 600 * time.Second,
	4: 3600 * time.Second,
}

// maxImmuneTimeout is the hardest penalty a subscriber can receive when
// subscriber immunity is enabled for the channel.
const maxImmuneTimeout = 3600 * time.Second

// Record is one user's position on the ladder in one channel.
type Record struct {
	Channel      string    `gorm:"primaryKey" json:"channel"`
	UserID       string    `gorm:"primaryKey" json:"user_id"`
	Level        int       `json:"level"`
	LastStrikeAt time.Time `json:"last_strike_at"`
	UpdatedAt    time.Time `json:"-"`
}

// Outcome describes what happened when a flagged message hit the ladder.
type Outcome struct {
	Level    int           `json:"level"`
	Advanced bool          `json:"advanced"`
	Expired  bool          `json:"expired"`
	Action   ActionType    `json:"action"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

// Store is the repository interface for strike records.
type Store interface {
	// Get returns the record for the user, or nil if they have no strikes.
	Get(ctx context.Context, channel, userID string) (*Record, error)
	Put(ctx context.Context, rec *Record) error
	// Clear removes the user's record entirely.
	Clear(ctx context.Context, channel, userID string) error
}

// Ledger applies the ladder rules on top of a Store.
type Ledger struct {
	Store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{Store: store}
}

// Advance records a flagged message and returns the penalty to apply.
//
// A second flag inside the debounce window does not advance the level and
// carries no new penalty. A record whose last strike is older than the
// channel's expiry window is wiped before the new strike lands, so the user
// restarts at level one rather than resuming an old ladder position.
func (l *Ledger) Advance(ctx context.Context, channel, userID string, subscriber bool, cfg *config.ChannelConfig, now time.Time) (*Outcome, error) {
	rec, err := l.Store.Get(ctx, channel, userID)
	if err != nil {
		return nil, err
	}

	out := &Outcome{}
	if rec == nil {
		rec = &Record{Channel: channel, UserID: userID}
	} else {
		debounce := time.Duration(cfg.DebounceSeconds) * time.Second
		if now.Sub(rec.LastStrikeAt) < debounce {
			out.Level = rec.Level
			out.Action = ActionNone
			return out, nil
		}
		expiry := time.Duration(cfg.StrikeExpiryDays) * 24 * time.Hour
		if rec.Level > 0 && now.Sub(rec.LastStrikeAt) > expiry {
			rec.Level = 0
			out.Expired = true
		}
	}

	rec.Level++
	rec.LastStrikeAt = now
	if err := l.Store.Put(ctx, rec); err != nil {
		return nil, err
	}

	out.Level = rec.Level
	out.Advanced = true
	out.Action, out.Timeout = penaltyFor(rec.Level, cfg.BanThreshold, subscriber && cfg.SubscriberImmunity)
	return out, nil
}

// Clear wipes a user's ladder position. Used by the manual mod command and
// by whitelisting.
func (l *Ledger) Clear(ctx context.Context, channel, userID string) error {
	return l.Store.Clear(ctx, channel, userID)
}

// Level returns the user's current level after applying lazy expiry, without
// recording a strike.
func (l *Ledger) Level(ctx context.Context, channel, userID string, cfg *config.ChannelConfig, now time.Time) (int, error) {
	rec, err := l.Store.Get(ctx, channel, userID)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return 0, nil
	}
	expiry := time.Duration(cfg.StrikeExpiryDays) * 24 * time.Hour
	if now.Sub(rec.LastStrikeAt) > expiry {
		return 0, nil
	}
	return rec.Level, nil
}

func penaltyFor(level, banThreshold int, immune bool) (ActionType, time.Duration) {
	if level <= 1 {
		return ActionWarn, 0
	}
	if level >= banThreshold {
		if immune {
			return ActionTimeout, maxImmuneTimeout
		}
		return ActionBan, 0
	}
	if d, ok := levelTimeouts[level]; ok {
		return ActionTimeout, d
	}
	// levels between the named rungs and the ban threshold hold at the top
	// timeout (only reachable with a raised ban threshold)
	return ActionTimeout, maxImmuneTimeout
}
