// Package nuke implements moderator-initiated sweeps: match a pattern
// against recent chat history and action every user who sent a matching
// message. Preview and execute share the same matching pass, so a previewed
// sweep executes against exactly the users the moderator saw.
package nuke

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatward/chatward/audit"
	"github.com/chatward/chatward/chat"
	"github.com/chatward/chatward/dispatch"
	"github.com/chatward/chatward/normalize"
)

const (
	DefaultLookback    = 120 * time.Second
	DefaultMaxAffected = 50
	DefaultTimeout     = 600 * time.Second
	cooldownWindow     = 30 * time.Second
)

// CooldownError rejects a sweep started too soon after the previous one in
// the same channel.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("nuke cooldown active, %s remaining", e.Remaining.Round(time.Second))
}

// Params describes one sweep.
type Params struct {
	Channel string
	Pattern string
	// Regex selects regex matching; otherwise the pattern is a substring.
	Regex bool
	// Lookback bounds how far back in the buffer to match. Zero means
	// DefaultLookback.
	Lookback time.Duration
	// Timeout is the penalty duration. Zero means DefaultTimeout; Ban
	// switches to a permanent ban instead.
	Timeout time.Duration
	Ban     bool
	// Subscribers and VIPs are spared unless explicitly included.
	// Moderators and the broadcaster are never swept.
	IncludeSubscribers bool
	IncludeVIPs        bool
	// ExcludeUsers spares specific user IDs.
	ExcludeUsers []string
	// MaxAffected caps how many users one sweep may touch. Zero means
	// DefaultMaxAffected.
	MaxAffected int
	InitiatedBy string
}

func (p *Params) withDefaults() Params {
	out := *p
	if out.Lookback <= 0 {
		out.Lookback = DefaultLookback
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.MaxAffected <= 0 {
		out.MaxAffected = DefaultMaxAffected
	}
	return out
}

// Target is one user a sweep would action.
type Target struct {
	UserID     string   `json:"user_id"`
	Username   string   `json:"username"`
	MessageIDs []string `json:"message_ids,omitempty"`
	// Sample is the first matching message text, for the preview listing.
	Sample string `json:"sample"`
}

// Result summarizes a preview or an execution.
type Result struct {
	SessionID string   `json:"session_id"`
	Targets   []Target `json:"targets"`
	// Truncated is set when MaxAffected cut the target list short.
	Truncated bool `json:"truncated"`
	Actioned  int  `json:"actioned"`
	Failed    int  `json:"failed"`
}

// Sweeper runs sweeps against per-channel history buffers.
type Sweeper struct {
	Dispatcher *dispatch.Dispatcher
	Log        audit.ActionLog
	Logger     *slog.Logger

	cooldownLock sync.Mutex
	lastExecute  map[string]time.Time

	activeLock sync.Mutex
	active     map[string]context.CancelFunc
}

func NewSweeper(d *dispatch.Dispatcher, log audit.ActionLog, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		Dispatcher:  d,
		Log:         log,
		Logger:      logger,
		lastExecute: make(map[string]time.Time),
		active:      make(map[string]context.CancelFunc),
	}
}

// Abort cancels the channel's running sweep, if any. Returns false when
// nothing was running.
func (s *Sweeper) Abort(channel string) bool {
	s.activeLock.Lock()
	defer s.activeLock.Unlock()
	cancel, ok := s.active[channel]
	if !ok {
		return false
	}
	cancel()
	delete(s.active, channel)
	return true
}

func (s *Sweeper) register(channel string, cancel context.CancelFunc) {
	s.activeLock.Lock()
	defer s.activeLock.Unlock()
	s.active[channel] = cancel
}

func (s *Sweeper) unregister(channel string) {
	s.activeLock.Lock()
	defer s.activeLock.Unlock()
	delete(s.active, channel)
}

// match runs the shared matching pass: oldest-first over the lookback
// window, one target per user, capped at MaxAffected.
func match(buf *chat.Buffer, params Params, now time.Time) ([]Target, bool, error) {
	re, err := compilePattern(params.Pattern, params.Regex)
	if err != nil {
		return nil, false, err
	}
	needle := strings.ToLower(params.Pattern)

	excluded := make(map[string]bool, len(params.ExcludeUsers))
	for _, id := range params.ExcludeUsers {
		excluded[id] = true
	}

	var targets []Target
	index := make(map[string]int)
	truncated := false
	for _, msg := range buf.Since(now.Add(-params.Lookback)) {
		if msg.Moderator || msg.Broadcaster || excluded[msg.UserID] {
			continue
		}
		if msg.Subscriber && !params.IncludeSubscribers {
			continue
		}
		if msg.VIP && !params.IncludeVIPs {
			continue
		}
		norm := normalize.Text(msg.Text)
		if re != nil {
			if !re.MatchString(msg.Text) && !re.MatchString(norm) {
				continue
			}
		} else if !strings.Contains(norm, needle) && !strings.Contains(strings.ToLower(msg.Text), needle) {
			continue
		}
		if i, ok := index[msg.UserID]; ok {
			targets[i].MessageIDs = append(targets[i].MessageIDs, msg.ID)
			continue
		}
		if len(targets) >= params.MaxAffected {
			truncated = true
			break
		}
		index[msg.UserID] = len(targets)
		t := Target{UserID: msg.UserID, Username: msg.Username, Sample: msg.Text}
		if msg.ID != "" {
			t.MessageIDs = []string{msg.ID}
		}
		targets = append(targets, t)
	}
	return targets, truncated, nil
}

// Preview reports which users a sweep would action, without acting. The
// session is still audited so previews leave a trail.
func (s *Sweeper) Preview(ctx context.Context, buf *chat.Buffer, params Params) (*Result, error) {
	params = params.withDefaults()
	targets, truncated, err := match(buf, params, time.Now())
	if err != nil {
		return nil, err
	}
	res := &Result{
		SessionID: uuid.New().String(),
		Targets:   targets,
		Truncated: truncated,
	}
	if err := s.Log.AppendNuke(ctx, &audit.NukeSession{
		ID:          res.SessionID,
		Channel:     params.Channel,
		Pattern:     params.Pattern,
		Regex:       params.Regex,
		Matched:     len(targets),
		InitiatedBy: params.InitiatedBy,
	}); err != nil {
		return nil, fmt.Errorf("recording nuke preview: %w", err)
	}
	return res, nil
}

// Execute runs the sweep and actions every target. Targets are actioned
// serially; a delivery failure is counted and the sweep continues, but a
// cancelled context stops it mid-pass. Partial progress is audited either
// way.
func (s *Sweeper) Execute(ctx context.Context, buf *chat.Buffer, params Params) (*Result, error) {
	params = params.withDefaults()
	now := time.Now()

	if remaining := s.CooldownRemaining(params.Channel, now); remaining > 0 {
		return nil, &CooldownError{Remaining: remaining}
	}

	targets, truncated, err := match(buf, params, now)
	if err != nil {
		return nil, err
	}

	// registered so a moderator abort can cancel mid-pass
	ctx, cancel := context.WithCancel(ctx)
	s.register(params.Channel, cancel)
	defer s.unregister(params.Channel)
	defer cancel()

	res := &Result{
		SessionID: uuid.New().String(),
		Targets:   targets,
		Truncated: truncated,
	}
	logger := s.Logger.With("channel", params.Channel, "sessionID", res.SessionID, "pattern", params.Pattern)
	logger.Info("executing nuke sweep", "targets", len(targets))

	var errs []error
	for _, target := range targets {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		act := &dispatch.Action{
			Channel:     params.Channel,
			UserID:      target.UserID,
			Username:    target.Username,
			Kind:        dispatch.KindTimeout,
			Duration:    params.Timeout,
			Reason:      fmt.Sprintf("nuke sweep %s", res.SessionID),
			Source:      audit.SourceNuke,
			SessionID:   res.SessionID,
			ModeratorID: params.InitiatedBy,
		}
		if params.Ban {
			act.Kind = dispatch.KindBan
			act.Duration = 0
		}
		if err := s.Dispatcher.Dispatch(ctx, act); err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("user %s: %w", target.UserID, err))
			continue
		}
		res.Actioned++
		for _, msgID := range target.MessageIDs {
			if err := s.Dispatcher.Dispatch(ctx, &dispatch.Action{
				Channel:     params.Channel,
				UserID:      target.UserID,
				Username:    target.Username,
				Kind:        dispatch.KindDelete,
				MessageID:   msgID,
				Reason:      fmt.Sprintf("nuke sweep %s", res.SessionID),
				Source:      audit.SourceNuke,
				SessionID:   res.SessionID,
				ModeratorID: params.InitiatedBy,
			}); err != nil {
				logger.Warn("message delete failed", "userID", target.UserID, "err", err)
			}
		}
	}

	s.markExecuted(params.Channel, now)

	// the session record must land even when the sweep was aborted
	if err := s.Log.AppendNuke(context.WithoutCancel(ctx), &audit.NukeSession{
		ID:          res.SessionID,
		Channel:     params.Channel,
		Pattern:     params.Pattern,
		Regex:       params.Regex,
		Executed:    true,
		Matched:     len(targets),
		Actioned:    res.Actioned,
		Failed:      res.Failed,
		InitiatedBy: params.InitiatedBy,
	}); err != nil {
		errs = append(errs, fmt.Errorf("recording nuke session: %w", err))
	}

	return res, errors.Join(errs...)
}

// CooldownRemaining reports how long until the channel may sweep again.
func (s *Sweeper) CooldownRemaining(channel string, now time.Time) time.Duration {
	s.cooldownLock.Lock()
	defer s.cooldownLock.Unlock()
	last, ok := s.lastExecute[channel]
	if !ok {
		return 0
	}
	remaining := cooldownWindow - now.Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *Sweeper) markExecuted(channel string, now time.Time) {
	s.cooldownLock.Lock()
	defer s.cooldownLock.Unlock()
	s.lastExecute[channel] = now
}
