package audit

import (
	"context"
	"sync"
	"time"
)

type MemLog struct {
	mu      sync.Mutex
	nextID  uint
	actions []ModAction
	nukes   []NukeSession
}

func NewMemLog() *MemLog {
	return &MemLog{nextID: 1}
}

func (l *MemLog) Append(ctx context.Context, action *ModAction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	action.ID = l.nextID
	l.nextID++
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now()
	}
	l.actions = append(l.actions, *action)
	return nil
}

func (l *MemLog) Recent(ctx context.Context, channel string, limit int) ([]ModAction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []ModAction
	for i := len(l.actions) - 1; i >= 0 && len(out) < limit; i-- {
		if l.actions[i].Channel == channel {
			out = append(out, l.actions[i])
		}
	}
	return out, nil
}

func (l *MemLog) ForUser(ctx context.Context, channel, userID string, limit int) ([]ModAction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []ModAction
	for i := len(l.actions) - 1; i >= 0 && len(out) < limit; i-- {
		if l.actions[i].Channel == channel && l.actions[i].UserID == userID {
			out = append(out, l.actions[i])
		}
	}
	return out, nil
}

func (l *MemLog) AppendNuke(ctx context.Context, session *NukeSession) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	l.nukes = append(l.nukes, *session)
	return nil
}

func (l *MemLog) RecentNukes(ctx context.Context, channel string, limit int) ([]NukeSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []NukeSession
	for i := len(l.nukes) - 1; i >= 0 && len(out) < limit; i-- {
		if l.nukes[i].Channel == channel {
			out = append(out, l.nukes[i])
		}
	}
	return out, nil
}
