package dispatch

import (
	"context"
	"sync"
	"time"
)

// MockCall records one call against the MockModService.
type MockCall struct {
	Op        string
	Channel   string
	UserID    string
	MessageID string
	Duration  time.Duration
	Reason    string
	Text      string
}

// MockModService records calls and fails on demand. Used across packages for
// end-to-end tests without a live moderation API.
type MockModService struct {
	mu    sync.Mutex
	calls []MockCall

	// Fail, when set, is returned from every call.
	Fail error
}

func NewMockModService() *MockModService {
	return &MockModService{}
}

func (m *MockModService) record(c MockCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.calls = append(m.calls, c)
	return nil
}

func (m *MockModService) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockModService) Announce(ctx context.Context, channel, text string) error {
	return m.record(MockCall{Op: "announce", Channel: channel, Text: text})
}

func (m *MockModService) Timeout(ctx context.Context, channel, userID string, duration time.Duration, reason string) error {
	return m.record(MockCall{Op: "timeout", Channel: channel, UserID: userID, Duration: duration, Reason: reason})
}

func (m *MockModService) Ban(ctx context.Context, channel, userID, reason string) error {
	return m.record(MockCall{Op: "ban", Channel: channel, UserID: userID, Reason: reason})
}

func (m *MockModService) Unban(ctx context.Context, channel, userID string) error {
	return m.record(MockCall{Op: "unban", Channel: channel, UserID: userID})
}

func (m *MockModService) Delete(ctx context.Context, channel, messageID string) error {
	return m.record(MockCall{Op: "delete", Channel: channel, MessageID: messageID})
}
