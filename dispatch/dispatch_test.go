package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatward/chatward/audit"
	"github.com/chatward/chatward/countstore"
)

func testDispatcher(svc ModService) (*Dispatcher, *audit.MemLog) {
	log := audit.NewMemLog()
	return NewDispatcher(svc, log, countstore.NewMemCountStore(), nil), log
}

func TestDispatchDelivery(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	svc := NewMockModService()
	d, log := testDispatcher(svc)

	assert.NoError(d.Dispatch(ctx, &Action{
		Channel: "chan1", UserID: "user1", Username: "alice",
		Kind: KindTimeout, Duration: 60 * time.Second, Reason: "spam", Score: 45,
		Source: audit.SourceAuto,
	}))

	calls := svc.Calls()
	assert.Len(calls, 1)
	assert.Equal("timeout", calls[0].Op)
	assert.Equal(60*time.Second, calls[0].Duration)

	recent, err := log.Recent(ctx, "chan1", 10)
	assert.NoError(err)
	assert.Len(recent, 1)
	assert.True(recent[0].Delivered)
	assert.Equal(60, recent[0].DurationSeconds)
	assert.Equal(45, recent[0].Score)
}

func TestDispatchFailureStillAudited(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	svc := NewMockModService()
	svc.Fail = &TransientAPIError{Op: "ban", StatusCode: 503}
	d, log := testDispatcher(svc)

	err := d.Dispatch(ctx, &Action{
		Channel: "chan1", UserID: "user1", Username: "alice",
		Kind: KindBan, Reason: "spam", Source: audit.SourceAuto,
	})
	assert.Error(err)
	assert.True(IsTransient(err))

	recent, aerr := log.Recent(ctx, "chan1", 10)
	assert.NoError(aerr)
	assert.Len(recent, 1)
	assert.False(recent[0].Delivered)
	assert.Contains(recent[0].Error, "transient API failure")
}

func TestDispatchQuotaCircuitBreaker(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	svc := NewMockModService()
	d, log := testDispatcher(svc)
	d.QuotaBanDay = 2

	for i := 0; i < 4; i++ {
		assert.NoError(d.Dispatch(ctx, &Action{
			Channel: "chan1", UserID: "user1", Username: "alice",
			Kind: KindBan, Reason: "spam", Source: audit.SourceAuto,
		}))
	}

	// only the first two reach the platform
	assert.Len(svc.Calls(), 2)

	recent, err := log.Recent(ctx, "chan1", 10)
	assert.NoError(err)
	assert.Len(recent, 4)
	assert.Equal("daily quota exceeded", recent[0].Error)
	assert.False(recent[0].Delivered)
	assert.True(recent[3].Delivered)

	// warns are never quota limited
	assert.NoError(d.Dispatch(ctx, &Action{
		Channel: "chan1", UserID: "user2", Username: "bob",
		Kind: KindWarn, Reason: "caps", Source: audit.SourceAuto,
	}))
	assert.Len(svc.Calls(), 3)
}

func TestDispatchWarnText(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	svc := NewMockModService()
	d, _ := testDispatcher(svc)

	assert.NoError(d.Dispatch(ctx, &Action{
		Channel: "chan1", UserID: "user1", Username: "alice",
		Kind: KindWarn, Reason: "excessive caps", Source: audit.SourceAuto,
	}))

	calls := svc.Calls()
	assert.Len(calls, 1)
	assert.Equal("announce", calls[0].Op)
	assert.Contains(calls[0].Text, "@alice")
	assert.Contains(calls[0].Text, "excessive caps")
}

func TestDispatchUnknownKind(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	d, _ := testDispatcher(NewMockModService())

	err := d.Dispatch(ctx, &Action{Channel: "chan1", Kind: "explode"})
	assert.Error(err)
	var pe *PermanentAPIError
	assert.True(errors.As(err, &pe))
}
