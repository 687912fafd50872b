package strikes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatward/chatward/config"
)

func TestLadderEscalation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	cfg := config.Default()
	ledger := NewLedger(NewMemStore())

	now := time.Now()
	expected := []struct {
		level   int
		action  ActionType
		timeout time.Duration
	}{
		{1, ActionWarn, 0},
		{2, ActionTimeout, 60 * time.Second},
		{3, ActionTimeout, 600 * time.Second},
		{4, ActionTimeout, 3600 * time.Second},
		{5, ActionBan, 0},
	}

	for i, exp := range expected {
		// step past the debounce window between strikes
		at := now.Add(time.Duration(i) * time.Minute)
		out, err := ledger.Advance(ctx, "chan1", "user1", false, &cfg, at)
		assert.NoError(err)
		assert.Equal(exp.level, out.Level)
		assert.True(out.Advanced)
		assert.Equal(exp.action, out.Action)
		assert.Equal(exp.timeout, out.Timeout)
	}
}

func TestLadderDebounce(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	cfg := config.Default()
	ledger := NewLedger(NewMemStore())

	now := time.Now()
	out, err := ledger.Advance(ctx, "chan1", "user1", false, &cfg, now)
	assert.NoError(err)
	assert.Equal(1, out.Level)
	assert.True(out.Advanced)

	// a burst of flags inside the debounce window neither advances the
	// ladder nor re-penalizes
	for i := 1; i <= 3; i++ {
		out, err = ledger.Advance(ctx, "chan1", "user1", false, &cfg, now.Add(time.Duration(i)*time.Second))
		assert.NoError(err)
		assert.Equal(1, out.Level)
		assert.False(out.Advanced)
		assert.Equal(ActionNone, out.Action)
	}

	out, err = ledger.Advance(ctx, "chan1", "user1", false, &cfg, now.Add(time.Duration(cfg.DebounceSeconds+1)*time.Second))
	assert.NoError(err)
	assert.Equal(2, out.Level)
	assert.True(out.Advanced)
}

func TestLadderLazyExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	cfg := config.Default()
	store := NewMemStore()
	ledger := NewLedger(store)

	now := time.Now()
	for i := 0; i < 3; i++ {
		_, err := ledger.Advance(ctx, "chan1", "user1", false, &cfg, now.Add(time.Duration(i)*time.Minute))
		assert.NoError(err)
	}

	lvl, err := ledger.Level(ctx, "chan1", "user1", &cfg, now.Add(5*time.Minute))
	assert.NoError(err)
	assert.Equal(3, lvl)

	// past the expiry window the old strikes are gone, not resumed
	later := now.Add(time.Duration(cfg.StrikeExpiryDays)*24*time.Hour + time.Hour)
	lvl, err = ledger.Level(ctx, "chan1", "user1", &cfg, later)
	assert.NoError(err)
	assert.Equal(0, lvl)

	out, err := ledger.Advance(ctx, "chan1", "user1", false, &cfg, later)
	assert.NoError(err)
	assert.Equal(1, out.Level)
	assert.True(out.Expired)
	assert.Equal(ActionWarn, out.Action)
}

func TestLadderSubscriberImmunity(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	cfg := config.Default()
	ledger := NewLedger(NewMemStore())

	now := time.Now()
	var out *Outcome
	var err error
	for i := 0; i < cfg.BanThreshold; i++ {
		out, err = ledger.Advance(ctx, "chan1", "user1", true, &cfg, now.Add(time.Duration(i)*time.Minute))
		assert.NoError(err)
	}
	assert.Equal(cfg.BanThreshold, out.Level)
	assert.Equal(ActionTimeout, out.Action)
	assert.Equal(3600*time.Second, out.Timeout)

	// immunity only softens the penalty when the channel opts in
	cfg.SubscriberImmunity = false
	out, err = ledger.Advance(ctx, "chan1", "user2", true, &cfg, now)
	assert.NoError(err)
	assert.Equal(ActionWarn, out.Action)
	for i := 1; i < cfg.BanThreshold; i++ {
		out, err = ledger.Advance(ctx, "chan1", "user2", true, &cfg, now.Add(time.Duration(i)*time.Minute))
		assert.NoError(err)
	}
	assert.Equal(ActionBan, out.Action)
}

func TestLadderClear(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	cfg := config.Default()
	ledger := NewLedger(NewMemStore())

	now := time.Now()
	for i := 0; i < 3; i++ {
		_, err := ledger.Advance(ctx, "chan1", "user1", false, &cfg, now.Add(time.Duration(i)*time.Minute))
		assert.NoError(err)
	}

	assert.NoError(ledger.Clear(ctx, "chan1", "user1"))

	out, err := ledger.Advance(ctx, "chan1", "user1", false, &cfg, now.Add(time.Hour))
	assert.NoError(err)
	assert.Equal(1, out.Level)
	assert.Equal(ActionWarn, out.Action)
}

func TestLadderChannelsIndependent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	cfg := config.Default()
	ledger := NewLedger(NewMemStore())

	now := time.Now()
	_, err := ledger.Advance(ctx, "chan1", "user1", false, &cfg, now)
	assert.NoError(err)

	out, err := ledger.Advance(ctx, "chan2", "user1", false, &cfg, now)
	assert.NoError(err)
	assert.Equal(1, out.Level)
}
