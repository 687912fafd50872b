package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemLogActions(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	log := NewMemLog()

	assert.NoError(log.Append(ctx, &ModAction{
		Channel: "chan1", UserID: "user1", Action: "warn", Source: SourceAuto, Delivered: true,
	}))
	assert.NoError(log.Append(ctx, &ModAction{
		Channel: "chan1", UserID: "user2", Action: "timeout", DurationSeconds: 60, Source: SourceAuto, Delivered: true,
	}))
	assert.NoError(log.Append(ctx, &ModAction{
		Channel: "chan1", UserID: "user1", Action: "timeout", DurationSeconds: 600, Source: SourceAuto,
		Delivered: false, Error: "api timeout",
	}))
	assert.NoError(log.Append(ctx, &ModAction{
		Channel: "chan2", UserID: "user1", Action: "ban", Source: SourceManual, ModeratorID: "mod1", Delivered: true,
	}))

	recent, err := log.Recent(ctx, "chan1", 10)
	assert.NoError(err)
	assert.Len(recent, 3)
	// newest first, failures included
	assert.Equal("timeout", recent[0].Action)
	assert.False(recent[0].Delivered)
	assert.Equal("api timeout", recent[0].Error)

	recent, err = log.Recent(ctx, "chan1", 2)
	assert.NoError(err)
	assert.Len(recent, 2)

	forUser, err := log.ForUser(ctx, "chan1", "user1", 10)
	assert.NoError(err)
	assert.Len(forUser, 2)
	assert.Equal("timeout", forUser[0].Action)
	assert.Equal("warn", forUser[1].Action)
}

func TestMemLogNukes(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	log := NewMemLog()

	assert.NoError(log.AppendNuke(ctx, &NukeSession{
		ID: "sess-1", Channel: "chan1", Pattern: "buy followers", Matched: 4, InitiatedBy: "mod1",
	}))
	assert.NoError(log.AppendNuke(ctx, &NukeSession{
		ID: "sess-2", Channel: "chan1", Pattern: "buy followers", Executed: true,
		Matched: 4, Actioned: 3, Failed: 1, InitiatedBy: "mod1",
	}))

	nukes, err := log.RecentNukes(ctx, "chan1", 10)
	assert.NoError(err)
	assert.Len(nukes, 2)
	assert.True(nukes[0].Executed)
	assert.Equal(1, nukes[0].Failed)
	assert.False(nukes[1].Executed)
}
