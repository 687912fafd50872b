package nuke

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatward/chatward/audit"
	"github.com/chatward/chatward/chat"
	"github.com/chatward/chatward/countstore"
	"github.com/chatward/chatward/dispatch"
)

func testSweeper() (*Sweeper, *dispatch.MockModService, *audit.MemLog) {
	svc := dispatch.NewMockModService()
	log := audit.NewMemLog()
	d := dispatch.NewDispatcher(svc, log, countstore.NewMemCountStore(), nil)
	return NewSweeper(d, log, nil), svc, log
}

func seedBuffer(now time.Time) *chat.Buffer {
	buf := chat.NewBuffer(256)
	msgs := []chat.Message{
		{ID: "m1", Channel: "chan1", UserID: "u1", Username: "spammer1", Text: "buy followers at spamsite.com"},
		{ID: "m2", Channel: "chan1", UserID: "u2", Username: "spammer2", Text: "BUY F0LL0WERS now!!!"},
		{ID: "m3", Channel: "chan1", UserID: "u1", Username: "spammer1", Text: "buy followers cheap"},
		{ID: "m4", Channel: "chan1", UserID: "u3", Username: "regular", Text: "great play!"},
		{ID: "m5", Channel: "chan1", UserID: "u4", Username: "subfan", Text: "buy followers lol", Subscriber: true},
		{ID: "m6", Channel: "chan1", UserID: "u5", Username: "themod", Text: "buy followers (testing filter)", Moderator: true},
	}
	for _, m := range msgs {
		m.Timestamp = now.Add(-time.Minute)
		buf.Append(m)
	}
	return buf
}

func TestPatternValidation(t *testing.T) {
	assert := assert.New(t)

	_, err := compilePattern("buy followers", false)
	assert.NoError(err)

	re, err := compilePattern(`buy\s+followers`, true)
	assert.NoError(err)
	assert.True(re.MatchString("BUY   Followers"))

	cases := []struct {
		pattern string
		isRegex bool
	}{
		{"", false},
		{"   ", false},
		{string(make([]byte, 101)), false},
		{`(a+)+`, true},
		{`(ab*)*`, true},
		{`a**`, true},
		{`a+b+c+d+e+f+g+h+i+j+k+`, true},
		{`[unclosed`, true},
	}
	for _, tc := range cases {
		_, err := compilePattern(tc.pattern, tc.isRegex)
		var ipe *InvalidPatternError
		assert.ErrorAs(err, &ipe, "pattern %q", tc.pattern)
	}
}

func TestPreviewMatching(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, svc, log := testSweeper()
	now := time.Now()
	buf := seedBuffer(now)

	res, err := s.Preview(ctx, buf, Params{
		Channel: "chan1", Pattern: "buy followers", InitiatedBy: "mod1",
	})
	assert.NoError(err)
	assert.NotEmpty(res.SessionID)

	// u1 deduped to one target with both messages, u2 caught via
	// normalization, the subscriber and the moderator spared
	assert.Len(res.Targets, 2)
	assert.Equal("u1", res.Targets[0].UserID)
	assert.Equal([]string{"m1", "m3"}, res.Targets[0].MessageIDs)
	assert.Equal("u2", res.Targets[1].UserID)

	// preview acts on nobody
	assert.Empty(svc.Calls())

	nukes, err := log.RecentNukes(ctx, "chan1", 10)
	assert.NoError(err)
	assert.Len(nukes, 1)
	assert.False(nukes[0].Executed)
	assert.Equal(2, nukes[0].Matched)
}

func TestPreviewIncludeSubscribers(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, _, _ := testSweeper()
	buf := seedBuffer(time.Now())

	res, err := s.Preview(ctx, buf, Params{
		Channel: "chan1", Pattern: "buy followers",
		IncludeSubscribers: true, InitiatedBy: "mod1",
	})
	assert.NoError(err)
	assert.Len(res.Targets, 3)
}

func TestPreviewExcludeUsers(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, _, _ := testSweeper()
	buf := seedBuffer(time.Now())

	res, err := s.Preview(ctx, buf, Params{
		Channel: "chan1", Pattern: "buy followers",
		ExcludeUsers: []string{"u1"}, InitiatedBy: "mod1",
	})
	assert.NoError(err)
	assert.Len(res.Targets, 1)
	assert.Equal("u2", res.Targets[0].UserID)
}

func TestPreviewLookbackWindow(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, _, _ := testSweeper()
	now := time.Now()

	buf := chat.NewBuffer(16)
	buf.Append(chat.Message{ID: "old", Channel: "chan1", UserID: "u1", Username: "a",
		Text: "buy followers", Timestamp: now.Add(-10 * time.Minute)})
	buf.Append(chat.Message{ID: "new", Channel: "chan1", UserID: "u2", Username: "b",
		Text: "buy followers", Timestamp: now.Add(-30 * time.Second)})

	res, err := s.Preview(ctx, buf, Params{Channel: "chan1", Pattern: "buy followers"})
	assert.NoError(err)
	assert.Len(res.Targets, 1)
	assert.Equal("u2", res.Targets[0].UserID)
}

func TestMaxAffectedCap(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, _, _ := testSweeper()
	now := time.Now()

	buf := chat.NewBuffer(256)
	for i := 0; i < 20; i++ {
		buf.Append(chat.Message{
			ID: fmt.Sprintf("m%d", i), Channel: "chan1",
			UserID: fmt.Sprintf("u%d", i), Username: fmt.Sprintf("user%d", i),
			Text: "buy followers", Timestamp: now.Add(-time.Minute),
		})
	}

	res, err := s.Preview(ctx, buf, Params{
		Channel: "chan1", Pattern: "buy followers", MaxAffected: 5,
	})
	assert.NoError(err)
	assert.Len(res.Targets, 5)
	assert.True(res.Truncated)
	// oldest matches win under the cap
	assert.Equal("u0", res.Targets[0].UserID)
}

func TestExecuteActionsTargets(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, svc, log := testSweeper()
	now := time.Now()
	buf := seedBuffer(now)

	res, err := s.Execute(ctx, buf, Params{
		Channel: "chan1", Pattern: "buy followers",
		Timeout: 300 * time.Second, InitiatedBy: "mod1",
	})
	assert.NoError(err)
	assert.Equal(2, res.Actioned)
	assert.Equal(0, res.Failed)

	var timeouts, deletes int
	for _, c := range svc.Calls() {
		switch c.Op {
		case "timeout":
			timeouts++
			assert.Equal(300*time.Second, c.Duration)
		case "delete":
			deletes++
		}
	}
	assert.Equal(2, timeouts)
	assert.Equal(3, deletes)

	nukes, err := log.RecentNukes(ctx, "chan1", 10)
	assert.NoError(err)
	assert.Len(nukes, 1)
	assert.True(nukes[0].Executed)
	assert.Equal(2, nukes[0].Actioned)

	actions, err := log.Recent(ctx, "chan1", 100)
	assert.NoError(err)
	for _, a := range actions {
		assert.Equal(res.SessionID, a.SessionID)
		assert.Equal(audit.SourceNuke, a.Source)
	}
}

func TestExecuteBanMode(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, svc, _ := testSweeper()
	buf := seedBuffer(time.Now())

	res, err := s.Execute(ctx, buf, Params{
		Channel: "chan1", Pattern: "buy followers", Ban: true, InitiatedBy: "mod1",
	})
	assert.NoError(err)
	assert.Equal(2, res.Actioned)

	var bans int
	for _, c := range svc.Calls() {
		if c.Op == "ban" {
			bans++
		}
	}
	assert.Equal(2, bans)
}

func TestExecutePartialFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	svc := dispatch.NewMockModService()
	log := audit.NewMemLog()
	d := dispatch.NewDispatcher(svc, log, countstore.NewMemCountStore(), nil)
	s := NewSweeper(d, log, nil)
	buf := seedBuffer(time.Now())

	svc.Fail = &dispatch.TransientAPIError{Op: "timeout", StatusCode: 503}
	res, err := s.Execute(ctx, buf, Params{
		Channel: "chan1", Pattern: "buy followers", InitiatedBy: "mod1",
	})
	assert.Error(err)
	assert.Equal(0, res.Actioned)
	assert.Equal(2, res.Failed)

	nukes, aerr := log.RecentNukes(ctx, "chan1", 10)
	assert.NoError(aerr)
	assert.Len(nukes, 1)
	assert.Equal(2, nukes[0].Failed)
}

func TestExecuteCooldown(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, _, _ := testSweeper()
	buf := seedBuffer(time.Now())

	_, err := s.Execute(ctx, buf, Params{Channel: "chan1", Pattern: "buy followers", InitiatedBy: "mod1"})
	assert.NoError(err)

	_, err = s.Execute(ctx, buf, Params{Channel: "chan1", Pattern: "buy followers", InitiatedBy: "mod1"})
	var ce *CooldownError
	assert.ErrorAs(err, &ce)

	// cooldowns are per channel
	_, err = s.Execute(ctx, chat.NewBuffer(16), Params{Channel: "chan2", Pattern: "buy followers", InitiatedBy: "mod1"})
	assert.NoError(err)
}

func TestPreviewMatchesExecute(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, _, _ := testSweeper()
	buf := seedBuffer(time.Now())
	params := Params{Channel: "chan1", Pattern: "buy followers", InitiatedBy: "mod1"}

	preview, err := s.Preview(ctx, buf, params)
	assert.NoError(err)

	exec, err := s.Execute(ctx, buf, params)
	assert.NoError(err)

	assert.Equal(len(preview.Targets), len(exec.Targets))
	for i := range preview.Targets {
		assert.Equal(preview.Targets[i].UserID, exec.Targets[i].UserID)
	}
}

// blockingService parks the first timeout call until released or cancelled,
// letting tests abort a sweep mid-pass.
type blockingService struct {
	*dispatch.MockModService
	started chan struct{}
}

func (s *blockingService) Timeout(ctx context.Context, channel, userID string, duration time.Duration, reason string) error {
	select {
	case s.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestExecuteAbort(t *testing.T) {
	assert := assert.New(t)
	svc := &blockingService{
		MockModService: dispatch.NewMockModService(),
		started:        make(chan struct{}, 1),
	}
	log := audit.NewMemLog()
	d := dispatch.NewDispatcher(svc, log, countstore.NewMemCountStore(), nil)
	s := NewSweeper(d, log, nil)
	buf := seedBuffer(time.Now())

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.Execute(context.Background(), buf, Params{
			Channel: "chan1", Pattern: "buy followers", InitiatedBy: "mod1",
		})
		done <- outcome{res, err}
	}()

	<-svc.started
	assert.True(s.Abort("chan1"))

	out := <-done
	assert.Error(out.err)
	assert.Equal(0, out.res.Actioned)

	// a second abort has nothing left to cancel
	assert.False(s.Abort("chan1"))

	// partial progress still lands in the session record
	nukes, err := log.RecentNukes(context.Background(), "chan1", 10)
	assert.NoError(err)
	assert.Len(nukes, 1)
	assert.True(nukes[0].Executed)
}

func TestExecuteCancelledContext(t *testing.T) {
	assert := assert.New(t)
	s, svc, _ := testSweeper()
	buf := seedBuffer(time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := s.Execute(ctx, buf, Params{Channel: "chan1", Pattern: "buy followers", InitiatedBy: "mod1"})
	assert.Error(err)
	assert.Equal(0, res.Actioned)
	assert.Empty(svc.Calls())
}
