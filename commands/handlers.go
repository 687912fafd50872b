package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chatward/chatward/audit"
	"github.com/chatward/chatward/chat"
	"github.com/chatward/chatward/countstore"
	"github.com/chatward/chatward/dispatch"
	"github.com/chatward/chatward/engine"
	"github.com/chatward/chatward/nuke"
	"github.com/chatward/chatward/strikes"
)

var builtins = []*Command{
	{Name: "help", MinRole: chat.RoleModerator, Usage: "!help"},
	{Name: "permit", MinRole: chat.RoleModerator, Usage: "!permit <user>", Run: runPermit},
	{Name: "strike", MinRole: chat.RoleModerator, Usage: "!strike <user> [reason]", Run: runStrike},
	{Name: "clearstrikes", MinRole: chat.RoleModerator, Usage: "!clearstrikes <user>", Run: runClearStrikes},
	{Name: "strikes", MinRole: chat.RoleModerator, Usage: "!strikes <user>", Run: runStrikesInfo},
	{Name: "whitelist", MinRole: chat.RoleModerator, Usage: "!whitelist <user>", Run: runWhitelist},
	{Name: "unwhitelist", MinRole: chat.RoleModerator, Usage: "!unwhitelist <user>", Run: runUnwhitelist},
	{Name: "unban", MinRole: chat.RoleModerator, Usage: "!unban <user>", Run: runUnban},
	{Name: "nuke", MinRole: chat.RoleModerator, Usage: "!nuke [--preview|--abort|--regex|--ban|--include-subs|--include-vips] <pattern>", Run: runNuke},
	{Name: "setthreshold", MinRole: chat.RoleBroadcaster, Usage: "!setthreshold <filter> <value>", Run: runSetThreshold},
	{Name: "modlog", MinRole: chat.RoleModerator, Usage: "!modlog [count]", Run: runModlog},
	{Name: "checkuser", MinRole: chat.RoleModerator, Usage: "!checkuser <user>", Run: runCheckUser},
}

// Assigned in init to break the initialization cycle between builtins and
// runHelp, which iterates builtins.
func init() {
	builtins[0].Run = runHelp
}

func runHelp(ctx context.Context, d *Deps, msg *chat.Message, args []string) (string, error) {
	usages := make([]string, len(builtins))
	for i, c := range builtins {
		usages[i] = c.Usage
	}
	return strings.Join(usages, " | "), nil
}

func runPermit(ctx context.Context, d *Deps, msg *chat.Message, args []string) (string, error) {
	user, err := targetUser(args)
	if err != nil {
		return "", err
	}
	cfg := d.Engine.Config.Get(msg.Channel)
	ttl := time.Duration(cfg.PermitTTLSeconds) * time.Second
	if err := d.Engine.Permits.Grant(ctx, msg.Channel, user, msg.UserID, ttl); err != nil {
		return "", fmt.Errorf("granting permit: %w", err)
	}
	return fmt.Sprintf("@%s may post one link in the next %d seconds", user, cfg.PermitTTLSeconds), nil
}

func runStrike(ctx context.Context, d *Deps, msg *chat.Message, args []string) (string, error) {
	user, err := targetUser(args)
	if err != nil {
		return "", err
	}
	reason := "manual strike"
	if len(args) > 1 {
		reason = strings.Join(args[1:], " ")
	}
	cfg := d.Engine.Config.Get(msg.Channel)
	outcome, err := d.Engine.Ledger.Advance(ctx, msg.Channel, user, false, &cfg, time.Now())
	if err != nil {
		return "", fmt.Errorf("advancing ledger: %w", err)
	}
	if outcome.Action == strikes.ActionNone {
		return fmt.Sprintf("@%s was struck moments ago (level %d), not advancing", user, outcome.Level), nil
	}

	act := &dispatch.Action{
		Channel:     msg.Channel,
		UserID:      user,
		Username:    user,
		Reason:      reason,
		Source:      audit.SourceManual,
		ModeratorID: msg.UserID,
	}
	switch outcome.Action {
	case strikes.ActionWarn:
		act.Kind = dispatch.KindWarn
	case strikes.ActionTimeout:
		act.Kind = dispatch.KindTimeout
		act.Duration = outcome.Timeout
	case strikes.ActionBan:
		act.Kind = dispatch.KindBan
	}
	if err := d.Engine.Dispatcher.Dispatch(ctx, act); err != nil {
		return "", fmt.Errorf("dispatching %s: %w", act.Kind, err)
	}
	return fmt.Sprintf("@%s is now at strike level %d (%s)", user, outcome.Level, outcome.Action), nil
}

func runClearStrikes(ctx context.Context, d *Deps, msg *chat.Message, args []string) (string, error) {
	user, err := targetUser(args)
	if err != nil {
		return "", err
	}
	if err := d.Engine.Ledger.Clear(ctx, msg.Channel, user); err != nil {
		return "", fmt.Errorf("clearing strikes: %w", err)
	}
	return fmt.Sprintf("cleared all strikes for @%s", user), nil
}

func runStrikesInfo(ctx context.Context, d *Deps, msg *chat.Message, args []string) (string, error) {
	user, err := targetUser(args)
	if err != nil {
		return "", err
	}
	cfg := d.Engine.Config.Get(msg.Channel)
	lvl, err := d.Engine.Ledger.Level(ctx, msg.Channel, user, &cfg, time.Now())
	if err != nil {
		return "", fmt.Errorf("reading ledger: %w", err)
	}
	if lvl == 0 {
		return fmt.Sprintf("@%s has no active strikes", user), nil
	}
	return fmt.Sprintf("@%s is at strike level %d of %d", user, lvl, cfg.BanThreshold), nil
}

func runWhitelist(ctx context.Context, d *Deps, msg *chat.Message, args []string) (string, error) {
	user, err := targetUser(args)
	if err != nil {
		return "", err
	}
	if err := d.Engine.Trust.SetWhitelisted(ctx, msg.Channel, user, true); err != nil {
		return "", fmt.Errorf("whitelisting: %w", err)
	}
	if err := d.Engine.Ledger.Clear(ctx, msg.Channel, user); err != nil {
		return "", fmt.Errorf("clearing strikes: %w", err)
	}
	d.Engine.PurgeTrust(ctx, msg.Channel, user)
	return fmt.Sprintf("@%s is now whitelisted", user), nil
}

func runUnwhitelist(ctx context.Context, d *Deps, msg *chat.Message, args []string) (string, error) {
	user, err := targetUser(args)
	if err != nil {
		return "", err
	}
	if err := d.Engine.Trust.SetWhitelisted(ctx, msg.Channel, user, false); err != nil {
		return "", fmt.Errorf("unwhitelisting: %w", err)
	}
	d.Engine.PurgeTrust(ctx, msg.Channel, user)
	return fmt.Sprintf("@%s is no longer whitelisted", user), nil
}

func runUnban(ctx context.Context, d *Deps, msg *chat.Message, args []string) (string, error) {
	user, err := targetUser(args)
	if err != nil {
		return "", err
	}
	if err := d.Engine.Dispatcher.Dispatch(ctx, &dispatch.Action{
		Channel:     msg.Channel,
		UserID:      user,
		Username:    user,
		Kind:        dispatch.KindUnban,
		Reason:      "manual unban",
		Source:      audit.SourceManual,
		ModeratorID: msg.UserID,
	}); err != nil {
		return "", fmt.Errorf("dispatching unban: %w", err)
	}
	if err := d.Engine.Ledger.Clear(ctx, msg.Channel, user); err != nil {
		return "", fmt.Errorf("clearing strikes: %w", err)
	}
	return fmt.Sprintf("@%s unbanned, strikes cleared", user), nil
}

func runNuke(ctx context.Context, d *Deps, msg *chat.Message, args []string) (string, error) {
	params := nuke.Params{
		Channel:     msg.Channel,
		InitiatedBy: msg.UserID,
	}
	preview := false
	abort := false
	var patternParts []string
	for _, a := range args {
		switch a {
		case "--preview":
			preview = true
		case "--abort":
			abort = true
		case "--regex":
			params.Regex = true
		case "--ban":
			params.Ban = true
		case "--include-subs":
			params.IncludeSubscribers = true
		case "--include-vips":
			params.IncludeVIPs = true
		default:
			patternParts = append(patternParts, a)
		}
	}
	params.Pattern = strings.Join(patternParts, " ")

	if abort {
		if d.Sweeper.Abort(msg.Channel) {
			return "nuke aborted", nil
		}
		return "no nuke running", nil
	}
	if err := nuke.ValidatePattern(params.Pattern, params.Regex); err != nil {
		return "", err
	}

	buf := d.Engine.BufferFor(msg.Channel)
	if preview {
		res, err := d.Sweeper.Preview(ctx, buf, params)
		if err != nil {
			return "", err
		}
		names := make([]string, len(res.Targets))
		for i, t := range res.Targets {
			names[i] = t.Username
		}
		suffix := ""
		if res.Truncated {
			suffix = " (list truncated)"
		}
		return fmt.Sprintf("nuke preview %s: %d users%s: %s", res.SessionID, len(res.Targets), suffix, strings.Join(names, ", ")), nil
	}

	if remaining := d.Sweeper.CooldownRemaining(msg.Channel, time.Now()); remaining > 0 {
		return "", &nuke.CooldownError{Remaining: remaining}
	}

	// the sweep runs detached so it never holds up the channel lane;
	// !nuke --abort cancels it
	go func() {
		sctx := context.WithoutCancel(ctx)
		res, err := d.Sweeper.Execute(sctx, buf, params)
		var text string
		switch {
		case res == nil:
			d.Logger.Error("nuke sweep failed", "channel", msg.Channel, "err", err)
			text = fmt.Sprintf("nuke failed: %s", err)
		case err != nil:
			text = fmt.Sprintf("nuke %s finished with errors: %d actioned, %d failed", res.SessionID, res.Actioned, res.Failed)
		default:
			text = fmt.Sprintf("nuke %s: actioned %d users", res.SessionID, res.Actioned)
		}
		if err := d.Engine.Dispatcher.Service.Announce(sctx, msg.Channel, text); err != nil {
			d.Logger.Warn("nuke result announce failed", "channel", msg.Channel, "err", err)
		}
	}()
	return fmt.Sprintf("nuke started against %q, result will follow", params.Pattern), nil
}

func runSetThreshold(ctx context.Context, d *Deps, msg *chat.Message, args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("usage: !setthreshold <filter> <value>")
	}
	value, err := strconv.Atoi(args[1])
	if err != nil {
		return "", fmt.Errorf("value must be a number")
	}
	if err := d.Engine.Config.SetThreshold(msg.Channel, args[0], value); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s threshold set to %d", args[0], value), nil
}

func runModlog(ctx context.Context, d *Deps, msg *chat.Message, args []string) (string, error) {
	limit := 5
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 && n <= 20 {
			limit = n
		}
	}
	flagged, err := d.Engine.Counters.GetCountDistinct(ctx, engine.CounterFlagged, msg.Channel, countstore.PeriodDay)
	if err != nil {
		return "", fmt.Errorf("reading flag counter: %w", err)
	}
	actions, err := d.Engine.Dispatcher.Log.Recent(ctx, msg.Channel, limit)
	if err != nil {
		return "", fmt.Errorf("reading audit log: %w", err)
	}
	header := fmt.Sprintf("%d users flagged today", flagged)
	if len(actions) == 0 {
		return header + ", no recent moderation actions", nil
	}
	lines := make([]string, len(actions))
	for i, a := range actions {
		status := "ok"
		if !a.Delivered {
			status = "failed"
		}
		lines[i] = fmt.Sprintf("%s %s @%s [%s, %s]", a.CreatedAt.Format("15:04:05"), a.Action, a.Username, a.Source, status)
	}
	return header + " | " + strings.Join(lines, " | "), nil
}

func runCheckUser(ctx context.Context, d *Deps, msg *chat.Message, args []string) (string, error) {
	user, err := targetUser(args)
	if err != nil {
		return "", err
	}
	rec, err := d.Engine.Trust.GetOrCreate(ctx, msg.Channel, user, user, time.Now())
	if err != nil {
		return "", fmt.Errorf("reading trust record: %w", err)
	}
	cfg := d.Engine.Config.Get(msg.Channel)
	lvl, err := d.Engine.Ledger.Level(ctx, msg.Channel, user, &cfg, time.Now())
	if err != nil {
		return "", fmt.Errorf("reading ledger: %w", err)
	}
	flags := ""
	if rec.Whitelisted {
		flags = ", whitelisted"
	}
	actions, err := d.Engine.Dispatcher.Log.ForUser(ctx, msg.Channel, user, 1)
	if err != nil {
		return "", fmt.Errorf("reading audit log: %w", err)
	}
	if len(actions) > 0 {
		flags += fmt.Sprintf(", last action %s at %s", actions[0].Action, actions[0].CreatedAt.Format("2006-01-02 15:04"))
	}
	return fmt.Sprintf("@%s: trust %d, %d messages, strike level %d%s", user, rec.Score, rec.MessageCount, lvl, flags), nil
}
