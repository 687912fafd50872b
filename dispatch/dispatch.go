// Package dispatch delivers moderation actions to the chat platform. Every
// attempt is appended to the audit log before the result is returned, so the
// trail is complete even when delivery fails.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/chatward/chatward/audit"
	"github.com/chatward/chatward/countstore"
)

const (
	// daily circuit-breaker quotas; a runaway rule should never be able to
	// time out or ban an unbounded slice of a channel
	QuotaTimeoutDay = 200
	QuotaBanDay     = 50

	quotaCounterName = "mod-quota"

	// per-channel delivery pacing
	actionsPerSecond = 5
	actionBurst      = 10
)

const (
	KindWarn    = "warn"
	KindTimeout = "timeout"
	KindBan     = "ban"
	KindUnban   = "unban"
	KindDelete  = "delete"
)

// Action is one moderation action to deliver, with the metadata the audit
// trail wants.
type Action struct {
	Channel   string
	UserID    string
	Username  string
	Kind      string
	Duration  time.Duration
	Reason    string
	Score     int
	Source    audit.Source
	SessionID string
	// ModeratorID is set for manually initiated actions.
	ModeratorID string
	// MessageID is set for delete actions.
	MessageID string
	// WarnText overrides the default warning announcement.
	WarnText string
}

// Dispatcher applies quota and rate limits, delivers via the ModService, and
// writes the audit record.
type Dispatcher struct {
	Service  ModService
	Log      audit.ActionLog
	Counters countstore.CountStore
	Logger   *slog.Logger

	QuotaTimeoutDay int
	QuotaBanDay     int

	limitersLock sync.Mutex
	limiters     map[string]*rate.Limiter
}

func NewDispatcher(service ModService, log audit.ActionLog, counters countstore.CountStore, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		Service:         service,
		Log:             log,
		Counters:        counters,
		Logger:          logger,
		QuotaTimeoutDay: QuotaTimeoutDay,
		QuotaBanDay:     QuotaBanDay,
		limiters:        make(map[string]*rate.Limiter),
	}
}

func (d *Dispatcher) limiter(channel string) *rate.Limiter {
	d.limitersLock.Lock()
	defer d.limitersLock.Unlock()
	lim, ok := d.limiters[channel]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(actionsPerSecond), actionBurst)
		d.limiters[channel] = lim
	}
	return lim
}

// quotaExceeded implements the daily circuit breaker for destructive kinds.
func (d *Dispatcher) quotaExceeded(ctx context.Context, kind string) (bool, error) {
	var quota int
	switch kind {
	case KindTimeout:
		quota = d.QuotaTimeoutDay
	case KindBan:
		quota = d.QuotaBanDay
	default:
		return false, nil
	}
	c, err := d.Counters.GetCount(ctx, quotaCounterName, kind, countstore.PeriodDay)
	if err != nil {
		return false, fmt.Errorf("checking %s quota: %w", kind, err)
	}
	return c >= quota, nil
}

// Dispatch delivers one action. The audit record is always appended before
// returning, carrying the delivery outcome. Quota-suppressed actions are
// audited as undelivered and are not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, act *Action) error {
	logger := d.Logger.With("channel", act.Channel, "userID", act.UserID, "kind", act.Kind, "source", act.Source)

	rec := &audit.ModAction{
		Channel:         act.Channel,
		UserID:          act.UserID,
		Username:        act.Username,
		Action:          act.Kind,
		DurationSeconds: int(act.Duration.Seconds()),
		Reason:          act.Reason,
		Score:           act.Score,
		Source:          act.Source,
		SessionID:       act.SessionID,
		ModeratorID:     act.ModeratorID,
	}

	over, err := d.quotaExceeded(ctx, act.Kind)
	if err != nil {
		logger.Warn("quota check failed, proceeding", "err", err)
	} else if over {
		logger.Warn("daily action quota exceeded, skipping delivery")
		actionsQuotaSkipped.WithLabelValues(act.Kind).Inc()
		rec.Error = "daily quota exceeded"
		if err := d.Log.Append(ctx, rec); err != nil {
			return fmt.Errorf("appending audit record: %w", err)
		}
		return nil
	}

	if err := d.limiter(act.Channel).Wait(ctx); err != nil {
		rec.Error = err.Error()
		if aerr := d.Log.Append(context.WithoutCancel(ctx), rec); aerr != nil {
			logger.Error("appending audit record failed", "err", aerr)
		}
		return err
	}

	deliverErr := d.deliver(ctx, act)
	if deliverErr != nil {
		logger.Error("action delivery failed", "err", deliverErr, "transient", IsTransient(deliverErr))
		actionsDispatched.WithLabelValues(act.Kind, "error").Inc()
		rec.Error = deliverErr.Error()
	} else {
		actionsDispatched.WithLabelValues(act.Kind, "ok").Inc()
		rec.Delivered = true
		if act.Kind == KindTimeout || act.Kind == KindBan {
			// only the day bucket feeds the breaker
			if err := d.Counters.IncrementPeriod(ctx, quotaCounterName, act.Kind, countstore.PeriodDay); err != nil {
				logger.Warn("incrementing quota counter failed", "err", err)
			}
		}
	}

	// the trail must record the attempt even when the caller was cancelled
	if err := d.Log.Append(context.WithoutCancel(ctx), rec); err != nil {
		logger.Error("appending audit record failed", "err", err)
		if deliverErr == nil {
			return fmt.Errorf("appending audit record: %w", err)
		}
	}
	return deliverErr
}

func (d *Dispatcher) deliver(ctx context.Context, act *Action) error {
	switch act.Kind {
	case KindWarn:
		text := act.WarnText
		if text == "" {
			text = fmt.Sprintf("@%s please follow the chat rules (%s)", act.Username, act.Reason)
		}
		return d.Service.Announce(ctx, act.Channel, text)
	case KindTimeout:
		return d.Service.Timeout(ctx, act.Channel, act.UserID, act.Duration, act.Reason)
	case KindBan:
		return d.Service.Ban(ctx, act.Channel, act.UserID, act.Reason)
	case KindUnban:
		return d.Service.Unban(ctx, act.Channel, act.UserID)
	case KindDelete:
		return d.Service.Delete(ctx, act.Channel, act.MessageID)
	default:
		return &PermanentAPIError{Op: act.Kind, Msg: "unknown action kind"}
	}
}
