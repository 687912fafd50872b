// Package engine ties the stores, scorer, ladder, and dispatcher into the
// per-message moderation pipeline.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chatward/chatward/audit"
	"github.com/chatward/chatward/cachestore"
	"github.com/chatward/chatward/chat"
	"github.com/chatward/chatward/config"
	"github.com/chatward/chatward/countstore"
	"github.com/chatward/chatward/dispatch"
	"github.com/chatward/chatward/feature"
	"github.com/chatward/chatward/normalize"
	"github.com/chatward/chatward/permit"
	"github.com/chatward/chatward/setstore"
	"github.com/chatward/chatward/strikes"
	"github.com/chatward/chatward/trust"
)

const (
	// history kept per channel for nuke sweeps
	bufferCapacity = 2048

	// setstore set names consulted during scoring
	SetSuspiciousTLD   = "suspicious-tld"
	SetURLShortener    = "url-shortener"
	SetEmoteVocabulary = "emote-vocabulary"

	// countstore counter for flagged messages; the distinct variant tracks
	// unique offenders per channel
	CounterFlagged = "automod-flagged"

	trustCacheName = "trust"
)

// Baseline domain classes for fresh deployments; the sets JSON file extends
// them.
var (
	defaultSuspiciousTLDs = []string{
		"tk", "ml", "ga", "cf", "gq", "xyz", "top", "click", "buzz",
	}
	defaultURLShorteners = []string{
		"bit.ly", "tinyurl.com", "t.co", "goo.gl", "is.gd", "ow.ly",
		"buff.ly", "cutt.ly", "rb.gy", "shorturl.at",
	}
)

// SeedDefaultSets loads the baseline suspicious-TLD and URL-shortener lists
// into the shared set store.
func SeedDefaultSets(ctx context.Context, sets setstore.SetStore) error {
	if err := sets.Add(ctx, SetSuspiciousTLD, defaultSuspiciousTLDs); err != nil {
		return err
	}
	return sets.Add(ctx, SetURLShortener, defaultURLShorteners)
}

// Engine is the top-level automod instance. One Engine serves all channels;
// per-channel ordering comes from the lane scheduler feeding it.
type Engine struct {
	Logger     *slog.Logger
	Config     config.Store
	Counters   countstore.CountStore
	Sets       setstore.SetStore
	Cache      cachestore.CacheStore
	Trust      trust.Store
	Permits    permit.Store
	Ledger     *strikes.Ledger
	Dispatcher *dispatch.Dispatcher

	buffersLock sync.Mutex
	buffers     map[string]*chat.Buffer
}

// emoteLookup adapts the shared set store to the scorer's vocabulary
// interface. A lookup failure counts as not-an-emote.
type emoteLookup struct {
	ctx context.Context
	eng *Engine
}

func (e emoteLookup) Contains(token string) bool {
	in, err := e.eng.Sets.InSet(e.ctx, SetEmoteVocabulary, token)
	if err != nil {
		return false
	}
	return in
}

func (eng *Engine) emotes(ctx context.Context) feature.EmoteSet {
	return emoteLookup{ctx: ctx, eng: eng}
}

func (eng *Engine) BufferFor(channel string) *chat.Buffer {
	eng.buffersLock.Lock()
	defer eng.buffersLock.Unlock()
	if eng.buffers == nil {
		eng.buffers = make(map[string]*chat.Buffer)
	}
	buf, ok := eng.buffers[channel]
	if !ok {
		buf = chat.NewBuffer(bufferCapacity)
		eng.buffers[channel] = buf
	}
	return buf
}

// ProcessMessage runs one message through the full pipeline: normalize,
// score, decide, advance the ladder, dispatch. Returns an error only for
// infrastructure failures; a flagged message is not an error.
func (eng *Engine) ProcessMessage(ctx context.Context, msg *chat.Message) (outErr error) {
	// any panic in filter logic must not take down the consumer
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("automod event execution exception", "err", r, "channel", msg.Channel, "userID", msg.UserID)
			eventErrorCount.WithLabelValues("process").Inc()
			outErr = fmt.Errorf("automod panic: %v", r)
		}
	}()
	start := time.Now()
	defer func() {
		duration := time.Since(start)
		eventDuration.Observe(duration.Seconds())
	}()

	msg.Hydrate(time.Now())
	eng.BufferFor(msg.Channel).Append(*msg)
	messagesProcessed.WithLabelValues(msg.Channel).Inc()

	cfg := eng.Config.Get(msg.Channel)

	tr, err := eng.cachedTrust(ctx, msg)
	if err != nil {
		return fmt.Errorf("loading trust record: %w", err)
	}
	if err := eng.Trust.BumpMessage(ctx, msg.Channel, msg.UserID, msg.Timestamp); err != nil {
		eng.Logger.Warn("trust bump failed", "err", err, "channel", msg.Channel, "userID", msg.UserID)
	}

	// mods and the broadcaster run the place; whitelisted users earned a
	// pass
	if msg.Role().AtLeast(chat.RoleModerator) || (tr != nil && tr.Whitelisted) {
		return nil
	}

	norm := normalize.Normalize(msg.Text)
	fs := feature.Score(msg.Text, norm, cfg.CapsMinLength, eng.emotes(ctx))

	link, err := eng.assessLinks(ctx, fs.Domains, &cfg)
	if err != nil {
		return fmt.Errorf("assessing links: %w", err)
	}

	// a standing permit is consumed by the first link message the filter
	// would otherwise judge, whether or not the verdict ends up flagging
	// it; allow-listed links never burn the grant
	permitted := false
	if cfg.LinkEnabled && fs.HasLink && !link.AllAllowed {
		permitted, err = eng.Permits.Consume(ctx, msg.Channel, msg.UserID)
		if err != nil {
			return fmt.Errorf("consuming permit: %w", err)
		}
	}

	verdict := Decide(msg, fs, link, tr, permitted, &cfg)
	if !verdict.Flagged {
		return nil
	}

	messagesFlagged.WithLabelValues(msg.Channel).Inc()
	if err := eng.Counters.Increment(ctx, CounterFlagged, msg.Channel); err != nil {
		eng.Logger.Warn("incrementing flag counter failed", "err", err)
	}
	if err := eng.Counters.IncrementDistinct(ctx, CounterFlagged, msg.Channel, msg.UserID); err != nil {
		eng.Logger.Warn("incrementing distinct flag counter failed", "err", err)
	}
	logger := eng.Logger.With("channel", msg.Channel, "userID", msg.UserID, "score", verdict.Score)
	logger.Info("message flagged", "reasons", verdict.Reasons)

	outcome, err := eng.Ledger.Advance(ctx, msg.Channel, msg.UserID, msg.Subscriber, &cfg, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("advancing strike ledger: %w", err)
	}
	if outcome.Action == strikes.ActionNone {
		logger.Debug("strike debounced", "level", outcome.Level)
		return nil
	}

	act := &dispatch.Action{
		Channel:  msg.Channel,
		UserID:   msg.UserID,
		Username: msg.Username,
		Reason:   strings.Join(verdict.Reasons, ", "),
		Score:    verdict.Score,
		Source:   audit.SourceAuto,
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
	if err := eng.Dispatcher.Dispatch(ctx, act); err != nil {
		// already audited; transient failures should not poison the lane
		logger.Error("enforcement dispatch failed", "err", err)
	}

	if err := eng.Trust.AdjustScore(ctx, msg.Channel, msg.UserID, -trust.EnforcementPenalty); err != nil {
		logger.Warn("trust penalty failed", "err", err)
	}
	eng.PurgeTrust(ctx, msg.Channel, msg.UserID)
	return nil
}

// assessLinks classifies extracted domains so the decision stays pure. The
// allow list wins over everything; the shortener and suspicious-TLD sets are
// shared across channels via the setstore.
func (eng *Engine) assessLinks(ctx context.Context, domains []string, cfg *config.ChannelConfig) (LinkAssessment, error) {
	var link LinkAssessment
	if len(domains) == 0 {
		return link, nil
	}
	allowed := 0
	for _, d := range domains {
		if feature.DomainAllowed(d, cfg.AllowedDomains) {
			allowed++
			continue
		}
		if feature.DomainBlocked(d, cfg.BlockedDomains) {
			link.Blocked = append(link.Blocked, d)
			continue
		}
		if in, err := eng.Sets.InSet(ctx, SetURLShortener, d); err != nil {
			return link, err
		} else if in {
			link.Shorteners = append(link.Shorteners, d)
			continue
		}
		if in, err := eng.Sets.InSet(ctx, SetSuspiciousTLD, domainTLD(d)); err != nil {
			return link, err
		} else if in {
			link.SuspiciousTLD = append(link.SuspiciousTLD, d)
			continue
		}
		link.Unknown = append(link.Unknown, d)
	}
	link.AllAllowed = allowed == len(domains)
	return link, nil
}

func domainTLD(domain string) string {
	if i := strings.LastIndex(domain, "."); i >= 0 {
		return domain[i+1:]
	}
	return domain
}

// cachedTrust reads the user's trust record through the short-TTL cache.
// Mutating paths (whitelist, score adjustments) must call PurgeTrust.
func (eng *Engine) cachedTrust(ctx context.Context, msg *chat.Message) (*trust.Record, error) {
	key := msg.Channel + "/" + msg.UserID
	if cached, err := eng.Cache.Get(ctx, trustCacheName, key); err == nil && cached != "" {
		var rec trust.Record
		if err := json.Unmarshal([]byte(cached), &rec); err == nil {
			return &rec, nil
		}
	}
	rec, err := eng.Trust.GetOrCreate(ctx, msg.Channel, msg.UserID, msg.Username, msg.Timestamp)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(rec); err == nil {
		if err := eng.Cache.Set(ctx, trustCacheName, key, string(b)); err != nil {
			eng.Logger.Warn("trust cache set failed", "err", err)
		}
	}
	return rec, nil
}

// PurgeTrust drops the cached trust record after a mutation.
func (eng *Engine) PurgeTrust(ctx context.Context, channel, userID string) {
	if err := eng.Cache.Purge(ctx, trustCacheName, channel+"/"+userID); err != nil {
		eng.Logger.Warn("trust cache purge failed", "err", err)
	}
}
