package engine

import (
	"fmt"

	"github.com/chatward/chatward/chat"
	"github.com/chatward/chatward/config"
	"github.com/chatward/chatward/feature"
	"github.com/chatward/chatward/trust"
)

// Score weights per signal. A message accumulates weight for every signal
// that trips, minus standing-based reductions, clamped to [0, 100].
const (
	weightSpamPattern = 35
	// weightLink is the base link breach: the filter is on, at least one
	// domain is off the allow list, and no permit covers it. Sits above the
	// default flag threshold so an unpermitted link flags on its own.
	weightLink           = 35
	weightBlockedDomain  = 35
	weightSuspiciousTLD  = 20
	weightShortener      = 15
	weightUnknownDomain  = 10
	weightObfuscatedLink = 10
	weightFirstLink      = 15
	weightNewUser        = 5
	weightCaps           = 20
	weightSymbol         = 15
	weightEmote          = 15
	weightZalgo          = 25
	weightLength         = 10
	weightRepetition     = 15

	reduceSubscriber  = 30
	reduceVIP         = 25
	reduceTrusted     = 15
	reduceEstablished = 10

	// trust.Record thresholds for the standing reductions
	trustedScore        = 75
	establishedMessages = 10

	// days before a first-seen account stops scoring as brand new
	newUserDays = 1

	// combining characters beyond which the zalgo signal trips
	zalgoTrip = 5

	scoreMax = 100
)

// LinkAssessment classifies a message's extracted domains against channel
// and global lists. Computed by the engine so Decide stays pure.
type LinkAssessment struct {
	Blocked        []string
	SuspiciousTLD  []string
	Shorteners     []string
	Unknown        []string
	// AllAllowed is set when every extracted domain is on the channel's
	// allow list.
	AllAllowed bool
}

// Verdict is the decision for one message.
type Verdict struct {
	Flagged bool     `json:"flagged"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// Decide turns the computed signals into a verdict. Pure: every input is
// passed in, no I/O.
//
// A consumed link permit suppresses link scoring except for explicitly
// blocked domains, which stay punishable even when permitted.
func Decide(msg *chat.Message, fs feature.FeatureSet, link LinkAssessment, tr *trust.Record, permitted bool, cfg *config.ChannelConfig) Verdict {
	score := 0
	var reasons []string

	if len(fs.PatternHits) > 0 {
		score += weightSpamPattern
		for _, hit := range fs.PatternHits {
			reasons = append(reasons, "spam-pattern:"+hit)
		}
	}

	if cfg.LinkEnabled && fs.HasLink && !link.AllAllowed {
		for _, d := range link.Blocked {
			score += weightBlockedDomain
			reasons = append(reasons, "link-blocked:"+d)
		}
		if !permitted {
			score += weightLink
			reasons = append(reasons, "link-unpermitted")
			for _, d := range link.SuspiciousTLD {
				score += weightSuspiciousTLD
				reasons = append(reasons, "link-suspicious-tld:"+d)
			}
			for _, d := range link.Shorteners {
				score += weightShortener
				reasons = append(reasons, "link-shortener:"+d)
			}
			for _, d := range link.Unknown {
				score += weightUnknownDomain
				reasons = append(reasons, "link-unknown:"+d)
			}
			if fs.ObfuscatedLink {
				score += weightObfuscatedLink
				reasons = append(reasons, "link-obfuscated")
			}
			if tr != nil {
				if tr.MessageCount == 0 {
					score += weightFirstLink
					reasons = append(reasons, "link-first-message")
				}
				if tr.FirstSeenAge(msg.Timestamp) < newUserDays {
					score += weightNewUser
					reasons = append(reasons, "new-user")
				}
			}
		}
	}

	if cfg.CapsEnabled && !fs.CapsExempt && fs.CapsRatio > float64(cfg.CapsMaxPercent) {
		score += weightCaps
		reasons = append(reasons, fmt.Sprintf("caps:%.0f%%", fs.CapsRatio))
	}
	if cfg.SymbolEnabled && fs.SymbolRatio > float64(cfg.SymbolMaxPercent) {
		score += weightSymbol
		reasons = append(reasons, fmt.Sprintf("symbols:%.0f%%", fs.SymbolRatio))
	}
	if cfg.EmoteEnabled && fs.EmoteCount > cfg.EmoteMax {
		score += weightEmote
		reasons = append(reasons, fmt.Sprintf("emotes:%d", fs.EmoteCount))
	}
	if cfg.LengthEnabled && fs.Length > cfg.LengthMax {
		score += weightLength
		reasons = append(reasons, fmt.Sprintf("length:%d", fs.Length))
	}
	if cfg.RepetitionEnabled && (fs.MaxTokenRepeat > cfg.RepetitionMax || fs.RepetitionRatio >= 50) {
		score += weightRepetition
		reasons = append(reasons, "repetition")
	}
	if fs.ZalgoCount > zalgoTrip {
		score += weightZalgo
		reasons = append(reasons, fmt.Sprintf("zalgo:%d", fs.ZalgoCount))
	}

	// standing reductions only soften a positive signal, they never push a
	// clean message negative
	if score > 0 {
		switch {
		case msg.VIP:
			score -= reduceVIP
		case msg.Subscriber:
			score -= reduceSubscriber
		}
		if tr != nil {
			if tr.Score >= trustedScore {
				score -= reduceTrusted
			}
			if tr.MessageCount >= establishedMessages {
				score -= reduceEstablished
			}
		}
	}

	if score < 0 {
		score = 0
	}
	if score > scoreMax {
		score = scoreMax
	}

	return Verdict{
		Flagged: score >= cfg.FlagThreshold,
		Score:   score,
		Reasons: reasons,
	}
}
