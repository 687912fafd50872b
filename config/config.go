// Package config holds per-channel automod thresholds. Configs are read on
// demand by the processing lane; updates take effect on the next message.
package config

import (
	"fmt"
)

// ConfigError indicates a malformed threshold update. It is fatal only for
// that single update; the running pipeline keeps its last good config.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid channel config: %s: %s", e.Field, e.Reason)
}

// ChannelConfig is the full threshold set for one channel.
type ChannelConfig struct {
	// Caps filter: percentage of upper-case letters among letters. Messages
	// shorter than CapsMinLength runes are exempt.
	CapsEnabled    bool `json:"caps_enabled"`
	CapsMaxPercent int  `json:"caps_max_percent"`
	CapsMinLength  int  `json:"caps_min_length"`

	// Symbol filter: percentage of non-alphanumeric, non-space characters.
	SymbolEnabled    bool `json:"symbol_enabled"`
	SymbolMaxPercent int  `json:"symbol_max_percent"`

	// Emote filter: recognized emote tokens per message.
	EmoteEnabled bool `json:"emote_enabled"`
	EmoteMax     int  `json:"emote_max"`

	// Length filter: total runes per message.
	LengthEnabled bool `json:"length_enabled"`
	LengthMax     int  `json:"length_max"`

	// Repetition filter: longest identical-character run, and repeats of the
	// same token.
	RepetitionEnabled bool `json:"repetition_enabled"`
	RepetitionMax     int  `json:"repetition_max"`

	// Link filter. AllowedDomains suffix-match extracted domains.
	LinkEnabled    bool     `json:"link_enabled"`
	AllowedDomains []string `json:"allowed_domains"`
	BlockedDomains []string `json:"blocked_domains"`

	// Composite score at or above which a message is flagged.
	FlagThreshold int `json:"flag_threshold"`

	// Minimum seconds between strike advancements for one user.
	DebounceSeconds int `json:"debounce_seconds"`

	// Days of inactivity after which a strike record fully resets.
	StrikeExpiryDays int `json:"strike_expiry_days"`

	// Strike count at which a ban is dispatched.
	BanThreshold int `json:"ban_threshold"`

	// Subscribers and VIPs are never auto-banned when set.
	SubscriberImmunity bool `json:"subscriber_immunity"`

	// Seconds a link permit stays grantable before expiring unused.
	PermitTTLSeconds int `json:"permit_ttl_seconds"`
}

// Defaults mirror a medium-sensitivity deployment.
func Default() ChannelConfig {
	return ChannelConfig{
		CapsEnabled:        true,
		CapsMaxPercent:     70,
		CapsMinLength:      10,
		SymbolEnabled:      true,
		SymbolMaxPercent:   50,
		EmoteEnabled:       true,
		EmoteMax:           15,
		LengthEnabled:      true,
		LengthMax:          500,
		RepetitionEnabled:  true,
		RepetitionMax:      10,
		LinkEnabled:        true,
		AllowedDomains: []string{
			"twitch.tv", "youtube.com", "youtu.be",
			"twitter.com", "x.com", "imgur.com",
		},
		BlockedDomains:     []string{"discord.gg", "discordapp.com"},
		FlagThreshold:      31,
		DebounceSeconds:    30,
		StrikeExpiryDays:   30,
		BanThreshold:       5,
		SubscriberImmunity: true,
		PermitTTLSeconds:   60,
	}
}

func (c *ChannelConfig) Validate() error {
	checks := []struct {
		field string
		val   int
		min   int
		max   int
	}{
		{"caps_max_percent", c.CapsMaxPercent, 1, 100},
		{"caps_min_length", c.CapsMinLength, 0, 500},
		{"symbol_max_percent", c.SymbolMaxPercent, 1, 100},
		{"emote_max", c.EmoteMax, 1, 200},
		{"length_max", c.LengthMax, 1, 2000},
		{"repetition_max", c.RepetitionMax, 1, 200},
		{"flag_threshold", c.FlagThreshold, 1, 100},
		{"debounce_seconds", c.DebounceSeconds, 0, 3600},
		{"strike_expiry_days", c.StrikeExpiryDays, 1, 365},
		{"ban_threshold", c.BanThreshold, 2, 20},
		{"permit_ttl_seconds", c.PermitTTLSeconds, 5, 3600},
	}
	for _, chk := range checks {
		if chk.val < chk.min || chk.val > chk.max {
			return &ConfigError{
				Field:  chk.field,
				Reason: fmt.Sprintf("%d out of range [%d, %d]", chk.val, chk.min, chk.max),
			}
		}
	}
	return nil
}
