package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// Store hands out per-channel configs, falling back to defaults for channels
// that were never configured.
type Store interface {
	Get(channel string) ChannelConfig
	Set(channel string, cfg ChannelConfig) error
	SetThreshold(channel, filter string, value int) error
}

type MemStore struct {
	mu       sync.RWMutex
	channels map[string]ChannelConfig
}

func NewMemStore() *MemStore {
	return &MemStore{
		channels: make(map[string]ChannelConfig),
	}
}

func (s *MemStore) Get(channel string) ChannelConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := s.channels[channel]; ok {
		return cfg
	}
	return Default()
}

func (s *MemStore) Set(channel string, cfg ChannelConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[channel] = cfg
	return nil
}

// SetThreshold updates a single named threshold, validating before commit.
func (s *MemStore) SetThreshold(channel, filter string, value int) error {
	cfg := s.Get(channel)
	switch filter {
	case "caps_max_percent":
		cfg.CapsMaxPercent = value
	case "caps_min_length":
		cfg.CapsMinLength = value
	case "symbol_max_percent":
		cfg.SymbolMaxPercent = value
	case "emote_max":
		cfg.EmoteMax = value
	case "length_max":
		cfg.LengthMax = value
	case "repetition_max":
		cfg.RepetitionMax = value
	case "flag_threshold":
		cfg.FlagThreshold = value
	case "debounce_seconds":
		cfg.DebounceSeconds = value
	case "strike_expiry_days":
		cfg.StrikeExpiryDays = value
	case "ban_threshold":
		cfg.BanThreshold = value
	case "permit_ttl_seconds":
		cfg.PermitTTLSeconds = value
	default:
		return &ConfigError{Field: filter, Reason: "unknown filter"}
	}
	return s.Set(channel, cfg)
}

// LoadFromFileJSON reads a {channel: config} JSON document, overlaying each
// entry on the defaults so partial configs stay valid.
func (s *MemStore) LoadFromFileJSON(p string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for channel, entry := range doc {
		cfg := Default()
		if err := json.Unmarshal(entry, &cfg); err != nil {
			return fmt.Errorf("channel %s: %w", channel, err)
		}
		if err := s.Set(channel, cfg); err != nil {
			return fmt.Errorf("channel %s: %w", channel, err)
		}
	}
	return nil
}
