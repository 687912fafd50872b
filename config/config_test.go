package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	assert := assert.New(t)

	cfg := Default()
	cfg.CapsMaxPercent = 150
	err := cfg.Validate()
	assert.Error(err)
	var ce *ConfigError
	assert.True(errors.As(err, &ce))
	assert.Equal("caps_max_percent", ce.Field)
}

func TestStoreFallsBackToDefault(t *testing.T) {
	assert := assert.New(t)

	s := NewMemStore()
	got := s.Get("neverconfigured")
	assert.Equal(Default(), got)
}

func TestSetThreshold(t *testing.T) {
	assert := assert.New(t)

	s := NewMemStore()
	assert.NoError(s.SetThreshold("chan1", "caps_max_percent", 80))
	assert.Equal(80, s.Get("chan1").CapsMaxPercent)

	// rejected update leaves prior config untouched
	err := s.SetThreshold("chan1", "caps_max_percent", 999)
	assert.Error(err)
	assert.Equal(80, s.Get("chan1").CapsMaxPercent)

	err = s.SetThreshold("chan1", "nonsense", 1)
	assert.Error(err)
}
