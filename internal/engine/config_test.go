package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Equal(t, DefaultDenseLimit, cfg.DenseLimit)
	assert.Equal(t, DefaultMaxWorkers, cfg.MaxWorkers)
	assert.Equal(t, DefaultMatchThreshold, cfg.MatchThreshold)
	assert.Equal(t, DefaultBatchTimeout, cfg.BatchTimeout)
	assert.Equal(t, DefaultRetryLimit, cfg.RetryLimit)
	assert.False(t, cfg.Normalize)
	assert.False(t, cfg.RequireFull)
}

func TestConfigDefaultsKeepExplicit(t *testing.T) {
	cfg := Config{
		DenseLimit:     4,
		MaxWorkers:     2,
		MatchThreshold: 0.9,
		BatchTimeout:   time.Second,
		RetryLimit:     5,
	}.withDefaults()

	assert.Equal(t, 4, cfg.DenseLimit)
	assert.Equal(t, 2, cfg.MaxWorkers)
	assert.Equal(t, 0.9, cfg.MatchThreshold)
	assert.Equal(t, time.Second, cfg.BatchTimeout)
	assert.Equal(t, 5, cfg.RetryLimit)
}

func TestConfigNegativeRetryMeansNone(t *testing.T) {
	cfg := Config{RetryLimit: -1}.withDefaults()
	assert.Equal(t, 0, cfg.RetryLimit)
}

func TestConfigNegativeThresholdMeansZero(t *testing.T) {
	cfg := Config{MatchThreshold: -1}.withDefaults()
	assert.Equal(t, 0.0, cfg.MatchThreshold)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults valid", func(c *Config) {}, ""},
		{"zero dense limit", func(c *Config) { c.DenseLimit = -1 }, "dense_limit"},
		{"zero workers", func(c *Config) { c.MaxWorkers = -3 }, "max_workers"},
		{"threshold above one", func(c *Config) { c.MatchThreshold = 1.5 }, "match_threshold"},
		{"threshold below zero", func(c *Config) { c.MatchThreshold = -0.1 }, "match_threshold"},
		{"negative timeout", func(c *Config) { c.BatchTimeout = -time.Second }, "batch_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{MatchThreshold: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline config")
}
