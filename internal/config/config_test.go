package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "US", cfg.Search.Storefront)
	assert.Equal(t, "en-us", cfg.Search.Language)
	assert.Equal(t, 200, cfg.Search.ResultCap)
	assert.Equal(t, 20, cfg.Analyze.TopN)
	assert.Equal(t, 100, cfg.Analyze.LookupChunkSize)
	assert.Equal(t, 2, cfg.Batch.DelaySeconds)
	assert.Equal(t, 15, cfg.HTTP.TimeoutSeconds)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty storefront", func(c *Config) { c.Search.Storefront = "" }},
		{"zero result cap", func(c *Config) { c.Search.ResultCap = 0 }},
		{"zero top n", func(c *Config) { c.Analyze.TopN = 0 }},
		{"oversized chunk", func(c *Config) { c.Analyze.LookupChunkSize = 500 }},
		{"negative delay", func(c *Config) { c.Batch.DelaySeconds = -1 }},
		{"zero timeout", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
