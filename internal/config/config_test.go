package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STANFORD_CONFIG", "")
	t.Setenv("STANFORD_PORT", "")
	t.Setenv("PORT", "")
	t.Setenv("STRATEGIES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StrategyPCFG, cfg.CanonicalTreeStrategy)
	assert.Equal(t, StrategyPCFG, cfg.CanonicalDependencyStrategy)
	assert.Equal(t, TagPolicyCanonical, cfg.TagPolicy)
	assert.Equal(t, AllStrategies, cfg.Strategies)
	assert.Equal(t, 10*time.Second, cfg.StrategyTimeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STANFORD_CONFIG", "")
	t.Setenv("STANFORD_PORT", "4567")
	t.Setenv("DISABLE_DEPPARSE", "true")
	t.Setenv("CANONICAL_TREE_STRATEGY", StrategyPCFGMaxent)
	t.Setenv("STRATEGIES", "PCFG, PCFG.maxent")
	t.Setenv("STRATEGY_TIMEOUT", "250ms")
	t.Setenv("MODEL_MAX_INFLIGHT", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4567", cfg.Port)
	assert.True(t, cfg.DisableDepParse)
	assert.Equal(t, StrategyPCFGMaxent, cfg.CanonicalTreeStrategy)
	assert.Equal(t, []string{StrategyPCFG, StrategyPCFGMaxent}, cfg.Strategies)
	assert.Equal(t, 250*time.Millisecond, cfg.StrategyTimeout)
	assert.EqualValues(t, 1, cfg.ModelMaxInflight)
}

func TestLoadYAMLFileUnderEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stanford.yaml")
	content := "port: \"9999\"\ntag_policy: first\nstrategy_timeout: 3s\ncanonical_dependency_strategy: NNDEP\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("STANFORD_CONFIG", path)
	t.Setenv("STANFORD_PORT", "")
	t.Setenv("PORT", "")
	t.Setenv("TAG_POLICY", "")
	t.Setenv("STRATEGY_TIMEOUT", "")
	t.Setenv("CANONICAL_DEPENDENCY_STRATEGY", "PCFG.maxent")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, TagPolicyFirst, cfg.TagPolicy)
	assert.Equal(t, 3*time.Second, cfg.StrategyTimeout)
	assert.Equal(t, StrategyPCFGMaxent, cfg.CanonicalDependencyStrategy)
}

func TestValidateRejectsUnknownIDs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"strategy", func(c *Config) { c.Strategies = []string{"PCFG", "BOGUS"} }},
		{"tree preference", func(c *Config) { c.CanonicalTreeStrategy = "nope" }},
		{"dependency preference", func(c *Config) { c.CanonicalDependencyStrategy = "" }},
		{"tag policy", func(c *Config) { c.TagPolicy = "random" }},
		{"timeout", func(c *Config) { c.StrategyTimeout = 0 }},
		{"no strategies", func(c *Config) { c.Strategies = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsBadBool(t *testing.T) {
	t.Setenv("STANFORD_CONFIG", "")
	t.Setenv("DISABLE_DEPPARSE", "maybe")
	_, err := Load()
	assert.Error(t, err)
}
