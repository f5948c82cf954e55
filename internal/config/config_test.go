package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
log_level = "debug"

[fetch]
timeout_seconds = 5.5
max_retries = 1

[sources]
allow_fallback = true
research_depth_multiplier = 5
random_seed = "abc"

[benchmark]
final_value_fee_rate = 0.129
per_order_fee_gbp = 0.3
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5.5, cfg.Fetch.TimeoutSeconds)
	assert.Equal(t, 1, cfg.Fetch.MaxRetries)
	assert.True(t, cfg.Sources.AllowFallback)
	assert.Equal(t, 5, cfg.Sources.ResearchDepthMultiplier)
	assert.Equal(t, "abc", cfg.Sources.RandomSeed)
	assert.Equal(t, 0.129, cfg.Benchmark.FinalValueFeeRate)
	assert.Equal(t, 0.3, cfg.Benchmark.PerOrderFeeGBP)

	// Sections absent from the file keep their defaults.
	assert.Equal(t, Defaults().FX, cfg.FX)
}

func TestLoadMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("RESELL_LOG_LEVEL", "warn")
	t.Setenv("RESELL_FETCH_TIMEOUT_SECONDS", "3")
	t.Setenv("RESELL_FX_ENABLED", "false")
	t.Setenv("RESELL_SOURCES_STRICT_LIVE", "true")
	t.Setenv("RESELL_SOURCE_RESEARCH_DEPTH_MULTIPLIER", "7")
	t.Setenv("RESELL_SOURCE_RANDOM_SEED", "run-42")
	t.Setenv("RESELL_DEBUG_CAPTURE", "1")
	t.Setenv("RESELL_BENCHMARK_FEE_RATE", "0.02")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 3.0, cfg.Fetch.TimeoutSeconds)
	assert.False(t, cfg.FX.Enabled)
	assert.True(t, cfg.Sources.StrictLive)
	assert.Equal(t, 7, cfg.Sources.ResearchDepthMultiplier)
	assert.Equal(t, "run-42", cfg.Sources.RandomSeed)
	assert.True(t, cfg.Debug.CaptureSources)
	assert.Equal(t, 0.02, cfg.Benchmark.FinalValueFeeRate)
}

func TestEnvOverrideIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("RESELL_FETCH_MAX_RETRIES", "many")
	t.Setenv("RESELL_FX_ENABLED", "sometimes")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Fetch.MaxRetries, cfg.Fetch.MaxRetries)
	assert.True(t, cfg.FX.Enabled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Fetch.TimeoutSeconds = 0
	cfg.Fetch.UserAgent = ""
	cfg.Benchmark.FinalValueFeeRate = 1.5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "timeout_seconds")
	assert.Contains(t, err.Error(), "user_agent")
	assert.Contains(t, err.Error(), "final_value_fee_rate")
}

func TestValidateConditionalRequirements(t *testing.T) {
	cfg := Defaults()
	cfg.FX.Enabled = true
	cfg.FX.Endpoint = ""
	assert.ErrorContains(t, cfg.Validate(), "fx: endpoint")

	cfg = Defaults()
	cfg.Debug.CaptureSources = true
	cfg.Debug.Dir = ""
	assert.ErrorContains(t, cfg.Validate(), "debug: dir")
}
