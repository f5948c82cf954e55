package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies RESELL_* environment variable overrides, and
// returns the final Config. A missing file is not an error; the defaults are
// used. The returned Config has NOT been validated; the caller should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known RESELL_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators adjust a run without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Fetch ──
	setFloat64(&cfg.Fetch.TimeoutSeconds, "RESELL_FETCH_TIMEOUT_SECONDS")
	setInt(&cfg.Fetch.MaxRetries, "RESELL_FETCH_MAX_RETRIES")
	setStr(&cfg.Fetch.UserAgent, "RESELL_FETCH_USER_AGENT")

	// ── FX ──
	setBool(&cfg.FX.Enabled, "RESELL_FX_ENABLED")
	setStr(&cfg.FX.Endpoint, "RESELL_FX_URL")
	setInt(&cfg.FX.TTLSeconds, "RESELL_FX_TTL_SECONDS")

	// ── Sources ──
	setBool(&cfg.Sources.AllowFallback, "RESELL_SOURCES_ALLOW_FALLBACK")
	setBool(&cfg.Sources.StrictLive, "RESELL_SOURCES_STRICT_LIVE")
	setInt(&cfg.Sources.ResearchDepthMultiplier, "RESELL_SOURCE_RESEARCH_DEPTH_MULTIPLIER")
	setStr(&cfg.Sources.RandomSeed, "RESELL_SOURCE_RANDOM_SEED")

	// ── Debug ──
	setBool(&cfg.Debug.CaptureSources, "RESELL_DEBUG_CAPTURE")
	setStr(&cfg.Debug.Dir, "RESELL_DEBUG_DIR")

	// ── Benchmark ──
	setStr(&cfg.Benchmark.Endpoint, "RESELL_BENCHMARK_ENDPOINT")
	setFloat64(&cfg.Benchmark.FinalValueFeeRate, "RESELL_BENCHMARK_FEE_RATE")
	setFloat64(&cfg.Benchmark.PerOrderFeeGBP, "RESELL_BENCHMARK_PER_ORDER_FEE")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "RESELL_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
