// Package config defines the runtime configuration for the resale scout
// acquisition engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by RESELL_* environment variables.
type Config struct {
	Fetch     FetchConfig     `toml:"fetch"`
	FX        FXConfig        `toml:"fx"`
	Sources   SourcesConfig   `toml:"sources"`
	Debug     DebugConfig     `toml:"debug"`
	Benchmark BenchmarkConfig `toml:"benchmark"`
	LogLevel  string          `toml:"log_level"`
}

// FetchConfig holds HTTP fetch parameters shared by every source adapter.
type FetchConfig struct {
	TimeoutSeconds float64 `toml:"timeout_seconds"`
	MaxRetries     int     `toml:"max_retries"`
	UserAgent      string  `toml:"user_agent"`
}

// FXConfig holds currency-rate refresh parameters.
type FXConfig struct {
	Enabled    bool   `toml:"enabled"`
	Endpoint   string `toml:"endpoint"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// SourcesConfig holds source-adapter runtime policy.
type SourcesConfig struct {
	AllowFallback bool `toml:"allow_fallback"`
	StrictLive    bool `toml:"strict_live"`
	// ResearchDepthMultiplier scales the per-source candidate limit
	// (base 12). Values are clamped to 1..10.
	ResearchDepthMultiplier int `toml:"research_depth_multiplier"`
	// RandomSeed makes shuffling reproducible when non-empty. An empty
	// seed selects a non-reproducible source of randomness.
	RandomSeed string `toml:"random_seed"`
}

// DebugConfig controls raw-page snapshot capture.
type DebugConfig struct {
	CaptureSources bool   `toml:"capture_sources"`
	Dir            string `toml:"dir"`
}

// BenchmarkConfig holds reference-marketplace fee parameters. Defaults model
// the eBay UK private-seller tier, which charges no final value fees.
type BenchmarkConfig struct {
	Endpoint          string  `toml:"endpoint"`
	FinalValueFeeRate float64 `toml:"final_value_fee_rate"`
	PerOrderFeeGBP    float64 `toml:"per_order_fee_gbp"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Fetch: FetchConfig{
			TimeoutSeconds: 10,
			MaxRetries:     2,
			UserAgent:      "resellscout/0.1 (+research assistant)",
		},
		FX: FXConfig{
			Enabled:    true,
			Endpoint:   "https://api.frankfurter.dev/v1/latest",
			TTLSeconds: 21600,
		},
		Sources: SourcesConfig{
			AllowFallback:           false,
			StrictLive:              false,
			ResearchDepthMultiplier: 3,
		},
		Debug: DebugConfig{
			CaptureSources: false,
			Dir:            "debug/sources",
		},
		Benchmark: BenchmarkConfig{
			Endpoint:          "https://www.ebay.co.uk/sch/i.html",
			FinalValueFeeRate: 0.0,
			PerOrderFeeGBP:    0.0,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Fetch.TimeoutSeconds <= 0 {
		errs = append(errs, "fetch: timeout_seconds must be > 0")
	}
	if c.Fetch.MaxRetries < 0 {
		errs = append(errs, "fetch: max_retries must be >= 0")
	}
	if c.Fetch.UserAgent == "" {
		errs = append(errs, "fetch: user_agent must not be empty")
	}

	if c.FX.Enabled && c.FX.Endpoint == "" {
		errs = append(errs, "fx: endpoint must not be empty when fx is enabled")
	}

	if c.Debug.CaptureSources && c.Debug.Dir == "" {
		errs = append(errs, "debug: dir must not be empty when capture_sources is enabled")
	}

	if c.Benchmark.Endpoint == "" {
		errs = append(errs, "benchmark: endpoint must not be empty")
	}
	if c.Benchmark.FinalValueFeeRate < 0 || c.Benchmark.FinalValueFeeRate >= 1 {
		errs = append(errs, fmt.Sprintf("benchmark: final_value_fee_rate must be in [0, 1), got %v", c.Benchmark.FinalValueFeeRate))
	}
	if c.Benchmark.PerOrderFeeGBP < 0 {
		errs = append(errs, "benchmark: per_order_fee_gbp must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
