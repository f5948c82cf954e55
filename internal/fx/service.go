// Package fx maintains the currency-to-GBP rate table used by every price
// conversion in the engine. The table is seeded with static defaults and can
// be refreshed from a remote FX endpoint on a TTL. Refresh failures never
// invalidate the table: callers always see the last known good rates.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"resellscout/internal/config"
)

// defaultRates holds the static GBP value of 1 unit of each supported
// foreign currency. Used at startup and as the per-symbol fallback when a
// refresh payload omits or corrupts a symbol.
var defaultRates = map[string]float64{
	"GBP": 1.0,
	"EUR": 0.86,
	"USD": 0.79,
	"JPY": 0.0053,
}

const (
	defaultTTL     = 21600 * time.Second
	minTTL         = 300 * time.Second
	refreshTimeout = 8 * time.Second
)

// Service owns the process-wide rate table. Reads are lock-cheap and
// concurrent; the refresh routine is the single writer and replaces the
// whole table atomically.
type Service struct {
	client   *resty.Client
	endpoint string
	enabled  bool
	ttl      time.Duration
	logger   *slog.Logger

	mu          sync.RWMutex
	rates       map[string]float64
	lastRefresh time.Time
}

// NewService creates a Service seeded with the static default rates.
func NewService(cfg config.FXConfig, userAgent string, logger *slog.Logger) *Service {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if cfg.TTLSeconds <= 0 {
		ttl = defaultTTL
	} else if ttl < minTTL {
		ttl = minTTL
	}

	rates := make(map[string]float64, len(defaultRates))
	for k, v := range defaultRates {
		rates[k] = v
	}

	return &Service{
		client: resty.New().
			SetTimeout(refreshTimeout).
			SetHeader("User-Agent", userAgent),
		endpoint: cfg.Endpoint,
		enabled:  cfg.Enabled,
		ttl:      ttl,
		logger:   logger.With(slog.String("component", "fx")),
		rates:    rates,
	}
}

// Convert converts an amount in the given currency to GBP. Unknown or empty
// currency codes pass the amount through unchanged.
func (s *Service) Convert(amount float64, currency string) float64 {
	if currency == "" {
		return amount
	}
	s.mu.RLock()
	rate, ok := s.rates[strings.ToUpper(currency)]
	s.mu.RUnlock()
	if !ok {
		return amount
	}
	return amount * rate
}

// Rate returns the GBP rate for a currency code and whether it is known.
func (s *Service) Rate(currency string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rate, ok := s.rates[strings.ToUpper(currency)]
	return rate, ok
}

// Refresh updates the rate table from the remote FX endpoint. It returns
// true only when the table was refreshed by this call. Refreshes are skipped
// when disabled by configuration or when the TTL has not elapsed (unless
// force is set). On any failure the existing table is left untouched.
func (s *Service) Refresh(ctx context.Context, force bool) bool {
	if !s.enabled {
		return false
	}

	s.mu.RLock()
	last := s.lastRefresh
	s.mu.RUnlock()
	if !force && !last.IsZero() && time.Since(last) < s.ttl {
		return false
	}

	symbols := make([]string, 0, len(defaultRates)-1)
	for code := range defaultRates {
		if code != "GBP" {
			symbols = append(symbols, code)
		}
	}
	sort.Strings(symbols)

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("base", "GBP").
		SetQueryParam("symbols", strings.Join(symbols, ",")).
		Get(s.endpoint)
	if err != nil {
		s.logger.Warn("fx refresh failed, keeping fallback currency rates",
			slog.String("error", err.Error()))
		return false
	}
	if resp.StatusCode() != 200 {
		s.logger.Warn("fx refresh failed, keeping fallback currency rates",
			slog.String("error", fmt.Sprintf("unexpected status %d", resp.StatusCode())))
		return false
	}

	var payload struct {
		Rates map[string]json.Number `json:"rates"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		s.logger.Warn("fx refresh failed, keeping fallback currency rates",
			slog.String("error", err.Error()))
		return false
	}
	if payload.Rates == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := map[string]float64{"GBP": 1.0}
	for _, symbol := range symbols {
		prev, ok := s.rates[symbol]
		if !ok {
			prev = defaultRates[symbol]
		}
		raw, present := payload.Rates[symbol]
		if !present {
			updated[symbol] = prev
			continue
		}
		perGBP, err := raw.Float64()
		if err != nil || perGBP <= 0 {
			updated[symbol] = prev
			continue
		}
		// The endpoint returns foreign units per 1 GBP; invert to the GBP
		// value of 1 foreign unit.
		updated[symbol] = 1.0 / perGBP
	}

	s.rates = updated
	s.lastRefresh = time.Now()
	return true
}
