// Package engine is the aggregation layer over the source adapters. It
// resolves adapters by marketplace, bounds and shuffles their results,
// tracks per-source diagnostics for the run, and enforces the strict-live
// policy.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"resellscout/internal/domain"
	"resellscout/internal/source"
)

const (
	defaultItemLimit   = 12
	maxDepthMultiplier = 10
)

// Options is the runtime policy for source fetches, applied once per run.
type Options struct {
	AllowFallback           bool
	StrictLive              bool
	ResearchDepthMultiplier int
	FetchTimeout            time.Duration
	FetchRetries            int
}

// Engine owns the configured adapters and the run-scoped diagnostics map.
type Engine struct {
	adapters []source.Adapter
	shuffler *source.Shuffler
	opts     Options
	logger   *slog.Logger

	mu          sync.Mutex
	runID       string
	diagnostics map[string]domain.SourceDiagnostics
}

// New creates an Engine over the given adapters.
func New(adapters []source.Adapter, shuffler *source.Shuffler, opts Options, logger *slog.Logger) *Engine {
	return &Engine{
		adapters:    adapters,
		shuffler:    shuffler,
		opts:        opts,
		logger:      logger.With(slog.String("component", "engine")),
		runID:       uuid.NewString(),
		diagnostics: make(map[string]domain.SourceDiagnostics),
	}
}

// Marketplaces returns the configured source marketplaces.
func (e *Engine) Marketplaces() []domain.MarketplaceSite {
	sites := make([]domain.MarketplaceSite, 0, len(e.adapters))
	for _, adapter := range e.adapters {
		sites = append(sites, adapter.Descriptor().Site())
	}
	return sites
}

// ResetDiagnostics clears the diagnostics map and starts a new run scope.
func (e *Engine) ResetDiagnostics() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runID = uuid.NewString()
	e.diagnostics = make(map[string]domain.SourceDiagnostics)
}

// Diagnostics returns the per-source diagnostics recorded since the last
// reset, sorted by source name.
func (e *Engine) Diagnostics() []domain.SourceDiagnostics {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.SourceDiagnostics, 0, len(e.diagnostics))
	for _, d := range e.diagnostics {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceName < out[j].SourceName })
	return out
}

func (e *Engine) adapterFor(marketplaceName string) source.Adapter {
	name := strings.ToLower(strings.TrimSpace(marketplaceName))
	for _, adapter := range e.adapters {
		if strings.ToLower(adapter.Descriptor().Name) == name {
			return adapter
		}
	}
	return nil
}

// fetchLimit derives the per-source candidate limit from the research-depth
// multiplier, which is clamped to 1..10.
func (e *Engine) fetchLimit() int {
	multiplier := e.opts.ResearchDepthMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	if multiplier > maxDepthMultiplier {
		multiplier = maxDepthMultiplier
	}
	return defaultItemLimit * multiplier
}

func (e *Engine) record(d domain.SourceDiagnostics) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.diagnostics[d.SourceName] = d
}

// FetchCandidates fetches candidate items from one marketplace and updates
// the run diagnostics. Unknown marketplaces yield an empty list without
// error. A failing adapter is absorbed into a fetch_error diagnostic rather
// than propagated, so one hostile or broken source cannot abort the others;
// the only error returned is a strict-live policy violation.
func (e *Engine) FetchCandidates(ctx context.Context, marketplace domain.MarketplaceSite) ([]domain.CandidateItem, error) {
	adapter := e.adapterFor(marketplace.Name)
	if adapter == nil {
		return nil, nil
	}

	raw, err := adapter.FetchCandidates(ctx, source.FetchOptions{
		Limit:         e.fetchLimit(),
		Timeout:       e.opts.FetchTimeout,
		Retries:       e.opts.FetchRetries,
		AllowFallback: e.opts.AllowFallback,
	})
	if err != nil {
		e.logger.Warn("source adapter fetch failed",
			slog.String("run_id", e.runID),
			slog.String("source", marketplace.Name),
			slog.String("error", err.Error()),
		)
		e.record(domain.SourceDiagnostics{
			SourceName: marketplace.Name,
			Status:     domain.StatusFetchError,
			ErrorCount: 1,
		})
		return nil, nil
	}

	deduped := dedupeByURL(raw)
	rng := e.shuffler.Rand(marketplace.Name)
	rng.Shuffle(len(deduped), func(i, j int) {
		deduped[i], deduped[j] = deduped[j], deduped[i]
	})

	liveCount, fallbackCount := 0, 0
	for _, item := range deduped {
		switch item.DataOrigin {
		case domain.OriginFallback:
			fallbackCount++
		default:
			liveCount++
		}
	}

	meta := adapter.LastFetchMeta()
	status := domain.ResolveSourceStatus(liveCount, fallbackCount, meta.Blocked, meta.ParseMisses, meta.FetchErrors)
	e.record(domain.SourceDiagnostics{
		SourceName:     marketplace.Name,
		Status:         status,
		LiveCount:      liveCount,
		FallbackCount:  fallbackCount,
		BlockedCount:   meta.Blocked,
		ParseMissCount: meta.ParseMisses,
		ErrorCount:     meta.FetchErrors,
	})

	if e.opts.StrictLive && adapter.Descriptor().StrictLiveRequired && liveCount == 0 {
		return nil, &domain.StrictLiveError{SourceName: marketplace.Name, Status: status}
	}

	if len(deduped) == 0 {
		e.logger.Warn("no candidates found for source",
			slog.String("run_id", e.runID),
			slog.String("source", marketplace.Name),
			slog.String("status", string(status)),
		)
	}

	return deduped, nil
}

// FetchAll fetches every configured marketplace concurrently. Per-source
// failures are already absorbed by FetchCandidates; only strict-live
// violations (and context cancellation) abort the run. Results are keyed by
// marketplace name.
func (e *Engine) FetchAll(ctx context.Context) (map[string][]domain.CandidateItem, error) {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	results := make(map[string][]domain.CandidateItem)

	for _, site := range e.Marketplaces() {
		site := site
		g.Go(func() error {
			items, err := e.FetchCandidates(ctx, site)
			if err != nil {
				return err
			}
			mu.Lock()
			results[site.Name] = items
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// dedupeByURL removes candidates whose lower-cased URL was already seen,
// preserving first-seen order.
func dedupeByURL(items []domain.CandidateItem) []domain.CandidateItem {
	deduped := make([]domain.CandidateItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item.URL))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, item)
	}
	return deduped
}
