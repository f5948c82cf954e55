// Package source implements the per-site adapter strategies that turn a
// marketplace into a bounded list of candidate items. Every adapter runs the
// same ordered passes - search queries, sitemap expansion, optional static
// fallback - over the shared fetch and extract layers.
package source

import (
	"context"
	"time"

	"resellscout/internal/domain"
	"resellscout/internal/fetch"
)

// Fetcher is the slice of the fetch client adapters depend on.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (string, error)
}

// Descriptor is the immutable metadata for one source site.
type Descriptor struct {
	Key                string
	Name               string
	Country            string
	HomeURL            string
	Reason             string
	StrictLiveRequired bool
}

// Site converts the descriptor into its external marketplace form.
func (d Descriptor) Site() domain.MarketplaceSite {
	return domain.MarketplaceSite{
		Key:                d.Key,
		Name:               d.Name,
		Country:            d.Country,
		HomeURL:            d.HomeURL,
		Reason:             d.Reason,
		StrictLiveRequired: d.StrictLiveRequired,
	}
}

// FetchMeta holds the diagnostics counters from one FetchCandidates call.
// The example slices are bounded and only populated by adapters that opt in.
type FetchMeta struct {
	Blocked       int
	FetchErrors   int
	ParseMisses   int
	LiveItems     int
	FallbackItems int

	BlockedExamples    []string
	FetchErrorExamples []string
	ParseMissExamples  []string
}

// FetchOptions bounds one FetchCandidates call.
type FetchOptions struct {
	Limit         int
	Timeout       time.Duration
	Retries       int
	AllowFallback bool
}

// Adapter is the contract every source site implements. FetchCandidates
// never returns an error for per-URL failures (those become FetchMeta
// counters); an error means the whole fetch failed unexpectedly.
type Adapter interface {
	Descriptor() Descriptor
	FetchCandidates(ctx context.Context, opts FetchOptions) ([]domain.CandidateItem, error)
	// LastFetchMeta returns the diagnostics record from the most recent
	// FetchCandidates call.
	LastFetchMeta() FetchMeta
}
