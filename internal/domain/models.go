// Package domain defines the core data model shared by the acquisition
// engine: marketplace descriptors, candidate items, profitability
// assessments, and per-source diagnostics.
package domain

import "time"

// DataOrigin tags where a candidate item came from.
type DataOrigin string

const (
	// OriginLive marks items scraped from the source site in this run.
	OriginLive DataOrigin = "live"
	// OriginFallback marks items taken from a static per-site catalog.
	OriginFallback DataOrigin = "fallback"
)

// Confidence summarizes how many comparable sold-price samples backed a
// profitability estimate.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// MarketplaceSite describes one configured source marketplace. Instances are
// created by their adapter at process start and never mutated.
type MarketplaceSite struct {
	Key                string `json:"key"`
	Name               string `json:"name"`
	Country            string `json:"country"`
	HomeURL            string `json:"home_url"`
	Reason             string `json:"reason"`
	StrictLiveRequired bool   `json:"strict_live_required"`
}

// CandidateItem is one resale-arbitrage candidate produced by a source
// adapter. URL and Title are always non-empty and SourcePriceGBP is >= 0.
// Items are unique by normalized URL within a single fetch call.
type CandidateItem struct {
	SiteName       string     `json:"site_name"`
	Title          string     `json:"title"`
	URL            string     `json:"url"`
	SourcePriceGBP float64    `json:"source_price_gbp"`
	ShippingGBP    float64    `json:"shipping_to_uk_gbp"`
	Condition      string     `json:"condition"`
	SourceID       string     `json:"source_id"`
	FetchedAtUTC   time.Time  `json:"fetched_at_utc"`
	DataOrigin     DataOrigin `json:"data_origin"`
}

// ProfitabilityAssessment is the immutable result of benchmarking one
// candidate against reference sold-listing history. Monetary fields are
// rounded to 2 decimal places.
type ProfitabilityAssessment struct {
	ItemTitle          string     `json:"item_title"`
	ItemURL            string     `json:"item_url"`
	TotalLandedCostGBP float64    `json:"total_landed_cost_gbp"`
	MedianSalePriceGBP float64    `json:"median_sale_price_gbp"`
	EstimatedFeesGBP   float64    `json:"estimated_fees_gbp"`
	EstimatedProfitGBP float64    `json:"estimated_profit_gbp"`
	EstimatedMarginPct float64    `json:"estimated_margin_percent"`
	Confidence         Confidence `json:"confidence"`
}

// SourceDiagnostics holds the per-marketplace counters for one run.
// Status is derived from the counters, never set independently.
type SourceDiagnostics struct {
	SourceName     string       `json:"source_name"`
	Status         SourceStatus `json:"status"`
	LiveCount      int          `json:"live_count"`
	FallbackCount  int          `json:"fallback_count"`
	BlockedCount   int          `json:"blocked_count"`
	ParseMissCount int          `json:"parse_miss_count"`
	ErrorCount     int          `json:"error_count"`
}
