// Package benchmark estimates resale profitability by comparing a
// candidate's landed cost against eBay UK sold-listing history.
package benchmark

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"time"

	"resellscout/internal/config"
	"resellscout/internal/domain"
	"resellscout/internal/fetch"
	"resellscout/internal/money"
)

const (
	maxSnapshots     = 20
	minSnapshotGBP   = 3.0
	maxSnapshotGBP   = 10000.0
	snapshotTimeout  = 10 * time.Second
	// noDataMultiplier is the conservative benchmark estimate applied when
	// no comparable sold prices could be retrieved.
	noDataMultiplier = 1.35
)

// Fetcher is the slice of the fetch client the assessor depends on.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (string, error)
}

// Assessor benchmarks candidates against a reference marketplace's
// sold/completed search.
type Assessor struct {
	fetcher  Fetcher
	endpoint string
	feeRate  float64
	orderFee float64
	logger   *slog.Logger
}

// New creates an Assessor using the configured fee model.
func New(fetcher Fetcher, cfg config.BenchmarkConfig, logger *slog.Logger) *Assessor {
	return &Assessor{
		fetcher:  fetcher,
		endpoint: cfg.Endpoint,
		feeRate:  cfg.FinalValueFeeRate,
		orderFee: cfg.PerOrderFeeGBP,
		logger:   logger.With(slog.String("component", "benchmark")),
	}
}

// Assess estimates resale profitability for one candidate. When no
// comparable sold prices can be retrieved the benchmark falls back to
// 1.35x the source price and the assessment carries low confidence.
func (a *Assessor) Assess(ctx context.Context, item domain.CandidateItem) domain.ProfitabilityAssessment {
	soldPrices := a.fetchSoldPriceSnapshots(ctx, item.Title)

	benchmark := item.SourcePriceGBP * noDataMultiplier
	if len(soldPrices) > 0 {
		benchmark = median(soldPrices)
	}

	landedCost := item.SourcePriceGBP + item.ShippingGBP
	fees := benchmark*a.feeRate + a.orderFee
	profit := benchmark - landedCost - fees
	margin := 0.0
	if landedCost != 0 {
		margin = profit / landedCost * 100
	}

	confidence := domain.ConfidenceLow
	switch {
	case len(soldPrices) >= 8:
		confidence = domain.ConfidenceHigh
	case len(soldPrices) > 0:
		confidence = domain.ConfidenceMedium
	}

	return domain.ProfitabilityAssessment{
		ItemTitle:          item.Title,
		ItemURL:            item.URL,
		TotalLandedCostGBP: money.Round2(landedCost),
		MedianSalePriceGBP: money.Round2(benchmark),
		EstimatedFeesGBP:   money.Round2(fees),
		EstimatedProfitGBP: money.Round2(profit),
		EstimatedMarginPct: money.Round2(margin),
		Confidence:         confidence,
	}
}

// fetchSoldPriceSnapshots retrieves up to 20 comparable sold prices for a
// query from the sold/completed listing search. Any failure yields an empty
// slice; benchmarking must never break a run.
func (a *Assessor) fetchSoldPriceSnapshots(ctx context.Context, query string) []float64 {
	params := url.Values{}
	params.Set("_nkw", query)
	params.Set("LH_Sold", "1")
	params.Set("LH_Complete", "1")
	params.Set("rt", "nc")

	content, err := a.fetcher.Fetch(ctx, fetch.Request{
		URL:        a.endpoint + "?" + params.Encode(),
		Timeout:    snapshotTimeout,
		Retries:    0,
		SourceKey:  "ebay",
		DebugLabel: "sold_snapshot",
	})
	if err != nil {
		a.logger.Debug("sold-price snapshot fetch failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return nil
	}

	return scanPoundAmounts(content)
}

// scanPoundAmounts walks the raw body token-by-token after each pound sign
// and collects plausible sale amounts. The scan is intentionally
// lightweight so it survives minor markup changes on the reference site.
func scanPoundAmounts(content string) []float64 {
	var prices []float64
	tokens := splitAfterPound(content)
	for _, token := range tokens {
		var number []rune
		for _, ch := range token {
			if (ch >= '0' && ch <= '9') || ch == '.' || ch == ',' {
				number = append(number, ch)
			} else if len(number) > 0 {
				break
			}
		}
		if len(number) == 0 {
			continue
		}
		value, ok := parseAmount(string(number))
		if !ok {
			continue
		}
		if value >= minSnapshotGBP && value <= maxSnapshotGBP {
			prices = append(prices, value)
		}
		if len(prices) >= maxSnapshots {
			break
		}
	}
	return prices
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
