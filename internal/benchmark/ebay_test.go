package benchmark

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"resellscout/internal/config"
	"resellscout/internal/domain"
	"resellscout/internal/fetch"
)

type stubFetcher struct {
	body    string
	err     error
	lastURL string
}

func (f *stubFetcher) Fetch(_ context.Context, req fetch.Request) (string, error) {
	f.lastURL = req.URL
	return f.body, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestAssessor(fetcher Fetcher, feeRate, orderFee float64) *Assessor {
	return New(fetcher, config.BenchmarkConfig{
		Endpoint:          "https://www.ebay.co.uk/sch/i.html",
		FinalValueFeeRate: feeRate,
		PerOrderFeeGBP:    orderFee,
	}, testLogger())
}

func soldListingPage(prices ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, p := range prices {
		b.WriteString(`<span class="s-item__price">£` + p + `</span>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func cardItem(price, shipping float64) domain.CandidateItem {
	return domain.CandidateItem{
		Title:          "Pokemon Card 151 Booster Box",
		URL:            "https://example.com/151",
		SourcePriceGBP: price,
		ShippingGBP:    shipping,
	}
}

func TestAssessWithNoComparableSales(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	assessor := newTestAssessor(fetcher, 0, 0)

	got := assessor.Assess(context.Background(), cardItem(100, 20))

	assert.Equal(t, 120.0, got.TotalLandedCostGBP)
	assert.Equal(t, 135.0, got.MedianSalePriceGBP)
	assert.Equal(t, 0.0, got.EstimatedFeesGBP)
	assert.Equal(t, 15.0, got.EstimatedProfitGBP)
	assert.Equal(t, 12.5, got.EstimatedMarginPct)
	assert.Equal(t, domain.ConfidenceLow, got.Confidence)
}

func TestAssessUsesMedianOfSoldPrices(t *testing.T) {
	fetcher := &stubFetcher{body: soldListingPage("80.00", "90.00", "250.00")}
	assessor := newTestAssessor(fetcher, 0, 0)

	got := assessor.Assess(context.Background(), cardItem(40, 13.2))

	assert.Equal(t, 90.0, got.MedianSalePriceGBP)
	assert.Equal(t, 53.2, got.TotalLandedCostGBP)
	assert.Equal(t, 36.8, got.EstimatedProfitGBP)
	assert.Equal(t, domain.ConfidenceMedium, got.Confidence)
}

func TestAssessHighConfidenceNeedsEightComparables(t *testing.T) {
	fetcher := &stubFetcher{body: soldListingPage(
		"80.00", "82.00", "84.00", "86.00", "88.00", "90.00", "92.00", "94.00",
	)}
	assessor := newTestAssessor(fetcher, 0, 0)

	got := assessor.Assess(context.Background(), cardItem(40, 13.2))
	assert.Equal(t, domain.ConfidenceHigh, got.Confidence)
	assert.Equal(t, 87.0, got.MedianSalePriceGBP)
}

func TestAssessAppliesFeeModel(t *testing.T) {
	fetcher := &stubFetcher{body: soldListingPage("100.00")}
	assessor := newTestAssessor(fetcher, 0.1, 0.3)

	got := assessor.Assess(context.Background(), cardItem(50, 10))

	assert.Equal(t, 10.3, got.EstimatedFeesGBP)
	assert.Equal(t, 29.7, got.EstimatedProfitGBP)
}

func TestAssessZeroLandedCostHasZeroMargin(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("unreachable")}
	assessor := newTestAssessor(fetcher, 0, 0)

	got := assessor.Assess(context.Background(), cardItem(0, 0))
	assert.Equal(t, 0.0, got.EstimatedMarginPct)
}

func TestAssessQueriesSoldCompletedListings(t *testing.T) {
	fetcher := &stubFetcher{body: soldListingPage("50.00")}
	assessor := newTestAssessor(fetcher, 0, 0)

	assessor.Assess(context.Background(), cardItem(20, 12))

	assert.Contains(t, fetcher.lastURL, "https://www.ebay.co.uk/sch/i.html?")
	assert.Contains(t, fetcher.lastURL, "LH_Sold=1")
	assert.Contains(t, fetcher.lastURL, "LH_Complete=1")
	assert.Contains(t, fetcher.lastURL, "_nkw=Pokemon+Card+151+Booster+Box")
}

func TestScanPoundAmounts(t *testing.T) {
	body := `Sold for £45.99 and £1,250.00 plus junk £0.50 and £99999.00 and £banana`
	got := scanPoundAmounts(body)
	assert.Equal(t, []float64{45.99, 1250.0}, got)
}

func TestScanPoundAmountsRejectsMalformedRuns(t *testing.T) {
	// The scan collects separators greedily, so a price glued to trailing
	// punctuation fails the parse and is dropped.
	assert.Empty(t, scanPoundAmounts(`was £45.99. and £1,250.00, final`))
}

func TestScanPoundAmountsCapsAtTwenty(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("£25.00 ")
	}
	assert.Len(t, scanPoundAmounts(b.String()), 20)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 3.0, median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
	assert.Equal(t, 7.0, median([]float64{7}))
}
