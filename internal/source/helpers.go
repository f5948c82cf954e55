package source

import (
	"strings"
	"time"

	"resellscout/internal/domain"
	"resellscout/internal/extract"
	"resellscout/internal/money"
)

// baseCardTerms is the core vocabulary shared by all trading-card sources.
// Adapters extend it with site-specific extra terms.
var baseCardTerms = []string{
	"card",
	"tcg",
	"booster",
	"starter deck",
	"deck",
	"yugioh",
	"yu-gi-oh",
	"pokemon",
	"one piece card",
	"duel masters",
	"weiss schwarz",
}

// IsTradingCardItem reports whether a title looks like a trading-card
// product. Matching is case-insensitive substring containment against the
// base vocabulary plus extraTerms.
func IsTradingCardItem(title string, extraTerms []string) bool {
	low := strings.ToLower(title)
	for _, term := range baseCardTerms {
		if strings.Contains(low, term) {
			return true
		}
	}
	for _, term := range extraTerms {
		if strings.Contains(low, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// fallbackItem is one entry of a hand-curated per-site catalog.
type fallbackItem struct {
	title    string
	url      string
	priceGBP float64
}

// passState accumulates candidates and diagnostics across the ordered
// passes of one FetchCandidates call.
type passState struct {
	items     []domain.CandidateItem
	seen      map[string]bool
	meta      FetchMeta
	fetchedAt time.Time
}

func newPassState() *passState {
	return &passState{
		seen:      make(map[string]bool),
		fetchedAt: time.Now().UTC(),
	}
}

// addRow appends a candidate built from a parsed row. It returns false for
// duplicates, malformed rows, and rows filtered out by the trading-card
// title check; on success the live/fallback counter is bumped.
func (p *passState) addRow(desc Descriptor, row extract.Row, origin domain.DataOrigin, extraTerms []string) bool {
	url := strings.TrimSpace(row.URL)
	title := strings.TrimSpace(row.Title)
	if url == "" || title == "" || p.seen[url] {
		return false
	}
	if !IsTradingCardItem(title, extraTerms) {
		return false
	}

	p.seen[url] = true
	p.items = append(p.items, domain.CandidateItem{
		SiteName:       desc.Name,
		Title:          title,
		URL:            url,
		SourcePriceGBP: row.SourcePriceGBP,
		ShippingGBP:    money.EstimateShippingToUK(row.SourcePriceGBP),
		Condition:      "New",
		SourceID:       desc.Key,
		FetchedAtUTC:   p.fetchedAt,
		DataOrigin:     origin,
	})

	switch origin {
	case domain.OriginFallback:
		p.meta.FallbackItems++
	default:
		p.meta.LiveItems++
	}
	return true
}

func (p *passState) full(limit int) bool {
	return len(p.items) >= limit
}

// appendExample records v into a troubleshooting example list, bounded to 5.
func appendExample(list *[]string, v string) {
	if len(*list) < 5 {
		*list = append(*list, v)
	}
}
