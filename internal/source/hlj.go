package source

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"resellscout/internal/domain"
	"resellscout/internal/extract"
	"resellscout/internal/fetch"
	"resellscout/internal/money"
)

// HLJAdapter discovers candidates on HobbyLink Japan.
//
// Strategy:
//  1. Query card-focused search terms.
//  2. Prefer the HLJ live-price endpoint because it is structured and
//     stable; it supersedes generic extraction for items it resolves.
//  3. Fall back to generic page parsing.
//  4. Expand using a sitemap crawl when needed.
//  5. Optionally use the static fallback catalog if explicitly enabled.
type HLJAdapter struct {
	fetcher   Fetcher
	extractor *extract.Extractor

	lastMeta FetchMeta
}

// NewHLJAdapter creates the HobbyLink Japan adapter.
func NewHLJAdapter(fetcher Fetcher, extractor *extract.Extractor) *HLJAdapter {
	return &HLJAdapter{fetcher: fetcher, extractor: extractor}
}

var hljDescriptor = Descriptor{
	Key:                "hlj",
	Name:               "HobbyLink Japan",
	Country:            "Japan",
	HomeURL:            "https://www.hlj.com/",
	Reason:             "Large Japan-collectibles catalog with stable international shipping coverage.",
	StrictLiveRequired: true,
}

var (
	hljQueries  = []string{"pokemon card", "one piece card game", "yugioh ocg", "japanese tcg"}
	hljHints    = []string{"/product/", "/p/", "/-"}
	hljExcludes = []string{"/blog", "/news", "/category", "/search"}
	hljExtras   = []string{"union arena"}

	hljFallback = []fallbackItem{
		{"Pokemon TCG Booster Box", "https://www.hlj.com/search/?q=pokemon+card+booster+box", 41.0},
		{"One Piece Card Game Booster Box", "https://www.hlj.com/search/?q=one+piece+card+game+booster+box", 56.0},
		{"Yu-Gi-Oh OCG Booster Pack", "https://www.hlj.com/search/?q=yugioh+ocg+booster", 24.0},
		{"Union Arena TCG Starter Deck", "https://www.hlj.com/search/?q=union+arena+starter+deck", 18.0},
	}

	// Search results embed per-item hidden inputs keyed by item code; the
	// code is the join key for the live-price endpoint.
	hljItemCodeRe = regexp.MustCompile(`id="en_name_([A-Za-z0-9]+)"`)
	hljItemNameRe = regexp.MustCompile(`(?i)id="en_name_([A-Za-z0-9]+)"[^>]*value="([^"]+)"`)
	hljItemLinkRe = regexp.MustCompile(`(?is)id="en_name_([A-Za-z0-9]+)".*?<a[^>]+href="([^"]+)"`)
)

func (a *HLJAdapter) Descriptor() Descriptor { return hljDescriptor }

// LastFetchMeta returns the diagnostics from the most recent fetch.
func (a *HLJAdapter) LastFetchMeta() FetchMeta { return a.lastMeta }

func (a *HLJAdapter) searchURL(query string) string {
	return "https://www.hlj.com/search/?q=" + url.QueryEscape(query)
}

func extractItemCodes(content string) []string {
	matches := hljItemCodeRe.FindAllStringSubmatch(content, -1)
	codes := make([]string, 0, len(matches))
	for _, m := range matches {
		codes = append(codes, m[1])
	}
	return codes
}

func extractItemNames(content string) map[string]string {
	names := make(map[string]string)
	for _, m := range hljItemNameRe.FindAllStringSubmatch(content, -1) {
		names[m[1]] = m[2]
	}
	return names
}

func extractItemLinks(content string) map[string]string {
	links := make(map[string]string)
	for _, m := range hljItemLinkRe.FindAllStringSubmatch(content, -1) {
		links[m[1]] = m[2]
	}
	return links
}

// fetchLivePrices queries the HLJ live-price endpoint for the given item
// codes. Any failure yields an empty map; the caller falls back to generic
// extraction.
func (a *HLJAdapter) fetchLivePrices(ctx context.Context, itemCodes []string, opts FetchOptions) map[string]map[string]any {
	if len(itemCodes) == 0 {
		return nil
	}

	payload, err := a.fetcher.Fetch(ctx, fetch.Request{
		URL:        "https://www.hlj.com/search/livePrice/?item_codes=" + strings.Join(itemCodes, ","),
		Timeout:    opts.Timeout,
		Retries:    opts.Retries,
		SourceKey:  hljDescriptor.Key,
		DebugLabel: "search_live_price",
	})
	if err != nil {
		return nil
	}

	var parsed map[string]map[string]any
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil
	}
	return parsed
}

// appendFromLivePrices adds candidates resolved through the live-price
// endpoint. Returns true when the adapter reached the limit.
func (a *HLJAdapter) appendFromLivePrices(st *passState, itemCodes []string, names, links map[string]string, priceMap map[string]map[string]any, limit int) bool {
	for _, code := range itemCodes {
		row, ok := priceMap[code]
		if !ok {
			continue
		}
		priceGBP, ok := livePriceValue(row["priceNoFormat"])
		if !ok {
			continue
		}

		rawURL := links[code]
		if rawURL == "" {
			continue
		}
		pageURL := rawURL
		if !strings.HasPrefix(rawURL, "http") {
			pageURL = "https://www.hlj.com" + rawURL
		}

		title := names[code]
		if title == "" {
			if n, ok := row["name"].(string); ok && n != "" {
				title = n
			} else {
				title = code
			}
		}

		added := st.addRow(hljDescriptor, extract.Row{
			Title:          title,
			URL:            pageURL,
			SourcePriceGBP: priceGBP,
		}, domain.OriginLive, hljExtras)
		if !added {
			continue
		}
		if st.full(limit) {
			return true
		}
	}
	return false
}

// livePriceValue parses the priceNoFormat field, which the endpoint returns
// as either a number or a comma-grouped string.
func livePriceValue(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return money.Round2(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
		if err != nil {
			return 0, false
		}
		return money.Round2(parsed), true
	}
	return 0, false
}

// FetchCandidates runs the ordered passes described on the adapter type.
func (a *HLJAdapter) FetchCandidates(ctx context.Context, opts FetchOptions) ([]domain.CandidateItem, error) {
	desc := hljDescriptor
	st := newPassState()
	defer func() { a.lastMeta = st.meta }()

	for _, query := range hljQueries {
		searchURL := a.searchURL(query)
		content, err := a.fetcher.Fetch(ctx, fetch.Request{
			URL:        searchURL,
			Timeout:    opts.Timeout,
			Retries:    opts.Retries,
			SourceKey:  desc.Key,
			DebugLabel: "search_" + query,
		})
		if err != nil {
			if isBlocked(err) {
				st.meta.Blocked++
			} else {
				st.meta.FetchErrors++
			}
			continue
		}

		rows := a.extractor.ProductsFromJSONLD(content)
		if len(rows) == 0 {
			rows = a.extractor.ProductsFromHTML(content, searchURL)
		}

		itemCodes := extractItemCodes(content)
		if len(itemCodes) > 0 {
			priceMap := a.fetchLivePrices(ctx, itemCodes, opts)
			if a.appendFromLivePrices(st, itemCodes, extractItemNames(content), extractItemLinks(content), priceMap, opts.Limit) {
				return st.items, nil
			}
		}

		if len(rows) == 0 {
			st.meta.ParseMisses++
		}
		for _, row := range rows {
			if !st.addRow(desc, row, domain.OriginLive, hljExtras) {
				continue
			}
			if st.full(opts.Limit) {
				return st.items, nil
			}
		}
	}

	if !st.full(opts.Limit) {
		ceiling := opts.Limit * 3
		if ceiling < 30 {
			ceiling = 30
		}
		sitemapURLs := extract.CrawlSitemapURLs(ctx, a.fetcher, extract.SitemapOptions{
			HomeURL:   desc.HomeURL,
			Hints:     hljHints,
			Excludes:  hljExcludes,
			Limit:     ceiling,
			Timeout:   opts.Timeout,
			Retries:   opts.Retries,
			SourceKey: desc.Key,
		})
		for _, pageURL := range sitemapURLs {
			if st.seen[pageURL] {
				continue
			}
			page, err := a.fetcher.Fetch(ctx, fetch.Request{
				URL:        pageURL,
				Timeout:    opts.Timeout,
				Retries:    opts.Retries,
				SourceKey:  desc.Key,
				DebugLabel: "sitemap_page",
			})
			if err != nil {
				if isBlocked(err) {
					st.meta.Blocked++
				} else {
					st.meta.FetchErrors++
				}
				continue
			}

			row, ok := a.extractor.FirstProduct(pageURL, page)
			if !ok {
				st.meta.ParseMisses++
				continue
			}
			if !st.addRow(desc, row, domain.OriginLive, hljExtras) {
				continue
			}
			if st.full(opts.Limit) {
				return st.items, nil
			}
		}
	}

	if opts.AllowFallback && !st.full(opts.Limit) {
		for _, fb := range hljFallback {
			row := extract.Row{Title: fb.title, URL: fb.url, SourcePriceGBP: fb.priceGBP}
			if !st.addRow(desc, row, domain.OriginFallback, hljExtras) {
				continue
			}
			if st.full(opts.Limit) {
				break
			}
		}
	}

	return st.items, nil
}
