package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"resellscout/internal/domain"
	"resellscout/internal/extract"
	"resellscout/internal/fetch"
)

// SurugaYaAdapter discovers candidates on Suruga-ya. The site runs search
// pages behind aggressive bot protection, so this adapter shuffles its
// query and crawl order to avoid a fixed fingerprint and records bounded
// example URLs for each failure class.
type SurugaYaAdapter struct {
	fetcher   Fetcher
	extractor *extract.Extractor
	shuffler  *Shuffler

	lastMeta FetchMeta
}

// NewSurugaYaAdapter creates the Suruga-ya adapter.
func NewSurugaYaAdapter(fetcher Fetcher, extractor *extract.Extractor, shuffler *Shuffler) *SurugaYaAdapter {
	return &SurugaYaAdapter{fetcher: fetcher, extractor: extractor, shuffler: shuffler}
}

var surugaYaDescriptor = Descriptor{
	Key:                "surugaya",
	Name:               "Suruga-ya",
	Country:            "Japan",
	HomeURL:            "https://www.suruga-ya.com/en",
	Reason:             "Deep catalog for Japanese trading cards and accessories, including discounted used stock.",
	StrictLiveRequired: true,
}

var (
	surugaYaQueries  = []string{"pokemon card", "one piece card game", "yugioh", "dragon ball super card"}
	surugaYaHints    = []string{"/en/product/", "/en/detail/"}
	surugaYaExcludes = []string{"/news", "/special", "/guide", "/faq"}
	surugaYaExtras   = []string{"dragon ball"}

	surugaYaFallback = []fallbackItem{
		{"Pokemon Card Japanese Booster Box", "https://www.suruga-ya.com/en/products?keyword=pokemon+card+booster+box", 49.0},
		{"Yu-Gi-Oh OCG Japanese Box", "https://www.suruga-ya.com/en/products?keyword=yugioh+ocg+box", 34.0},
	}

	surugaYaDetailLinkRe = regexp.MustCompile(`(?i)/en/(?:product|detail)/`)
)

func (a *SurugaYaAdapter) Descriptor() Descriptor { return surugaYaDescriptor }

// LastFetchMeta returns the diagnostics from the most recent fetch.
func (a *SurugaYaAdapter) LastFetchMeta() FetchMeta { return a.lastMeta }

func (a *SurugaYaAdapter) searchURL(query string) string {
	return "https://www.suruga-ya.com/en/products?keyword=" + url.QueryEscape(query)
}

// parseMissExample annotates a parse miss with how much parseable structure
// the page appeared to contain, which separates "empty page" from "layout
// changed" when triaging.
func parseMissExample(pageURL, content string) string {
	jsonldCount := strings.Count(strings.ToLower(content), "application/ld+json")
	detailLinks := len(surugaYaDetailLinkRe.FindAllString(content, -1))
	return fmt.Sprintf("%s [jsonld=%d, detail_links=%d]", pageURL, jsonldCount, detailLinks)
}

// FetchCandidates runs the shuffled search pass, then sitemap expansion,
// then the optional fallback catalog.
func (a *SurugaYaAdapter) FetchCandidates(ctx context.Context, opts FetchOptions) ([]domain.CandidateItem, error) {
	desc := surugaYaDescriptor
	st := newPassState()
	defer func() { a.lastMeta = st.meta }()

	queries := a.shuffler.Strings(surugaYaQueries, desc.Key, "queries")
	for _, query := range queries {
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
				appendExample(&st.meta.BlockedExamples, searchURL)
			} else {
				st.meta.FetchErrors++
				appendExample(&st.meta.FetchErrorExamples, fmt.Sprintf("%s (%v)", searchURL, err))
			}
			continue
		}

		rows := a.extractor.ProductsFromJSONLD(content)
		if len(rows) == 0 {
			rows = a.extractor.ProductsFromHTML(content, searchURL)
		}
		if len(rows) == 0 {
			st.meta.ParseMisses++
			appendExample(&st.meta.ParseMissExamples, parseMissExample(searchURL, content))
		}
		for _, row := range rows {
			if !st.addRow(desc, row, domain.OriginLive, surugaYaExtras) {
				continue
			}
			if st.full(opts.Limit) {
				return st.items, nil
			}
		}
	}

	if !st.full(opts.Limit) {
		ceiling := opts.Limit * 8
		if ceiling < 60 {
			ceiling = 60
		}
		sitemapURLs := extract.CrawlSitemapURLs(ctx, a.fetcher, extract.SitemapOptions{
			HomeURL:   desc.HomeURL,
			Hints:     surugaYaHints,
			Excludes:  surugaYaExcludes,
			Limit:     ceiling,
			Timeout:   opts.Timeout,
			Retries:   opts.Retries,
			SourceKey: desc.Key,
		})
		sitemapURLs = a.shuffler.Strings(sitemapURLs, desc.Key, "sitemap")
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
					appendExample(&st.meta.BlockedExamples, pageURL)
				} else {
					st.meta.FetchErrors++
					appendExample(&st.meta.FetchErrorExamples, fmt.Sprintf("%s (%v)", pageURL, err))
				}
				continue
			}

			row, ok := a.extractor.FirstProduct(pageURL, page)
			if !ok {
				st.meta.ParseMisses++
				appendExample(&st.meta.ParseMissExamples, parseMissExample(pageURL, page))
				continue
			}
			if !st.addRow(desc, row, domain.OriginLive, surugaYaExtras) {
				continue
			}
			if st.full(opts.Limit) {
				return st.items, nil
			}
		}
	}

	if opts.AllowFallback && !st.full(opts.Limit) {
		for _, fb := range surugaYaFallback {
			row := extract.Row{Title: fb.title, URL: fb.url, SourcePriceGBP: fb.priceGBP}
			if !st.addRow(desc, row, domain.OriginFallback, surugaYaExtras) {
				continue
			}
			if st.full(opts.Limit) {
				break
			}
		}
	}

	return st.items, nil
}
