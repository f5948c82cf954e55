package source

import (
	"context"
	"errors"
	"net/url"

	"resellscout/internal/domain"
	"resellscout/internal/extract"
	"resellscout/internal/fetch"
)

// NinNinGameAdapter discovers trading-card candidates on Nin-Nin-Game.
type NinNinGameAdapter struct {
	fetcher   Fetcher
	extractor *extract.Extractor

	lastMeta FetchMeta
}

// NewNinNinGameAdapter creates the Nin-Nin-Game adapter.
func NewNinNinGameAdapter(fetcher Fetcher, extractor *extract.Extractor) *NinNinGameAdapter {
	return &NinNinGameAdapter{fetcher: fetcher, extractor: extractor}
}

var ninNinGameDescriptor = Descriptor{
	Key:                "ninningame",
	Name:               "Nin-Nin-Game",
	Country:            "Japan",
	HomeURL:            "https://www.nin-nin-game.com/en/",
	Reason:             "Broad catalog of Japan exclusives with established UK shipping methods.",
	StrictLiveRequired: true,
}

var (
	ninNinGameQueries  = []string{"pokemon card", "one piece card game", "yugioh", "digimon card"}
	ninNinGameHints    = []string{"/en/", "/product"}
	ninNinGameExcludes = []string{"/blog", "/news", "/content/", "/search", "/module/"}
	ninNinGameExtras   = []string{"digimon"}

	ninNinGameFallback = []fallbackItem{
		{"Pokemon Card Game Booster Box", "https://www.nin-nin-game.com/en/search?controller=search&search_query=pokemon+card+booster+box", 47.0},
		{"One Piece Card Game Booster Box", "https://www.nin-nin-game.com/en/search?controller=search&search_query=one+piece+card+game+booster+box", 55.0},
		{"Yu-Gi-Oh OCG Pack", "https://www.nin-nin-game.com/en/search?controller=search&search_query=yugioh+ocg", 21.0},
		{"Digimon Card Game Starter Deck", "https://www.nin-nin-game.com/en/search?controller=search&search_query=digimon+card+starter+deck", 19.0},
	}
)

func (a *NinNinGameAdapter) Descriptor() Descriptor { return ninNinGameDescriptor }

// LastFetchMeta returns the diagnostics from the most recent fetch.
func (a *NinNinGameAdapter) LastFetchMeta() FetchMeta { return a.lastMeta }

func (a *NinNinGameAdapter) searchURL(query string) string {
	return "https://www.nin-nin-game.com/en/search?controller=search&search_query=" + url.QueryEscape(query)
}

// FetchCandidates runs the ordered passes: card-specific search pages,
// sitemap exploration for larger product volume, then the optional
// deterministic fallback catalog.
func (a *NinNinGameAdapter) FetchCandidates(ctx context.Context, opts FetchOptions) ([]domain.CandidateItem, error) {
	desc := ninNinGameDescriptor
	st := newPassState()
	defer func() { a.lastMeta = st.meta }()

	for _, query := range ninNinGameQueries {
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
		if len(rows) == 0 {
			st.meta.ParseMisses++
		}
		for _, row := range rows {
			if !st.addRow(desc, row, domain.OriginLive, ninNinGameExtras) {
				continue
			}
			if st.full(opts.Limit) {
				return st.items, nil
			}
		}
	}

	if !st.full(opts.Limit) {
		ceiling := opts.Limit * 12
		if ceiling < 80 {
			ceiling = 80
		}
		sitemapURLs := extract.CrawlSitemapURLs(ctx, a.fetcher, extract.SitemapOptions{
			HomeURL:   desc.HomeURL,
			Hints:     ninNinGameHints,
			Excludes:  ninNinGameExcludes,
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
			if !st.addRow(desc, row, domain.OriginLive, ninNinGameExtras) {
				continue
			}
			if st.full(opts.Limit) {
				return st.items, nil
			}
		}
	}

	if opts.AllowFallback && !st.full(opts.Limit) {
		for _, fb := range ninNinGameFallback {
			row := extract.Row{Title: fb.title, URL: fb.url, SourcePriceGBP: fb.priceGBP}
			if !st.addRow(desc, row, domain.OriginFallback, ninNinGameExtras) {
				continue
			}
			if st.full(opts.Limit) {
				break
			}
		}
	}

	return st.items, nil
}

// isBlocked reports whether err is an anti-bot block, as opposed to a
// transport failure.
func isBlocked(err error) bool {
	var blocked *fetch.BlockedError
	return errors.As(err, &blocked)
}
