package extract

import (
	"context"
	"regexp"
	"strings"
	"time"

	"resellscout/internal/fetch"
)

// PageFetcher is the slice of the fetch client the crawler needs.
type PageFetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (string, error)
}

var locRe = regexp.MustCompile(`(?i)<loc>\s*([^<]+)\s*</loc>`)

// SitemapLocs returns every <loc> value in a sitemap document, with
// surrounding whitespace trimmed.
func SitemapLocs(content string) []string {
	matches := locRe.FindAllStringSubmatch(content, -1)
	locs := make([]string, 0, len(matches))
	for _, m := range matches {
		if loc := strings.TrimSpace(m[1]); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs
}

// SitemapOptions bounds a sitemap crawl.
type SitemapOptions struct {
	HomeURL   string
	Hints     []string // a URL must contain at least one (when non-empty)
	Excludes  []string // a URL must contain none
	Limit     int
	Timeout   time.Duration
	Retries   int
	SourceKey string
}

// maxSitemapDepth caps breadth-first traversal of nested sitemap indexes.
const maxSitemapDepth = 3

// CrawlSitemapURLs walks a site's sitemap index breadth-first starting from
// {home}/sitemap.xml and collects candidate product-page URLs. Nested .xml
// locations are queued for the next level; everything else is filtered
// through the hint/exclude substrings (case-insensitive). Fetch failures for
// one sitemap document are skipped; the crawl continues with the rest.
func CrawlSitemapURLs(ctx context.Context, fetcher PageFetcher, opts SitemapOptions) []string {
	root := strings.TrimRight(opts.HomeURL, "/")
	queue := []string{root + "/sitemap.xml"}
	seenSitemaps := make(map[string]bool)
	seenURLs := make(map[string]bool)
	var urls []string

	for depth := 0; depth < maxSitemapDepth && len(queue) > 0 && len(urls) < opts.Limit; depth++ {
		batch := queue
		queue = nil
		for _, sm := range batch {
			if seenSitemaps[sm] {
				continue
			}
			seenSitemaps[sm] = true

			xml, err := fetcher.Fetch(ctx, fetch.Request{
				URL:        sm,
				Timeout:    opts.Timeout,
				Retries:    opts.Retries,
				SourceKey:  opts.SourceKey,
				DebugLabel: "sitemap_index",
			})
			if err != nil {
				continue
			}

			for _, loc := range SitemapLocs(xml) {
				if strings.HasSuffix(loc, ".xml") {
					if !seenSitemaps[loc] {
						queue = append(queue, loc)
					}
					continue
				}
				if !keepLoc(loc, opts.Hints, opts.Excludes) {
					continue
				}
				if seenURLs[loc] {
					continue
				}
				seenURLs[loc] = true
				urls = append(urls, loc)
				if len(urls) >= opts.Limit {
					break
				}
			}
		}
	}
	return urls
}

func keepLoc(loc string, hints, excludes []string) bool {
	low := strings.ToLower(loc)
	if len(hints) > 0 {
		matched := false
		for _, h := range hints {
			if strings.Contains(low, strings.ToLower(h)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, x := range excludes {
		if strings.Contains(low, strings.ToLower(x)) {
			return false
		}
	}
	return true
}
