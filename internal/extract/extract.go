// Package extract parses product rows out of fetched marketplace pages.
// Two strategies are tried in order: structured JSON-LD product markup,
// then a heuristic scan of anchor tags with a nearby price token. Prices
// are converted to GBP at extraction time.
package extract

import (
	"encoding/json"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"resellscout/internal/money"
)

// Heuristic extraction bounds. The price search window is asymmetric
// because listing pages often place the price markup after the title link
// within the same card block.
const (
	minTitleRunes  = 8
	windowBefore   = 450
	windowAfter    = 1400
	minPriceGBP    = 5.0
	maxPriceGBP    = 3000.0
	maxRowsPerPage = 30
)

// Row is one parsed product: a title, a resolved URL, and a GBP price.
type Row struct {
	Title          string
	URL            string
	SourcePriceGBP float64
}

// Converter converts a foreign-currency amount to GBP.
type Converter interface {
	Convert(amount float64, currency string) float64
}

// Extractor parses product rows from page content using the given currency
// converter.
type Extractor struct {
	fx Converter
}

// New creates an Extractor backed by the given converter.
func New(fx Converter) *Extractor {
	return &Extractor{fx: fx}
}

var (
	numberRe    = regexp.MustCompile(`(\d[\d,]*\.?\d*)`)
	anchorRe    = regexp.MustCompile(`(?is)<a[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	tagStripRe  = regexp.MustCompile(`<[^>]+>`)
	priceHintRe = regexp.MustCompile(`(?i)(£|€|\$|¥|円|&yen;|JPY|USD|EUR)\s*([\d,]+(?:\.\d{1,2})?)|([\d,]+(?:\.\d{1,2})?)\s*(円|JPY|USD|EUR)`)
)

// symbolCurrency maps price symbols and markers to ISO currency codes.
var symbolCurrency = map[string]string{
	"£": "GBP", "€": "EUR", "$": "USD", "¥": "JPY", "円": "JPY", "&YEN;": "JPY",
}

// NormalizeText unescapes HTML entities, removes non-breaking spaces, and
// collapses runs of whitespace.
func NormalizeText(value string) string {
	unescaped := strings.ReplaceAll(html.UnescapeString(value), " ", " ")
	return strings.Join(strings.Fields(unescaped), " ")
}

// ExtractNumber pulls the first numeric run out of raw, tolerating thousands
// separators.
func ExtractNumber(raw string) (float64, bool) {
	match := numberRe.FindString(raw)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// InferCurrency guesses a currency code from symbols or markers embedded in
// price text. Returns "" when nothing matches.
func InferCurrency(rawPrice string) string {
	low := strings.ToLower(rawPrice)
	switch {
	case strings.Contains(rawPrice, "$") || strings.Contains(low, "usd"):
		return "USD"
	case strings.Contains(rawPrice, "£") || strings.Contains(low, "gbp"):
		return "GBP"
	case strings.Contains(rawPrice, "€") || strings.Contains(low, "eur"):
		return "EUR"
	case strings.Contains(rawPrice, "¥") || strings.Contains(rawPrice, "円") || strings.Contains(low, "jpy"):
		return "JPY"
	}
	return ""
}

// ProductsFromJSONLD scans every JSON-LD script block for Product nodes,
// walking nested objects and arrays. A node qualifies when its @type
// includes "Product" and it carries a name, URL, and numeric offer price.
func (e *Extractor) ProductsFromJSONLD(content string) []Row {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	var rows []Row
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(strings.TrimSpace(sel.Text())), &payload); err != nil {
			return
		}
		e.walkJSONLD(payload, &rows)
	})
	return rows
}

func (e *Extractor) walkJSONLD(node any, rows *[]Row) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			e.walkJSONLD(item, rows)
		}
	case map[string]any:
		if isProductType(v["@type"]) {
			if row, ok := e.productRow(v); ok {
				*rows = append(*rows, row)
			}
		}
		for _, value := range v {
			e.walkJSONLD(value, rows)
		}
	}
}

func isProductType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Product"
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

func (e *Extractor) productRow(node map[string]any) (Row, bool) {
	name, nameOK := node["name"].(string)
	pageURL, urlOK := node["url"].(string)
	if !nameOK || !urlOK {
		return Row{}, false
	}

	offers, _ := node["offers"].(map[string]any)
	if offers == nil {
		return Row{}, false
	}

	priceText := stringifyPrice(offers["price"])
	if priceText == "" {
		return Row{}, false
	}
	amount, ok := ExtractNumber(priceText)
	if !ok {
		return Row{}, false
	}

	currency, _ := offers["priceCurrency"].(string)
	if currency == "" {
		currency = InferCurrency(priceText)
	}

	return Row{
		Title:          NormalizeText(name),
		URL:            pageURL,
		SourcePriceGBP: money.Round2(e.fx.Convert(amount, currency)),
	}, true
}

// stringifyPrice renders a JSON-LD offer price (string or number) as text.
func stringifyPrice(price any) string {
	switch v := price.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

// ProductsFromHTML scans anchor tags in the raw markup and pairs each with a
// currency-amount token found within a bounded window around the anchor.
// Candidates with short titles or prices outside [5, 3000] GBP are dropped;
// results are capped per page. The scan runs on raw bytes because the price
// window is defined by byte offsets around the anchor match.
func (e *Extractor) ProductsFromHTML(content, baseURL string) []Row {
	base, baseErr := url.Parse(baseURL)

	var rows []Row
	for _, match := range anchorRe.FindAllStringSubmatchIndex(content, -1) {
		href := content[match[2]:match[3]]
		inner := content[match[4]:match[5]]

		title := NormalizeText(tagStripRe.ReplaceAllString(inner, " "))
		if utf8.RuneCountInString(title) < minTitleRunes {
			continue
		}

		resolved := html.UnescapeString(href)
		if baseErr == nil {
			if ref, err := base.Parse(resolved); err == nil {
				resolved = ref.String()
			}
		}

		start := match[0] - windowBefore
		if start < 0 {
			start = 0
		}
		end := match[1] + windowAfter
		if end > len(content) {
			end = len(content)
		}

		currency, amountRaw, ok := findPriceToken(content[start:end])
		if !ok {
			continue
		}
		amount, ok := ExtractNumber(amountRaw)
		if !ok {
			continue
		}

		priceGBP := money.Round2(e.fx.Convert(amount, currency))
		if priceGBP < minPriceGBP || priceGBP > maxPriceGBP {
			continue
		}

		rows = append(rows, Row{Title: title, URL: resolved, SourcePriceGBP: priceGBP})
		if len(rows) >= maxRowsPerPage {
			break
		}
	}
	return rows
}

// findPriceToken locates the first currency-amount pattern in window: either
// a symbol/code followed by digits, or digits followed by a currency marker.
func findPriceToken(window string) (currency, amountRaw string, ok bool) {
	m := priceHintRe.FindStringSubmatch(window)
	if m == nil {
		return "", "", false
	}

	var symbol string
	if m[1] != "" && m[2] != "" {
		symbol = strings.ToUpper(m[1])
		amountRaw = m[2]
	} else {
		symbol = strings.ToUpper(m[4])
		amountRaw = m[3]
	}
	if amountRaw == "" {
		return "", "", false
	}

	currency = symbol
	if mapped, found := symbolCurrency[symbol]; found {
		currency = mapped
	}
	return currency, amountRaw, true
}

// FirstProduct returns the first product row found on a single page:
// structured extraction wins, then the heuristic scan. The page URL is used
// when a structured row carries no URL of its own.
func (e *Extractor) FirstProduct(pageURL, content string) (Row, bool) {
	if rows := e.ProductsFromJSONLD(content); len(rows) > 0 {
		row := rows[0]
		if row.URL == "" {
			row.URL = pageURL
		}
		return row, true
	}
	if rows := e.ProductsFromHTML(content, pageURL); len(rows) > 0 {
		return rows[0], true
	}
	return Row{}, false
}
