// Package fetch implements the HTTP acquisition layer: a retrying GET
// client with anti-bot block-page detection and optional raw-page debug
// capture. Every source adapter and the profitability benchmarker go
// through this client.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"resellscout/internal/config"
)

// BlockedError reports that a response body looked like an anti-bot
// challenge page rather than real content. It is distinct from transport
// errors so callers can tell "site is hostile" from "site is down".
type BlockedError struct {
	URL string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked by anti-bot challenge at %s", e.URL)
}

// blockIndicators are scanned case-insensitively against the decoded body.
var blockIndicators = []string{
	"robotcheck",
	"/challenge",
	"cf-chl",
	"captcha",
	"attention required",
	"access denied",
	"verify you are human",
}

// looksLikeBlockPage reports whether the body matches a known anti-bot
// challenge indicator.
func looksLikeBlockPage(content string) bool {
	low := strings.ToLower(content)
	for _, indicator := range blockIndicators {
		if strings.Contains(low, indicator) {
			return true
		}
	}
	return false
}

// Request describes one fetch call. SourceKey and DebugLabel only affect
// debug snapshot naming.
type Request struct {
	URL        string
	Timeout    time.Duration
	Retries    int
	SourceKey  string
	DebugLabel string
}

// Client issues HTTP GETs with bounded retries and capped exponential
// backoff. A zero Request.Timeout or negative Request.Retries falls back to
// the configured defaults.
type Client struct {
	client         *resty.Client
	defaultTimeout time.Duration
	defaultRetries int
	debug          *Capture
}

// NewClient creates a fetch client with the configured identifying
// user-agent header.
func NewClient(cfg config.FetchConfig, debug *Capture) *Client {
	return &Client{
		client: resty.New().
			SetHeader("User-Agent", cfg.UserAgent).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)),
		defaultTimeout: time.Duration(cfg.TimeoutSeconds * float64(time.Second)),
		defaultRetries: cfg.MaxRetries,
		debug:          debug,
	}
}

// Fetch GETs req.URL and returns the body decoded as UTF-8 with invalid
// sequences replaced. Failed attempts (transport errors, HTTP errors, and
// detected block pages) are retried up to req.Retries additional times with
// 0.3s * 2^attempt backoff; the final failure is returned to the caller.
func (c *Client) Fetch(ctx context.Context, req Request) (string, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	retries := req.Retries
	if retries < 0 {
		retries = c.defaultRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(float64(300*time.Millisecond) * float64(int(1)<<(attempt-1)))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		content, err := c.fetchOnce(ctx, req, timeout, attempt)
		if err != nil {
			lastErr = err
			continue
		}
		return content, nil
	}
	return "", lastErr
}

func (c *Client) fetchOnce(ctx context.Context, req Request, timeout time.Duration, attempt int) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.client.R().SetContext(attemptCtx).Get(req.URL)
	if err != nil {
		return "", fmt.Errorf("fetch: get %s: %w", req.URL, err)
	}
	if resp.StatusCode() >= 400 {
		return "", fmt.Errorf("fetch: get %s: unexpected status %d", req.URL, resp.StatusCode())
	}

	content := strings.ToValidUTF8(string(resp.Body()), "�")
	c.debug.Write(req.SourceKey, fmt.Sprintf("%s_attempt%d", req.DebugLabel, attempt), content)

	if looksLikeBlockPage(content) {
		return "", &BlockedError{URL: req.URL}
	}
	return content, nil
}
