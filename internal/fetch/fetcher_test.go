package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resellscout/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testClientConfig() config.FetchConfig {
	return config.FetchConfig{
		TimeoutSeconds: 2,
		MaxRetries:     0,
		UserAgent:      "resellscout-test",
	}
}

func TestFetchReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "resellscout-test", r.Header.Get("User-Agent"))
		w.Write([]byte("<html>hello</html>"))
	}))
	defer server.Close()

	client := NewClient(testClientConfig(), nil)
	content, err := client.Fetch(context.Background(), Request{URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, "<html>hello</html>", content)
}

func TestFetchRetriesTransportErrors(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	client := NewClient(testClientConfig(), nil)
	content, err := client.Fetch(context.Background(), Request{URL: server.URL, Retries: 1})
	require.NoError(t, err)
	assert.Equal(t, "recovered", content)
	assert.Equal(t, 2, hits)
}

func TestFetchDetectsBlockPage(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Write([]byte("<html>Attention Required! | Cloudflare</html>"))
	}))
	defer server.Close()

	client := NewClient(testClientConfig(), nil)
	_, err := client.Fetch(context.Background(), Request{URL: server.URL, Retries: 1})

	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, server.URL, blocked.URL)
	// Block pages are retried like any other failure.
	assert.Equal(t, 2, hits)
}

func TestFetchPropagatesFinalFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(), nil)
	_, err := client.Fetch(context.Background(), Request{URL: server.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestFetchReplacesInvalidUTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Two separate invalid runs; each run collapses to one
		// replacement character.
		w.Write([]byte{'o', 0xff, 'k', 0xfe, 0xfd})
	}))
	defer server.Close()

	client := NewClient(testClientConfig(), nil)
	content, err := client.Fetch(context.Background(), Request{URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, "o�k�", content)
}

func TestFetchAbortsBackoffOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	client := NewClient(testClientConfig(), nil)
	start := time.Now()
	_, err := client.Fetch(ctx, Request{URL: server.URL, Retries: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	// The full backoff schedule would take several seconds.
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLooksLikeBlockPage(t *testing.T) {
	tests := []struct {
		content string
		blocked bool
	}{
		{"please solve this CAPTCHA to continue", true},
		{"Access Denied", true},
		{"<script src='/cf-chl-widget.js'></script>", true},
		{"verify you are human", true},
		{"<html><body>Pokemon Card Booster Box</body></html>", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.blocked, looksLikeBlockPage(tt.content), tt.content)
	}
}

func TestCaptureWritesSnapshots(t *testing.T) {
	dir := t.TempDir()
	capture := NewCapture(true, dir, testLogger())
	require.NotNil(t, capture)

	capture.Write("hlj", "search_pokemon card!", "<html/>")

	entries, err := os.ReadDir(filepath.Join(dir, "hlj"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Regexp(t, `^\d+_search_pokemon_card_\.html$`, entries[0].Name())

	body, err := os.ReadFile(filepath.Join(dir, "hlj", entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "<html/>", string(body))
}

func TestCaptureDisabledIsNoop(t *testing.T) {
	capture := NewCapture(false, t.TempDir(), testLogger())
	assert.Nil(t, capture)
	// Writing through a nil capture must not panic.
	capture.Write("hlj", "label", "content")
}
