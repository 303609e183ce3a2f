package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestContextWithoutURL(t *testing.T) {
	fetcher := NewPageFetcher(time.Second)
	if got := fetcher.Context(context.Background(), "no links in here"); got != "" {
		t.Fatalf("expected empty context for message without URL, got %q", got)
	}
}

func TestContextFetchesFirstURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != fetchUserAgent {
			t.Fatalf("unexpected user agent: %q", got)
		}
		_, _ = w.Write([]byte("page body here"))
	}))
	defer srv.Close()

	fetcher := NewPageFetcher(time.Second)
	got := fetcher.Context(context.Background(), "summarize "+srv.URL+" for me")
	if !strings.Contains(got, "--- PAGE CONTEXT ("+srv.URL+") ---") {
		t.Fatalf("context should name the fetched URL, got %q", got)
	}
	if !strings.Contains(got, "page body here") {
		t.Fatalf("context should carry the page body, got %q", got)
	}
	if !strings.Contains(got, "--- END PAGE CONTEXT ---") {
		t.Fatalf("context should be terminated, got %q", got)
	}
}

func TestContextTruncatesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 500)))
	}))
	defer srv.Close()

	fetcher := NewPageFetcher(time.Second, WithMaxBodyBytes(100))
	got := fetcher.Context(context.Background(), srv.URL)
	if strings.Count(got, "x") != 100 {
		t.Fatalf("body should be truncated to 100 bytes, got %d", strings.Count(got, "x"))
	}
}

func TestContextReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	fetcher := NewPageFetcher(time.Second)
	got := fetcher.Context(context.Background(), srv.URL)
	if !strings.Contains(got, "[page unavailable] fetch failed with status 503") {
		t.Fatalf("failure should be reported inline, got %q", got)
	}
}

func TestContextReportsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	target := srv.URL
	srv.Close()

	fetcher := NewPageFetcher(time.Second)
	got := fetcher.Context(context.Background(), "see "+target)
	if !strings.Contains(got, "[page unavailable] fetch error:") {
		t.Fatalf("network error should be reported inline, got %q", got)
	}
}
