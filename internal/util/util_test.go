package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/decode/internal/model"
)

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"Mozilla/5.0 (compatible; Decode/0.1; +https://example.com)": "Decode",
		"decode-bot/1.0": "decode-bot",
		"":               "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRobotsChecker_CanFetch(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits.Add(1)
			_, _ = fmt.Fprint(w, "User-agent: Decode\nDisallow: /private\nCrawl-delay: 2\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker(server.Client(), "Mozilla/5.0 (compatible; Decode/0.1)")
	ctx := context.Background()

	allowed, delay, err := checker.CanFetch(ctx, server.URL+"/news/story")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !allowed {
		t.Error("Expected /news/story to be allowed")
	}
	if delay != 2*time.Second {
		t.Errorf("Expected crawl delay 2s, got %v", delay)
	}

	if allowed, _, _ := checker.CanFetch(ctx, server.URL+"/private/page"); allowed {
		t.Error("Expected /private/page to be disallowed")
	}

	if hits.Load() != 1 {
		t.Errorf("Expected robots.txt fetched once, got %d", hits.Load())
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewRobotsChecker(server.Client(), "Decode")
	if allowed, _, _ := checker.CanFetch(context.Background(), server.URL+"/anything"); !allowed {
		t.Error("Expected allow when robots.txt is missing")
	}
}

func TestRobotsChecker_BadURL(t *testing.T) {
	checker := NewRobotsChecker(nil, "Decode")
	if _, _, err := checker.CanFetch(context.Background(), "not a url"); err == nil {
		t.Error("Expected error for URL without host")
	}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy:8080", "http://secure-proxy:8443", "internal.example, .corp")

	check := func(raw, want string) {
		t.Helper()
		u, _ := url.Parse(raw)
		got, err := proxy(&http.Request{URL: u})
		if err != nil {
			t.Fatalf("proxy(%s): %v", raw, err)
		}
		gotStr := ""
		if got != nil {
			gotStr = got.String()
		}
		if gotStr != want {
			t.Errorf("proxy(%s) = %q, want %q", raw, gotStr, want)
		}
	}

	check("http://news.example/a", "http://proxy:8080")
	check("https://news.example/a", "http://secure-proxy:8443")
	check("https://internal.example/a", "")
	check("http://host.corp/a", "")
}

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient(model.HTTPConfig{Timeout: 3 * time.Second, InsecureTLS: true})
	if client.Timeout != 3*time.Second {
		t.Errorf("Expected 3s timeout, got %v", client.Timeout)
	}
	transport := client.Transport.(*http.Transport)
	if transport.TLSClientConfig == nil || !transport.TLSClientConfig.InsecureSkipVerify {
		t.Error("Expected insecure TLS to be applied")
	}
}
