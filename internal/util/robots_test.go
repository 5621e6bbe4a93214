package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func robotsServer(t *testing.T, status int, body string, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
}

func TestRobotsChecker_Rules(t *testing.T) {
	var hits int32
	server := robotsServer(t, http.StatusOK, "User-agent: bsdetector\nDisallow: /private\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n", &hits)
	defer server.Close()

	checker := NewRobotsChecker(server.Client(), "bsdetector/0.1 (+https://example.org)")
	ctx := context.Background()

	decision, err := checker.Check(ctx, server.URL+"/news/story")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !decision.Allowed {
		t.Error("expected /news/story to be allowed for bsdetector")
	}
	if decision.CrawlDelay != 2*time.Second {
		t.Errorf("expected crawl delay 2s, got %v", decision.CrawlDelay)
	}

	decision, _ = checker.Check(ctx, server.URL+"/private/page")
	if decision.Allowed {
		t.Error("expected /private to be disallowed")
	}

	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("expected robots.txt to be fetched once, got %d", hits)
	}

	checker.Forget()
	_, _ = checker.Check(ctx, server.URL+"/")
	if atomic.LoadInt32(&hits) != 2 {
		t.Errorf("expected refetch after Forget, got %d", hits)
	}
}

func TestRobotsChecker_OtherAgentsFollowWildcard(t *testing.T) {
	server := robotsServer(t, http.StatusOK, "User-agent: bsdetector\nAllow: /\n\nUser-agent: *\nDisallow: /\n", nil)
	defer server.Close()

	decision, err := NewRobotsChecker(server.Client(), "otherbot/1.0").Check(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if decision.Allowed {
		t.Error("expected wildcard group to disallow other agents")
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := robotsServer(t, http.StatusNotFound, "", nil)
	defer server.Close()

	decision, err := NewRobotsChecker(server.Client(), "bsdetector").Check(context.Background(), server.URL+"/anything")
	if err != nil || !decision.Allowed {
		t.Errorf("expected allow without robots.txt, got %+v, %v", decision, err)
	}
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	server := robotsServer(t, http.StatusOK, "", nil)
	url := server.URL
	server.Close()

	decision, err := NewRobotsChecker(nil, "bsdetector").Check(context.Background(), url+"/page")
	if err != nil || !decision.Allowed {
		t.Errorf("expected allow when robots.txt is unreachable, got %+v, %v", decision, err)
	}
}

func TestRobotsChecker_InvalidURL(t *testing.T) {
	if _, err := NewRobotsChecker(nil, "bsdetector").Check(context.Background(), "not a url"); err == nil {
		t.Error("expected error for a URL without host")
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"bsdetector/0.1 (+https://example.org)": "bsdetector",
		"curl/8.0":                              "curl",
		"  plain  ":                             "plain",
		"":                                      "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}
