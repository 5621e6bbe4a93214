package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

// RobotsTTL is how long a host's robots.txt is trusted
const RobotsTTL = time.Hour

// RobotsDecision is the robots.txt verdict for one URL
type RobotsDecision struct {
	Allowed    bool
	CrawlDelay time.Duration
}

// RobotsChecker answers robots.txt questions for article fetches
type RobotsChecker struct {
	rules      *gocache.Cache
	httpClient *http.Client
	userAgent  string
	agent      string
}

// NewRobotsChecker creates a checker that caches rules per host for RobotsTTL
func NewRobotsChecker(httpClient *http.Client, userAgent string) *RobotsChecker {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsChecker{
		rules:      gocache.New(RobotsTTL, 2*RobotsTTL),
		httpClient: httpClient,
		userAgent:  userAgent,
		agent:      NormalizeUserAgent(userAgent),
	}
}

// Check reports whether rawURL may be fetched. A robots.txt that cannot be
// retrieved allows the fetch.
func (r *RobotsChecker) Check(ctx context.Context, rawURL string) (RobotsDecision, error) {
	target, err := url.Parse(rawURL)
	if err != nil || target.Host == "" {
		return RobotsDecision{}, fmt.Errorf("invalid URL %q", rawURL)
	}

	rules, err := r.rulesFor(ctx, target)
	if err != nil {
		return RobotsDecision{Allowed: true}, nil
	}

	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}

	decision := RobotsDecision{Allowed: rules.TestAgent(path, r.agent)}
	if group := rules.FindGroup(r.agent); group != nil {
		decision.CrawlDelay = group.CrawlDelay
	}
	return decision, nil
}

func (r *RobotsChecker) rulesFor(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	key := target.Scheme + "://" + target.Host
	if cached, ok := r.rules.Get(key); ok {
		return cached.(*robotstxt.RobotsData), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// 4xx allows everything, 5xx disallows everything
	rules, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.rules.SetDefault(key, rules)
	return rules, nil
}

// Forget drops cached rules so the next check refetches them
func (r *RobotsChecker) Forget() {
	r.rules.Flush()
}

// NormalizeUserAgent reduces a user agent to the product token robots.txt groups match on
func NormalizeUserAgent(ua string) string {
	product, _, _ := strings.Cut(strings.TrimSpace(ua), " ")
	product, _, _ = strings.Cut(product, "/")
	return product
}
