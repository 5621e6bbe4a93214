package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/bsdetector/internal/util"
)

const (
	maxRedirects   = 3
	defaultRetries = 2
	defaultBackoff = 500 * time.Millisecond
)

// ErrDisallowed is returned when robots.txt forbids fetching a page
var ErrDisallowed = errors.New("disallowed by robots.txt")

// StatusError is a non-2xx page response
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.StatusCode, e.Status)
}

// Temporary reports whether a retry may succeed
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Page is a fetched article
type Page struct {
	URL         string
	FinalURL    string
	ContentType string
	Body        string
}

// Fetcher retrieves articles for analysis
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	retries    int
	backoff    time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a fetcher. A nil robots checker skips robots.txt.
func NewFetcher(httpClient *http.Client, userAgent string, maxBytes int64, robots *util.RobotsChecker) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	client := *httpClient
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	return &Fetcher{
		httpClient: &client,
		userAgent:  userAgent,
		maxBytes:   maxBytes,
		robots:     robots,
		retries:    defaultRetries,
		backoff:    defaultBackoff,
		sleep:      sleepCtx,
	}
}

// Fetch retrieves the page at rawURL in a single attempt
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	page, _, err := f.fetch(ctx, rawURL)
	return page, err
}

// fetch also returns the crawl delay robots.txt asks for
func (f *Fetcher) fetch(ctx context.Context, rawURL string) (*Page, time.Duration, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, 0, fmt.Errorf("invalid URL %q: only http and https are supported", rawURL)
	}

	var crawlDelay time.Duration
	if f.robots != nil {
		decision, err := f.robots.Check(ctx, parsed.String())
		if err != nil {
			return nil, 0, err
		}
		if !decision.Allowed {
			return nil, 0, fmt.Errorf("%s: %w", parsed.String(), ErrDisallowed)
		}
		crawlDelay = decision.CrawlDelay
	}

	page, err := f.get(ctx, parsed)
	return page, crawlDelay, err
}

func (f *Fetcher) get(ctx context.Context, parsed *url.URL) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	contentType := resp.Header.Get("Content-Type")
	if !readableType(contentType) {
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Page{
		URL:         parsed.String(),
		FinalURL:    resp.Request.URL.String(),
		ContentType: contentType,
		Body:        string(body),
	}, nil
}

// FetchWithRetry retries transient failures (429, 5xx) with linear backoff,
// never retrying sooner than the site's crawl delay
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*Page, error) {
	var lastErr error
	var crawlDelay time.Duration
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			if err := f.sleep(ctx, max(time.Duration(attempt)*f.backoff, crawlDelay)); err != nil {
				return nil, err
			}
		}

		page, delay, err := f.fetch(ctx, rawURL)
		crawlDelay = delay
		if err == nil {
			return page, nil
		}
		lastErr = err

		var statusErr *StatusError
		if !errors.As(err, &statusErr) || !statusErr.Temporary() {
			return nil, err
		}
	}
	return nil, lastErr
}

func readableType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") || mediaType == "application/xhtml+xml"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
