package aggregate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sgmodkit/sgsync/internal/invoke"
)

// userAgent mimics a desktop browser; several rule hosts refuse requests
// with default Go or script user agents.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/126.0.0.0 Safari/537.36"

// DefaultFetchTimeout bounds a single download.
const DefaultFetchTimeout = 30 * time.Second

// maxSourceSize caps a single source download at 16 MiB.
const maxSourceSize = 16 << 20

// Fetcher downloads module sources over HTTP, retrying transient failures
// with the same backoff schedule the invoker uses for process attempts.
type Fetcher struct {
	client      *http.Client
	retries     int
	backoffBase float64
	sleep       func(time.Duration)
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithClient replaces the HTTP client.
func WithClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = client }
}

// WithRetries sets the retry budget per source.
func WithRetries(retries int) FetcherOption {
	return func(f *Fetcher) { f.retries = retries }
}

// WithBackoff sets the backoff base between retries.
func WithBackoff(base float64) FetcherOption {
	return func(f *Fetcher) { f.backoffBase = base }
}

// WithFetchSleep replaces the backoff sleep function for tests.
func WithFetchSleep(sleep func(time.Duration)) FetcherOption {
	return func(f *Fetcher) { f.sleep = sleep }
}

// NewFetcher creates a Fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration, opts ...FetcherOption) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	fetcher := &Fetcher{
		client:      &http.Client{Timeout: timeout},
		backoffBase: 2.0,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

// Fetch downloads one source, retrying up to the fetcher's budget. It
// returns the body as text.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	attempts := f.retries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			f.sleep(invoke.BackoffDelay(f.backoffBase, attempt))
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}

	return "", lastErr
}

// fetchOnce performs a single GET.
func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,zh-CN;q=0.8,zh;q=0.7")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on response body

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceSize))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}

	return string(body), nil
}
