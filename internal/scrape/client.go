package scrape

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fedstats/fedsync/internal/ratelimit"
	"golang.org/x/sync/errgroup"
)

// Client is the shared connection to the external federation site.
// Every fetch passes through the rate limiter, so handler-level
// parallelism never raises the effective request rate.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *ratelimit.Limiter
	concurrency int
}

// New creates a Client for the given base URL
func New(baseURL string, limiter *ratelimit.Limiter, httpTimeout time.Duration, concurrency int) *Client {
	if concurrency <= 0 {
		concurrency = 1
	}
	if limiter == nil {
		limiter = ratelimit.New(0)
	}
	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: httpTimeout},
		limiter:     limiter,
		concurrency: concurrency,
	}
}

// BaseURL returns the configured source root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchDocument rate-limits, fetches a path relative to the base URL and
// parses the response as HTML. A failed fetch is retried once after a
// short delay before giving up.
func (c *Client) FetchDocument(ctx context.Context, path string) (*goquery.Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	doc, err := c.fetch(ctx, path)
	if err != nil {
		// Retry once after a longer delay
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
		doc, err = c.fetch(ctx, path)
	}
	return doc, err
}

func (c *Client) fetch(ctx context.Context, path string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", path, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

// FetchAll fetches the given paths with bounded parallelism and calls
// handle for each parsed document. A single failed path fails the call;
// callers wanting partial-failure semantics wrap handle per item.
func (c *Client) FetchAll(ctx context.Context, paths []string, handle func(path string, doc *goquery.Document) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, path := range paths {
		g.Go(func() error {
			doc, err := c.FetchDocument(ctx, path)
			if err != nil {
				return err
			}
			return handle(path, doc)
		})
	}

	return g.Wait()
}

// Close releases the client's idle connections. The orchestrator calls
// this on every exit path.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
