package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/amazon-product-scraper/internal/page"
	"golang.org/x/net/html/charset"
)

// staticRenderer fetches the raw markup without running any script. Pages
// that build their content client-side come back mostly empty.
type staticRenderer struct {
	opts   *Options
	client *http.Client
	logger *slog.Logger
}

func newStaticRenderer(opts *Options) *staticRenderer {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.NavigationTimeout}
	}
	return &staticRenderer{opts: opts, client: client, logger: opts.Logger}
}

func (r *staticRenderer) Visit(ctx context.Context, url string, fn func(page.Page) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.opts.NavigationTimeout)
	doc, err := r.fetch(ctx, url)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
	}
	return fn(page.NewDocumentFromGoquery(url, doc))
}

func (r *staticRenderer) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.opts.UserAgent)
	for k, v := range r.opts.ExtraHeaders {
		req.Header.Set(k, v)
	}

	r.logger.Debug("fetching", "url", url)
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
