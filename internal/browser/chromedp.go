package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/maltedev/amazon-product-scraper/internal/page"
)

const interactionTimeout = 10 * time.Second

type chromedpRenderer struct {
	opts   *Options
	logger *slog.Logger
}

func (r *chromedpRenderer) Visit(ctx context.Context, url string, fn func(page.Page) error) error {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(r.opts.UserAgent),
		chromedp.WindowSize(r.opts.ViewportWidth, r.opts.ViewportHeight),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		r.logger.Debug(fmt.Sprintf(format, args...))
	}))
	defer cancelTask()

	// Start the browser on the long-lived context so the navigation timeout
	// below does not take the browser down with it.
	if err := chromedp.Run(taskCtx); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}

	headers := make(network.Headers, len(r.opts.ExtraHeaders))
	for k, v := range r.opts.ExtraHeaders {
		headers[k] = v
	}

	navCtx, cancelNav := context.WithTimeout(taskCtx, r.opts.NavigationTimeout)
	r.logger.Debug("navigating", "url", url)
	err := chromedp.Run(navCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(url),
	)
	cancelNav()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
	}

	return fn(&chromedpPage{ctx: taskCtx, url: url})
}

// chromedpPage answers queries from a DOM snapshot that is refreshed after
// every interaction with the live tab.
type chromedpPage struct {
	ctx  context.Context
	url  string
	snap *page.Document
}

func (p *chromedpPage) snapshot() (*page.Document, error) {
	if p.snap != nil {
		return p.snap, nil
	}
	var html string
	if err := chromedp.Run(p.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}
	doc, err := page.NewDocument(p.url, html)
	if err != nil {
		return nil, err
	}
	p.snap = doc
	return doc, nil
}

func (p *chromedpPage) URL() string {
	return p.url
}

func (p *chromedpPage) Content() (string, error) {
	p.snap = nil
	doc, err := p.snapshot()
	if err != nil {
		return "", err
	}
	return doc.Content()
}

func (p *chromedpPage) QuerySelector(selector string) (page.Element, error) {
	doc, err := p.snapshot()
	if err != nil {
		return nil, err
	}
	return doc.QuerySelector(selector)
}

func (p *chromedpPage) QuerySelectorAll(selector string) ([]page.Element, error) {
	doc, err := p.snapshot()
	if err != nil {
		return nil, err
	}
	return doc.QuerySelectorAll(selector)
}

func (p *chromedpPage) Click(selector string) error {
	ctx, cancel := context.WithTimeout(p.ctx, interactionTimeout)
	defer cancel()
	p.snap = nil
	return chromedp.Run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (p *chromedpPage) WaitForSelector(selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	p.snap = nil
	err := chromedp.Run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", selector, page.ErrSelectorTimeout)
	}
	return err
}

func (p *chromedpPage) Wait(d time.Duration) {
	p.snap = nil
	select {
	case <-time.After(d):
	case <-p.ctx.Done():
	}
}
