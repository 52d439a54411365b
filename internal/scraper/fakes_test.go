package scraper

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/maltedev/amazon-product-scraper/internal/page"
	"github.com/stretchr/testify/require"
)

type downloadCall struct {
	URL    string
	Prefix string
}

type fakeDownloader struct {
	mu    sync.Mutex
	calls []downloadCall
	fail  map[string]bool
}

func newFakeDownloader(failing ...string) *fakeDownloader {
	d := &fakeDownloader{fail: make(map[string]bool)}
	for _, u := range failing {
		d.fail[u] = true
	}
	return d
}

func (d *fakeDownloader) Download(_ context.Context, rawURL, prefix string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, downloadCall{URL: rawURL, Prefix: prefix})
	if d.fail[rawURL] {
		return "", false
	}
	return filepath.Join("out", prefix+".jpg"), true
}

func (d *fakeDownloader) urls() []string {
	out := make([]string, 0, len(d.calls))
	for _, c := range d.calls {
		out = append(out, c.URL)
	}
	return out
}

func (d *fakeDownloader) prefixes() []string {
	out := make([]string, 0, len(d.calls))
	for _, c := range d.calls {
		out = append(out, c.Prefix)
	}
	return out
}

// clickPage is a static document that swaps in new markup when clicked,
// standing in for a popover that renders on demand.
type clickPage struct {
	*page.Document
	after  string
	clicks []string
}

func (c *clickPage) Click(selector string) error {
	c.clicks = append(c.clicks, selector)
	return c.Document.Replace(c.after)
}

type fakeRenderer struct {
	html   string
	err    error
	visits int
}

func (r *fakeRenderer) Visit(_ context.Context, url string, fn func(page.Page) error) error {
	r.visits++
	if r.err != nil {
		return r.err
	}
	doc, err := page.NewDocument(url, r.html)
	if err != nil {
		return err
	}
	return fn(doc)
}

func mustDocument(t *testing.T, html string) *page.Document {
	t.Helper()
	doc, err := page.NewDocument("https://www.amazon.com/dp/B000TEST", html)
	require.NoError(t, err)
	return doc
}
