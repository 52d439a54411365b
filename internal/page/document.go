package page

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Document is a static Page backed by a goquery snapshot. It cannot run
// scripts, so Click reports ErrInteractionUnsupported.
type Document struct {
	mu  sync.RWMutex
	url string
	doc *goquery.Document
}

func NewDocument(url, html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{url: url, doc: doc}, nil
}

func NewDocumentFromGoquery(url string, doc *goquery.Document) *Document {
	return &Document{url: url, doc: doc}
}

// Replace swaps the snapshot, e.g. after the live page changed.
func (d *Document) Replace(html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}
	d.mu.Lock()
	d.doc = doc
	d.mu.Unlock()
	return nil
}

func (d *Document) URL() string {
	return d.url
}

func (d *Document) Content() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return goquery.OuterHtml(d.doc.Selection)
}

func (d *Document) QuerySelector(selector string) (Element, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return first(d.doc.Selection, selector), nil
}

func (d *Document) QuerySelectorAll(selector string) ([]Element, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return all(d.doc.Selection, selector), nil
}

func (d *Document) Click(selector string) error {
	return fmt.Errorf("click %q: %w", selector, ErrInteractionUnsupported)
}

func (d *Document) WaitForSelector(selector string, timeout time.Duration) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%s: %w", selector, ErrSelectorTimeout)
	}
	return nil
}

// Wait is a no-op: a snapshot never changes on its own.
func (d *Document) Wait(time.Duration) {}

type node struct {
	sel *goquery.Selection
}

func (n node) InnerText() (string, error) {
	return n.sel.Text(), nil
}

func (n node) Attribute(name string) (string, error) {
	v, _ := n.sel.Attr(name)
	return v, nil
}

func (n node) QuerySelector(selector string) (Element, error) {
	return first(n.sel, selector), nil
}

func (n node) QuerySelectorAll(selector string) ([]Element, error) {
	return all(n.sel, selector), nil
}

func first(s *goquery.Selection, selector string) Element {
	found := s.Find(selector).First()
	if found.Length() == 0 {
		return nil
	}
	return node{sel: found}
}

func all(s *goquery.Selection, selector string) []Element {
	var out []Element
	s.Find(selector).Each(func(_ int, item *goquery.Selection) {
		out = append(out, node{sel: item})
	})
	return out
}
