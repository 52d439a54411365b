package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/maltedev/amazon-product-scraper/internal/page"
	"github.com/playwright-community/playwright-go"
)

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Content() (string, error) {
	return p.page.Content()
}

func (p *playwrightPage) QuerySelector(selector string) (page.Element, error) {
	el, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	return wrapHandle(el), nil
}

func (p *playwrightPage) QuerySelectorAll(selector string) ([]page.Element, error) {
	els, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	return wrapHandles(els), nil
}

func (p *playwrightPage) Click(selector string) error {
	return p.page.Click(selector)
}

func (p *playwrightPage) WaitForSelector(selector string, timeout time.Duration) error {
	_, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%s: %w", selector, page.ErrSelectorTimeout)
	}
	return err
}

func (p *playwrightPage) Wait(d time.Duration) {
	p.page.WaitForTimeout(float64(d.Milliseconds()))
}

type playwrightElement struct {
	handle playwright.ElementHandle
}

// wrapHandle keeps a missing handle a nil interface rather than a non-nil
// wrapper around nil.
func wrapHandle(el playwright.ElementHandle) page.Element {
	if el == nil {
		return nil
	}
	return &playwrightElement{handle: el}
}

func wrapHandles(els []playwright.ElementHandle) []page.Element {
	out := make([]page.Element, 0, len(els))
	for _, el := range els {
		if el != nil {
			out = append(out, &playwrightElement{handle: el})
		}
	}
	return out
}

func (e *playwrightElement) InnerText() (string, error) {
	return e.handle.InnerText()
}

func (e *playwrightElement) Attribute(name string) (string, error) {
	return e.handle.GetAttribute(name)
}

func (e *playwrightElement) QuerySelector(selector string) (page.Element, error) {
	el, err := e.handle.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	return wrapHandle(el), nil
}

func (e *playwrightElement) QuerySelectorAll(selector string) ([]page.Element, error) {
	els, err := e.handle.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	return wrapHandles(els), nil
}
