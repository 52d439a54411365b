// Package page defines the small DOM surface the scrapers need from a
// rendered product page, independent of the engine that rendered it.
package page

import (
	"errors"
	"time"
)

var (
	ErrSelectorTimeout        = errors.New("selector did not appear in time")
	ErrInteractionUnsupported = errors.New("page does not support interaction")
)

// Page is a rendered, queryable document.
type Page interface {
	URL() string
	// Content returns the current serialized markup of the page.
	Content() (string, error)
	// QuerySelector returns the first match, or nil when nothing matches.
	QuerySelector(selector string) (Element, error)
	QuerySelectorAll(selector string) ([]Element, error)
	Click(selector string) error
	WaitForSelector(selector string, timeout time.Duration) error
	Wait(d time.Duration)
}

// Element is a single node of a Page.
type Element interface {
	InnerText() (string, error)
	// Attribute returns "" when the attribute is absent.
	Attribute(name string) (string, error)
	QuerySelector(selector string) (Element, error)
	QuerySelectorAll(selector string) ([]Element, error)
}
