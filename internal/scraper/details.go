package scraper

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/rangetable"

	"github.com/maltedev/amazon-product-scraper/internal/models"
	"github.com/maltedev/amazon-product-scraper/internal/page"
)

// bidiControls are the invisible direction marks that surround labels and
// values in the detail sections.
var bidiControls = runes.In(rangetable.New('\u200e', '\u200f', '\u2060', '\u202a', '\u202c'))

// StripBidi removes bidi control marks from s and trims surrounding space.
func StripBidi(s string) string {
	out, _, err := transform.String(runes.Remove(bidiControls), s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(out)
}

func cleanLabel(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(StripBidi(s), ":", ""))
}

// DetailExtractor collects label/value pairs from the product detail
// sections. The first region to name a label keeps it.
type DetailExtractor struct {
	logger *slog.Logger
}

func NewDetailExtractor(logger *slog.Logger) *DetailExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetailExtractor{logger: logger.With("component", "detail_extractor")}
}

type detailRegion struct {
	name    string
	extract func(page.Page, models.DetailMap) error
}

func (e *DetailExtractor) Extract(p page.Page) models.DetailMap {
	details := make(models.DetailMap)

	regions := []detailRegion{
		{"detail_bullets", e.bullets},
		{"detail_tables", e.tables},
		{"expander_left", e.expander(expanderLeftRegion)},
		{"expander_right", e.expander(expanderRightRegion)},
	}
	for _, r := range regions {
		before := len(details)
		if err := r.extract(p, details); err != nil {
			e.logger.Debug("failed to read detail region", "region", r.name, "error", err)
			continue
		}
		e.logger.Debug("read detail region", "region", r.name, "added", len(details)-before)
	}

	e.logger.Debug("detail extraction finished", "total", len(details))
	return details
}

func (e *DetailExtractor) add(details models.DetailMap, label, value string) {
	label = cleanLabel(label)
	value = StripBidi(value)
	if label == "" || value == "" {
		return
	}
	details.Add(label, value)
}

func (e *DetailExtractor) bullets(p page.Page, details models.DetailMap) error {
	region, err := p.QuerySelector(detailBulletsRegion)
	if err != nil {
		return err
	}
	if region == nil {
		return nil
	}
	items, err := region.QuerySelectorAll("ul li")
	if err != nil {
		return err
	}
	for _, item := range items {
		label, value, err := bulletPair(item)
		if err != nil {
			e.logger.Debug("skipping detail bullet", "error", err)
			continue
		}
		e.add(details, label, value)
	}
	return nil
}

// bulletPair reads one detail bullet. The bold label span is preferred, then
// the first two spans, then a "label : value" split of the item text.
func bulletPair(item page.Element) (string, string, error) {
	bold, err := item.QuerySelector("span.a-text-bold")
	if err != nil {
		return "", "", err
	}
	if bold != nil {
		sibling, err := item.QuerySelector("span.a-text-bold + span")
		if err != nil {
			return "", "", err
		}
		if sibling != nil {
			return elementTexts(bold, sibling)
		}
	}

	spans, err := item.QuerySelectorAll("span")
	if err != nil {
		return "", "", err
	}
	if len(spans) >= 2 {
		return elementTexts(spans[0], spans[1])
	}

	text, err := item.InnerText()
	if err != nil {
		return "", "", err
	}
	if !strings.Contains(text, ":") || !strings.ContainsRune(text, '\u200f') {
		return "", "", nil
	}
	label, value, _ := strings.Cut(text, ":")
	return label, value, nil
}

func (e *DetailExtractor) tables(p page.Page, details models.DetailMap) error {
	rows, err := p.QuerySelectorAll(detailTableRows)
	if err != nil {
		return err
	}
	for _, row := range rows {
		label, value, err := headerCellPair(row)
		if err != nil {
			continue
		}
		e.add(details, label, value)
	}
	return nil
}

func (e *DetailExtractor) expander(selector string) func(page.Page, models.DetailMap) error {
	return func(p page.Page, details models.DetailMap) error {
		region, err := p.QuerySelector(selector)
		if err != nil {
			return err
		}
		if region == nil {
			return nil
		}
		rows, err := region.QuerySelectorAll("tr")
		if err != nil {
			return err
		}
		for _, row := range rows {
			label, value, ok := firstTwoCells(row)
			if !ok {
				continue
			}
			e.add(details, label, value)
		}
		return nil
	}
}

func elementTexts(a, b page.Element) (string, string, error) {
	first, err := a.InnerText()
	if err != nil {
		return "", "", fmt.Errorf("failed to read label: %w", err)
	}
	second, err := b.InnerText()
	if err != nil {
		return "", "", fmt.Errorf("failed to read value: %w", err)
	}
	return first, second, nil
}
