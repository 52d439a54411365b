package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/maltedev/amazon-product-scraper/internal/download"
	"github.com/maltedev/amazon-product-scraper/internal/models"
	"github.com/maltedev/amazon-product-scraper/internal/page"
)

var quantityPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(g|kg|ml|l|pcs?|pack)`)

type Options struct {
	// MinImages stops the image pipeline once this many images are saved.
	MinImages              int
	PopoverRenderWait      time.Duration
	PopoverSelectorTimeout time.Duration
	HiResHost              string
	// Tiers replaces the default popover/embedded/fallback pipeline.
	Tiers     []ImageTier
	ImageData ImageDataSource
	Recorder  Recorder
	Logger    *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		MinImages:              3,
		PopoverRenderWait:      2 * time.Second,
		PopoverSelectorTimeout: 5 * time.Second,
		HiResHost:              DefaultHiResHost,
	}
}

// ProductScraper reads product fields and images from a rendered page.
type ProductScraper struct {
	minImages int
	tiers     []ImageTier
	recorder  Recorder
	logger    *slog.Logger
}

func NewProductScraper(opts Options) *ProductScraper {
	def := DefaultOptions()
	if opts.MinImages <= 0 {
		opts.MinImages = def.MinImages
	}
	if opts.PopoverRenderWait <= 0 {
		opts.PopoverRenderWait = def.PopoverRenderWait
	}
	if opts.PopoverSelectorTimeout <= 0 {
		opts.PopoverSelectorTimeout = def.PopoverSelectorTimeout
	}
	if opts.HiResHost == "" {
		opts.HiResHost = def.HiResHost
	}
	if opts.ImageData == nil {
		opts.ImageData = NewBracketScanSource()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	tiers := opts.Tiers
	if len(tiers) == 0 {
		tiers = []ImageTier{
			&PopoverTier{RenderWait: opts.PopoverRenderWait, SelectorTimeout: opts.PopoverSelectorTimeout},
			&EmbeddedTier{Source: opts.ImageData},
			&FallbackTier{HiResHost: opts.HiResHost},
		}
	}

	return &ProductScraper{
		minImages: opts.MinImages,
		tiers:     tiers,
		recorder:  opts.Recorder,
		logger:    opts.Logger.With("component", "product_scraper"),
	}
}

// Scrape fills rec from p. Every step is independent: a failure is recorded
// on the affected field and the remaining steps still run.
func (ps *ProductScraper) Scrape(ctx context.Context, p page.Page, rec *models.ProductRecord, dl download.Downloader) {
	ps.extractTitle(p, rec)
	ps.extractPrice(p, rec)
	ps.extractQuantity(p, rec)
	ps.extractManufacturerAndOrigin(p, rec)
	ps.extractExtraDetails(p, rec)

	if qty, ok := rec.Extra[netQuantityLabel]; ok {
		rec.Quantity.Set(qty, "details_table")
	}

	for name, f := range rec.Fields() {
		ps.recorder.ObserveField(name, f.Status)
	}

	ps.collectImages(ctx, p, rec, dl)
}

func (ps *ProductScraper) extractTitle(p page.Page, rec *models.ProductRecord) {
	el, err := p.QuerySelector(titleSelector)
	if err != nil {
		ps.fail(&rec.Title, "title", err)
		return
	}
	if el == nil {
		rec.Title.Miss()
		return
	}
	text, err := el.InnerText()
	if err != nil {
		ps.fail(&rec.Title, "title", err)
		return
	}
	rec.Title.Set(strings.TrimSpace(text), titleSelector)
}

func (ps *ProductScraper) extractPrice(p page.Page, rec *models.ProductRecord) {
	for _, selector := range priceSelectors {
		el, err := p.QuerySelector(selector)
		if err != nil {
			ps.fail(&rec.MRP, "mrp", err)
			continue
		}
		if el == nil {
			continue
		}
		text, err := el.InnerText()
		if err != nil {
			ps.fail(&rec.MRP, "mrp", err)
			continue
		}
		rec.MRP.Set(strings.TrimSpace(text), selector)
		return
	}
	rec.MRP.Miss()
}

func (ps *ProductScraper) extractQuantity(p page.Page, rec *models.ProductRecord) {
	bullets, err := p.QuerySelectorAll(featureBulletsSelector)
	if err != nil {
		ps.fail(&rec.Quantity, "quantity", err)
		return
	}
	for _, b := range bullets {
		text, err := b.InnerText()
		if err != nil {
			continue
		}
		if match := quantityPattern.FindString(strings.TrimSpace(text)); match != "" {
			rec.Quantity.Set(match, "feature_bullets")
			return
		}
	}
	rec.Quantity.Miss()
}

// extractManufacturerAndOrigin scans every detail row; a later matching row
// replaces an earlier one.
func (ps *ProductScraper) extractManufacturerAndOrigin(p page.Page, rec *models.ProductRecord) {
	rows, err := p.QuerySelectorAll(detailTableRows)
	if err != nil {
		ps.fail(&rec.Manufacturer, "manufacturer", err)
		ps.fail(&rec.Origin, "origin", err)
		return
	}

	for _, row := range rows {
		heading, value, err := headerCellPair(row)
		if err != nil {
			ps.logger.Debug("skipping detail row", "error", err)
			continue
		}
		heading = strings.ToLower(heading)
		if strings.Contains(heading, "manufacturer") {
			rec.Manufacturer.Set(value, "product_details")
		}
		if strings.Contains(heading, "country of origin") {
			rec.Origin.Set(value, "product_details")
		}
	}

	rec.Manufacturer.Miss()
	rec.Origin.Miss()
}

func (ps *ProductScraper) extractExtraDetails(p page.Page, rec *models.ProductRecord) {
	table, err := p.QuerySelector(extraDetailsTable)
	if err != nil || table == nil {
		return
	}
	rows, err := table.QuerySelectorAll("tr")
	if err != nil {
		ps.logger.Debug("failed to read extra details", "error", err)
		return
	}
	for _, row := range rows {
		key, value, ok := firstTwoCells(row)
		if !ok || key == "" {
			continue
		}
		rec.Extra[key] = value
	}
}

func (ps *ProductScraper) fail(f *models.Field, name string, err error) {
	ps.logger.Debug("field extraction failed", "field", name, "error", err)
	f.Fail(err)
}

// headerCellPair returns the trimmed th/td texts of a table row.
func headerCellPair(row page.Element) (string, string, error) {
	th, err := row.QuerySelector("th")
	if err != nil {
		return "", "", err
	}
	td, err := row.QuerySelector("td")
	if err != nil {
		return "", "", err
	}
	if th == nil || td == nil {
		return "", "", fmt.Errorf("row has no th/td pair")
	}
	heading, err := th.InnerText()
	if err != nil {
		return "", "", err
	}
	value, err := td.InnerText()
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(heading), strings.TrimSpace(value), nil
}

// firstTwoCells returns the trimmed texts of the first two td cells.
func firstTwoCells(row page.Element) (string, string, bool) {
	cells, err := row.QuerySelectorAll("td")
	if err != nil || len(cells) < 2 {
		return "", "", false
	}
	key, err := cells[0].InnerText()
	if err != nil {
		return "", "", false
	}
	value, err := cells[1].InnerText()
	if err != nil {
		return "", "", false
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}
