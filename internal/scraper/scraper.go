package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/maltedev/amazon-product-scraper/internal/models"
)

var (
	ErrMarkerNotFound  = errors.New("embedded image data marker not found")
	ErrUnbalancedArray = errors.New("embedded image data array is not balanced")
)

// Crawler is the public surface used by the CLI and the HTTP API. Neither
// call fails: problems degrade individual fields to absent.
type Crawler interface {
	Crawl(ctx context.Context, url string) *models.ProductRecord
	ProductDirectDetails(ctx context.Context, url string) models.DetailMap
}

// Recorder receives scrape outcomes; metrics.Metrics satisfies it.
type Recorder interface {
	ObserveCrawl(operation string, ok bool, elapsed time.Duration)
	ObserveField(field string, status models.FieldStatus)
	ObserveTier(tier string, attempted bool, saved int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCrawl(string, bool, time.Duration) {}
func (nopRecorder) ObserveField(string, models.FieldStatus)  {}
func (nopRecorder) ObserveTier(string, bool, int)            {}

const (
	titleSelector          = "#productTitle"
	featureBulletsSelector = "#feature-bullets li span.a-list-item"
	detailTableRows        = "#productDetails_techSpec_section_1 tr, #productDetails_detailBullets_sections1 tr"
	extraDetailsTable      = "table.a-normal.a-spacing-micro"

	popoverTriggerSelector = "li[data-cel-widget='altImages'] .a-declarative .a-button-thumbnail:last-child"
	popoverImageSelector   = ".ivThumbs img"
	mainImageSelector      = "#main-image-container img"
	thumbnailSelector      = "#altImages img"

	detailBulletsRegion = "#detailBullets_feature_div"
	expanderLeftRegion  = "#productDetails_expanderTables_depthLeftSections"
	expanderRightRegion = "#productDetails_expanderTables_depthRightSections"

	netQuantityLabel = "Net Quantity"
)

var priceSelectors = []string{
	"#priceblock_ourprice",
	"#priceblock_dealprice",
	"span.a-price span.a-offscreen",
}
