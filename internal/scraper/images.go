package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/maltedev/amazon-product-scraper/internal/download"
	"github.com/maltedev/amazon-product-scraper/internal/models"
	"github.com/maltedev/amazon-product-scraper/internal/page"
)

const (
	DefaultHiResHost = "https://m.media-amazon.com"

	popoverThumbMarker = ".SX38_SY50_CR,0,0,38,50"
	hiResMarker        = ".SL1500"
)

var sizeMarker = regexp.MustCompile(`\.S[XY]\d+`)

// ImageTier is one image discovery strategy. Tiers save what they find
// through the shared ImageRun.
type ImageTier interface {
	Name() string
	Collect(ctx context.Context, p page.Page, run *ImageRun) error
}

// ImageRun carries the images saved so far during one crawl and the set of
// URLs already tried, so no URL is fetched twice.
type ImageRun struct {
	downloader download.Downloader
	seen       map[string]struct{}
	images     []string
	candidates []models.ImageCandidate
	tier       string
	attempts   int
	logger     *slog.Logger
}

func NewImageRun(dl download.Downloader, logger *slog.Logger) *ImageRun {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageRun{
		downloader: dl,
		seen:       make(map[string]struct{}),
		images:     make([]string, 0),
		logger:     logger,
	}
}

func (r *ImageRun) Count() int {
	return len(r.images)
}

func (r *ImageRun) Images() []string {
	return r.images
}

func (r *ImageRun) Seen(rawURL string) bool {
	_, ok := r.seen[rawURL]
	return ok
}

// NextPrefix names the next file after the number of images saved so far.
func (r *ImageRun) NextPrefix() string {
	return fmt.Sprintf("img%d", len(r.images)+1)
}

// Save downloads rawURL unless it was tried before and reports whether a
// file was written.
func (r *ImageRun) Save(ctx context.Context, rawURL, prefix string) bool {
	if r.Seen(rawURL) {
		return false
	}
	r.seen[rawURL] = struct{}{}
	r.attempts++
	r.candidates = append(r.candidates, models.ImageCandidate{URL: rawURL, Tier: r.tier, Prefix: prefix})

	saved, ok := r.downloader.Download(ctx, rawURL, prefix)
	if !ok {
		return false
	}
	r.images = append(r.images, saved)
	return true
}

func (ps *ProductScraper) collectImages(ctx context.Context, p page.Page, rec *models.ProductRecord, dl download.Downloader) {
	run := NewImageRun(dl, ps.logger)
	ps.logger.Debug("starting image extraction")

	for _, tier := range ps.tiers {
		result := models.TierResult{Name: tier.Name()}

		if run.Count() >= ps.minImages || ctx.Err() != nil {
			rec.ImageReport.Tiers = append(rec.ImageReport.Tiers, result)
			ps.recorder.ObserveTier(result.Name, false, 0)
			continue
		}

		result.Attempted = true
		run.tier = result.Name
		saved, attempts := run.Count(), run.attempts
		if err := tier.Collect(ctx, p, run); err != nil {
			result.Error = err.Error()
			ps.logger.Debug("image tier failed", "tier", result.Name, "error", err)
		}
		result.Saved = run.Count() - saved
		result.Found = run.attempts - attempts

		rec.ImageReport.Tiers = append(rec.ImageReport.Tiers, result)
		ps.recorder.ObserveTier(result.Name, true, result.Saved)
		ps.logger.Debug("image tier finished", "tier", result.Name, "saved", result.Saved)
	}

	rec.Images = run.Images()
	rec.ImageReport.Candidates = run.candidates
	ps.logger.Debug("image extraction finished", "total", len(rec.Images))
}

// PopoverTier opens the "more images" popover and saves its thumbnails in
// high resolution.
type PopoverTier struct {
	RenderWait      time.Duration
	SelectorTimeout time.Duration
}

func (t *PopoverTier) Name() string { return "popover" }

func (t *PopoverTier) Collect(ctx context.Context, p page.Page, run *ImageRun) error {
	trigger, err := p.QuerySelector(popoverTriggerSelector)
	if err != nil {
		return err
	}
	if trigger == nil {
		run.logger.Debug("no popover thumbnail found")
		return nil
	}

	if err := p.Click(popoverTriggerSelector); err != nil {
		return fmt.Errorf("failed to open image popover: %w", err)
	}
	p.Wait(t.RenderWait)

	if err := p.WaitForSelector(popoverImageSelector, t.SelectorTimeout); err != nil {
		return fmt.Errorf("image popover did not render: %w", err)
	}

	imgs, err := p.QuerySelectorAll(popoverImageSelector)
	if err != nil {
		return err
	}
	run.logger.Debug("found popover images", "count", len(imgs))

	for i, img := range imgs {
		src, err := img.Attribute("src")
		if err != nil || src == "" || isGIF(src) {
			continue
		}
		hiRes := strings.ReplaceAll(src, popoverThumbMarker, hiResMarker)
		run.Save(ctx, hiRes, fmt.Sprintf("popover%d", i+1))
	}
	return nil
}

// EmbeddedTier saves the high resolution URLs found in data embedded in the
// page markup.
type EmbeddedTier struct {
	Source ImageDataSource
}

func (t *EmbeddedTier) Name() string { return "embedded" }

func (t *EmbeddedTier) Collect(ctx context.Context, p page.Page, run *ImageRun) error {
	urls, err := t.Source.HiResURLs(ctx, p)
	if err != nil {
		return err
	}
	for _, u := range urls {
		if run.Seen(u) || isGIF(u) {
			continue
		}
		run.Save(ctx, u, run.NextPrefix())
	}
	return nil
}

// FallbackTier saves the main image and every thumbnail, rebuilding a high
// resolution URL from the image id where the URL allows it.
type FallbackTier struct {
	HiResHost string
}

func (t *FallbackTier) Name() string { return "fallback" }

func (t *FallbackTier) Collect(ctx context.Context, p page.Page, run *ImageRun) error {
	main, err := p.QuerySelector(mainImageSelector)
	if err != nil {
		return err
	}
	if main != nil {
		src, err := main.Attribute("src")
		if err == nil && src != "" && !run.Seen(src) && !isGIF(src) {
			run.Save(ctx, MainImageHiRes(src), run.NextPrefix())
		}
	}

	thumbs, err := p.QuerySelectorAll(thumbnailSelector)
	if err != nil {
		return err
	}
	for _, thumb := range thumbs {
		src, err := thumb.Attribute("src")
		if err != nil || src == "" {
			continue
		}
		lower := strings.ToLower(src)
		if strings.Contains(lower, "icon") || strings.Contains(lower, "gif") {
			continue
		}
		hiRes := CanonicalImageURL(src, t.HiResHost)
		if run.Seen(hiRes) {
			continue
		}
		run.Save(ctx, hiRes, run.NextPrefix())
	}
	return nil
}

// MainImageHiRes swaps ".SX<n>"/".SY<n>" size markers for ".SL1500".
func MainImageHiRes(src string) string {
	if strings.Contains(src, "._SX") || strings.Contains(src, "._SY") {
		return sizeMarker.ReplaceAllString(src, hiResMarker)
	}
	return src
}

// CanonicalImageURL rebuilds "<host>/images/I/<id>.SL1500.jpg" from a
// ".../I/<id>.<ext>" URL and returns any other URL unchanged.
func CanonicalImageURL(src, host string) string {
	u, err := url.Parse(src)
	if err != nil {
		return src
	}
	parts := strings.Split(u.Path, "/I/")
	if len(parts) < 2 {
		return src
	}
	id, _, _ := strings.Cut(parts[1], ".")
	if id == "" {
		return src
	}
	return fmt.Sprintf("%s/images/I/%s%s.jpg", strings.TrimRight(host, "/"), id, hiResMarker)
}

func isGIF(u string) bool {
	return strings.Contains(strings.ToLower(u), "gif")
}
