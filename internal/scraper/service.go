package scraper

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/amazon-product-scraper/internal/browser"
	"github.com/maltedev/amazon-product-scraper/internal/download"
	"github.com/maltedev/amazon-product-scraper/internal/models"
	"github.com/maltedev/amazon-product-scraper/internal/page"
)

// DownloaderFactory returns a downloader that writes into dir.
type DownloaderFactory func(dir string) download.Downloader

type ServiceOptions struct {
	CrawlRenderer   browser.Renderer
	DetailsRenderer browser.Renderer
	Scraper         *ProductScraper
	Details         *DetailExtractor
	NewDownloader   DownloaderFactory
	OutputDir       string
	// RunScopedDirs puts each crawl's images under OutputDir/<run id>.
	RunScopedDirs bool
	Recorder      Recorder
	Logger        *slog.Logger
}

// Service runs single-page crawls. It holds no per-run state and is safe
// for concurrent use as long as its renderers are.
type Service struct {
	crawlRenderer   browser.Renderer
	detailsRenderer browser.Renderer
	scraper         *ProductScraper
	details         *DetailExtractor
	newDownloader   DownloaderFactory
	outputDir       string
	runScoped       bool
	recorder        Recorder
	logger          *slog.Logger
}

func NewService(opts ServiceOptions) (*Service, error) {
	if opts.CrawlRenderer == nil || opts.DetailsRenderer == nil {
		return nil, errors.New("crawl and details renderers are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Scraper == nil {
		o := DefaultOptions()
		o.Recorder = opts.Recorder
		o.Logger = opts.Logger
		opts.Scraper = NewProductScraper(o)
	}
	if opts.Details == nil {
		opts.Details = NewDetailExtractor(opts.Logger)
	}
	if opts.NewDownloader == nil {
		logger := opts.Logger
		opts.NewDownloader = func(dir string) download.Downloader {
			return download.New(download.Options{Dir: dir, Logger: logger})
		}
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "images"
	}

	return &Service{
		crawlRenderer:   opts.CrawlRenderer,
		detailsRenderer: opts.DetailsRenderer,
		scraper:         opts.Scraper,
		details:         opts.Details,
		newDownloader:   opts.NewDownloader,
		outputDir:       opts.OutputDir,
		runScoped:       opts.RunScopedDirs,
		recorder:        opts.Recorder,
		logger:          opts.Logger.With("component", "service"),
	}, nil
}

// Crawl renders url and extracts a product record from it. A page that
// cannot be opened yields a record whose fields are all not_attempted and
// whose Err explains why.
func (s *Service) Crawl(ctx context.Context, url string) *models.ProductRecord {
	start := time.Now()
	rec := models.NewProductRecord(url)
	rec.RunID = uuid.NewString()
	logger := s.logger.With("run_id", rec.RunID, "url", url)

	dir := s.outputDir
	if s.runScoped {
		dir = filepath.Join(dir, rec.RunID)
	}

	logger.Info("crawling product page")
	err := s.crawlRenderer.Visit(ctx, url, func(p page.Page) error {
		if err := download.EnsureDir(dir); err != nil {
			logger.Warn("failed to create image directory", "dir", dir, "error", err)
		}
		s.scraper.Scrape(ctx, p, rec, s.newDownloader(dir))
		return nil
	})
	if err != nil {
		rec.Err = err
		logger.Error("crawl failed", "error", err)
	} else {
		logger.Info("crawl finished",
			"title_status", rec.Title.Status,
			"images", len(rec.Images),
			"extra_fields", len(rec.Extra),
		)
	}

	s.recorder.ObserveCrawl("crawl", err == nil, time.Since(start))
	return rec
}

// ProductDirectDetails renders url and returns every labelled detail found
// in its detail sections. Failures yield an empty map.
func (s *Service) ProductDirectDetails(ctx context.Context, url string) models.DetailMap {
	start := time.Now()
	details := make(models.DetailMap)
	logger := s.logger.With("url", url)

	logger.Info("extracting product details")
	err := s.detailsRenderer.Visit(ctx, url, func(p page.Page) error {
		details = s.details.Extract(p)
		return nil
	})
	if err != nil {
		logger.Error("failed to extract product details", "error", err)
	} else {
		logger.Info("details extracted", "total", len(details))
	}

	s.recorder.ObserveCrawl("details", err == nil, time.Since(start))
	return details
}
