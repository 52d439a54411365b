package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/maltedev/amazon-product-scraper/internal/browser"
	"github.com/maltedev/amazon-product-scraper/internal/config"
	"github.com/maltedev/amazon-product-scraper/internal/download"
	"github.com/maltedev/amazon-product-scraper/internal/logger"
	"github.com/maltedev/amazon-product-scraper/internal/metrics"
	"github.com/maltedev/amazon-product-scraper/internal/scraper"
)

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	service *scraper.Service
}

// overrides are flag values that replace configuration, empty means unset.
type overrides struct {
	crawlEngine   string
	detailsEngine string
	outputDir     string
	port          string
}

func newApp(cmd *cobra.Command, o overrides) (*app, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if o.crawlEngine != "" {
		cfg.Browser.CrawlEngine = o.crawlEngine
	}
	if o.detailsEngine != "" {
		cfg.Browser.DetailsEngine = o.detailsEngine
	}
	if o.outputDir != "" {
		cfg.Download.OutputDir = o.outputDir
	}
	if o.port != "" {
		cfg.Server.Port = o.port
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)
	if cfg.File != "" {
		log.Debug("loaded configuration file", "path", cfg.File)
	}

	m := metrics.New(nil)
	svc, err := buildService(cfg, log, m)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: log, metrics: m, service: svc}, nil
}

func buildService(cfg *config.Config, log *slog.Logger, m *metrics.Metrics) (*scraper.Service, error) {
	crawlRenderer, err := newRenderer(cfg, cfg.Browser.CrawlEngine, cfg.Browser.CrawlUserAgent, log)
	if err != nil {
		return nil, err
	}
	detailsRenderer, err := newRenderer(cfg, cfg.Browser.DetailsEngine, cfg.Browser.DetailsUserAgent, log)
	if err != nil {
		return nil, err
	}

	if err := download.EnsureDir(cfg.Download.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	productScraper := scraper.NewProductScraper(scraper.Options{
		MinImages:              cfg.Scraper.MinImages,
		PopoverRenderWait:      cfg.Scraper.PopoverRenderWait,
		PopoverSelectorTimeout: cfg.Scraper.PopoverSelectorTimeout,
		HiResHost:              cfg.Scraper.HiResHost,
		Recorder:               m,
		Logger:                 log,
	})

	return scraper.NewService(scraper.ServiceOptions{
		CrawlRenderer:   crawlRenderer,
		DetailsRenderer: detailsRenderer,
		Scraper:         productScraper,
		Details:         scraper.NewDetailExtractor(log),
		NewDownloader: func(dir string) download.Downloader {
			return download.New(download.Options{
				Dir:       dir,
				Timeout:   cfg.Download.Timeout,
				UserAgent: cfg.Download.UserAgent,
				Logger:    log,
				Recorder:  m,
			})
		},
		OutputDir:     cfg.Download.OutputDir,
		RunScopedDirs: cfg.Download.RunScopedDirs,
		Recorder:      m,
		Logger:        log,
	})
}

func newRenderer(cfg *config.Config, engine, userAgent string, log *slog.Logger) (browser.Renderer, error) {
	e, err := browser.ParseEngine(engine)
	if err != nil {
		return nil, err
	}
	return browser.New(&browser.Options{
		Engine:            e,
		Headless:          cfg.Browser.Headless,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		UserAgent:         userAgent,
		ViewportWidth:     cfg.Browser.ViewportWidth,
		ViewportHeight:    cfg.Browser.ViewportHeight,
		Locale:            cfg.Browser.Locale,
		ExtraHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language": cfg.Browser.AcceptLanguage,
		},
		Logger: log,
	})
}
