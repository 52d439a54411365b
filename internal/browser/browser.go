package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/maltedev/amazon-product-scraper/internal/page"
	"github.com/playwright-community/playwright-go"
)

var (
	ErrUnsupportedEngine = errors.New("unsupported browser engine")
	ErrNavigation        = errors.New("navigation failed")
)

type Engine string

const (
	EngineChromium Engine = "chromium"
	EngineFirefox  Engine = "firefox"
	EngineWebKit   Engine = "webkit"
	EngineChromedp Engine = "chromedp"
	EngineStatic   Engine = "static"
)

const (
	DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	BasicUserAgent   = "Mozilla/5.0"
)

func ParseEngine(s string) (Engine, error) {
	switch e := Engine(strings.ToLower(strings.TrimSpace(s))); e {
	case EngineChromium, EngineFirefox, EngineWebKit, EngineChromedp, EngineStatic:
		return e, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEngine, s)
	}
}

// Renderer opens a page for the duration of fn and always releases the
// browser afterwards, whether navigation or fn failed.
type Renderer interface {
	Visit(ctx context.Context, url string, fn func(page.Page) error) error
}

type Options struct {
	Engine            Engine
	Headless          bool
	NavigationTimeout time.Duration
	UserAgent         string
	ViewportWidth     int
	ViewportHeight    int
	Locale            string
	ExtraHeaders      map[string]string
	// HTTPClient is used by the static engine only.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func DefaultOptions() *Options {
	return &Options{
		Engine:            EngineChromium,
		Headless:          true,
		NavigationTimeout: 60 * time.Second,
		UserAgent:         DesktopUserAgent,
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		Locale:            "en-US",
		ExtraHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
	}
}

// New returns the renderer for opts.Engine. Missing option values fall back
// to DefaultOptions.
func New(opts *Options) (Renderer, error) {
	opts = withDefaults(opts)

	switch opts.Engine {
	case EngineChromium, EngineFirefox, EngineWebKit:
		return &playwrightRenderer{opts: opts, logger: opts.Logger}, nil
	case EngineChromedp:
		return &chromedpRenderer{opts: opts, logger: opts.Logger}, nil
	case EngineStatic:
		return newStaticRenderer(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngine, opts.Engine)
	}
}

func withDefaults(opts *Options) *Options {
	def := DefaultOptions()
	if opts == nil {
		opts = def
	}
	out := *opts
	if out.Engine == "" {
		out.Engine = def.Engine
	}
	if out.NavigationTimeout <= 0 {
		out.NavigationTimeout = def.NavigationTimeout
	}
	if out.UserAgent == "" {
		out.UserAgent = def.UserAgent
	}
	if out.ViewportWidth <= 0 || out.ViewportHeight <= 0 {
		out.ViewportWidth, out.ViewportHeight = def.ViewportWidth, def.ViewportHeight
	}
	if out.Locale == "" {
		out.Locale = def.Locale
	}
	if out.ExtraHeaders == nil {
		out.ExtraHeaders = def.ExtraHeaders
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	out.Logger = out.Logger.With("component", "browser", "engine", string(out.Engine))
	return &out
}

// Browser is one playwright session: driver, browser process and context.
type Browser struct {
	pw        *playwright.Playwright
	browser   playwright.Browser
	context   playwright.BrowserContext
	logger    *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

func Launch(opts *Options) (*Browser, error) {
	opts = withDefaults(opts)

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	}

	var browserType playwright.BrowserType
	switch opts.Engine {
	case EngineChromium:
		browserType = pw.Chromium
		launchOpts.Args = []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			fmt.Sprintf("--window-size=%d,%d", opts.ViewportWidth, opts.ViewportHeight),
		}
	case EngineFirefox:
		browserType = pw.Firefox
	case EngineWebKit:
		browserType = pw.WebKit
	default:
		pw.Stop()
		return nil, fmt.Errorf("%w: %q is not a playwright engine", ErrUnsupportedEngine, opts.Engine)
	}

	browser, err := browserType.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: opts.ExtraHeaders,
	}

	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: browser,
		context: bctx,
		logger:  opts.Logger,
	}, nil
}

func (b *Browser) NewPage(timeout time.Duration) (playwright.Page, error) {
	p, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	p.SetDefaultTimeout(float64(timeout.Milliseconds()))
	p.SetDefaultNavigationTimeout(float64(timeout.Milliseconds()))

	return p, nil
}

// Close is safe to call more than once.
func (b *Browser) Close() error {
	b.closeOnce.Do(func() {
		var errs []error

		if b.context != nil {
			if err := b.context.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close context: %w", err))
			}
		}

		if b.browser != nil {
			if err := b.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
			}
		}

		if b.pw != nil {
			if err := b.pw.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
			}
		}

		if len(errs) > 0 {
			b.closeErr = fmt.Errorf("errors during close: %w", errors.Join(errs...))
		}
	})
	return b.closeErr
}

type playwrightRenderer struct {
	opts   *Options
	logger *slog.Logger
}

func (r *playwrightRenderer) Visit(ctx context.Context, url string, fn func(page.Page) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := Launch(r.opts)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { b.Close() })
	defer func() {
		stop()
		if err := b.Close(); err != nil {
			r.logger.Warn("failed to close browser", "error", err)
		}
	}()

	p, err := b.NewPage(r.opts.NavigationTimeout)
	if err != nil {
		return err
	}

	r.logger.Debug("navigating", "url", url)
	if _, err := p.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(r.opts.NavigationTimeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
	}

	return fn(&playwrightPage{page: p})
}
