// Package download fetches product images to local files.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"time"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "Mozilla/5.0"
	MaxNameLength    = 100
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Downloader saves a single image and reports the local path. Failures are
// not errors for the caller: ok is false and nothing was written.
type Downloader interface {
	Download(ctx context.Context, rawURL, prefix string) (string, bool)
}

// Recorder observes download outcomes; metrics.Metrics satisfies it.
type Recorder interface {
	ObserveDownload(ok bool)
}

type Options struct {
	Dir       string
	Timeout   time.Duration
	UserAgent string
	Client    *http.Client
	Logger    *slog.Logger
	Recorder  Recorder
}

type HTTPDownloader struct {
	dir       string
	client    *http.Client
	userAgent string
	logger    *slog.Logger
	recorder  Recorder
}

func New(opts Options) *HTTPDownloader {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &HTTPDownloader{
		dir:       opts.Dir,
		client:    opts.Client,
		userAgent: opts.UserAgent,
		logger:    opts.Logger.With("component", "downloader"),
		recorder:  opts.Recorder,
	}
}

func (d *HTTPDownloader) Dir() string {
	return d.dir
}

func (d *HTTPDownloader) Download(ctx context.Context, rawURL, prefix string) (string, bool) {
	saved, err := d.fetch(ctx, rawURL, prefix)
	if d.recorder != nil {
		d.recorder.ObserveDownload(err == nil)
	}
	if err != nil {
		d.logger.Warn("failed to download image", "url", rawURL, "error", err)
		return "", false
	}
	d.logger.Debug("downloaded image", "url", rawURL, "path", saved)
	return saved, true
}

func (d *HTTPDownloader) fetch(ctx context.Context, rawURL, prefix string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	name, err := FileName(rawURL, prefix)
	if err != nil {
		return "", err
	}
	target := filepath.Join(d.dir, name)

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", target, err)
	}
	return target, nil
}

// FileName derives "<prefix>_<name><ext>" from the last path segment of
// rawURL, with name reduced to [A-Za-z0-9_-].
func FileName(rawURL, prefix string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid image URL: %w", err)
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		base = ""
	}
	ext := path.Ext(base)
	name := base[:len(base)-len(ext)]
	if ext != "" {
		ext = "." + Sanitize(ext[1:])
	}
	return fmt.Sprintf("%s_%s%s", prefix, Sanitize(name), ext), nil
}

// Sanitize replaces every character outside [A-Za-z0-9_-] with '_' and keeps
// at most MaxNameLength characters.
func Sanitize(name string) string {
	s := unsafeChars.ReplaceAllString(name, "_")
	if len(s) > MaxNameLength {
		s = s[:MaxNameLength]
	}
	return s
}

// EnsureDir creates dir and its parents; existing directories are fine.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return nil
}
