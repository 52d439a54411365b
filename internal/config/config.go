package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/maltedev/amazon-product-scraper/internal/browser"
)

const (
	AppName           = "product-scraper"
	DefaultConfigFile = ".product-scraper.yaml"
)

var ErrConfigNotFound = errors.New("configuration file not found")

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Browser  BrowserConfig  `yaml:"browser"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Download DownloadConfig `yaml:"download"`
	Logging  LoggingConfig  `yaml:"logging"`

	// File is the configuration file that was loaded, if any.
	File string `yaml:"-"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// RequestTimeout bounds one API call, browser run included.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type BrowserConfig struct {
	CrawlEngine       string        `yaml:"crawl_engine"`
	DetailsEngine     string        `yaml:"details_engine"`
	Headless          bool          `yaml:"headless"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ViewportWidth     int           `yaml:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height"`
	Locale            string        `yaml:"locale"`
	AcceptLanguage    string        `yaml:"accept_language"`
	CrawlUserAgent    string        `yaml:"crawl_user_agent"`
	DetailsUserAgent  string        `yaml:"details_user_agent"`
}

type ScraperConfig struct {
	MinImages              int           `yaml:"min_images"`
	PopoverRenderWait      time.Duration `yaml:"popover_render_wait"`
	PopoverSelectorTimeout time.Duration `yaml:"popover_selector_timeout"`
	HiResHost              string        `yaml:"hires_host"`
}

type DownloadConfig struct {
	OutputDir     string        `yaml:"output_dir"`
	RunScopedDirs bool          `yaml:"run_scoped_dirs"`
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  3 * time.Minute,
		},
		Browser: BrowserConfig{
			CrawlEngine:       string(browser.EngineChromium),
			DetailsEngine:     string(browser.EngineFirefox),
			Headless:          true,
			NavigationTimeout: 60 * time.Second,
			ViewportWidth:     1920,
			ViewportHeight:    1080,
			Locale:            "en-US",
			AcceptLanguage:    "en-US,en;q=0.9",
			CrawlUserAgent:    browser.DesktopUserAgent,
			DetailsUserAgent:  browser.BasicUserAgent,
		},
		Scraper: ScraperConfig{
			MinImages:              3,
			PopoverRenderWait:      2 * time.Second,
			PopoverSelectorTimeout: 5 * time.Second,
			HiResHost:              "https://m.media-amazon.com",
		},
		Download: DownloadConfig{
			OutputDir:     filepath.Join("temp", "temp2"),
			RunScopedDirs: true,
			Timeout:       10 * time.Second,
			UserAgent:     "Mozilla/5.0",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, then the configuration file
// (see FindConfigFile), then environment variables. An explicit path that
// does not exist is an error; a missing default file is not.
func Load(path string) (*Config, error) {
	cfg := Default()

	file := FindConfigFile(path)
	switch {
	case file != "":
		if err := LoadFile(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", file, err)
		}
		cfg.File = file
	case path != "":
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes a YAML file over cfg. Keys missing from the file keep
// their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigNotFound
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// FindConfigFile returns the first existing file of: configPath, the
// default file in the working directory, config.yaml in the XDG config
// directory. It returns "" when none exists.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := []string{DefaultConfigFile, filepath.Join(ConfigDir(), "config.yaml")}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnvOrDefault("SERVER_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnvOrDefault("SERVER_HOST", cfg.Server.Host)
	cfg.Server.ReadTimeout = getDurationOrDefault("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getDurationOrDefault("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.RequestTimeout = getDurationOrDefault("SERVER_REQUEST_TIMEOUT", cfg.Server.RequestTimeout)

	cfg.Browser.CrawlEngine = getEnvOrDefault("BROWSER_CRAWL_ENGINE", cfg.Browser.CrawlEngine)
	cfg.Browser.DetailsEngine = getEnvOrDefault("BROWSER_DETAILS_ENGINE", cfg.Browser.DetailsEngine)
	cfg.Browser.Headless = getBoolOrDefault("BROWSER_HEADLESS", cfg.Browser.Headless)
	cfg.Browser.NavigationTimeout = getDurationOrDefault("BROWSER_TIMEOUT", cfg.Browser.NavigationTimeout)
	cfg.Browser.ViewportWidth = getIntOrDefault("BROWSER_VIEWPORT_WIDTH", cfg.Browser.ViewportWidth)
	cfg.Browser.ViewportHeight = getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", cfg.Browser.ViewportHeight)
	cfg.Browser.Locale = getEnvOrDefault("BROWSER_LOCALE", cfg.Browser.Locale)
	cfg.Browser.AcceptLanguage = getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", cfg.Browser.AcceptLanguage)
	cfg.Browser.CrawlUserAgent = getEnvOrDefault("BROWSER_CRAWL_USER_AGENT", cfg.Browser.CrawlUserAgent)
	cfg.Browser.DetailsUserAgent = getEnvOrDefault("BROWSER_DETAILS_USER_AGENT", cfg.Browser.DetailsUserAgent)

	cfg.Scraper.MinImages = getIntOrDefault("SCRAPER_MIN_IMAGES", cfg.Scraper.MinImages)
	cfg.Scraper.PopoverRenderWait = getDurationOrDefault("SCRAPER_POPOVER_WAIT", cfg.Scraper.PopoverRenderWait)
	cfg.Scraper.PopoverSelectorTimeout = getDurationOrDefault("SCRAPER_POPOVER_TIMEOUT", cfg.Scraper.PopoverSelectorTimeout)
	cfg.Scraper.HiResHost = getEnvOrDefault("SCRAPER_HIRES_HOST", cfg.Scraper.HiResHost)

	cfg.Download.OutputDir = getEnvOrDefault("DOWNLOAD_DIR", cfg.Download.OutputDir)
	cfg.Download.RunScopedDirs = getBoolOrDefault("DOWNLOAD_RUN_SCOPED", cfg.Download.RunScopedDirs)
	cfg.Download.Timeout = getDurationOrDefault("DOWNLOAD_TIMEOUT", cfg.Download.Timeout)
	cfg.Download.UserAgent = getEnvOrDefault("DOWNLOAD_USER_AGENT", cfg.Download.UserAgent)

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvOrDefault("LOG_FORMAT", cfg.Logging.Format)
}

func (c *Config) Validate() error {
	if _, err := browser.ParseEngine(c.Browser.CrawlEngine); err != nil {
		return fmt.Errorf("BROWSER_CRAWL_ENGINE: %w", err)
	}
	if _, err := browser.ParseEngine(c.Browser.DetailsEngine); err != nil {
		return fmt.Errorf("BROWSER_DETAILS_ENGINE: %w", err)
	}

	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %q", c.Server.Port)
	}

	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("BROWSER_TIMEOUT must be positive")
	}

	if c.Download.Timeout <= 0 {
		return fmt.Errorf("DOWNLOAD_TIMEOUT must be positive")
	}

	if c.Scraper.MinImages < 1 {
		return fmt.Errorf("SCRAPER_MIN_IMAGES must be at least 1")
	}

	if c.Download.OutputDir == "" {
		return fmt.Errorf("DOWNLOAD_DIR must not be empty")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// Addr is the listen address of the HTTP API.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
