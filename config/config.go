package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/pbiscrape/models"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no config file is given on the command line.
const DefaultPath = "config/config.yaml"

// Config holds all application configuration.
type Config struct {
	// PowerBIURL is the dashboard page to open. Required.
	PowerBIURL string `yaml:"powerbi_url"`

	// TableXPath locates the pivot-table widget. Required.
	TableXPath string `yaml:"table_xpath"`

	// ColumnNames are the output column labels, in order. Required.
	ColumnNames []string `yaml:"column_names"`

	Browser BrowserConfig `yaml:"browser"`
	Scraper ScraperConfig `yaml:"scraper"`
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool `yaml:"headless"` // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `yaml:"no_sandbox"`

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `yaml:"browser_bin"`

	// CDPURL connects to an already running browser instead of launching one.
	CDPURL string `yaml:"cdp_url"`

	// Stealth masks navigator.webdriver and friends before navigation.
	Stealth bool `yaml:"stealth"`

	// BlockedResources lists resource types to block while the dashboard
	// loads. Stylesheets are never blocked since overflow detection needs
	// computed styles.
	// default: ["Image", "Font", "Media"]
	BlockedResources []string `yaml:"blocked_resources"`

	// BlockedHosts lists hosts (and their subdomains) whose requests fail
	// immediately, e.g. telemetry endpoints.
	BlockedHosts []string `yaml:"blocked_hosts"`
}

// ScraperConfig controls scraping behavior.
type ScraperConfig struct {
	// WaitTimeout bounds every wait for the table element.
	WaitTimeout time.Duration `yaml:"wait_timeout"` // default: 10s

	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration `yaml:"navigation_timeout"` // default: 30s

	// RowOffset is the first row index to extract. Index 1 is the header row.
	RowOffset int `yaml:"row_offset"` // default: 2

	// MaxRows caps the number of extracted rows; 0 means no cap.
	MaxRows int `yaml:"max_rows"`

	// MaxAncestorDepth bounds the scrollable-ancestor walk.
	MaxAncestorDepth int `yaml:"max_ancestor_depth"` // default: 256

	// ScrollAmount is the pixel distance per paging step; 0 uses the
	// container's client height.
	ScrollAmount int `yaml:"scroll_amount"`

	// MaxScrollSteps bounds paging while looking for a single row.
	MaxScrollSteps int `yaml:"max_scroll_steps"` // default: 50

	// ScrollInterval is the minimum delay between two paging steps.
	ScrollInterval time.Duration `yaml:"scroll_interval"` // default: 250ms
}

// OutputConfig controls where CSV files are written.
type OutputConfig struct {
	Dir      string `yaml:"dir"`      // default: "data/processed"
	Filename string `yaml:"filename"` // default: "table.csv"
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "text"

	// File, when set, sends log output to a rotating file instead of stderr.
	File string `yaml:"file"`
}

// Default returns a configuration with every optional field set.
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:         true,
			BlockedResources: []string{"Image", "Font", "Media"},
		},
		Scraper: ScraperConfig{
			WaitTimeout:       10 * time.Second,
			NavigationTimeout: 30 * time.Second,
			RowOffset:         2,
			MaxAncestorDepth:  256,
			MaxScrollSteps:    50,
			ScrollInterval:    250 * time.Millisecond,
		},
		Output: OutputConfig{
			Dir:      "data/processed",
			Filename: "table.csv",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path on top of Default, applies environment
// overrides and validates the result. A missing file is not an error as long
// as the environment supplies the required keys.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, models.NewScrapeError(models.ErrCodeConfig, "failed to parse "+path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Environment only.
	default:
		return nil, models.NewScrapeError(models.ErrCodeConfig, "failed to read "+path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required keys and value ranges.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.PowerBIURL) == "" {
		missing = append(missing, "powerbi_url")
	}
	if strings.TrimSpace(c.TableXPath) == "" {
		missing = append(missing, "table_xpath")
	}
	if len(c.ColumnNames) == 0 {
		missing = append(missing, "column_names")
	}
	if len(missing) > 0 {
		return models.NewScrapeError(
			models.ErrCodeConfig,
			"missing required keys: "+strings.Join(missing, ", "),
			nil,
		)
	}

	if c.Scraper.RowOffset < 1 {
		return models.NewScrapeError(models.ErrCodeConfig,
			fmt.Sprintf("scraper.row_offset must be >= 1, got %d", c.Scraper.RowOffset), nil)
	}
	if c.Scraper.MaxAncestorDepth < 1 {
		return models.NewScrapeError(models.ErrCodeConfig,
			fmt.Sprintf("scraper.max_ancestor_depth must be >= 1, got %d", c.Scraper.MaxAncestorDepth), nil)
	}
	if c.Scraper.WaitTimeout <= 0 || c.Scraper.NavigationTimeout <= 0 {
		return models.NewScrapeError(models.ErrCodeConfig, "scraper timeouts must be positive", nil)
	}
	if c.Scraper.MaxRows < 0 || c.Scraper.MaxScrollSteps < 0 || c.Scraper.ScrollAmount < 0 {
		return models.NewScrapeError(models.ErrCodeConfig, "scraper limits must not be negative", nil)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.PowerBIURL = envOr("PBISCRAPE_URL", c.PowerBIURL)
	c.TableXPath = envOr("PBISCRAPE_TABLE_XPATH", c.TableXPath)
	c.ColumnNames = envSliceOr("PBISCRAPE_COLUMNS", c.ColumnNames)

	c.Browser.Headless = envBoolOr("PBISCRAPE_HEADLESS", c.Browser.Headless)
	c.Browser.NoSandbox = envBoolOr("PBISCRAPE_NO_SANDBOX", c.Browser.NoSandbox)
	c.Browser.BrowserBin = envOr("PBISCRAPE_BROWSER_BIN", c.Browser.BrowserBin)
	c.Browser.CDPURL = envOr("PBISCRAPE_CDP_URL", c.Browser.CDPURL)
	c.Browser.Stealth = envBoolOr("PBISCRAPE_STEALTH", c.Browser.Stealth)
	c.Browser.BlockedResources = envSliceOr("PBISCRAPE_BLOCKED_RESOURCES", c.Browser.BlockedResources)
	c.Browser.BlockedHosts = envSliceOr("PBISCRAPE_BLOCKED_HOSTS", c.Browser.BlockedHosts)

	c.Scraper.WaitTimeout = envDurationOr("PBISCRAPE_WAIT_TIMEOUT", c.Scraper.WaitTimeout)
	c.Scraper.NavigationTimeout = envDurationOr("PBISCRAPE_NAV_TIMEOUT", c.Scraper.NavigationTimeout)
	c.Scraper.RowOffset = envIntOr("PBISCRAPE_ROW_OFFSET", c.Scraper.RowOffset)
	c.Scraper.MaxRows = envIntOr("PBISCRAPE_MAX_ROWS", c.Scraper.MaxRows)

	c.Output.Dir = envOr("PBISCRAPE_OUTPUT_DIR", c.Output.Dir)

	c.Log.Level = envOr("PBISCRAPE_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("PBISCRAPE_LOG_FORMAT", c.Log.Format)
	c.Log.File = envOr("PBISCRAPE_LOG_FILE", c.Log.File)
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
