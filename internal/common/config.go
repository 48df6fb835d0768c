package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Schedule   string           `toml:"schedule"` // Optional cron expression for recurring runs (empty = run once)
	Scraper    ScraperConfig    `toml:"scraper"`
	Browser    BrowserConfig    `toml:"browser"`
	Enrichment EnrichmentConfig `toml:"enrichment"`
	Storage    StorageConfig    `toml:"storage"`
	Logging    LoggingConfig    `toml:"logging"`
}

// ScraperConfig controls the search and the pagination loop
type ScraperConfig struct {
	BaseURL      string `toml:"base_url" validate:"required,url"`
	Keyword      string `toml:"keyword" validate:"required"`    // Profession / search term
	Location     string `toml:"location" validate:"required"`   // City or area filter
	ProfileRetry int    `toml:"profile_retry" validate:"min=1"` // Attempts per profile before counting it failed
	RetryDelay   string `toml:"retry_delay"`                    // Fixed delay between profile attempts, e.g. "1s"
	MaxPages     int    `toml:"max_pages" validate:"min=0"`     // Stop after N result pages (0 = unlimited)
}

// BrowserConfig controls the Chrome session
type BrowserConfig struct {
	Headless          bool   `toml:"headless"`
	DisableJavaScript bool   `toml:"disable_javascript"`
	UserDataDir       string `toml:"user_data_dir"` // Persistent profile directory (cookies survive restarts)
	ExecPath          string `toml:"exec_path"`     // Chrome binary, empty = auto-detect
	UserAgent         string `toml:"user_agent"`
	StartupAttempts   int    `toml:"startup_attempts" validate:"min=1"`
	PageLoadTimeout   string `toml:"page_load_timeout"`
}

// EnrichmentConfig holds the company registry credentials and endpoints
type EnrichmentConfig struct {
	SirenAPIKey    string  `toml:"siren_api_key"`  // INSEE Sirene integration key
	PapersAPIKey   string  `toml:"papers_api_key"` // Pappers API token
	SireneBaseURL  string  `toml:"sirene_base_url" validate:"required,url"`
	PappersBaseURL string  `toml:"pappers_base_url" validate:"required,url"`
	RequestTimeout string  `toml:"request_timeout"`
	RateLimit      float64 `toml:"rate_limit" validate:"min=0"` // Requests per second across both services (0 = unlimited)
}

// StorageConfig controls where run outputs are written
type StorageConfig struct {
	OutputDir string `toml:"output_dir" validate:"required"` // CSV, JSONL and JSON outputs
	DoneDir   string `toml:"done_dir" validate:"required"`   // Resume files
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
	Dir    string   `toml:"dir"`    // Directory for the log file
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Scraper: ScraperConfig{
			BaseURL:      "https://annuaire.sante.fr/",
			Keyword:      "Médecin",
			Location:     "bordeaux",
			ProfileRetry: 2,
			RetryDelay:   "1s",
		},
		Browser: BrowserConfig{
			Headless:        false,
			UserDataDir:     "./chrome-dir",
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36",
			StartupAttempts: 3,
			PageLoadTimeout: "30s",
		},
		Enrichment: EnrichmentConfig{
			SireneBaseURL:  "https://api.insee.fr/api-sirene/3.11",
			PappersBaseURL: "https://api.pappers.fr",
			RequestTimeout: "10s",
			RateLimit:      0.5, // INSEE allows 30 requests per minute
		},
		Storage: StorageConfig{
			OutputDir: "scraped_data",
			DoneDir:   "done",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
			Dir:    "logs",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env
// CLI flags are applied afterwards by the caller with ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Scraper configuration
	if keyword := os.Getenv("SCRAPER_KEYWORD"); keyword != "" {
		config.Scraper.Keyword = keyword
	}
	if location := os.Getenv("SCRAPER_LOCATION"); location != "" {
		config.Scraper.Location = location
	}
	if retry := os.Getenv("SCRAPER_PROFILE_RETRY"); retry != "" {
		if r, err := strconv.Atoi(retry); err == nil {
			config.Scraper.ProfileRetry = r
		}
	}
	if maxPages := os.Getenv("SCRAPER_MAX_PAGES"); maxPages != "" {
		if mp, err := strconv.Atoi(maxPages); err == nil {
			config.Scraper.MaxPages = mp
		}
	}

	// Browser configuration
	if headless := os.Getenv("SCRAPER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if disableJS := os.Getenv("SCRAPER_DISABLE_JS"); disableJS != "" {
		if d, err := strconv.ParseBool(disableJS); err == nil {
			config.Browser.DisableJavaScript = d
		}
	}
	if execPath := os.Getenv("CHROME_PATH"); execPath != "" {
		config.Browser.ExecPath = execPath
	}

	// Enrichment credentials
	if key := os.Getenv("SIREN_API_KEY"); key != "" {
		config.Enrichment.SirenAPIKey = key
	}
	if key := os.Getenv("PAPERS_API_KEY"); key != "" {
		config.Enrichment.PapersAPIKey = key
	}

	// Storage configuration
	if outputDir := os.Getenv("ANNUAIRE_OUTPUT_DIR"); outputDir != "" {
		config.Storage.OutputDir = outputDir
	}
	if doneDir := os.Getenv("ANNUAIRE_DONE_DIR"); doneDir != "" {
		config.Storage.DoneDir = doneDir
	}

	// Logging configuration
	if level := os.Getenv("ANNUAIRE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("ANNUAIRE_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if schedule := os.Getenv("ANNUAIRE_SCHEDULE"); schedule != "" {
		config.Schedule = schedule
	}
}

// FlagOverrides carries command-line values. Nil pointers mean the flag was
// not given and the configured value is kept.
type FlagOverrides struct {
	Keyword      *string
	Location     *string
	Headless     *bool
	DisableJS    *bool
	ProfileRetry *int
	MaxPages     *int
	Schedule     *string
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, flags FlagOverrides) {
	// Command-line flags have highest priority
	if flags.Keyword != nil {
		config.Scraper.Keyword = *flags.Keyword
	}
	if flags.Location != nil {
		config.Scraper.Location = *flags.Location
	}
	if flags.Headless != nil {
		config.Browser.Headless = *flags.Headless
	}
	if flags.DisableJS != nil {
		config.Browser.DisableJavaScript = *flags.DisableJS
	}
	if flags.ProfileRetry != nil {
		config.Scraper.ProfileRetry = *flags.ProfileRetry
	}
	if flags.MaxPages != nil {
		config.Scraper.MaxPages = *flags.MaxPages
	}
	if flags.Schedule != nil {
		config.Schedule = *flags.Schedule
	}
}

// Validate checks field constraints and the optional schedule expression
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Schedule != "" {
		if err := ValidateSchedule(c.Schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
		}
	}
	return nil
}

// RetryDelayDuration returns the delay between profile attempts (default 1s)
func (c *ScraperConfig) RetryDelayDuration() time.Duration {
	return parseDurationOr(c.RetryDelay, time.Second)
}

// PageLoadTimeoutDuration returns the page-load wait bound (default 30s)
func (c *BrowserConfig) PageLoadTimeoutDuration() time.Duration {
	return parseDurationOr(c.PageLoadTimeout, 30*time.Second)
}

// RequestTimeoutDuration returns the per-request HTTP timeout (default 10s)
func (c *EnrichmentConfig) RequestTimeoutDuration() time.Duration {
	return parseDurationOr(c.RequestTimeout, 10*time.Second)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ValidateSchedule validates a cron schedule expression and ensures minimum 5-minute interval
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}

	if strings.HasPrefix(minuteField, "*/") {
		interval, err := strconv.Atoi(strings.TrimPrefix(minuteField, "*/"))
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}
