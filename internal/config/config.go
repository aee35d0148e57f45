// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Harvest() HarvestConfig
	Fetch() FetchConfig
	Session() SessionConfig
	Storage() StorageConfig
	Database() DatabaseConfig
	Server() ServerConfig

	// Browser Setters
	SetBrowserHeadless(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	HarvestCfg  HarvestConfig  `mapstructure:"harvest" yaml:"harvest"`
	FetchCfg    FetchConfig    `mapstructure:"fetch" yaml:"fetch"`
	SessionCfg  SessionConfig  `mapstructure:"session" yaml:"session"`
	StorageCfg  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	DatabaseCfg DatabaseConfig `mapstructure:"database" yaml:"database"`
	ServerCfg   ServerConfig   `mapstructure:"server" yaml:"server"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }
func (c *Config) Harvest() HarvestConfig   { return c.HarvestCfg }
func (c *Config) Fetch() FetchConfig       { return c.FetchCfg }
func (c *Config) Session() SessionConfig   { return c.SessionCfg }
func (c *Config) Storage() StorageConfig   { return c.StorageCfg }
func (c *Config) Database() DatabaseConfig { return c.DatabaseCfg }
func (c *Config) Server() ServerConfig     { return c.ServerCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool) { c.BrowserCfg.Headless = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the automated Chrome instance.
type BrowserConfig struct {
	Headless      bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath      string        `mapstructure:"exec_path" yaml:"exec_path"`
	Args          []string      `mapstructure:"args" yaml:"args"`
	UserDataDir   string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	AuthStatePath string        `mapstructure:"auth_state_path" yaml:"auth_state_path"`
	CookieDomain  string        `mapstructure:"cookie_domain" yaml:"cookie_domain"`
	LaunchTimeout time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
}

// ScrollConfig tunes one scroll-harvest mode.
type ScrollConfig struct {
	Pause          time.Duration `mapstructure:"pause" yaml:"pause"`
	JitterMin      time.Duration `mapstructure:"jitter_min" yaml:"jitter_min"`
	JitterMax      time.Duration `mapstructure:"jitter_max" yaml:"jitter_max"`
	ScrollMin      int           `mapstructure:"scroll_min" yaml:"scroll_min"`
	ScrollMax      int           `mapstructure:"scroll_max" yaml:"scroll_max"`
	StaleThreshold int           `mapstructure:"stale_threshold" yaml:"stale_threshold"`
}

// HarvestConfig holds the pacing for listing and comment harvests and for batch jobs.
type HarvestConfig struct {
	Listing         ScrollConfig  `mapstructure:"listing" yaml:"listing"`
	Comments        ScrollConfig  `mapstructure:"comments" yaml:"comments"`
	CardWait        time.Duration `mapstructure:"card_wait" yaml:"card_wait"`
	BatchDelayMin   time.Duration `mapstructure:"batch_delay_min" yaml:"batch_delay_min"`
	BatchDelayMax   time.Duration `mapstructure:"batch_delay_max" yaml:"batch_delay_max"`
	KeywordDelayMin time.Duration `mapstructure:"keyword_delay_min" yaml:"keyword_delay_min"`
	KeywordDelayMax time.Duration `mapstructure:"keyword_delay_max" yaml:"keyword_delay_max"`
}

// FetchConfig configures single note detail fetches.
type FetchConfig struct {
	PageLoadTimeout time.Duration `mapstructure:"page_load_timeout" yaml:"page_load_timeout"`
	ReadyWait       time.Duration `mapstructure:"ready_wait" yaml:"ready_wait"`
	RenderWait      time.Duration `mapstructure:"render_wait" yaml:"render_wait"`
	MaxRetries      int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
	CommentWait     time.Duration `mapstructure:"comment_wait" yaml:"comment_wait"`
}

// SessionConfig holds per-operation wall clock budgets and session probes.
type SessionConfig struct {
	SearchTimeout   time.Duration `mapstructure:"search_timeout" yaml:"search_timeout"`
	DetailTimeout   time.Duration `mapstructure:"detail_timeout" yaml:"detail_timeout"`
	CrawlTimeout    time.Duration `mapstructure:"crawl_timeout" yaml:"crawl_timeout"`
	DefaultTimeout  time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	MaxNotes        int           `mapstructure:"max_notes" yaml:"max_notes"`
	LoginProbeWait  time.Duration `mapstructure:"login_probe_wait" yaml:"login_probe_wait"`
	LoginWait       time.Duration `mapstructure:"login_wait" yaml:"login_wait"`
	LivenessTimeout time.Duration `mapstructure:"liveness_timeout" yaml:"liveness_timeout"`
}

// StorageConfig controls where crawl results are written.
type StorageConfig struct {
	OutputDir   string `mapstructure:"output_dir" yaml:"output_dir"`
	SaveRawJSON bool   `mapstructure:"save_raw_json" yaml:"save_raw_json"`
	SaveCSV     bool   `mapstructure:"save_csv" yaml:"save_csv"`
}

// DatabaseConfig holds the database connection details. An empty URL disables
// the postgres mirror.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"-"`
}

// ServerConfig configures the tool server.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// NewDefaultConfig creates a configuration populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults are static, so an unmarshal failure here is a programming error.
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "notecrawl")
	v.SetDefault("logger.log_file", "logs/notecrawl.log")
	v.SetDefault("logger.max_size", 5)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", false)

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.auth_state_path", "auth_state/cookies.json")
	v.SetDefault("browser.cookie_domain", "xiaohongshu.com")
	v.SetDefault("browser.launch_timeout", "60s")
	v.SetDefault("browser.probe_timeout", "10s")

	// -- Harvest --
	v.SetDefault("harvest.listing.pause", "1500ms")
	v.SetDefault("harvest.listing.jitter_min", "1s")
	v.SetDefault("harvest.listing.jitter_max", "3s")
	v.SetDefault("harvest.listing.scroll_min", 300)
	v.SetDefault("harvest.listing.scroll_max", 600)
	v.SetDefault("harvest.listing.stale_threshold", 2)
	v.SetDefault("harvest.comments.pause", "1500ms")
	v.SetDefault("harvest.comments.jitter_min", "1s")
	v.SetDefault("harvest.comments.jitter_max", "2s")
	v.SetDefault("harvest.comments.scroll_min", 200)
	v.SetDefault("harvest.comments.scroll_max", 400)
	v.SetDefault("harvest.comments.stale_threshold", 3)
	v.SetDefault("harvest.card_wait", "30s")
	v.SetDefault("harvest.batch_delay_min", "2s")
	v.SetDefault("harvest.batch_delay_max", "5s")
	v.SetDefault("harvest.keyword_delay_min", "3s")
	v.SetDefault("harvest.keyword_delay_max", "8s")

	// -- Fetch --
	v.SetDefault("fetch.page_load_timeout", "30s")
	v.SetDefault("fetch.ready_wait", "5s")
	v.SetDefault("fetch.render_wait", "2s")
	v.SetDefault("fetch.max_retries", 2)
	v.SetDefault("fetch.retry_backoff", "1s")
	v.SetDefault("fetch.comment_wait", "10s")

	// -- Session --
	v.SetDefault("session.search_timeout", "120s")
	v.SetDefault("session.detail_timeout", "90s")
	v.SetDefault("session.crawl_timeout", "600s")
	v.SetDefault("session.default_timeout", "120s")
	v.SetDefault("session.max_notes", 20)
	v.SetDefault("session.login_probe_wait", "5s")
	v.SetDefault("session.login_wait", "120s")
	v.SetDefault("session.liveness_timeout", "10s")

	// -- Storage --
	v.SetDefault("storage.output_dir", "data")
	v.SetDefault("storage.save_raw_json", true)
	v.SetDefault("storage.save_csv", true)

	// -- Database --
	v.SetDefault("database.url", "")

	// -- Server --
	v.SetDefault("server.addr", "127.0.0.1:8765")
	v.SetDefault("server.rate_limit", 2.0)
	v.SetDefault("server.rate_burst", 4)
	v.SetDefault("server.shutdown_timeout", "15s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("database.url", "NOTECRAWL_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading "~" in every filesystem path setting.
func (c *Config) expandPaths() error {
	for _, p := range []*string{
		&c.LoggerCfg.LogFile,
		&c.BrowserCfg.UserDataDir,
		&c.BrowserCfg.AuthStatePath,
		&c.StorageCfg.OutputDir,
	} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// YAML renders the active configuration. Secrets are excluded by their tags.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return out, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.BrowserCfg.AuthStatePath == "" {
		return fmt.Errorf("browser.auth_state_path is a required configuration field")
	}
	if err := c.HarvestCfg.Listing.Validate(); err != nil {
		return fmt.Errorf("harvest.listing configuration invalid: %w", err)
	}
	if err := c.HarvestCfg.Comments.Validate(); err != nil {
		return fmt.Errorf("harvest.comments configuration invalid: %w", err)
	}
	if c.HarvestCfg.BatchDelayMin > c.HarvestCfg.BatchDelayMax {
		return fmt.Errorf("harvest.batch_delay_min must not exceed harvest.batch_delay_max")
	}
	if c.HarvestCfg.KeywordDelayMin > c.HarvestCfg.KeywordDelayMax {
		return fmt.Errorf("harvest.keyword_delay_min must not exceed harvest.keyword_delay_max")
	}
	if c.FetchCfg.PageLoadTimeout <= 0 {
		return fmt.Errorf("fetch.page_load_timeout must be a positive duration")
	}
	if c.FetchCfg.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries must not be negative")
	}
	if err := c.SessionCfg.Validate(); err != nil {
		return fmt.Errorf("session configuration invalid: %w", err)
	}
	if c.StorageCfg.OutputDir == "" {
		return fmt.Errorf("storage.output_dir is a required configuration field")
	}
	if c.ServerCfg.RateLimit <= 0 || c.ServerCfg.RateBurst <= 0 {
		return fmt.Errorf("server.rate_limit and server.rate_burst must be positive")
	}
	return nil
}

// Validate checks one scroll mode.
func (s *ScrollConfig) Validate() error {
	if s.StaleThreshold <= 0 {
		return fmt.Errorf("stale_threshold must be a positive integer")
	}
	if s.ScrollMin <= 0 || s.ScrollMin > s.ScrollMax {
		return fmt.Errorf("scroll_min must be positive and not exceed scroll_max")
	}
	if s.Pause < 0 || s.JitterMin < 0 || s.JitterMin > s.JitterMax {
		return fmt.Errorf("pause and jitter must be non-negative with jitter_min <= jitter_max")
	}
	return nil
}

// Validate checks the session budgets.
func (s *SessionConfig) Validate() error {
	if s.SearchTimeout <= 0 || s.DetailTimeout <= 0 || s.CrawlTimeout <= 0 || s.DefaultTimeout <= 0 {
		return fmt.Errorf("operation timeouts must be positive durations")
	}
	if s.MaxNotes <= 0 {
		return fmt.Errorf("max_notes must be a positive integer")
	}
	if s.LoginProbeWait <= 0 {
		return fmt.Errorf("login_probe_wait must be a positive duration")
	}
	return nil
}
