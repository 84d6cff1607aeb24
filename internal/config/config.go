// Package config loads and validates process configuration from file and
// environment via viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Collector CollectorConfig `mapstructure:"collector"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Timezone  string          `mapstructure:"timezone"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LogConfig struct {
	Level           string            `mapstructure:"level"`
	Format          string            `mapstructure:"format"`
	ServiceName     string            `mapstructure:"service_name"`
	Environment     string            `mapstructure:"environment"`
	Caller          bool              `mapstructure:"caller"`
	StacktraceLevel string            `mapstructure:"stacktrace_level"`
	Output          LogOutputConfig   `mapstructure:"output"`
	Rotation        LogRotationConfig `mapstructure:"rotation"`
}

type LogOutputConfig struct {
	ToStdout bool   `mapstructure:"to_stdout"`
	ToFile   bool   `mapstructure:"to_file"`
	FilePath string `mapstructure:"file_path"`
}

type LogRotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
	LocalTime  bool `mapstructure:"local_time"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type ScrapeConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIBaseURL     string        `mapstructure:"api_base_url"`
	UserAgent      string        `mapstructure:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RequestDelay   time.Duration `mapstructure:"request_delay"`
	Concurrency    int           `mapstructure:"concurrency"`
	TopN           int           `mapstructure:"top_n"`
}

type PricingConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	CacheSize       int64         `mapstructure:"cache_size"`
}

type CollectorConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	CronSpec         string `mapstructure:"cron_spec"`
	DedupeWindowDays int    `mapstructure:"dedupe_window_days"`
	WindowDays       int    `mapstructure:"window_days"`
}

type AdminConfig struct {
	Token string `mapstructure:"token"`
}

// Load reads configuration from config.yaml (searched in DATA_DIR, the
// working directory, ./config and /etc/orstats) and ORSTATS_* environment
// variables. A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if dataDir := strings.TrimSpace(os.Getenv("DATA_DIR")); dataDir != "" {
		v.AddConfigPath(dataDir)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/orstats")

	v.SetEnvPrefix("ORSTATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.service_name", "openrouter-stats")
	v.SetDefault("log.environment", "production")
	v.SetDefault("log.caller", true)
	v.SetDefault("log.stacktrace_level", "error")
	v.SetDefault("log.output.to_stdout", true)
	v.SetDefault("log.output.to_file", false)
	v.SetDefault("log.rotation.max_size_mb", 100)
	v.SetDefault("log.rotation.max_backups", 10)
	v.SetDefault("log.rotation.max_age_days", 30)
	v.SetDefault("log.rotation.compress", true)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"})
	v.SetDefault("cors.max_age", 43200)

	v.SetDefault("database.path", defaultDatabasePath())

	v.SetDefault("scrape.base_url", "https://openrouter.ai")
	v.SetDefault("scrape.api_base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("scrape.request_timeout", "30s")
	v.SetDefault("scrape.request_delay", "1500ms")
	v.SetDefault("scrape.concurrency", 3)
	v.SetDefault("scrape.top_n", 20)

	v.SetDefault("pricing.refresh_interval", "6h")
	v.SetDefault("pricing.cache_size", 4096)

	v.SetDefault("collector.enabled", true)
	v.SetDefault("collector.cron_spec", "0 3 * * 1")
	v.SetDefault("collector.dedupe_window_days", 6)
	v.SetDefault("collector.window_days", 7)

	v.SetDefault("admin.token", "")

	v.SetDefault("timezone", "UTC")
}

func defaultDatabasePath() string {
	if dataDir := strings.TrimSpace(os.Getenv("DATA_DIR")); dataDir != "" {
		return filepath.Join(dataDir, "orstats.db")
	}
	return "orstats.db"
}

func (c *Config) normalize() {
	c.Server.Mode = strings.ToLower(strings.TrimSpace(c.Server.Mode))
	c.Scrape.BaseURL = strings.TrimRight(strings.TrimSpace(c.Scrape.BaseURL), "/")
	c.Scrape.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Scrape.APIBaseURL), "/")
	c.Timezone = strings.TrimSpace(c.Timezone)
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	c.Admin.Token = strings.TrimSpace(c.Admin.Token)
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q must be debug, release or test", c.Server.Mode)
	}
	if c.Scrape.BaseURL == "" {
		return fmt.Errorf("config: scrape.base_url is required")
	}
	if c.Scrape.APIBaseURL == "" {
		return fmt.Errorf("config: scrape.api_base_url is required")
	}
	if c.Scrape.RequestTimeout <= 0 {
		return fmt.Errorf("config: scrape.request_timeout must be positive")
	}
	if c.Scrape.RequestDelay < 0 {
		return fmt.Errorf("config: scrape.request_delay must not be negative")
	}
	if c.Scrape.Concurrency <= 0 {
		return fmt.Errorf("config: scrape.concurrency must be positive")
	}
	if c.Scrape.TopN <= 0 {
		return fmt.Errorf("config: scrape.top_n must be positive")
	}
	if c.Pricing.RefreshInterval <= 0 {
		return fmt.Errorf("config: pricing.refresh_interval must be positive")
	}
	if c.Pricing.CacheSize <= 0 {
		return fmt.Errorf("config: pricing.cache_size must be positive")
	}
	if strings.TrimSpace(c.Collector.CronSpec) == "" {
		return fmt.Errorf("config: collector.cron_spec is required")
	}
	if c.Collector.DedupeWindowDays < 0 {
		return fmt.Errorf("config: collector.dedupe_window_days must not be negative")
	}
	if c.Collector.WindowDays <= 0 {
		return fmt.Errorf("config: collector.window_days must be positive")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("config: database.path is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves the configured timezone. Validate guarantees it parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
