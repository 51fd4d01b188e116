package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// UpstreamConfig points at the market-data source.
type UpstreamConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	APIKey      string        `mapstructure:"api_key"`       // optional, sent as X-API-KEY
	APIKeyParam string        `mapstructure:"api_key_param"` // SSM parameter name, used in prod
}

// TrackerConfig fixes the symbol universe and the update cadences.
// None of these are runtime-mutable.
type TrackerConfig struct {
	Symbols          []string      `mapstructure:"symbols"`
	QuoteInterval    time.Duration `mapstructure:"quote_interval"`
	HistoryInterval  time.Duration `mapstructure:"history_interval"`
	BootstrapDelay   time.Duration `mapstructure:"bootstrap_delay"`
	MaxRecentSamples int           `mapstructure:"max_recent_samples"`
	FetchConcurrency int           `mapstructure:"fetch_concurrency"`
}

// ServerConfig configures the read-only consumer surface.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	PushInterval time.Duration `mapstructure:"push_interval"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		v.AddConfigPath(filepath.Join(pwd, "../../config"))
	} else {
		v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
	}

	setDefaults(v)

	// Support environment variables with dot notation (e.g., UPSTREAM_BASE_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	return &cfg
}

// setDefaults pins the reference cadences so a sparse config file still
// yields a working tracker.
func setDefaults(v *viper.Viper) {
	v.SetDefault("upstream.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("upstream.timeout", "10s")
	v.SetDefault("tracker.quote_interval", "60s")
	v.SetDefault("tracker.history_interval", "300s")
	v.SetDefault("tracker.bootstrap_delay", "3s")
	v.SetDefault("tracker.max_recent_samples", 60)
	v.SetDefault("tracker.fetch_concurrency", 5)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.push_interval", "5s")
	v.SetDefault("log.level", "info")
}
