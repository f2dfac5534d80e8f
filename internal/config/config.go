package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName              string        `mapstructure:"app_name"`
	Env                  string        `mapstructure:"app_env"`
	LogLevel             string        `mapstructure:"log_level"`
	ProvidersFile        string        `mapstructure:"providers_file"`
	PublishersFile       string        `mapstructure:"publishers_file"`
	CrawlIntervalSeconds int64         `mapstructure:"crawl_interval"`
	CrawlInterval        time.Duration `mapstructure:"-"`
	HTTPAddr             string        `mapstructure:"http_addr"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`

	CurationLimit         int           `mapstructure:"curation_limit"`
	CurationConcurrency   int           `mapstructure:"curation_concurrency"`
	ProbeTimeoutMs        int64         `mapstructure:"probe_timeout_ms"`
	ProbeTimeout          time.Duration `mapstructure:"-"`
	ProbeUserAgent        string        `mapstructure:"probe_user_agent"`
	ProbeHostRPS          float64       `mapstructure:"probe_host_rps"`
	ProbeHostBurst        int           `mapstructure:"probe_host_burst"`
	EnrichMissingMetadata bool          `mapstructure:"enrich_missing_metadata"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "samvad-news-curator")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("providers_file", "./configs/providers.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("crawl_interval", 900) // seconds
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/cache.db")
	v.SetDefault("storage_ttl_seconds", int64((5*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
	v.SetDefault("curation_limit", 7)
	v.SetDefault("curation_concurrency", 10)
	v.SetDefault("probe_timeout_ms", 5000)
	v.SetDefault("probe_user_agent", "")
	v.SetDefault("probe_host_rps", 0)
	v.SetDefault("probe_host_burst", 1)
	v.SetDefault("enrich_missing_metadata", true)
}

// finalize validates raw values and derives the duration fields.
func (cfg *Config) finalize() error {
	if cfg.CrawlIntervalSeconds <= 0 {
		return fmt.Errorf("invalid crawl_interval (must be positive seconds)")
	}
	cfg.CrawlInterval = time.Duration(cfg.CrawlIntervalSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	if cfg.CurationLimit < 0 {
		return fmt.Errorf("invalid curation_limit (must not be negative)")
	}
	if cfg.CurationConcurrency <= 0 {
		return fmt.Errorf("invalid curation_concurrency (must be positive)")
	}
	if cfg.ProbeTimeoutMs <= 0 {
		return fmt.Errorf("invalid probe_timeout_ms (must be positive milliseconds)")
	}
	cfg.ProbeTimeout = time.Duration(cfg.ProbeTimeoutMs) * time.Millisecond
	if cfg.ProbeHostRPS < 0 {
		return fmt.Errorf("invalid probe_host_rps (must not be negative)")
	}
	if cfg.ProbeHostBurst <= 0 {
		cfg.ProbeHostBurst = 1
	}

	return nil
}
