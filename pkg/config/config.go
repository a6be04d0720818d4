package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config holds all configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Cloverly CloverlyConfig `mapstructure:"cloverly"`
	Carbon   CarbonConfig   `mapstructure:"carbon"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	Host       string `mapstructure:"host"`
	BaseDomain string `mapstructure:"base_domain"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	LogLevel string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig controls the read cache in front of the carbon service.
// TTL keys: usage, offset, estimate, purchase_history, usage_history,
// projects, summary.
type CacheConfig struct {
	SweepInterval       time.Duration            `mapstructure:"sweep_interval"`
	Distributed         bool                     `mapstructure:"distributed"`
	InvalidationChannel string                   `mapstructure:"invalidation_channel"`
	TTL                 map[string]time.Duration `mapstructure:"ttl"`
}

type CloverlyConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CarbonConfig struct {
	FactorsFile string `mapstructure:"factors_file"`
}

// MetricsConfig holds configuration for which metrics to enable
type MetricsConfig struct {
	Enabled              bool `mapstructure:"enabled"`
	EnablePerRoute       bool `mapstructure:"enable_per_route"`
	EnableDetailedStatus bool `mapstructure:"enable_detailed_status"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config.yaml from configPath (or $CONFIG_PATH, ".", "./config"),
// applies CLIMABILL_* environment overrides and fills defaults. A missing
// config file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CLIMABILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("log.level", "CLIMABILL_LOG_LEVEL", "LOG_LEVEL")

	// Set defaults
	setDefaults(v)

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal the config
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.base_domain", "climabill.local")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "climabill")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.log_level", "error")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.sweep_interval", "1m")
	v.SetDefault("cache.distributed", false)
	v.SetDefault("cache.invalidation_channel", "climabill:cache:invalidate")
	v.SetDefault("cache.ttl.usage", "5m")
	v.SetDefault("cache.ttl.offset", "5m")
	v.SetDefault("cache.ttl.estimate", "2m")
	v.SetDefault("cache.ttl.purchase_history", "5m")
	v.SetDefault("cache.ttl.usage_history", "5m")
	v.SetDefault("cache.ttl.projects", "10m")
	v.SetDefault("cache.ttl.summary", "5m")

	v.SetDefault("cloverly.base_url", "https://api.cloverly.com/2021-03")
	v.SetDefault("cloverly.api_key", "")
	v.SetDefault("cloverly.timeout", "10s")

	v.SetDefault("carbon.factors_file", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.enable_per_route", false)
	v.SetDefault("metrics.enable_detailed_status", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
