package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Feed     Feed     `mapstructure:"feed"`
	Sync     Sync     `mapstructure:"sync"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Feed holds the configuration for the external market-data provider.
type Feed struct {
	BaseURL        string `mapstructure:"base_url"`
	Currency       string `mapstructure:"currency"`
	PageSize       int    `mapstructure:"page_size"`
	MaxAssets      int    `mapstructure:"max_assets"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	RetryCount     int    `mapstructure:"retry_count"`
	// Minimum spacing between outbound calls, in milliseconds. The
	// provider's free tier allows roughly 60 calls per minute.
	RateSpacingMs int `mapstructure:"rate_spacing_ms"`
}

// Timeout returns the per-call feed timeout as a duration.
func (f Feed) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// RateSpacing returns the minimum inter-call spacing as a duration.
func (f Feed) RateSpacing() time.Duration {
	return time.Duration(f.RateSpacingMs) * time.Millisecond
}

// Sync holds the configuration for the synchronization schedule.
type Sync struct {
	IntervalMinutes     int    `mapstructure:"interval_minutes"`
	StartupDelaySeconds int    `mapstructure:"startup_delay_seconds"`
	DataSource          string `mapstructure:"data_source"`
}

// Interval returns the scheduled sync interval as a duration.
func (s Sync) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// StartupDelay returns the delay before the first sync after process start.
func (s Sync) StartupDelay() time.Duration {
	return time.Duration(s.StartupDelaySeconds) * time.Second
}

// Server holds the configuration for the HTTP API server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("feed.base_url", "https://api.coingecko.com/api/v3")
	viper.SetDefault("feed.currency", "usd")
	viper.SetDefault("feed.page_size", 250)
	viper.SetDefault("feed.max_assets", 250)
	viper.SetDefault("feed.timeout_seconds", 30)
	viper.SetDefault("feed.retry_count", 3)
	viper.SetDefault("feed.rate_spacing_ms", 1100)
	viper.SetDefault("sync.interval_minutes", 60)
	viper.SetDefault("sync.startup_delay_seconds", 5)
	viper.SetDefault("sync.data_source", "coingecko")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.dsn", "coinwatch.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
