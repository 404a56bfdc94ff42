// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	HTTPAddr          string        `mapstructure:"HTTP_ADDR"`
	DBURL             string        `mapstructure:"DB_URL"`
	GithubToken       string        `mapstructure:"GITHUB_TOKEN"`
	InternalToken     string        `mapstructure:"INTERNAL_TOKEN"`
	RequestsPerMinute int           `mapstructure:"GITHUB_REQUESTS_PER_MINUTE"`
	EnableScheduler   bool          `mapstructure:"ENABLE_SCHEDULER"`
	CollectInterval   time.Duration `mapstructure:"COLLECT_INTERVAL"`
	RankingInterval   time.Duration `mapstructure:"RANKING_INTERVAL"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("GITHUB_REQUESTS_PER_MINUTE", 30)
	viper.SetDefault("ENABLE_SCHEDULER", true)
	viper.SetDefault("COLLECT_INTERVAL", "24h")
	viper.SetDefault("RANKING_INTERVAL", "168h")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.GithubToken == "" {
		return nil, errors.New("GITHUB_TOKEN is a required configuration field")
	}
	if cfg.InternalToken == "" {
		return nil, errors.New("INTERNAL_TOKEN is a required configuration field")
	}
	if cfg.RequestsPerMinute <= 0 {
		return nil, errors.New("GITHUB_REQUESTS_PER_MINUTE must be a positive integer")
	}

	return &cfg, nil
}
