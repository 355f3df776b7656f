// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultAPIBaseURL = "http://localhost:3001"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port                    string  `mapstructure:"PORT"`
	Env                     string  `mapstructure:"APP_ENV"`
	APIBaseURL              string  `mapstructure:"API_BASE_URL"`
	APITimeoutSeconds       int     `mapstructure:"API_TIMEOUT_SECONDS"`
	APIRatePerSecond        float64 `mapstructure:"API_RATE_PER_SECOND"`
	FeedPageSize            int     `mapstructure:"FEED_PAGE_SIZE"`
	FeedFetchTimeoutSeconds int     `mapstructure:"FEED_FETCH_TIMEOUT_SECONDS"`
	FeedIdleMinutes         int     `mapstructure:"FEED_IDLE_MINUTES"`
	SentinelThreshold       float64 `mapstructure:"SENTINEL_THRESHOLD"`
	RedisURL                string  `mapstructure:"REDIS_URL"`
	SessionTTLHours         int     `mapstructure:"SESSION_TTL_HOURS"`
	CookieSecure            bool    `mapstructure:"COOKIE_SECURE"`
	FeatureFlags            string  `mapstructure:"FEATURE_FLAGS"`
	TracingEnabled          bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter         string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint            string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio      float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading profile config 'config.%s.yml': %w", env, err)
			}
			log.Printf("No profile-specific config for %s; using environment variables and defaults", env)
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	viper.SetDefault("PORT", "3000")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("API_BASE_URL", defaultAPIBaseURL)
	viper.SetDefault("API_TIMEOUT_SECONDS", 10)
	viper.SetDefault("API_RATE_PER_SECOND", 20.0)
	viper.SetDefault("FEED_PAGE_SIZE", 5)
	viper.SetDefault("FEED_FETCH_TIMEOUT_SECONDS", 10)
	viper.SetDefault("FEED_IDLE_MINUTES", 30)
	viper.SetDefault("SENTINEL_THRESHOLD", 0.5)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("SESSION_TTL_HOURS", 24*7)
	viper.SetDefault("COOKIE_SECURE", false)
	viper.SetDefault("FEATURE_FLAGS", "follow_reconcile=on")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.APIBaseURL = strings.TrimRight(strings.TrimSpace(config.APIBaseURL), "/")
	config.Env = strings.ToLower(strings.TrimSpace(config.Env))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and sane.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL %q is not an absolute URL", c.APIBaseURL)
	}
	if c.FeedPageSize <= 0 {
		return errors.New("FEED_PAGE_SIZE must be positive")
	}
	if c.SentinelThreshold <= 0 || c.SentinelThreshold > 1 {
		return errors.New("SENTINEL_THRESHOLD must be in (0, 1]")
	}
	if c.APITimeoutSeconds <= 0 || c.FeedFetchTimeoutSeconds <= 0 {
		return errors.New("API_TIMEOUT_SECONDS and FEED_FETCH_TIMEOUT_SECONDS must be positive")
	}
	if c.FeedIdleMinutes <= 0 {
		return errors.New("FEED_IDLE_MINUTES must be positive")
	}

	if c.IsProduction() {
		if u.Scheme != "https" {
			return errors.New("API_BASE_URL must use https in production")
		}
		if !c.CookieSecure {
			return errors.New("COOKIE_SECURE must be enabled in production")
		}
	} else if c.APIBaseURL == defaultAPIBaseURL {
		log.Println("WARNING: API_BASE_URL is the local default. Set it to your backend for anything but development.")
	}

	return nil
}

// IsProduction reports whether the app runs with a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// APITimeout is the per-request timeout of the backend client.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutSeconds) * time.Second
}

// FeedFetchTimeout bounds a single page fetch of a feed controller.
func (c *Config) FeedFetchTimeout() time.Duration {
	return time.Duration(c.FeedFetchTimeoutSeconds) * time.Second
}

// FeedIdle is how long an untouched feed controller is kept for a browser session.
func (c *Config) FeedIdle() time.Duration {
	return time.Duration(c.FeedIdleMinutes) * time.Minute
}

// SessionTTL is the lifetime of stored credentials and flash messages.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}
