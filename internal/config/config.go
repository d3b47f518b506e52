package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// LogConfig holds structured-logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PipelineConfig controls the error pipeline's outward behavior:
// masking, diagnostics exposure and message localization.
type PipelineConfig struct {
	EnableDataMasking   bool   `mapstructure:"enable_data_masking"`
	IncludeStackTrace   bool   `mapstructure:"include_stack_trace"`
	HideInternalDetails bool   `mapstructure:"hide_internal_details"`
	Localize            bool   `mapstructure:"localize"`
	Locale              string `mapstructure:"locale"`
}

// MonitorConfig holds the health monitor's window and thresholds.
type MonitorConfig struct {
	WindowSize         int     `mapstructure:"window_size"`
	RateWindowSeconds  int     `mapstructure:"rate_window_seconds"`
	WarnRate           float64 `mapstructure:"warn_rate"`
	CriticalRate       float64 `mapstructure:"critical_rate"`
	CriticalErrorLimit int     `mapstructure:"critical_error_limit"`
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pipeline.enable_data_masking", true)
	v.SetDefault("pipeline.include_stack_trace", false)
	v.SetDefault("pipeline.hide_internal_details", true)
	v.SetDefault("pipeline.localize", true)
	v.SetDefault("pipeline.locale", "en")
	v.SetDefault("monitor.window_size", 1024)
	v.SetDefault("monitor.rate_window_seconds", 60)
	v.SetDefault("monitor.warn_rate", 10)
	v.SetDefault("monitor.critical_rate", 30)
	v.SetDefault("monitor.critical_error_limit", 3)

	// Read from environment variables
	v.SetEnvPrefix("ERRATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also bind to non-prefixed environment variables for deploy targets
	// that only expose PORT
	v.BindEnv("server.port", "PORT")

	// Read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// It's okay if config file doesn't exist
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	switch c.Server.Env {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("server.env must be development, staging or production, got %q", c.Server.Env)
	}
	if c.Monitor.WarnRate > c.Monitor.CriticalRate {
		return fmt.Errorf("monitor.warn_rate (%v) must not exceed monitor.critical_rate (%v)",
			c.Monitor.WarnRate, c.Monitor.CriticalRate)
	}
	if c.Monitor.WindowSize <= 0 {
		return fmt.Errorf("monitor.window_size must be positive, got %d", c.Monitor.WindowSize)
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
