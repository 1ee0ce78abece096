// Package config provides configuration management for the randomall server
// using Viper for loading from files, environment variables, and
// command-line flags.
//
// The configuration is read from .randomall.yml, overridden by RANDOMALL_
// prefixed environment variables and flags. It covers the HTTP server, the
// SQLite store, localization, rate limits and logging.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/randomall/internal/i18n"
	"github.com/conneroisu/randomall/internal/logging"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Locale  LocaleConfig  `mapstructure:"locale" yaml:"locale"`
	Limits  LimitsConfig  `mapstructure:"limits" yaml:"limits"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" yaml:"port"`
	Host           string        `mapstructure:"host" yaml:"host"`
	MaxConnections int           `mapstructure:"max_connections" yaml:"max_connections"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type StorageConfig struct {
	Path      string        `mapstructure:"path" yaml:"path"`
	CacheSize int           `mapstructure:"cache_size" yaml:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

type LocaleConfig struct {
	Language string `mapstructure:"language" yaml:"language"`
	Dir      string `mapstructure:"dir" yaml:"dir"`
	Watch    bool   `mapstructure:"watch" yaml:"watch"`
}

type LimitsConfig struct {
	ResultRequestsPerMinute int `mapstructure:"result_requests_per_minute" yaml:"result_requests_per_minute"`
	ResultBurst             int `mapstructure:"result_burst" yaml:"result_burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Dir    string `mapstructure:"dir" yaml:"dir"`
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// viper leaves slices empty when they come from a comma separated env var
	if viper.IsSet("server.allowed_origins") && len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = viper.GetStringSlice("server.allowed_origins")
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if !viper.IsSet("server.port") && config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 15 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 30 * time.Second
	}

	if config.Storage.Path == "" {
		config.Storage.Path = "randomall.db"
	}
	if config.Storage.CacheSize == 0 {
		config.Storage.CacheSize = 1000
	}
	if config.Storage.CacheTTL == 0 {
		config.Storage.CacheTTL = 10 * time.Minute
	}

	if config.Locale.Language == "" {
		config.Locale.Language = i18n.English
	}

	if !viper.IsSet("limits.result_requests_per_minute") && config.Limits.ResultRequestsPerMinute == 0 {
		config.Limits.ResultRequestsPerMinute = 120
	}
	if !viper.IsSet("limits.result_burst") && config.Limits.ResultBurst == 0 {
		config.Limits.ResultBurst = 20
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateStorageConfig(&config.Storage); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	lang, err := i18n.MatchLanguage(config.Locale.Language)
	if err != nil {
		return fmt.Errorf("locale config: %w", err)
	}
	config.Locale.Language = lang
	if config.Locale.Watch && config.Locale.Dir == "" {
		return fmt.Errorf("locale config: watch requires dir")
	}
	if config.Locale.Dir != "" {
		if err := validatePath(config.Locale.Dir); err != nil {
			return fmt.Errorf("locale config: %w", err)
		}
	}

	if config.Limits.ResultRequestsPerMinute < 0 || config.Limits.ResultBurst < 0 {
		return fmt.Errorf("limits config: values must not be negative")
	}

	if _, err := logging.ParseLevel(config.Logging.Level); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if config.Logging.Format != "text" && config.Logging.Format != "json" {
		return fmt.Errorf("logging config: unknown format %q", config.Logging.Format)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Validate port range (allow 0 for system-assigned ports in testing)
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.MaxConnections < 0 {
		return fmt.Errorf("max_connections must not be negative")
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

func validateStorageConfig(config *StorageConfig) error {
	if config.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative")
	}
	if config.Path == ":memory:" {
		return nil
	}
	if err := validatePath(config.Path); err != nil {
		return fmt.Errorf("invalid path '%s': %w", config.Path, err)
	}
	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
