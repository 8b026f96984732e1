// Package config handles configuration loading from YAML files, environment
// variables, and command-line arguments.
// Precedence: CLI arguments > environment variables > config file > defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "30s", "2m", "1h".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all agent configuration. It is constructed once at startup
// and never mutated afterwards.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Collection CollectionConfig `yaml:"collection"`
	Logging    LoggingConfig    `yaml:"logging"`
	Diag       DiagConfig       `yaml:"diag"`
}

// APIConfig holds monitoring API connection and retry settings.
type APIConfig struct {
	URL        string   `yaml:"url"`
	HostID     int      `yaml:"host_id"`
	Login      string   `yaml:"login"`
	Password   string   `yaml:"password"`
	Timeout    Duration `yaml:"timeout"`
	MaxRetries int      `yaml:"max_retries"`
	RetryDelay Duration `yaml:"retry_delay"`
}

// CollectionConfig holds metric collection settings.
// Directories is the local default list of monitored paths; the API may
// override it at runtime via the monitored-directories endpoint.
type CollectionConfig struct {
	Interval         Duration `yaml:"interval"`
	Directories      []string `yaml:"directories"`
	DirectoryRefresh Duration `yaml:"directory_refresh"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DiagConfig holds local diagnostics endpoint settings.
type DiagConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			URL:        "",
			Timeout:    Duration{30 * time.Second},
			MaxRetries: 3,
			RetryDelay: Duration{5 * time.Second},
		},
		Collection: CollectionConfig{
			Interval:         Duration{120 * time.Second},
			Directories:      []string{"/root", "/var", "/tmp", "/home", "/usr"},
			DirectoryRefresh: Duration{10 * time.Minute},
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
		Diag: DiagConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9465",
		},
	}
}

// CLIArgs holds values from positional command-line arguments.
// Zero values are treated as "not set" and skipped.
type CLIArgs struct {
	APIURL   string
	HostID   int
	Login    string
	Password string
}

// Load reads configuration with the full precedence chain:
// CLI arguments > environment variables > YAML file > defaults.
// An empty or missing config file is not an error.
func Load(path string, cli CLIArgs) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	// CLI arguments (highest precedence)
	if cli.APIURL != "" {
		cfg.API.URL = cli.APIURL
	}
	if cli.HostID != 0 {
		cfg.API.HostID = cli.HostID
	}
	if cli.Login != "" {
		cfg.API.Login = cli.Login
	}
	if cli.Password != "" {
		cfg.API.Password = cli.Password
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("ZENMON_API_URL"); v != "" {
		cfg.API.URL = v
	}
	if v := os.Getenv("COLLECTION_INTERVAL"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return fmt.Errorf("invalid COLLECTION_INTERVAL %q: expected positive seconds", v)
		}
		cfg.Collection.Interval = Duration{time.Duration(secs) * time.Second}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ZENMON_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	return nil
}

// Validate checks that the configuration is usable.
// Failures here are fatal startup errors.
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("API URL is required")
	}
	u, err := url.Parse(c.API.URL)
	if err != nil {
		return fmt.Errorf("invalid API URL %q: %w", c.API.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid API URL %q: scheme must be http or https", c.API.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid API URL %q: missing host", c.API.URL)
	}
	if c.API.HostID <= 0 {
		return fmt.Errorf("host ID must be a positive integer")
	}
	if c.Collection.Interval.Duration <= 0 {
		return fmt.Errorf("collection interval must be positive")
	}
	if c.API.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1")
	}
	return nil
}

// BaseURL returns the API URL without a trailing slash, ready for
// endpoint path concatenation.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.API.URL, "/")
}
