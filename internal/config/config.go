// Package config loads CLI configuration from files, the environment and the
// Arcanist ~/.arcrc.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/PentesterFlow/phabconduit/pkg/conduit"
)

// Environment variables read by ApplyEnv.
const (
	EnvHost  = "CONDUIT_HOST"
	EnvToken = "CONDUIT_TOKEN"
)

// Config holds CLI configuration.
type Config struct {
	// Host is the server base URL, e.g. https://phab.example.com.
	Host string `json:"host" yaml:"host" toml:"host"`

	// Token is the Conduit API token.
	Token string `json:"token" yaml:"token" toml:"token"`

	// Timeout is the per-request timeout, e.g. "30s".
	Timeout string `json:"timeout" yaml:"timeout" toml:"timeout"`

	SkipTLSVerify bool `json:"skip_tls_verify" yaml:"skip_tls_verify" toml:"skip_tls_verify"`

	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit" toml:"rate_limit"`

	Log LogConfig `json:"log" yaml:"log" toml:"log"`

	Onsub OnsubConfig `json:"onsub" yaml:"onsub" toml:"onsub"`

	Watch WatchConfig `json:"watch" yaml:"watch" toml:"watch"`
}

// RateLimitConfig paces requests to the server.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst" toml:"burst"`
	// MinInterval is the least time between two requests, e.g. "200ms".
	MinInterval string `json:"min_interval" yaml:"min_interval" toml:"min_interval"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `json:"level" yaml:"level" toml:"level"`
	JSON  bool   `json:"json" yaml:"json" toml:"json"`
}

// OnsubConfig is the default room and project for task-onsub.
type OnsubConfig struct {
	Room    string `json:"room" yaml:"room" toml:"room"`
	Project string `json:"project" yaml:"project" toml:"project"`
}

// WatchConfig configures the watch loop.
type WatchConfig struct {
	// Schedule is a standard 5-field cron expression.
	Schedule    string `json:"schedule" yaml:"schedule" toml:"schedule"`
	NotifyURL   string `json:"notify_url" yaml:"notify_url" toml:"notify_url"`
	StateFile   string `json:"state_file" yaml:"state_file" toml:"state_file"`
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr" toml:"metrics_addr"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout: "30s",
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 0,
			Burst:             1,
		},
		Log: LogConfig{
			Level: "info",
		},
		Watch: WatchConfig{
			Schedule: "*/15 * * * *",
		},
	}
}

// LoadFromFile loads configuration from a file. ".toml" files are read as
// TOML; anything else as YAML, falling back to JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		return config, nil
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return config, nil
}

// SaveToFile saves configuration, choosing the format from the extension.
// The token is written too, so the file is created private.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	case ".toml":
		var b strings.Builder
		err = toml.NewEncoder(&b).Encode(c)
		data = []byte(b.String())
	default:
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// ApplyEnv overrides host and token from CONDUIT_HOST and CONDUIT_TOKEN.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Token = v
	}
}

// RequestTimeout parses Timeout. An empty value means no timeout.
func (c *Config) RequestTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: must not be negative", c.Timeout)
	}
	return d, nil
}

// RequestInterval parses RateLimit.MinInterval. Empty means none.
func (c *Config) RequestInterval() (time.Duration, error) {
	if c.RateLimit.MinInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RateLimit.MinInterval)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid min_interval %q", c.RateLimit.MinInterval)
	}
	return d, nil
}

// Credential returns the credential for the library. Trailing slashes are
// trimmed from the host since the client appends "/api/" verbatim.
func (c *Config) Credential() conduit.Credential {
	return conduit.Credential{Token: c.Token, Host: strings.TrimRight(c.Host, "/")}
}

// Validate checks that a call can be made with this configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Host == "" {
		errs = append(errs, errors.New("host is required"))
	} else if u, err := url.Parse(c.Host); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("host %q must be an http(s) URL", c.Host))
	}

	if c.Token == "" {
		errs = append(errs, errors.New("token is required"))
	}

	if _, err := c.RequestTimeout(); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.RequestInterval(); err != nil {
		errs = append(errs, err)
	}

	if c.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}

	return errors.Join(errs...)
}
