package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type arcrc struct {
	Hosts map[string]struct {
		Token string `json:"token"`
	} `json:"hosts"`
	Config struct {
		Default string `json:"default"`
	} `json:"config"`
}

// DefaultArcrcPath returns ~/.arcrc.
func DefaultArcrcPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".arcrc"
	}
	return filepath.Join(home, ".arcrc")
}

// LoadArcrc fills a missing host from the file's default and a missing
// token from the hosts entry matching the host. A missing file is not an
// error.
func LoadArcrc(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read arcrc: %w", err)
	}

	var rc arcrc
	if err := json.Unmarshal(data, &rc); err != nil {
		return fmt.Errorf("failed to parse arcrc: %w", err)
	}

	if cfg.Host == "" && rc.Config.Default != "" {
		cfg.Host = baseURL(rc.Config.Default)
	}
	if cfg.Host == "" {
		if len(rc.Hosts) != 1 {
			return nil
		}
		for h := range rc.Hosts {
			cfg.Host = baseURL(h)
		}
	}

	if cfg.Token != "" {
		return nil
	}
	want := baseURL(cfg.Host)
	for h, entry := range rc.Hosts {
		if baseURL(h) == want && entry.Token != "" {
			cfg.Token = entry.Token
			return nil
		}
	}
	return nil
}

// baseURL strips a trailing "/api/" and slashes: arcrc keys look like
// "https://phab.example.com/api/".
func baseURL(u string) string {
	u = strings.TrimRight(u, "/")
	u = strings.TrimSuffix(u, "/api")
	return strings.TrimRight(u, "/")
}
