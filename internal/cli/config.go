package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the budgetctl profile file.
type Config struct {
	Active   string             `yaml:"active,omitempty"`
	Profiles map[string]Profile `yaml:"profiles,omitempty"`
}

// LoadConfig reads the profile file at path. A missing file yields an empty
// config.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{Profiles: map[string]Profile{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	return cfg, nil
}

// Save writes the config with owner-only permissions since it holds API keys.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SetProfile stores p under name, merging with any existing entry, and makes
// it the active profile. It returns the sanitized name.
func (c *Config) SetProfile(name string, p Profile) (string, error) {
	name = sanitizeName(name)
	if name == "" {
		return "", errors.New("profile name is required")
	}

	existing := c.Profiles[name]
	if p.APIURL != "" {
		existing.APIURL = strings.TrimRight(p.APIURL, "/")
	}
	if p.APIKey != "" {
		existing.APIKey = p.APIKey
	}
	if existing.APIURL == "" {
		return "", fmt.Errorf("profile %q needs an API url", name)
	}

	c.Profiles[name] = existing
	c.Active = name
	return name, nil
}
