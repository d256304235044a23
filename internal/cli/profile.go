package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	configDirName  = "budgetctl"
	configFileName = "config.yaml"
)

// Profile holds the API endpoint and key budgetctl talks to.
type Profile struct {
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`
}

// configDir returns the base config directory (~/.config/budgetctl/).
func configDir() (string, error) {
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		xdgConfig = filepath.Join(home, ".config")
	}

	return filepath.Join(xdgConfig, configDirName), nil
}

// ConfigPath returns the path of the profile file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Resolve picks the profile to use. An explicit name wins over the active
// one, and BUDGET_API_URL / BUDGET_API_KEY override the stored values.
func Resolve(cfg *Config, name string) (Profile, error) {
	if name == "" {
		name = cfg.Active
	}

	var p Profile
	if name != "" {
		stored, ok := cfg.Profiles[name]
		if !ok {
			return Profile{}, fmt.Errorf("profile %q not found", name)
		}
		p = stored
	}

	if v := os.Getenv("BUDGET_API_URL"); v != "" {
		p.APIURL = v
	}
	if v := os.Getenv("BUDGET_API_KEY"); v != "" {
		p.APIKey = v
	}

	if p.APIURL == "" {
		return Profile{}, errors.New("no API url configured, run: budgetctl profile set <name> --url <url> --key <key>")
	}
	return p, nil
}

// MaskedKey hides all but the last four characters of the API key.
func (p Profile) MaskedKey() string {
	if len(p.APIKey) <= 4 {
		return strings.Repeat("*", len(p.APIKey))
	}
	return strings.Repeat("*", len(p.APIKey)-4) + p.APIKey[len(p.APIKey)-4:]
}

func sanitizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
	return strings.Trim(name, "-")
}
