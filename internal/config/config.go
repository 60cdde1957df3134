package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	hcversion "github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"

	"math-with-slack/internal/filestore"
)

const (
	// DefaultCompatibleVersions covers the Slack releases that ship the
	// unpacked ssb-interop.js startup script.
	DefaultCompatibleVersions = ">= 3.0.0"

	configPathEnv         = "MWS_CONFIG"
	disableUpdateCheckEnv = "MWS_DISABLE_UPDATE_CHECK"
)

// Config is the optional user configuration file. Command line flags win over
// every value here.
type Config struct {
	AppFile            string   `yaml:"app_file,omitempty" json:"app_file"`
	SettingsFile       string   `yaml:"settings_file,omitempty" json:"settings_file"`
	SearchPaths        []string `yaml:"search_paths,omitempty" json:"search_paths"`
	CompatibleVersions string   `yaml:"compatible_versions,omitempty" json:"compatible_versions"`
	DisableUpdateCheck bool     `yaml:"disable_update_check,omitempty" json:"disable_update_check"`
}

func Default() Config {
	return Config{
		CompatibleVersions: DefaultCompatibleVersions,
		SearchPaths:        []string{},
	}
}

// DefaultPath resolves $MWS_CONFIG, then <user config dir>/math-with-slack/config.yaml.
func DefaultPath() (string, error) {
	if override := strings.TrimSpace(os.Getenv(configPathEnv)); override != "" {
		return override, nil
	}
	root, err := os.UserConfigDir()
	if err != nil || strings.TrimSpace(root) == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return "", homeErr
		}
		root = filepath.Join(home, ".config")
	}
	return filepath.Join(root, "math-with-slack", "config.yaml"), nil
}

// Load reads path (or the default path when empty). A missing file yields the
// defaults; a malformed one is an error.
func Load(path string) (Config, error) {
	path = strings.TrimSpace(path)
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return applyEnv(Default()), nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg, err = normalize(cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return applyEnv(cfg), nil
}

func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := filestore.WriteFile(path, data, filestore.Perm(path, 0o644)); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Constraints parses CompatibleVersions.
func (c Config) Constraints() (hcversion.Constraints, error) {
	raw := strings.TrimSpace(c.CompatibleVersions)
	if raw == "" {
		raw = DefaultCompatibleVersions
	}
	constraints, err := hcversion.NewConstraint(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid compatible_versions %q: %w", raw, err)
	}
	return constraints, nil
}

func normalize(raw Config) (Config, error) {
	norm := raw
	norm.AppFile = strings.TrimSpace(norm.AppFile)
	norm.SettingsFile = strings.TrimSpace(norm.SettingsFile)
	norm.CompatibleVersions = strings.TrimSpace(norm.CompatibleVersions)
	if norm.CompatibleVersions == "" {
		norm.CompatibleVersions = DefaultCompatibleVersions
	}
	if _, err := norm.Constraints(); err != nil {
		return Config{}, err
	}

	paths := make([]string, 0, len(raw.SearchPaths))
	seen := make(map[string]bool, len(raw.SearchPaths))
	for _, p := range raw.SearchPaths {
		v := strings.TrimSpace(p)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		paths = append(paths, v)
	}
	norm.SearchPaths = paths
	return norm, nil
}

func applyEnv(cfg Config) Config {
	if strings.EqualFold(strings.TrimSpace(os.Getenv(disableUpdateCheckEnv)), "1") {
		cfg.DisableUpdateCheck = true
	}
	return cfg
}
