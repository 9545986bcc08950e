// Package config loads the campo configuration file.
// Settings live in ~/.config/campo/config.toml.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything the tool needs to run.
type Config struct {
	// APIURL is the base URL of the inspection API.
	APIURL string
	// Token is the opaque bearer credential. The CAMPO_TOKEN environment
	// variable overrides the file value so the credential can stay out of
	// the config file entirely.
	Token string
	// DatabasePath is where the local SQLite database lives.
	DatabasePath string
	// ProbeInterval is how often the watcher probes connectivity.
	ProbeInterval time.Duration
}

const (
	defaultConfigPath    = "~/.config/campo/config.toml"
	defaultDatabasePath  = "~/.local/share/campo/campo.db"
	defaultProbeInterval = 15 * time.Second

	tokenEnvVar = "CAMPO_TOKEN"
)

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Load locates and parses the config, falling back to defaults when the file
// is missing. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DatabasePath:  mustExpand(defaultDatabasePath),
		ProbeInterval: defaultProbeInterval,
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.Token = os.Getenv(tokenEnvVar)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL               string `toml:"api_url"`
		Token                string `toml:"token"`
		Database             string `toml:"database"`
		ProbeIntervalSeconds int    `toml:"probe_interval_seconds"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.APIURL = strings.TrimSpace(raw.APIURL)

	cfg.Token = strings.TrimSpace(raw.Token)
	if env := os.Getenv(tokenEnvVar); env != "" {
		cfg.Token = env
	}

	if db := strings.TrimSpace(raw.Database); db != "" {
		cfg.DatabasePath = mustExpand(db)
	}

	if raw.ProbeIntervalSeconds > 0 {
		cfg.ProbeInterval = time.Duration(raw.ProbeIntervalSeconds) * time.Second
	}

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}
