package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Config represents the texo configuration.
type Config struct {
	Editor EditorConfig `yaml:"editor"`
	Picker PickerConfig `yaml:"picker"`
	Track  TrackConfig  `yaml:"track"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
}

// EditorConfig holds editor launcher settings.
type EditorConfig struct {
	Command string `yaml:"command"` // Editor command line; empty = $VISUAL, $EDITOR, then platform default
}

// PickerConfig holds interactive selection settings.
type PickerConfig struct {
	Backend    string `yaml:"backend"`     // builtin or fzf
	MaxResults int    `yaml:"max_results"` // Max candidates shown
}

// TrackConfig controls which paths are registered.
type TrackConfig struct {
	Exclude []string `yaml:"exclude"` // doublestar globs matched against the absolute path
}

// StoreConfig holds database settings.
type StoreConfig struct {
	BusyTimeoutMs int `yaml:"busy_timeout_ms"` // SQLite busy timeout
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Editor: EditorConfig{
			Command: "",
		},
		Picker: PickerConfig{
			Backend:    "builtin",
			MaxResults: 20,
		},
		Track: TrackConfig{
			Exclude: []string{
				"**/.git/COMMIT_EDITMSG",
				"**/.git/MERGE_MSG",
				"**/.git/rebase-merge/git-rebase-todo",
			},
		},
		Store: StoreConfig{
			BusyTimeoutMs: 5000,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get retrieves a configuration value by dot-separated key.
// For example: "picker.backend" or "store.busy_timeout_ms"
func (c *Config) Get(key string) (string, error) {
	section, field, err := splitKey(key)
	if err != nil {
		return "", err
	}

	switch section {
	case "editor":
		if field == "command" {
			return c.Editor.Command, nil
		}
	case "picker":
		switch field {
		case "backend":
			return c.Picker.Backend, nil
		case "max_results":
			return strconv.Itoa(c.Picker.MaxResults), nil
		}
	case "track":
		if field == "exclude" {
			return strings.Join(c.Track.Exclude, ","), nil
		}
	case "store":
		if field == "busy_timeout_ms" {
			return strconv.Itoa(c.Store.BusyTimeoutMs), nil
		}
	case "log":
		if field == "level" {
			return c.Log.Level, nil
		}
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
	return "", fmt.Errorf("unknown field: %s", key)
}

// Set sets a configuration value by dot-separated key.
// track.exclude takes a comma-separated list; an empty value clears it.
func (c *Config) Set(key, value string) error {
	section, field, err := splitKey(key)
	if err != nil {
		return err
	}

	switch section {
	case "editor":
		if field == "command" {
			c.Editor.Command = value
			return nil
		}
	case "picker":
		switch field {
		case "backend":
			c.Picker.Backend = value
			return nil
		case "max_results":
			v, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid value for max_results: %w", err)
			}
			c.Picker.MaxResults = v
			return nil
		}
	case "track":
		if field == "exclude" {
			c.Track.Exclude = nil
			for _, p := range strings.Split(value, ",") {
				if p = strings.TrimSpace(p); p != "" {
					c.Track.Exclude = append(c.Track.Exclude, p)
				}
			}
			return nil
		}
	case "store":
		if field == "busy_timeout_ms" {
			v, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid value for busy_timeout_ms: %w", err)
			}
			c.Store.BusyTimeoutMs = v
			return nil
		}
	case "log":
		if field == "level" {
			c.Log.Level = value
			return nil
		}
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
	return fmt.Errorf("unknown field: %s", key)
}

func splitKey(key string) (string, string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", "", errors.New("key must be in format 'section.key'")
	}
	return parts[0], parts[1], nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !isValidPickerBackend(c.Picker.Backend) {
		return fmt.Errorf("picker.backend must be builtin or fzf (got: %s)", c.Picker.Backend)
	}

	// Clamp max results to [1, 500]
	if c.Picker.MaxResults < 1 {
		c.Picker.MaxResults = 1
	}
	if c.Picker.MaxResults > 500 {
		c.Picker.MaxResults = 500
	}

	for _, pattern := range c.Track.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("track.exclude: invalid pattern %q", pattern)
		}
	}

	if c.Store.BusyTimeoutMs < 0 {
		return errors.New("store.busy_timeout_ms must be >= 0")
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidPickerBackend(backend string) bool {
	switch backend {
	case "builtin", "fzf":
		return true
	default:
		return false
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TEXO_EDITOR"); v != "" {
		c.Editor.Command = v
	}
	if v := os.Getenv("TEXO_PICKER_BACKEND"); v != "" && isValidPickerBackend(v) {
		c.Picker.Backend = v
	}
	if v := os.Getenv("TEXO_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
	if v := os.Getenv("TEXO_LOG_LEVEL"); v != "" && isValidLogLevel(v) {
		c.Log.Level = v
	}
}

// ListKeys returns user-facing configuration keys.
func ListKeys() []string {
	return []string{
		"editor.command",
		"picker.backend",
		"picker.max_results",
		"track.exclude",
		"store.busy_timeout_ms",
		"log.level",
	}
}
