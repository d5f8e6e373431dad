package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for volume-host.
//
// The browser starts the host without flags we control, so the file is the
// primary configuration surface. Flags exist for manual runs and debugging.
type Config struct {
	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// External tool invocation
	Exec ExecConfig `yaml:"exec"`

	// Tool names or absolute paths
	Tools ToolsConfig `yaml:"tools"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"` // empty = stderr
}

type ExecConfig struct {
	TimeoutMS int `yaml:"timeout_ms"` // 0 disables the timeout
}

type ToolsConfig struct {
	Pactl     string `yaml:"pactl"`
	Amixer    string `yaml:"amixer"`
	Osascript string `yaml:"osascript"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Exec: ExecConfig{
			TimeoutMS: 0,
		},
		Tools: ToolsConfig{
			Pactl:     "pactl",
			Amixer:    "amixer",
			Osascript: "osascript",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of the defaults.
// Unknown fields are rejected to catch typos.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		// An empty or comment-only file keeps the defaults.
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// resolveConfigPath picks the config file to load: the explicit path, then
// $VOLUME_HOST_CONFIG, then the per-user default if it exists. An empty
// result means run on defaults.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(configEnvVar); env != "" {
		return env
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(dir, "volume-host", "config.yaml")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// FlagOverrides carries flag values to apply on top of a loaded config.
// A nil pointer means the flag was not set.
type FlagOverrides struct {
	LogLevel *string
	LogFile  *string

	TimeoutMS *int
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFile != nil {
		cfg.Logging.File = *o.LogFile
	}
	if o.TimeoutMS != nil {
		cfg.Exec.TimeoutMS = *o.TimeoutMS
	}
}

// Validate checks config invariants and returns a user-friendly error.
// It is called after defaults, file and overrides are applied.
func (c *Config) Validate() error {
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Exec.TimeoutMS < 0 {
		return errors.New("exec.timeout_ms must be >= 0")
	}
	if c.Tools.Pactl == "" {
		return errors.New("tools.pactl must not be empty")
	}
	if c.Tools.Amixer == "" {
		return errors.New("tools.amixer must not be empty")
	}
	if c.Tools.Osascript == "" {
		return errors.New("tools.osascript must not be empty")
	}
	return nil
}

// Timeout returns the per-invocation tool timeout, zero when disabled.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Exec.TimeoutMS) * time.Millisecond
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
