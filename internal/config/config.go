// Package config loads argroute settings from a YAML file and the
// environment, and applies them to a cli.App.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rybkr/argroute/internal/cli"
	"github.com/rybkr/argroute/internal/termcolor"
)

// Environment variables that override file settings.
const (
	EnvConfig   = "ARGROUTE_CONFIG"
	EnvColor    = "ARGROUTE_COLOR"
	EnvHistory  = "ARGROUTE_HISTORY"
	EnvAddr     = "ARGROUTE_ADDR"
	EnvLogLevel = "ARGROUTE_LOG_LEVEL"
	EnvColumns  = "COLUMNS"
)

// DefaultFileName is looked up in the home directory when ARGROUTE_CONFIG is unset.
const DefaultFileName = ".argroute.yaml"

// Config holds user settings.
type Config struct {
	Color    string        `yaml:"color"`
	Width    int           `yaml:"width"`
	DocsURL  string        `yaml:"docs_url"`
	Strict   bool          `yaml:"strict"`
	LogLevel string        `yaml:"log_level"`
	Codes    CodesConfig   `yaml:"codes"`
	History  HistoryConfig `yaml:"history"`
	Server   ServerConfig  `yaml:"server"`
}

// CodesConfig overrides the dispatcher exit codes.
type CodesConfig struct {
	Help    int `yaml:"help"`
	Unknown int `yaml:"unknown"`
	OK      int `yaml:"ok"`
	Fail    int `yaml:"fail"`
}

// HistoryConfig controls the invocation history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ServerConfig holds settings for the dispatch server.
type ServerConfig struct {
	Addr   string        `yaml:"addr"`
	Rate   int           `yaml:"rate"`   // requests per Window
	Burst  int           `yaml:"burst"`  // bucket capacity
	Window time.Duration `yaml:"window"` // refill interval
}

// Default returns the built-in configuration.
func Default() Config {
	codes := cli.DefaultCodes()
	c := Config{
		Color:   termcolor.ColorAuto.String(),
		Codes:   CodesConfig{Help: codes.Help, Unknown: codes.Unknown, OK: codes.OK, Fail: codes.Fail},
		History: HistoryConfig{Enabled: true},
	}
	c.defaults()
	return c
}

// defaults fills zero-valued fields with sensible defaults.
func (c *Config) defaults() {
	if c.Color == "" {
		c.Color = termcolor.ColorAuto.String()
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.History.Path == "" {
		c.History.Path = defaultHistoryPath()
	}
	c.Server.defaults()
}

// WithDefaults returns s with every unset field filled in.
func (s ServerConfig) WithDefaults() ServerConfig {
	s.defaults()
	return s
}

func (s *ServerConfig) defaults() {
	if s.Addr == "" {
		s.Addr = "127.0.0.1:7420"
	}
	if s.Rate <= 0 {
		s.Rate = 100
	}
	if s.Burst <= 0 {
		s.Burst = 200
	}
	if s.Window <= 0 {
		s.Window = time.Second
	}
}

func defaultHistoryPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "argroute", "history.db")
}

// Path returns the config file location: $ARGROUTE_CONFIG, or
// ~/.argroute.yaml.
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(home, DefaultFileName)
}

// Load reads the file at path over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return c, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	c.defaults()
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// applyEnv overrides settings from the environment. ARGROUTE_HISTORY holds a
// database path, or "off" to disable history.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvColor); v != "" {
		c.Color = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	switch v := os.Getenv(EnvHistory); strings.ToLower(v) {
	case "":
	case "off", "0", "false", "no":
		c.History.Enabled = false
	default:
		c.History.Enabled = true
		c.History.Path = v
	}
	if v := os.Getenv(EnvColumns); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Width = n
		}
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := termcolor.ParseColorMode(c.Color); err != nil {
		return err
	}
	if c.Width < 0 {
		return fmt.Errorf("width must not be negative, got %d", c.Width)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// ColorMode returns the parsed color setting, falling back to auto.
func (c Config) ColorMode() termcolor.ColorMode {
	mode, err := termcolor.ParseColorMode(c.Color)
	if err != nil {
		return termcolor.ColorAuto
	}
	return mode
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return lvl, nil
}

// Apply maps the settings onto app. Color is left to the caller because it
// depends on the output stream.
func (c Config) Apply(app *cli.App) {
	if c.Width > 0 {
		app.Width = c.Width
	}
	if c.DocsURL != "" {
		app.URL = c.DocsURL
	}
	app.Strict = c.Strict
	app.Codes = cli.Codes{
		Help:    c.Codes.Help,
		Unknown: c.Codes.Unknown,
		OK:      c.Codes.OK,
		Fail:    c.Codes.Fail,
	}
}
