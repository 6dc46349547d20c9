// Package config loads linkedinbot CLI settings.
//
// Sources are merged with later ones overriding earlier ones:
//  1. Defaults
//  2. YAML configuration file
//  3. Environment variables (LINKEDINBOT_*), including any set from .env
//
// Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/codeGROOVE-dev/linkedinbot/pkg/linkedinbot"
	"github.com/codeGROOVE-dev/linkedinbot/pkg/profile"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "LINKEDINBOT_"

// Config holds CLI settings.
type Config struct {
	Token   string        `koanf:"token"`
	Mode    string        `koanf:"mode"`
	Format  string        `koanf:"format"`
	Cache   Cache         `koanf:"cache"`
	Timeout time.Duration `koanf:"timeout"`
	Browser bool          `koanf:"browser"` // read cookies from local browsers
	Jobs    bool          `koanf:"jobs"`    // fetch job listings for companies
}

// Cache configures the on-disk HTTP cache.
type Cache struct {
	Dir     string        `koanf:"dir"` // empty selects the user cache directory
	TTL     time.Duration `koanf:"ttl"`
	Enabled bool          `koanf:"enabled"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Mode:    "individual",
		Format:  string(linkedinbot.FormatJSON),
		Browser: true,
		Jobs:    true,
		Timeout: 10 * time.Second,
		Cache: Cache{
			Enabled: true,
			TTL:     7 * 24 * time.Hour,
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := profile.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	if _, err := linkedinbot.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("format: %w", err)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL)
	}
	return nil
}

// DefaultPath returns the configuration file looked for when none is given,
// such as ~/.config/linkedinbot/config.yaml on Linux.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "linkedinbot", "config.yaml")
}

// Loader merges configuration sources.
type Loader struct {
	k        *koanf.Koanf
	filePath string
	dotenv   []string
	optional bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithConfigFile sets the YAML file to read. A missing file is an error.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
		l.optional = false
	}
}

// WithOptionalConfigFile sets a YAML file that is read only if it exists.
func WithOptionalConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
		l.optional = true
	}
}

// WithDotEnv sets the .env files loaded into the environment. Missing files
// are skipped and variables already set are never overridden.
func WithDotEnv(paths ...string) Option {
	return func(l *Loader) { l.dotenv = paths }
}

// NewLoader creates a Loader. By default it reads ./.env and no file.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:      koanf.New("."),
		dotenv: []string{".env"},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads a YAML file at path (skipped when empty) on top of the
// defaults, then the environment.
func Load(path string) (*Config, error) {
	return NewLoader(WithConfigFile(path)).Load()
}

// Load merges all sources into a validated Config.
func (l *Loader) Load() (*Config, error) {
	for _, p := range l.dotenv {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
	}

	if l.filePath != "" {
		if _, err := os.Stat(l.filePath); err != nil && l.optional && errors.Is(err, fs.ErrNotExist) {
			l.filePath = ""
		}
	}
	if l.filePath != "" {
		if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", l.filePath, err)
		}
	}

	// LINKEDINBOT_CACHE_TTL -> cache.ttl
	transform := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}
	if err := l.k.Load(env.Provider(EnvPrefix, ".", transform), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := l.k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
