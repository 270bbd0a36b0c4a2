// Package config loads the process configuration once at start-up.
// Values come from defaults, then an optional YAML file, then the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const devSecret = "notely-dev-secret-change-in-prod"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Notes     NotesConfig     `yaml:"notes"`
	Log       LogConfig       `yaml:"log"`
	Assistant AssistantConfig `yaml:"assistant"`
	MCP       MCPConfig       `yaml:"mcp"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type AuthConfig struct {
	Secret       string        `yaml:"secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	CookieSecure bool          `yaml:"cookie_secure"`
}

type NotesConfig struct {
	// DefaultPageSize applies to share candidate listings without an explicit limit.
	DefaultPageSize int    `yaml:"default_page_size"`
	Timezone        string `yaml:"timezone"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

type AssistantConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

func Default() Config {
	return Config{
		Server:    ServerConfig{Addr: ":8080"},
		Database:  DatabaseConfig{Driver: "sqlite3", DSN: "./notely.db"},
		Auth:      AuthConfig{Secret: devSecret, TokenTTL: 7 * 24 * time.Hour},
		Notes:     NotesConfig{DefaultPageSize: 5, Timezone: "Local"},
		Log:       LogConfig{Level: "info", Format: "json"},
		Assistant: AssistantConfig{Model: "gemini-2.5-flash"},
	}
}

// Load reads path (if non-empty) over the defaults and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("DB_DRIVER", &c.Database.Driver)
	str("DB_CONN", &c.Database.DSN)
	str("AUTH_SECRET", &c.Auth.Secret)
	str("GEMINI_API_KEY", &c.Assistant.APIKey)
	str("LOG_LEVEL", &c.Log.Level)
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.Addr = ":" + v
	}
	if v, ok := lookup("COOKIE_SECURE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COOKIE_SECURE: %w", err)
		}
		c.Auth.CookieSecure = b
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Database.Driver != "sqlite3" && c.Database.Driver != "postgres" {
		errs = append(errs, fmt.Errorf("database.driver must be sqlite3 or postgres, got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if len(c.Auth.Secret) < 16 {
		errs = append(errs, errors.New("auth.secret must be at least 16 bytes"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Notes.DefaultPageSize <= 0 {
		errs = append(errs, errors.New("notes.default_page_size must be positive"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("notes.timezone: %w", err))
	}
	return errors.Join(errs...)
}

// Location is the zone used for calendar-day analytics.
func (c Config) Location() (*time.Location, error) {
	if c.Notes.Timezone == "" || c.Notes.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Notes.Timezone)
}

// UsesDevSecret reports whether the built-in development secret is in effect.
func (c Config) UsesDevSecret() bool {
	return c.Auth.Secret == devSecret
}
