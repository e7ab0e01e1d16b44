package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Wiki   WikiConfig        `yaml:"wiki"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Wiki.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// WikiConfig holds the path to the subject directory.
type WikiConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the wiki configuration.
func (c *WikiConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds the user database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds token signing configuration.
//
// Secret signs both access and refresh tokens; rotating it invalidates
// every outstanding session.
type AuthConfig struct {
	Secret     string        `yaml:"secret"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Secret, validation.Required, validation.Length(16, 0)),
	); err != nil {
		return err
	}
	if c.AccessTTL <= 0 {
		return fmt.Errorf("auth: access_ttl must be positive")
	}
	if c.RefreshTTL <= c.AccessTTL {
		return fmt.Errorf("auth: refresh_ttl must exceed access_ttl")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
// The auth secret has no default and must be provided.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Wiki: WikiConfig{
			Path: "./wiki",
		},
		SQLite: SQLiteConfig{
			Path: "./ansuz.db",
		},
		Auth: AuthConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
	}
}
