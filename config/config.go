package config

import (
	"fmt"
	"time"
)

// Config represents the recipebook configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database" toml:"database" json:"database" yaml:"database"`
	Reconcile ReconcileConfig `mapstructure:"reconcile" toml:"reconcile" json:"reconcile" yaml:"reconcile"`
	Log       LogConfig       `mapstructure:"log" toml:"log" json:"log" yaml:"log"`
}

// DatabaseConfig selects and locates the backing SQL database
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" toml:"driver" json:"driver" yaml:"driver"` // sqlite or postgres
	Path   string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`         // SQLite file path
	DSN    string `mapstructure:"dsn" toml:"dsn" json:"dsn" yaml:"dsn"`             // PostgreSQL connection string
}

// ReconcileConfig tunes the ingredient plan applier
type ReconcileConfig struct {
	MaxAttempts    int `mapstructure:"max_attempts" toml:"max_attempts" json:"max_attempts" yaml:"max_attempts"`
	RetryBackoffMS int `mapstructure:"retry_backoff_ms" toml:"retry_backoff_ms" json:"retry_backoff_ms" yaml:"retry_backoff_ms"`
}

// LogConfig configures structured logging
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json" json:"json" yaml:"json"`
}

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// RetryBackoff returns the pause between apply attempts.
func (c ReconcileConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// GetDatabasePath returns the configured SQLite path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath
	}
	return c.Database.Path
}

// Redacted returns a copy safe for printing: the DSN password is masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.Database.DSN != "" {
		out.Database.DSN = "********"
	}
	return out
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: {Driver: %s, Path: %s}, Reconcile: {MaxAttempts: %d, RetryBackoffMS: %d}}",
		c.Database.Driver, c.Database.Path, c.Reconcile.MaxAttempts, c.Reconcile.RetryBackoffMS)
}
