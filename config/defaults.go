package config

import "github.com/spf13/viper"

// Default values
const (
	DefaultDriver         = DriverSQLite
	DefaultDatabasePath   = "recipebook.db"
	DefaultMaxAttempts    = 3
	DefaultRetryBackoffMS = 50
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DefaultDriver)
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("database.dsn", "")

	v.SetDefault("reconcile.max_attempts", DefaultMaxAttempts)
	v.SetDefault("reconcile.retry_backoff_ms", DefaultRetryBackoffMS)

	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.dsn", "RECIPEBOOK_DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("database.path", "RECIPEBOOK_DATABASE_PATH")
}

// Defaults returns a Config holding the same values SetDefaults registers.
func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: DefaultDriver,
			Path:   DefaultDatabasePath,
		},
		Reconcile: ReconcileConfig{
			MaxAttempts:    DefaultMaxAttempts,
			RetryBackoffMS: DefaultRetryBackoffMS,
		},
	}
}
