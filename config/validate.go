package config

import "github.com/recipebook/recipebook/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path cannot be empty for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.WithHint(
				errors.New("database.dsn cannot be empty for the postgres driver"),
				"set RECIPEBOOK_DATABASE_DSN",
			)
		}
	default:
		return errors.Newf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}

	// At least one attempt; zero would never apply anything
	if c.Reconcile.MaxAttempts < 1 {
		return errors.Newf("reconcile.max_attempts must be >= 1, got %d", c.Reconcile.MaxAttempts)
	}

	if c.Reconcile.RetryBackoffMS < 0 {
		return errors.Newf("reconcile.retry_backoff_ms must be >= 0, got %d", c.Reconcile.RetryBackoffMS)
	}

	return nil
}
