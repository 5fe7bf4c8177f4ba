package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/recipebook/recipebook/errors"
)

// SQLiteBusyTimeoutMS is how long a SQLite connection waits on a locked database.
const SQLiteBusyTimeoutMS = 5000

// PingTimeout bounds the connectivity check performed by OpenPostgres.
const PingTimeout = 5 * time.Second

// Open opens a SQLite database at the specified path with optimized settings.
// Pragmas are passed in the DSN so every pooled connection gets them.
// If logger is provided, logs database operations; otherwise operates silently.
func Open(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if logger != nil {
		logger.Debugw("Opening database", "path", path, "driver", SQLite)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d", path, SQLiteBusyTimeoutMS)
	db, err := sql.Open(SQLite.DriverName(), dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// Each :memory: connection is a separate database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}

	if logger != nil {
		logger.Infow("Database opened successfully",
			"path", path,
			"wal_mode", true,
			"foreign_keys", true,
		)
	}

	return db, nil
}

// OpenWithMigrations opens a SQLite database and brings its schema up to date.
func OpenWithMigrations(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	db, err := Open(path, logger)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db, SQLite, logger); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return db, nil
}

// OpenPostgres opens a PostgreSQL database through the pgx stdlib driver
// and verifies connectivity.
func OpenPostgres(dsn string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	if logger != nil {
		logger.Debugw("Opening database", "driver", Postgres)
	}

	db, err := sql.Open(Postgres.DriverName(), dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), PingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to postgres")
	}

	if logger != nil {
		logger.Infow("Database opened successfully", "driver", Postgres)
	}
	return db, nil
}
