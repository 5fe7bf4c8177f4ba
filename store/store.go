// Package store persists the ingredient catalog, recipes and their
// ingredient lists in SQLite or PostgreSQL.
//
// Store implements ingredients.Gateway. Plans are applied inside one
// transaction guarded by the recipe version, so a plan computed from a
// stale snapshot fails with an error matching errors.ErrConflict instead of
// overwriting a concurrent edit.
package store

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/recipebook/recipebook/db"
	"github.com/recipebook/recipebook/errors"
	"github.com/recipebook/recipebook/ingredients"
	"github.com/recipebook/recipebook/logger"
)

var _ ingredients.Gateway = (*Store)(nil)

// Store is the SQL persistence gateway.
type Store struct {
	db      *sql.DB
	dialect db.Dialect
	logger  *zap.SugaredLogger
}

// New creates a Store over an open, migrated database.
// A nil logger disables logging.
func New(sqlDB *sql.DB, dialect db.Dialect, log *zap.SugaredLogger) *Store {
	return &Store{
		db:      sqlDB,
		dialect: dialect,
		logger:  logger.OrNop(log).With(logger.FieldComponent, "store"),
	}
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect the store speaks.
func (s *Store) Dialect() db.Dialect {
	return s.dialect
}

func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

// snapshotTx begins a read-only transaction in which every statement sees
// the same snapshot. SQLite transactions already do; PostgreSQL needs
// REPEATABLE READ for it.
func (s *Store) snapshotTx(ctx context.Context) (*sql.Tx, error) {
	var opts *sql.TxOptions
	if s.dialect == db.Postgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return s.db.BeginTx(ctx, opts)
}

// wrapf wraps a driver error, marking it ErrConflict when it is caused by
// concurrent modification.
func wrapf(err error, format string, args ...interface{}) error {
	wrapped := errors.Wrapf(err, format, args...)
	if db.IsConflict(err) {
		return errors.Mark(wrapped, errors.ErrConflict)
	}
	return wrapped
}
