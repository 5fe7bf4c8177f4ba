package db

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/recipebook/recipebook/errors"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{SQLite, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{Postgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{Postgres, "SELECT 1", "SELECT 1"},
		{Postgres, "SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.dialect.Rebind(tt.in))
	}
}

func TestParseDialect(t *testing.T) {
	d, ok := ParseDialect("sqlite")
	assert.True(t, ok)
	assert.Equal(t, SQLite, d)
	assert.Equal(t, "sqlite3", d.DriverName())

	d, ok = ParseDialect("Postgres")
	assert.True(t, ok)
	assert.Equal(t, Postgres, d)
	assert.Equal(t, "pgx", d.DriverName())

	_, ok = ParseDialect("oracle")
	assert.False(t, ok)
}

func TestIsConflict_NonDriverErrors(t *testing.T) {
	assert.False(t, IsConflict(nil))
	assert.False(t, IsConflict(errors.New("boom")))
}

func TestIsConflict_Postgres(t *testing.T) {
	for _, code := range []string{"23505", "23503", "40001", "40P01"} {
		err := errors.Wrap(&pgconn.PgError{Code: code}, "apply")
		assert.True(t, IsConflict(err), code)
	}
	assert.False(t, IsConflict(&pgconn.PgError{Code: "23514"}), "check violation")
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
}
