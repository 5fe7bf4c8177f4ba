package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipebook/recipebook/db"
	"github.com/recipebook/recipebook/errors"
	"github.com/recipebook/recipebook/ingredients"
)

func newMockStore(t *testing.T, dialect db.Dialect) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return New(sqlDB, dialect, nil), mock
}

var mixedPlan = ingredients.Plan{
	Deletions: []ingredients.AssociationID{10},
	Updates: []ingredients.Update{
		{ID: 11, Fields: ingredients.Fields{Ingredient: 5, Quantity: 2, Unit: ingredients.UnitGram}},
	},
	Creations: []ingredients.Fields{
		{Ingredient: 7, Quantity: 1.5, Unit: ingredients.UnitCup},
	},
}

func TestApplyStatementOrder(t *testing.T) {
	s, mock := newMockStore(t, db.SQLite)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE recipes\s+SET version = version \+ 1`).
		WithArgs(int64(1), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM recipe_ingredients WHERE id = \? AND recipe_id = \?`).
		WithArgs(int64(10), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE recipe_ingredients\s+SET ingredient_id = \?, quantity = \?, unit = \?`).
		WithArgs(int64(5), 2.0, "gram", int64(11), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO recipe_ingredients`).
		WithArgs(int64(1), int64(7), 1.5, "cup").
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Apply(context.Background(), 1, 3, mixedPlan))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPostgresPlaceholders(t *testing.T) {
	s, mock := newMockStore(t, db.Postgres)

	mock.ExpectBegin()
	mock.ExpectExec(`WHERE id = \$1 AND version = \$2`).
		WithArgs(int64(1), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM recipe_ingredients WHERE id = \$1 AND recipe_id = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET ingredient_id = \$1, quantity = \$2, unit = \$3\s+WHERE id = \$4 AND recipe_id = \$5`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`VALUES \(\$1, \$2, \$3, \$4\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Apply(context.Background(), 1, 3, mixedPlan))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyStaleVersionStopsEarly(t *testing.T) {
	s, mock := newMockStore(t, db.SQLite)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE recipes`).
		WithArgs(int64(1), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version FROM recipes WHERE id = \?`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(4)))
	mock.ExpectRollback()

	err := s.Apply(context.Background(), 1, 3, mixedPlan)
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))
	assert.Contains(t, err.Error(), "version 4")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMissingRowRollsBack(t *testing.T) {
	s, mock := newMockStore(t, db.SQLite)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE recipes`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM recipe_ingredients`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.Apply(context.Background(), 1, 3, mixedPlan)
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDriverErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		conflict bool
	}{
		{"postgres unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"postgres serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"postgres check violation", &pgconn.PgError{Code: "23514"}, false},
		{"plain failure", errors.New("connection reset by peer"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t, db.Postgres)

			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE recipes`).WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectExec(`DELETE FROM recipe_ingredients`).WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectExec(`UPDATE recipe_ingredients`).WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectExec(`INSERT INTO recipe_ingredients`).WillReturnError(tt.err)
			mock.ExpectRollback()

			err := s.Apply(context.Background(), 1, 3, mixedPlan)
			require.Error(t, err)
			assert.Equal(t, tt.conflict, errors.IsConflictError(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLookupIngredientDriverError(t *testing.T) {
	s, mock := newMockStore(t, db.SQLite)

	mock.ExpectQuery(`SELECT name FROM ingredients WHERE id = \?`).
		WithArgs(int64(5)).
		WillReturnError(errors.New("no such table: ingredients"))

	_, err := s.LookupIngredient(context.Background(), 5)
	require.Error(t, err)
	assert.False(t, errors.IsNotFoundError(err))
	assert.Contains(t, err.Error(), "ingredient 5")
	assert.NoError(t, mock.ExpectationsWereMet())
}
