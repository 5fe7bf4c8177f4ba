package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/recipebook/recipebook/db"
	"github.com/recipebook/recipebook/errors"
	"github.com/recipebook/recipebook/ingredients"
	"github.com/recipebook/recipebook/internal/util"
	"github.com/recipebook/recipebook/logger"
)

// CreateIngredient adds a catalog entry. Names that normalize to an existing
// entry's name are rejected with an error matching errors.ErrConflict.
func (s *Store) CreateIngredient(ctx context.Context, name string) (ingredients.Ingredient, error) {
	name = strings.TrimSpace(name)
	normalized := util.NormalizeName(name)
	if normalized == "" {
		return ingredients.Ingredient{}, errors.NewInvalidRequestError("ingredient name %q has no letters or digits", name)
	}

	var id int64
	err := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO ingredients (name, normalized_name)
		VALUES (?, ?)
		RETURNING id`),
		name, normalized).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ingredients.Ingredient{}, errors.WithHintf(
				errors.Mark(errors.Wrapf(err, "ingredient %q already exists", name), errors.ErrConflict),
				"names are compared as %q", normalized)
		}
		return ingredients.Ingredient{}, wrapf(err, "failed to create ingredient %q", name)
	}

	s.logger.Debugw("Created ingredient",
		logger.FieldIngredientID, id,
		"name", name,
	)
	return ingredients.Ingredient{Ref: ingredients.IngredientRef(id), Name: name}, nil
}

// LookupIngredient implements ingredients.IngredientLookup.
func (s *Store) LookupIngredient(ctx context.Context, ref ingredients.IngredientRef) (ingredients.Ingredient, error) {
	ing := ingredients.Ingredient{Ref: ref}
	err := s.db.QueryRowContext(ctx, s.q(`SELECT name FROM ingredients WHERE id = ?`), int64(ref)).Scan(&ing.Name)
	if err == sql.ErrNoRows {
		return ingredients.Ingredient{}, errors.NewNotFoundError("ingredient %d", ref)
	}
	if err != nil {
		return ingredients.Ingredient{}, wrapf(err, "failed to look up ingredient %d", ref)
	}
	return ing, nil
}

// FindIngredient returns the entry whose name normalizes like name.
func (s *Store) FindIngredient(ctx context.Context, name string) (ingredients.Ingredient, error) {
	var (
		id  int64
		ing ingredients.Ingredient
	)
	err := s.db.QueryRowContext(ctx, s.q(`SELECT id, name FROM ingredients WHERE normalized_name = ?`),
		util.NormalizeName(name)).Scan(&id, &ing.Name)
	if err == sql.ErrNoRows {
		return ingredients.Ingredient{}, errors.NewNotFoundError("ingredient %q", name)
	}
	if err != nil {
		return ingredients.Ingredient{}, wrapf(err, "failed to find ingredient %q", name)
	}
	ing.Ref = ingredients.IngredientRef(id)
	return ing, nil
}

// ListIngredients returns the catalog ordered by name.
func (s *Store) ListIngredients(ctx context.Context) ([]ingredients.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM ingredients ORDER BY name, id`)
	if err != nil {
		return nil, wrapf(err, "failed to list ingredients")
	}
	defer rows.Close()

	var out []ingredients.Ingredient
	for rows.Next() {
		var (
			id  int64
			ing ingredients.Ingredient
		)
		if err := rows.Scan(&id, &ing.Name); err != nil {
			return nil, errors.Wrap(err, "failed to scan ingredient")
		}
		ing.Ref = ingredients.IngredientRef(id)
		out = append(out, ing)
	}
	return out, rows.Err()
}

// DeleteIngredient removes a catalog entry together with every recipe line
// that uses it. Recipes that lose a line have their version bumped.
func (s *Store) DeleteIngredient(ctx context.Context, ref ingredients.IngredientRef) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	touched, err := tx.ExecContext(ctx, s.q(`
		UPDATE recipes
		SET version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id IN (SELECT recipe_id FROM recipe_ingredients WHERE ingredient_id = ?)`),
		int64(ref))
	if err != nil {
		return wrapf(err, "failed to bump recipes using ingredient %d", ref)
	}

	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM ingredients WHERE id = ?`), int64(ref))
	if err != nil {
		return wrapf(err, "failed to delete ingredient %d", ref)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.NewNotFoundError("ingredient %d", ref)
	}

	if err := tx.Commit(); err != nil {
		return wrapf(err, "failed to commit ingredient deletion")
	}

	recipes, _ := touched.RowsAffected()
	s.logger.Debugw("Deleted ingredient",
		logger.FieldIngredientID, ref,
		"recipes", recipes,
	)
	return nil
}
