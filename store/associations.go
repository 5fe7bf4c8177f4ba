package store

import (
	"context"
	"database/sql"

	"github.com/recipebook/recipebook/errors"
	"github.com/recipebook/recipebook/ingredients"
	"github.com/recipebook/recipebook/logger"
)

// FetchAssociations implements ingredients.Gateway. The version and the rows
// are read in one snapshot.
func (s *Store) FetchAssociations(ctx context.Context, recipeID ingredients.RecipeID) (ingredients.PersistedSet, error) {
	tx, err := s.snapshotTx(ctx)
	if err != nil {
		return ingredients.PersistedSet{}, wrapf(err, "failed to begin read transaction")
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx, s.q(`SELECT version FROM recipes WHERE id = ?`), int64(recipeID)).Scan(&version)
	if err == sql.ErrNoRows {
		return ingredients.PersistedSet{}, errors.NewNotFoundError("recipe %d", recipeID)
	}
	if err != nil {
		return ingredients.PersistedSet{}, wrapf(err, "failed to read version of recipe %d", recipeID)
	}

	rows, err := tx.QueryContext(ctx, s.q(`
		SELECT id, ingredient_id, quantity, unit
		FROM recipe_ingredients
		WHERE recipe_id = ?
		ORDER BY id`),
		int64(recipeID))
	if err != nil {
		return ingredients.PersistedSet{}, wrapf(err, "failed to read ingredients of recipe %d", recipeID)
	}
	defer rows.Close()

	var associations []ingredients.Association
	for rows.Next() {
		var (
			id, ref int64
			a       ingredients.Association
			unit    string
		)
		if err := rows.Scan(&id, &ref, &a.Quantity, &unit); err != nil {
			return ingredients.PersistedSet{}, errors.Wrap(err, "failed to scan recipe ingredient")
		}
		a.ID = ingredients.AssociationID(id)
		a.Ingredient = ingredients.IngredientRef(ref)
		a.Unit = ingredients.Unit(unit)
		associations = append(associations, a)
	}
	if err := rows.Err(); err != nil {
		return ingredients.PersistedSet{}, wrapf(err, "failed to read ingredients of recipe %d", recipeID)
	}

	return ingredients.NewPersistedSet(recipeID, version, associations), nil
}

// Apply implements ingredients.Gateway.
//
// The recipe version is compared and bumped first, so concurrent appliers
// serialize on the recipe row and a stale plan fails before touching any
// line. Deletions, updates and creations follow in plan order. A deletion or
// update that matches no row means the snapshot was stale and fails the
// whole transaction as a conflict, as does any unique or foreign key
// violation.
func (s *Store) Apply(ctx context.Context, recipeID ingredients.RecipeID, version int64, plan ingredients.Plan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapf(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := s.bumpVersion(ctx, tx, recipeID, version); err != nil {
		return err
	}

	for _, id := range plan.Deletions {
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM recipe_ingredients WHERE id = ? AND recipe_id = ?`),
			int64(id), int64(recipeID))
		if err := expectOne(res, err, "delete recipe ingredient %d", id); err != nil {
			return err
		}
	}

	for _, u := range plan.Updates {
		res, err := tx.ExecContext(ctx, s.q(`
			UPDATE recipe_ingredients
			SET ingredient_id = ?, quantity = ?, unit = ?
			WHERE id = ? AND recipe_id = ?`),
			int64(u.Ingredient), u.Quantity, string(u.Unit), int64(u.ID), int64(recipeID))
		if err := expectOne(res, err, "update recipe ingredient %d", u.ID); err != nil {
			return err
		}
	}

	for _, c := range plan.Creations {
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO recipe_ingredients (recipe_id, ingredient_id, quantity, unit)
			VALUES (?, ?, ?, ?)`),
			int64(recipeID), int64(c.Ingredient), c.Quantity, string(c.Unit))
		if err != nil {
			return wrapf(err, "failed to add ingredient %d to recipe %d", c.Ingredient, recipeID)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapf(err, "failed to commit ingredient plan")
	}

	s.logger.Debugw("Committed ingredient plan",
		logger.FieldRecipeID, recipeID,
		logger.FieldVersion, version+1,
		logger.FieldDeletions, len(plan.Deletions),
		logger.FieldUpdates, len(plan.Updates),
		logger.FieldCreations, len(plan.Creations),
	)
	return nil
}

func (s *Store) bumpVersion(ctx context.Context, tx *sql.Tx, recipeID ingredients.RecipeID, version int64) error {
	res, err := tx.ExecContext(ctx, s.q(`
		UPDATE recipes
		SET version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`),
		int64(recipeID), version)
	if err != nil {
		return wrapf(err, "failed to bump version of recipe %d", recipeID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 1 {
		return nil
	}

	var current int64
	err = tx.QueryRowContext(ctx, s.q(`SELECT version FROM recipes WHERE id = ?`), int64(recipeID)).Scan(&current)
	if err == sql.ErrNoRows {
		return errors.NewNotFoundError("recipe %d", recipeID)
	}
	if err != nil {
		return wrapf(err, "failed to read version of recipe %d", recipeID)
	}
	return errors.NewConflictError("recipe %d is at version %d, plan was computed at %d", recipeID, current, version)
}

func expectOne(res sql.Result, err error, format string, args ...interface{}) error {
	if err != nil {
		return wrapf(err, "failed to "+format, args...)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n != 1 {
		return errors.Mark(errors.Newf("cannot "+format+": row is gone", args...), errors.ErrConflict)
	}
	return nil
}

// Stats summarizes table sizes.
type Stats struct {
	Ingredients       int64 `json:"ingredients" yaml:"ingredients"`
	Recipes           int64 `json:"recipes" yaml:"recipes"`
	RecipeIngredients int64 `json:"recipe_ingredients" yaml:"recipe_ingredients"`
}

// Stats counts rows in every table.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM ingredients),
			(SELECT COUNT(*) FROM recipes),
			(SELECT COUNT(*) FROM recipe_ingredients)`).Scan(&st.Ingredients, &st.Recipes, &st.RecipeIngredients)
	if err != nil {
		return Stats{}, wrapf(err, "failed to count rows")
	}
	return st, nil
}
