package commands

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/recipebook/recipebook/config"
	"github.com/recipebook/recipebook/db"
	"github.com/recipebook/recipebook/errors"
	"github.com/recipebook/recipebook/ingredients"
	"github.com/recipebook/recipebook/logger"
	"github.com/recipebook/recipebook/store"
)

// openDatabase opens the configured database and brings its schema up to date.
func openDatabase(cfg *config.Config) (*sql.DB, db.Dialect, error) {
	if err := cfg.Validate(); err != nil {
		return nil, "", errors.Wrap(err, "invalid configuration")
	}
	dialect, _ := db.ParseDialect(cfg.Database.Driver)

	var (
		database *sql.DB
		err      error
	)
	switch dialect {
	case db.Postgres:
		database, err = db.OpenPostgres(cfg.Database.DSN, logger.Logger)
	default:
		database, err = db.Open(cfg.GetDatabasePath(), logger.Logger)
	}
	if err != nil {
		return nil, "", err
	}

	if err := db.Migrate(database, dialect, logger.Logger); err != nil {
		database.Close()
		return nil, "", errors.Wrap(err, "failed to run migrations")
	}
	return database, dialect, nil
}

// openStore loads configuration and opens the store. The returned close
// function releases the connection pool.
func openStore() (*store.Store, *config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to load configuration")
	}

	database, dialect, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	st := store.New(database, dialect, logger.ComponentLogger("store"))
	return st, cfg, func() { database.Close() }, nil
}

func newService(st *store.Store, cfg *config.Config) *ingredients.Service {
	return ingredients.NewService(st, ingredients.Options{
		MaxAttempts:  cfg.Reconcile.MaxAttempts,
		RetryBackoff: cfg.Reconcile.RetryBackoff(),
	}, logger.ComponentLogger("ingredients"))
}

func verbosity(cmd *cobra.Command) int {
	v, _ := cmd.Flags().GetCount("verbose")
	return v
}

func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidRequestError("%s id must be a positive integer, got %q", kind, arg)
	}
	return id, nil
}

// ingredientNames maps catalog references to display names.
func ingredientNames(ctx context.Context, st *store.Store) (map[ingredients.IngredientRef]string, error) {
	all, err := st.ListIngredients(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[ingredients.IngredientRef]string, len(all))
	for _, ing := range all {
		names[ing.Ref] = ing.Name
	}
	return names, nil
}
