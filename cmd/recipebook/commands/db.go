package commands

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/recipebook/recipebook/config"
	"github.com/recipebook/recipebook/db"
	"github.com/recipebook/recipebook/errors"
	"github.com/recipebook/recipebook/logger"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the recipebook database",
	Long: `Manage database operations.

Examples:
  recipebook db migrate    # Apply pending migrations
  recipebook db stats      # Show row counts and applied migrations`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	database, dialect, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	applied, err := db.AppliedMigrations(database)
	if err != nil {
		return err
	}
	logger.Debugw("Schema up to date", logger.FieldDriver, dialect, logger.FieldMigration, applied[len(applied)-1])
	pterm.Success.Printf("Schema up to date (%s, %d migrations)\n", dialect, len(applied))
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	st, cfg, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	stats, err := st.Stats(cmd.Context())
	if err != nil {
		return err
	}
	applied, err := db.AppliedMigrations(st.DB())
	if err != nil {
		return err
	}

	location := cfg.GetDatabasePath()
	if st.Dialect() == db.Postgres {
		location = "(dsn from configuration)"
	}

	pterm.DefaultSection.Println("Database Statistics")
	data := pterm.TableData{
		{"Driver", string(st.Dialect())},
		{"Location", location},
		{"Ingredients", fmt.Sprint(stats.Ingredients)},
		{"Recipes", fmt.Sprint(stats.Recipes)},
		{"Recipe ingredient lines", fmt.Sprint(stats.RecipeIngredients)},
		{"Migrations", strings.Join(applied, ", ")},
	}
	return pterm.DefaultTable.WithData(data).Render()
}
