package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/recipebook/recipebook/cmd/recipebook/commands"
	"github.com/recipebook/recipebook/config"
	"github.com/recipebook/recipebook/errors"
	"github.com/recipebook/recipebook/logger"
)

var rootCmd = &cobra.Command{
	Use:   "recipebook",
	Short: "recipebook - recipes and their ingredient lists",
	Long: `recipebook - manage recipes, the ingredient catalog and recipe ingredient lists.

An ingredient list is edited as a whole: export it, change it, and submit
it back. Rows keep their id to update a stored line, use an id containing
"x" to add a line, and are left out to remove one.

Available commands:
  config     - Show, validate and write configuration
  db         - Migrate and inspect the database
  ingredient - Manage the ingredient catalog
  recipe     - Manage recipes and their ingredient lists
  version    - Show build information

Examples:
  recipebook ingredient add Flour Eggs Milk
  recipebook recipe create --name Blini --level easy --time 40
  recipebook recipe ingredients export 1 -o blini.yaml
  recipebook recipe ingredients set 1 -f blini.yaml --dry-run
  recipebook recipe ingredients set 1 -f blini.yaml --watch`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if !cmd.Flags().Changed("json-logs") {
			jsonLogs = config.GetViper().GetBool("log.json")
		}
		if err := logger.InitializeWithVerbosity(jsonLogs, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON (overrides log.json)")

	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.IngredientCmd)
	rootCmd.AddCommand(commands.RecipeCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cmd, err := rootCmd.ExecuteContextC(ctx); err != nil {
		logger.Errorw("Command failed", logger.FieldOperation, cmd.CommandPath(), logger.FieldError, err)
		logger.Cleanup()
		pterm.Error.WithWriter(os.Stderr).Println(err.Error())
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		stop()
		os.Exit(1)
	}
}
