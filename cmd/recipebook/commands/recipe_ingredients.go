package commands

import (
	"context"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/recipebook/recipebook/errors"
	"github.com/recipebook/recipebook/ingredients"
	"github.com/recipebook/recipebook/logger"
	"github.com/recipebook/recipebook/store"
	"github.com/recipebook/recipebook/submission"
)

var recipeIngredientsCmd = &cobra.Command{
	Use:     "ingredients",
	Aliases: []string{"ing"},
	Short:   "Export and replace a recipe's ingredient list",
	Long: `Export and replace a recipe's ingredient list.

The list is submitted whole. Each row is one of:
  id: 12      keep stored line 12, updating it to the row's values
  id: x1      add a new line (any id containing "x")
Stored lines no row claims are removed. When two rows end up on the same
ingredient the line already holding it wins and the other is dropped.

Examples:
  recipebook recipe ingredients export 1 -o list.yaml
  recipebook recipe ingredients set 1 -f list.yaml --dry-run -v
  recipebook recipe ingredients set 1 -f list.yaml --watch`,
}

var recipeIngredientsExportCmd = &cobra.Command{
	Use:   "export <recipe-id>",
	Short: "Write the stored ingredient list as a submission file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecipeIngredientsExport,
}

var recipeIngredientsSetCmd = &cobra.Command{
	Use:   "set <recipe-id>",
	Short: "Replace the ingredient list with the rows of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecipeIngredientsSet,
}

var (
	exportOutput string
	setFile      string
	setDryRun    bool
	setWatch     bool
	setRewrite   bool
)

func init() {
	recipeIngredientsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")

	recipeIngredientsSetCmd.Flags().StringVarP(&setFile, "file", "f", "", "Submission file (YAML or JSON)")
	recipeIngredientsSetCmd.Flags().BoolVar(&setDryRun, "dry-run", false, "Show the plan without applying it")
	recipeIngredientsSetCmd.Flags().BoolVarP(&setWatch, "watch", "w", false, "Keep running and apply the file on every save")
	recipeIngredientsSetCmd.Flags().BoolVar(&setRewrite, "rewrite", false, "Rewrite the file from the stored list after applying (implied by --watch)")
	_ = recipeIngredientsSetCmd.MarkFlagRequired("file")

	recipeIngredientsCmd.AddCommand(recipeIngredientsExportCmd)
	recipeIngredientsCmd.AddCommand(recipeIngredientsSetCmd)
}

func runRecipeIngredientsExport(cmd *cobra.Command, args []string) error {
	id, err := parseID("recipe", args[0])
	if err != nil {
		return err
	}

	st, cfg, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := cmd.Context()
	_, set, err := newService(st, cfg).Export(ctx, ingredients.RecipeID(id))
	if err != nil {
		return err
	}
	names, err := ingredientNames(ctx, st)
	if err != nil {
		return err
	}

	f := submission.NewFile(set, names)
	if exportOutput == "" {
		return submission.Encode(cmd.OutOrStdout(), f)
	}
	if err := submission.Save(exportOutput, f); err != nil {
		return err
	}
	pterm.Success.Printf("Exported %d row(s) at version %d to %s\n", len(f.Ingredients), set.Version, exportOutput)
	return nil
}

// ingredientListApplier submits one file's rows and reports the outcome.
type ingredientListApplier struct {
	store     *store.Store
	service   *ingredients.Service
	recipeID  ingredients.RecipeID
	path      string
	verbosity int
	dryRun    bool
	rewrite   bool
	watcher   *submission.Watcher
}

func (a *ingredientListApplier) apply(ctx context.Context, f submission.File) error {
	if f.Recipe != 0 && f.Recipe != a.recipeID {
		return errors.NewInvalidRequestError("%s belongs to recipe %d, not %d", a.path, f.Recipe, a.recipeID)
	}

	if logger.ShouldOutput(a.verbosity, logger.OutputDataDump) {
		for i, r := range f.Rows() {
			pterm.Info.Printf("row %d: id=%q ingredient=%q quantity=%q unit=%q\n", i+1, r.ID, r.Ingredient, r.Quantity, r.Unit)
		}
	}

	names, err := ingredientNames(ctx, a.store)
	if err != nil {
		return err
	}

	start := time.Now()
	if a.dryRun {
		plan, set, err := a.service.Preview(ctx, a.recipeID, f.Rows())
		if err != nil {
			return err
		}
		a.warnIfStale(f, set)
		pterm.Warning.Println("DRY RUN: nothing applied")
		return renderPlan(plan, set, names, a.verbosity)
	}

	result, err := a.service.Replace(ctx, a.recipeID, f.Rows())
	if err != nil {
		return err
	}
	a.warnIfStale(f, result.Snapshot)
	if err := renderPlan(result.Plan, result.Snapshot, names, a.verbosity); err != nil {
		return err
	}
	if logger.ShouldOutput(a.verbosity, logger.OutputTiming) {
		pterm.Info.Printf("Done in %s (%d attempt(s))\n", time.Since(start).Round(time.Millisecond), result.Attempts)
	}

	if a.rewrite && !result.Plan.IsEmpty() {
		return a.rewriteFile(ctx, names)
	}
	return nil
}

func (a *ingredientListApplier) warnIfStale(f submission.File, set ingredients.PersistedSet) {
	if f.Version != 0 && f.Version != set.Version {
		pterm.Warning.Printf("%s was exported at version %d; the recipe is now at version %d\n",
			a.path, f.Version, set.Version)
	}
}

// rewriteFile replaces the file with the stored list so new rows pick up
// their ids and the next save updates rather than recreates them.
func (a *ingredientListApplier) rewriteFile(ctx context.Context, names map[ingredients.IngredientRef]string) error {
	_, set, err := a.service.Export(ctx, a.recipeID)
	if err != nil {
		return err
	}
	if a.watcher != nil {
		a.watcher.MarkOwnWrite()
	}
	return submission.Save(a.path, submission.NewFile(set, names))
}

func runRecipeIngredientsSet(cmd *cobra.Command, args []string) error {
	id, err := parseID("recipe", args[0])
	if err != nil {
		return err
	}

	st, cfg, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	applier := &ingredientListApplier{
		store:     st,
		service:   newService(st, cfg),
		recipeID:  ingredients.RecipeID(id),
		path:      setFile,
		verbosity: verbosity(cmd),
		dryRun:    setDryRun,
		rewrite:   (setRewrite || setWatch) && !setDryRun,
	}

	if logger.ShouldOutput(applier.verbosity, logger.OutputConfig) {
		pterm.Info.Printf("driver=%s max_attempts=%d retry_backoff=%s\n",
			st.Dialect(), cfg.Reconcile.MaxAttempts, cfg.Reconcile.RetryBackoff())
	}

	ctx := logger.WithComponent(cmd.Context(), "ingredients-set")
	if setWatch {
		w, err := submission.NewWatcher(setFile, 0, logger.ComponentLogger("watcher"))
		if err != nil {
			return err
		}
		defer w.Close()
		applier.watcher = w
	}

	f, err := submission.Load(setFile)
	if err != nil {
		return err
	}
	if err := applier.apply(ctx, f); err != nil {
		if !setWatch {
			return err
		}
		pterm.Error.Println(err.Error())
	}
	if !setWatch {
		return nil
	}

	pterm.Info.Printf("Watching %s (Ctrl-C to stop)\n", applier.watcher.Path())
	return applier.watcher.Run(ctx, func(ctx context.Context, f submission.File) error {
		if err := applier.apply(ctx, f); err != nil {
			pterm.Error.Println(err.Error())
			if hint := errors.FlattenHints(err); hint != "" {
				pterm.Info.Println(hint)
			}
		}
		return nil
	})
}
