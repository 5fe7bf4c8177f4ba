package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/recipebook/recipebook/errors"
	"github.com/recipebook/recipebook/ingredients"
	"github.com/recipebook/recipebook/logger"
)

// IngredientCmd represents the ingredient catalog command
var IngredientCmd = &cobra.Command{
	Use:     "ingredient",
	Aliases: []string{"ing"},
	Short:   "Manage the ingredient catalog",
	Long: `Manage the ingredient catalog.

Names are compared after normalization: case, punctuation and Latin letters
that look like Cyrillic ones are ignored, so "Coль" and "соль" are the same
ingredient.

Examples:
  recipebook ingredient add Flour "Black pepper"
  recipebook ingredient ls
  recipebook ingredient rm 3`,
}

var ingredientAddCmd = &cobra.Command{
	Use:   "add <name>...",
	Short: "Add catalog entries",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngredientAdd,
}

var ingredientLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the catalog",
	RunE:  runIngredientLs,
}

var ingredientRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a catalog entry and every recipe line using it",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngredientRm,
}

func init() {
	IngredientCmd.AddCommand(ingredientAddCmd)
	IngredientCmd.AddCommand(ingredientLsCmd)
	IngredientCmd.AddCommand(ingredientRmCmd)
}

func runIngredientAdd(cmd *cobra.Command, args []string) error {
	st, _, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	failed := 0
	for _, name := range args {
		ing, err := st.CreateIngredient(cmd.Context(), name)
		if err != nil {
			if !errors.IsConflictError(err) && !errors.IsInvalidRequestError(err) {
				return err
			}
			failed++
			logger.Warnw("Ingredient not added", "name", name, logger.FieldError, err)
			pterm.Warning.Printf("%s: %v\n", name, err)
			continue
		}
		pterm.Success.Printf("Added %s (id %d)\n", ing.Name, ing.Ref)
	}
	logger.Infow("Catalog updated", logger.FieldCount, len(args)-failed)
	if failed > 0 {
		return errors.Newf("%d of %d ingredients not added", failed, len(args))
	}
	return nil
}

func runIngredientLs(cmd *cobra.Command, args []string) error {
	st, _, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	all, err := st.ListIngredients(cmd.Context())
	if err != nil {
		return err
	}
	if len(all) == 0 {
		pterm.Info.Println("The catalog is empty")
		return nil
	}

	data := pterm.TableData{{"ID", "Name"}}
	for _, ing := range all {
		data = append(data, []string{fmt.Sprint(ing.Ref), ing.Name})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runIngredientRm(cmd *cobra.Command, args []string) error {
	id, err := parseID("ingredient", args[0])
	if err != nil {
		return err
	}

	st, _, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := st.DeleteIngredient(cmd.Context(), ingredients.IngredientRef(id)); err != nil {
		return err
	}
	pterm.Success.Printf("Removed ingredient %d\n", id)
	return nil
}
