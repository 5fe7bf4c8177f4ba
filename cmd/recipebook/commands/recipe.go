package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/recipebook/recipebook/ingredients"
	"github.com/recipebook/recipebook/store"
)

// RecipeCmd represents the recipe command
var RecipeCmd = &cobra.Command{
	Use:   "recipe",
	Short: "Manage recipes",
	Long: `Manage recipes and their ingredient lists.

Examples:
  recipebook recipe create --name Pelmeni --level hard --time 90
  recipebook recipe ls
  recipebook recipe show 1
  recipebook recipe ingredients export 1 -o pelmeni.yaml
  recipebook recipe rm 1`,
}

var recipeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a recipe with an empty ingredient list",
	RunE:  runRecipeCreate,
}

var recipeLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recipes",
	RunE:  runRecipeLs,
}

var recipeShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a recipe and its ingredient list",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecipeShow,
}

var recipeRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a recipe and its ingredient list",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecipeRm,
}

var (
	recipeName     string
	recipeLevel    string
	recipeCookTime int
	recipeState    string
)

func init() {
	recipeCreateCmd.Flags().StringVar(&recipeName, "name", "", "Recipe name")
	recipeCreateCmd.Flags().StringVar(&recipeLevel, "level", "normal", "Difficulty: easy, normal, hard, extreme (or 1-4)")
	recipeCreateCmd.Flags().IntVar(&recipeCookTime, "time", 0, "Cooking time in minutes")
	recipeCreateCmd.Flags().StringVar(&recipeState, "state", string(store.StateModerated), "Moderation state: PUB, MOD, REJ")
	_ = recipeCreateCmd.MarkFlagRequired("name")

	RecipeCmd.AddCommand(recipeCreateCmd)
	RecipeCmd.AddCommand(recipeLsCmd)
	RecipeCmd.AddCommand(recipeShowCmd)
	RecipeCmd.AddCommand(recipeRmCmd)
	RecipeCmd.AddCommand(recipeIngredientsCmd)
}

func runRecipeCreate(cmd *cobra.Command, args []string) error {
	level, err := store.ParseLevel(recipeLevel)
	if err != nil {
		return err
	}
	state, err := store.ParseState(recipeState)
	if err != nil {
		return err
	}

	st, _, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	r, err := st.CreateRecipe(cmd.Context(), store.NewRecipe{
		Name:     recipeName,
		Level:    level,
		CookTime: recipeCookTime,
		State:    state,
	})
	if err != nil {
		return err
	}
	pterm.Success.Printf("Created recipe %q (id %d)\n", r.Name, r.ID)
	return nil
}

func runRecipeLs(cmd *cobra.Command, args []string) error {
	st, _, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	recipes, err := st.ListRecipes(cmd.Context())
	if err != nil {
		return err
	}
	if len(recipes) == 0 {
		pterm.Info.Println("No recipes yet")
		return nil
	}

	data := pterm.TableData{{"ID", "Name", "Level", "Time", "State", "Version", "Updated"}}
	for _, r := range recipes {
		data = append(data, []string{
			fmt.Sprint(r.ID),
			r.Name,
			r.Level.String(),
			fmt.Sprintf("%d min", r.CookTime),
			string(r.State),
			fmt.Sprint(r.Version),
			r.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runRecipeShow(cmd *cobra.Command, args []string) error {
	id, err := parseID("recipe", args[0])
	if err != nil {
		return err
	}

	st, _, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := cmd.Context()
	r, err := st.GetRecipe(ctx, ingredients.RecipeID(id))
	if err != nil {
		return err
	}
	set, err := st.FetchAssociations(ctx, r.ID)
	if err != nil {
		return err
	}
	names, err := ingredientNames(ctx, st)
	if err != nil {
		return err
	}

	pterm.DefaultSection.Printf("%s (id %d)\n", r.Name, r.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "Level %s, %d min, state %s, version %d\n\n",
		r.Level, r.CookTime, r.State, set.Version)

	if len(set.Associations) == 0 {
		pterm.Info.Println("No ingredients")
		return nil
	}
	data := pterm.TableData{{"Row", "Ingredient", "Quantity", "Unit"}}
	for _, a := range set.Associations {
		data = append(data, []string{fmt.Sprint(a.ID), ingredientLabel(names, a.Ingredient), formatQuantity(a.Quantity), string(a.Unit)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runRecipeRm(cmd *cobra.Command, args []string) error {
	id, err := parseID("recipe", args[0])
	if err != nil {
		return err
	}

	st, _, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := st.DeleteRecipe(cmd.Context(), ingredients.RecipeID(id)); err != nil {
		return err
	}
	pterm.Success.Printf("Removed recipe %d\n", id)
	return nil
}
