package commands

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/recipebook/recipebook/ingredients"
	"github.com/recipebook/recipebook/logger"
)

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func ingredientLabel(names map[ingredients.IngredientRef]string, ref ingredients.IngredientRef) string {
	if name, ok := names[ref]; ok {
		return fmt.Sprintf("%s (%d)", name, ref)
	}
	return fmt.Sprintf("#%d", ref)
}

func describeFields(names map[ingredients.IngredientRef]string, f ingredients.Fields) string {
	return fmt.Sprintf("%s %s %s", ingredientLabel(names, f.Ingredient), formatQuantity(f.Quantity), f.Unit)
}

// renderPlan prints the operations of plan against the snapshot it was
// computed from. The table and ignored rows need -v.
func renderPlan(plan ingredients.Plan, set ingredients.PersistedSet, names map[ingredients.IngredientRef]string, verbosity int) error {
	if plan.IsEmpty() {
		pterm.Info.Println("Ingredient list unchanged")
	} else {
		pterm.Info.Printf("%d to delete, %d to update, %d to create\n",
			len(plan.Deletions), len(plan.Updates), len(plan.Creations))
	}

	if logger.ShouldOutput(verbosity, logger.OutputPlanSummary) && !plan.IsEmpty() {
		data := pterm.TableData{{"Operation", "Row", "Before", "After"}}
		for _, id := range plan.Deletions {
			before := ""
			if a, ok := set.Find(id); ok {
				before = describeFields(names, a.Fields)
			}
			data = append(data, []string{"delete", fmt.Sprint(id), before, ""})
		}
		for _, u := range plan.Updates {
			before := ""
			if a, ok := set.Find(u.ID); ok {
				before = describeFields(names, a.Fields)
			}
			data = append(data, []string{"update", fmt.Sprint(u.ID), before, describeFields(names, u.Fields)})
		}
		for _, c := range plan.Creations {
			data = append(data, []string{"create", "new", "", describeFields(names, c)})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
	}

	if len(plan.Ignored) > 0 {
		if !logger.ShouldOutput(verbosity, logger.OutputIgnoredRows) {
			pterm.Warning.Printf("%d row(s) produced no operation (use -v for details)\n", len(plan.Ignored))
			return nil
		}
		for _, ig := range plan.Ignored {
			pterm.Warning.Printf("row %d (%s): %s\n", ig.Index+1, ig.Row, ig.Reason)
		}
	}
	return nil
}
