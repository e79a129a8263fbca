package cmd

import (
	"github.com/kokossimo/kokocli/internal/api"
	"github.com/kokossimo/kokocli/internal/display"
	"github.com/kokossimo/kokocli/internal/filter"
	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List catalog categories with product counts",
	Example: `  kokocli categories
  kokocli categories --json`,
	Args: positionalArgs(cobra.NoArgs),
	RunE: runCategories,
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	snap := a.catalog.Load(cmd.Context(), api.ProductQuery{})
	if len(snap.Categories) == 0 {
		return notFoundError(
			"no categories found",
			"The catalog may be temporarily unavailable; retry in a moment.",
		)
	}

	counts := filter.CategoryCounts(snap.Products)

	if flagJSON {
		return display.PrintCategoriesJSON(cmd.OutOrStdout(), snap.Categories, counts)
	}
	display.PrintCategories(cmd.OutOrStdout(), snap.Categories, counts)
	return nil
}
