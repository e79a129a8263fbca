package cmd

import (
	"strings"

	"github.com/kokossimo/kokocli/internal/api"
	"github.com/kokossimo/kokocli/internal/display"
	"github.com/kokossimo/kokocli/internal/search"
	"github.com/spf13/cobra"
)

var flagSuggestLimit int

var suggestCmd = &cobra.Command{
	Use:   "suggest QUERY",
	Short: "Suggest product names for a partial or misspelled query",
	Example: `  kokocli suggest крм
  kokocli suggest "увлажн крем" --limit 3`,
	Args: positionalArgs(cobra.MinimumNArgs(1)),
	RunE: runSuggest,
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	suggestCmd.Flags().IntVarP(&flagSuggestLimit, "limit", "n", 0, "Maximum number of suggestions (0 = config default)")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if search.Normalize(query) == "" {
		return invalidArgsError("suggest needs a query with letters or digits", "kokocli suggest крем")
	}
	if flagSuggestLimit < 0 {
		return invalidArgsError("--limit cannot be negative", "kokocli suggest крем --limit 3")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	limit := flagSuggestLimit
	if limit == 0 {
		limit = a.cfg.Search.SuggestLimit
	}

	products := a.catalog.Products(cmd.Context(), api.ProductQuery{})
	names := search.Suggest(products, query, limit)

	if flagJSON {
		return display.PrintSuggestionsJSON(cmd.OutOrStdout(), names)
	}
	display.PrintSuggestions(cmd.OutOrStdout(), query, names)
	return nil
}
