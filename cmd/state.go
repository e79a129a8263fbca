package cmd

import (
	"fmt"
	"strings"

	"github.com/kokossimo/kokocli/internal/display"
	"github.com/kokossimo/kokocli/internal/filter"
	"github.com/kokossimo/kokocli/internal/querystate"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state [URL|QUERY]",
	Short: "Parse a catalog URL, apply filter flags, and print the canonical query string",
	Long: "Parses a storefront catalog URL or query string into filter state without\n" +
		"contacting the API. Filter flags are applied on top, and the result is\n" +
		"re-encoded the way the website writes it back to the address bar.",
	Example: `  kokocli state 'https://kokossimo.ru/catalog?filter=new&price_min=abc'
  kokocli state 'q=крем&category=face' --category body
  kokocli state --price-max 2490 --json`,
	Args: positionalArgs(cobra.MaximumNArgs(1)),
	RunE: runState,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	registerCatalogFilterFlags(stateCmd.Flags())
}

func runState(cmd *cobra.Command, args []string) error {
	if len(args) == 1 && strings.TrimSpace(flagURL) != "" {
		return invalidArgsError(
			"pass the URL either as an argument or with --url, not both",
			"kokocli state 'category=face'",
		)
	}

	var st filter.State
	raw := flagURL
	if len(args) == 1 {
		raw = args[0]
	}
	if strings.TrimSpace(raw) != "" {
		parsed, err := querystate.ParseRaw(raw)
		if err != nil {
			return invalidArgsError(
				fmt.Sprintf("invalid catalog URL: %v", err),
				"kokocli state 'https://kokossimo.ru/catalog?category=face'",
			)
		}
		st = parsed
	}

	st, err := overlayFilterFlags(cmd, st)
	if err != nil {
		return err
	}
	encoded := querystate.Encode(st)

	if flagJSON {
		return display.PrintStateJSON(cmd.OutOrStdout(), st, encoded)
	}
	display.PrintState(cmd.OutOrStdout(), st, encoded)
	return nil
}
