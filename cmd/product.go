package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kokossimo/kokocli/internal/api"
	"github.com/kokossimo/kokocli/internal/display"
	"github.com/spf13/cobra"
)

var productCmd = &cobra.Command{
	Use:   "product ID",
	Short: "Show one product with its reviews",
	Example: `  kokocli product 42
  kokocli product 42 --json`,
	Args: positionalArgs(cobra.ExactArgs(1)),
	RunE: runProduct,
}

func init() {
	rootCmd.AddCommand(productCmd)
}

func runProduct(cmd *cobra.Command, args []string) error {
	id := strings.TrimSpace(args[0])
	if id == "" {
		return invalidArgsError("product ID cannot be empty", "kokocli product 42")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.catalog.Product(cmd.Context(), id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return notFoundError(
				fmt.Sprintf("product not found: %s", id),
				"Find ids with `kokocli --query NAME --json`.",
			)
		}
		return upstreamError("fetching product", err)
	}
	ratings := a.catalog.Ratings(cmd.Context(), id)

	if flagJSON {
		return display.PrintProductJSON(cmd.OutOrStdout(), *p, ratings, a.client.BaseURL())
	}
	display.PrintProduct(cmd.OutOrStdout(), *p, ratings, a.client.BaseURL())
	return nil
}
