package cmd

import (
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kokossimo/kokocli/internal/debounce"
	"github.com/kokossimo/kokocli/internal/display"
	"github.com/kokossimo/kokocli/internal/filter"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse the catalog interactively with search-as-you-type",
	Example: `  kokocli tui
  kokocli tui --category face --sort price_asc
  kokocli tui --url 'https://kokossimo.ru/catalog?filter=bestsellers'`,
	Args:        positionalArgs(cobra.NoArgs),
	Annotations: map[string]string{annotationNoJSON: "interactive"},
	RunE:        runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	registerCatalogFilterFlags(tuiCmd.Flags())
}

func runTUI(cmd *cobra.Command, _ []string) error {
	st, err := buildFilterState(cmd)
	if err != nil {
		return err
	}
	if !flagJSON && !isInteractiveSession(cmd.InOrStdin(), cmd.OutOrStdout()) {
		return invalidArgsError(
			"`kokocli tui` requires an interactive terminal",
			"Use `kokocli --query крем --json` in pipelines.",
		)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	st = a.resolveCategories(cmd.Context(), st)
	if flagJSON {
		items := a.catalog.Run(cmd.Context(), st, 0)
		return display.PrintProductsJSON(cmd.OutOrStdout(), items, a.client.BaseURL())
	}

	debouncer := debounce.New(a.cfg.DebounceDelay(), nil)
	defer debouncer.Stop()

	model := newCatalogTUIModel(tuiConfig{
		ctx:       cmd.Context(),
		service:   a.catalog,
		debouncer: debouncer,
		baseURL:   a.client.BaseURL(),
		initial:   st,
	})

	program := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	_, err = program.Run()
	return err
}

func isInteractiveSession(stdin io.Reader, stdout io.Writer) bool {
	inputFile, ok := stdin.(*os.File)
	if !ok {
		return false
	}
	if !term.IsTerminal(int(inputFile.Fd())) {
		return false
	}
	return isTTY(stdout)
}

// tuiInitialState fills in the defaults the interactive view displays.
func tuiInitialState(st filter.State) filter.State {
	if st.Sort == "" {
		st.Sort = filter.SortRelevance
	}
	return st
}
