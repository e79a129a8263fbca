package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/kokossimo/kokocli/internal/api"
	"github.com/kokossimo/kokocli/internal/catalog"
	"github.com/kokossimo/kokocli/internal/config"
	"github.com/kokossimo/kokocli/internal/display"
	"github.com/kokossimo/kokocli/internal/filter"
	"github.com/kokossimo/kokocli/internal/logger"
	"github.com/kokossimo/kokocli/internal/querystate"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	flagConfig     string
	flagAPIURL     string
	flagJSON       bool
	flagVerbose    bool
	flagQuery      string
	flagCategories []string
	flagLegacy     string
	flagPriceMin   string
	flagPriceMax   string
	flagSort       string
	flagLimit      int
	flagURL        string
	flagPrintURL   bool
)

var rootCmd = &cobra.Command{
	Use:   "kokocli",
	Short: "Search and filter the Kokossimo cosmetics catalog",
	Long: "CLI tool that queries the Kokossimo storefront catalog with typo-tolerant search,\n" +
		"category and price filters, and the same shareable URL state as the website.\n\n" +
		"Agent-friendly mode: minor syntax issues are auto-corrected when intent is clear " +
		"(for example: -query крем, price_max=2000, --categroy face).",
	Example: `  kokocli --query "увлажняющий крем"
  kokocli --category face --category body --price-max 2000
  kokocli --filter bestsellers --sort price_asc --limit 5
  kokocli --url 'https://kokossimo.ru/catalog?category=face&price_min=500'
  kokocli categories
  kokocli product 42
  kokocli suggest крм`,
	Args: rootArgs,
	RunE: runList,
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.SetFlagErrorFunc(flagError)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	pf.StringVar(&flagAPIURL, "api-url", "", "Catalog API base URL (overrides config and "+config.EnvAPIURL+")")
	pf.BoolVar(&flagJSON, "json", false, "Output as JSON")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Log requests and cache activity to stderr")

	registerCatalogFilterFlags(rootCmd.Flags())
	rootCmd.Flags().IntVarP(&flagLimit, "limit", "n", 0, "Limit number of results (0 = all)")
	rootCmd.Flags().BoolVar(&flagPrintURL, "print-url", false, "Print the canonical catalog query string to stderr")
}

// Execute runs the root command.
func Execute() {
	os.Exit(runCLI(os.Args[1:], os.Stdout, os.Stderr))
}

func runCLI(args []string, stdout, stderr io.Writer) int {
	resetCLIState()
	initDefaultCommands()

	normalizedArgs, notes := normalizeCLIArgs(args)
	for _, note := range notes {
		fmt.Fprintf(stderr, "note: %s\n", note)
	}

	if len(normalizedArgs) == 0 {
		if err := printQuickStart(stdout, !isTTY(stdout)); err != nil {
			cliErr := classifyCLIError(err)
			fmt.Fprintln(stderr, formatCLIErrorText(cliErr))
			return cliErr.ExitCode
		}
		return ExitSuccess
	}

	if shouldAutoJSON(normalizedArgs, isTTY(stdout)) {
		normalizedArgs = append(normalizedArgs, "--json")
	}

	setCommandIO(rootCmd, stdout, stderr)
	rootCmd.SetArgs(normalizedArgs)

	if err := rootCmd.Execute(); err != nil {
		cliErr := classifyCLIError(err)
		if hasJSONPreference(normalizedArgs) {
			if jerr := printCLIErrorJSON(stderr, cliErr); jerr != nil {
				fmt.Fprintln(stderr, formatCLIErrorText(classifyCLIError(jerr)))
				return ExitInternal
			}
		} else {
			fmt.Fprintln(stderr, formatCLIErrorText(cliErr))
		}
		return cliErr.ExitCode
	}
	return ExitSuccess
}

func setCommandIO(cmd *cobra.Command, stdout, stderr io.Writer) {
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	for _, child := range cmd.Commands() {
		setCommandIO(child, stdout, stderr)
	}
}

// resetCLIState clears flag values and their Changed marks so that runCLI can
// be invoked repeatedly in one process.
func resetCLIState() {
	flagConfig = ""
	flagAPIURL = ""
	flagJSON = false
	flagVerbose = false
	flagQuery = ""
	flagCategories = nil
	flagLegacy = ""
	flagPriceMin = ""
	flagPriceMax = ""
	flagSort = ""
	flagLimit = 0
	flagURL = ""
	flagPrintURL = false
	flagSuggestLimit = 0

	resetChanged(rootCmd)
}

func resetChanged(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) { f.Changed = false }
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetChanged(child)
	}
}

func registerCatalogFilterFlags(f *pflag.FlagSet) {
	f.StringVarP(&flagQuery, "query", "q", "", "Search products by name and description (typos tolerated)")
	f.StringArrayVarP(&flagCategories, "category", "c", nil, "Filter by category slug; repeat or comma-separate for several")
	f.StringVar(&flagLegacy, "filter", "", "Legacy filter: bestsellers, new, or a single category slug")
	f.StringVar(&flagPriceMin, "price-min", "", "Minimum price in rubles")
	f.StringVar(&flagPriceMax, "price-max", "", "Maximum price in rubles")
	f.StringVar(&flagSort, "sort", "", "Sort by relevance, price_asc, price_desc, or new_first")
	f.StringVar(&flagURL, "url", "", "Start from a storefront catalog URL or query string")
}

// app bundles the collaborators every networked command needs.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	client  *api.Client
	catalog *catalog.Service
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, invalidArgsError(err.Error(), "Check the file passed to --config.")
	}
	if strings.TrimSpace(flagAPIURL) != "" {
		cfg.API.BaseURL = strings.TrimSpace(flagAPIURL)
		if err := cfg.Validate(); err != nil {
			return nil, invalidArgsError(err.Error(), "kokocli --api-url https://kokossimo.ru/api")
		}
	}

	level := cfg.Logging.Level
	if flagVerbose {
		level = "debug"
	}
	log, err := logger.NewLogger(cfg.Logging.Env, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	cmd.SetContext(logger.ContextWithLogger(cmd.Context(), log.With(zap.String("command", cmd.CommandPath()))))

	client := api.NewClientWithBaseURL(cfg.API.BaseURL,
		api.WithTimeout(cfg.Timeout()),
		api.WithRateLimit(cfg.API.RatePerSec, cfg.API.Burst),
	)
	svc := catalog.NewService(client,
		catalog.WithLogger(log),
		catalog.WithThreshold(cfg.Search.Threshold),
		catalog.WithCache(cfg.Cache.Size, cfg.CacheTTL()),
	)

	log.Debug("catalog client ready",
		zap.String("base_url", client.BaseURL()),
		zap.Float64("threshold", svc.Threshold()),
	)
	return &app{cfg: cfg, log: log, client: client, catalog: svc}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}

// resolveCategories turns category names typed on the command line into
// slugs. The category list is cached, so the following Load reuses it.
func (a *app) resolveCategories(ctx context.Context, st filter.State) filter.State {
	if len(st.SelectedCategories) == 0 {
		return st
	}
	st.SelectedCategories = filter.ResolveCategories(st.SelectedCategories, a.catalog.Categories(ctx))
	return st
}

// buildFilterState starts from --url when given and overlays every filter
// flag the user set explicitly.
func buildFilterState(cmd *cobra.Command) (filter.State, error) {
	var st filter.State
	if raw := strings.TrimSpace(flagURL); raw != "" {
		parsed, err := querystate.ParseRaw(raw)
		if err != nil {
			return filter.State{}, invalidArgsError(
				fmt.Sprintf("invalid --url: %v", err),
				"kokocli --url 'https://kokossimo.ru/catalog?category=face'",
			)
		}
		st = parsed
	}
	return overlayFilterFlags(cmd, st)
}

func overlayFilterFlags(cmd *cobra.Command, st filter.State) (filter.State, error) {
	flags := cmd.Flags()
	stderr := cmd.ErrOrStderr()

	if flags.Changed("query") {
		st.Query = flagQuery
	}
	if flags.Changed("category") {
		st.SelectedCategories = nil
		for _, value := range flagCategories {
			for _, slug := range strings.Split(value, ",") {
				slug = strings.TrimSpace(slug)
				if slug != "" && !st.HasCategory(slug) {
					st = st.ToggleCategory(slug)
				}
			}
		}
	}
	if flags.Changed("filter") {
		st.LegacyFilter = strings.TrimSpace(flagLegacy)
	}
	if flags.Changed("price-min") {
		in := querystate.GuardPriceInput(flagPriceMin)
		if in.Warning != "" {
			display.PrintWarning(stderr, "--price-min: "+in.Warning)
		}
		st.PriceMin = in.Bound()
	}
	if flags.Changed("price-max") {
		in := querystate.GuardPriceInput(flagPriceMax)
		if in.Warning != "" {
			display.PrintWarning(stderr, "--price-max: "+in.Warning)
		}
		st.PriceMax = in.Bound()
	}
	if flags.Changed("sort") {
		mode, ok := filter.ParseSortMode(flagSort)
		if !ok {
			return filter.State{}, invalidArgsError(
				"invalid value for --sort (use relevance, price_asc, price_desc, or new_first)",
				"kokocli --query крем --sort price_asc",
				"kokocli --sort new_first",
			)
		}
		st.Sort = mode
	}
	if st.PriceMin.Valid && st.PriceMax.Valid && st.PriceMin.Decimal.GreaterThan(st.PriceMax.Decimal) {
		display.PrintWarning(stderr, "--price-min is above --price-max; nothing can match")
	}
	return st, nil
}

func runList(cmd *cobra.Command, _ []string) error {
	if flagLimit < 0 {
		return invalidArgsError("--limit cannot be negative", "kokocli --query крем --limit 10")
	}
	st, err := buildFilterState(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	st = a.resolveCategories(cmd.Context(), st)
	if flagPrintURL {
		fmt.Fprintf(cmd.ErrOrStderr(), "url: ?%s\n", querystate.Encode(st))
	}

	snap := a.catalog.Load(cmd.Context(), a.catalog.QueryFor(st))
	if len(snap.Products) == 0 {
		return notFoundError(
			"no products found in the catalog",
			"The catalog may be temporarily unavailable; retry in a moment.",
			"Run with --verbose to see request errors.",
		)
	}

	items := filter.ApplyWithThreshold(snap.Products, st, a.catalog.Threshold())
	items = filter.Limit(filter.Sort(items, st.Sort), flagLimit)
	logger.FromContext(cmd.Context()).Debug("catalog filtered",
		zap.String("state", querystate.Encode(st)),
		zap.Int("loaded", len(snap.Products)),
		zap.Int("matched", len(items)),
	)

	if len(items) == 0 {
		suggestions := unknownCategorySuggestions(st, snap.Categories)
		suggestions = append(suggestions, "Relax filters like --category/--price-min/--price-max/--query.")
		return notFoundError("no products match your filters", suggestions...)
	}

	if flagJSON {
		return display.PrintProductsJSON(cmd.OutOrStdout(), items, a.client.BaseURL())
	}
	display.PrintProducts(cmd.OutOrStdout(), items, st)
	return nil
}

// unknownCategorySuggestions proposes known slugs for every filtered category
// the catalog does not list.
func unknownCategorySuggestions(st filter.State, cats []api.Category) []string {
	if len(cats) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(cats))
	slugs := make([]string, 0, len(cats))
	for _, c := range cats {
		known[c.Slug] = struct{}{}
		slugs = append(slugs, c.Slug)
	}
	sort.Strings(slugs)

	var out []string
	for _, slug := range st.EffectiveCategories() {
		if _, ok := known[slug]; ok {
			continue
		}
		if match, ok := closestCategory(slug, slugs); ok {
			out = append(out, fmt.Sprintf("Unknown category %q. Did you mean `--category %s`?", slug, match))
		} else {
			out = append(out, fmt.Sprintf("Unknown category %q. Run `kokocli categories` to list them.", slug))
		}
	}
	return out
}

// closestCategory prefers a fuzzy subsequence match ("fce" -> "face") and
// falls back to edit distance for transpositions and extra letters.
func closestCategory(slug string, slugs []string) (string, bool) {
	if matches := fuzzy.Find(slug, slugs); len(matches) > 0 {
		return matches[0].Str, true
	}
	return closestMatch(strings.ToLower(slug), slugs, 2)
}
