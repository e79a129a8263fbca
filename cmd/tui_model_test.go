package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kokossimo/kokocli/internal/api"
	"github.com/kokossimo/kokocli/internal/catalog"
	"github.com/kokossimo/kokocli/internal/debounce"
	"github.com/kokossimo/kokocli/internal/filter"
	"github.com/kokossimo/kokocli/internal/querystate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

type tuiFakeFetcher struct {
	mu         sync.Mutex
	products   []api.Product
	categories []api.Category
	lastQuery  api.ProductQuery
	calls      int
}

func (f *tuiFakeFetcher) FetchProducts(_ context.Context, q api.ProductQuery) ([]api.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastQuery = q
	return f.products, nil
}

func (f *tuiFakeFetcher) FetchProduct(_ context.Context, id string) (*api.Product, error) {
	return nil, errors.New("fetching product " + id + ": not implemented")
}

func (f *tuiFakeFetcher) FetchCategories(context.Context) ([]api.Category, error) {
	return f.categories, nil
}

func (f *tuiFakeFetcher) FetchRatings(context.Context, string) ([]api.Rating, error) {
	return nil, nil
}

func (f *tuiFakeFetcher) query() api.ProductQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery
}

func newTUITestFetcher() *tuiFakeFetcher {
	return &tuiFakeFetcher{
		products: []api.Product{
			{ID: "1", Name: "Увлажняющий крем", Price: "1290.00", CategorySlug: strPtr("face"), IsBestseller: true},
			{ID: "2", Name: "Шампунь для объёма", Price: "590.00", CategorySlug: strPtr("hair")},
			{ID: "3", Name: "Крем для тела", Price: "890.00", CategorySlug: strPtr("body"), IsNew: true},
		},
		categories: []api.Category{
			{ID: "1", Name: "Лицо", Slug: "face"},
			{ID: "2", Name: "Тело", Slug: "body"},
			{ID: "3", Name: "Волосы", Slug: "hair"},
		},
	}
}

// newLoadedTUIModel returns a sized model whose initial load has been applied.
func newLoadedTUIModel(t *testing.T, f *tuiFakeFetcher) (catalogTUIModel, *debounce.ManualClock) {
	t.Helper()

	clock := debounce.NewManualClock()
	m := newCatalogTUIModel(tuiConfig{
		ctx:       context.Background(),
		service:   catalog.NewService(f, catalog.WithCache(0, 0)),
		debouncer: debounce.New(200*time.Millisecond, clock),
		baseURL:   "https://kokossimo.ru/api",
	})
	m = updateTUI(t, m, m.fetch()())
	m = updateTUI(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	require.False(t, m.loading)
	return m, clock
}

func updateTUI(t *testing.T, m catalogTUIModel, msg tea.Msg) catalogTUIModel {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(catalogTUIModel)
	require.True(t, ok)
	return model
}

func pressKey(t *testing.T, m catalogTUIModel, key string) (catalogTUIModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	model, ok := next.(catalogTUIModel)
	require.True(t, ok)
	return model, cmd
}

func typeText(t *testing.T, m catalogTUIModel, text string) catalogTUIModel {
	t.Helper()
	for _, r := range text {
		m, _ = pressKey(t, m, string(r))
	}
	return m
}

// runRefresh executes a refresh command and feeds the results back into m.
// Only commands built by refreshNow may be passed here; the others block.
func runRefresh(t *testing.T, m catalogTUIModel, cmd tea.Cmd) catalogTUIModel {
	t.Helper()
	require.NotNil(t, cmd)
	for _, msg := range collectTUIMsgs(cmd) {
		if _, ok := msg.(tuiResultsMsg); ok {
			m = updateTUI(t, m, msg)
		}
	}
	return m
}

func collectTUIMsgs(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, collectTUIMsgs(c)...)
	}
	return out
}

func visibleTitles(m catalogTUIModel) []string {
	items := m.list.Items()
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.(tuiProductItem).title)
	}
	return out
}

func categoryKey(t *testing.T, m catalogTUIModel, slug string) string {
	t.Helper()
	for i, c := range m.categories {
		if c.Slug == slug {
			return fmt.Sprint(i + 1)
		}
	}
	t.Fatalf("category %q not loaded", slug)
	return ""
}

func TestTUIInitialLoad(t *testing.T) {
	m, _ := newLoadedTUIModel(t, newTUITestFetcher())

	assert.Equal(t, 3, m.visible)
	assert.Len(t, m.categories, 3)
	assert.Equal(t, filter.SortRelevance, m.state.Sort)
	assert.Contains(t, m.View(), "url: (no filters)")
}

func TestTUISearchIsDebounced(t *testing.T) {
	m, clock := newLoadedTUIModel(t, newTUITestFetcher())

	m, _ = pressKey(t, m, "/")
	require.Equal(t, tuiFocusSearch, m.focus)
	m = typeText(t, m, "крем")

	assert.Equal(t, "крем", m.state.Query)
	assert.True(t, m.debouncer.Pending())
	assert.Equal(t, 1, clock.Pending(), "each keystroke replaces the previous timer")

	clock.Advance(199 * time.Millisecond)
	assert.Empty(t, m.events)

	clock.Advance(time.Millisecond)
	require.Len(t, m.events, 1)
	msg := <-m.events
	assert.IsType(t, tuiRefreshMsg{}, msg)

	before := m.gens.Current()
	m = updateTUI(t, m, msg)
	assert.Equal(t, before+1, m.gens.Current())
	assert.True(t, m.refreshing)
}

func TestTUIResultsAreRankedByQuery(t *testing.T) {
	m, _ := newLoadedTUIModel(t, newTUITestFetcher())

	m, _ = pressKey(t, m, "/")
	m = typeText(t, m, "крем")

	m = updateTUI(t, m, tuiResultsMsg{gen: m.gens.Next(), snapshot: catalog.Snapshot{Products: newTUITestFetcher().products}})
	assert.ElementsMatch(t, []string{"Увлажняющий крем", "Крем для тела"}, visibleTitles(m))
}

func TestTUIEnterRefreshesImmediately(t *testing.T) {
	f := newTUITestFetcher()
	m, clock := newLoadedTUIModel(t, f)

	m, _ = pressKey(t, m, "/")
	m = typeText(t, m, "шамп")
	require.True(t, m.debouncer.Pending())

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(catalogTUIModel)

	assert.False(t, m.debouncer.Pending())
	assert.Equal(t, 0, clock.Pending())
	assert.Equal(t, tuiFocusList, m.focus)

	m = runRefresh(t, m, cmd)
	assert.False(t, m.refreshing)
	assert.Equal(t, []string{"Шампунь для объёма"}, visibleTitles(m))
}

func TestTUIDropsStaleResults(t *testing.T) {
	m, _ := newLoadedTUIModel(t, newTUITestFetcher())

	stale := m.gens.Next()
	fresh := m.gens.Next()

	m = updateTUI(t, m, tuiResultsMsg{gen: fresh, snapshot: catalog.Snapshot{
		Products: []api.Product{{ID: "9", Name: "Свежий тоник", Price: "450"}},
	}})
	m = updateTUI(t, m, tuiResultsMsg{gen: stale, snapshot: catalog.Snapshot{
		Products: []api.Product{{ID: "8", Name: "Устаревший бальзам", Price: "300"}},
	}})

	assert.Equal(t, []string{"Свежий тоник"}, visibleTitles(m))
	require.Len(t, m.products, 1)
	assert.Equal(t, api.Text("9"), m.products[0].ID)
	// An empty category list in a snapshot keeps the known categories.
	assert.Len(t, m.categories, 3)
}

func TestTUIPriceGuard(t *testing.T) {
	m, _ := newLoadedTUIModel(t, newTUITestFetcher())

	m, _ = pressKey(t, m, "m")
	require.Equal(t, tuiFocusPriceMin, m.focus)

	m = typeText(t, m, "-")
	assert.Equal(t, "-", m.priceMin.Value())
	assert.Empty(t, m.priceWarning)
	assert.False(t, m.state.PriceMin.Valid)

	m = typeText(t, m, "1")
	assert.Equal(t, "0", m.priceMin.Value())
	assert.Equal(t, querystate.WarnNegativePrice, m.priceWarning)
	require.True(t, m.state.PriceMin.Valid)
	assert.True(t, m.state.PriceMin.Decimal.IsZero())

	view := m.View()
	assert.Contains(t, view, querystate.WarnNegativePrice)
	assert.Contains(t, view, "url: ?price_min=0")
}

func TestTUIPriceGuardHoldsWhileNegativeNumberIsTyped(t *testing.T) {
	m, _ := newLoadedTUIModel(t, newTUITestFetcher())

	m, _ = pressKey(t, m, "m")
	require.Equal(t, tuiFocusPriceMin, m.focus)

	m = typeText(t, m, "-100")
	assert.Equal(t, "0", m.priceMin.Value())
	assert.Equal(t, querystate.WarnNegativePrice, m.priceWarning)
	require.True(t, m.state.PriceMin.Valid)
	assert.True(t, m.state.PriceMin.Decimal.IsZero())
	assert.Contains(t, m.View(), querystate.WarnNegativePrice)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m = next.(catalogTUIModel)
	assert.Empty(t, m.priceMin.Value())
	assert.Empty(t, m.priceWarning)
	assert.False(t, m.state.PriceMin.Valid)

	m = typeText(t, m, "250")
	assert.Equal(t, "250", m.priceMin.Value())
	assert.Empty(t, m.priceWarning)
	require.True(t, m.state.PriceMin.Valid)
	assert.Equal(t, "250", m.state.PriceMin.Decimal.String())
}

func TestTUIPriceGuardClampsAgainAfterRefocus(t *testing.T) {
	m, _ := newLoadedTUIModel(t, newTUITestFetcher())

	m, _ = pressKey(t, m, "M")
	m = typeText(t, m, "-5")
	require.Equal(t, querystate.WarnNegativePrice, m.priceWarning)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(catalogTUIModel)
	m, _ = pressKey(t, m, "M")
	m = typeText(t, m, "7")
	assert.Equal(t, "07", m.priceMax.Value())
	assert.Empty(t, m.priceWarning)
	require.True(t, m.state.PriceMax.Valid)
	assert.Equal(t, "7", m.state.PriceMax.Decimal.String())
}

func TestTUIPriceMaxAcceptsValidInput(t *testing.T) {
	m, _ := newLoadedTUIModel(t, newTUITestFetcher())

	m, _ = pressKey(t, m, "M")
	require.Equal(t, tuiFocusPriceMax, m.focus)
	m = typeText(t, m, "900")

	assert.Empty(t, m.priceWarning)
	require.True(t, m.state.PriceMax.Valid)
	assert.Equal(t, "900", m.state.PriceMax.Decimal.String())
	assert.ElementsMatch(t, []string{"Шампунь для объёма", "Крем для тела"}, visibleTitlesAfterApply(m))
}

func visibleTitlesAfterApply(m catalogTUIModel) []string {
	m.applyCurrentFilters(false)
	return visibleTitles(m)
}

func TestTUICategoryToggle(t *testing.T) {
	f := newTUITestFetcher()
	m, _ := newLoadedTUIModel(t, f)

	m, cmd := pressKey(t, m, categoryKey(t, m, "face"))
	assert.Equal(t, []string{"face"}, m.state.SelectedCategories)
	assert.True(t, m.refreshing)
	assert.Contains(t, m.View(), "url: ?category=face")

	m = runRefresh(t, m, cmd)
	assert.Equal(t, []string{"face"}, f.query().Categories)
	assert.Equal(t, []string{"Увлажняющий крем"}, visibleTitles(m))

	m, cmd = pressKey(t, m, "0")
	assert.Empty(t, m.state.SelectedCategories)
	m = runRefresh(t, m, cmd)
	assert.Equal(t, 3, m.visible)
}

func TestTUICategoryCursor(t *testing.T) {
	m, _ := newLoadedTUIModel(t, newTUITestFetcher())

	m, _ = pressKey(t, m, "c")
	assert.Equal(t, 1, m.categoryCursor)

	m, cmd := pressKey(t, m, "x")
	assert.Equal(t, []string{m.categories[1].Slug}, m.state.SelectedCategories)
	assert.NotNil(t, cmd)
}

func TestTUIUnknownCategoryNumberIsIgnored(t *testing.T) {
	m, _ := newLoadedTUIModel(t, newTUITestFetcher())

	m, _ = pressKey(t, m, "9")
	assert.Empty(t, m.state.SelectedCategories)
	assert.False(t, m.refreshing)
}

func TestTUISortCycle(t *testing.T) {
	m, _ := newLoadedTUIModel(t, newTUITestFetcher())

	m, cmd := pressKey(t, m, "s")
	assert.Nil(t, cmd, "sorting is applied locally")
	assert.Equal(t, filter.SortPriceAsc, m.state.Sort)
	assert.Equal(t, []string{"Шампунь для объёма", "Крем для тела", "Увлажняющий крем"}, visibleTitles(m))

	m, _ = pressKey(t, m, "s")
	assert.Equal(t, filter.SortPriceDesc, m.state.Sort)
	assert.Equal(t, "Увлажняющий крем", visibleTitles(m)[0])

	m, _ = pressKey(t, m, "s")
	m, _ = pressKey(t, m, "s")
	assert.Equal(t, filter.SortRelevance, m.state.Sort)
	// Sort never reaches the URL.
	assert.Contains(t, m.View(), "url: (no filters)")
}

func TestTUILegacyShortcut(t *testing.T) {
	f := newTUITestFetcher()
	m, _ := newLoadedTUIModel(t, f)

	m, cmd := pressKey(t, m, "l")
	assert.Equal(t, filter.LegacyBestsellers, m.state.LegacyFilter)

	m = runRefresh(t, m, cmd)
	assert.True(t, f.query().Bestsellers)
	assert.Equal(t, []string{"Увлажняющий крем"}, visibleTitles(m))
	// The legacy key is read from URLs but never written back.
	assert.Contains(t, m.View(), "url: (no filters)")

	m, cmd = pressKey(t, m, "1")
	m = runRefresh(t, m, cmd)
	assert.Contains(t, m.legacyLine(), "ignored while categories are selected")
}

func TestTUIResetRestoresInitialState(t *testing.T) {
	f := newTUITestFetcher()
	clock := debounce.NewManualClock()
	initial, err := querystate.ParseRaw("category=body&price_max=2000")
	require.NoError(t, err)

	m := newCatalogTUIModel(tuiConfig{
		service:   catalog.NewService(f, catalog.WithCache(0, 0)),
		debouncer: debounce.New(200*time.Millisecond, clock),
		initial:   initial,
	})
	m = updateTUI(t, m, m.fetch()())
	m = updateTUI(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	require.Equal(t, "2000", m.priceMax.Value())

	m, _ = pressKey(t, m, "s")
	m, cmd := pressKey(t, m, categoryKey(t, m, "face"))
	m = runRefresh(t, m, cmd)
	require.Len(t, m.state.SelectedCategories, 2)

	m, cmd = pressKey(t, m, "r")
	m = runRefresh(t, m, cmd)

	assert.Equal(t, []string{"body"}, m.state.SelectedCategories)
	assert.Equal(t, filter.SortRelevance, m.state.Sort)
	assert.Equal(t, "2000", m.priceMax.Value())
	assert.Equal(t, []string{"Крем для тела"}, visibleTitles(m))
}

func TestTUIQuitStopsDebouncer(t *testing.T) {
	m, clock := newLoadedTUIModel(t, newTUITestFetcher())

	m, _ = pressKey(t, m, "/")
	m = typeText(t, m, "к")
	require.Equal(t, 1, clock.Pending())

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(catalogTUIModel)
	require.Equal(t, tuiFocusList, m.focus)

	m, cmd := pressKey(t, m, "q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 0, clock.Pending())

	m.scheduleRefresh()
	assert.False(t, m.debouncer.Pending())
}

func TestTUIKeysIgnoredWhileLoading(t *testing.T) {
	m := newCatalogTUIModel(tuiConfig{
		service:   catalog.NewService(newTUITestFetcher(), catalog.WithCache(0, 0)),
		debouncer: debounce.New(200*time.Millisecond, debounce.NewManualClock()),
	})

	m, cmd := pressKey(t, m, "/")
	assert.Nil(t, cmd)
	assert.Equal(t, tuiFocusList, m.focus)
	assert.Contains(t, m.View(), "Fetching products and categories")

	_, cmd = pressKey(t, m, "q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestTUITooSmallTerminal(t *testing.T) {
	m, _ := newLoadedTUIModel(t, newTUITestFetcher())
	m = updateTUI(t, m, tea.WindowSizeMsg{Width: 60, Height: 20})

	assert.Contains(t, m.View(), "Terminal too small (60x20)")
}

func TestRenderProductDetailContent(t *testing.T) {
	p := api.Product{
		ID:           "42",
		Name:         "Увлажняющий крем",
		Description:  strPtr("Лёгкий крем для ежедневного ухода"),
		Price:        "1290.00",
		CategorySlug: strPtr("face"),
	}

	content := renderProductDetailContent(p, 40, "https://kokossimo.ru/api")

	assert.Contains(t, content, "Увлажняющий крем")
	assert.Contains(t, content, "Category: face")
	assert.Contains(t, content, "Лёгкий крем для ежедневного ухода")
	assert.Contains(t, content, "kokocli product 42")
}

func TestRenderProductDetailContent_Fallbacks(t *testing.T) {
	content := renderProductDetailContent(api.Product{}, 40, "")

	assert.Contains(t, content, "(unnamed product)")
	assert.Contains(t, content, "No description provided.")
	assert.NotContains(t, content, "kokocli product")
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "one two\nthree four", wrapText("one two three four", 12))
	assert.Equal(t, "крем крем\nкрем", wrapText("крем крем крем", 12))
	assert.Equal(t, "", wrapText("   ", 20))

	for _, line := range strings.Split(wrapText(strings.Repeat("сыворотка ", 10), 24), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 24)
	}
}

func TestHumanizeLabel(t *testing.T) {
	assert.Equal(t, "Face Care", humanizeLabel("face-care"))
	assert.Equal(t, "Уход За Телом", humanizeLabel("уход_за_телом"))
	assert.Equal(t, "Other", humanizeLabel("  "))
}

func TestTUIInitialStateDefaultsSort(t *testing.T) {
	assert.Equal(t, filter.SortRelevance, tuiInitialState(filter.State{}).Sort)
	assert.Equal(t, filter.SortNewFirst, tuiInitialState(filter.State{Sort: filter.SortNewFirst}).Sort)
}
