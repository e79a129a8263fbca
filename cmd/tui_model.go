package cmd

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kokossimo/kokocli/internal/api"
	"github.com/kokossimo/kokocli/internal/catalog"
	"github.com/kokossimo/kokocli/internal/debounce"
	"github.com/kokossimo/kokocli/internal/display"
	"github.com/kokossimo/kokocli/internal/filter"
	"github.com/kokossimo/kokocli/internal/querystate"
	"github.com/shopspring/decimal"
)

const (
	minTUIWidth  = 92
	minTUIHeight = 24
)

var (
	tuiHeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	tuiMetaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tuiHintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	tuiValueStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	tuiBadgeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	tuiTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	tuiMutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	tuiWarnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	tuiActiveStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	tuiStrikeStyle  = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("244"))
	tuiSectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
)

var legacyChoices = []string{"", filter.LegacyBestsellers, filter.LegacyNew}

type tuiConfig struct {
	ctx       context.Context
	service   *catalog.Service
	debouncer *debounce.Debouncer
	baseURL   string
	initial   filter.State
}

// tuiResultsMsg carries a catalog snapshot tagged with the generation of the
// request that produced it.
type tuiResultsMsg struct {
	gen      uint64
	snapshot catalog.Snapshot
}

// tuiRefreshMsg is delivered once a burst of edits has settled.
type tuiRefreshMsg struct{}

type tuiFocus int

const (
	tuiFocusList tuiFocus = iota
	tuiFocusDetail
	tuiFocusSearch
	tuiFocusPriceMin
	tuiFocusPriceMax
)

func (f tuiFocus) String() string {
	switch f {
	case tuiFocusDetail:
		return "detail"
	case tuiFocusSearch:
		return "search"
	case tuiFocusPriceMin:
		return "price from"
	case tuiFocusPriceMax:
		return "price to"
	default:
		return "list"
	}
}

func (f tuiFocus) isInput() bool {
	return f == tuiFocusSearch || f == tuiFocusPriceMin || f == tuiFocusPriceMax
}

type tuiProductItem struct {
	product     api.Product
	title       string
	description string
}

func (p tuiProductItem) FilterValue() string { return p.title }
func (p tuiProductItem) Title() string       { return p.title }
func (p tuiProductItem) Description() string { return p.description }

type catalogTUIModel struct {
	ctx       context.Context
	service   *catalog.Service
	debouncer *debounce.Debouncer
	gens      *catalog.Generations
	events    chan tea.Msg
	baseURL   string

	loading    bool
	refreshing bool
	spinner    spinner.Model

	products   []api.Product
	categories []api.Category
	visible    int

	state        filter.State
	initialState filter.State

	search       textinput.Model
	priceMin     textinput.Model
	priceMax     textinput.Model
	priceWarning string
	// minClamped and maxClamped are set while the field holds "0" in place
	// of a negative number the user is still typing.
	minClamped bool
	maxClamped bool

	categoryCursor int

	list   list.Model
	detail viewport.Model

	focus      tuiFocus
	showHelp   bool
	selectedID string

	width, height   int
	bodyHeight      int
	listPaneWidth   int
	detailPaneWidth int
	tooSmall        bool
}

func newCatalogTUIModel(cfg tuiConfig) catalogTUIModel {
	st := tuiInitialState(cfg.initial)

	delegate := list.NewDefaultDelegate()
	delegate.SetHeight(2)
	delegate.SetSpacing(1)

	lst := list.New([]list.Item{}, delegate, 0, 0)
	lst.Title = "Products"
	lst.SetStatusBarItemName("product", "products")
	lst.SetShowStatusBar(true)
	// Search ranking owns the order; the list's own fuzzy filter would fight it.
	lst.SetFilteringEnabled(false)
	lst.SetShowHelp(false)
	lst.SetShowPagination(true)
	lst.DisableQuitKeybindings()

	detail := viewport.New(0, 0)
	detail.KeyMap.PageDown.SetKeys("f", "pgdown")
	detail.KeyMap.PageUp.SetKeys("b", "pgup")
	detail.KeyMap.HalfPageDown.SetKeys("d")
	detail.KeyMap.HalfPageUp.SetKeys("u")

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))

	debouncer := cfg.debouncer
	if debouncer == nil {
		debouncer = debounce.New(debounce.DefaultDelay, nil)
	}
	ctx := cfg.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	return catalogTUIModel{
		ctx:          ctx,
		service:      cfg.service,
		debouncer:    debouncer,
		gens:         &catalog.Generations{},
		events:       make(chan tea.Msg, 1),
		baseURL:      cfg.baseURL,
		loading:      true,
		spinner:      spin,
		state:        st,
		initialState: st,
		search:       newTUIInput("search ", "name or description", st.Query, 64, 28),
		priceMin:     newTUIInput("from ₽ ", "any", boundText(st.PriceMin), 10, 8),
		priceMax:     newTUIInput("to ₽ ", "any", boundText(st.PriceMax), 10, 8),
		list:         lst,
		detail:       detail,
		focus:        tuiFocusList,
	}
}

func newTUIInput(prompt, placeholder, value string, limit, width int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Width = width
	in.SetValue(value)
	return in
}

func boundText(b decimal.NullDecimal) string {
	if !b.Valid {
		return ""
	}
	return b.Decimal.String()
}

func (m catalogTUIModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(), waitForTUIEvent(m.ctx, m.events))
}

// fetch starts a catalog request for the current state. Only the response of
// the most recent request is applied.
func (m catalogTUIModel) fetch() tea.Cmd {
	gen := m.gens.Next()
	ctx, svc := m.ctx, m.service
	q := svc.QueryFor(m.state)
	return func() tea.Msg {
		return tuiResultsMsg{gen: gen, snapshot: svc.Load(ctx, q)}
	}
}

// waitForTUIEvent relays one message posted from outside the update loop,
// such as a debounce timer firing.
func waitForTUIEvent(ctx context.Context, events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-events:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

// scheduleRefresh re-arms the debounce timer; the refresh is posted only when
// no further edit arrives within the delay.
func (m catalogTUIModel) scheduleRefresh() {
	events := m.events
	m.debouncer.Arm(func() {
		select {
		case events <- tuiRefreshMsg{}:
		default:
		}
	})
}

// refreshNow drops any pending debounced refresh and fetches immediately.
func (m *catalogTUIModel) refreshNow() tea.Cmd {
	m.debouncer.Cancel()
	cmds := []tea.Cmd{m.fetch()}
	if !m.refreshing && !m.loading {
		cmds = append(cmds, m.spinner.Tick)
	}
	m.refreshing = true
	return tea.Batch(cmds...)
}

func (m catalogTUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tuiResultsMsg:
		if !m.gens.IsCurrent(msg.gen) {
			return m, nil
		}
		m.loading = false
		m.refreshing = false
		m.products = msg.snapshot.Products
		if len(msg.snapshot.Categories) > 0 {
			m.categories = msg.snapshot.Categories
		}
		m.applyCurrentFilters(false)
		m.resize()
		return m, nil

	case tuiRefreshMsg:
		cmd := m.refreshNow()
		return m, tea.Batch(cmd, waitForTUIEvent(m.ctx, m.events))

	case spinner.TickMsg:
		if m.loading || m.refreshing {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	keyMsg, isKey := msg.(tea.KeyMsg)
	if isKey {
		if keyMsg.String() == "ctrl+c" {
			m.debouncer.Stop()
			return m, tea.Quit
		}
		if m.loading {
			if keyMsg.String() == "q" {
				m.debouncer.Stop()
				return m, tea.Quit
			}
			return m, nil
		}
	}

	if m.focus.isInput() {
		if isKey {
			return m.updateInput(keyMsg)
		}
		cmd := m.updateFocusedInput(msg)
		return m, cmd
	}

	if isKey {
		return m.updateBrowse(keyMsg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m catalogTUIModel) updateInput(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc", "tab":
		m.blurInputs()
		m.focus = tuiFocusList
		return m, nil
	case "enter":
		m.blurInputs()
		m.focus = tuiFocusList
		if m.debouncer.Pending() {
			cmd := m.refreshNow()
			return m, cmd
		}
		return m, nil
	}

	before := m.focusedInput().Value()
	cmd := m.updateFocusedInput(key)
	if m.focusedInput().Value() == before {
		return m, cmd
	}

	m.onInputChanged()
	m.scheduleRefresh()
	return m, cmd
}

// onInputChanged copies the focused input into the filter state. Price edits
// pass through the input guard: a lone "-" or an empty box means no bound,
// and negative or non-numeric entries are replaced with 0.
func (m *catalogTUIModel) onInputChanged() {
	switch m.focus {
	case tuiFocusSearch:
		m.state.Query = m.search.Value()
	case tuiFocusPriceMin:
		m.state.PriceMin = m.guardPriceField(&m.priceMin, &m.minClamped, m.state.PriceMin)
	case tuiFocusPriceMax:
		m.state.PriceMax = m.guardPriceField(&m.priceMax, &m.maxClamped, m.state.PriceMax)
	}
}

// guardPriceField applies the price guard to a bound field. Once a negative
// entry has been clamped to "0", further digits belong to that negative
// number, so the field and its warning stay put until the user deletes it.
func (m *catalogTUIModel) guardPriceField(field *textinput.Model, clamped *bool, current decimal.NullDecimal) decimal.NullDecimal {
	value := field.Value()
	if *clamped && continuesClampedInput(value) {
		field.SetValue("0")
		return current
	}

	in := querystate.GuardPriceInput(value)
	*clamped = in.Warning != ""
	m.priceWarning = in.Warning
	if *clamped {
		field.SetValue(in.Value)
	}
	return in.Bound()
}

func continuesClampedInput(value string) bool {
	rest, ok := strings.CutPrefix(value, "0")
	if !ok || rest == "" {
		return false
	}
	return strings.Trim(rest, "0123456789.,") == ""
}

func (m catalogTUIModel) focusedInput() textinput.Model {
	switch m.focus {
	case tuiFocusPriceMin:
		return m.priceMin
	case tuiFocusPriceMax:
		return m.priceMax
	default:
		return m.search
	}
}

func (m *catalogTUIModel) updateFocusedInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.focus {
	case tuiFocusPriceMin:
		m.priceMin, cmd = m.priceMin.Update(msg)
	case tuiFocusPriceMax:
		m.priceMax, cmd = m.priceMax.Update(msg)
	default:
		m.search, cmd = m.search.Update(msg)
	}
	return cmd
}

func (m *catalogTUIModel) focusInput(f tuiFocus) tea.Cmd {
	m.blurInputs()
	m.focus = f
	m.minClamped, m.maxClamped = false, false
	switch f {
	case tuiFocusPriceMin:
		return m.priceMin.Focus()
	case tuiFocusPriceMax:
		return m.priceMax.Focus()
	default:
		return m.search.Focus()
	}
}

func (m *catalogTUIModel) blurInputs() {
	m.search.Blur()
	m.priceMin.Blur()
	m.priceMax.Blur()
}

func (m catalogTUIModel) updateBrowse(keyMsg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := keyMsg.String()

	switch key {
	case "q":
		m.debouncer.Stop()
		return m, tea.Quit
	case "tab":
		if m.focus == tuiFocusList {
			m.focus = tuiFocusDetail
		} else {
			m.focus = tuiFocusList
		}
		return m, nil
	case "esc":
		if m.focus == tuiFocusDetail {
			m.focus = tuiFocusList
		}
		return m, nil
	case "?":
		m.showHelp = !m.showHelp
		m.resize()
		return m, nil
	case "/":
		cmd := m.focusInput(tuiFocusSearch)
		return m, cmd
	case "m":
		cmd := m.focusInput(tuiFocusPriceMin)
		return m, cmd
	case "M":
		cmd := m.focusInput(tuiFocusPriceMax)
		return m, cmd
	case "s":
		m.cycleSortMode()
		return m, nil
	case "l":
		m.cycleLegacyFilter()
		cmd := m.refreshNow()
		return m, cmd
	case "c":
		if len(m.categories) == 0 {
			return m, nil
		}
		m.categoryCursor = (m.categoryCursor + 1) % len(m.categories)
		return m, nil
	case "x":
		if m.categoryCursor >= len(m.categories) {
			return m, nil
		}
		m.state = m.state.ToggleCategory(m.categories[m.categoryCursor].Slug)
		cmd := m.refreshNow()
		return m, cmd
	case "0":
		if len(m.state.SelectedCategories) == 0 {
			return m, nil
		}
		m.state.SelectedCategories = nil
		cmd := m.refreshNow()
		return m, cmd
	case "r":
		m.resetState()
		cmd := m.refreshNow()
		return m, cmd
	case "R":
		m.service.Invalidate()
		cmd := tea.Batch(m.refreshNow(), m.list.NewStatusMessage("Catalog reloaded."))
		return m, cmd
	}

	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		idx := int(key[0] - '1')
		if idx >= len(m.categories) {
			cmd := m.list.NewStatusMessage(fmt.Sprintf("No category #%d.", idx+1))
			return m, cmd
		}
		m.categoryCursor = idx
		m.state = m.state.ToggleCategory(m.categories[idx].Slug)
		cmd := m.refreshNow()
		return m, cmd
	}

	if m.focus == tuiFocusDetail {
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(keyMsg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(keyMsg)
	m.refreshDetail(false)
	return m, cmd
}

func (m *catalogTUIModel) resetState() {
	m.state = m.initialState
	m.search.SetValue(m.state.Query)
	m.priceMin.SetValue(boundText(m.state.PriceMin))
	m.priceMax.SetValue(boundText(m.state.PriceMax))
	m.priceWarning = ""
	m.minClamped, m.maxClamped = false, false
	m.categoryCursor = 0
}

func (m *catalogTUIModel) cycleSortMode() {
	idx := -1
	for i, mode := range filter.SortModes {
		if mode == m.state.Sort {
			idx = i
			break
		}
	}
	m.state.Sort = filter.SortModes[(idx+1)%len(filter.SortModes)]
	m.applyCurrentFilters(false)
}

func (m *catalogTUIModel) cycleLegacyFilter() {
	idx := indexOfString(legacyChoices, m.state.LegacyFilter)
	m.state.LegacyFilter = legacyChoices[(idx+1)%len(legacyChoices)]
}

func (m *catalogTUIModel) applyCurrentFilters(resetSelection bool) {
	currentID := m.selectedID

	items := filter.ApplyWithThreshold(m.products, m.state, m.service.Threshold())
	items = filter.Sort(items, m.state.Sort)
	m.visible = len(items)

	listItems := make([]list.Item, 0, len(items))
	for _, p := range items {
		listItems = append(listItems, buildTUIProductItem(p))
	}

	m.list.Title = fmt.Sprintf("Products • %d", m.visible)
	m.list.SetItems(listItems)

	target := -1
	if !resetSelection && currentID != "" {
		target = findItemIndexByID(listItems, currentID)
	}
	if target < 0 && len(listItems) > 0 {
		target = 0
	}
	if target >= 0 {
		m.list.Select(target)
	}

	m.refreshDetail(true)
}

func (m *catalogTUIModel) refreshDetail(resetScroll bool) {
	var content string
	nextID := ""

	if selected, ok := m.list.SelectedItem().(tuiProductItem); ok {
		content = renderProductDetailContent(selected.product, m.detail.Width, m.baseURL)
		nextID = stableIDForItem(selected)
	}
	if content == "" {
		content = "No products match the current filters.\n\nPress r to reset or 0 to clear categories."
	}

	if resetScroll || nextID != m.selectedID {
		m.detail.GotoTop()
	}
	m.selectedID = nextID
	m.detail.SetContent(content)
}

func (m catalogTUIModel) View() string {
	if m.loading {
		return m.loadingView()
	}
	if m.width == 0 || m.height == 0 {
		return tuiMetaStyle.Render("Loading interface...")
	}
	if m.tooSmall {
		return lipgloss.NewStyle().
			Padding(1, 2).
			Render(
				fmt.Sprintf(
					"Terminal too small (%dx%d).\nResize to at least %dx%d for the catalog browser.",
					m.width, m.height, minTUIWidth, minTUIHeight,
				),
			)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.headerView(),
		m.bodyView(),
		m.footerView(),
	)
}

func (m catalogTUIModel) loadingView() string {
	width := m.width
	if width == 0 {
		width = 80
	}
	skeletonStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	lines := []string{
		tuiHeaderStyle.Render("kokocli tui"),
		tuiMetaStyle.Render("Preparing catalog browser..."),
		"",
		fmt.Sprintf("%s Fetching products and categories", m.spinner.View()),
		tuiHintStyle.Render("Tip: press q to cancel."),
		"",
		skeletonStyle.Render("┌──────────────────────────────┬─────────────────────────────────────────┐"),
		skeletonStyle.Render("│  Loading product list...     │  Loading detail panel...               │"),
		skeletonStyle.Render("│  • categories                │  • price and discount                  │"),
		skeletonStyle.Render("│  • search ranking            │  • wrapped description text            │"),
		skeletonStyle.Render("│  • price filters             │  • scroll viewport                     │"),
		skeletonStyle.Render("└──────────────────────────────┴─────────────────────────────────────────┘"),
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))
}

const tuiHeaderHeight = 5

func (m *catalogTUIModel) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	if m.loading {
		return
	}

	m.tooSmall = m.width < minTUIWidth || m.height < minTUIHeight
	if m.tooSmall {
		return
	}

	footerH := 3
	if m.showHelp {
		footerH = 8
	}
	m.bodyHeight = maxInt(8, m.height-tuiHeaderHeight-footerH-1)

	listWidth := maxInt(40, int(float64(m.width)*0.43))
	if listWidth > m.width-42 {
		listWidth = m.width / 2
	}
	detailWidth := m.width - listWidth - 1
	if detailWidth < 36 {
		detailWidth = 36
		listWidth = m.width - detailWidth - 1
	}

	m.listPaneWidth = listWidth
	m.detailPaneWidth = detailWidth

	listInnerWidth := maxInt(24, listWidth-4)
	detailInnerWidth := maxInt(24, detailWidth-4)
	panelInnerHeight := maxInt(6, m.bodyHeight-2)

	m.list.SetSize(listInnerWidth, panelInnerHeight)
	m.detail.Width = detailInnerWidth
	m.detail.Height = panelInnerHeight
	m.refreshDetail(false)
}

func (m catalogTUIModel) headerView() string {
	top := "kokocli tui  |  Kokossimo catalog"
	if m.refreshing {
		top += "  " + m.spinner.View()
	}

	summary := display.Summary(m.state)
	if summary == "" {
		summary = "none"
	}
	meta := fmt.Sprintf(
		"products: %d visible / %d loaded  |  filters: %s  |  focus: %s",
		m.visible, len(m.products), summary, m.focus,
	)

	inputs := strings.Join([]string{m.search.View(), m.priceMin.View(), m.priceMax.View()}, "   ")

	return lipgloss.NewStyle().
		Width(m.width).
		MaxHeight(tuiHeaderHeight).
		Padding(0, 1).
		Render(strings.Join([]string{
			tuiHeaderStyle.Render(top),
			tuiMetaStyle.Render(meta),
			inputs,
			m.categoryBar(),
			m.legacyLine(),
		}, "\n"))
}

// categoryBar lists the categories with their toggle keys. Selected ones are
// highlighted and the x-cursor is underlined.
func (m catalogTUIModel) categoryBar() string {
	if len(m.categories) == 0 {
		return tuiMutedStyle.Render("categories: none loaded")
	}
	parts := make([]string, 0, len(m.categories))
	for i, c := range m.categories {
		label := strings.TrimSpace(c.Name)
		if label == "" {
			label = humanizeLabel(c.Slug)
		}
		if i < 9 {
			label = fmt.Sprintf("%d %s", i+1, label)
		}
		style := tuiMutedStyle
		if m.state.HasCategory(c.Slug) {
			style = tuiActiveStyle
		}
		if i == m.categoryCursor {
			style = style.Underline(true)
		}
		parts = append(parts, style.Render(label))
	}
	return lipgloss.NewStyle().MaxWidth(maxInt(20, m.width-2)).Render(strings.Join(parts, "  "))
}

func (m catalogTUIModel) legacyLine() string {
	legacy := m.state.LegacyFilter
	if legacy == "" {
		legacy = "off"
	}
	line := "shortcut: " + legacy
	if len(m.state.SelectedCategories) > 0 && m.state.LegacyFilter != "" {
		line += " (ignored while categories are selected)"
	}
	return tuiMutedStyle.Render(line + "  |  sort: " + m.state.Sort.Label())
}

func (m catalogTUIModel) bodyView() string {
	listBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("241")).
		Padding(0, 1)
	detailBorder := listBorder

	if m.focus == tuiFocusDetail {
		detailBorder = detailBorder.BorderForeground(lipgloss.Color("86"))
	} else {
		listBorder = listBorder.BorderForeground(lipgloss.Color("86"))
	}

	left := listBorder.
		Width(m.listPaneWidth).
		Height(m.bodyHeight).
		Render(m.list.View())
	right := detailBorder.
		Width(m.detailPaneWidth).
		Height(m.bodyHeight).
		Render(m.detail.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

func (m catalogTUIModel) footerView() string {
	base := "Tab pane • / search • m/M price from/to • 1-9 category • c/x pick category • 0 clear • l shortcut • s sort • r reset • R reload • ? help • q quit"
	switch {
	case m.focus.isInput():
		base = "Editing " + m.focus.String() + ": type to update • enter apply now • esc back to list"
	case m.focus == tuiFocusDetail:
		base = "Detail: j/k or ↑/↓ scroll • u/d half-page • b/f page • esc list • ? help • q quit"
	}

	lines := []string{tuiHintStyle.Render(base)}
	if m.showHelp {
		lines = append(lines,
			tuiSectionStyle.Render("Key Help"),
			"search: / focus • typing refreshes after a short pause • enter refreshes immediately",
			"price: m from • M to • empty or \"-\" means no bound • negative or non-numeric becomes 0",
			"categories: 1..9 toggle • c move cursor • x toggle cursor • 0 clear all",
			"other: l cycle bestsellers/new shortcut • s cycle sort • r reset • R reload • tab switch pane",
		)
	}

	url := "url: (no filters)"
	if encoded := querystate.Encode(m.state); encoded != "" {
		url = "url: ?" + encoded
	}
	lines = append(lines, tuiMutedStyle.Render(url))
	if m.priceWarning != "" {
		lines = append(lines, tuiWarnStyle.Render("! "+m.priceWarning))
	}

	return lipgloss.NewStyle().
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

func buildTUIProductItem(p api.Product) tuiProductItem {
	title := strings.TrimSpace(p.Name)
	if title == "" {
		title = "(unnamed product)"
	}

	descParts := []string{display.ProductPrice(p)}
	if slug := strings.TrimSpace(api.Deref(p.CategorySlug)); slug != "" {
		descParts = append(descParts, slug)
	}
	if badges := display.Badges(p); len(badges) > 0 {
		descParts = append(descParts, strings.Join(badges, " "))
	}
	if p.Rating != nil {
		descParts = append(descParts, fmt.Sprintf("★ %.1f", *p.Rating))
	}

	return tuiProductItem{
		product:     p,
		title:       title,
		description: strings.Join(descParts, "  •  "),
	}
}

func renderProductDetailContent(p api.Product, width int, baseURL string) string {
	maxWidth := maxInt(24, width)

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "(unnamed product)"
	}
	desc := strings.TrimSpace(api.Deref(p.Description))
	if desc == "" {
		desc = "No description provided."
	}

	lines := []string{
		tuiTitleStyle.Render(wrapText(name, maxWidth)),
	}
	if badges := display.Badges(p); len(badges) > 0 {
		lines = append(lines, tuiBadgeStyle.Render(strings.Join(badges, "  ")))
	}

	lines = append(lines, "")
	price := fmt.Sprintf("%s %s", tuiMetaStyle.Render("Price:"), tuiValueStyle.Render(display.ProductPrice(p)))
	if orig, ok := display.OriginalPrice(p); ok {
		price += "  " + tuiStrikeStyle.Render(display.FormatPrice(orig))
	}
	lines = append(lines, price)
	if slug := strings.TrimSpace(api.Deref(p.CategorySlug)); slug != "" {
		lines = append(lines, fmt.Sprintf("%s %s", tuiMetaStyle.Render("Category:"), slug))
	}
	if p.Rating != nil {
		lines = append(lines, fmt.Sprintf("%s ★ %.1f", tuiMetaStyle.Render("Rating:"), *p.Rating))
	}

	lines = append(lines, "")
	lines = append(lines, tuiMetaStyle.Render("Description:"))
	lines = append(lines, wrapText(desc, maxWidth))

	if img := display.ImageURL(baseURL, p.Image); img != "" {
		lines = append(lines, "")
		lines = append(lines, tuiMutedStyle.Render("Image URL:"))
		lines = append(lines, tuiMutedStyle.Render(wrapText(img, maxWidth)))
	}
	if id := p.ID.String(); id != "" {
		lines = append(lines, "")
		lines = append(lines, tuiMutedStyle.Render("kokocli product "+id))
	}

	return strings.Join(lines, "\n")
}

func wrapText(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	if width < 12 {
		width = 12
	}

	line := words[0]
	lineLen := utf8.RuneCountInString(line)
	lines := make([]string, 0, len(words)/6+1)
	for _, w := range words[1:] {
		wLen := utf8.RuneCountInString(w)
		if lineLen+1+wLen > width {
			lines = append(lines, line)
			line, lineLen = w, wLen
			continue
		}
		line += " " + w
		lineLen += 1 + wLen
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func indexOfString(values []string, target string) int {
	for i, value := range values {
		if value == target {
			return i
		}
	}
	return -1
}

func findItemIndexByID(items []list.Item, stableID string) int {
	for i, item := range items {
		if stableIDForItem(item) == stableID {
			return i
		}
	}
	return -1
}

func stableIDForItem(item list.Item) string {
	value, ok := item.(tuiProductItem)
	if !ok {
		return ""
	}
	if id := value.product.ID.String(); id != "" {
		return "product:" + id
	}
	return "product:name:" + strings.ToLower(strings.TrimSpace(value.title))
}

func humanizeLabel(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "Other"
	}
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	words := strings.Fields(strings.ToLower(s))
	for i, word := range words {
		r, size := utf8.DecodeRuneInString(word)
		words[i] = strings.ToUpper(string(r)) + word[size:]
	}
	return strings.Join(words, " ")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
