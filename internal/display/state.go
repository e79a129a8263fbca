package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kokossimo/kokocli/internal/filter"
	"github.com/shopspring/decimal"
)

// StateJSON is the JSON output shape for a filter state.
type StateJSON struct {
	Query        string   `json:"query"`
	Categories   []string `json:"categories"`
	LegacyFilter string   `json:"legacyFilter,omitempty"`
	PriceMin     *string  `json:"priceMin"`
	PriceMax     *string  `json:"priceMax"`
	Sort         string   `json:"sort"`
	URL          string   `json:"url"`
}

// Summary describes the active filters on one line, or "" when none are set.
func Summary(st filter.State) string {
	var parts []string
	if q := strings.TrimSpace(st.Query); q != "" {
		parts = append(parts, fmt.Sprintf("search: %q", q))
	}
	if len(st.SelectedCategories) > 0 {
		parts = append(parts, "categories: "+strings.Join(st.SelectedCategories, ", "))
	} else if legacy := strings.TrimSpace(st.LegacyFilter); legacy != "" {
		parts = append(parts, "filter: "+legacy)
	}
	if st.HasPriceBounds() {
		parts = append(parts, "price: "+PriceRange(st.PriceMin, st.PriceMax))
	}
	if st.Sort != "" && st.Sort != filter.SortRelevance {
		parts = append(parts, "sort: "+st.Sort.Label())
	}
	return strings.Join(parts, " | ")
}

// PriceRange renders a price interval with open ends shown as "…".
func PriceRange(lo, hi decimal.NullDecimal) string {
	from, to := "…", "…"
	if lo.Valid {
		from = FormatPrice(lo.Decimal)
	}
	if hi.Valid {
		to = FormatPrice(hi.Decimal)
	}
	return from + " – " + to
}

// ToStateJSON converts st and its canonical query string for output.
func ToStateJSON(st filter.State, encoded string) StateJSON {
	cats := st.SelectedCategories
	if cats == nil {
		cats = []string{}
	}
	sortMode := st.Sort
	if sortMode == "" {
		sortMode = filter.SortRelevance
	}
	return StateJSON{
		Query:        st.Query,
		Categories:   cats,
		LegacyFilter: st.LegacyFilter,
		PriceMin:     boundString(st.PriceMin),
		PriceMax:     boundString(st.PriceMax),
		Sort:         string(sortMode),
		URL:          encoded,
	}
}

// PrintState renders a parsed filter state and its canonical encoding.
func PrintState(w io.Writer, st filter.State, encoded string) {
	s := ToStateJSON(st, encoded)

	fmt.Fprintf(w, "\n%s\n\n", titleStyle.Render("Filter state:"))
	fmt.Fprintf(w, "  %-12s %s\n", "query", orDash(s.Query))
	fmt.Fprintf(w, "  %-12s %s\n", "categories", orDash(strings.Join(s.Categories, ", ")))
	if s.LegacyFilter != "" {
		fmt.Fprintf(w, "  %-12s %s %s\n", "filter", s.LegacyFilter, dimStyle.Render("(legacy, not re-emitted)"))
	}
	fmt.Fprintf(w, "  %-12s %s\n", "price_min", orDash(deref(s.PriceMin)))
	fmt.Fprintf(w, "  %-12s %s\n", "price_max", orDash(deref(s.PriceMax)))
	fmt.Fprintf(w, "  %-12s %s\n", "sort", filter.SortMode(s.Sort).Label())
	fmt.Fprintf(w, "\n  %s %s\n\n", dimStyle.Render("canonical:"), cyanStyle.Render("?"+s.URL))
}

// PrintStateJSON renders a filter state as JSON.
func PrintStateJSON(w io.Writer, st filter.State, encoded string) error {
	return json.NewEncoder(w).Encode(ToStateJSON(st, encoded))
}

func boundString(b decimal.NullDecimal) *string {
	if !b.Valid {
		return nil
	}
	s := b.Decimal.String()
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
