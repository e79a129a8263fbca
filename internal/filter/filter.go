package filter

import (
	"strings"

	"github.com/kokossimo/kokocli/internal/api"
	"github.com/kokossimo/kokocli/internal/search"
	"github.com/shopspring/decimal"
)

// Legacy single-value filters that select a virtual product set instead of a
// category.
const (
	LegacyBestsellers = "bestsellers"
	LegacyNew         = "new"
)

// State holds all catalog filter criteria. The zero value filters nothing.
type State struct {
	Query              string
	SelectedCategories []string
	PriceMin           decimal.NullDecimal
	PriceMax           decimal.NullDecimal
	Sort               SortMode

	// LegacyFilter is "bestsellers", "new" or a bare category slug. It is
	// consulted only while SelectedCategories is empty.
	LegacyFilter string
}

// EffectiveCategories returns the category slugs the pipeline filters by:
// SelectedCategories when present, else a legacy slug, else nothing.
func (s State) EffectiveCategories() []string {
	if len(s.SelectedCategories) > 0 {
		return s.SelectedCategories
	}
	switch legacy := strings.TrimSpace(s.LegacyFilter); legacy {
	case "", LegacyBestsellers, LegacyNew:
		return nil
	default:
		return []string{legacy}
	}
}

// HasPriceBounds reports whether either price bound is set.
func (s State) HasPriceBounds() bool {
	return s.PriceMin.Valid || s.PriceMax.Valid
}

// HasCategory reports whether slug is among the selected categories.
func (s State) HasCategory(slug string) bool {
	for _, c := range s.SelectedCategories {
		if c == slug {
			return true
		}
	}
	return false
}

// ToggleCategory returns a copy of s with slug added to or removed from the
// selected categories. Selection order is kept for display.
func (s State) ToggleCategory(slug string) State {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return s
	}

	next := make([]string, 0, len(s.SelectedCategories)+1)
	removed := false
	for _, c := range s.SelectedCategories {
		if c == slug {
			removed = true
			continue
		}
		next = append(next, c)
	}
	if !removed {
		next = append(next, slug)
	}
	s.SelectedCategories = next
	return s
}

// Apply filters products according to st using the default search threshold.
func Apply(products []api.Product, st State) []api.Product {
	return ApplyWithThreshold(products, st, search.DefaultThreshold)
}

// ApplyWithThreshold filters products according to st. A non-empty query is
// ranked first and establishes the order; the remaining filters only remove
// products and never reorder them.
func ApplyWithThreshold(products []api.Product, st State, threshold float64) []api.Product {
	result := products
	if strings.TrimSpace(st.Query) != "" {
		result = search.Rank(result, st.Query, threshold)
	}

	var preds []func(api.Product) bool

	if cats := st.EffectiveCategories(); len(cats) > 0 {
		set := make(map[string]struct{}, len(cats))
		for _, c := range cats {
			set[c] = struct{}{}
		}
		preds = append(preds, func(p api.Product) bool {
			if p.CategorySlug == nil {
				return false
			}
			_, ok := set[*p.CategorySlug]
			return ok
		})
	} else {
		switch strings.TrimSpace(st.LegacyFilter) {
		case LegacyBestsellers:
			preds = append(preds, func(p api.Product) bool { return p.IsBestseller })
		case LegacyNew:
			preds = append(preds, func(p api.Product) bool { return p.IsNew })
		}
	}

	if st.HasPriceBounds() {
		lo, hi := st.PriceMin, st.PriceMax
		preds = append(preds, func(p api.Product) bool {
			price, ok := ParsePrice(p)
			if !ok {
				return false
			}
			if lo.Valid && price.LessThan(lo.Decimal) {
				return false
			}
			if hi.Valid && price.GreaterThan(hi.Decimal) {
				return false
			}
			return true
		})
	}

	if len(preds) == 0 {
		return result
	}
	return where(result, func(p api.Product) bool {
		for _, pred := range preds {
			if !pred(p) {
				return false
			}
		}
		return true
	})
}

// ParsePrice parses a product's price. Missing or malformed prices report false.
func ParsePrice(p api.Product) (decimal.Decimal, bool) {
	raw := p.Price.String()
	if raw == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// CategoryCounts returns the number of products per category slug.
func CategoryCounts(products []api.Product) map[string]int {
	counts := make(map[string]int)
	for _, p := range products {
		if slug := strings.TrimSpace(api.Deref(p.CategorySlug)); slug != "" {
			counts[slug]++
		}
	}
	return counts
}

// Limit truncates products to at most n items. n <= 0 means no limit.
func Limit(products []api.Product, n int) []api.Product {
	if n > 0 && n < len(products) {
		return products[:n]
	}
	return products
}

func where(items []api.Product, fn func(api.Product) bool) []api.Product {
	var result []api.Product
	for _, item := range items {
		if fn(item) {
			result = append(result, item)
		}
	}
	return result
}
