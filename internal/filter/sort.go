package filter

import (
	"slices"
	"sort"
	"strings"

	"github.com/kokossimo/kokocli/internal/api"
	"github.com/shopspring/decimal"
)

// SortMode selects the order of the filtered product list.
type SortMode string

const (
	SortRelevance SortMode = "relevance"
	SortPriceAsc  SortMode = "price_asc"
	SortPriceDesc SortMode = "price_desc"
	SortNewFirst  SortMode = "new_first"
)

// SortModes lists the canonical sort modes in display order.
var SortModes = []SortMode{SortRelevance, SortPriceAsc, SortPriceDesc, SortNewFirst}

// ParseSortMode resolves a sort mode or one of the storefront's aliases.
// Unknown values report false and resolve to relevance.
func ParseSortMode(raw string) (SortMode, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "relevance", "popular", "default":
		return SortRelevance, true
	case "price_asc", "price-asc", "price", "cheap", "cheapest":
		return SortPriceAsc, true
	case "price_desc", "price-desc", "expensive":
		return SortPriceDesc, true
	case "new_first", "new-first", "new", "newest":
		return SortNewFirst, true
	default:
		return SortRelevance, false
	}
}

// Label returns a short human label for the mode.
func (m SortMode) Label() string {
	switch m {
	case SortPriceAsc:
		return "price ↑"
	case SortPriceDesc:
		return "price ↓"
	case SortNewFirst:
		return "new first"
	default:
		return "relevance"
	}
}

// Sort returns a reordered copy of products; the input is not modified.
//
// Relevance keeps the input order. Price modes sort numerically and always
// place products with a missing or malformed price last, in input order. New
// first is a stable partition, not a comparison sort.
func Sort(products []api.Product, mode SortMode) []api.Product {
	switch mode {
	case SortPriceAsc, SortPriceDesc:
		return sortByPrice(products, mode == SortPriceDesc)
	case SortNewFirst:
		return partitionNew(products)
	default:
		return slices.Clone(products)
	}
}

type pricedProduct struct {
	product api.Product
	price   decimal.Decimal
	ok      bool
}

func sortByPrice(products []api.Product, desc bool) []api.Product {
	keyed := make([]pricedProduct, len(products))
	for i, p := range products {
		price, ok := ParsePrice(p)
		keyed[i] = pricedProduct{product: p, price: price, ok: ok}
	}

	sort.SliceStable(keyed, func(i, j int) bool {
		a, b := keyed[i], keyed[j]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return false
		}
		if desc {
			return a.price.GreaterThan(b.price)
		}
		return a.price.LessThan(b.price)
	})

	out := make([]api.Product, len(keyed))
	for i, k := range keyed {
		out[i] = k.product
	}
	return out
}

func partitionNew(products []api.Product) []api.Product {
	out := make([]api.Product, 0, len(products))
	for _, p := range products {
		if p.IsNew {
			out = append(out, p)
		}
	}
	for _, p := range products {
		if !p.IsNew {
			out = append(out, p)
		}
	}
	return out
}
