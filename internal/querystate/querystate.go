// Package querystate maps a catalog filter.State to and from storefront URL
// query parameters.
package querystate

import (
	"net/url"
	"strings"

	"github.com/kokossimo/kokocli/internal/filter"
	"github.com/shopspring/decimal"
)

// URL parameter keys understood by the storefront catalog page.
const (
	KeyQuery    = "q"
	KeyFilter   = "filter"
	KeyCategory = "category"
	KeyPriceMin = "price_min"
	KeyPriceMax = "price_max"
)

// Parse builds a filter.State from URL parameters.
//
// Categories keep the order of first appearance. The legacy filter key is read
// only when no category was given. Price bounds that are malformed or negative
// are ignored rather than clamped.
func Parse(params url.Values) filter.State {
	st := filter.State{
		Query:              params.Get(KeyQuery),
		SelectedCategories: uniqueNonEmpty(params[KeyCategory]),
		PriceMin:           parseBound(params.Get(KeyPriceMin)),
		PriceMax:           parseBound(params.Get(KeyPriceMax)),
	}
	if len(st.SelectedCategories) == 0 {
		st.LegacyFilter = strings.TrimSpace(params.Get(KeyFilter))
	}
	return st
}

// ParseRaw parses a full storefront URL or a bare query string, with or
// without the leading "?".
func ParseRaw(raw string) (filter.State, error) {
	raw = strings.TrimSpace(raw)

	query := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return filter.State{}, err
		}
		query = u.RawQuery
	} else if i := strings.IndexByte(raw, '?'); i >= 0 {
		query = raw[i+1:]
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return filter.State{}, err
	}
	return Parse(params), nil
}

// Serialize encodes st as URL parameters. The legacy filter is never emitted:
// once a state is written back, categories are the only category encoding.
func Serialize(st filter.State) url.Values {
	params := url.Values{}
	if st.Query != "" {
		params.Set(KeyQuery, st.Query)
	}
	for _, slug := range st.SelectedCategories {
		if slug != "" {
			params.Add(KeyCategory, slug)
		}
	}
	if st.PriceMin.Valid {
		params.Set(KeyPriceMin, st.PriceMin.Decimal.String())
	}
	if st.PriceMax.Valid {
		params.Set(KeyPriceMax, st.PriceMax.Decimal.String())
	}
	return params
}

// Encode is Serialize followed by url.Values.Encode.
func Encode(st filter.State) string {
	return Serialize(st).Encode()
}

func parseBound(raw string) decimal.NullDecimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func uniqueNonEmpty(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
