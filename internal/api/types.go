package api

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Product is a single catalog item as served by the storefront API.
type Product struct {
	ID           Text     `json:"id"`
	Name         string   `json:"name"`
	Description  *string  `json:"description"`
	Price        Text     `json:"price"`
	Image        *string  `json:"image"`
	CategorySlug *string  `json:"category_slug"`
	IsBestseller bool     `json:"is_bestseller"`
	IsNew        bool     `json:"is_new"`
	Discount     int      `json:"discount"`
	Rating       *float64 `json:"rating"`
}

// Category is a catalog category. Slug is the filter key, not ID.
type Category struct {
	ID    Text    `json:"id"`
	Name  string  `json:"name"`
	Slug  string  `json:"slug"`
	Image *string `json:"image"`
}

// Rating is a single customer rating of a product.
type Rating struct {
	ID      Text    `json:"id"`
	Value   int     `json:"value"`
	Comment *string `json:"comment"`
	Author  *string `json:"author"`
	Created string  `json:"created_at"`
}

// ProductQuery holds the server-side narrowing parameters for GET /products/.
type ProductQuery struct {
	Categories  []string
	PriceMin    string
	PriceMax    string
	Bestsellers bool
	NewArrivals bool
}

// Text is a JSON scalar kept in its textual form. Both JSON strings and JSON
// numbers decode into it, so "1290.00" and 1290 are both accepted for prices
// and ids.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(b)
	return nil
}

// String returns the trimmed text.
func (t Text) String() string {
	return strings.TrimSpace(string(t))
}
