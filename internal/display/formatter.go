package display

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kokossimo/kokocli/internal/api"
	"github.com/kokossimo/kokocli/internal/filter"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Styles for terminal output.
var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	newTag       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")) // magenta
	saleTag      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")) // red
	hitTag       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")) // yellow
	priceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))            // green
	oldPrice     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	cyanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// NoPrice is shown for products whose price is missing or malformed.
const NoPrice = "price not specified"

var rub = message.NewPrinter(language.Russian)

// ProductJSON is the JSON output shape for a product.
type ProductJSON struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Price        *string  `json:"price"`
	Category     string   `json:"category"`
	IsBestseller bool     `json:"isBestseller"`
	IsNew        bool     `json:"isNew"`
	Discount     int      `json:"discount"`
	Rating       *float64 `json:"rating,omitempty"`
	ImageURL     string   `json:"imageUrl"`
}

// CategoryJSON is the JSON output shape for a category.
type CategoryJSON struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RatingJSON is the JSON output shape for a product review.
type RatingJSON struct {
	Value   int    `json:"value"`
	Author  string `json:"author"`
	Comment string `json:"comment"`
	Created string `json:"createdAt"`
}

// ProductDetailJSON is the JSON output shape for the product command.
type ProductDetailJSON struct {
	ProductJSON
	Ratings []RatingJSON `json:"ratings"`
}

// FormatPrice renders a price the way the storefront does: grouped digits
// and a rouble sign.
func FormatPrice(d decimal.Decimal) string {
	if d.IsInteger() {
		return rub.Sprintf("%d ₽", d.IntPart())
	}
	return rub.Sprintf("%.2f ₽", d.Round(2).InexactFloat64())
}

// ProductPrice returns the display price of p, or NoPrice.
func ProductPrice(p api.Product) string {
	d, ok := filter.ParsePrice(p)
	if !ok {
		return NoPrice
	}
	return FormatPrice(d)
}

// OriginalPrice reconstructs the pre-discount price of p. It reports false
// when p has no discount or no usable price.
func OriginalPrice(p api.Product) (decimal.Decimal, bool) {
	if p.Discount <= 0 || p.Discount >= 100 {
		return decimal.Decimal{}, false
	}
	d, ok := filter.ParsePrice(p)
	if !ok {
		return decimal.Decimal{}, false
	}
	return d.Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(100 - p.Discount))).Round(0), true
}

// ImageURL resolves a product image path against the catalog base URL.
// Relative paths are served from the API host root.
func ImageURL(baseURL string, image *string) string {
	img := strings.TrimSpace(api.Deref(image))
	if img == "" || strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") {
		return img
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return img
	}
	if !strings.HasPrefix(img, "/") {
		img = "/" + img
	}
	return u.Scheme + "://" + u.Host + img
}

// PrintProducts renders a list of products to the writer.
func PrintProducts(w io.Writer, items []api.Product, st filter.State) {
	fmt.Fprintf(w, "\n%s — %s\n",
		headerStyle.Render("Kokossimo catalog"),
		cyanStyle.Render(fmt.Sprintf("%d products", len(items))),
	)
	if summary := Summary(st); summary != "" {
		fmt.Fprintf(w, "%s\n", dimStyle.Render(summary))
	}
	fmt.Fprintln(w)

	if len(items) == 0 {
		fmt.Fprintf(w, "  %s\n\n", dimStyle.Render("No products found."))
		return
	}

	for _, item := range items {
		printProduct(w, item)
		fmt.Fprintln(w)
	}
}

// PrintProductsJSON renders products as JSON.
func PrintProductsJSON(w io.Writer, items []api.Product, baseURL string) error {
	out := make([]ProductJSON, 0, len(items))
	for _, item := range items {
		out = append(out, toProductJSON(item, baseURL))
	}
	return json.NewEncoder(w).Encode(out)
}

// PrintProduct renders one product with its reviews.
func PrintProduct(w io.Writer, p api.Product, ratings []api.Rating, baseURL string) {
	fmt.Fprintln(w)
	printProduct(w, p)

	if img := ImageURL(baseURL, p.Image); img != "" {
		fmt.Fprintf(w, "    %s\n", dimStyle.Render(img))
	}

	fmt.Fprintln(w)
	if len(ratings) == 0 {
		fmt.Fprintf(w, "  %s\n\n", dimStyle.Render("No reviews yet."))
		return
	}

	fmt.Fprintf(w, "  %s %s\n",
		titleStyle.Render(fmt.Sprintf("Reviews (%d)", len(ratings))),
		hitTag.Render(fmt.Sprintf("%.1f", AverageRating(ratings))),
	)
	for _, r := range ratings {
		author := strings.TrimSpace(api.Deref(r.Author))
		if author == "" {
			author = "anonymous"
		}
		fmt.Fprintf(w, "    %s %s\n", hitTag.Render(stars(r.Value)), cyanStyle.Render(author))
		if comment := strings.TrimSpace(api.Deref(r.Comment)); comment != "" {
			fmt.Fprintf(w, "      %s\n", wordWrap(comment, 70, "      "))
		}
	}
	fmt.Fprintln(w)
}

// PrintProductJSON renders one product with its reviews as JSON.
func PrintProductJSON(w io.Writer, p api.Product, ratings []api.Rating, baseURL string) error {
	out := ProductDetailJSON{
		ProductJSON: toProductJSON(p, baseURL),
		Ratings:     make([]RatingJSON, 0, len(ratings)),
	}
	for _, r := range ratings {
		out.Ratings = append(out.Ratings, RatingJSON{
			Value:   r.Value,
			Author:  strings.TrimSpace(api.Deref(r.Author)),
			Comment: strings.TrimSpace(api.Deref(r.Comment)),
			Created: r.Created,
		})
	}
	return json.NewEncoder(w).Encode(out)
}

// AverageRating returns the mean review value, or 0 without reviews.
func AverageRating(ratings []api.Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Value
	}
	return float64(sum) / float64(len(ratings))
}

// SortCategories orders categories by product count, then name.
func SortCategories(cats []api.Category, counts map[string]int) []CategoryJSON {
	out := make([]CategoryJSON, 0, len(cats))
	for _, c := range cats {
		out = append(out, CategoryJSON{Slug: c.Slug, Name: c.Name, Count: counts[c.Slug]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// PrintCategories renders categories with their product counts.
func PrintCategories(w io.Writer, cats []api.Category, counts map[string]int) {
	fmt.Fprintf(w, "\n%s\n\n", titleStyle.Render("Categories:"))
	if len(cats) == 0 {
		fmt.Fprintf(w, "  %s\n\n", dimStyle.Render("No categories available."))
		return
	}
	for _, c := range SortCategories(cats, counts) {
		fmt.Fprintf(w, "  %s %s: %d products\n", cyanStyle.Render(c.Slug), dimStyle.Render("("+c.Name+")"), c.Count)
	}
	fmt.Fprintln(w)
}

// PrintCategoriesJSON renders categories as JSON.
func PrintCategoriesJSON(w io.Writer, cats []api.Category, counts map[string]int) error {
	return json.NewEncoder(w).Encode(SortCategories(cats, counts))
}

// PrintSuggestions renders autocomplete suggestions for query.
func PrintSuggestions(w io.Writer, query string, names []string) {
	if len(names) == 0 {
		fmt.Fprintf(w, "%s\n", dimStyle.Render(fmt.Sprintf("No suggestions for %q.", query)))
		return
	}
	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", n)
	}
}

// PrintSuggestionsJSON renders suggestions as a JSON array.
func PrintSuggestionsJSON(w io.Writer, names []string) error {
	if names == nil {
		names = []string{}
	}
	return json.NewEncoder(w).Encode(names)
}

// PrintError prints a styled error message.
func PrintError(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render(msg))
}

// PrintWarning prints a styled warning message.
func PrintWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, warningStyle.Render(msg))
}

// Badges returns the short markers shown next to a product name.
func Badges(p api.Product) []string {
	var out []string
	if p.IsNew {
		out = append(out, "NEW")
	}
	if p.IsBestseller {
		out = append(out, "HIT")
	}
	if p.Discount > 0 && p.Discount < 100 {
		out = append(out, fmt.Sprintf("-%d%%", p.Discount))
	}
	return out
}

func printProduct(w io.Writer, p api.Product) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "Product #" + p.ID.String()
	}

	var tags []string
	for _, b := range Badges(p) {
		switch {
		case b == "NEW":
			tags = append(tags, newTag.Render(b))
		case b == "HIT":
			tags = append(tags, hitTag.Render(b))
		default:
			tags = append(tags, saleTag.Render(b))
		}
	}
	tag := ""
	if len(tags) > 0 {
		tag = strings.Join(tags, " ") + " "
	}
	fmt.Fprintf(w, "  %s%s %s\n", tag, titleStyle.Render(name), dimStyle.Render("#"+p.ID.String()))

	priceLine := priceStyle.Render(ProductPrice(p))
	if orig, ok := OriginalPrice(p); ok {
		priceLine += " " + oldPrice.Render(FormatPrice(orig))
	}
	var meta []string
	if slug := api.Deref(p.CategorySlug); slug != "" {
		meta = append(meta, slug)
	}
	if p.Rating != nil {
		meta = append(meta, fmt.Sprintf("★ %.1f", *p.Rating))
	}
	if len(meta) > 0 {
		priceLine += " | " + dimStyle.Render(strings.Join(meta, " | "))
	}
	fmt.Fprintf(w, "    %s\n", priceLine)

	if desc := strings.TrimSpace(api.Deref(p.Description)); desc != "" {
		fmt.Fprintf(w, "    %s\n", dimStyle.Render(wordWrap(desc, 72, "    ")))
	}
}

func toProductJSON(p api.Product, baseURL string) ProductJSON {
	var price *string
	if d, ok := filter.ParsePrice(p); ok {
		s := d.String()
		price = &s
	}
	return ProductJSON{
		ID:           p.ID.String(),
		Name:         strings.TrimSpace(p.Name),
		Description:  strings.TrimSpace(api.Deref(p.Description)),
		Price:        price,
		Category:     api.Deref(p.CategorySlug),
		IsBestseller: p.IsBestseller,
		IsNew:        p.IsNew,
		Discount:     p.Discount,
		Rating:       p.Rating,
		ImageURL:     ImageURL(baseURL, p.Image),
	}
}

func stars(n int) string {
	n = max(0, min(n, 5))
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func wordWrap(text string, width int, indent string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len([]rune(line))+1+len([]rune(w)) > width {
			lines = append(lines, line)
			line = w
		} else {
			line += " " + w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n"+indent)
}
