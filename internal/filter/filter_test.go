package filter_test

import (
	"testing"

	"github.com/kokossimo/kokocli/internal/api"
	"github.com/kokossimo/kokocli/internal/filter"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func bound(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func ids(products []api.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID.String())
	}
	return out
}

func sampleProducts() []api.Product {
	return []api.Product{
		{
			ID:           "1",
			Name:         "Увлажняющий крем",
			Price:        "2490.00",
			CategorySlug: ptr("face"),
			IsBestseller: true,
		},
		{
			ID:           "2",
			Name:         "Тоник для лица",
			Price:        "1290",
			CategorySlug: ptr("face"),
			IsNew:        true,
		},
		{
			ID:           "3",
			Name:         "Парфюмерная вода",
			Description:  ptr("Цветочный аромат"),
			Price:        "7990.00",
			CategorySlug: ptr("parfume"),
			IsBestseller: true,
		},
		{
			ID:           "4",
			Name:         "Крем для тела",
			Price:        "abc",
			CategorySlug: ptr("body"),
			IsNew:        true,
		},
		{
			ID:    "5",
			Name:  "Подарочный сертификат",
			Price: "5000",
		},
		{
			ID:           "6",
			Name:         "Туалетная вода",
			Price:        "5000.00",
			CategorySlug: ptr("parfume"),
		},
	}
}

func TestApply_NoFilters(t *testing.T) {
	items := sampleProducts()
	result := filter.Apply(items, filter.State{})
	assert.Equal(t, items, result)
}

func TestApply_SelectedCategories(t *testing.T) {
	result := filter.Apply(sampleProducts(), filter.State{SelectedCategories: []string{"parfume", "body"}})
	assert.Equal(t, []string{"3", "4", "6"}, ids(result))
}

func TestApply_MissingCategorySlugNeverMatches(t *testing.T) {
	result := filter.Apply(sampleProducts(), filter.State{SelectedCategories: []string{""}})
	assert.Empty(t, result)
}

func TestApply_CategoriesOverrideLegacyFilter(t *testing.T) {
	result := filter.Apply(sampleProducts(), filter.State{
		SelectedCategories: []string{"parfume"},
		LegacyFilter:       filter.LegacyBestsellers,
	})
	assert.Equal(t, []string{"3", "6"}, ids(result))
}

func TestApply_LegacyBestsellers(t *testing.T) {
	result := filter.Apply(sampleProducts(), filter.State{LegacyFilter: "bestsellers"})
	assert.Equal(t, []string{"1", "3"}, ids(result))
}

func TestApply_LegacyNew(t *testing.T) {
	result := filter.Apply(sampleProducts(), filter.State{LegacyFilter: "new"})
	assert.Equal(t, []string{"2", "4"}, ids(result))
}

func TestApply_LegacyCategorySlug(t *testing.T) {
	result := filter.Apply(sampleProducts(), filter.State{LegacyFilter: "face"})
	assert.Equal(t, []string{"1", "2"}, ids(result))
}

func TestApply_PriceMinOnly(t *testing.T) {
	result := filter.Apply(sampleProducts(), filter.State{PriceMin: bound("5000")})
	assert.Equal(t, []string{"3", "5", "6"}, ids(result))
}

func TestApply_PriceRange(t *testing.T) {
	result := filter.Apply(sampleProducts(), filter.State{
		PriceMin: bound("1000"),
		PriceMax: bound("2490"),
	})
	assert.Equal(t, []string{"1", "2"}, ids(result))
}

func TestApply_InvertedPriceRangeIsEmpty(t *testing.T) {
	result := filter.Apply(sampleProducts(), filter.State{
		PriceMin: bound("5000"),
		PriceMax: bound("100"),
	})
	assert.Empty(t, result)
}

func TestApply_UnparseablePriceKeptWithoutBounds(t *testing.T) {
	result := filter.Apply(sampleProducts(), filter.State{SelectedCategories: []string{"body"}})
	assert.Equal(t, []string{"4"}, ids(result))

	result = filter.Apply(sampleProducts(), filter.State{
		SelectedCategories: []string{"body"},
		PriceMax:           bound("100000"),
	})
	assert.Empty(t, result)
}

func TestApply_QueryRanksThenFilters(t *testing.T) {
	items := []api.Product{
		{ID: "a", Name: "Крэм ночной", Price: "100", CategorySlug: ptr("face")},
		{ID: "b", Name: "Крем дневной", Price: "200", CategorySlug: ptr("face")},
		{ID: "c", Name: "Крем для тела", Price: "300", CategorySlug: ptr("body")},
		{ID: "d", Name: "Тоник", Price: "50", CategorySlug: ptr("face")},
	}

	result := filter.Apply(items, filter.State{
		Query:              "крем",
		SelectedCategories: []string{"face"},
	})

	assert.Equal(t, []string{"b", "a"}, ids(result))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	items := sampleProducts()
	snapshot := sampleProducts()

	_ = filter.Apply(items, filter.State{
		Query:              "вода",
		SelectedCategories: []string{"parfume"},
		PriceMin:           bound("1"),
	})

	assert.Equal(t, snapshot, items)
}

func TestStateEffectiveCategories(t *testing.T) {
	assert.Nil(t, filter.State{}.EffectiveCategories())
	assert.Nil(t, filter.State{LegacyFilter: "bestsellers"}.EffectiveCategories())
	assert.Nil(t, filter.State{LegacyFilter: "new"}.EffectiveCategories())
	assert.Equal(t, []string{"face"}, filter.State{LegacyFilter: " face "}.EffectiveCategories())
	assert.Equal(t, []string{"body"}, filter.State{
		SelectedCategories: []string{"body"},
		LegacyFilter:       "face",
	}.EffectiveCategories())
}

func TestStateToggleCategory(t *testing.T) {
	st := filter.State{SelectedCategories: []string{"face"}}

	added := st.ToggleCategory("body")
	assert.Equal(t, []string{"face", "body"}, added.SelectedCategories)
	assert.Equal(t, []string{"face"}, st.SelectedCategories, "original state must not change")
	assert.True(t, added.HasCategory("body"))

	removed := added.ToggleCategory("face")
	assert.Equal(t, []string{"body"}, removed.SelectedCategories)
	assert.False(t, removed.HasCategory("face"))

	assert.Equal(t, removed, removed.ToggleCategory("  "))
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		price string
		want  string
		ok    bool
	}{
		{"1290.00", "1290", true},
		{" 990 ", "990", true},
		{"0", "0", true},
		{"", "", false},
		{"abc", "", false},
		{"1 290", "", false},
	}
	for _, tt := range tests {
		got, ok := filter.ParsePrice(api.Product{Price: api.Text(tt.price)})
		require.Equal(t, tt.ok, ok, "ParsePrice(%q)", tt.price)
		if ok {
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "ParsePrice(%q) = %s", tt.price, got)
		}
	}
}

func TestCategoryCounts(t *testing.T) {
	counts := filter.CategoryCounts(sampleProducts())

	assert.Equal(t, map[string]int{"face": 2, "parfume": 2, "body": 1}, counts)
}

func TestLimit(t *testing.T) {
	items := sampleProducts()

	assert.Len(t, filter.Limit(items, 2), 2)
	assert.Len(t, filter.Limit(items, 0), len(items))
	assert.Len(t, filter.Limit(items, 100), len(items))
}
