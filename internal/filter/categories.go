package filter

import (
	"strings"

	"github.com/kokossimo/kokocli/internal/api"
	"github.com/kokossimo/kokocli/internal/search"
)

// ResolveCategories maps user-typed category references to slugs. A known
// slug is kept as is; otherwise a category whose display name normalizes to
// the same text wins ("Лицо", "ЛИЦО " -> "face"). Unknown values pass through
// unchanged so the caller can report them. Duplicates after resolution are
// dropped, first occurrence wins.
func ResolveCategories(values []string, cats []api.Category) []string {
	if len(values) == 0 {
		return values
	}

	slugs := make(map[string]struct{}, len(cats))
	byName := make(map[string]string, len(cats))
	for _, c := range cats {
		slug := strings.TrimSpace(c.Slug)
		if slug == "" {
			continue
		}
		slugs[slug] = struct{}{}
		if name := search.Normalize(c.Name); name != "" {
			if _, taken := byName[name]; !taken {
				byName[name] = slug
			}
		}
	}

	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		resolved := resolveCategory(strings.TrimSpace(v), slugs, byName)
		if resolved == "" {
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		out = append(out, resolved)
	}
	return out
}

func resolveCategory(v string, slugs map[string]struct{}, byName map[string]string) string {
	if v == "" {
		return ""
	}
	if _, ok := slugs[v]; ok {
		return v
	}
	if lower := strings.ToLower(v); lower != v {
		if _, ok := slugs[lower]; ok {
			return lower
		}
	}
	if slug, ok := byName[search.Normalize(v)]; ok {
		return slug
	}
	return v
}
