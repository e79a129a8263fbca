package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/kokossimo/kokocli/internal/api"
)

// DefaultThreshold is the minimum score a product needs to survive a search.
const DefaultThreshold = 0.35

// Similarity scores how close a normalized query is to a normalized
// candidate, in [0,1]. Substring containment scores exactly 1. Otherwise the
// score is 1 - d/max(len) where d is the rune-level Levenshtein distance.
//
// The score is not symmetric in its arguments.
func Similarity(query, candidate string) float64 {
	if query == "" || candidate == "" {
		return 0
	}
	if strings.Contains(candidate, query) {
		return 1
	}

	d := levenshtein.ComputeDistance(query, candidate)
	longest := max(utf8.RuneCountInString(query), utf8.RuneCountInString(candidate))
	return 1 - float64(d)/float64(longest)
}

// Score rates a normalized product text against a normalized query. It is the
// whole-text Similarity, raised to the best Similarity against any run of
// consecutive words in text as long as the query, so that a misspelt word
// inside a long product name is not drowned out by the rest of the name.
func Score(query, text string) float64 {
	best := Similarity(query, text)
	if best >= 1 || query == "" || text == "" {
		return best
	}

	width := strings.Count(query, " ") + 1
	words := strings.Fields(text)
	if len(words) <= width {
		return best
	}
	for i := 0; i+width <= len(words); i++ {
		if s := Similarity(query, strings.Join(words[i:i+width], " ")); s > best {
			best = s
			if best >= 1 {
				break
			}
		}
	}
	return best
}

type scoredProduct struct {
	product api.Product
	score   float64
}

// Rank filters products by fuzzy match against rawQuery and orders the
// survivors by descending score. Ties keep their input order.
// The score is the larger of whole-text similarity and the best word-window
// similarity, which is where ranking departs from plain whole-text matching.
//
// A product survives when its score reaches threshold or its normalized name
// contains the normalized query. An empty normalized query returns products
// unchanged.
func Rank(products []api.Product, rawQuery string, threshold float64) []api.Product {
	q := Normalize(rawQuery)
	if q == "" {
		return products
	}

	kept := make([]scoredProduct, 0, len(products))
	for _, p := range products {
		score := Score(q, Normalize(p.Name+" "+api.Deref(p.Description)))
		if score >= threshold || strings.Contains(Normalize(p.Name), q) {
			kept = append(kept, scoredProduct{product: p, score: score})
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score > kept[j].score
	})

	out := make([]api.Product, len(kept))
	for i, k := range kept {
		out[i] = k.product
	}
	return out
}

// Suggest returns up to limit distinct product names for autocomplete, in
// rank order.
func Suggest(products []api.Product, rawQuery string, limit int) []string {
	if limit <= 0 || Normalize(rawQuery) == "" {
		return nil
	}

	seen := make(map[string]struct{}, limit)
	out := make([]string, 0, limit)
	for _, p := range Rank(products, rawQuery, DefaultThreshold) {
		name := strings.TrimSpace(p.Name)
		key := Normalize(name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
		if len(out) == limit {
			break
		}
	}
	return out
}
