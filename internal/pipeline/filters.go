package pipeline

import (
	"slices"
	"strings"

	"storefront/internal/models"
)

// FilterSpec describes the subset of products a caller wants to see
type FilterSpec struct {
	Categories []string           `json:"categories,omitempty"`
	PriceRange *models.PriceRange `json:"price_range,omitempty"`
	Ratings    float64            `json:"ratings,omitempty"`
	InStock    bool               `json:"in_stock,omitempty"`
	Search     string             `json:"search,omitempty"`
	Colors     []string           `json:"colors,omitempty"`
	Features   []string           `json:"features,omitempty"`
	// MatchAnyFeature relaxes Features from all-of to any-of
	MatchAnyFeature bool `json:"match_any_feature,omitempty"`
}

// Predicate reports whether a product passes a single filter
type Predicate func(models.Product) bool

// ByCategory matches products whose category is any of categories
func ByCategory(categories []string) Predicate {
	set := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	return func(p models.Product) bool {
		_, ok := set[p.Category]
		return ok
	}
}

// ByPrice matches products priced within r, both bounds inclusive.
// An inverted range matches nothing.
func ByPrice(r models.PriceRange) Predicate {
	return func(p models.Product) bool {
		return r.Contains(p.Price)
	}
}

// ByRating matches products rated at least min
func ByRating(min float64) Predicate {
	return func(p models.Product) bool {
		return p.Rating >= min
	}
}

// ByStock matches products with at least one unit available
func ByStock() Predicate {
	return func(p models.Product) bool {
		return p.InStock()
	}
}

// BySearch matches products whose name, description or category contains
// query, ignoring case and surrounding whitespace
func BySearch(query string) Predicate {
	q := strings.ToLower(strings.TrimSpace(query))
	return func(p models.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Category), q)
	}
}

// ByColor matches products offered in any of colors. Color names are
// compared exactly.
func ByColor(colors []string) Predicate {
	return func(p models.Product) bool {
		for _, have := range p.Colors {
			if slices.Contains(colors, have) {
				return true
			}
		}
		return false
	}
}

// ByFeatures matches products whose feature list mentions the requested
// features: all of them when matchAll is set, otherwise any of them
func ByFeatures(features []string, matchAll bool) Predicate {
	return func(p models.Product) bool {
		if len(p.Features) == 0 {
			return false
		}
		for _, want := range features {
			found := hasFeature(p.Features, want)
			if matchAll && !found {
				return false
			}
			if !matchAll && found {
				return true
			}
		}
		return matchAll
	}
}

func hasFeature(features []string, want string) bool {
	want = strings.ToLower(want)
	for _, f := range features {
		if strings.Contains(strings.ToLower(f), want) {
			return true
		}
	}
	return false
}

// Predicates returns the active filters of spec in canonical order:
// category, price, rating, stock, search, color, features
func Predicates(spec FilterSpec) []Predicate {
	var preds []Predicate

	if len(spec.Categories) > 0 {
		preds = append(preds, ByCategory(spec.Categories))
	}
	if spec.PriceRange != nil {
		preds = append(preds, ByPrice(*spec.PriceRange))
	}
	if spec.Ratings > 0 {
		preds = append(preds, ByRating(spec.Ratings))
	}
	if spec.InStock {
		preds = append(preds, ByStock())
	}
	if strings.TrimSpace(spec.Search) != "" {
		preds = append(preds, BySearch(spec.Search))
	}
	if len(spec.Colors) > 0 {
		preds = append(preds, ByColor(spec.Colors))
	}
	if len(spec.Features) > 0 {
		preds = append(preds, ByFeatures(spec.Features, !spec.MatchAnyFeature))
	}

	return preds
}

// Match AND-composes preds
func Match(p models.Product, preds []Predicate) bool {
	for _, pred := range preds {
		if !pred(p) {
			return false
		}
	}
	return true
}

// Filter returns the products passing every active filter of spec, in input order
func Filter(products []models.Product, spec FilterSpec) []models.Product {
	preds := Predicates(spec)
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if Match(p, preds) {
			out = append(out, p)
		}
	}
	return out
}
