package pipeline

import "storefront/internal/models"

// Facets summarizes a product list for building filter controls
type Facets struct {
	Categories []string          `json:"categories"`
	PriceRange models.PriceRange `json:"price_range"`
	InStock    int               `json:"in_stock"`
	OutOfStock int               `json:"out_of_stock"`
}

// Categories returns the distinct categories of products in first-seen order
func Categories(products []models.Product) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// PriceRangeOf returns the lowest and highest price in products.
// An empty list yields a zero range.
func PriceRangeOf(products []models.Product) models.PriceRange {
	if len(products) == 0 {
		return models.PriceRange{}
	}
	r := models.PriceRange{Min: products[0].Price, Max: products[0].Price}
	for _, p := range products[1:] {
		r.Min = min(r.Min, p.Price)
		r.Max = max(r.Max, p.Price)
	}
	return r
}

// BuildFacets computes categories, price range and availability counts
func BuildFacets(products []models.Product) Facets {
	f := Facets{
		Categories: Categories(products),
		PriceRange: PriceRangeOf(products),
	}
	for _, p := range products {
		if p.InStock() {
			f.InStock++
		} else {
			f.OutOfStock++
		}
	}
	return f
}

// DefaultFilterSpec is the reset state of the filters: no restriction except
// the price range, which spans the whole catalog
func DefaultFilterSpec(catalog []models.Product) FilterSpec {
	r := PriceRangeOf(catalog)
	return FilterSpec{PriceRange: &r}
}
