package pipeline

import (
	"cmp"
	"slices"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey selects the order applied to a product list
type SortKey string

const (
	SortFeatured     SortKey = "featured"
	SortPriceLow     SortKey = "priceLow"
	SortPriceHigh    SortKey = "priceHigh"
	SortNewest       SortKey = "newest"
	SortRating       SortKey = "rating"
	SortNameAZ       SortKey = "nameAZ"
	SortNameZA       SortKey = "nameZA"
	SortAlphabetical SortKey = "alphabetical"
	SortPopularity   SortKey = "popularity"
	SortDiscount     SortKey = "discount"
)

// SortOption is a sort key with its display label
type SortOption struct {
	ID    SortKey `json:"id"`
	Label string  `json:"label"`
}

var sortOptions = []SortOption{
	{SortFeatured, "Featured"},
	{SortPriceLow, "Price: Low to High"},
	{SortPriceHigh, "Price: High to Low"},
	{SortNameAZ, "Name: A to Z"},
	{SortNameZA, "Name: Z to A"},
	{SortRating, "Highest Rated"},
	{SortNewest, "Newest Arrivals"},
	{SortPopularity, "Most Popular"},
	{SortDiscount, "Biggest Discount"},
}

// SortOptions lists the selectable sort keys
func SortOptions() []SortOption {
	return slices.Clone(sortOptions)
}

// ParseSortKey maps a raw value to a SortKey. Unknown values fall back to featured.
func ParseSortKey(v string) SortKey {
	switch k := SortKey(v); k {
	case SortPriceLow, SortPriceHigh, SortNewest, SortRating, SortNameAZ,
		SortNameZA, SortAlphabetical, SortPopularity, SortDiscount:
		return k
	default:
		return SortFeatured
	}
}

// Sort returns a sorted copy of products. The sort is stable, so ties keep
// their input order and featured keeps the input order entirely.
func Sort(products []models.Product, key SortKey) []models.Product {
	out := slices.Clone(products)
	if out == nil {
		return []models.Product{}
	}

	var compare func(a, b models.Product) int

	switch ParseSortKey(string(key)) {
	case SortPriceLow:
		compare = func(a, b models.Product) int { return cmp.Compare(a.Price, b.Price) }
	case SortPriceHigh:
		compare = func(a, b models.Product) int { return cmp.Compare(b.Price, a.Price) }
	case SortNewest:
		compare = func(a, b models.Product) int { return cmp.Compare(b.ID, a.ID) }
	case SortRating:
		compare = func(a, b models.Product) int { return cmp.Compare(b.Rating, a.Rating) }
	case SortNameAZ, SortAlphabetical:
		col := collate.New(language.English)
		compare = func(a, b models.Product) int { return col.CompareString(a.Name, b.Name) }
	case SortNameZA:
		col := collate.New(language.English)
		compare = func(a, b models.Product) int { return col.CompareString(b.Name, a.Name) }
	case SortPopularity:
		compare = comparePopularity
	case SortDiscount:
		compare = func(a, b models.Product) int { return DiscountRatio(b).Cmp(DiscountRatio(a)) }
	default:
		return out
	}

	slices.SortStableFunc(out, compare)
	return out
}

// comparePopularity orders by the popularity field when both products carry
// one, otherwise by ascending stock (low stock taken as a sign of demand)
func comparePopularity(a, b models.Product) int {
	if a.Popularity != nil && b.Popularity != nil {
		return cmp.Compare(*b.Popularity, *a.Popularity)
	}
	return cmp.Compare(a.Stock, b.Stock)
}

// DiscountRatio returns (original price − price) / original price, or zero
// for products without an original price
func DiscountRatio(p models.Product) decimal.Decimal {
	if !p.HasDiscount() || *p.OriginalPrice <= 0 {
		return decimal.Zero
	}
	orig := decimal.NewFromInt(*p.OriginalPrice)
	return orig.Sub(decimal.NewFromInt(p.Price)).Div(orig)
}

// Apply filters then sorts products
func Apply(products []models.Product, spec FilterSpec, key SortKey) []models.Product {
	return Sort(Filter(products, spec), key)
}
