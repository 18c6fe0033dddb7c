package ledger

import (
	"slices"

	"storefront/internal/models"
)

// CartState is an ordered list of cart entries with at most one entry per product.
// Transitions never modify the receiver; they return the next state.
type CartState []models.CartEntry

func (s CartState) index(productID int64) int {
	return slices.IndexFunc(s, func(e models.CartEntry) bool {
		return e.ProductID == productID
	})
}

// Find returns the entry for productID
func (s CartState) Find(productID int64) (models.CartEntry, bool) {
	if i := s.index(productID); i >= 0 {
		return s[i], true
	}
	return models.CartEntry{}, false
}

// AddItem adds quantity units of p, merging with an existing entry and clamping
// the resulting quantity to p.Stock. A quantity below 1 counts as 1.
// added is false only when p has no stock; clamped reports that part of the
// request was dropped.
func (s CartState) AddItem(p models.Product, quantity int) (next CartState, added, clamped bool) {
	if quantity < 1 {
		quantity = 1
	}
	if p.Stock < 1 {
		return s, false, false
	}

	next = slices.Clone(s)
	if i := next.index(p.ID); i >= 0 {
		want := next[i].Quantity + quantity
		next[i].Stock = p.Stock
		next[i].Quantity = min(want, p.Stock)
		return next, true, want > p.Stock
	}

	next = append(next, models.NewCartEntry(p, min(quantity, p.Stock)))
	return next, true, quantity > p.Stock
}

// RemoveItem drops the entry for productID; changed is false when it was absent
func (s CartState) RemoveItem(productID int64) (next CartState, changed bool) {
	i := s.index(productID)
	if i < 0 {
		return s, false
	}
	return slices.Delete(slices.Clone(s), i, i+1), true
}

// SetQuantity sets the entry's quantity clamped to [1, entry stock].
// changed is false when the entry is absent or already holds that quantity.
func (s CartState) SetQuantity(productID int64, quantity int) (next CartState, changed bool) {
	i := s.index(productID)
	if i < 0 {
		return s, false
	}

	quantity = max(1, min(quantity, s[i].Stock))
	if s[i].Quantity == quantity {
		return s, false
	}

	next = slices.Clone(s)
	next[i].Quantity = quantity
	return next, true
}

// TotalItems returns the sum of quantities
func (s CartState) TotalItems() int {
	total := 0
	for _, e := range s {
		total += e.Quantity
	}
	return total
}

// Subtotal returns the sum of price × quantity
func (s CartState) Subtotal() int64 {
	var total int64
	for _, e := range s {
		total += e.LineTotal()
	}
	return total
}

// Discount returns the sum of (original price − price) × quantity
func (s CartState) Discount() int64 {
	var total int64
	for _, e := range s {
		total += e.LineDiscount()
	}
	return total
}

// WishlistState is an ordered set of wishlist entries keyed by product id
type WishlistState []models.WishlistEntry

func (s WishlistState) index(productID int64) int {
	return slices.IndexFunc(s, func(e models.WishlistEntry) bool {
		return e.ProductID == productID
	})
}

// Find returns the entry for productID
func (s WishlistState) Find(productID int64) (models.WishlistEntry, bool) {
	if i := s.index(productID); i >= 0 {
		return s[i], true
	}
	return models.WishlistEntry{}, false
}

// AddItem inserts a snapshot of p unless it is already present
func (s WishlistState) AddItem(p models.Product) (next WishlistState, changed bool) {
	if s.index(p.ID) >= 0 {
		return s, false
	}
	return append(slices.Clone(s), models.NewWishlistEntry(p)), true
}

// RemoveItem drops the entry for productID; changed is false when it was absent
func (s WishlistState) RemoveItem(productID int64) (next WishlistState, changed bool) {
	i := s.index(productID)
	if i < 0 {
		return s, false
	}
	return slices.Delete(slices.Clone(s), i, i+1), true
}
