package models

import (
	"errors"
	"fmt"
)

// Product represents a product in the catalog. Prices are in cents.
type Product struct {
	ID            int64    `db:"id" json:"id"`
	Name          string   `db:"name" json:"name"`
	Description   string   `db:"description" json:"description"`
	Category      string   `db:"category" json:"category"`
	Price         int64    `db:"price" json:"price"`
	OriginalPrice *int64   `db:"original_price" json:"original_price,omitempty"`
	Stock         int      `db:"stock" json:"stock"`
	Rating        float64  `db:"rating" json:"rating"`
	Popularity    *int     `db:"popularity" json:"popularity,omitempty"`
	Image         string   `db:"image" json:"image,omitempty"`
	Images        []string `json:"images,omitempty"`
	Colors        []string `json:"colors,omitempty"`
	Features      []string `json:"features,omitempty"`
}

// Product validation errors
var (
	ErrNegativePrice      = errors.New("product price must not be negative")
	ErrInvalidOrigPrice   = errors.New("product original price must not be below price")
	ErrNegativeStock      = errors.New("product stock must not be negative")
	ErrRatingOutOfRange   = errors.New("product rating must be between 0 and 5")
	ErrMissingProductName = errors.New("product name cannot be empty")
)

// Validate checks the catalog invariants of a product
func (p Product) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("product %d: %w", p.ID, ErrMissingProductName)
	}
	if p.Price < 0 {
		return fmt.Errorf("product %d: %w", p.ID, ErrNegativePrice)
	}
	if p.OriginalPrice != nil && *p.OriginalPrice < p.Price {
		return fmt.Errorf("product %d: %w", p.ID, ErrInvalidOrigPrice)
	}
	if p.Stock < 0 {
		return fmt.Errorf("product %d: %w", p.ID, ErrNegativeStock)
	}
	if p.Rating < 0 || p.Rating > 5 {
		return fmt.Errorf("product %d: %w", p.ID, ErrRatingOutOfRange)
	}
	return nil
}

// HasDiscount reports whether the product carries an original price above its price
func (p Product) HasDiscount() bool {
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}

// ListPrice returns the original price, or the price when there is none
func (p Product) ListPrice() int64 {
	if p.OriginalPrice != nil {
		return *p.OriginalPrice
	}
	return p.Price
}

// InStock reports whether at least one unit is available
func (p Product) InStock() bool {
	return p.Stock > 0
}

// PriceRange is an inclusive price bound in cents
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Contains reports whether price lies within the range, both ends inclusive
func (r PriceRange) Contains(price int64) bool {
	return r.Min <= price && price <= r.Max
}

// CartEntry is a cart line: a snapshot of the product at add time plus a quantity
type CartEntry struct {
	ProductID     int64  `json:"product_id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	OriginalPrice int64  `json:"original_price"`
	Image         string `json:"image,omitempty"`
	Category      string `json:"category"`
	Stock         int    `json:"stock"`
	Quantity      int    `json:"quantity"`
}

// LineTotal returns price × quantity
func (e CartEntry) LineTotal() int64 {
	return e.Price * int64(e.Quantity)
}

// LineDiscount returns (original price − price) × quantity
func (e CartEntry) LineDiscount() int64 {
	return (e.OriginalPrice - e.Price) * int64(e.Quantity)
}

// WishlistEntry is a saved product snapshot
type WishlistEntry struct {
	ProductID     int64   `json:"product_id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Price         int64   `json:"price"`
	OriginalPrice int64   `json:"original_price"`
	Image         string  `json:"image,omitempty"`
	Category      string  `json:"category"`
	Stock         int     `json:"stock"`
	Rating        float64 `json:"rating"`
}

// NewCartEntry snapshots a product into a cart entry with the given quantity
func NewCartEntry(p Product, quantity int) CartEntry {
	return CartEntry{
		ProductID:     p.ID,
		Name:          p.Name,
		Price:         p.Price,
		OriginalPrice: p.ListPrice(),
		Image:         p.Image,
		Category:      p.Category,
		Stock:         p.Stock,
		Quantity:      quantity,
	}
}

// NewWishlistEntry snapshots a product into a wishlist entry
func NewWishlistEntry(p Product) WishlistEntry {
	return WishlistEntry{
		ProductID:     p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		OriginalPrice: p.ListPrice(),
		Image:         p.Image,
		Category:      p.Category,
		Stock:         p.Stock,
		Rating:        p.Rating,
	}
}

// Product rebuilds a product from the snapshot so it can be added to a cart.
// Only the snapshot fields are populated.
func (w WishlistEntry) Product() Product {
	p := Product{
		ID:          w.ProductID,
		Name:        w.Name,
		Description: w.Description,
		Category:    w.Category,
		Price:       w.Price,
		Stock:       w.Stock,
		Rating:      w.Rating,
		Image:       w.Image,
	}
	if w.OriginalPrice != w.Price {
		orig := w.OriginalPrice
		p.OriginalPrice = &orig
	}
	return p
}

// CartSummary is the derived pricing breakdown of a cart, all amounts in cents
type CartSummary struct {
	TotalItems int   `json:"total_items"`
	Subtotal   int64 `json:"subtotal"`
	Discount   int64 `json:"discount"`
	Tax        int64 `json:"tax"`
	Shipping   int64 `json:"shipping"`
	Total      int64 `json:"total"`
}
