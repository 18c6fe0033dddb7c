package ledger

import (
	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// Pricing rules, amounts in cents
const (
	FreeShippingThreshold int64 = 5000
	ShippingFee           int64 = 500
)

var taxRate = decimal.New(7, -2)

// CalculateTax returns 7% of subtotal rounded to the nearest cent, halves away from zero
func CalculateTax(subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(taxRate).Round(0).IntPart()
}

// CalculateShipping returns the flat fee, waived once subtotal reaches the threshold
func CalculateShipping(subtotal int64) int64 {
	if subtotal >= FreeShippingThreshold {
		return 0
	}
	return ShippingFee
}

// CalculateTotal returns subtotal plus tax plus shipping
func CalculateTotal(subtotal int64) int64 {
	return subtotal + CalculateTax(subtotal) + CalculateShipping(subtotal)
}

// Summarize computes the full pricing breakdown of a cart state
func Summarize(s CartState) models.CartSummary {
	subtotal := s.Subtotal()
	return models.CartSummary{
		TotalItems: s.TotalItems(),
		Subtotal:   subtotal,
		Discount:   s.Discount(),
		Tax:        CalculateTax(subtotal),
		Shipping:   CalculateShipping(subtotal),
		Total:      CalculateTotal(subtotal),
	}
}
