package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/kvstore"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// ErrCorruptDocument is returned by Load when the stored document cannot be decoded
var ErrCorruptDocument = errors.New("corrupt ledger document")

// Cart is a persisted cart ledger. Every state change is written back to the
// key-value store under its key. A Cart is not safe for concurrent use.
type Cart struct {
	store  kvstore.Store
	key    string
	state  CartState
	logger *zap.Logger
}

// NewCart creates a new empty cart stored under key
func NewCart(store kvstore.Store, key string) *Cart {
	return &Cart{
		store:  store,
		key:    key,
		state:  CartState{},
		logger: util.GetLogger(),
	}
}

// Load replaces the in-memory state with the document stored under the cart's key.
// A missing document leaves the cart empty. On error the cart is left empty.
func (c *Cart) Load(ctx context.Context) error {
	c.state = CartState{}

	var entries []models.CartEntry
	found, err := loadDocument(ctx, c.store, c.key, &entries)
	if err != nil || !found {
		return err
	}

	c.state = CartState(entries)
	return nil
}

// AddToCart adds quantity units of product. The resulting quantity never exceeds
// the product's stock; excess is dropped silently. Returns false only when the
// product is out of stock.
func (c *Cart) AddToCart(ctx context.Context, product models.Product, quantity int) bool {
	next, added, clamped := c.state.AddItem(product, quantity)
	if !added {
		util.CartAddRejectedTotal.Inc()
		return false
	}
	if clamped {
		util.CartQuantityClampedTotal.Inc()
		c.logger.Debug("Cart quantity clamped to stock",
			zap.Int64("product_id", product.ID),
			zap.Int("requested", quantity),
			zap.Int("stock", product.Stock),
		)
	}

	util.CartItemsAddedTotal.Inc()
	c.commit(ctx, next)
	return true
}

// RemoveFromCart removes the product's entry; absent entries are ignored
func (c *Cart) RemoveFromCart(ctx context.Context, productID int64) {
	if next, changed := c.state.RemoveItem(productID); changed {
		c.commit(ctx, next)
	}
}

// UpdateQuantity sets the entry's quantity clamped to [1, stock]; absent entries are ignored
func (c *Cart) UpdateQuantity(ctx context.Context, productID int64, quantity int) {
	if next, changed := c.state.SetQuantity(productID, quantity); changed {
		c.commit(ctx, next)
	}
}

// ClearCart removes every entry
func (c *Cart) ClearCart(ctx context.Context) {
	c.commit(ctx, CartState{})
}

// IsInCart reports whether the product has an entry
func (c *Cart) IsInCart(productID int64) bool {
	_, ok := c.state.Find(productID)
	return ok
}

// GetItemQuantity returns the product's quantity, or 0 when it is not in the cart
func (c *Cart) GetItemQuantity(productID int64) int {
	e, _ := c.state.Find(productID)
	return e.Quantity
}

// Entries returns a copy of the cart entries in insertion order
func (c *Cart) Entries() []models.CartEntry {
	return append([]models.CartEntry{}, c.state...)
}

// TotalItems returns the number of units in the cart
func (c *Cart) TotalItems() int {
	return c.state.TotalItems()
}

// CartTotal returns the sum of price × quantity over the entries
func (c *Cart) CartTotal() int64 {
	return c.state.Subtotal()
}

// TotalDiscount returns the savings against original prices
func (c *Cart) TotalDiscount() int64 {
	return c.state.Discount()
}

// Summary returns the pricing breakdown of the current entries
func (c *Cart) Summary() models.CartSummary {
	return Summarize(c.state)
}

func (c *Cart) commit(ctx context.Context, next CartState) {
	c.state = next
	if err := saveDocument(ctx, c.store, c.key, c.state); err != nil {
		util.LedgerSaveFailuresTotal.WithLabelValues("cart").Inc()
		c.logger.Error("Failed to save cart", zap.String("key", c.key), zap.Error(err))
	}
}

func loadDocument(ctx context.Context, store kvstore.Store, key string, v any) (bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("%w %s: %v", ErrCorruptDocument, key, err)
	}
	return true, nil
}

func saveDocument(ctx context.Context, store kvstore.Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return store.Set(ctx, key, string(data))
}
