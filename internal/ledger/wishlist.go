package ledger

import (
	"context"

	"storefront/internal/kvstore"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// Wishlist is a persisted set of saved products that can be moved into a Cart
type Wishlist struct {
	store  kvstore.Store
	key    string
	state  WishlistState
	cart   *Cart
	logger *zap.Logger
}

// NewWishlist creates a new empty wishlist stored under key that moves entries into cart
func NewWishlist(store kvstore.Store, key string, cart *Cart) *Wishlist {
	return &Wishlist{
		store:  store,
		key:    key,
		state:  WishlistState{},
		cart:   cart,
		logger: util.GetLogger(),
	}
}

// Load replaces the in-memory state with the document stored under the wishlist's key
func (w *Wishlist) Load(ctx context.Context) error {
	w.state = WishlistState{}

	var entries []models.WishlistEntry
	found, err := loadDocument(ctx, w.store, w.key, &entries)
	if err != nil || !found {
		return err
	}

	w.state = WishlistState(entries)
	return nil
}

// AddToWishlist saves a snapshot of product; already saved products are ignored
func (w *Wishlist) AddToWishlist(ctx context.Context, product models.Product) {
	if next, changed := w.state.AddItem(product); changed {
		w.commit(ctx, next)
	}
}

// RemoveFromWishlist removes the product; absent products are ignored
func (w *Wishlist) RemoveFromWishlist(ctx context.Context, productID int64) {
	if next, changed := w.state.RemoveItem(productID); changed {
		w.commit(ctx, next)
	}
}

// ClearWishlist removes every entry
func (w *Wishlist) ClearWishlist(ctx context.Context) {
	w.commit(ctx, WishlistState{})
}

// IsInWishlist reports whether the product is saved
func (w *Wishlist) IsInWishlist(productID int64) bool {
	_, ok := w.state.Find(productID)
	return ok
}

// Count returns the number of saved products
func (w *Wishlist) Count() int {
	return len(w.state)
}

// Entries returns a copy of the wishlist entries in insertion order
func (w *Wishlist) Entries() []models.WishlistEntry {
	return append([]models.WishlistEntry{}, w.state...)
}

// MoveToCart adds the saved product to the cart and removes it from the
// wishlist only if the cart accepted it. Returns false when the product is not
// in the wishlist or could not be added.
func (w *Wishlist) MoveToCart(ctx context.Context, productID int64, quantity int) bool {
	entry, ok := w.state.Find(productID)
	if !ok {
		return false
	}
	if !w.cart.AddToCart(ctx, entry.Product(), quantity) {
		return false
	}

	next, _ := w.state.RemoveItem(productID)
	w.commit(ctx, next)
	util.WishlistMovesTotal.WithLabelValues("single").Inc()
	return true
}

// MoveAllToCart adds one unit of every saved product to the cart. Entries the
// cart rejected stay in the wishlist. Returns the number of entries moved.
func (w *Wishlist) MoveAllToCart(ctx context.Context) int {
	next := w.state
	moved := 0
	for _, entry := range w.state {
		if !w.cart.AddToCart(ctx, entry.Product(), 1) {
			w.logger.Debug("Wishlist entry kept, cart rejected it",
				zap.Int64("product_id", entry.ProductID),
			)
			continue
		}
		next, _ = next.RemoveItem(entry.ProductID)
		moved++
	}

	if moved > 0 {
		w.commit(ctx, next)
		util.WishlistMovesTotal.WithLabelValues("all").Add(float64(moved))
	}
	return moved
}

func (w *Wishlist) commit(ctx context.Context, next WishlistState) {
	w.state = next
	if err := saveDocument(ctx, w.store, w.key, w.state); err != nil {
		util.LedgerSaveFailuresTotal.WithLabelValues("wishlist").Inc()
		w.logger.Error("Failed to save wishlist", zap.String("key", w.key), zap.Error(err))
	}
}
