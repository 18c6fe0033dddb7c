package models

import "time"

// Event types
const (
	EventTypeCartItemAdded       = "CART_ITEM_ADDED"
	EventTypeCartItemRemoved     = "CART_ITEM_REMOVED"
	EventTypeCartQuantityUpdated = "CART_QUANTITY_UPDATED"
	EventTypeCartCleared         = "CART_CLEARED"
	EventTypeWishlistItemAdded   = "WISHLIST_ITEM_ADDED"
	EventTypeWishlistItemRemoved = "WISHLIST_ITEM_REMOVED"
	EventTypeWishlistCleared     = "WISHLIST_CLEARED"
	EventTypeWishlistItemMoved   = "WISHLIST_ITEM_MOVED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// CartItemEvent is published when a cart line is added, removed or its quantity changes
type CartItemEvent struct {
	BaseEvent
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
	Clamped   bool  `json:"clamped,omitempty"`
}

// WishlistItemEvent is published when a wishlist entry is added, removed or moved to the cart
type WishlistItemEvent struct {
	BaseEvent
	ProductID int64 `json:"product_id"`
}

// LedgerClearedEvent is published when a cart or wishlist is emptied
type LedgerClearedEvent struct {
	BaseEvent
	Removed int `json:"removed"`
}
