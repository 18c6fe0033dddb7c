package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/broker"
	"storefront/internal/catalog"
	"storefront/internal/kvstore"
	"storefront/internal/ledger"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrOutOfStock is returned when the cart rejects a product without stock
	ErrOutOfStock = errors.New("product is out of stock")
	// ErrNotInWishlist is returned when moving a product that is not saved
	ErrNotInWishlist = errors.New("product not in wishlist")
	// ErrSessionBusy is returned when the session lock could not be taken in time
	ErrSessionBusy = errors.New("session is busy")
)

const (
	defaultLockTTL    = 10 * time.Second
	defaultLockWait   = 5 * time.Second
	lockRetryInterval = 10 * time.Millisecond
)

// EventPublisher publishes cart and wishlist activity
type EventPublisher interface {
	PublishCartItem(ctx context.Context, event *models.CartItemEvent) error
	PublishWishlistItem(ctx context.Context, event *models.WishlistItemEvent) error
	PublishLedgerCleared(ctx context.Context, event *models.LedgerClearedEvent) error
}

// LedgerConfig holds the storage layout of session ledgers
type LedgerConfig struct {
	CartKeyPrefix        string
	WishlistKeyPrefix    string
	IdempotencyKeyPrefix string
	IdempotencyTTL       time.Duration
	LockKeyPrefix        string
	// LockTTL bounds how long a crashed holder keeps a session locked
	LockTTL time.Duration
	// LockWait is how long a command waits for the session lock
	LockWait time.Duration
}

// LedgerService runs cart and wishlist commands for sessions. Each command
// loads the session's ledgers, applies the change and saves, holding the
// session lock throughout. The lock is taken in-process first and then in
// the key-value store, so replicas sharing a store serialize as well.
type LedgerService struct {
	store     kvstore.Store
	catalog   *catalog.Store
	publisher EventPublisher
	cfg       LedgerConfig
	locks     *sessionLocks
	logger    *zap.Logger
}

// NewLedgerService creates a new ledger service. publisher may be nil.
func NewLedgerService(
	store kvstore.Store,
	catalogStore *catalog.Store,
	publisher EventPublisher,
	cfg LedgerConfig,
) *LedgerService {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = defaultLockWait
	}
	return &LedgerService{
		store:     store,
		catalog:   catalogStore,
		publisher: publisher,
		cfg:       cfg,
		locks:     newSessionLocks(),
		logger:    util.GetLogger(),
	}
}

// FormattedSummary carries display strings for the cart amounts
type FormattedSummary struct {
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Tax      string `json:"tax"`
	Shipping string `json:"shipping"`
	Total    string `json:"total"`
}

// CartResponse is a session's cart with its pricing breakdown
type CartResponse struct {
	SessionID string             `json:"session_id"`
	Items     []models.CartEntry `json:"items"`
	Summary   models.CartSummary `json:"summary"`
	Formatted FormattedSummary   `json:"formatted"`
}

// WishlistResponse is a session's wishlist
type WishlistResponse struct {
	SessionID string                 `json:"session_id"`
	Items     []models.WishlistEntry `json:"items"`
	Count     int                    `json:"count"`
}

// AddToCartRequest represents a request to add a product to the cart
type AddToCartRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

// AddToCartResponse reports the outcome of an add together with the cart
type AddToCartResponse struct {
	*CartResponse
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	Clamped   bool  `json:"clamped"`
	Duplicate bool  `json:"duplicate,omitempty"`
}

// UpdateQuantityRequest represents a request to change a cart line quantity
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// MoveToCartRequest represents a request to move a wishlist entry to the cart
type MoveToCartRequest struct {
	Quantity int `json:"quantity"`
}

// MoveResponse returns both ledgers after a move
type MoveResponse struct {
	Moved    int               `json:"moved"`
	Cart     *CartResponse     `json:"cart"`
	Wishlist *WishlistResponse `json:"wishlist"`
}

type sessionLedgers struct {
	cart     *ledger.Cart
	wishlist *ledger.Wishlist
	// events are published once the session lock is released
	events []func(context.Context)
}

func (l *sessionLedgers) emit(fn func(context.Context)) {
	l.events = append(l.events, fn)
}

func (s *LedgerService) withLedgers(
	ctx context.Context,
	sessionID string,
	operation string,
	fn func(l *sessionLedgers) error,
) error {
	start := time.Now()
	defer func() {
		util.LedgerOperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	l, err := s.runLocked(ctx, sessionID, fn)
	if err != nil {
		return err
	}
	for _, publish := range l.events {
		publish(ctx)
	}
	return nil
}

func (s *LedgerService) runLocked(ctx context.Context, sessionID string, fn func(l *sessionLedgers) error) (*sessionLedgers, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	release, err := s.acquireSessionLock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	cart := ledger.NewCart(s.store, s.cfg.CartKeyPrefix+sessionID)
	if err := s.loadLedger(ctx, "cart", cart.Load); err != nil {
		return nil, err
	}

	wishlist := ledger.NewWishlist(s.store, s.cfg.WishlistKeyPrefix+sessionID, cart)
	if err := s.loadLedger(ctx, "wishlist", wishlist.Load); err != nil {
		return nil, err
	}

	l := &sessionLedgers{cart: cart, wishlist: wishlist}
	if err := fn(l); err != nil {
		return nil, err
	}
	return l, nil
}

// acquireSessionLock polls the store lock until it is free or LockWait passes
func (s *LedgerService) acquireSessionLock(ctx context.Context, sessionID string) (func(), error) {
	key := s.cfg.LockKeyPrefix + sessionID
	token := uuid.New().String()
	deadline := time.Now().Add(s.cfg.LockWait)

	for {
		locked, err := s.store.AcquireLock(ctx, key, token, s.cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to lock session: %w", err)
		}
		if locked {
			return func() {
				if err := s.store.ReleaseLock(context.Background(), key, token); err != nil {
					s.logger.Warn("Failed to release session lock", zap.String("session_id", sessionID), zap.Error(err))
				}
			}, nil
		}

		if !time.Now().Before(deadline) {
			util.SessionLockTimeoutsTotal.Inc()
			return nil, fmt.Errorf("%w: %s", ErrSessionBusy, sessionID)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// Ping checks the key-value store when the backend supports it
func (s *LedgerService) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// loadLedger treats an unreadable document as an empty ledger; storage
// failures abort the command so a later save cannot overwrite data it never read
func (s *LedgerService) loadLedger(ctx context.Context, name string, load func(context.Context) error) error {
	err := load(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, ledger.ErrCorruptDocument) {
		s.logger.Warn("Discarding unreadable ledger document", zap.String("ledger", name), zap.Error(err))
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", name, err)
}

func (s *LedgerService) publish(l *sessionLedgers, eventType string, fn func(context.Context, EventPublisher) error) {
	if s.publisher == nil {
		return
	}
	l.emit(func(ctx context.Context) {
		if err := fn(ctx, s.publisher); err != nil {
			s.logger.Warn("Failed to publish event", zap.String("event_type", eventType), zap.Error(err))
		}
	})
}

func (s *LedgerService) publishCartItem(l *sessionLedgers, eventType, sessionID string, productID int64, quantity int, unitPrice int64, clamped bool) {
	s.publish(l, eventType, func(ctx context.Context, p EventPublisher) error {
		return p.PublishCartItem(ctx, &models.CartItemEvent{
			BaseEvent: broker.NewBaseEvent(eventType, sessionID),
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: unitPrice,
			Clamped:   clamped,
		})
	})
}

func (s *LedgerService) publishWishlistItem(l *sessionLedgers, eventType, sessionID string, productID int64) {
	s.publish(l, eventType, func(ctx context.Context, p EventPublisher) error {
		return p.PublishWishlistItem(ctx, &models.WishlistItemEvent{
			BaseEvent: broker.NewBaseEvent(eventType, sessionID),
			ProductID: productID,
		})
	})
}

func (s *LedgerService) publishCleared(l *sessionLedgers, eventType, sessionID string, removed int) {
	s.publish(l, eventType, func(ctx context.Context, p EventPublisher) error {
		return p.PublishLedgerCleared(ctx, &models.LedgerClearedEvent{
			BaseEvent: broker.NewBaseEvent(eventType, sessionID),
			Removed:   removed,
		})
	})
}

func newCartResponse(sessionID string, cart *ledger.Cart) *CartResponse {
	summary := cart.Summary()
	return &CartResponse{
		SessionID: sessionID,
		Items:     cart.Entries(),
		Summary:   summary,
		Formatted: FormattedSummary{
			Subtotal: models.FormatPrice(summary.Subtotal),
			Discount: models.FormatPrice(summary.Discount),
			Tax:      models.FormatPrice(summary.Tax),
			Shipping: models.FormatPrice(summary.Shipping),
			Total:    models.FormatPrice(summary.Total),
		},
	}
}

func newWishlistResponse(sessionID string, wishlist *ledger.Wishlist) *WishlistResponse {
	return &WishlistResponse{
		SessionID: sessionID,
		Items:     wishlist.Entries(),
		Count:     wishlist.Count(),
	}
}

// GetCart returns the session's cart
func (s *LedgerService) GetCart(ctx context.Context, sessionID string) (*CartResponse, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.GetCart")
	defer span.End()

	var resp *CartResponse
	err := s.withLedgers(ctx, sessionID, "get_cart", func(l *sessionLedgers) error {
		resp = newCartResponse(sessionID, l.cart)
		return nil
	})
	return resp, err
}

// AddToCart adds a catalog product to the session's cart. A repeated
// idempotency key returns the current cart without adding again.
func (s *LedgerService) AddToCart(ctx context.Context, sessionID string, req *AddToCartRequest, idempotencyKey string) (*AddToCartResponse, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.AddToCart")
	defer span.End()

	product, err := s.catalog.GetByID(req.ProductID)
	if err != nil {
		return nil, err
	}

	var resp *AddToCartResponse
	err = s.withLedgers(ctx, sessionID, "add_to_cart", func(l *sessionLedgers) error {
		idemKey := s.cfg.IdempotencyKeyPrefix + sessionID + ":" + idempotencyKey
		if idempotencyKey != "" {
			_, seen, err := s.store.Get(ctx, idemKey)
			if err != nil {
				return fmt.Errorf("failed to check idempotency: %w", err)
			}
			if seen {
				util.IdempotentReplaysTotal.Inc()
				s.logger.Info("Duplicate add-to-cart request detected",
					zap.String("session_id", sessionID),
					zap.String("idempotency_key", idempotencyKey))
				resp = &AddToCartResponse{
					CartResponse: newCartResponse(sessionID, l.cart),
					ProductID:    product.ID,
					Quantity:     l.cart.GetItemQuantity(product.ID),
					Duplicate:    true,
				}
				return nil
			}
		}

		before := l.cart.GetItemQuantity(product.ID)
		if !l.cart.AddToCart(ctx, product, req.Quantity) {
			return fmt.Errorf("%w: %d", ErrOutOfStock, product.ID)
		}
		after := l.cart.GetItemQuantity(product.ID)
		clamped := after-before < max(req.Quantity, 1)

		// the key is recorded only for adds that went through, so a rejected
		// add can be retried with the same key
		if idempotencyKey != "" {
			if _, err := s.store.SetNX(ctx, idemKey, "1", s.cfg.IdempotencyTTL); err != nil {
				s.logger.Warn("Failed to store idempotency key",
					zap.String("session_id", sessionID),
					zap.String("idempotency_key", idempotencyKey),
					zap.Error(err))
			}
		}

		s.publishCartItem(l, models.EventTypeCartItemAdded, sessionID, product.ID, after-before, product.Price, clamped)
		s.logger.Info("Added to cart",
			zap.String("session_id", sessionID),
			zap.Int64("product_id", product.ID),
			zap.Int("quantity", after),
			zap.Bool("clamped", clamped))

		resp = &AddToCartResponse{
			CartResponse: newCartResponse(sessionID, l.cart),
			ProductID:    product.ID,
			Quantity:     after,
			Clamped:      clamped,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// UpdateQuantity sets a cart line's quantity within [1, stock]; absent lines are ignored
func (s *LedgerService) UpdateQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (*CartResponse, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.UpdateQuantity")
	defer span.End()

	var resp *CartResponse
	err := s.withLedgers(ctx, sessionID, "update_quantity", func(l *sessionLedgers) error {
		before := l.cart.GetItemQuantity(productID)
		l.cart.UpdateQuantity(ctx, productID, quantity)
		if after := l.cart.GetItemQuantity(productID); after != before {
			e := findCartEntry(l.cart, productID)
			s.publishCartItem(l, models.EventTypeCartQuantityUpdated, sessionID, productID, after, e.Price, after != quantity)
		}
		resp = newCartResponse(sessionID, l.cart)
		return nil
	})
	return resp, err
}

// RemoveFromCart removes a cart line; absent lines are ignored
func (s *LedgerService) RemoveFromCart(ctx context.Context, sessionID string, productID int64) (*CartResponse, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.RemoveFromCart")
	defer span.End()

	var resp *CartResponse
	err := s.withLedgers(ctx, sessionID, "remove_from_cart", func(l *sessionLedgers) error {
		if l.cart.IsInCart(productID) {
			e := findCartEntry(l.cart, productID)
			l.cart.RemoveFromCart(ctx, productID)
			s.publishCartItem(l, models.EventTypeCartItemRemoved, sessionID, productID, e.Quantity, e.Price, false)
		}
		resp = newCartResponse(sessionID, l.cart)
		return nil
	})
	return resp, err
}

// ClearCart empties the session's cart
func (s *LedgerService) ClearCart(ctx context.Context, sessionID string) (*CartResponse, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.ClearCart")
	defer span.End()

	var resp *CartResponse
	err := s.withLedgers(ctx, sessionID, "clear_cart", func(l *sessionLedgers) error {
		removed := len(l.cart.Entries())
		l.cart.ClearCart(ctx)
		if removed > 0 {
			s.publishCleared(l, models.EventTypeCartCleared, sessionID, removed)
		}
		resp = newCartResponse(sessionID, l.cart)
		return nil
	})
	return resp, err
}

// GetWishlist returns the session's wishlist
func (s *LedgerService) GetWishlist(ctx context.Context, sessionID string) (*WishlistResponse, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.GetWishlist")
	defer span.End()

	var resp *WishlistResponse
	err := s.withLedgers(ctx, sessionID, "get_wishlist", func(l *sessionLedgers) error {
		resp = newWishlistResponse(sessionID, l.wishlist)
		return nil
	})
	return resp, err
}

// AddToWishlist saves a catalog product; already saved products are ignored
func (s *LedgerService) AddToWishlist(ctx context.Context, sessionID string, productID int64) (*WishlistResponse, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.AddToWishlist")
	defer span.End()

	product, err := s.catalog.GetByID(productID)
	if err != nil {
		return nil, err
	}

	var resp *WishlistResponse
	err = s.withLedgers(ctx, sessionID, "add_to_wishlist", func(l *sessionLedgers) error {
		if !l.wishlist.IsInWishlist(product.ID) {
			l.wishlist.AddToWishlist(ctx, product)
			s.publishWishlistItem(l, models.EventTypeWishlistItemAdded, sessionID, product.ID)
		}
		resp = newWishlistResponse(sessionID, l.wishlist)
		return nil
	})
	return resp, err
}

// RemoveFromWishlist removes a saved product; absent products are ignored
func (s *LedgerService) RemoveFromWishlist(ctx context.Context, sessionID string, productID int64) (*WishlistResponse, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.RemoveFromWishlist")
	defer span.End()

	var resp *WishlistResponse
	err := s.withLedgers(ctx, sessionID, "remove_from_wishlist", func(l *sessionLedgers) error {
		if l.wishlist.IsInWishlist(productID) {
			l.wishlist.RemoveFromWishlist(ctx, productID)
			s.publishWishlistItem(l, models.EventTypeWishlistItemRemoved, sessionID, productID)
		}
		resp = newWishlistResponse(sessionID, l.wishlist)
		return nil
	})
	return resp, err
}

// ClearWishlist empties the session's wishlist
func (s *LedgerService) ClearWishlist(ctx context.Context, sessionID string) (*WishlistResponse, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.ClearWishlist")
	defer span.End()

	var resp *WishlistResponse
	err := s.withLedgers(ctx, sessionID, "clear_wishlist", func(l *sessionLedgers) error {
		removed := l.wishlist.Count()
		l.wishlist.ClearWishlist(ctx)
		if removed > 0 {
			s.publishCleared(l, models.EventTypeWishlistCleared, sessionID, removed)
		}
		resp = newWishlistResponse(sessionID, l.wishlist)
		return nil
	})
	return resp, err
}

// MoveToCart moves a saved product into the cart. Both ledgers are unchanged
// when the product is not saved or the cart rejects it.
func (s *LedgerService) MoveToCart(ctx context.Context, sessionID string, productID int64, quantity int) (*MoveResponse, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.MoveToCart")
	defer span.End()

	var resp *MoveResponse
	err := s.withLedgers(ctx, sessionID, "move_to_cart", func(l *sessionLedgers) error {
		if !l.wishlist.IsInWishlist(productID) {
			return fmt.Errorf("%w: %d", ErrNotInWishlist, productID)
		}
		if !l.wishlist.MoveToCart(ctx, productID, quantity) {
			return fmt.Errorf("%w: %d", ErrOutOfStock, productID)
		}

		s.publishWishlistItem(l, models.EventTypeWishlistItemMoved, sessionID, productID)
		resp = &MoveResponse{
			Moved:    1,
			Cart:     newCartResponse(sessionID, l.cart),
			Wishlist: newWishlistResponse(sessionID, l.wishlist),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// MoveAllToCart moves every saved product the cart accepts, one unit each
func (s *LedgerService) MoveAllToCart(ctx context.Context, sessionID string) (*MoveResponse, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.MoveAllToCart")
	defer span.End()

	var resp *MoveResponse
	err := s.withLedgers(ctx, sessionID, "move_all_to_cart", func(l *sessionLedgers) error {
		saved := l.wishlist.Entries()
		moved := l.wishlist.MoveAllToCart(ctx)

		for _, e := range saved {
			if !l.wishlist.IsInWishlist(e.ProductID) {
				s.publishWishlistItem(l, models.EventTypeWishlistItemMoved, sessionID, e.ProductID)
			}
		}
		if moved < len(saved) {
			s.logger.Info("Some wishlist entries were not moved",
				zap.String("session_id", sessionID),
				zap.Int("moved", moved),
				zap.Int("kept", len(saved)-moved))
		}

		resp = &MoveResponse{
			Moved:    moved,
			Cart:     newCartResponse(sessionID, l.cart),
			Wishlist: newWishlistResponse(sessionID, l.wishlist),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func findCartEntry(cart *ledger.Cart, productID int64) models.CartEntry {
	for _, e := range cart.Entries() {
		if e.ProductID == productID {
			return e
		}
	}
	return models.CartEntry{}
}
