package ledger

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"storefront/internal/kvstore"
	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func product(id int64, price int64, stock int) models.Product {
	return models.Product{ID: id, Name: "Product", Category: "Audio", Price: price, Stock: stock, Rating: 4}
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

func (failingStore) Set(ctx context.Context, key, value string) error {
	return errors.New("connection refused")
}

func (failingStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func (failingStore) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func (failingStore) ReleaseLock(ctx context.Context, key, token string) error {
	return errors.New("connection refused")
}

func TestCalculateShipping(t *testing.T) {
	assert.Equal(t, int64(500), CalculateShipping(0))
	assert.Equal(t, int64(500), CalculateShipping(4999))
	assert.Equal(t, int64(0), CalculateShipping(5000))
	assert.Equal(t, int64(0), CalculateShipping(5001))
}

func TestCalculateTax(t *testing.T) {
	tests := []struct {
		subtotal int64
		want     int64
	}{
		{10000, 700},
		{0, 0},
		{50, 4},
		{4999, 350},
		{12345, 864},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculateTax(tt.subtotal), "subtotal %d", tt.subtotal)
	}
}

func TestCalculateTotal(t *testing.T) {
	assert.Equal(t, int64(10000+700), CalculateTotal(10000))
	assert.Equal(t, int64(1000+70+500), CalculateTotal(1000))
}

func TestAddToCartMerge(t *testing.T) {
	ctx := context.Background()
	cart := NewCart(kvstore.NewMemory(), "cart:test")
	p := product(1, 1000, 10)

	require.True(t, cart.AddToCart(ctx, p, 4))
	require.True(t, cart.AddToCart(ctx, p, 4))
	assert.Len(t, cart.Entries(), 1)
	assert.Equal(t, 8, cart.GetItemQuantity(1))

	require.True(t, cart.AddToCart(ctx, p, 5))
	assert.Equal(t, 10, cart.GetItemQuantity(1))
}

func TestAddToCartEdgeCases(t *testing.T) {
	ctx := context.Background()

	t.Run("new entry clamped to stock", func(t *testing.T) {
		cart := NewCart(kvstore.NewMemory(), "cart:test")
		assert.True(t, cart.AddToCart(ctx, product(1, 100, 3), 7))
		assert.Equal(t, 3, cart.GetItemQuantity(1))
	})

	t.Run("quantity below one counts as one", func(t *testing.T) {
		cart := NewCart(kvstore.NewMemory(), "cart:test")
		assert.True(t, cart.AddToCart(ctx, product(1, 100, 3), 0))
		assert.Equal(t, 1, cart.GetItemQuantity(1))
	})

	t.Run("out of stock is rejected", func(t *testing.T) {
		cart := NewCart(kvstore.NewMemory(), "cart:test")
		assert.False(t, cart.AddToCart(ctx, product(1, 100, 0), 1))
		assert.False(t, cart.IsInCart(1))
		assert.Empty(t, cart.Entries())
	})

	t.Run("stock snapshot refreshed on merge", func(t *testing.T) {
		cart := NewCart(kvstore.NewMemory(), "cart:test")
		require.True(t, cart.AddToCart(ctx, product(1, 100, 10), 8))
		require.True(t, cart.AddToCart(ctx, product(1, 100, 5), 1))

		e := cart.Entries()[0]
		assert.Equal(t, 5, e.Stock)
		assert.Equal(t, 5, e.Quantity)
	})

	t.Run("snapshot is not live-linked", func(t *testing.T) {
		cart := NewCart(kvstore.NewMemory(), "cart:test")
		p := product(1, 100, 10)
		require.True(t, cart.AddToCart(ctx, p, 1))
		p.Price = 999
		assert.Equal(t, int64(100), cart.Entries()[0].Price)
	})
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	cart := NewCart(kvstore.NewMemory(), "cart:test")
	require.True(t, cart.AddToCart(ctx, product(1, 100, 5), 2))

	cart.UpdateQuantity(ctx, 1, 9)
	assert.Equal(t, 5, cart.GetItemQuantity(1))

	cart.UpdateQuantity(ctx, 1, 0)
	assert.Equal(t, 1, cart.GetItemQuantity(1))

	cart.UpdateQuantity(ctx, 1, 3)
	assert.Equal(t, 3, cart.GetItemQuantity(1))

	before := cart.Entries()
	cart.UpdateQuantity(ctx, 42, 3)
	assert.Equal(t, before, cart.Entries())
	assert.Equal(t, 0, cart.GetItemQuantity(42))
}

func TestQuantityInvariant(t *testing.T) {
	ctx := context.Background()
	r := rand.New(rand.NewSource(7))
	cart := NewCart(kvstore.NewMemory(), "cart:test")

	for i := 0; i < 500; i++ {
		id := int64(r.Intn(5) + 1)
		stock := r.Intn(12)
		if r.Intn(2) == 0 {
			cart.AddToCart(ctx, product(id, 100, stock), r.Intn(15)-2)
		} else {
			cart.UpdateQuantity(ctx, id, r.Intn(20)-5)
		}

		for _, e := range cart.Entries() {
			require.GreaterOrEqual(t, e.Quantity, 1)
			require.LessOrEqual(t, e.Quantity, e.Stock)
		}
	}
}

func TestRemovalIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	cart := NewCart(store, "cart:test")
	wishlist := NewWishlist(store, "wishlist:test", cart)

	require.True(t, cart.AddToCart(ctx, product(1, 100, 5), 2))
	wishlist.AddToWishlist(ctx, product(2, 200, 5))

	cartBefore := cart.Entries()
	wishBefore := wishlist.Entries()

	for i := 0; i < 3; i++ {
		cart.RemoveFromCart(ctx, 99)
		wishlist.RemoveFromWishlist(ctx, 99)
	}

	assert.Equal(t, cartBefore, cart.Entries())
	assert.Equal(t, wishBefore, wishlist.Entries())

	cart.RemoveFromCart(ctx, 1)
	cart.RemoveFromCart(ctx, 1)
	assert.Empty(t, cart.Entries())
}

func TestTotals(t *testing.T) {
	ctx := context.Background()
	cart := NewCart(kvstore.NewMemory(), "cart:test")

	discounted := product(1, 7500, 10)
	discounted.OriginalPrice = int64Ptr(10000)

	require.True(t, cart.AddToCart(ctx, discounted, 2))
	require.True(t, cart.AddToCart(ctx, product(2, 1250, 10), 3))

	assert.Equal(t, 5, cart.TotalItems())
	assert.Equal(t, int64(7500*2+1250*3), cart.CartTotal())
	assert.Equal(t, int64(2500*2), cart.TotalDiscount())

	cart.UpdateQuantity(ctx, 2, 1)
	assert.Equal(t, int64(7500*2+1250), cart.CartTotal())

	cart.RemoveFromCart(ctx, 1)
	assert.Equal(t, int64(1250), cart.CartTotal())
	assert.Zero(t, cart.TotalDiscount())

	summary := cart.Summary()
	assert.Equal(t, models.CartSummary{
		TotalItems: 1,
		Subtotal:   1250,
		Tax:        88,
		Shipping:   500,
		Total:      1250 + 88 + 500,
	}, summary)

	cart.ClearCart(ctx)
	assert.Zero(t, cart.TotalItems())
	assert.Zero(t, cart.CartTotal())
}

func TestWishlistSetSemantics(t *testing.T) {
	ctx := context.Background()
	wishlist := NewWishlist(kvstore.NewMemory(), "wishlist:test", NewCart(kvstore.NewMemory(), "cart:test"))

	wishlist.AddToWishlist(ctx, product(1, 100, 5))
	wishlist.AddToWishlist(ctx, product(1, 100, 5))
	wishlist.AddToWishlist(ctx, product(2, 100, 5))

	assert.Equal(t, 2, wishlist.Count())
	assert.True(t, wishlist.IsInWishlist(1))
	assert.False(t, wishlist.IsInWishlist(3))

	wishlist.ClearWishlist(ctx)
	assert.Zero(t, wishlist.Count())
}

func TestMoveToCart(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	cart := NewCart(store, "cart:test")
	wishlist := NewWishlist(store, "wishlist:test", cart)

	q := product(7, 2500, 4)
	q.OriginalPrice = int64Ptr(3000)
	wishlist.AddToWishlist(ctx, q)

	t.Run("absent id leaves both ledgers unchanged", func(t *testing.T) {
		assert.False(t, wishlist.MoveToCart(ctx, 99, 1))
		assert.Equal(t, 1, wishlist.Count())
		assert.Empty(t, cart.Entries())
	})

	t.Run("present id moves in one step", func(t *testing.T) {
		assert.True(t, wishlist.MoveToCart(ctx, 7, 2))
		assert.False(t, wishlist.IsInWishlist(7))
		assert.Equal(t, 2, cart.GetItemQuantity(7))

		e := cart.Entries()[0]
		assert.Equal(t, int64(3000), e.OriginalPrice)
		assert.Equal(t, int64(2500), e.Price)
	})

	t.Run("rejected add keeps the entry", func(t *testing.T) {
		wishlist.AddToWishlist(ctx, product(8, 100, 0))
		assert.False(t, wishlist.MoveToCart(ctx, 8, 1))
		assert.True(t, wishlist.IsInWishlist(8))
		assert.False(t, cart.IsInCart(8))
	})
}

func TestMoveAllToCart(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	cart := NewCart(store, "cart:test")
	wishlist := NewWishlist(store, "wishlist:test", cart)

	wishlist.AddToWishlist(ctx, product(1, 100, 5))
	wishlist.AddToWishlist(ctx, product(2, 100, 0))
	wishlist.AddToWishlist(ctx, product(3, 100, 5))

	assert.Equal(t, 2, wishlist.MoveAllToCart(ctx))

	assert.Equal(t, 1, cart.GetItemQuantity(1))
	assert.Equal(t, 1, cart.GetItemQuantity(3))
	assert.False(t, cart.IsInCart(2))

	require.Equal(t, 1, wishlist.Count())
	assert.True(t, wishlist.IsInWishlist(2))

	assert.Zero(t, NewWishlist(store, "wishlist:empty", cart).MoveAllToCart(ctx))
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()

	cart := NewCart(store, "cart:s1")
	wishlist := NewWishlist(store, "wishlist:s1", cart)

	discounted := product(1, 7500, 10)
	discounted.OriginalPrice = int64Ptr(10000)
	discounted.Image = "/img/1.jpg"
	require.True(t, cart.AddToCart(ctx, discounted, 3))
	require.True(t, cart.AddToCart(ctx, product(2, 1250, 4), 1))
	wishlist.AddToWishlist(ctx, product(3, 990, 2))

	reloadedCart := NewCart(store, "cart:s1")
	require.NoError(t, reloadedCart.Load(ctx))
	assert.Equal(t, cart.Entries(), reloadedCart.Entries())

	reloadedWishlist := NewWishlist(store, "wishlist:s1", reloadedCart)
	require.NoError(t, reloadedWishlist.Load(ctx))
	assert.Equal(t, wishlist.Entries(), reloadedWishlist.Entries())

	cart.ClearCart(ctx)
	require.NoError(t, reloadedCart.Load(ctx))
	assert.Empty(t, reloadedCart.Entries())
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()

	cart := NewCart(store, "cart:none")
	require.NoError(t, cart.Load(ctx))
	assert.Empty(t, cart.Entries())

	require.NoError(t, store.Set(ctx, "cart:bad", "{not json"))
	bad := NewCart(store, "cart:bad")
	assert.ErrorIs(t, bad.Load(ctx), ErrCorruptDocument)
	assert.Empty(t, bad.Entries())

	err := NewCart(failingStore{}, "cart:x").Load(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCorruptDocument)
}

func TestSaveFailureIsNotSurfaced(t *testing.T) {
	ctx := context.Background()
	cart := NewCart(failingStore{}, "cart:x")

	assert.True(t, cart.AddToCart(ctx, product(1, 100, 5), 2))
	assert.Equal(t, 2, cart.GetItemQuantity(1))

	cart.RemoveFromCart(ctx, 1)
	assert.False(t, cart.IsInCart(1))
}

func TestStateTransitionsArePure(t *testing.T) {
	s := CartState{}
	next, added, clamped := s.AddItem(product(1, 100, 2), 3)

	assert.True(t, added)
	assert.True(t, clamped)
	assert.Empty(t, s)
	assert.Len(t, next, 1)

	again, _, _ := next.AddItem(product(1, 100, 2), 1)
	assert.Equal(t, 2, next[0].Quantity)
	assert.Equal(t, 2, again[0].Quantity)

	removed, changed := again.RemoveItem(1)
	assert.True(t, changed)
	assert.Empty(t, removed)
	assert.Len(t, again, 1)
}
