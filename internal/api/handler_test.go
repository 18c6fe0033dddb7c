package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/kvstore"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `[
	{"id": 1, "name": "Headphones", "description": "Noise cancelling", "category": "Audio", "price": 12999, "original_price": 15999, "stock": 3, "rating": 4.6, "colors": ["Black"], "features": ["Bluetooth 5.3", "USB-C"]},
	{"id": 2, "name": "Speaker", "description": "Waterproof", "category": "Audio", "price": 4999, "stock": 10, "rating": 4.2, "colors": ["Blue"]},
	{"id": 3, "name": "Keyboard", "description": "Mechanical", "category": "Computers", "price": 8999, "stock": 0, "rating": 4.4},
	{"id": 4, "name": "Mouse", "description": "Wireless", "category": "Computers", "price": 2999, "stock": 7, "rating": 4.0, "features": ["Bluetooth"]}
]`

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, load bool) *gin.Engine {
	t.Helper()
	return newTestRouterWithStore(t, load, kvstore.NewMemory())
}

func newTestRouterWithStore(t *testing.T, load bool, kv kvstore.Store) *gin.Engine {
	t.Helper()

	store := catalog.NewStore(catalog.NewJSONSource("test", []byte(testCatalog)))
	catalogService := service.NewCatalogService(store, 20)
	if load {
		require.NoError(t, catalogService.Load(context.Background()))
	}

	ledgerService := service.NewLedgerService(kv, store, nil, service.LedgerConfig{
		CartKeyPrefix:        "cart:",
		WishlistKeyPrefix:    "wishlist:",
		IdempotencyKeyPrefix: "idempotency:",
		IdempotencyTTL:       time.Hour,
		LockKeyPrefix:        "session:",
		LockWait:             20 * time.Millisecond,
	})

	router := gin.New()
	NewHandler(catalogService, ledgerService, 4).SetupRoutes(router)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func session(id string) map[string]string {
	return map[string]string{sessionHeader: id}
}

func TestHealthAndReadiness(t *testing.T) {
	router := newTestRouter(t, false)

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/health", nil, nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodGet, "/ready", nil, nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodGet, "/api/v1/products", nil, nil).Code)

	router = newTestRouter(t, true)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/ready", nil, nil).Code)
}

type unreachableStore struct {
	*kvstore.Memory
}

func (unreachableStore) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

func TestReadinessChecksLedgerStore(t *testing.T) {
	router := newTestRouterWithStore(t, true, unreachableStore{kvstore.NewMemory()})

	w := do(t, router, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "ledger store unavailable", decode(t, w)["status"])
}

func TestBusySession(t *testing.T) {
	kv := kvstore.NewMemory()
	router := newTestRouterWithStore(t, true, kv)

	locked, err := kv.AcquireLock(context.Background(), "session:busy", "other-replica", time.Minute)
	require.NoError(t, err)
	require.True(t, locked)

	w := do(t, router, http.MethodGet, "/api/v1/cart", nil, session("busy"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/cart", nil, session("free"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListProducts(t *testing.T) {
	router := newTestRouter(t, true)

	tests := []struct {
		name  string
		query string
		ids   []float64
	}{
		{"all in catalog order", "", []float64{1, 2, 3, 4}},
		{"category and stock", "?category=Computers&in_stock=true", []float64{4}},
		{"comma separated categories", "?category=Audio,Computers&sort=priceLow", []float64{4, 2, 3, 1}},
		{"price range", "?min_price=3000&max_price=9000", []float64{2, 3}},
		{"search", "?q=%20WIRE", []float64{4}},
		{"color", "?color=Blue", []float64{2}},
		{"features default to all-of", "?feature=bluetooth,usb-c", []float64{1}},
		{"features any-of", "?feature=bluetooth,usb-c&match_all_features=false", []float64{1, 4}},
		{"rating and sort", "?rating=4.3&sort=rating", []float64{1, 3}},
		{"unknown sort falls back", "?sort=bogus", []float64{1, 2, 3, 4}},
		{"pagination", "?per_page=3&page=2", []float64{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodGet, "/api/v1/products"+tt.query, nil, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var got []float64
			for _, item := range decode(t, w)["items"].([]interface{}) {
				got = append(got, item.(map[string]interface{})["id"].(float64))
			}
			assert.Equal(t, tt.ids, got)
		})
	}

	w := do(t, router, http.MethodGet, "/api/v1/products?rating=9", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProduct(t *testing.T) {
	router := newTestRouter(t, true)

	w := do(t, router, http.MethodGet, "/api/v1/products/1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "$129.99", body["formatted_price"])

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/v1/products/99", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/v1/products/abc", nil, nil).Code)

	w = do(t, router, http.MethodGet, "/api/v1/products/1/related?limit=2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 2)

	w = do(t, router, http.MethodGet, "/api/v1/products/1/related", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 3)
}

func TestCatalogMetadata(t *testing.T) {
	router := newTestRouter(t, true)

	w := do(t, router, http.MethodGet, "/api/v1/catalog/facets", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	facets := decode(t, w)
	assert.Equal(t, []interface{}{"Audio", "Computers"}, facets["categories"])
	assert.Equal(t, float64(1), facets["out_of_stock"])

	w = do(t, router, http.MethodGet, "/api/v1/catalog/sort-options", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "featured", decode(t, w)["default"])
}

func TestSessionHeader(t *testing.T) {
	router := newTestRouter(t, true)

	w := do(t, router, http.MethodGet, "/api/v1/cart", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	issued := w.Header().Get(sessionHeader)
	assert.NotEmpty(t, issued)

	w = do(t, router, http.MethodGet, "/api/v1/cart", nil, session("abc"))
	assert.Equal(t, "abc", w.Header().Get(sessionHeader))
	assert.Equal(t, "abc", decode(t, w)["session_id"])
}

func TestCartFlow(t *testing.T) {
	router := newTestRouter(t, true)
	h := session("s1")

	w := do(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 1, "quantity": 2}, h)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 1, "quantity": 5}, h)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(3), body["quantity"])
	assert.Equal(t, true, body["clamped"])

	w = do(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 3}, h)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 99}, h)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"quantity": 1}, h)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPatch, "/api/v1/cart/items/1", gin.H{"quantity": 1}, h)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode(t, w)["summary"].(map[string]interface{})
	assert.Equal(t, float64(12999), summary["subtotal"])
	assert.Equal(t, float64(910), summary["tax"])
	assert.Equal(t, float64(0), summary["shipping"])

	w = do(t, router, http.MethodPatch, "/api/v1/cart/items/1", gin.H{}, h)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodDelete, "/api/v1/cart/items/77", nil, h)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 1)

	w = do(t, router, http.MethodDelete, "/api/v1/cart", nil, h)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["items"])
}

func TestAddToCartIdempotencyKey(t *testing.T) {
	router := newTestRouter(t, true)
	h := map[string]string{sessionHeader: "s1", idempotencyHeader: "req-1"}

	w := do(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 2, "quantity": 1}, h)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 2, "quantity": 1}, h)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["duplicate"])
	assert.Equal(t, float64(1), body["quantity"])
}

func TestWishlistFlow(t *testing.T) {
	router := newTestRouter(t, true)
	h := session("s1")

	for _, id := range []int{1, 3, 4} {
		w := do(t, router, http.MethodPost, "/api/v1/wishlist/items", gin.H{"product_id": id}, h)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := do(t, router, http.MethodGet, "/api/v1/wishlist", nil, h)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["count"])

	w = do(t, router, http.MethodPost, "/api/v1/wishlist/items/1/move", gin.H{"quantity": 2}, h)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2), body["wishlist"].(map[string]interface{})["count"])

	w = do(t, router, http.MethodPost, "/api/v1/wishlist/items/1/move", nil, h)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/wishlist/items/3/move", nil, h)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/wishlist/move-all", nil, h)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, float64(1), body["moved"])
	assert.Equal(t, float64(1), body["wishlist"].(map[string]interface{})["count"])

	w = do(t, router, http.MethodDelete, "/api/v1/wishlist/items/3", nil, h)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["count"])

	w = do(t, router, http.MethodDelete, "/api/v1/wishlist", nil, h)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/cart", nil, h)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 2)
}

func TestSplitValues(t *testing.T) {
	assert.Equal(t, []string{"Audio", "Computers", "Cameras"}, splitValues([]string{"Audio, Computers", "Cameras", " "}))
	assert.Nil(t, splitValues(nil))
}
