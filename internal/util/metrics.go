package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogProductsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_products_loaded",
		Help: "Number of products in the loaded catalog",
	})

	CatalogLoadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_load_failures_total",
		Help: "Total number of failed catalog loads",
	})

	CartItemsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_items_added_total",
		Help: "Total number of successful add-to-cart operations",
	})

	CartQuantityClampedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_quantity_clamped_total",
		Help: "Total number of cart quantity requests clamped to stock",
	})

	CartAddRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_add_rejected_total",
		Help: "Total number of add-to-cart requests for out of stock products",
	})

	WishlistMovesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wishlist_moves_total",
		Help: "Total number of wishlist entries moved to the cart",
	}, []string{"mode"})

	LedgerSaveFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_save_failures_total",
		Help: "Total number of failed ledger writes to the key-value store",
	}, []string{"ledger"})

	LedgerOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_operation_latency_seconds",
		Help:    "Latency of cart and wishlist operations including load and save",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	SessionLockTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_lock_timeouts_total",
		Help: "Total number of commands that gave up waiting for the session lock",
	})

	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idempotent_replays_total",
		Help: "Total number of requests skipped because their idempotency key was already used",
	})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Total number of storefront events published",
	}, []string{"event_type"})

	EventsPublishFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_publish_failed_total",
		Help: "Total number of storefront events that failed to publish",
	})

	EventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_consumed_total",
		Help: "Total number of storefront events consumed",
	}, []string{"event_type"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
