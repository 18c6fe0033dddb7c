package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	sessionHeader     = "X-Session-ID"
	idempotencyHeader = "Idempotency-Key"
	sessionContextKey = "session_id"
	maxSessionIDLen   = 128
)

// Handler contains HTTP handlers
type Handler struct {
	catalogService *service.CatalogService
	ledgerService  *service.LedgerService
	relatedLimit   int
	logger         *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(catalogService *service.CatalogService, ledgerService *service.LedgerService, relatedLimit int) *Handler {
	return &Handler{
		catalogService: catalogService,
		ledgerService:  ledgerService,
		relatedLimit:   relatedLimit,
		logger:         util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(h.loggerMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/products/:id/related", h.getRelated)
		v1.GET("/catalog/facets", h.getFacets)
		v1.GET("/catalog/sort-options", h.getSortOptions)
	}

	session := v1.Group("", sessionMiddleware())
	{
		session.GET("/cart", h.getCart)
		session.DELETE("/cart", h.clearCart)
		session.POST("/cart/items", h.addToCart)
		session.PATCH("/cart/items/:id", h.updateQuantity)
		session.DELETE("/cart/items/:id", h.removeFromCart)

		session.GET("/wishlist", h.getWishlist)
		session.DELETE("/wishlist", h.clearWishlist)
		session.POST("/wishlist/items", h.addToWishlist)
		session.DELETE("/wishlist/items/:id", h.removeFromWishlist)
		session.POST("/wishlist/items/:id/move", h.moveToCart)
		session.POST("/wishlist/move-all", h.moveAllToCart)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once the catalog has loaded and the
// ledger store answers
func (h *Handler) readinessCheck(c *gin.Context) {
	if !h.catalogService.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "catalog not loaded",
			"time":   time.Now().Unix(),
		})
		return
	}

	if err := h.ledgerService.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "ledger store unavailable",
			"details": err.Error(),
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// sessionMiddleware resolves the session from X-Session-ID, issuing a new id
// when the header is missing or unusable, and echoes it on the response
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(sessionHeader)
		if sessionID == "" || len(sessionID) > maxSessionIDLen {
			sessionID = uuid.New().String()
		}

		c.Set(sessionContextKey, sessionID)
		c.Header(sessionHeader, sessionID)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionContextKey)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID",
		})
		return 0, false
	}
	return id, true
}

// respondError maps service errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, service.ErrNotInWishlist):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrOutOfStock):
		status = http.StatusConflict
	case errors.Is(err, catalog.ErrNotLoaded), errors.Is(err, service.ErrSessionBusy):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(message, zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// loggerMiddleware logs each request with zap
func (h *Handler) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		h.logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("session_id", sessionID(c)),
		)
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
