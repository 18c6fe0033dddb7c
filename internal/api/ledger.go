package api

import (
	"errors"
	"io"
	"net/http"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// getCart handles get cart
func (h *Handler) getCart(c *gin.Context) {
	resp, err := h.ledgerService.GetCart(c.Request.Context(), sessionID(c))
	if err != nil {
		h.respondError(c, "Failed to load cart", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// addToCart handles adding a product to the cart
func (h *Handler) addToCart(c *gin.Context) {
	var req service.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.ledgerService.AddToCart(c.Request.Context(), sessionID(c), &req, c.GetHeader(idempotencyHeader))
	if err != nil {
		h.respondError(c, "Failed to add to cart", err)
		return
	}

	status := http.StatusCreated
	if resp.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// updateQuantity handles changing a cart line quantity
func (h *Handler) updateQuantity(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.ledgerService.UpdateQuantity(c.Request.Context(), sessionID(c), id, *req.Quantity)
	if err != nil {
		h.respondError(c, "Failed to update cart", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// removeFromCart handles removing a cart line
func (h *Handler) removeFromCart(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	resp, err := h.ledgerService.RemoveFromCart(c.Request.Context(), sessionID(c), id)
	if err != nil {
		h.respondError(c, "Failed to update cart", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// clearCart handles emptying the cart
func (h *Handler) clearCart(c *gin.Context) {
	resp, err := h.ledgerService.ClearCart(c.Request.Context(), sessionID(c))
	if err != nil {
		h.respondError(c, "Failed to clear cart", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getWishlist handles get wishlist
func (h *Handler) getWishlist(c *gin.Context) {
	resp, err := h.ledgerService.GetWishlist(c.Request.Context(), sessionID(c))
	if err != nil {
		h.respondError(c, "Failed to load wishlist", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type addToWishlistRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
}

// addToWishlist handles saving a product
func (h *Handler) addToWishlist(c *gin.Context) {
	var req addToWishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.ledgerService.AddToWishlist(c.Request.Context(), sessionID(c), req.ProductID)
	if err != nil {
		h.respondError(c, "Failed to add to wishlist", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// removeFromWishlist handles removing a saved product
func (h *Handler) removeFromWishlist(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	resp, err := h.ledgerService.RemoveFromWishlist(c.Request.Context(), sessionID(c), id)
	if err != nil {
		h.respondError(c, "Failed to update wishlist", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// clearWishlist handles emptying the wishlist
func (h *Handler) clearWishlist(c *gin.Context) {
	resp, err := h.ledgerService.ClearWishlist(c.Request.Context(), sessionID(c))
	if err != nil {
		h.respondError(c, "Failed to clear wishlist", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// moveToCart handles moving one saved product to the cart. The body is optional.
func (h *Handler) moveToCart(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.MoveToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.ledgerService.MoveToCart(c.Request.Context(), sessionID(c), id, req.Quantity)
	if err != nil {
		h.respondError(c, "Failed to move to cart", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// moveAllToCart handles moving every saved product to the cart
func (h *Handler) moveAllToCart(c *gin.Context) {
	resp, err := h.ledgerService.MoveAllToCart(c.Request.Context(), sessionID(c))
	if err != nil {
		h.respondError(c, "Failed to move to cart", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
