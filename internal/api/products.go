package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/models"
	"storefront/internal/pipeline"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// productListParams is the query string of GET /products
type productListParams struct {
	Categories       []string `form:"category"`
	MinPrice         *int64   `form:"min_price" binding:"omitempty,min=0"`
	MaxPrice         *int64   `form:"max_price" binding:"omitempty,min=0"`
	Rating           float64  `form:"rating" binding:"omitempty,min=0,max=5"`
	InStock          bool     `form:"in_stock"`
	Search           string   `form:"q"`
	Colors           []string `form:"color"`
	Features         []string `form:"feature"`
	MatchAllFeatures *bool    `form:"match_all_features"`
	Sort             string   `form:"sort"`
	Page             int      `form:"page" binding:"omitempty,min=1"`
	PerPage          int      `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// splitValues accepts both repeated parameters and comma-separated lists
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (p productListParams) query() service.ProductQuery {
	spec := pipeline.FilterSpec{
		Categories: splitValues(p.Categories),
		Ratings:    p.Rating,
		InStock:    p.InStock,
		Search:     p.Search,
		Colors:     splitValues(p.Colors),
		Features:   splitValues(p.Features),
	}
	if p.MatchAllFeatures != nil {
		spec.MatchAnyFeature = !*p.MatchAllFeatures
	}

	if p.MinPrice != nil || p.MaxPrice != nil {
		r := models.PriceRange{Max: math.MaxInt64}
		if p.MinPrice != nil {
			r.Min = *p.MinPrice
		}
		if p.MaxPrice != nil {
			r.Max = *p.MaxPrice
		}
		spec.PriceRange = &r
	}

	return service.ProductQuery{
		Filter:  spec,
		Sort:    pipeline.ParseSortKey(p.Sort),
		Page:    p.Page,
		PerPage: p.PerPage,
	}
}

// listProducts handles filtered, sorted and paginated product listing
func (h *Handler) listProducts(c *gin.Context) {
	var params productListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.catalogService.ListProducts(c.Request.Context(), params.query())
	if err != nil {
		h.respondError(c, "Failed to list products", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// getProduct handles get product by ID
func (h *Handler) getProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Product not found", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product":         product,
		"formatted_price": models.FormatPrice(product.Price),
	})
}

// getRelated handles related products for a product
func (h *Handler) getRelated(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	limit := h.relatedLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid limit",
			})
			return
		}
		limit = n
	}

	related, err := h.catalogService.GetRelated(c.Request.Context(), id, limit)
	if err != nil {
		h.respondError(c, "Product not found", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": related,
	})
}

// getFacets handles the filter facets of the catalog
func (h *Handler) getFacets(c *gin.Context) {
	facets, err := h.catalogService.Facets(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to build facets", err)
		return
	}

	c.JSON(http.StatusOK, facets)
}

// getSortOptions handles the list of sort orders
func (h *Handler) getSortOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"options": h.catalogService.SortOptions(),
		"default": pipeline.SortFeatured,
	})
}
