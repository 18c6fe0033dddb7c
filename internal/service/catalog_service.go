package service

import (
	"context"
	"fmt"

	"storefront/internal/catalog"
	"storefront/internal/models"
	"storefront/internal/pipeline"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CatalogService serves read-only product browsing over the catalog store
type CatalogService struct {
	catalog        *catalog.Store
	defaultPerPage int
	logger         *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store *catalog.Store, defaultPerPage int) *CatalogService {
	return &CatalogService{
		catalog:        store,
		defaultPerPage: defaultPerPage,
		logger:         util.GetLogger(),
	}
}

// Load loads the catalog. A failure leaves the service not ready but is not fatal.
func (s *CatalogService) Load(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.Load")
	defer span.End()

	if err := s.catalog.Load(ctx); err != nil {
		util.CatalogLoadFailuresTotal.Inc()
		s.logger.Error("Failed to load catalog", zap.Error(err))
		return err
	}

	products := s.catalog.Products()
	util.CatalogProductsLoaded.Set(float64(len(products)))
	s.logger.Info("Catalog loaded", zap.Int("products", len(products)))
	return nil
}

// Ready reports whether the catalog has been loaded
func (s *CatalogService) Ready() bool {
	return s.catalog.Ready()
}

// ProductQuery describes one page of a filtered and sorted product listing
type ProductQuery struct {
	Filter  pipeline.FilterSpec
	Sort    pipeline.SortKey
	Page    int
	PerPage int
}

// ProductListResponse is a page of products plus the query that produced it
type ProductListResponse struct {
	pipeline.Page
	Sort    pipeline.SortKey    `json:"sort"`
	Filters pipeline.FilterSpec `json:"filters"`
}

// ListProducts filters, sorts and paginates the catalog
func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) (*ProductListResponse, error) {
	_, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	if !s.catalog.Ready() {
		return nil, catalog.ErrNotLoaded
	}

	perPage := q.PerPage
	if perPage <= 0 {
		perPage = s.defaultPerPage
	}

	products := pipeline.Apply(s.catalog.Products(), q.Filter, q.Sort)
	return &ProductListResponse{
		Page:    pipeline.Paginate(products, q.Page, perPage),
		Sort:    q.Sort,
		Filters: q.Filter,
	}, nil
}

// GetProduct returns a product by id
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	_, span := util.StartSpan(ctx, "CatalogService.GetProduct")
	defer span.End()

	return s.catalog.GetByID(id)
}

// GetRelated returns up to limit products related to the product with the given id
func (s *CatalogService) GetRelated(ctx context.Context, id int64, limit int) ([]models.Product, error) {
	_, span := util.StartSpan(ctx, "CatalogService.GetRelated")
	defer span.End()

	product, err := s.catalog.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get related products: %w", err)
	}
	return s.catalog.GetRelated(product, limit), nil
}

// FacetsResponse describes the filter choices available in the catalog
type FacetsResponse struct {
	pipeline.Facets
	Defaults pipeline.FilterSpec `json:"defaults"`
}

// Facets returns category, price and stock facets plus the reset filter state
func (s *CatalogService) Facets(ctx context.Context) (*FacetsResponse, error) {
	if !s.catalog.Ready() {
		return nil, catalog.ErrNotLoaded
	}

	products := s.catalog.Products()
	return &FacetsResponse{
		Facets:   pipeline.BuildFacets(products),
		Defaults: pipeline.DefaultFilterSpec(products),
	}, nil
}

// SortOptions returns the selectable sort orders
func (s *CatalogService) SortOptions() []pipeline.SortOption {
	return pipeline.SortOptions()
}
