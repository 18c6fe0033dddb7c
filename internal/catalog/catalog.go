package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/models"
)

var (
	// ErrNotFound is returned when a product id is absent from the catalog
	ErrNotFound = errors.New("product not found")
	// ErrNotLoaded is returned by lookups before a successful Load
	ErrNotLoaded = errors.New("catalog not loaded")
)

// LoadError reports that the catalog could not be materialized
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load catalog from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Source produces the raw product list
type Source interface {
	Name() string
	Products(ctx context.Context) ([]models.Product, error)
}

// Store holds the immutable product list
type Store struct {
	source Source

	once     sync.Once
	loadErr  error
	products []models.Product
	byID     map[int64]int
}

// NewStore creates a catalog store backed by source
func NewStore(source Source) *Store {
	return &Store{source: source}
}

// Load populates the catalog from its source. Only the first call reads the
// source; later calls return the first call's result.
func (s *Store) Load(ctx context.Context) error {
	s.once.Do(func() {
		s.loadErr = s.load(ctx)
	})
	return s.loadErr
}

func (s *Store) load(ctx context.Context) error {
	products, err := s.source.Products(ctx)
	if err != nil {
		return &LoadError{Source: s.source.Name(), Err: err}
	}

	byID := make(map[int64]int, len(products))
	for i, p := range products {
		if err := p.Validate(); err != nil {
			return &LoadError{Source: s.source.Name(), Err: err}
		}
		if _, dup := byID[p.ID]; dup {
			return &LoadError{Source: s.source.Name(), Err: fmt.Errorf("duplicate product id %d", p.ID)}
		}
		byID[p.ID] = i
	}

	s.products = products
	s.byID = byID
	return nil
}

// Ready reports whether the catalog loaded successfully
func (s *Store) Ready() bool {
	return s.byID != nil && s.loadErr == nil
}

// Products returns a copy of the catalog in catalog order
func (s *Store) Products() []models.Product {
	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out
}

// GetByID retrieves a product by ID
func (s *Store) GetByID(id int64) (models.Product, error) {
	if !s.Ready() {
		return models.Product{}, ErrNotLoaded
	}
	i, ok := s.byID[id]
	if !ok {
		return models.Product{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return s.products[i], nil
}

// GetRelated returns up to limit products related to product: same-category
// products first, then products from other categories, both in catalog order.
func (s *Store) GetRelated(product models.Product, limit int) []models.Product {
	related := make([]models.Product, 0)
	if limit <= 0 {
		return related
	}

	for _, p := range s.products {
		if len(related) == limit {
			return related
		}
		if p.ID != product.ID && p.Category == product.Category {
			related = append(related, p)
		}
	}

	for _, p := range s.products {
		if len(related) == limit {
			break
		}
		if p.ID != product.ID && p.Category != product.Category {
			related = append(related, p)
		}
	}

	return related
}
