package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"storefront/internal/models"
)

//go:embed data/products.json
var embeddedProducts []byte

// JSONSource decodes the catalog from a JSON array of products
type JSONSource struct {
	name string
	data []byte
}

// NewJSONSource creates a source that decodes data on every read
func NewJSONSource(name string, data []byte) *JSONSource {
	return &JSONSource{name: name, data: data}
}

// NewEmbeddedSource returns the catalog compiled into the binary
func NewEmbeddedSource() *JSONSource {
	return NewJSONSource("embedded", embeddedProducts)
}

// Name identifies the source in errors and logs
func (s *JSONSource) Name() string {
	return s.name
}

// Products decodes the product list
func (s *JSONSource) Products(ctx context.Context) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var products []models.Product
	if err := json.Unmarshal(s.data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	if products == nil {
		return nil, fmt.Errorf("catalog document is empty")
	}
	return products, nil
}
