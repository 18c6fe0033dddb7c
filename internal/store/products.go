package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/models"

	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id             BIGINT PRIMARY KEY,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	category       TEXT NOT NULL,
	price          BIGINT NOT NULL CHECK (price >= 0),
	original_price BIGINT,
	stock          INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
	rating         DOUBLE PRECISION NOT NULL DEFAULT 0,
	popularity     INTEGER,
	image          TEXT NOT NULL DEFAULT '',
	images         TEXT[] NOT NULL DEFAULT '{}',
	colors         TEXT[] NOT NULL DEFAULT '{}',
	features       TEXT[] NOT NULL DEFAULT '{}',
	position       INTEGER NOT NULL DEFAULT 0
)`

// productRow mirrors the products table. position keeps catalog order.
type productRow struct {
	ID            int64          `db:"id"`
	Name          string         `db:"name"`
	Description   string         `db:"description"`
	Category      string         `db:"category"`
	Price         int64          `db:"price"`
	OriginalPrice sql.NullInt64  `db:"original_price"`
	Stock         int            `db:"stock"`
	Rating        float64        `db:"rating"`
	Popularity    sql.NullInt64  `db:"popularity"`
	Image         string         `db:"image"`
	Images        pq.StringArray `db:"images"`
	Colors        pq.StringArray `db:"colors"`
	Features      pq.StringArray `db:"features"`
	Position      int            `db:"position"`
}

func (r productRow) toProduct() models.Product {
	p := models.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Price:       r.Price,
		Stock:       r.Stock,
		Rating:      r.Rating,
		Image:       r.Image,
		Images:      nonEmpty(r.Images),
		Colors:      nonEmpty(r.Colors),
		Features:    nonEmpty(r.Features),
	}
	if r.OriginalPrice.Valid {
		orig := r.OriginalPrice.Int64
		p.OriginalPrice = &orig
	}
	if r.Popularity.Valid {
		pop := int(r.Popularity.Int64)
		p.Popularity = &pop
	}
	return p
}

func fromProduct(p models.Product, position int) productRow {
	r := productRow{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Stock:       p.Stock,
		Rating:      p.Rating,
		Image:       p.Image,
		Images:      pq.StringArray(orEmpty(p.Images)),
		Colors:      pq.StringArray(orEmpty(p.Colors)),
		Features:    pq.StringArray(orEmpty(p.Features)),
		Position:    position,
	}
	if p.OriginalPrice != nil {
		r.OriginalPrice = sql.NullInt64{Int64: *p.OriginalPrice, Valid: true}
	}
	if p.Popularity != nil {
		r.Popularity = sql.NullInt64{Int64: int64(*p.Popularity), Valid: true}
	}
	return r
}

func nonEmpty(values pq.StringArray) []string {
	if len(values) == 0 {
		return nil
	}
	return []string(values)
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// Name identifies the store as a catalog source
func (s *Store) Name() string {
	return "postgres"
}

// Products returns every product in catalog order
func (s *Store) Products(ctx context.Context) ([]models.Product, error) {
	var rows []productRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, description, category, price, original_price, stock, rating,
		       popularity, image, images, colors, features, position
		FROM products
		ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	products := make([]models.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, r.toProduct())
	}
	return products, nil
}

// EnsureSchema creates the products table if it does not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create products table: %w", err)
	}
	return nil
}

// UpsertProducts writes products in one transaction, preserving their order
func (s *Store) UpsertProducts(ctx context.Context, products []models.Product) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO products (id, name, description, category, price, original_price, stock, rating,
		                      popularity, image, images, colors, features, position)
		VALUES (:id, :name, :description, :category, :price, :original_price, :stock, :rating,
		        :popularity, :image, :images, :colors, :features, :position)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			original_price = EXCLUDED.original_price,
			stock = EXCLUDED.stock,
			rating = EXCLUDED.rating,
			popularity = EXCLUDED.popularity,
			image = EXCLUDED.image,
			images = EXCLUDED.images,
			colors = EXCLUDED.colors,
			features = EXCLUDED.features,
			position = EXCLUDED.position`

	for i, p := range products {
		if _, err := tx.NamedExecContext(ctx, query, fromProduct(p, i)); err != nil {
			return fmt.Errorf("failed to upsert product %d: %w", p.ID, err)
		}
	}

	return tx.Commit()
}
