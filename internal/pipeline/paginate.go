package pipeline

import "storefront/internal/models"

// Page is one slice of an ordered product list
type Page struct {
	Items      []models.Product `json:"items"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
}

// Paginate returns the 1-based page of products. Out-of-range pages are
// clamped to the nearest valid page; perPage < 1 puts everything on one page.
func Paginate(products []models.Product, page, perPage int) Page {
	total := len(products)
	if perPage < 1 {
		perPage = max(total, 1)
	}

	totalPages := (total + perPage - 1) / perPage
	page = max(page, 1)
	if totalPages > 0 {
		page = min(page, totalPages)
	} else {
		page = 1
	}

	start := (page - 1) * perPage
	end := min(start+perPage, total)

	items := make([]models.Product, end-start)
	copy(items, products[start:end])

	return Page{
		Items:      items,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}
