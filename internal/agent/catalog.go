package agent

import (
	"context"
	"errors"
	"strings"

	"sales-crm-workers/internal/models"
)

var ErrNoProduct = errors.New("PRODUCT_NOT_FOUND")

// Catalog resolves the product a buyer is talking about.
type Catalog interface {
	Resolve(ctx context.Context, query string) (*models.Product, error)
}

// KeywordCatalog matches product names, categories and tags against the
// query. The longest matching term wins.
type KeywordCatalog struct {
	products []models.Product
}

func NewKeywordCatalog(products []models.Product) *KeywordCatalog {
	return &KeywordCatalog{products: append([]models.Product(nil), products...)}
}

func (c *KeywordCatalog) Resolve(_ context.Context, query string) (*models.Product, error) {
	lower := strings.ToLower(query)
	best, bestLen := -1, 0
	for i, p := range c.products {
		terms := append([]string{p.Name, p.Category}, p.Tags...)
		for _, term := range terms {
			term = strings.ToLower(strings.TrimSpace(term))
			if term != "" && len(term) > bestLen && strings.Contains(lower, term) {
				best, bestLen = i, len(term)
			}
		}
	}
	if best < 0 {
		return nil, ErrNoProduct
	}
	p := c.products[best]
	return &p, nil
}
