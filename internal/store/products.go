package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sales-crm-workers/internal/agent"
	"sales-crm-workers/internal/common/database"
	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ProductSearch resolves free text to the best matching catalog product.
type ProductSearch struct {
	client *elasticsearch.Client
	index  string
}

func NewProductSearch(es *database.ElasticsearchClient) *ProductSearch {
	return &ProductSearch{client: es.Client, index: es.ProductIndex}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64        `json:"_score"`
			Source models.Product `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func buildProductQuery(text string) map[string]interface{} {
	return map[string]interface{}{
		"size": 1,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     text,
				"fields":    []string{"name^3", "category^2", "tags"},
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		},
	}
}

// Resolve returns the top hit for query, or agent.ErrNoProduct.
func (s *ProductSearch) Resolve(ctx context.Context, query string) (*models.Product, error) {
	if strings.TrimSpace(query) == "" {
		return nil, agent.ErrNoProduct
	}

	body, err := json.Marshal(buildProductQuery(query))
	if err != nil {
		return nil, apperrors.NewProductSearchFailedError(query, err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, apperrors.NewProductSearchFailedError(query, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewProductSearchFailedError(query, fmt.Errorf("search: %s", res.Status()))
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, apperrors.NewProductSearchFailedError(query, err)
	}
	if len(sr.Hits.Hits) == 0 {
		return nil, agent.ErrNoProduct
	}

	p := sr.Hits.Hits[0].Source
	return &p, nil
}

// IndexProduct writes p into the product index, replacing any document
// with the same id.
func (s *ProductSearch) IndexProduct(ctx context.Context, p models.Product) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: p.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index product %s: %w", p.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index product %s: %s", p.ID, res.Status())
	}
	return nil
}

// CachedCatalog memoises catalog lookups in Redis.
type CachedCatalog struct {
	catalog agent.Catalog
	cache   *Cache
	logger  logger.Logger
}

func NewCachedCatalog(catalog agent.Catalog, cache *Cache, log logger.Logger) *CachedCatalog {
	return &CachedCatalog{catalog: catalog, cache: cache, logger: log}
}

func (c *CachedCatalog) Resolve(ctx context.Context, query string) (*models.Product, error) {
	if p, ok, err := c.cache.GetProduct(ctx, query); err != nil {
		c.logger.Warn("catalog cache read failed", map[string]interface{}{"error": err.Error()})
	} else if ok {
		return p, nil
	}

	p, err := c.catalog.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetProduct(ctx, query, p); err != nil {
		c.logger.Warn("catalog cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return p, nil
}
