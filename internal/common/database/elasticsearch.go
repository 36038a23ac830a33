// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"strings"

	"sales-crm-workers/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// productMapping indexes names and categories for full-text lookup and
// keeps prices as scaled floats.
const productMapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "keyword"},
      "name":          {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "category":      {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "cost":          {"type": "scaled_float", "scaling_factor": 100},
      "selling_rate":  {"type": "scaled_float", "scaling_factor": 100},
      "coverage":      {"type": "float"},
      "tags":          {"type": "keyword"}
    }
  }
}`

// ElasticsearchClient wraps the product search cluster.
type ElasticsearchClient struct {
	Client       *elasticsearch.Client
	ProductIndex string
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es, ProductIndex: cfg.ProductIndex}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

// EnsureProductIndex creates the product index when it does not exist.
func (c *ElasticsearchClient) EnsureProductIndex(ctx context.Context) error {
	res, err := c.Client.Indices.Exists([]string{c.ProductIndex}, c.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", c.ProductIndex, err)
	}
	res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	res, err = c.Client.Indices.Create(
		c.ProductIndex,
		c.Client.Indices.Create.WithContext(ctx),
		c.Client.Indices.Create.WithBody(strings.NewReader(productMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", c.ProductIndex, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index %s: %s", c.ProductIndex, res.Status())
	}
	return nil
}
