package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sales-crm-workers/internal/common/database"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	leadKeyPrefix    = "crm:lead:"
	productKeyPrefix = "crm:product:"
	cursorKeyPrefix  = "crm:cursor:"
)

// Cache holds lead snapshots, resolved products and sync cursors.
type Cache struct {
	rdb        *redis.Client
	leadTTL    time.Duration
	catalogTTL time.Duration
}

func NewCache(c *database.RedisClient) *Cache {
	return &Cache{rdb: c.Client, leadTTL: c.LeadTTL, catalogTTL: c.CatalogTTL}
}

func (c *Cache) GetLead(ctx context.Context, id string) (*models.Lead, bool, error) {
	var lead models.Lead
	ok, err := c.get(ctx, leadKeyPrefix+id, &lead)
	if !ok || err != nil {
		return nil, false, err
	}
	return &lead, true, nil
}

func (c *Cache) SetLead(ctx context.Context, lead *models.Lead) error {
	return c.set(ctx, leadKeyPrefix+lead.ID, lead, c.leadTTL)
}

func (c *Cache) InvalidateLead(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, leadKeyPrefix+id).Err()
}

func (c *Cache) GetProduct(ctx context.Context, query string) (*models.Product, bool, error) {
	var p models.Product
	ok, err := c.get(ctx, productKey(query), &p)
	if !ok || err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

func (c *Cache) SetProduct(ctx context.Context, query string, p *models.Product) error {
	return c.set(ctx, productKey(query), p, c.catalogTTL)
}

// Cursor returns the last successful sync time recorded under name.
func (c *Cache) Cursor(ctx context.Context, name string) (time.Time, bool, error) {
	raw, err := c.rdb.Get(ctx, cursorKeyPrefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("cursor %s: %w", name, err)
	}
	return t, true, nil
}

func (c *Cache) SetCursor(ctx context.Context, name string, t time.Time) error {
	return c.rdb.Set(ctx, cursorKeyPrefix+name, t.UTC().Format(time.RFC3339), 0).Err()
}

func (c *Cache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

func productKey(query string) string {
	return productKeyPrefix + strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// CachedStore puts a read-through lead cache in front of a Leads store.
// Writes go to the store and drop the cached snapshot. Cache failures are
// logged and never fail the call.
type CachedStore struct {
	Leads
	cache  *Cache
	logger logger.Logger
}

func NewCachedStore(leads Leads, cache *Cache, log logger.Logger) *CachedStore {
	return &CachedStore{Leads: leads, cache: cache, logger: log}
}

func (s *CachedStore) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	if lead, ok, err := s.cache.GetLead(ctx, id); err != nil {
		s.warn("cache read failed", id, err)
	} else if ok {
		return lead, nil
	}

	lead, err := s.Leads.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetLead(ctx, lead); err != nil {
		s.warn("cache write failed", id, err)
	}
	return lead, nil
}

func (s *CachedStore) AppendMessage(ctx context.Context, leadID string, msg *models.Message) error {
	if err := s.Leads.AppendMessage(ctx, leadID, msg); err != nil {
		return err
	}
	s.invalidate(ctx, leadID)
	return nil
}

func (s *CachedStore) UpdateLeadStatus(ctx context.Context, id string, status models.LeadStatus) error {
	if err := s.Leads.UpdateLeadStatus(ctx, id, status); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CachedStore) invalidate(ctx context.Context, id string) {
	if err := s.cache.InvalidateLead(ctx, id); err != nil {
		s.warn("cache invalidate failed", id, err)
	}
}

func (s *CachedStore) warn(msg, leadID string, err error) {
	s.logger.Warn(msg, map[string]interface{}{"leadId": leadID, "error": err.Error()})
}
