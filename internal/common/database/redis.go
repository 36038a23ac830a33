// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"sales-crm-workers/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient carries the client plus the cache lifetimes from config.
type RedisClient struct {
	Client     *redis.Client
	LeadTTL    time.Duration
	CatalogTTL time.Duration
}

func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	return &RedisClient{
		Client:     rdb,
		LeadTTL:    config.GetDuration(cfg.LeadTTL),
		CatalogTTL: config.GetDuration(cfg.CatalogTTL),
	}, nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
