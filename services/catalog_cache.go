package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stickerhub/sticker-shop-api/config"
	"github.com/stickerhub/sticker-shop-api/models"
)

const (
	cacheKeyAllStickers   = "stickers:all"
	cacheKeyAllCategories = "categories:all"
)

// CatalogCache keeps the public catalog listings in redis.
// Redis failures are logged and treated as cache misses.
type CatalogCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewCatalogCache creates a cache over an existing redis client
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{redis: client, ttl: ttl}
}

// ConnectRedis opens a redis client for cfg.RedisURL and verifies it responds
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisURL,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     20,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func categoryStickersKey(category string) string {
	return fmt.Sprintf("stickers:category:%s", category)
}

// stickersKey returns the cache key for a listing, or "" when the listing is not cached
func stickersKey(filter StickerFilter) string {
	if filter.Search != "" || filter.IncludeInactive {
		return ""
	}
	if filter.Category != "" {
		return categoryStickersKey(filter.Category)
	}
	return cacheKeyAllStickers
}

func (c *CatalogCache) getStickers(ctx context.Context, key string) ([]models.Sticker, bool) {
	var stickers []models.Sticker
	return stickers, c.get(ctx, key, &stickers)
}

func (c *CatalogCache) getCategories(ctx context.Context) ([]models.Category, bool) {
	var categories []models.Category
	return categories, c.get(ctx, cacheKeyAllCategories, &categories)
}

func (c *CatalogCache) get(ctx context.Context, key string, dest interface{}) bool {
	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(data, dest); err != nil {
			log.Printf("Failed to unmarshal cached %s (continuing with DB): %v", key, err)
			return false
		}
		return true
	case errors.Is(err, redis.Nil):
	default:
		log.Printf("Redis error (continuing with DB): %v", err)
	}
	return false
}

func (c *CatalogCache) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("Failed to marshal %s for cache: %v", key, err)
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("Failed to cache %s: %v", key, err)
	}
}

// invalidate drops the full listings and the listings of the given categories
func (c *CatalogCache) invalidate(ctx context.Context, categories ...string) {
	keys := []string{cacheKeyAllStickers, cacheKeyAllCategories}
	for _, category := range categories {
		if category != "" {
			keys = append(keys, categoryStickersKey(category))
		}
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Failed to invalidate catalog cache %v: %v", keys, err)
	}
}

var cacheInstance *CatalogCache

// GetCatalogCache returns the shared catalog cache, nil when redis is not configured
func GetCatalogCache() *CatalogCache {
	return cacheInstance
}

// SetCatalogCache sets the shared catalog cache
func SetCatalogCache(cache *CatalogCache) {
	cacheInstance = cache
}
