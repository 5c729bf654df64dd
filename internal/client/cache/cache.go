// Package cache keeps the last-known-good snapshot of every category in the
// local store, one JSON blob per category under "cache:<category>".
package cache

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dmitrijs2005/healthsync/internal/client/models"
	"github.com/dmitrijs2005/healthsync/internal/client/storage"
	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/logging"
)

type Cache struct {
	store storage.Store
	log   logging.Logger
}

func New(store storage.Store, log logging.Logger) *Cache {
	return &Cache{store: store, log: log.With("module", "cache")}
}

func decode(key string, raw []byte) (*models.CachedEntity, error) {
	if raw == nil {
		return nil, nil
	}
	var e models.CachedEntity
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, &common.StorageError{Op: "decode", Key: key, Err: err}
	}
	if e.Payload == nil {
		e.Payload = models.Payload{}
	}
	return &e, nil
}

// Get returns the cached snapshot, or (nil, nil) when there is none.
func (c *Cache) Get(ctx context.Context, category models.Category) (*models.CachedEntity, error) {
	key := category.CacheKey()
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	e, err := decode(key, raw)
	if err != nil {
		c.log.Warn(ctx, "cached entity is unreadable", "category", category, "error", err)
		return nil, err
	}
	return e, nil
}

func (c *Cache) Put(ctx context.Context, e models.CachedEntity) error {
	b, err := json.Marshal(e)
	if err != nil {
		return &common.StorageError{Op: "encode", Key: e.Category.CacheKey(), Err: err}
	}
	return c.store.Set(ctx, e.Category.CacheKey(), b)
}

// Update atomically replaces the snapshot of category with fn(current).
// current is nil on a miss; an unreadable snapshot is treated as a miss.
func (c *Cache) Update(ctx context.Context, category models.Category, fn func(current *models.CachedEntity) (models.CachedEntity, error)) (models.CachedEntity, error) {
	key := category.CacheKey()
	var result models.CachedEntity
	err := c.store.Update(ctx, key, func(old []byte) ([]byte, error) {
		cur, err := decode(key, old)
		if err != nil {
			c.log.Warn(ctx, "overwriting unreadable cached entity", "category", category, "error", err)
			cur = nil
		}
		next, err := fn(cur)
		if err != nil {
			return nil, err
		}
		next.Category = category
		b, err := json.Marshal(next)
		if err != nil {
			return nil, &common.StorageError{Op: "encode", Key: key, Err: err}
		}
		result = next
		return b, nil
	})
	if err != nil {
		return models.CachedEntity{}, err
	}
	return result, nil
}

func (c *Cache) Delete(ctx context.Context, category models.Category) error {
	return c.store.Delete(ctx, category.CacheKey())
}

// List returns every readable cached snapshot keyed by category.
func (c *Cache) List(ctx context.Context) (map[models.Category]models.CachedEntity, error) {
	raw, err := c.store.List(ctx, common.CacheKeyPrefix)
	if err != nil {
		return nil, err
	}
	out := make(map[models.Category]models.CachedEntity, len(raw))
	for key, v := range raw {
		e, err := decode(key, v)
		if err != nil {
			c.log.Warn(ctx, "skipping unreadable cached entity", "key", key, "error", err)
			continue
		}
		out[models.Category(strings.TrimPrefix(key, common.CacheKeyPrefix))] = *e
	}
	return out, nil
}
