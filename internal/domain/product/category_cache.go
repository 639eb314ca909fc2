package product

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const categoryTreeKey = "categories:tree"

// TreeCache stores the rendered public category tree
type TreeCache interface {
	GetTree(ctx context.Context) ([]CategoryTree, bool)
	SetTree(ctx context.Context, tree []CategoryTree)
	Invalidate(ctx context.Context)
}

// RedisTreeCache keeps the tree as one JSON value. Redis errors are logged and
// treated as cache misses so the catalog keeps serving from the database.
type RedisTreeCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisTreeCache creates a tree cache. A nil client yields a nil cache.
func NewRedisTreeCache(client redis.Cmdable, ttl time.Duration) TreeCache {
	if client == nil {
		return nil
	}
	return &RedisTreeCache{client: client, ttl: ttl}
}

func (c *RedisTreeCache) GetTree(ctx context.Context) ([]CategoryTree, bool) {
	raw, err := c.client.Get(ctx, categoryTreeKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logrus.WithError(err).Warn("category tree cache read failed")
		}
		return nil, false
	}
	var tree []CategoryTree
	if err := json.Unmarshal(raw, &tree); err != nil {
		logrus.WithError(err).Warn("category tree cache entry is corrupt")
		return nil, false
	}
	return tree, true
}

func (c *RedisTreeCache) SetTree(ctx context.Context, tree []CategoryTree) {
	raw, err := json.Marshal(tree)
	if err != nil {
		logrus.WithError(err).Warn("failed to encode category tree")
		return
	}
	if err := c.client.Set(ctx, categoryTreeKey, raw, c.ttl).Err(); err != nil {
		logrus.WithError(err).Warn("category tree cache write failed")
	}
}

func (c *RedisTreeCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, categoryTreeKey).Err(); err != nil {
		logrus.WithError(err).Warn("category tree cache invalidation failed")
	}
}
