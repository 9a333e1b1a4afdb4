// Package rediscache provides a best-effort redis cache for generated bios.
package rediscache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultTTL = 24 * time.Hour

// BioCache caches generated biographies keyed by (name, role). All
// operations are best-effort: redis errors are logged and treated as cache
// misses so a broken cache never affects the enrichment contract.
type BioCache struct {
	rdb *redis.Client
	ttl time.Duration
	lg  *zap.Logger
}

func New(addr, password string, db int, lg *zap.Logger) *BioCache {
	if lg == nil {
		lg = zap.NewNop()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &BioCache{
		rdb: rdb,
		ttl: defaultTTL,
		lg:  lg,
	}
}

func (c *BioCache) Get(ctx context.Context, name, role string) (string, bool) {
	val, err := c.rdb.Get(ctx, key(name, role)).Result()
	if err != nil {
		if err != redis.Nil {
			c.lg.Debug("bio cache get failed", zap.Error(err))
		}

		return "", false
	}

	return val, true
}

func (c *BioCache) Set(ctx context.Context, name, role, bio string) {
	if err := c.rdb.Set(ctx, key(name, role), bio, c.ttl).Err(); err != nil {
		c.lg.Debug("bio cache set failed", zap.Error(err))
	}
}

func (c *BioCache) Close() error {
	return c.rdb.Close()
}

func key(name, role string) string {
	return fmt.Sprintf("bio:%s|%s", strings.ToLower(name), strings.ToLower(role))
}
