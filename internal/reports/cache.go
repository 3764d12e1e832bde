package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores rendered reports in Redis under a per-outlet version. Bumping
// the version after each committed sale orphans every cached report for that
// outlet at once; the orphans expire with their TTL.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache constructs the report cache.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func versionKey(outletID int64) string {
	return fmt.Sprintf("mpi:reports:outlet:%d:version", outletID)
}

func (c *Cache) version(ctx context.Context, outletID int64) (int64, error) {
	v, err := c.rdb.Get(ctx, versionKey(outletID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Bump invalidates every cached report of the outlet. Implements the
// invalidator hook the sale pipeline calls after a commit.
func (c *Cache) Bump(ctx context.Context, outletID int64) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Incr(ctx, versionKey(outletID)).Err()
}

// Get loads a cached report into target; found is false on miss.
func (c *Cache) Get(ctx context.Context, outletID int64, name string, target any) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, nil
	}
	version, err := c.version(ctx, outletID)
	if err != nil {
		return false, err
	}
	raw, err := c.rdb.Get(ctx, c.key(outletID, version, name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, target)
}

// Set stores a rendered report under the outlet's current version.
func (c *Cache) Set(ctx context.Context, outletID int64, name string, value any) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	version, err := c.version(ctx, outletID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(outletID, version, name), raw, c.ttl).Err()
}

func (c *Cache) key(outletID, version int64, name string) string {
	return fmt.Sprintf("mpi:reports:outlet:%d:v%d:%s", outletID, version, name)
}
