// Package cache keeps test groups and mappings in Redis.
//
// Both change only when a dataset is imported, while every report reads
// them in full. Wrapped collaborators are read through: a miss or a Redis
// failure falls back to the wrapped one.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/owtf/exporter/internal/model"
	"github.com/owtf/exporter/internal/report"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix     = "exporter:"
	testGroupsKey = keyPrefix + "test_groups"
	mappingPrefix = keyPrefix + "mapping:"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// New returns a cache storing entries for ttl, zero ttl means no expiration.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
	}
}

// Dial connects to Redis at rawURL and verifies the connection.
func Dial(ctx context.Context, rawURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return New(client, ttl), nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Invalidate drops all cached entries.
func (c *Cache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting cache keys: %w", err)
	}
	return nil
}

// TestGroups returns next cached.
func (c *Cache) TestGroups(next report.TestGroups) report.TestGroups {
	return testGroups{c: c, next: next}
}

// Mappings returns next cached.
func (c *Cache) Mappings(next report.Mappings) report.Mappings {
	return mappings{c: c, next: next}
}

type testGroups struct {
	c    *Cache
	next report.TestGroups
}

func (t testGroups) TestGroups(ctx context.Context) ([]model.TestGroup, error) {
	return readThrough(ctx, t.c, testGroupsKey, t.next.TestGroups)
}

type mappings struct {
	c    *Cache
	next report.Mappings
}

func (m mappings) Mapping(ctx context.Context, name string) (model.Mapping, error) {
	return readThrough(ctx, m.c, mappingPrefix+name, func(ctx context.Context) (model.Mapping, error) {
		return m.next.Mapping(ctx, name)
	})
}

func readThrough[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		decErr := json.Unmarshal(raw, &v)
		if decErr == nil {
			return v, nil
		}
		slog.WarnContext(ctx, "dropping malformed cache entry", "key", key, "error", decErr)
	case errors.Is(err, redis.Nil):
	default:
		slog.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}

	// the load is shared by every waiting caller, it must outlive the one
	// which started it
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if err := c.store(loadCtx, key, v); err != nil {
			slog.WarnContext(loadCtx, "cache write failed", "key", key, "error", err)
		}
		return v, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (c *Cache) store(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}
