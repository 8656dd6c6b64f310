package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/grvbrk/intra_catalog/internal/catalog"
	"github.com/grvbrk/intra_catalog/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func ConnectRedis(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Protocol:     2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return client, nil
}

// CachedTable keeps the full listing of a table in Redis. Every successful
// mutation deletes the cached listing before returning, so a reload that
// follows a mutation always observes it. Redis failures fall through to the
// inner table.
type CachedTable[R any, D any] struct {
	inner  catalog.Table[R, D]
	client *redis.Client
	key    string
	kind   string
	ttl    time.Duration
	logger zerolog.Logger

	// set while a stale listing may still be cached
	dirty atomic.Bool
	// bumped by every mutation; a listing read under an older generation is not cached
	gen atomic.Int64
}

func NewCachedTable[R any, D any](kind string, inner catalog.Table[R, D], client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedTable[R, D] {
	return &CachedTable[R, D]{
		inner:  inner,
		client: client,
		key:    "catalog:" + kind,
		kind:   kind,
		ttl:    ttl,
		logger: logger.With().Str("component", "listing_cache").Str("kind", kind).Logger(),
	}
}

func (c *CachedTable[R, D]) List(ctx context.Context) ([]R, error) {
	if c.dirty.Load() {
		c.invalidate(ctx)
	}

	if !c.dirty.Load() {
		if records, ok := c.get(ctx); ok {
			return records, nil
		}
	}

	gen := c.gen.Load()
	records, err := c.inner.List(ctx)
	if err != nil {
		return nil, err
	}

	if !c.dirty.Load() && c.gen.Load() == gen {
		c.set(ctx, records)
	}
	return records, nil
}

func (c *CachedTable[R, D]) Insert(ctx context.Context, d D) (R, error) {
	r, err := c.inner.Insert(ctx, d)
	if err == nil {
		c.invalidate(ctx)
	}
	return r, err
}

func (c *CachedTable[R, D]) Update(ctx context.Context, id uuid.UUID, d D) (R, error) {
	r, err := c.inner.Update(ctx, id, d)
	if err == nil {
		c.invalidate(ctx)
	}
	return r, err
}

func (c *CachedTable[R, D]) Delete(ctx context.Context, id uuid.UUID) error {
	err := c.inner.Delete(ctx, id)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

func (c *CachedTable[R, D]) get(ctx context.Context) ([]R, bool) {
	val, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup(c.kind, "miss")
		return nil, false
	}
	if err != nil {
		metrics.RecordCacheLookup(c.kind, "error")
		c.logger.Warn().Err(err).Msg("redis get failed")
		return nil, false
	}

	var records []R
	if err := json.Unmarshal(val, &records); err != nil {
		metrics.RecordCacheLookup(c.kind, "error")
		c.logger.Warn().Err(err).Msg("json unmarshal failed")
		return nil, false
	}

	metrics.RecordCacheLookup(c.kind, "hit")
	return records, true
}

func (c *CachedTable[R, D]) set(ctx context.Context, records []R) {
	data, err := json.Marshal(records)
	if err != nil {
		c.logger.Warn().Err(err).Msg("json marshal failed")
		return
	}

	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis set failed")
	}
}

func (c *CachedTable[R, D]) invalidate(ctx context.Context) {
	c.gen.Add(1)
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		c.dirty.Store(true)
		c.logger.Warn().Err(err).Msg("redis delete failed, bypassing cache")
		return
	}
	c.dirty.Store(false)
}
