// Package cache adds a Redis cache-aside layer in front of a domain.LinkStore.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"linkboard/internal/domain"
)

const (
	routeKeyPrefix  = "link:route:"
	genKeyPrefix    = "link:gen:"
	DefaultCacheTTL = 10 * time.Minute

	// generationTTL only has to outlive the slowest lookup racing a delete.
	generationTTL = 24 * time.Hour
)

// LinkCache stores link routes by short code. A route is the immutable part
// of a link; click totals are never cached.
//
// Every code has a generation that Forget advances. Fill only writes when the
// generation read before the store lookup is still current, so a lookup that
// raced a delete cannot re-cache the deleted link. Implementations treat
// backend errors as misses.
type LinkCache interface {
	Get(ctx context.Context, code string) (link *domain.Link, ok bool)
	// Generation returns the current generation of code, or ok=false when it
	// cannot be read. Callers must not Fill without one.
	Generation(ctx context.Context, code string) (gen int64, ok bool)
	Fill(ctx context.Context, link *domain.Link, gen int64)
	Forget(ctx context.Context, code string)
}

// Compile-time interface checks
var (
	_ LinkCache = (*RedisLinkCache)(nil)
	_ LinkCache = NoopLinkCache{}
)

// route is the cached form of a link.
type route struct {
	ID           int64               `json:"id"`
	ShortCode    string              `json:"shortCode"`
	TargetURL    string              `json:"targetUrl"`
	RedirectKind domain.RedirectKind `json:"redirectKind"`
	CreatedAt    time.Time           `json:"createdAt"`
}

func routeOf(link *domain.Link) route {
	return route{
		ID:           link.ID,
		ShortCode:    link.ShortCode,
		TargetURL:    link.TargetURL,
		RedirectKind: link.RedirectKind,
		CreatedAt:    link.CreatedAt,
	}
}

func (r route) link() *domain.Link {
	return &domain.Link{
		ID:           r.ID,
		ShortCode:    r.ShortCode,
		TargetURL:    r.TargetURL,
		RedirectKind: r.RedirectKind,
		CreatedAt:    r.CreatedAt,
	}
}

// RedisLinkCache keeps each route as JSON under its code next to a
// generation counter.
type RedisLinkCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLinkCache returns a NoopLinkCache when rdb is nil.
func NewRedisLinkCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) LinkCache {
	if rdb == nil {
		return NoopLinkCache{}
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisLinkCache{rdb: rdb, ttl: ttl, logger: logger}
}

func routeKey(code string) string { return routeKeyPrefix + code }
func genKey(code string) string   { return genKeyPrefix + code }

var errGenerationMoved = errors.New("generation moved")

func (c *RedisLinkCache) Get(ctx context.Context, code string) (*domain.Link, bool) {
	data, err := c.rdb.Get(ctx, routeKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("failed to read route from cache", zap.String("short_code", code), zap.Error(err))
		return nil, false
	}

	var r route
	if err := json.Unmarshal(data, &r); err != nil {
		c.logger.Warn("failed to decode cached route", zap.String("short_code", code), zap.Error(err))
		return nil, false
	}
	return r.link(), true
}

func (c *RedisLinkCache) Generation(ctx context.Context, code string) (int64, bool) {
	gen, err := c.rdb.Get(ctx, genKey(code)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		c.logger.Warn("failed to read route generation", zap.String("short_code", code), zap.Error(err))
		return 0, false
	}
	return gen, true
}

// Fill writes the route inside a WATCH on the generation key, so a Forget
// landing between the check and the write aborts the transaction.
func (c *RedisLinkCache) Fill(ctx context.Context, link *domain.Link, gen int64) {
	data, err := json.Marshal(routeOf(link))
	if err != nil {
		c.logger.Warn("failed to encode route for cache", zap.String("short_code", link.ShortCode), zap.Error(err))
		return
	}

	key := genKey(link.ShortCode)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != gen {
			return errGenerationMoved
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, routeKey(link.ShortCode), data, c.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
	case errors.Is(err, errGenerationMoved), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("skipped caching route for deleted link", zap.String("short_code", link.ShortCode))
	default:
		c.logger.Warn("failed to cache route", zap.String("short_code", link.ShortCode), zap.Error(err))
	}
}

func (c *RedisLinkCache) Forget(ctx context.Context, code string) {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(code))
		pipe.Expire(ctx, genKey(code), generationTTL)
		pipe.Del(ctx, routeKey(code))
		return nil
	})
	if err != nil {
		c.logger.Warn("failed to invalidate cached route", zap.String("short_code", code), zap.Error(err))
	}
}

// NoopLinkCache is used when Redis is not configured.
type NoopLinkCache struct{}

func (NoopLinkCache) Get(context.Context, string) (*domain.Link, bool) { return nil, false }
func (NoopLinkCache) Generation(context.Context, string) (int64, bool) { return 0, false }
func (NoopLinkCache) Fill(context.Context, *domain.Link, int64)        {}
func (NoopLinkCache) Forget(context.Context, string)                   {}
