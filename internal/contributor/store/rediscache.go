package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"vestry/internal/contributor/metrics"
	"vestry/internal/contributor/models"
	"vestry/internal/policy"
	"vestry/pkg/domain"
)

const (
	// Redis key prefix for cached contributor records
	contributorKeyPrefix = "vestry:contributor:"
	// Fixed key for the registry admin; the admin is immutable once set so a
	// cached hit can never go stale.
	adminKey = "vestry:contributor:admin"
)

// Backing is the durable store a RedisCache decorates.
type Backing interface {
	Admin(ctx context.Context) (domain.Principal, error)
	CreateAdmin(ctx context.Context, admin domain.Principal) error
	Create(ctx context.Context, contributor *models.Contributor) error
	Get(ctx context.Context, address domain.Principal) (*models.Contributor, error)
	UpdateScore(ctx context.Context, contributor *models.Contributor) error
}

// RedisCache is a read-through cache over a Backing store. Lookups are
// served from Redis when possible; score overwrites invalidate eagerly.
// Redis failures fall through to the backing store, so the cache can only
// improve availability, never reduce it.
type RedisCache struct {
	inner   Backing
	client  *redis.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type RedisCacheOption func(*RedisCache)

func WithCacheLogger(logger *slog.Logger) RedisCacheOption {
	return func(c *RedisCache) {
		c.logger = logger
	}
}

func WithCacheMetrics(m *metrics.Metrics) RedisCacheOption {
	return func(c *RedisCache) {
		c.metrics = m
	}
}

func NewRedisCache(inner Backing, client *redis.Client, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{inner: inner, client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// cacheKey hashes the address so key length stays fixed and no principal
// appears verbatim in Redis.
func cacheKey(address domain.Principal) string {
	sum := sha256.Sum256([]byte(address))
	return contributorKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *RedisCache) Admin(ctx context.Context) (domain.Principal, error) {
	cached, err := c.client.Get(ctx, adminKey).Result()
	if err == nil && cached != "" {
		c.hit()
		return domain.Principal(cached), nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		c.warn(ctx, "redis get failed, falling through", "key", adminKey, "error", err)
	}

	admin, err := c.inner.Admin(ctx)
	if err != nil {
		// Uninitialized is never cached; the slot can still be written.
		return "", err
	}
	c.miss()
	if err := c.client.Set(ctx, adminKey, admin.String(), policy.ContributorCacheTTL).Err(); err != nil {
		c.warn(ctx, "redis set failed", "key", adminKey, "error", err)
	}
	return admin, nil
}

func (c *RedisCache) CreateAdmin(ctx context.Context, admin domain.Principal) error {
	return c.inner.CreateAdmin(ctx, admin)
}

func (c *RedisCache) Create(ctx context.Context, contributor *models.Contributor) error {
	// No invalidation needed: lookups for unregistered addresses are not
	// cached, so there is nothing stale to remove.
	return c.inner.Create(ctx, contributor)
}

func (c *RedisCache) Get(ctx context.Context, address domain.Principal) (*models.Contributor, error) {
	key := cacheKey(address)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var contributor models.Contributor
		if err := json.Unmarshal([]byte(cached), &contributor); err == nil {
			c.hit()
			return &contributor, nil
		}
		c.warn(ctx, "discarding undecodable cache entry", "key", key)
		_ = c.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		c.warn(ctx, "redis get failed, falling through", "key", key, "error", err)
	}

	contributor, err := c.inner.Get(ctx, address)
	if err != nil {
		return nil, err
	}
	c.miss()

	if encoded, err := json.Marshal(contributor); err == nil {
		if err := c.client.Set(ctx, key, encoded, policy.ContributorCacheTTL).Err(); err != nil {
			c.warn(ctx, "redis set failed", "key", key, "error", err)
		}
	}
	return contributor, nil
}

func (c *RedisCache) UpdateScore(ctx context.Context, contributor *models.Contributor) error {
	if err := c.inner.UpdateScore(ctx, contributor); err != nil {
		return err
	}
	// Best-effort invalidation; the TTL caps staleness if the DEL is lost.
	if err := c.client.Del(ctx, cacheKey(contributor.Address)).Err(); err != nil {
		c.warn(ctx, "redis del failed after score update", "address", contributor.Address.String(), "error", err)
	}
	return nil
}

func (c *RedisCache) hit() {
	if c.metrics != nil {
		c.metrics.CacheHits.Inc()
	}
}

func (c *RedisCache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMisses.Inc()
	}
}

func (c *RedisCache) warn(ctx context.Context, msg string, args ...any) {
	if c.logger != nil {
		c.logger.WarnContext(ctx, msg, args...)
	}
}
