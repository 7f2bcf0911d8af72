package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"hydrosnap/internal/alerts"
	"hydrosnap/internal/types"
)

// DefaultThresholdTTL applies when no TTL is configured.
const DefaultThresholdTTL = 10 * time.Minute

const thresholdKeyPrefix = "hydrosnap:site:thresholds:"

// Client is the subset of *redis.Client the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// ThresholdCache decorates a SiteRepository, caching GetThresholds. Redis
// failures degrade to the underlying repository and are only logged.
type ThresholdCache struct {
	next   alerts.SiteRepository
	client Client
	ttl    time.Duration
	logger types.Logger
}

var _ alerts.SiteRepository = (*ThresholdCache)(nil)

// NewThresholdCache wraps next. A ttl of zero uses DefaultThresholdTTL.
func NewThresholdCache(next alerts.SiteRepository, client Client, ttl time.Duration, logger types.Logger) *ThresholdCache {
	if ttl <= 0 {
		ttl = DefaultThresholdTTL
	}
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &ThresholdCache{next: next, client: client, ttl: ttl, logger: logger}
}

func thresholdKey(siteID string) string {
	return thresholdKeyPrefix + siteID
}

// GetThresholds serves from Redis when possible and fills it on a miss.
func (c *ThresholdCache) GetThresholds(ctx context.Context, siteID string) (types.Thresholds, error) {
	key := thresholdKey(siteID)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var t types.Thresholds
		if jerr := json.Unmarshal(data, &t); jerr == nil {
			return t, nil
		}
		c.logger.Warn("discarding undecodable cached thresholds", "site_id", siteID)
	case errors.Is(err, redis.Nil):
	case ctx.Err() != nil:
		return types.Thresholds{}, ctx.Err()
	default:
		c.logger.Warn("threshold cache read failed", "site_id", siteID, "error", err)
	}

	t, err := c.next.GetThresholds(ctx, siteID)
	if err != nil {
		return types.Thresholds{}, err
	}

	if b, jerr := json.Marshal(t); jerr == nil {
		if serr := c.client.Set(ctx, key, b, c.ttl).Err(); serr != nil {
			c.logger.Warn("threshold cache write failed", "site_id", siteID, "error", serr)
		}
	}
	return t, nil
}

// Invalidate drops the cached thresholds for a site.
func (c *ThresholdCache) Invalidate(ctx context.Context, siteID string) error {
	if err := c.client.Del(ctx, thresholdKey(siteID)).Err(); err != nil {
		return types.NewAppError(types.ErrCodeInternalCache, "failed to invalidate thresholds", err)
	}
	return nil
}

// GetLatestReading is never cached.
func (c *ThresholdCache) GetLatestReading(ctx context.Context, siteID string) (*types.WaterLevelReading, error) {
	return c.next.GetLatestReading(ctx, siteID)
}

// GetLatestReadingsBatch is never cached.
func (c *ThresholdCache) GetLatestReadingsBatch(ctx context.Context, siteIDs []string) (map[string]*types.WaterLevelReading, error) {
	return c.next.GetLatestReadingsBatch(ctx, siteIDs)
}
