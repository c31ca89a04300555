// Package cache wraps redis/go-redis/v9 around the planning core's two hot
// external lookups: transit segment queries (scheduler.GetTransitFunc) and
// POI facts (actions.PlacesSearch.GetPoiFacts), following the teacher's
// redis wiring in internal/services.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wayfare-backend/internal/planning/domain"
)

// TransitCache memoizes getTransit(from, to, policy) results. The policy
// is folded into the cache key because transit cost depends on mode
// preferences and accessibility constraints, not just geography.
type TransitCache struct {
	client *redis.Client
	ttl    time.Duration
}

// DefaultTransitTTL keeps transit estimates fresh across a single
// multi-day planning session without re-querying on every day.
const DefaultTransitTTL = 15 * time.Minute

// NewTransitCache wraps an already-connected redis client.
func NewTransitCache(client *redis.Client) *TransitCache {
	return &TransitCache{client: client, ttl: DefaultTransitTTL}
}

func transitKey(from, to domain.Location, policyFingerprint string) string {
	return fmt.Sprintf("transit:%.5f,%.5f->%.5f,%.5f:%s", from.Lat, from.Lng, to.Lat, to.Lng, policyFingerprint)
}

// Get returns cached transit segments, if present and unexpired.
func (c *TransitCache) Get(ctx context.Context, from, to domain.Location, policyFingerprint string) ([]domain.TransitSegment, bool) {
	raw, err := c.client.Get(ctx, transitKey(from, to, policyFingerprint)).Result()
	if err != nil {
		return nil, false
	}
	var segs []domain.TransitSegment
	if err := json.Unmarshal([]byte(raw), &segs); err != nil {
		return nil, false
	}
	return segs, true
}

// Set stores a transit query result.
func (c *TransitCache) Set(ctx context.Context, from, to domain.Location, policyFingerprint string, segs []domain.TransitSegment) error {
	b, err := json.Marshal(segs)
	if err != nil {
		return fmt.Errorf("cache: marshal transit segments: %w", err)
	}
	return c.client.Set(ctx, transitKey(from, to, policyFingerprint), b, c.ttl).Err()
}

// PoiFactsCache memoizes places.get_poi_facts lookups.
type PoiFactsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// DefaultPoiFactsTTL is longer than the transit TTL since opening hours
// and accessibility facts change far less often than traffic conditions.
const DefaultPoiFactsTTL = 6 * time.Hour

// NewPoiFactsCache wraps an already-connected redis client.
func NewPoiFactsCache(client *redis.Client) *PoiFactsCache {
	return &PoiFactsCache{client: client, ttl: DefaultPoiFactsTTL}
}

func poiFactsKey(poiID string) string {
	return "poi-facts:" + poiID
}

// Get returns a cached POI, if present.
func (c *PoiFactsCache) Get(ctx context.Context, poiID string) (*domain.Poi, bool) {
	raw, err := c.client.Get(ctx, poiFactsKey(poiID)).Result()
	if err != nil {
		return nil, false
	}
	var poi domain.Poi
	if err := json.Unmarshal([]byte(raw), &poi); err != nil {
		return nil, false
	}
	return &poi, true
}

// Set stores a POI's facts.
func (c *PoiFactsCache) Set(ctx context.Context, poi *domain.Poi) error {
	b, err := json.Marshal(poi)
	if err != nil {
		return fmt.Errorf("cache: marshal poi %s: %w", poi.ID, err)
	}
	return c.client.Set(ctx, poiFactsKey(poi.ID), b, c.ttl).Err()
}

// NewClient opens a redis client from host:port + password + db settings,
// matching the teacher's services wiring shape.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}
