// internal/cache/plan_cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mattepass-service/internal/domain/plan"
	"mattepass-service/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const planListKey = "plans:all"

// ErrMiss is returned when a key is not cached.
var ErrMiss = errors.New("cache miss")

// PlanCache keeps the plan catalog in Redis as JSON.
type PlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPlanCache(client *redis.Client, ttl time.Duration) *PlanCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PlanCache{client: client, ttl: ttl}
}

func (c *PlanCache) GetList(ctx context.Context) ([]plan.Plan, error) {
	var plans []plan.Plan
	if err := c.get(ctx, "plan_list", planListKey, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (c *PlanCache) SetList(ctx context.Context, plans []plan.Plan) error {
	return c.set(ctx, planListKey, plans)
}

func (c *PlanCache) Get(ctx context.Context, id int64) (*plan.Plan, error) {
	var p plan.Plan
	if err := c.get(ctx, "plan", planKey(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *PlanCache) Set(ctx context.Context, p *plan.Plan) error {
	return c.set(ctx, planKey(p.ID), p)
}

// Invalidate drops one plan and the catalog list.
func (c *PlanCache) Invalidate(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, planKey(id), planListKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate plan cache: %w", err)
	}
	return nil
}

func (c *PlanCache) get(ctx context.Context, name, key string, dst any) error {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.IncCacheRequest(name, "miss")
		return ErrMiss
	}
	if err != nil {
		metrics.IncCacheRequest(name, "error")
		return fmt.Errorf("failed to read cache: %w", err)
	}
	if err := json.Unmarshal(val, dst); err != nil {
		metrics.IncCacheRequest(name, "error")
		return fmt.Errorf("failed to decode cached %s: %w", name, err)
	}
	metrics.IncCacheRequest(name, "hit")
	return nil
}

func (c *PlanCache) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

func planKey(id int64) string {
	return fmt.Sprintf("plan:%d", id)
}
