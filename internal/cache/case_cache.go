package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"radreview/internal/model"
)

// CaseCache handles Redis operations for fetched case payloads, keyed by
// case id. It is best-effort: a miss or a Redis error just means the
// caller fetches from the record API directly.
type CaseCache interface {
	Get(ctx context.Context, caseID string) (*model.Case, error)
	Set(ctx context.Context, c *model.Case) error
	Invalidate(ctx context.Context, caseID string) error
}

type caseCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCaseCache creates a new case payload cache.
func NewCaseCache(client *redis.Client) CaseCache {
	return &caseCache{
		client: client,
		ttl:    5 * time.Minute,
	}
}

func (c *caseCache) key(caseID string) string {
	return fmt.Sprintf("review:case:%s", caseID)
}

func (c *caseCache) Get(ctx context.Context, caseID string) (*model.Case, error) {
	data, err := c.client.Get(ctx, c.key(caseID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cs model.Case
	if err := json.Unmarshal([]byte(data), &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

func (c *caseCache) Set(ctx context.Context, cs *model.Case) error {
	data, err := json.Marshal(cs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(cs.ID), data, c.ttl).Err()
}

func (c *caseCache) Invalidate(ctx context.Context, caseID string) error {
	return c.client.Del(ctx, c.key(caseID)).Err()
}
