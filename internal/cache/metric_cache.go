package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"radreview/internal/model"
)

// MetricCache handles Redis operations for the global metric set. The
// metric set changes rarely, so a read-through cache keeps session
// startup off the record API's hot path. Entries hold remote data only;
// local evaluation state never goes through Redis.
type MetricCache interface {
	Get(ctx context.Context) ([]model.Metric, error)
	Set(ctx context.Context, metrics []model.Metric) error
}

type metricCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMetricCache creates a new metric cache.
func NewMetricCache(client *redis.Client) MetricCache {
	return &metricCache{
		client: client,
		ttl:    time.Hour,
	}
}

func (c *metricCache) key() string {
	return "review:metrics"
}

func (c *metricCache) Get(ctx context.Context) ([]model.Metric, error) {
	data, err := c.client.Get(ctx, c.key()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var metrics []model.Metric
	if err := json.Unmarshal([]byte(data), &metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

func (c *metricCache) Set(ctx context.Context, metrics []model.Metric) error {
	data, err := json.Marshal(metrics)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(), data, c.ttl).Err()
}
