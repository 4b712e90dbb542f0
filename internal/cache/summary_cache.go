package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"

	"lsm-digest/internal/model"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redisv9.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SummaryCache caches daily summary documents and guards summarization runs
// with a per-date lock.
type SummaryCache struct {
	client  *redisv9.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewSummaryCache(client *redisv9.Client, ttl, lockTTL time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = 15 * time.Minute
	}
	return &SummaryCache{
		client:  client,
		ttl:     ttl,
		lockTTL: lockTTL,
	}
}

func (c *SummaryCache) Get(ctx context.Context, day time.Time) (*model.DailySummary, bool, error) {
	raw, err := c.client.Get(ctx, c.summaryKey(day)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get summary failed: %w", err)
	}

	var doc model.DailySummary
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached summary failed: %w", err)
	}
	return &doc, true, nil
}

func (c *SummaryCache) Set(ctx context.Context, day time.Time, doc *model.DailySummary) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal summary cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.summaryKey(day), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set summary failed: %w", err)
	}
	return nil
}

func (c *SummaryCache) Delete(ctx context.Context, day time.Time) error {
	if err := c.client.Del(ctx, c.summaryKey(day)).Err(); err != nil {
		return fmt.Errorf("redis delete summary failed: %w", err)
	}
	return nil
}

// Lock takes the summarization lock for day. ok is false when another run
// holds it. The returned release func is a no-op once the lock expired or
// was taken over.
func (c *SummaryCache) Lock(ctx context.Context, day time.Time) (func(context.Context) error, bool, error) {
	key := c.lockKey(day)
	token := uuid.NewString()

	ok, err := c.client.SetNX(ctx, key, token, c.lockTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis acquire summary lock failed: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, c.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("redis release summary lock failed: %w", err)
		}
		return nil
	}
	return release, true, nil
}

func (c *SummaryCache) summaryKey(day time.Time) string {
	return "lsm:summary:" + day.UTC().Format("20060102")
}

func (c *SummaryCache) lockKey(day time.Time) string {
	return "lsm:summary:lock:" + day.UTC().Format("20060102")
}
