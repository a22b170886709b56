package crawler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisVisitCache keeps the visited set in a Redis set so several crawler
// processes can share one run. SADD is atomic on the server, so only one
// caller ever sees a member added.
//
// The set is keyed by run id: a new run starts with an empty set, and
// processes that want to cooperate pass the same run id.
type RedisVisitCache struct {
	Client *redis.Client
	Key    string
	// TTL is refreshed on every visit so an abandoned run's set expires.
	// Zero keeps the set until Reset.
	TTL time.Duration
}

// VisitKey scopes prefix to one run.
func VisitKey(prefix, runID string) string {
	return prefix + ":" + runID
}

func NewRedisVisitCache(client *redis.Client, prefix, runID string, ttl time.Duration) *RedisVisitCache {
	return &RedisVisitCache{Client: client, Key: VisitKey(prefix, runID), TTL: ttl}
}

func (c *RedisVisitCache) ShouldVisit(ctx context.Context, id string) (bool, error) {
	var added *redis.IntCmd
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		added = pipe.SAdd(ctx, c.Key, normalizeVisitID(id))
		if c.TTL > 0 {
			pipe.Expire(ctx, c.Key, c.TTL)
		}
		return nil
	})
	if err != nil {
		return false, eris.Wrap(err, "crawler: visit cache sadd")
	}
	return added.Val() == 1, nil
}

func (c *RedisVisitCache) Forget(ctx context.Context, id string) error {
	if err := c.Client.SRem(ctx, c.Key, normalizeVisitID(id)).Err(); err != nil {
		return eris.Wrap(err, "crawler: visit cache srem")
	}
	return nil
}

// Reset drops the run's visited set. A process rejoining a run id uses it
// to crawl everything again.
func (c *RedisVisitCache) Reset(ctx context.Context) error {
	if err := c.Client.Del(ctx, c.Key).Err(); err != nil {
		return eris.Wrap(err, "crawler: visit cache reset")
	}
	return nil
}
