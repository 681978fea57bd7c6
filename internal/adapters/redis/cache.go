package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"pythia/pkg/logger"
)

const defaultCacheTTL = 60 * time.Second

// PayloadCache adapts Redis to the byte-payload cache the Polymarket client
// consumes. It is strictly best-effort: every Redis failure degrades to a
// miss (on Get) or a no-op (on Set), so a down Redis never blocks a query.
type PayloadCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

// NewPayloadCache creates a payload cache on top of an established Redis
// connection.
func NewPayloadCache(client *Client, ttl time.Duration, log *logger.Logger) *PayloadCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &PayloadCache{
		rdb:    client.Client(),
		ttl:    ttl,
		prefix: "polymarket:",
		log:    log.With("component", "payload_cache"),
	}
}

// Get returns the cached payload for key, reporting a miss for absent keys
// and for any Redis error.
func (p *PayloadCache) Get(ctx context.Context, key string) ([]byte, bool) {
	payload, err := p.rdb.Get(ctx, p.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			p.log.Debugf("Cache read failed for %s: %v", key, err)
		}
		return nil, false
	}
	return payload, true
}

// Set stores payload under key with the cache TTL.
func (p *PayloadCache) Set(ctx context.Context, key string, payload []byte) {
	if err := p.rdb.Set(ctx, p.prefix+key, payload, p.ttl).Err(); err != nil {
		p.log.Debugf("Cache write failed for %s: %v", key, err)
	}
}
