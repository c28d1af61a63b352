package catalog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/VirusBLITZ/guess-the-song-backend/internal/logging"
)

// suggestionTTL and metadataTTL bound how long cached results are reused;
// §4.5 only says "local caches," not a lifetime, so these are chosen short
// enough that a changed upstream catalog is picked up within one session.
const (
	suggestionTTL = 5 * time.Minute
	metadataTTL   = 1 * time.Hour
)

// cache stores JSON-encoded values keyed by string, with Redis used when
// available and an in-memory map otherwise — the same redis-or-memory
// fallback shape internal/ratelimit uses for its limiter store, applied
// here to suggestion/metadata results instead of rate counters.
type cache struct {
	redisClient *redis.Client
	prefix      string

	mu     sync.Mutex
	memory map[string]memEntry
}

type memEntry struct {
	value   []byte
	expires time.Time
}

func newCache(redisClient *redis.Client, prefix string) *cache {
	return &cache{
		redisClient: redisClient,
		prefix:      prefix,
		memory:      make(map[string]memEntry),
	}
}

func (c *cache) get(ctx context.Context, key string, dest any) bool {
	if c.redisClient != nil {
		data, err := c.redisClient.Get(ctx, c.prefix+key).Bytes()
		if err != nil {
			if err != redis.Nil {
				logging.Warn(ctx, "catalog cache redis get failed")
			}
			return false
		}
		return json.Unmarshal(data, dest) == nil
	}

	c.mu.Lock()
	entry, ok := c.memory[key]
	c.mu.Unlock()
	if !ok || time.Now().After(entry.expires) {
		return false
	}
	return json.Unmarshal(entry.value, dest) == nil
}

func (c *cache) set(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	if c.redisClient != nil {
		if err := c.redisClient.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
			logging.Warn(ctx, "catalog cache redis set failed")
		}
		return
	}

	c.mu.Lock()
	c.memory[key] = memEntry{value: data, expires: time.Now().Add(ttl)}
	c.mu.Unlock()
}
