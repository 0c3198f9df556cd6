// Package answercache is a read-through side table of recent answers,
// keyed strictly by (channel id, normalized query) with an explicit TTL.
package answercache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tubeask/internal/db"
	"github.com/kailas-cloud/tubeask/internal/domain"
)

const cacheKeyPrefix = "tubeask:answer_cache:"

// store is the consumer interface for the answer cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache stores recent answers in a key-value store with a short TTL.
// A cached answer is never authoritative beyond that TTL; expiry is
// delegated to the store.
type Cache struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates an answer cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Get returns a cached answer for the channel and question, if present.
func (c *Cache) Get(ctx context.Context, channelID, question string) (domain.Answer, bool) {
	key := c.cacheKey(channelID, question)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached answer", zap.String("key", key), zap.Error(err))
		}
		c.incCache("miss")
		return domain.Answer{}, false
	}

	var ans domain.Answer
	if err := json.Unmarshal(data, &ans); err != nil {
		c.logger.Warn("Failed to parse cached answer", zap.String("key", key), zap.Error(err))
		c.incCache("miss")
		return domain.Answer{}, false
	}

	c.incCache("hit")
	ans.Cached = true
	return ans, true
}

// Put stores an answer under the channel and question. Failures are logged,
// not surfaced; the cache is an optimization only.
func (c *Cache) Put(ctx context.Context, channelID, question string, ans domain.Answer) {
	// A fallback answer reflects a transient provider failure; caching it
	// would pin the degraded answer for the whole TTL.
	if ans.FallbackUsed {
		return
	}

	ans.Cached = false
	data, err := json.Marshal(ans)
	if err != nil {
		c.logger.Warn("Failed to encode answer for cache", zap.Error(err))
		return
	}

	key := c.cacheKey(channelID, question)
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache answer", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKey hashes the normalized question under the channel id. The channel
// id stays in the key in the clear so entries can never collide across
// channels.
func (c *Cache) cacheKey(channelID, question string) string {
	h := sha256.Sum256([]byte(NormalizeQuery(question)))
	return cacheKeyPrefix + channelID + ":" + hex.EncodeToString(h[:])
}

// NormalizeQuery lowercases and collapses whitespace so trivially different
// phrasings of the same question share a cache entry.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
