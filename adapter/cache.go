package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// CacheEntry is one cached adapter response.
type CacheEntry struct {
	Value   json.RawMessage
	Expires time.Time
}

// Cache is the adapter cache's storage interface: content-addressed by
// the SHA-256 digest of the canonicalized input (spec §4.5/§9), shared
// process-wide. Grounded on teacher plugins/amadeus/cache.go's
// map+mutex+expiry SimpleCache, upgraded from its fmt.Sprintf key to a
// real content digest.
type Cache interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool)
	Set(ctx context.Context, key string, value json.RawMessage, ttl time.Duration)
}

// ContentKey computes the SHA-256 digest of the canonicalized (stably
// key-sorted via json.Marshal of a map, or direct struct marshal) input,
// prefixed by the adapter name so keys never collide across adapters.
func ContentKey(adapterName string, input any) (string, error) {
	canon, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(adapterName+":"), canon...))
	return hex.EncodeToString(sum[:]), nil
}

// MemoryCache is the default in-process cache, grounded on
// plugins/amadeus/cache.go's SimpleCache.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]CacheEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: map[string]CacheEntry{}}
}

func (c *MemoryCache) Get(_ context.Context, key string) (json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.data[key]
	if !ok || time.Now().After(entry.Expires) {
		return nil, false
	}
	return entry.Value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value json.RawMessage, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = CacheEntry{Value: value, Expires: time.Now().Add(ttl)}
}

// RedisCache is the optional process-external cache backend for
// deployments that run more than one engine instance behind the same
// adapter cache, keeping the same content-addressed keys. Not grounded
// in full teacher source (the teacher only ever runs one in-process
// cache); adopted from the go-redis dependency surfaced by the retrieved
// other_examples manifests for this domain.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (c *RedisCache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return json.RawMessage(val), true
}

func (c *RedisCache) Set(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) {
	c.client.Set(ctx, key, []byte(value), ttl)
}

// coalescer enforces a single in-flight call per cache key (spec §5:
// "request coalescing to prevent duplicate work").
type coalescer struct {
	mu      sync.Mutex
	inFlight map[string]*coalesceCall
}

type coalesceCall struct {
	done chan struct{}
	val  json.RawMessage
	err  error
}

func newCoalescer() *coalescer {
	return &coalescer{inFlight: map[string]*coalesceCall{}}
}

// do runs fn for key, sharing the result with any concurrent callers
// using the same key.
func (c *coalescer) do(key string, fn func() (json.RawMessage, error)) (json.RawMessage, error) {
	c.mu.Lock()
	if call, ok := c.inFlight[key]; ok {
		c.mu.Unlock()
		<-call.done
		return call.val, call.err
	}
	call := &coalesceCall{done: make(chan struct{})}
	c.inFlight[key] = call
	c.mu.Unlock()

	call.val, call.err = fn()
	close(call.done)

	c.mu.Lock()
	delete(c.inFlight, key)
	c.mu.Unlock()

	return call.val, call.err
}
