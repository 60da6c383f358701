package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/windmark/itinerary-engine/adapter"
	"github.com/windmark/itinerary-engine/config"
)

func TestToPolicy_ConvertsMillisAndSecondsToDurations(t *testing.T) {
	got := toPolicy(config.AdapterPolicy{
		SoftTimeoutMs: 2000, HardTimeoutMs: 4000, RetryCount: 1,
		RetryJitterMinMs: 200, RetryJitterMaxMs: 500,
		BreakerThreshold: 5, BreakerWindowMs: 60000, BreakerCooldownMs: 60000,
		CacheTTLSec: 3600,
	})

	assert.Equal(t, adapter.Policy{
		SoftTimeout: 2 * time.Second, HardTimeout: 4 * time.Second, RetryCount: 1,
		RetryJitterMin: 200 * time.Millisecond, RetryJitterMax: 500 * time.Millisecond,
		BreakerThreshold: 5, BreakerWindow: 60 * time.Second, BreakerCooldown: 60 * time.Second,
		CacheTTL: time.Hour,
	}, got)
}

func TestMsToDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, msToDuration(1500))
}

func TestSecToDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, secToDuration(2))
}

func TestAmadeusBaseURL_ProductionVsTest(t *testing.T) {
	assert.Equal(t, "https://api.amadeus.com", amadeusBaseURL("production"))
	assert.Equal(t, "https://test.api.amadeus.com", amadeusBaseURL("sandbox"))
	assert.Equal(t, "https://test.api.amadeus.com", amadeusBaseURL(""))
}

func TestSetupCache_DefaultsToMemoryCacheWhenNoRedisAddr(t *testing.T) {
	cache, err := setupCache(&config.Config{})

	assert.NoError(t, err)
	assert.IsType(t, &adapter.MemoryCache{}, cache)
}

func TestSetupCache_UsesRedisCacheWhenAddrConfigured(t *testing.T) {
	cfg := &config.Config{}
	cfg.Adapters.RedisAddr = "localhost:6379"

	cache, err := setupCache(cfg)

	assert.NoError(t, err)
	assert.IsType(t, &adapter.RedisCache{}, cache)
}
