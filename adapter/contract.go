package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/windmark/itinerary-engine/domain"
	"github.com/windmark/itinerary-engine/log"
	"github.com/windmark/itinerary-engine/runerr"
)

// Func is the shape every adapter's actual network call takes: given a
// context and a JSON-marshalable input, return a JSON-marshalable result.
type Func func(ctx context.Context, input any) (any, error)

// FallbackFunc produces fixture data for hard failures (spec §4.5: "on
// hard failure, adapters return fixture data with provenance.source
// 'fixture'"). It must never itself fail.
type FallbackFunc func(ctx context.Context, input any) any

// Result is what Call returns: a decoded value plus its provenance.
type Result struct {
	Value      json.RawMessage
	Provenance domain.Provenance
}

// Caller wraps one adapter's Func with the uniform timeout+retry+
// breaker+cache+fallback contract (spec §4.5, §9).
type Caller struct {
	Name     string
	Policy   Policy
	Cache    Cache
	Limiter  *rate.Limiter
	breaker  *breaker
	coalesce *coalescer
	Fallback FallbackFunc
	call     Func
}

// NewCaller builds a Caller for one adapter. limiter may be nil to
// disable outbound rate limiting.
func NewCaller(name string, policy Policy, cache Cache, limiter *rate.Limiter, call Func, fallback FallbackFunc) *Caller {
	return &Caller{
		Name:     name,
		Policy:   policy,
		Cache:    cache,
		Limiter:  limiter,
		breaker:  newBreaker(policy),
		coalesce: newCoalescer(),
		Fallback: fallback,
		call:     call,
	}
}

// Call executes the adapter call through cache, circuit breaker,
// coalescing, timeout, and retry, in that order, returning a Result whose
// provenance always reflects how the value was actually obtained.
func (c *Caller) Call(ctx context.Context, input any) (Result, error) {
	key, err := ContentKey(c.Name, input)
	if err != nil {
		return Result{}, runerr.Wrap(runerr.AdapterInvalidResp, c.Name, err)
	}

	if cached, ok := c.Cache.Get(ctx, key); ok {
		return Result{
			Value: cached,
			Provenance: domain.Provenance{
				Source:    domain.SourceTool,
				RefID:     key,
				FetchedAt: time.Now(),
				ResponseDigest: key,
				CacheHit:  true,
			},
		}, nil
	}

	if ctx.Err() != nil {
		return Result{}, runerr.Wrap(runerr.Cancelled, c.Name, ctx.Err())
	}

	if ok, _ := c.breaker.allow(time.Now()); !ok {
		return c.fallbackResult(ctx, input, key, runerr.New(runerr.AdapterBreakerOpen, c.Name, "circuit open")), nil
	}

	raw, err := c.coalesce.do(key, func() (json.RawMessage, error) {
		return c.callWithRetry(ctx, input)
	})

	if err != nil {
		c.breaker.recordFailure(time.Now())
		if runerr.Is(err, runerr.Cancelled) {
			return Result{}, err
		}
		log.Warnf(ctx, "%s adapter call failed, using fixture fallback: %v", c.Name, err)
		kind := runerr.AdapterUpstream
		var re *runerr.Error
		if errors.As(err, &re) {
			kind = re.Kind
		}
		return c.fallbackResult(ctx, input, key, runerr.New(kind, c.Name, err.Error())), nil
	}

	c.breaker.recordSuccess(time.Now())
	c.Cache.Set(ctx, key, raw, c.Policy.CacheTTL)

	return Result{
		Value: raw,
		Provenance: domain.Provenance{
			Source:         domain.SourceTool,
			RefID:          key,
			FetchedAt:      time.Now(),
			ResponseDigest: key,
		},
	}, nil
}

func (c *Caller) fallbackResult(ctx context.Context, input any, key string, cause error) Result {
	log.Debugf(ctx, "%s adapter falling back to fixture: %v", c.Name, cause)
	fixture := c.Fallback(ctx, input)
	raw, _ := json.Marshal(fixture)
	return Result{
		Value: raw,
		Provenance: domain.Provenance{
			Source:         domain.SourceFixture,
			RefID:          key,
			FetchedAt:      time.Now(),
			ResponseDigest: key,
		},
	}
}

func (c *Caller) callWithRetry(ctx context.Context, input any) (json.RawMessage, error) {
	attempt := func(timeout time.Duration) (json.RawMessage, error) {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return nil, runerr.Wrap(runerr.Cancelled, c.Name, err)
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		result, err := c.call(callCtx, input)
		if err != nil {
			if callCtx.Err() == context.DeadlineExceeded {
				return nil, runerr.Wrap(runerr.AdapterTimeout, c.Name, err)
			}
			if ctx.Err() != nil {
				return nil, runerr.Wrap(runerr.Cancelled, c.Name, err)
			}
			return nil, runerr.Wrap(runerr.AdapterUpstream, c.Name, err)
		}
		raw, err := json.Marshal(result)
		if err != nil {
			return nil, runerr.Wrap(runerr.AdapterInvalidResp, c.Name, err)
		}
		return raw, nil
	}

	raw, err := attempt(c.Policy.SoftTimeout)
	if err == nil {
		return raw, nil
	}
	if ctx.Err() != nil {
		return nil, runerr.Wrap(runerr.Cancelled, c.Name, ctx.Err())
	}

	for i := 0; i < c.Policy.RetryCount; i++ {
		jitter := c.Policy.RetryJitterMin + time.Duration(rand.Int63n(int64(c.Policy.RetryJitterMax-c.Policy.RetryJitterMin+1)))
		select {
		case <-time.After(jitter):
		case <-ctx.Done():
			return nil, runerr.Wrap(runerr.Cancelled, c.Name, ctx.Err())
		}
		raw, err = attempt(c.Policy.HardTimeout)
		if err == nil {
			return raw, nil
		}
	}

	return nil, runerr.Wrap(runerr.AdapterRetryExhaust, c.Name, err)
}
