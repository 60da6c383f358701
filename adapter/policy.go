// Package adapter implements the single shared timeout+retry+circuit
// breaker+cache+fallback contract every external tool adapter uses
// (spec §4.5, §9: "belongs in a single shared abstraction; avoid
// duplicating the policy per adapter"). Each concrete adapter package
// under adapters/ builds a *Caller with this package and supplies only
// its do-the-actual-call function and its fixture fallback.
package adapter

import "time"

// Policy is one adapter's timeout/retry/breaker/cache configuration.
type Policy struct {
	SoftTimeout      time.Duration
	HardTimeout      time.Duration
	RetryCount       int
	RetryJitterMin   time.Duration
	RetryJitterMax   time.Duration
	BreakerThreshold int
	BreakerWindow    time.Duration
	BreakerCooldown  time.Duration
	CacheTTL         time.Duration
}

// DefaultPolicy matches spec §4.5's literal numbers.
func DefaultPolicy() Policy {
	return Policy{
		SoftTimeout:      2 * time.Second,
		HardTimeout:      4 * time.Second,
		RetryCount:       1,
		RetryJitterMin:   200 * time.Millisecond,
		RetryJitterMax:   500 * time.Millisecond,
		BreakerThreshold: 5,
		BreakerWindow:    60 * time.Second,
		BreakerCooldown:  60 * time.Second,
		CacheTTL:         time.Hour,
	}
}
