package provider

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/sells-group/extraction-eval/internal/config"
	"github.com/sells-group/extraction-eval/internal/resilience"
)

// Gate wraps every call to an external capability with concurrency limiting,
// rate limiting, a per-call timeout, retry with backoff, and a circuit
// breaker. One Gate instance guards one capability endpoint.
type Gate struct {
	name    string
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	timeout time.Duration
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// NewGate builds a gate from external-call configuration. Zero or negative
// config values fall back to the package defaults.
func NewGate(name string, cfg config.ExternalConfig) *Gate {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimitPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), maxConcurrent)
	}

	retryCfg := resilience.DefaultRetryConfig()
	if cfg.RetryAttempts > 0 {
		retryCfg.MaxAttempts = cfg.RetryAttempts
	}
	if cfg.BackoffMs > 0 {
		retryCfg.InitialBackoff = time.Duration(cfg.BackoffMs) * time.Millisecond
	}
	retryCfg.OnRetry = resilience.RetryLogger(name, "call")

	breakerCfg := resilience.DefaultCircuitBreakerConfig()
	if cfg.BreakerFailures > 0 {
		breakerCfg.FailureThreshold = cfg.BreakerFailures
	}

	return &Gate{
		name:    name,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		limiter: limiter,
		timeout: timeout,
		retry:   retryCfg,
		breaker: resilience.NewCircuitBreaker(breakerCfg),
	}
}

// Call runs fn under the gate. Each retry attempt re-acquires the rate
// limiter and gets its own timeout; the semaphore is held across attempts so
// a retrying caller does not free its concurrency slot.
func Call[T any](ctx context.Context, g *Gate, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return zero, eris.Wrap(err, "provider: acquire slot")
	}
	defer g.sem.Release(1)

	return resilience.DoVal(ctx, g.retry, func(ctx context.Context) (T, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return zero, eris.Wrap(err, "provider: rate limit wait")
		}
		return resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (T, error) {
			callCtx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()
			return fn(callCtx)
		})
	})
}
