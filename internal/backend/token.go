package backend

import (
	"context"
	"sync"
	"time"
)

// TokenCache holds a short-lived auth token and refreshes it through the
// supplied fetch function when it expires. Safe for use by concurrent
// fan-out branches.
type TokenCache struct {
	mu      sync.Mutex
	token   string
	expires time.Time
	ttl     time.Duration
	fetch   func(ctx context.Context) (string, error)
	now     func() time.Time
}

// NewTokenCache creates a token cache with the given refresh function.
func NewTokenCache(ttl time.Duration, fetch func(ctx context.Context) (string, error)) *TokenCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TokenCache{
		ttl:   ttl,
		fetch: fetch,
		now:   time.Now,
	}
}

// Token returns a valid token, refreshing if the cached one expired.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	token, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expires = c.now().Add(c.ttl)
	return token, nil
}

// Invalidate drops the cached token so the next call refreshes.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expires = time.Time{}
	c.mu.Unlock()
}

// RateLimiter is a token-bucket limiter shared by concurrent requests to
// one endpoint.
type RateLimiter struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
	now    func() time.Time
}

// NewRateLimiter creates a limiter allowing rate requests per second with
// the given burst.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	if rate <= 0 {
		rate = 10
	}
	if burst <= 0 {
		burst = int(rate)
	}
	return &RateLimiter{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		now:    time.Now,
	}
}

// Wait blocks until a request slot is available or the context is done.
func (l *RateLimiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		if !l.last.IsZero() {
			l.tokens += now.Sub(l.last).Seconds() * l.rate
			if l.tokens > l.burst {
				l.tokens = l.burst
			}
		}
		l.last = now
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
