package services

import (
	"context"
	"sync"
	"time"
)

// TokenCache memoizes a provider credential for a bounded lifetime with
// thread-safe refresh. It replaces the process-wide mutable token state the
// original system kept: the cache is owned by the provider that uses it and
// carries an explicit expiry.
type TokenCache struct {
	mu      sync.RWMutex
	token   string
	expires time.Time

	ttl     time.Duration
	refresh func(ctx context.Context) (string, error)
	now     func() time.Time
}

// NewTokenCache builds a cache that holds each refreshed credential for
// ttl. refresh is invoked at most once per expiry window, under lock.
func NewTokenCache(ttl time.Duration, refresh func(ctx context.Context) (string, error)) *TokenCache {
	return &TokenCache{
		ttl:     ttl,
		refresh: refresh,
		now:     time.Now,
	}
}

// Token returns the cached credential, refreshing it when expired.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.token != "" && c.now().Before(c.expires) {
		token := c.token
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	token, err := c.refresh(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expires = c.now().Add(c.ttl)
	return token, nil
}

// Invalidate drops the cached credential so the next Token call refreshes.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expires = time.Time{}
}
