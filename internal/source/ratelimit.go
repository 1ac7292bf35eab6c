package source

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/areyoudear/stageside-sub001/internal/taste"
)

// Default rate limits per service (requests per second).
var defaultRateLimits = map[taste.ServiceName]rate.Limit{
	taste.ServiceSpotify: 10,
	taste.ServiceLastFM:  5,
	taste.ServiceDeezer:  5,
}

// RateLimiterMap holds one rate.Limiter per service, created once at startup.
type RateLimiterMap struct {
	mu       sync.RWMutex
	limiters map[taste.ServiceName]*rate.Limiter
}

// NewRateLimiterMap creates all service rate limiters.
func NewRateLimiterMap() *RateLimiterMap {
	m := &RateLimiterMap{
		limiters: make(map[taste.ServiceName]*rate.Limiter, len(defaultRateLimits)),
	}
	for name, limit := range defaultRateLimits {
		m.limiters[name] = rate.NewLimiter(limit, 1)
	}
	return m
}

// Wait blocks until the rate limiter for the given service allows a request,
// or the context is canceled.
func (m *RateLimiterMap) Wait(ctx context.Context, name taste.ServiceName) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}
