package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/phrazzld/tagforge/internal/domain"
)

// defaultPerSecond is the request rate applied to providers without an
// explicit limit.
const defaultPerSecond = 5.0

// ProviderLimiter holds one token bucket per provider.
type ProviderLimiter struct {
	mu       sync.Mutex
	limiters map[domain.Provider]*rate.Limiter
	fallback rate.Limit
}

// New creates a ProviderLimiter whose unconfigured providers allow
// perSecond requests per second. Non-positive perSecond falls back to the
// package default.
func New(perSecond float64) *ProviderLimiter {
	if perSecond <= 0 {
		perSecond = defaultPerSecond
	}
	return &ProviderLimiter{
		limiters: make(map[domain.Provider]*rate.Limiter),
		fallback: rate.Limit(perSecond),
	}
}

// SetLimit installs an explicit request rate for one provider, replacing
// any accumulated burst state.
func (l *ProviderLimiter) SetLimit(provider domain.Provider, perSecond float64) {
	if perSecond <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[provider] = rate.NewLimiter(rate.Limit(perSecond), 1)
}

// Wait blocks until the provider's bucket permits another request or ctx is
// done.
func (l *ProviderLimiter) Wait(ctx context.Context, provider domain.Provider) error {
	return l.limiter(provider).Wait(ctx)
}

func (l *ProviderLimiter) limiter(provider domain.Provider) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[provider]
	if !ok {
		lim = rate.NewLimiter(l.fallback, 1)
		l.limiters[provider] = lim
	}
	return lim
}
