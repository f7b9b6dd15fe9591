package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// BreakerCache wraps a CartCache with a circuit breaker. While the breaker
// is open the wrapped cache is not called.
type BreakerCache struct {
	next CartCache
	cb   *gobreaker.CircuitBreaker[*domain.Cart]
}

type BreakerSettings struct {
	Name string
	// consecutive failures before the breaker opens
	MaxFailures uint32
	// how long the breaker stays open before probing again
	OpenTimeout time.Duration
}

func NewBreakerCache(next CartCache, s BreakerSettings) *BreakerCache {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.OpenTimeout == 0 {
		s.OpenTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[*domain.Cart](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("cache breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &BreakerCache{next: next, cb: cb}
}

// Get reports a miss while the breaker is open.
func (b *BreakerCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := b.cb.Execute(func() (*domain.Cart, error) {
		return b.next.Get(ctx, userID)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCacheMiss
	}
	return cart, err
}

func (b *BreakerCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	_, err := b.cb.Execute(func() (*domain.Cart, error) {
		return nil, b.next.Set(ctx, userID, cart)
	})
	return err
}

// Delete always reaches the wrapped cache.
func (b *BreakerCache) Delete(ctx context.Context, userID string) error {
	return b.next.Delete(ctx, userID)
}

func (b *BreakerCache) State() gobreaker.State {
	return b.cb.State()
}
