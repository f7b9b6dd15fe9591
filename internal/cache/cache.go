package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/internal/domain"
)

// CartCache holds raw carts keyed by user. Writes go to the repository
// first; the committed cart is then written through with Set, and Delete
// invalidates the entry when that refresh fails. Set never replaces a cached
// cart with an older version.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")
