package repository

import (
	"context"

	"github.com/fjod/go_shop/internal/domain"
)

// CartRepository persists carts. Writes that start from a previously read
// cart are guarded by its version and fail with domain.ErrVersionConflict
// when another writer got there first.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	CreateCart(ctx context.Context, cart *domain.Cart) error
	SaveItems(ctx context.Context, userID string, items []domain.CartItem, expectedVersion int64) (*domain.Cart, error)
	ReplaceItems(ctx context.Context, userID string, items []domain.CartItem) (*domain.Cart, bool, error)
}

type ProductFilter struct {
	NameContains string
	CategoryID   string
}

type ProductRepository interface {
	Create(ctx context.Context, p domain.Product) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	Update(ctx context.Context, id string, p domain.Product) error
	Delete(ctx context.Context, id string) error
	FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
}

type UserRepository interface {
	GetSummary(ctx context.Context, userID string) (*domain.UserSummary, error)
}
