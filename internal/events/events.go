package events

import (
	"context"
	"time"

	"github.com/fjod/go_shop/internal/domain"
)

const (
	TypeCartCreated = "cart.created"
	TypeCartUpdated = "cart.updated"
)

type CartEvent struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	UserID     string            `json:"user_id"`
	Version    int64             `json:"version"`
	Items      []domain.CartItem `json:"items"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Publisher announces committed cart changes to other services.
type Publisher interface {
	PublishCart(ctx context.Context, cart *domain.Cart, outcome domain.CartOutcome) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) PublishCart(context.Context, *domain.Cart, domain.CartOutcome) error { return nil }
func (NopPublisher) Close() error                                                      { return nil }
