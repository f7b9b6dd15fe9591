package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/events"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/validation"
	"github.com/fjod/go_shop/pkg/retry"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultMaxAttempts = 5
	sideEffectTimeout  = 5 * time.Second
)

type CartService struct {
	repo      repository.CartRepository
	products  repository.ProductRepository
	users     repository.UserRepository
	cache     cache.CartCache
	publisher events.Publisher
	retry     retry.Config
	sfg       singleflight.Group // Prevents cache stampede
	// user id -> cart version whose write reached neither cache refresh nor
	// invalidation; reads skip the cache for these users
	stale sync.Map
}

type CartOption func(*CartService)

// WithMaxAttempts bounds how many times a read-modify-write is replayed
// after losing a version race.
func WithMaxAttempts(n int) CartOption {
	return func(s *CartService) {
		s.retry.MaxAttempts = n
	}
}

func WithBackoff(b retry.Backoff) CartOption {
	return func(s *CartService) {
		s.retry.Backoff = b
	}
}

func NewCartService(
	repo repository.CartRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	cache cache.CartCache,
	publisher events.Publisher,
	opts ...CartOption) *CartService {

	s := &CartService{
		repo:      repo,
		products:  products,
		users:     users,
		cache:     cache,
		publisher: publisher,
		retry: retry.Config{
			MaxAttempts: defaultMaxAttempts,
			Backoff:     retry.ExponentialBackoff(5 * time.Millisecond),
			ShouldRetry: func(err error) bool {
				return errors.Is(err, domain.ErrVersionConflict)
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetCart returns the populated cart of userID, or nil when the user has
// never added anything.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.CartView, error) {
	cart, err := s.loadCart(ctx, userID)
	if errors.Is(err, domain.ErrCartNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, cart)
}

func (s *CartService) loadCart(ctx context.Context, userID string) (*domain.Cart, error) {
	const op = "CartService.loadCart"

	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		// the flight outlives the request that started it
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()

		_, dirty := s.stale.Load(userID)
		if !dirty {
			cart, err := s.cache.Get(ctx, userID)
			if err == nil {
				return cart, nil
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				slog.Warn("cache get error", "op", op, "user", userID, "err", err)
			}
		}

		cart, err := s.repo.GetCart(ctx, userID)
		if err != nil {
			if !errors.Is(err, domain.ErrCartNotFound) {
				slog.Error("failed to get cart", "op", op, "user", userID, "err", err)
			}
			return nil, err
		}

		go func(cart domain.Cart) {
			ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
			defer cancel()
			if err := s.cache.Set(ctx, userID, &cart); err != nil {
				slog.Warn("cache set error", "op", op, "user", userID, "err", err)
				return
			}
			// a newer failed write keeps its mark
			if marked, ok := s.stale.Load(userID); ok && cart.Version >= marked.(int64) {
				s.stale.CompareAndDelete(userID, marked)
			}
		}(*cart)

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	// callers sharing a flight must not share the cart they mutate
	c := *v.(*domain.Cart)
	c.Items = append([]domain.CartItem(nil), c.Items...)
	return &c, nil
}

// AddItem puts quantity units of a product into the user's cart. The first
// add creates the cart; adding a product that is already present increases
// its quantity.
func (s *CartService) AddItem(
	ctx context.Context,
	userID string,
	in validation.CartItemInput) (*domain.CartView, domain.CartOutcome, error) {

	const op = "CartService.AddItem"

	item, err := validation.CartItem(in)
	if err != nil {
		return nil, 0, err
	}

	type result struct {
		cart    *domain.Cart
		outcome domain.CartOutcome
	}

	res, err := retry.DoWithResult(ctx, s.retry, func() (result, error) {
		cart, err := s.repo.GetCart(ctx, userID)
		if errors.Is(err, domain.ErrCartNotFound) {
			cart = &domain.Cart{UserID: userID, Items: []domain.CartItem{item}}
			if err := s.repo.CreateCart(ctx, cart); err != nil {
				return result{}, err
			}
			return result{cart, domain.CartCreated}, nil
		}
		if err != nil {
			return result{}, err
		}

		if i := cart.IndexOf(item.ProductID); i >= 0 {
			if err := validation.MergedQuantity(cart.Items[i].Quantity, item.Quantity); err != nil {
				return result{}, err
			}
		}
		cart.Merge(item)
		saved, err := s.repo.SaveItems(ctx, userID, cart.Items, cart.Version)
		if err != nil {
			return result{}, err
		}
		return result{saved, domain.CartUpdated}, nil
	})
	if err != nil {
		var verr *validation.Errors
		if !errors.As(err, &verr) {
			slog.Error("failed to add item", "op", op, "user", userID, "product", item.ProductID, "err", err)
		}
		return nil, 0, err
	}

	s.afterWrite(userID, res.cart, res.outcome)

	view, err := s.populate(ctx, res.cart)
	if err != nil {
		return nil, 0, err
	}
	return view, res.outcome, nil
}

// UpdateItem sets the quantity of a product already in the cart.
func (s *CartService) UpdateItem(ctx context.Context, userID string, in validation.CartItemInput) (*domain.CartView, error) {
	item, err := validation.CartItem(in)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, "CartService.UpdateItem", userID, func(cart *domain.Cart) (bool, error) {
		i := cart.IndexOf(item.ProductID)
		if i < 0 {
			return false, domain.ErrItemNotFound
		}
		cart.Items[i].Quantity = item.Quantity
		return true, nil
	})
}

// RemoveItem drops a product from the cart. Removing a product that is not
// in the cart succeeds without writing.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.CartView, error) {
	return s.mutate(ctx, "CartService.RemoveItem", userID, func(cart *domain.Cart) (bool, error) {
		if cart.IndexOf(productID) < 0 {
			return false, nil
		}
		cart.Remove(productID)
		return true, nil
	})
}

// ReplaceAllItems overwrites the whole item sequence of targetUserID's cart,
// creating the cart if needed. Only the owner or an admin may do this.
func (s *CartService) ReplaceAllItems(
	ctx context.Context,
	caller domain.Principal,
	targetUserID string,
	in []validation.CartItemInput) (*domain.CartView, domain.CartOutcome, error) {

	const op = "CartService.ReplaceAllItems"

	if caller.UserID != targetUserID && !caller.IsAdmin() {
		slog.Warn("replace items denied", "op", op, "caller", caller.UserID, "target", targetUserID)
		return nil, 0, domain.ErrForbidden
	}

	items, err := validation.CartItems(in)
	if err != nil {
		return nil, 0, err
	}

	type result struct {
		cart    *domain.Cart
		created bool
	}

	res, err := retry.DoWithResult(ctx, s.retry, func() (result, error) {
		cart, created, err := s.repo.ReplaceItems(ctx, targetUserID, items)
		return result{cart, created}, err
	})
	if err != nil {
		slog.Error("failed to replace items", "op", op, "user", targetUserID, "err", err)
		return nil, 0, err
	}

	outcome := domain.CartUpdated
	if res.created {
		outcome = domain.CartCreated
	}
	s.afterWrite(targetUserID, res.cart, outcome)

	view, err := s.populate(ctx, res.cart)
	if err != nil {
		return nil, 0, err
	}
	return view, outcome, nil
}

// mutate runs a read-modify-write on an existing cart. The write only
// lands if the cart still has the version that was read; otherwise the
// whole cycle is replayed on the fresh cart.
func (s *CartService) mutate(
	ctx context.Context,
	op, userID string,
	change func(*domain.Cart) (bool, error)) (*domain.CartView, error) {

	type result struct {
		cart    *domain.Cart
		changed bool
	}

	res, err := retry.DoWithResult(ctx, s.retry, func() (result, error) {
		cart, err := s.repo.GetCart(ctx, userID)
		if err != nil {
			return result{}, err
		}

		changed, err := change(cart)
		if err != nil || !changed {
			return result{cart, false}, err
		}

		saved, err := s.repo.SaveItems(ctx, userID, cart.Items, cart.Version)
		if err != nil {
			return result{}, err
		}
		return result{saved, true}, nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Error("failed to modify cart", "op", op, "user", userID, "err", err)
		}
		return nil, err
	}

	if res.changed {
		s.afterWrite(userID, res.cart, domain.CartUpdated)
	}
	return s.populate(ctx, res.cart)
}

// afterWrite refreshes the cache and announces the change. Neither step can
// fail the request: the cart is already committed.
func (s *CartService) afterWrite(userID string, cart *domain.Cart, outcome domain.CartOutcome) {
	const op = "CartService.afterWrite"

	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	if err := s.cache.Set(ctx, userID, cart); err != nil {
		slog.Warn("cache refresh failed, invalidating", "op", op, "user", userID, "err", err)
		if err := s.cache.Delete(ctx, userID); err != nil {
			slog.Warn("cache invalidate error, bypassing cache until refreshed", "op", op, "user", userID, "err", err)
			s.stale.Store(userID, cart.Version)
		}
	}

	snapshot := *cart
	snapshot.Items = append([]domain.CartItem(nil), cart.Items...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := s.publisher.PublishCart(ctx, &snapshot, outcome); err != nil {
			slog.Warn("failed to publish cart event", "op", op, "user", userID, "err", err)
		}
	}()
}

// populate resolves the cart owner and every item's product. Products that
// no longer exist are left unresolved instead of failing the read.
func (s *CartService) populate(ctx context.Context, cart *domain.Cart) (*domain.CartView, error) {
	const op = "CartService.populate"

	ids := make([]string, len(cart.Items))
	for i, item := range cart.Items {
		ids[i] = item.ProductID
	}

	var (
		user     *domain.UserSummary
		products []domain.Product
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.users.GetSummary(gctx, cart.UserID)
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		user = u
		return err
	})
	if len(ids) > 0 {
		g.Go(func() error {
			var err error
			products, err = s.products.FindByIDs(gctx, ids)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("failed to populate cart", "op", op, "user", cart.UserID, "err", err)
		return nil, err
	}

	byID := make(map[string]*domain.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	view := &domain.CartView{
		ID:        cart.ID,
		User:      user,
		Items:     make([]domain.CartItemView, len(cart.Items)),
		Version:   cart.Version,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
	for i, item := range cart.Items {
		view.Items[i] = domain.CartItemView{
			ProductID: item.ProductID,
			Product:   byID[item.ProductID],
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt,
		}
	}
	return view, nil
}
