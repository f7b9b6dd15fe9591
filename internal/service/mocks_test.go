package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
)

// memoryCartRepository keeps carts in a map and enforces the same version
// checks as the Mongo implementation.
type memoryCartRepository struct {
	m         sync.RWMutex
	carts     map[string]domain.Cart
	err       error
	conflicts int // SaveItems calls to fail with a version conflict
	writes    int
}

func newMemoryCartRepository() *memoryCartRepository {
	return &memoryCartRepository{carts: map[string]domain.Cart{}}
}

func copyCart(c domain.Cart) *domain.Cart {
	c.Items = append([]domain.CartItem{}, c.Items...)
	return &c
}

func (r *memoryCartRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	r.m.RLock()
	defer r.m.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	c, ok := r.carts[userID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	return copyCart(c), nil
}

func (r *memoryCartRepository) CreateCart(_ context.Context, cart *domain.Cart) error {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.carts[cart.UserID]; ok {
		return domain.ErrVersionConflict
	}
	now := time.Now()
	cart.ID = "cart-" + cart.UserID
	cart.Version = 1
	cart.CreatedAt, cart.UpdatedAt = now, now
	r.carts[cart.UserID] = *copyCart(*cart)
	r.writes++
	return nil
}

func (r *memoryCartRepository) SaveItems(_ context.Context, userID string, items []domain.CartItem, expectedVersion int64) (*domain.Cart, error) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if r.conflicts > 0 {
		r.conflicts--
		return nil, domain.ErrVersionConflict
	}
	c, ok := r.carts[userID]
	if !ok || c.Version != expectedVersion {
		return nil, domain.ErrVersionConflict
	}
	c.Items = append([]domain.CartItem{}, items...)
	c.Version++
	c.UpdatedAt = time.Now()
	r.carts[userID] = c
	r.writes++
	return copyCart(c), nil
}

func (r *memoryCartRepository) ReplaceItems(_ context.Context, userID string, items []domain.CartItem) (*domain.Cart, bool, error) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return nil, false, r.err
	}
	c, ok := r.carts[userID]
	if !ok {
		c = domain.Cart{ID: "cart-" + userID, UserID: userID, CreatedAt: time.Now()}
	}
	c.Items = append([]domain.CartItem{}, items...)
	c.Version++
	c.UpdatedAt = time.Now()
	r.carts[userID] = c
	r.writes++
	return copyCart(c), !ok, nil
}

func (r *memoryCartRepository) stored(userID string) *domain.Cart {
	r.m.RLock()
	defer r.m.RUnlock()
	c, ok := r.carts[userID]
	if !ok {
		return nil
	}
	return copyCart(c)
}

func (r *memoryCartRepository) writeCount() int {
	r.m.RLock()
	defer r.m.RUnlock()
	return r.writes
}

type mockProductRepository struct {
	m        sync.RWMutex
	products map[string]domain.Product
	filters  []repository.ProductFilter
	nextID   int
	err      error
}

func newMockProductRepository(products ...domain.Product) *mockProductRepository {
	r := &mockProductRepository{products: map[string]domain.Product{}}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *mockProductRepository) Create(_ context.Context, p domain.Product) (string, error) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.nextID++
	p.ID = productID(r.nextID)
	p.Category = &domain.Category{ID: p.CategoryID, Name: "resolved"}
	r.products[p.ID] = p
	return p.ID, nil
}

func (r *mockProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.m.RLock()
	defer r.m.RUnlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (r *mockProductRepository) List(_ context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	r.m.Lock()
	defer r.m.Unlock()
	r.filters = append(r.filters, filter)
	if r.err != nil {
		return nil, r.err
	}
	var out []domain.Product
	for _, p := range r.products {
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.NameContains != "" && !containsFold(p.Name, filter.NameContains) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *mockProductRepository) Update(_ context.Context, id string, p domain.Product) error {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	p.ID = id
	r.products[id] = p
	return nil
}

func (r *mockProductRepository) Delete(_ context.Context, id string) error {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *mockProductRepository) FindByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	r.m.RLock()
	defer r.m.RUnlock()
	if r.err != nil {
		return nil, r.err
	}
	out := []domain.Product{}
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockUserRepository struct {
	users map[string]domain.UserSummary
}

func (r *mockUserRepository) GetSummary(_ context.Context, userID string) (*domain.UserSummary, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

type mockCache struct {
	m    sync.RWMutex
	cart *domain.Cart
	err  error
	sets int
}

func (m *mockCache) Get(context.Context, string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, cache.ErrCacheMiss
	}
	return copyCart(*m.cart), nil
}

func (m *mockCache) Set(_ context.Context, _ string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.sets++
	if m.err != nil {
		return m.err
	}
	if m.cart == nil || m.cart.Version < cart.Version {
		m.cart = copyCart(*cart)
	}
	return nil
}

func (m *mockCache) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cart = nil
	return nil
}

func (m *mockCache) setErr(err error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.err = err
}

func (m *mockCache) getCart() *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}

type mockPublisher struct {
	m        sync.Mutex
	outcomes []domain.CartOutcome
	versions []int64
}

func (p *mockPublisher) PublishCart(_ context.Context, cart *domain.Cart, outcome domain.CartOutcome) error {
	p.m.Lock()
	defer p.m.Unlock()
	p.outcomes = append(p.outcomes, outcome)
	p.versions = append(p.versions, cart.Version)
	return nil
}

func (p *mockPublisher) Close() error { return nil }

func (p *mockPublisher) published() []domain.CartOutcome {
	p.m.Lock()
	defer p.m.Unlock()
	return append([]domain.CartOutcome(nil), p.outcomes...)
}
