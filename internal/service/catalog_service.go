package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/validation"
)

type CatalogService struct {
	products repository.ProductRepository
}

func NewCatalogService(products repository.ProductRepository) *CatalogService {
	return &CatalogService{products: products}
}

// Create stores a new product and returns it as read back from the store,
// with its category resolved.
func (s *CatalogService) Create(ctx context.Context, in validation.ProductInput) (*domain.Product, error) {
	const op = "CatalogService.Create"

	p, err := validation.Product(in)
	if err != nil {
		return nil, err
	}

	id, err := s.products.Create(ctx, p)
	if err != nil {
		slog.Error("failed to create product", "op", op, "err", err)
		return nil, err
	}

	created, err := s.products.GetByID(ctx, id)
	if err != nil {
		slog.Error("failed to read created product", "op", op, "id", id, "err", err)
		return nil, err
	}
	return created, nil
}

// List returns every product, or only those whose name contains search
// (case-insensitive) when search is not empty.
func (s *CatalogService) List(ctx context.Context, search string) (domain.ProductList, error) {
	products, err := s.products.List(ctx, repository.ProductFilter{NameContains: search})
	if err != nil {
		slog.Error("failed to list products", "op", "CatalogService.List", "search", search, "err", err)
		return domain.ProductList{}, err
	}
	return domain.NewProductList(products), nil
}

func (s *CatalogService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.Error("failed to get product", "op", "CatalogService.GetByID", "id", id, "err", err)
	}
	return p, err
}

// Update replaces all editable fields. It never creates a product.
func (s *CatalogService) Update(ctx context.Context, id string, in validation.ProductInput) (*domain.Product, error) {
	const op = "CatalogService.Update"

	p, err := validation.Product(in)
	if err != nil {
		return nil, err
	}

	if err := s.products.Update(ctx, id, p); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Error("failed to update product", "op", op, "id", id, "err", err)
		}
		return nil, err
	}

	return s.products.GetByID(ctx, id)
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	err := s.products.Delete(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.Error("failed to delete product", "op", "CatalogService.Delete", "id", id, "err", err)
	}
	return err
}

// ListByCategory never reports not found; an unknown category yields an
// empty list.
func (s *CatalogService) ListByCategory(ctx context.Context, categoryID string) (domain.ProductList, error) {
	products, err := s.products.List(ctx, repository.ProductFilter{CategoryID: categoryID})
	if err != nil {
		slog.Error("failed to list products by category",
			"op", "CatalogService.ListByCategory", "category", categoryID, "err", err)
		return domain.ProductList{}, err
	}
	return domain.NewProductList(products), nil
}
