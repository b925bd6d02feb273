package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/maxvolts/maxvolts/internal/platform/httpx"
)

// Service provides business logic for the product catalog.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs a catalog service.
func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
	}
}

// Create validates and stores a new catalog product.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	product := Product{
		Name:        req.Name,
		Value:       req.Value,
		Description: req.Description,
		Markup:      req.Markup,
		VATRate:     req.VATRate,
		IsVisible:   true,
	}

	id, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("%w: create product: %v", httpx.ErrStorage, err)
	}

	return s.Get(ctx, id)
}

// Update applies partial edits to a catalog product. Existing line items
// keep their copied snapshot; only future selections see the change.
func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (*Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Value != nil {
		updates["value"] = *req.Value
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Markup != nil {
		updates["markup"] = *req.Markup
	}
	if req.VATRate != nil {
		updates["vat_rate"] = *req.VATRate
	}
	if req.IsVisible != nil {
		updates["is_visible"] = *req.IsVisible
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: product %d", httpx.ErrNotFound, id)
			}
			return nil, fmt.Errorf("%w: update product: %v", httpx.ErrStorage, err)
		}
	}

	return s.Get(ctx, id)
}

// Get fetches one product.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: product %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get product: %v", httpx.ErrStorage, err)
	}
	return product, nil
}

// List returns catalog products with a total count.
func (s *Service) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	result, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list products: %v", httpx.ErrStorage, err)
	}
	return result, total, nil
}
