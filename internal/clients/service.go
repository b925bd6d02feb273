package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/maxvolts/maxvolts/internal/platform/httpx"
)

// Service provides business logic for client reference data.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs a client service.
func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
	}
}

// Create validates and stores a new client. New clients are visible.
func (s *Service) Create(ctx context.Context, req CreateClientRequest) (*Client, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	client := Client{
		Name:      req.Name,
		Company:   req.Company,
		Email:     req.Email,
		Telephone: req.Telephone,
		Address1:  req.Address1,
		Address2:  req.Address2,
		City:      req.City,
		County:    req.County,
		Postcode:  req.Postcode,
		IsVisible: true,
	}

	id, err := s.repo.Create(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("%w: create client: %v", httpx.ErrStorage, err)
	}

	return s.Get(ctx, id)
}

// Update applies partial edits to an existing client.
func (s *Service) Update(ctx context.Context, id int64, req UpdateClientRequest) (*Client, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Company != nil {
		updates["company"] = *req.Company
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Telephone != nil {
		updates["telephone"] = *req.Telephone
	}
	if req.Address1 != nil {
		updates["address1"] = *req.Address1
	}
	if req.Address2 != nil {
		updates["address2"] = *req.Address2
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.County != nil {
		updates["county"] = *req.County
	}
	if req.Postcode != nil {
		updates["postcode"] = *req.Postcode
	}
	if req.IsVisible != nil {
		updates["is_visible"] = *req.IsVisible
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: client %d", httpx.ErrNotFound, id)
			}
			return nil, fmt.Errorf("%w: update client: %v", httpx.ErrStorage, err)
		}
	}

	return s.Get(ctx, id)
}

// Get fetches one client.
func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	client, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: client %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get client: %v", httpx.ErrStorage, err)
	}
	return client, nil
}

// List returns clients with a total count.
func (s *Service) List(ctx context.Context, req ListClientsRequest) ([]Client, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	result, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list clients: %v", httpx.ErrStorage, err)
	}
	return result, total, nil
}
