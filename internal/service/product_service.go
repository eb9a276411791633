package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"minimart/internal/model"
	"minimart/internal/repository"
)

// ProductService defines operations on the catalog
type ProductService interface {
	ListProducts(ctx context.Context, filters model.ProductFilters) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	CreateProduct(ctx context.Context, actor string, req model.CreateProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, actor string, id int64, req model.UpdateProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, actor string, id int64) error
}

type productService struct {
	repo  repository.ProductRepository
	audit AuditRecorder
}

// NewProductService creates a new ProductService
func NewProductService(repo repository.ProductRepository, audit AuditRecorder) ProductService {
	return &productService{repo: repo, audit: audit}
}

func (s *productService) ListProducts(ctx context.Context, filters model.ProductFilters) ([]model.Product, error) {
	products, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *productService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (s *productService) CreateProduct(ctx context.Context, actor string, req model.CreateProductRequest) (*model.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, newError(ErrInvalidInput, "product name is required")
	}
	if req.Price < 0 || req.Stock < 0 {
		return nil, newError(ErrInvalidInput, "price and stock cannot be negative")
	}

	p := &model.Product{
		Name:        name,
		Description: req.Description,
		Category:    strings.TrimSpace(req.Category),
		Price:       req.Price,
		Stock:       req.Stock,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product in repo: %w", err)
	}
	s.audit.Record(ctx, actor, model.ActionProductCreated, model.EntityProduct, fmt.Sprint(p.ID),
		map[string]any{"name": p.Name, "price": p.Price, "stock": p.Stock})
	return p, nil
}

func (s *productService) UpdateProduct(ctx context.Context, actor string, id int64, req model.UpdateProductRequest) (*model.Product, error) {
	existing, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	// Apply updates
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, newError(ErrInvalidInput, "product name cannot be empty")
		}
		existing.Name = name
	}
	if req.Description != nil {
		existing.Description = *req.Description
	}
	if req.Category != nil {
		existing.Category = strings.TrimSpace(*req.Category)
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, newError(ErrInvalidInput, "price cannot be negative")
		}
		existing.Price = *req.Price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, newError(ErrInvalidInput, "stock cannot be negative")
		}
		existing.Stock = *req.Stock
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product in repo: %w", err)
	}
	s.audit.Record(ctx, actor, model.ActionProductUpdated, model.EntityProduct, fmt.Sprint(id), req)
	return existing, nil
}

func (s *productService) DeleteProduct(ctx context.Context, actor string, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product in repo: %w", err)
	}
	s.audit.Record(ctx, actor, model.ActionProductDeleted, model.EntityProduct, fmt.Sprint(id), nil)
	return nil
}
