package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"minimart/internal/model"
	"minimart/internal/repository"
)

// ProductRequestService handles residents' requests for new stock.
type ProductRequestService interface {
	Create(ctx context.Context, userEmail string, req model.CreateProductRequestRequest) (*model.ProductRequest, error)
	ListMine(ctx context.Context, userEmail string) ([]model.ProductRequest, error)
	ListAll(ctx context.Context, status *string) ([]model.ProductRequest, error)
	SetStatus(ctx context.Context, actor string, id int64, status string) (*model.ProductRequest, error)
}

type productRequestService struct {
	repo  repository.ProductRequestRepository
	audit AuditRecorder
}

// NewProductRequestService creates a new ProductRequestService
func NewProductRequestService(repo repository.ProductRequestRepository, audit AuditRecorder) ProductRequestService {
	return &productRequestService{repo: repo, audit: audit}
}

func validRequestStatus(status string) bool {
	switch status {
	case model.RequestPending, model.RequestFulfilled, model.RequestRejected:
		return true
	}
	return false
}

func (s *productRequestService) Create(ctx context.Context, userEmail string, req model.CreateProductRequestRequest) (*model.ProductRequest, error) {
	name := strings.TrimSpace(req.ProductName)
	if name == "" {
		return nil, newError(ErrInvalidInput, "product name is required")
	}
	if req.Quantity <= 0 {
		return nil, newError(ErrInvalidInput, "quantity must be positive")
	}

	pr := &model.ProductRequest{
		UserEmail:   NormalizeEmail(userEmail),
		ProductName: name,
		Quantity:    req.Quantity,
		Note:        strings.TrimSpace(req.Note),
		Status:      model.RequestPending,
	}
	if err := s.repo.Create(ctx, pr); err != nil {
		return nil, fmt.Errorf("failed to create product request: %w", err)
	}
	return pr, nil
}

func (s *productRequestService) ListMine(ctx context.Context, userEmail string) ([]model.ProductRequest, error) {
	email := NormalizeEmail(userEmail)
	requests, err := s.repo.List(ctx, &email, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list product requests: %w", err)
	}
	return requests, nil
}

func (s *productRequestService) ListAll(ctx context.Context, status *string) ([]model.ProductRequest, error) {
	if status != nil && *status != "" && !validRequestStatus(*status) {
		return nil, newError(ErrInvalidInput, "status must be pending, fulfilled or rejected")
	}
	requests, err := s.repo.List(ctx, nil, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list product requests: %w", err)
	}
	return requests, nil
}

func (s *productRequestService) SetStatus(ctx context.Context, actor string, id int64, status string) (*model.ProductRequest, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !validRequestStatus(status) {
		return nil, newError(ErrInvalidInput, "status must be pending, fulfilled or rejected")
	}
	pr, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to update product request: %w", err)
	}
	s.audit.Record(ctx, actor, model.ActionProductRequestSet, model.EntityProductRequest, strconv.FormatInt(id, 10),
		map[string]string{"status": status})
	return pr, nil
}
