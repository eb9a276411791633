package service

import (
	"context"
	"testing"

	"minimart/internal/model"
	"minimart/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProductRepo struct {
	products map[int64]*model.Product
	nextID   int64
}

func (r *fakeProductRepo) Create(_ context.Context, p *model.Product) error {
	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) FindByID(_ context.Context, id int64) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) List(_ context.Context, _ model.ProductFilters) ([]model.Product, error) {
	out := []model.Product{}
	for _, p := range r.products {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeProductRepo) Update(_ context.Context, p *model.Product) error {
	if _, ok := r.products[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

type fakeRequestRepo struct {
	requests []*model.ProductRequest
}

func (r *fakeRequestRepo) Create(_ context.Context, pr *model.ProductRequest) error {
	pr.ID = int64(len(r.requests) + 1)
	cp := *pr
	r.requests = append(r.requests, &cp)
	return nil
}

func (r *fakeRequestRepo) List(_ context.Context, userEmail, status *string) ([]model.ProductRequest, error) {
	out := []model.ProductRequest{}
	for _, pr := range r.requests {
		if userEmail != nil && pr.UserEmail != *userEmail {
			continue
		}
		if status != nil && *status != "" && pr.Status != *status {
			continue
		}
		out = append(out, *pr)
	}
	return out, nil
}

func (r *fakeRequestRepo) UpdateStatus(_ context.Context, id int64, status string) (*model.ProductRequest, error) {
	for _, pr := range r.requests {
		if pr.ID == id {
			pr.Status = status
			cp := *pr
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func TestProductService_Lifecycle(t *testing.T) {
	repo := &fakeProductRepo{products: map[int64]*model.Product{}}
	audit := &fakeAudit{}
	svc := NewProductService(repo, audit)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, adminEmail, model.CreateProductRequest{Name: " Rice 5kg ", Price: 7500, Stock: 10})
	require.NoError(t, err)
	assert.Equal(t, "Rice 5kg", p.Name)

	stock := 4
	updated, err := svc.UpdateProduct(ctx, adminEmail, p.ID, model.UpdateProductRequest{Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Stock)
	assert.Equal(t, int64(7500), updated.Price)

	require.NoError(t, svc.DeleteProduct(ctx, adminEmail, p.ID))
	_, err = svc.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteProduct(ctx, adminEmail, p.ID), ErrProductNotFound)

	assert.Equal(t, []string{model.ActionProductCreated, model.ActionProductUpdated, model.ActionProductDeleted}, audit.actions())
}

func TestProductService_UpdateProduct_NegativePrice(t *testing.T) {
	repo := &fakeProductRepo{products: map[int64]*model.Product{1: {ID: 1, Name: "Soap", Price: 100}}}
	svc := NewProductService(repo, &fakeAudit{})
	price := int64(-1)

	_, err := svc.UpdateProduct(context.Background(), adminEmail, 1, model.UpdateProductRequest{Price: &price})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProductRequestService(t *testing.T) {
	repo := &fakeRequestRepo{}
	audit := &fakeAudit{}
	svc := NewProductRequestService(repo, audit)
	ctx := context.Background()

	pr, err := svc.Create(ctx, "Ann@example.com", model.CreateProductRequestRequest{ProductName: "Oat milk", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, pr.Status)
	_, err = svc.Create(ctx, "bob@example.com", model.CreateProductRequestRequest{ProductName: "Tea", Quantity: 1})
	require.NoError(t, err)

	mine, err := svc.ListMine(ctx, "ann@example.com")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Oat milk", mine[0].ProductName)

	updated, err := svc.SetStatus(ctx, adminEmail, pr.ID, "Fulfilled")
	require.NoError(t, err)
	assert.Equal(t, model.RequestFulfilled, updated.Status)

	_, err = svc.SetStatus(ctx, adminEmail, pr.ID, "lost")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.SetStatus(ctx, adminEmail, 99, "rejected")
	assert.ErrorIs(t, err, ErrNotFound)

	pending := model.RequestPending
	all, err := svc.ListAll(ctx, &pending)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, []string{model.ActionProductRequestSet}, audit.actions())
}
