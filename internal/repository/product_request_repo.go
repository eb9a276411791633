package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"minimart/internal/model"

	"github.com/jackc/pgx/v5"
)

// ProductRequestRepository stores residents' requests for new stock.
type ProductRequestRepository interface {
	Create(ctx context.Context, req *model.ProductRequest) error
	List(ctx context.Context, userEmail, status *string) ([]model.ProductRequest, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*model.ProductRequest, error)
}

type productRequestRepository struct {
	db DBTX
}

// NewProductRequestRepository creates a new ProductRequestRepository
func NewProductRequestRepository(db DBTX) ProductRequestRepository {
	return &productRequestRepository{db: db}
}

const productRequestColumns = `id, user_email, product_name, quantity, note, status, created_at, updated_at`

func scanProductRequest(row pgx.Row) (*model.ProductRequest, error) {
	pr := &model.ProductRequest{}
	err := row.Scan(&pr.ID, &pr.UserEmail, &pr.ProductName, &pr.Quantity, &pr.Note, &pr.Status, &pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return pr, nil
}

func (r *productRequestRepository) Create(ctx context.Context, pr *model.ProductRequest) error {
	sql := `INSERT INTO product_requests (user_email, product_name, quantity, note, status)
            VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, sql, pr.UserEmail, pr.ProductName, pr.Quantity, pr.Note, pr.Status).
		Scan(&pr.ID, &pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product request: %w", err)
	}
	return nil
}

// List returns requests, optionally narrowed to one resident and/or status.
func (r *productRequestRepository) List(ctx context.Context, userEmail, status *string) ([]model.ProductRequest, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + productRequestColumns + ` FROM product_requests`)

	args := []any{}
	var conditions []string
	if userEmail != nil && *userEmail != "" {
		args = append(args, *userEmail)
		conditions = append(conditions, fmt.Sprintf("user_email = $%d", len(args)))
	}
	if status != nil && *status != "" {
		args = append(args, *status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query product requests: %w", err)
	}
	defer rows.Close()

	requests := []model.ProductRequest{}
	for rows.Next() {
		pr, err := scanProductRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product request row: %w", err)
		}
		requests = append(requests, *pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product request rows: %w", err)
	}
	return requests, nil
}

func (r *productRequestRepository) UpdateStatus(ctx context.Context, id int64, status string) (*model.ProductRequest, error) {
	sql := `UPDATE product_requests SET status = $1 WHERE id = $2 RETURNING ` + productRequestColumns
	pr, err := scanProductRequest(r.db.QueryRow(ctx, sql, status, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update product request status: %w", err)
	}
	return pr, nil
}
