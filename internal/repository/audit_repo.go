package repository

import (
	"context"
	"fmt"
	"strings"

	"minimart/internal/model"
)

const DefaultAuditLimit = 500

// AuditRepository defines operations for the admin audit trail
type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	Find(ctx context.Context, filters model.AuditFilters) ([]model.AuditLog, error)
}

type auditRepository struct {
	db DBTX
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db DBTX) AuditRepository {
	return &auditRepository{db: db}
}

// Create inserts an audit entry.
func (r *auditRepository) Create(ctx context.Context, e *model.AuditLog) error {
	sql := `INSERT INTO audit_logs (actor_email, action, entity_type, entity_id, details)
            VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	var details any
	if len(e.Details) > 0 {
		details = []byte(e.Details)
	}
	err := r.db.QueryRow(ctx, sql, e.ActorEmail, e.Action, e.EntityType, e.EntityID, details).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// Find retrieves audit entries with optional filters, newest first.
func (r *auditRepository) Find(ctx context.Context, filters model.AuditFilters) ([]model.AuditLog, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, actor_email, action, entity_type, entity_id, details, created_at FROM audit_logs`)

	args := []any{}
	argCount := 1
	var conditions []string

	if filters.ActorEmail != nil && *filters.ActorEmail != "" {
		conditions = append(conditions, fmt.Sprintf("actor_email = $%d", argCount))
		args = append(args, *filters.ActorEmail)
		argCount++
	}
	if filters.Action != nil && *filters.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argCount))
		args = append(args, *filters.Action)
		argCount++
	}
	if filters.EntityType != nil && *filters.EntityType != "" {
		conditions = append(conditions, fmt.Sprintf("entity_type = $%d", argCount))
		args = append(args, *filters.EntityType)
		argCount++
	}
	if filters.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argCount))
		args = append(args, *filters.StartDate)
		argCount++
	}
	if filters.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argCount))
		args = append(args, *filters.EndDate)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")
	limit := filters.Limit
	if !filters.Unbounded && (limit <= 0 || limit > DefaultAuditLimit) {
		limit = DefaultAuditLimit
	}
	if limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCount))
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := []model.AuditLog{}
	for rows.Next() {
		var l model.AuditLog
		var details []byte
		if err := rows.Scan(&l.ID, &l.ActorEmail, &l.Action, &l.EntityType, &l.EntityID, &details, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log row: %w", err)
		}
		if len(details) > 0 {
			l.Details = details
		}
		logs = append(logs, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}
	return logs, nil
}
