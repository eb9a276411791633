package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"minimart/internal/model"

	"github.com/jackc/pgx/v5"
)

// VoucherRepository stores voucher tasks and residents' attempts at them.
type VoucherRepository interface {
	CreateTask(ctx context.Context, t *model.VoucherTask) error
	FindTaskByID(ctx context.Context, id int64) (*model.VoucherTask, error)
	ListTasks(ctx context.Context, activeOnly bool) ([]model.VoucherTask, error)
	UpdateTask(ctx context.Context, t *model.VoucherTask) error

	CreateAttempt(ctx context.Context, a *model.TaskAttempt) error
	FindAttemptByID(ctx context.Context, id int64) (*model.TaskAttempt, error)
	ListAttempts(ctx context.Context, filters model.AttemptFilters) ([]model.TaskAttempt, error)
	SetAttemptProof(ctx context.Context, id int64, proofPath string) error
	ApproveAttempt(ctx context.Context, id int64, reviewer string, note *string) (*model.TaskAttempt, error)
	RejectAttempt(ctx context.Context, id int64, reviewer string, note *string) (*model.TaskAttempt, error)
}

type voucherRepository struct {
	db DBTX
}

// NewVoucherRepository creates a new VoucherRepository
func NewVoucherRepository(db DBTX) VoucherRepository {
	return &voucherRepository{db: db}
}

const taskColumns = `id, title, description, points, active, created_at, updated_at`

func scanTask(row pgx.Row) (*model.VoucherTask, error) {
	t := &model.VoucherTask{}
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Points, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

const attemptSelect = `SELECT a.id, a.task_id, t.title, t.points, a.user_email, a.status, a.note, a.proof_path,
	a.review_note, a.reviewed_by, a.reviewed_at, a.created_at
	FROM task_attempts a JOIN voucher_tasks t ON t.id = a.task_id`

func scanAttempt(row pgx.Row) (*model.TaskAttempt, error) {
	a := &model.TaskAttempt{}
	err := row.Scan(&a.ID, &a.TaskID, &a.TaskTitle, &a.Points, &a.UserEmail, &a.Status, &a.Note, &a.ProofPath,
		&a.ReviewNote, &a.ReviewedBy, &a.ReviewedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *voucherRepository) CreateTask(ctx context.Context, t *model.VoucherTask) error {
	sql := `INSERT INTO voucher_tasks (title, description, points, active)
            VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`
	if err := r.db.QueryRow(ctx, sql, t.Title, t.Description, t.Points, t.Active).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create voucher task: %w", err)
	}
	return nil
}

func (r *voucherRepository) FindTaskByID(ctx context.Context, id int64) (*model.VoucherTask, error) {
	t, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM voucher_tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find voucher task: %w", err)
	}
	return t, nil
}

func (r *voucherRepository) ListTasks(ctx context.Context, activeOnly bool) ([]model.VoucherTask, error) {
	sql := `SELECT ` + taskColumns + ` FROM voucher_tasks`
	if activeOnly {
		sql += ` WHERE active = TRUE`
	}
	sql += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to query voucher tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.VoucherTask{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voucher task row: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voucher task rows: %w", err)
	}
	return tasks, nil
}

func (r *voucherRepository) UpdateTask(ctx context.Context, t *model.VoucherTask) error {
	sql := `UPDATE voucher_tasks SET title = $1, description = $2, points = $3, active = $4
            WHERE id = $5 RETURNING updated_at`
	err := r.db.QueryRow(ctx, sql, t.Title, t.Description, t.Points, t.Active, t.ID).Scan(&t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update voucher task: %w", err)
	}
	return nil
}

func (r *voucherRepository) CreateAttempt(ctx context.Context, a *model.TaskAttempt) error {
	sql := `INSERT INTO task_attempts (task_id, user_email, status, note)
            VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := r.db.QueryRow(ctx, sql, a.TaskID, a.UserEmail, a.Status, a.Note).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to create task attempt: %w", err)
	}
	return nil
}

func (r *voucherRepository) FindAttemptByID(ctx context.Context, id int64) (*model.TaskAttempt, error) {
	a, err := scanAttempt(r.db.QueryRow(ctx, attemptSelect+` WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task attempt: %w", err)
	}
	return a, nil
}

func (r *voucherRepository) ListAttempts(ctx context.Context, filters model.AttemptFilters) ([]model.TaskAttempt, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(attemptSelect)

	args := []any{}
	argCount := 1
	var conditions []string

	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", argCount))
		args = append(args, *filters.Status)
		argCount++
	}
	if filters.UserEmail != nil && *filters.UserEmail != "" {
		conditions = append(conditions, fmt.Sprintf("a.user_email = $%d", argCount))
		args = append(args, *filters.UserEmail)
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY a.created_at DESC, a.id DESC")

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query task attempts: %w", err)
	}
	defer rows.Close()

	attempts := []model.TaskAttempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task attempt row: %w", err)
		}
		attempts = append(attempts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task attempt rows: %w", err)
	}
	return attempts, nil
}

func (r *voucherRepository) SetAttemptProof(ctx context.Context, id int64, proofPath string) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE task_attempts SET proof_path = $1 WHERE id = $2`, proofPath, id)
	if err != nil {
		return fmt.Errorf("failed to update proof path: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApproveAttempt marks a pending attempt approved and credits the task's
// points to the resident in the same statement. An attempt that is missing
// or no longer pending yields ErrNotFound.
func (r *voucherRepository) ApproveAttempt(ctx context.Context, id int64, reviewer string, note *string) (*model.TaskAttempt, error) {
	sql := `WITH reviewed AS (
                UPDATE task_attempts a
                SET status = 'approved', reviewed_by = $2, review_note = $3, reviewed_at = NOW()
                FROM voucher_tasks t
                WHERE a.id = $1 AND a.status = 'pending' AND t.id = a.task_id
                RETURNING a.id, a.task_id, t.title, t.points, a.user_email, a.status, a.note, a.proof_path,
                          a.review_note, a.reviewed_by, a.reviewed_at, a.created_at
            ), credited AS (
                UPDATE users u SET voucher_balance = u.voucher_balance + r.points
                FROM reviewed r WHERE u.email = r.user_email
            )
            SELECT * FROM reviewed`
	return r.review(ctx, "approve", sql, id, reviewer, note)
}

// RejectAttempt marks a pending attempt rejected.
func (r *voucherRepository) RejectAttempt(ctx context.Context, id int64, reviewer string, note *string) (*model.TaskAttempt, error) {
	sql := `UPDATE task_attempts a
            SET status = 'rejected', reviewed_by = $2, review_note = $3, reviewed_at = NOW()
            FROM voucher_tasks t
            WHERE a.id = $1 AND a.status = 'pending' AND t.id = a.task_id
            RETURNING a.id, a.task_id, t.title, t.points, a.user_email, a.status, a.note, a.proof_path,
                      a.review_note, a.reviewed_by, a.reviewed_at, a.created_at`
	return r.review(ctx, "reject", sql, id, reviewer, note)
}

func (r *voucherRepository) review(ctx context.Context, op, sql string, id int64, reviewer string, note *string) (*model.TaskAttempt, error) {
	a, err := scanAttempt(r.db.QueryRow(ctx, sql, id, reviewer, note))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to %s task attempt: %w", op, err)
	}
	return a, nil
}
