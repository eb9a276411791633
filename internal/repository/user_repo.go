package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"minimart/internal/model"

	"github.com/jackc/pgx/v5"
)

// UserRepository is the credential store. Emails are expected to be
// normalized by the caller.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByPhone(ctx context.Context, phone string) ([]model.User, error)
	List(ctx context.Context, filters model.UserFilters) ([]model.User, error)
	UpdateFields(ctx context.Context, email string, upd model.UserUpdate) (*model.User, error)
	SetSuspended(ctx context.Context, email string, suspended bool) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	AcceptInvitation(ctx context.Context, email, passwordHash string) (*model.User, error)
	MarkInvitationSent(ctx context.Context, email string, at time.Time) error
}

type userRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, name, phone_number, COALESCE(password_hash, ''), role, suspended,
	invitation_accepted, invitation_sent_at, voucher_balance, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PhoneNumber, &u.PasswordHash, &u.Role, &u.Suspended,
		&u.InvitationAccepted, &u.InvitationSentAt, &u.VoucherBalance, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user. A taken email yields ErrDuplicateEmail.
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	sql := `INSERT INTO users (email, name, phone_number, password_hash, role, suspended, invitation_accepted)
            VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7) RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, sql, u.Email, u.Name, u.PhoneNumber, u.PasswordHash, u.Role, u.Suspended, u.InvitationAccepted).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByEmail retrieves a user by email or returns ErrNotFound.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.db.QueryRow(ctx, sql, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return u, nil
}

// FindByPhone returns every account registered with the phone number. Phone
// numbers are not unique, so several users may come back.
func (r *userRepository) FindByPhone(ctx context.Context, phone string) ([]model.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE phone_number = $1 ORDER BY id`
	return r.queryUsers(ctx, sql, phone)
}

// List returns users matching the filters, newest first.
func (r *userRepository) List(ctx context.Context, filters model.UserFilters) ([]model.User, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + userColumns + ` FROM users`)

	args := []any{}
	argCount := 1
	var conditions []string

	if filters.Search != nil && *filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR phone_number ILIKE $%d)", argCount, argCount, argCount))
		args = append(args, "%"+*filters.Search+"%")
		argCount++
	}
	if filters.Role != nil && *filters.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argCount))
		args = append(args, *filters.Role)
		argCount++
	}
	if filters.Suspended != nil {
		conditions = append(conditions, fmt.Sprintf("suspended = $%d", argCount))
		args = append(args, *filters.Suspended)
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")

	return r.queryUsers(ctx, queryBuilder.String(), args...)
}

func (r *userRepository) queryUsers(ctx context.Context, sql string, args ...any) ([]model.User, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

// UpdateFields applies the non-nil fields of upd and returns the stored user.
func (r *userRepository) UpdateFields(ctx context.Context, email string, upd model.UserUpdate) (*model.User, error) {
	if upd.Empty() {
		return r.FindByEmail(ctx, email)
	}

	var sets []string
	args := []any{}
	argCount := 1

	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", argCount))
		args = append(args, *upd.Name)
		argCount++
	}
	if upd.PhoneNumber != nil {
		sets = append(sets, fmt.Sprintf("phone_number = $%d", argCount))
		args = append(args, *upd.PhoneNumber)
		argCount++
	}
	if upd.Role != nil {
		sets = append(sets, fmt.Sprintf("role = $%d", argCount))
		args = append(args, *upd.Role)
		argCount++
	}
	args = append(args, email)

	sql := fmt.Sprintf(`UPDATE users SET %s WHERE email = $%d RETURNING %s`,
		strings.Join(sets, ", "), argCount, userColumns)
	u, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

// SetSuspended flips the suspended flag.
func (r *userRepository) SetSuspended(ctx context.Context, email string, suspended bool) error {
	return r.execOne(ctx, "set suspended", `UPDATE users SET suspended = $1 WHERE email = $2`, suspended, email)
}

// UpdatePassword replaces the password hash.
func (r *userRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return r.execOne(ctx, "update password", `UPDATE users SET password_hash = $1 WHERE email = $2`, passwordHash, email)
}

// AcceptInvitation sets the password and accepted flag in one statement, only
// while the invitation is still pending. A missing or already accepted
// invitation yields ErrNotFound.
func (r *userRepository) AcceptInvitation(ctx context.Context, email, passwordHash string) (*model.User, error) {
	sql := `UPDATE users SET password_hash = $1, invitation_accepted = TRUE
            WHERE email = $2 AND invitation_accepted = FALSE RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRow(ctx, sql, passwordHash, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	return u, nil
}

// MarkInvitationSent records when the invitation mail went out.
func (r *userRepository) MarkInvitationSent(ctx context.Context, email string, at time.Time) error {
	return r.execOne(ctx, "mark invitation sent", `UPDATE users SET invitation_sent_at = $1 WHERE email = $2`, at, email)
}

func (r *userRepository) execOne(ctx context.Context, op, sql string, args ...any) error {
	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
