package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"minimart/internal/model"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "email", "name", "phone_number", "password_hash", "role", "suspended",
	"invitation_accepted", "invitation_sent_at", "voucher_balance", "created_at", "updated_at"}

func userRow(rows *pgxmock.Rows, email, hash string, accepted bool) *pgxmock.Rows {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return rows.AddRow(int64(1), email, "Alice", "81234567", hash, model.RoleResident, false,
		accepted, (*time.Time)(nil), int64(0), now, now)
}

func newMockUserRepo(t *testing.T) (pgxmock.PgxPoolIface, UserRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewUserRepository(mock)
}

func TestUserRepository_Create(t *testing.T) {
	mock, repo := newMockUserRepo(t)
	now := time.Now()

	u := &model.User{Email: "a@x.com", Name: "A", PhoneNumber: "81234567", Role: model.RoleResident}
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("a@x.com", "A", "81234567", "", model.RoleResident, false, false).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(9), now, now))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, int64(9), u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	mock, repo := newMockUserRepo(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("a@x.com", "", "", "", model.RoleAdmin, false, false).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	err := repo.Create(context.Background(), &model.User{Email: "a@x.com", Role: model.RoleAdmin})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail(t *testing.T) {
	mock, repo := newMockUserRepo(t)

	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("a@x.com").
		WillReturnRows(userRow(pgxmock.NewRows(userCols), "a@x.com", "hash", true))

	u, err := repo.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.Nil(t, u.InvitationSentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail_NotFound(t *testing.T) {
	mock, repo := newMockUserRepo(t)

	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("missing@x.com").
		WillReturnRows(pgxmock.NewRows(userCols))

	u, err := repo.FindByEmail(context.Background(), "missing@x.com")
	assert.Nil(t, u)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail_DBError(t *testing.T) {
	mock, repo := newMockUserRepo(t)

	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("a@x.com").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FindByEmail(context.Background(), "a@x.com")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_FindByPhone_Multiple(t *testing.T) {
	mock, repo := newMockUserRepo(t)

	rows := pgxmock.NewRows(userCols)
	userRow(rows, "a@x.com", "h1", true)
	userRow(rows, "b@x.com", "h2", true)
	mock.ExpectQuery(`FROM users WHERE phone_number = \$1`).
		WithArgs("81234567").
		WillReturnRows(rows)

	users, err := repo.FindByPhone(context.Background(), "81234567")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "b@x.com", users[1].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_List_Filters(t *testing.T) {
	mock, repo := newMockUserRepo(t)

	search, role, suspended := "ali", model.RoleResident, true
	mock.ExpectQuery(`WHERE \(name ILIKE \$1 OR email ILIKE \$1 OR phone_number ILIKE \$1\) AND role = \$2 AND suspended = \$3`).
		WithArgs("%ali%", model.RoleResident, true).
		WillReturnRows(pgxmock.NewRows(userCols))

	users, err := repo.List(context.Background(), model.UserFilters{Search: &search, Role: &role, Suspended: &suspended})
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NotNil(t, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateFields(t *testing.T) {
	mock, repo := newMockUserRepo(t)

	name, role := "Alice B", model.RoleAdmin
	mock.ExpectQuery(`UPDATE users SET name = \$1, role = \$2 WHERE email = \$3`).
		WithArgs("Alice B", model.RoleAdmin, "a@x.com").
		WillReturnRows(userRow(pgxmock.NewRows(userCols), "a@x.com", "hash", true))

	u, err := repo.UpdateFields(context.Background(), "a@x.com", model.UserUpdate{Name: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateFields_NotFound(t *testing.T) {
	mock, repo := newMockUserRepo(t)

	phone := "90000000"
	mock.ExpectQuery(`UPDATE users SET phone_number = \$1 WHERE email = \$2`).
		WithArgs("90000000", "nobody@x.com").
		WillReturnRows(pgxmock.NewRows(userCols))

	_, err := repo.UpdateFields(context.Background(), "nobody@x.com", model.UserUpdate{PhoneNumber: &phone})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_SetSuspended(t *testing.T) {
	mock, repo := newMockUserRepo(t)

	mock.ExpectExec(`UPDATE users SET suspended = \$1 WHERE email = \$2`).
		WithArgs(true, "a@x.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET suspended = \$1 WHERE email = \$2`).
		WithArgs(true, "ghost@x.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, repo.SetSuspended(context.Background(), "a@x.com", true))
	assert.ErrorIs(t, repo.SetSuspended(context.Background(), "ghost@x.com", true), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_AcceptInvitation_OnlyOnce(t *testing.T) {
	mock, repo := newMockUserRepo(t)

	mock.ExpectQuery(`SET password_hash = \$1, invitation_accepted = TRUE`).
		WithArgs("newhash", "a@x.com").
		WillReturnRows(userRow(pgxmock.NewRows(userCols), "a@x.com", "newhash", true))
	mock.ExpectQuery(`SET password_hash = \$1, invitation_accepted = TRUE`).
		WithArgs("newhash", "a@x.com").
		WillReturnRows(pgxmock.NewRows(userCols))

	u, err := repo.AcceptInvitation(context.Background(), "a@x.com", "newhash")
	require.NoError(t, err)
	assert.True(t, u.InvitationAccepted)

	_, err = repo.AcceptInvitation(context.Background(), "a@x.com", "newhash")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_MarkInvitationSent(t *testing.T) {
	mock, repo := newMockUserRepo(t)
	at := time.Now()

	mock.ExpectExec(`UPDATE users SET invitation_sent_at = \$1 WHERE email = \$2`).
		WithArgs(at, "a@x.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.MarkInvitationSent(context.Background(), "a@x.com", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
