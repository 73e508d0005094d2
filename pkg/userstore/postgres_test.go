package userstore_test

import (
	"context"
	"io/fs"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/userstore"
)

var userCols = []string{
	"id", "email", "name", "avatar_url", "password_hash", "is_verified", "email_verified_at",
	"role", "status", "last_login_at", "last_login_ip", "remember_token", "created_at", "updated_at",
}

func newPostgres(t *testing.T) (*userstore.Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return userstore.NewPostgres(db), mock
}

func userRow(id uuid.UUID, email string) *sqlmock.Rows {
	now := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(userCols).
		AddRow(id.String(), email, "Ana", "", "", true, now, "employee", "active", nil, "", "", now, now)
}

func TestPostgres_FindByID(t *testing.T) {
	p, mock := newPostgres(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).WithArgs(id).
		WillReturnRows(userRow(id, "ana@bizhub.test"))
	mock.ExpectQuery(`SELECT provider, external_id FROM user_social_accounts`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"provider", "external_id"}).AddRow("google", "g-1"))

	u, err := p.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, auth.RoleEmployee, u.Role)
	assert.Equal(t, map[string]string{"google": "g-1"}, u.SocialIDs)
	assert.NotNil(t, u.EmailVerifiedAt)
	assert.Nil(t, u.LastLoginAt)
}

func TestPostgres_NotFound(t *testing.T) {
	p, mock := newPostgres(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).WithArgs("ghost@bizhub.test").
		WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectQuery(`user_social_accounts WHERE provider = \$1 AND external_id = \$2`).WithArgs("github", "42").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := p.FindByEmail(context.Background(), " Ghost@BizHub.test")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
	_, err = p.FindByProviderID(context.Background(), "github", "42")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestPostgres_Create(t *testing.T) {
	p, mock := newPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_social_accounts`).
		WithArgs(sqlmock.AnyArg(), "github", "gh-7").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := p.Create(context.Background(), auth.User{
		Email:     "Ana@BizHub.test",
		Name:      "Ana",
		SocialIDs: map[string]string{"github": "gh-7"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, "ana@bizhub.test", u.Email)
	assert.Equal(t, auth.RoleEmployee, u.Role)
	assert.Equal(t, auth.StatusActive, u.Status)
}

func TestPostgres_CreateConflicts(t *testing.T) {
	t.Run("email", func(t *testing.T) {
		p, mock := newPostgres(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
		mock.ExpectRollback()

		_, err := p.Create(context.Background(), auth.User{Email: "ana@bizhub.test"})
		assert.ErrorIs(t, err, auth.ErrEmailAlreadyExists)
	})

	t.Run("provider", func(t *testing.T) {
		p, mock := newPostgres(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO user_social_accounts`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "user_social_accounts_provider_external_id_key"})
		mock.ExpectRollback()

		_, err := p.Create(context.Background(), auth.User{
			Email:     "ana@bizhub.test",
			SocialIDs: map[string]string{"google": "g-1"},
		})
		assert.ErrorIs(t, err, auth.ErrProviderLinked)
	})
}

func TestPostgres_Update(t *testing.T) {
	p, mock := newPostgres(t)
	id := uuid.New()
	token := "remember"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1 FOR UPDATE`).WithArgs(id).
		WillReturnRows(userRow(id, "ana@bizhub.test"))
	mock.ExpectQuery(`SELECT provider, external_id FROM user_social_accounts`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"provider", "external_id"}).
			AddRow("github", "gh-1").
			AddRow("google", "g-1"))
	mock.ExpectExec(`UPDATE users SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM user_social_accounts`).WithArgs(id, "google").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := p.Update(context.Background(), id, auth.UserFields{
		RememberToken:   &token,
		UnlinkProviders: []string{"google"},
	})
	require.NoError(t, err)
	assert.Equal(t, "remember", u.RememberToken)
	assert.Equal(t, []string{"github"}, auth.LinkedProviders(u))
}

func TestPostgres_UpdateKeepsLastProvider(t *testing.T) {
	p, mock := newPostgres(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1 FOR UPDATE`).WithArgs(id).
		WillReturnRows(userRow(id, "ana@bizhub.test"))
	mock.ExpectQuery(`SELECT provider, external_id FROM user_social_accounts`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"provider", "external_id"}).AddRow("github", "gh-1"))
	mock.ExpectRollback()

	_, err := p.Update(context.Background(), id, auth.UserFields{
		UnlinkProviders:  []string{"github"},
		KeepSignInMethod: true,
	})
	assert.ErrorIs(t, err, auth.ErrLastProvider)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateMissingUser(t *testing.T) {
	p, mock := newPostgres(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1 FOR UPDATE`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectRollback()

	name := "x"
	_, err := p.Update(context.Background(), id, auth.UserFields{Name: &name})
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestMigrations_Embedded(t *testing.T) {
	files, err := fs.Glob(userstore.Migrations, userstore.MigrationsDir+"/*.sql")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	for _, f := range files {
		body, err := fs.ReadFile(userstore.Migrations, f)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up")
		assert.Contains(t, string(body), "-- +goose Down")
	}
}
