// AngelaMos | 2026
// repository_test.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/contacts-backend/internal/core"
)

var userRowColumns = []string{
	"id", "email", "password_hash", "subscription", "avatar_url",
	"token_hash", "verified", "verification_token", "created_at", "updated_at",
}

func newRepoWithMock(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func userRow(id, email string, tokenHash any) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userRowColumns).AddRow(
		id, email, "$2a$10$hash", SubscriptionStarter, "avatars/a.png",
		tokenHash, true, nil, now, now,
	)
}

func TestRepository_Create(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	token := "verify-me"
	u := &User{
		ID:                "u-1",
		Email:             "a@b.com",
		PasswordHash:      "$2a$10$hash",
		Subscription:      SubscriptionStarter,
		AvatarURL:         "https://www.gravatar.com/avatar/x",
		VerificationToken: &token,
	}

	now := time.Now()
	mock.ExpectQuery(`(?s)INSERT INTO users .*RETURNING created_at, updated_at`).
		WithArgs(u.ID, u.Email, u.PasswordHash, u.Subscription, u.AvatarURL, false, &token).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, now, u.CreatedAt)
}

func TestRepository_Create_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &User{ID: "u-1", Email: "a@b.com"})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}

func TestRepository_GetByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)

		mock.ExpectQuery(`(?s)SELECT .* FROM users\s+WHERE email = \$1`).
			WithArgs("a@b.com").
			WillReturnRows(userRow("u-1", "a@b.com", nil))

		got, err := repo.GetByEmail(context.Background(), "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, "u-1", got.ID)
		assert.Nil(t, got.TokenHash)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)

		mock.ExpectQuery(`(?s)SELECT .* FROM users\s+WHERE email = \$1`).
			WithArgs("ghost@b.com").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByEmail(context.Background(), "ghost@b.com")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)

		mock.ExpectQuery(`(?s)SELECT .* FROM users`).
			WillReturnError(errors.New("db down"))

		_, err := repo.GetByEmail(context.Background(), "a@b.com")
		require.Error(t, err)
		assert.NotErrorIs(t, err, core.ErrNotFound)
		assert.Contains(t, err.Error(), "db down")
	})
}

func TestRepository_GetByTokenHash_EmptyNeverQueries(t *testing.T) {
	repo, _ := newRepoWithMock(t)

	_, err := repo.GetByTokenHash(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepository_SetToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)UPDATE users\s+SET token_hash = \$2.*WHERE id = \$1\s+RETURNING`).
		WithArgs("u-1", "digest").
		WillReturnRows(userRow("u-1", "a@b.com", "digest"))

	got, err := repo.SetToken(context.Background(), "u-1", "digest")
	require.NoError(t, err)
	require.NotNil(t, got.TokenHash)
	assert.Equal(t, "digest", *got.TokenHash)
}

func TestRepository_ClearToken(t *testing.T) {
	tests := []struct {
		name    string
		rows    int64
		wantHit bool
	}{
		{name: "current token cleared", rows: 1, wantHit: true},
		{name: "token already superseded", rows: 0, wantHit: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)

			mock.ExpectExec(`(?s)UPDATE users\s+SET token_hash = NULL.*WHERE id = \$1 AND token_hash = \$2`).
				WithArgs("u-1", "digest").
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			hit, err := repo.ClearToken(context.Background(), "u-1", "digest")
			require.NoError(t, err)
			assert.Equal(t, tt.wantHit, hit)
		})
	}
}

func TestRepository_MarkVerified_UnknownToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)UPDATE users\s+SET verified = TRUE, verification_token = NULL`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.MarkVerified(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepository_UpdateSubscriptionByToken_Missing(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)UPDATE users\s+SET subscription = \$2.*WHERE token_hash = \$1`).
		WithArgs("gone", SubscriptionPro).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateSubscriptionByToken(context.Background(), "gone", SubscriptionPro)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepository_SwapAvatarByToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	cols := append(append([]string{}, userRowColumns...), "previous_avatar_url")
	rows := sqlmock.NewRows(cols).AddRow(
		"u-1", "a@b.com", "$2a$10$hash", SubscriptionStarter, "avatars/new.png",
		"digest", true, nil, now, now, "avatars/old.png",
	)

	mock.ExpectQuery(`(?s)WITH prev AS .*FOR UPDATE.*UPDATE users u\s+SET avatar_url = \$2`).
		WithArgs("digest", "avatars/new.png").
		WillReturnRows(rows)

	swap, err := repo.SwapAvatarByToken(context.Background(), "digest", "avatars/new.png")
	require.NoError(t, err)
	assert.Equal(t, "avatars/new.png", swap.User.AvatarURL)
	assert.Equal(t, "avatars/old.png", swap.Previous)
}
