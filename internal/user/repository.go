// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/contacts-backend/internal/core"
)

// Repository is the credential store. Every mutation is a single statement
// so concurrent requests for the same user cannot lose updates.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	SetToken(ctx context.Context, id, tokenHash string) (*User, error)
	ClearToken(ctx context.Context, id, tokenHash string) (bool, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	MarkVerified(ctx context.Context, verificationToken string) (*User, error)
	UpdateSubscriptionByToken(
		ctx context.Context,
		tokenHash, subscription string,
	) (*User, error)
	SwapAvatarByToken(
		ctx context.Context,
		tokenHash, avatarURL string,
	) (*AvatarSwap, error)
}

const userColumns = `id, email, password_hash, subscription, avatar_url,
		       token_hash, verified, verification_token, created_at, updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, email, password_hash, subscription, avatar_url,
		                   verified, verification_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Subscription,
		user.AvatarURL,
		user.Verified,
		user.VerificationToken,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	return r.getOne(ctx, "get user by email", "email", email)
}

func (r *repository) GetByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*User, error) {
	if tokenHash == "" {
		return nil, fmt.Errorf("get user by token: %w", core.ErrNotFound)
	}
	return r.getOne(ctx, "get user by token", "token_hash", tokenHash)
}

func (r *repository) getOne(
	ctx context.Context,
	op, column, value string,
) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE ` + column + ` = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, value)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

func (r *repository) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}

	return exists, nil
}

// SetToken overwrites the session slot; whatever was stored before stops
// resolving.
func (r *repository) SetToken(
	ctx context.Context,
	id, tokenHash string,
) (*User, error) {
	query := `
		UPDATE users
		SET token_hash = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	var user User
	err := r.db.GetContext(ctx, &user, query, id, tokenHash)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("set token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("set token: %w", err)
	}

	return &user, nil
}

// ClearToken empties the session slot only if it still holds tokenHash.
func (r *repository) ClearToken(
	ctx context.Context,
	id, tokenHash string,
) (bool, error) {
	query := `
		UPDATE users
		SET token_hash = NULL, updated_at = NOW()
		WHERE id = $1 AND token_hash = $2`

	result, err := r.db.ExecContext(ctx, query, id, tokenHash)
	if err != nil {
		return false, fmt.Errorf("clear token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("clear token: %w", err)
	}

	return rows > 0, nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) MarkVerified(
	ctx context.Context,
	verificationToken string,
) (*User, error) {
	query := `
		UPDATE users
		SET verified = TRUE, verification_token = NULL, updated_at = NOW()
		WHERE verification_token = $1
		RETURNING ` + userColumns

	var user User
	err := r.db.GetContext(ctx, &user, query, verificationToken)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("mark verified: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}

	return &user, nil
}

func (r *repository) UpdateSubscriptionByToken(
	ctx context.Context,
	tokenHash, subscription string,
) (*User, error) {
	query := `
		UPDATE users
		SET subscription = $2, updated_at = NOW()
		WHERE token_hash = $1
		RETURNING ` + userColumns

	var user User
	err := r.db.GetContext(ctx, &user, query, tokenHash, subscription)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("update subscription: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	return &user, nil
}

type avatarSwapRow struct {
	User
	Previous string `db:"previous_avatar_url"`
}

// SwapAvatarByToken replaces avatar_url and returns the value it replaced,
// read under the same row lock.
func (r *repository) SwapAvatarByToken(
	ctx context.Context,
	tokenHash, avatarURL string,
) (*AvatarSwap, error) {
	query := `
		WITH prev AS (
			SELECT id, avatar_url FROM users WHERE token_hash = $1 FOR UPDATE
		)
		UPDATE users u
		SET avatar_url = $2, updated_at = NOW()
		FROM prev
		WHERE u.id = prev.id
		RETURNING u.id, u.email, u.password_hash, u.subscription, u.avatar_url,
		          u.token_hash, u.verified, u.verification_token,
		          u.created_at, u.updated_at,
		          prev.avatar_url AS previous_avatar_url`

	var row avatarSwapRow
	err := r.db.GetContext(ctx, &row, query, tokenHash, avatarURL)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("swap avatar: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("swap avatar: %w", err)
	}

	return &AvatarSwap{User: &row.User, Previous: row.Previous}, nil
}
